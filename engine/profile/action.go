package profile

import (
	"github.com/spaghettifunk/prism/engine/metadata"
)

/**
 * @brief Per-stage overrides. Tunables carry a value and only fire when
 * assigned; plain booleans are one-way switches that force the target on
 * (or off, for NggDisable) when set.
 */
type ShaderAction struct {
	// Shader compiler options.
	VgprLimit                     Tunable[uint32]
	SgprLimit                     Tunable[uint32]
	MaxThreadGroupsPerComputeUnit Tunable[uint32]
	LdsSpillLimitDwords           Tunable[uint32]
	UserDataSpillThreshold        Tunable[uint32]
	ForceLoopUnrollCount          Tunable[uint32]
	UnrollThreshold               Tunable[uint32]
	Fp32DenormalMode              Tunable[uint32]
	WaveSize                      Tunable[metadata.WaveSize]
	WaveBreakSize                 Tunable[uint32]

	DebugMode               bool
	TrapPresent             bool
	AllowReZ                bool
	DisableLoopUnroll       bool
	UseSiScheduler          bool
	ReconfigWorkgroupLayout bool
	EnableLoadScalarizer    bool
	DisableLicm             bool
	EnableSelectiveInline   bool
	WgpMode                 bool

	// Geometry-engine switches.
	NggDisable                bool
	NggEnableFastLaunch       bool
	NggEnableVertexReuse      bool
	NggEnableFrustumCulling   bool
	NggEnableBoxFilterCulling bool
	NggEnableSphereCulling    bool
	NggEnableBackfaceCulling  bool
	NggEnableSmallPrimFilter  bool
	EnableSubvector           bool

	// Dynamic shader info applied at bind time.
	CuEnableMask         Tunable[uint32]
	MaxWavesPerCu        Tunable[uint32]
	MaxThreadGroupsPerCu Tunable[uint32]
}

/** @brief Pipeline-wide overrides that are not tied to a single stage. */
type PipelineAction struct {
	LateAllocVsLimit Tunable[uint32]
	BinningOverride  Tunable[metadata.BinningOverride]
}

/** @brief The full action of one profile entry. */
type Action struct {
	Shaders    [metadata.ShaderStageCount]ShaderAction
	CreateInfo PipelineAction
}

/** @brief One profile entry: a pattern paired with the action it triggers. */
type Entry struct {
	Pattern PipelinePattern
	Action  Action
}
