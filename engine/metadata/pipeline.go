package metadata

/** @brief Primitive-binning override requested through settings or rule files. */
type PipelineBinningMode uint32

const (
	PipelineBinningModeDefault PipelineBinningMode = iota
	PipelineBinningModeEnable
	PipelineBinningModeDisable
)

/** @brief Primitive-binning override state as written into the pipeline create info. */
type BinningOverride uint32

const (
	BinningOverrideDefault BinningOverride = iota
	BinningOverrideEnable
	BinningOverrideDisable
)

/**
 * @brief Per-shader compiler tuning options. Owned by the pipeline-creation
 * caller and mutated in place by the optimizer; never retained.
 */
type ShaderOptions struct {
	VgprLimit                     uint32
	SgprLimit                     uint32
	MaxThreadGroupsPerComputeUnit uint32
	DebugMode                     bool
	TrapPresent                   bool
	AllowReZ                      bool
	DisableLoopUnroll             bool
	UseSiScheduler                bool
	EnableLoadScalarizer          bool
	DisableLicm                   bool
	EnableSelectiveInline         bool
	ForceLoopUnrollCount          uint32
	UnrollThreshold               uint32
	LdsSpillLimitDwords           uint32
	UserDataSpillThreshold        uint32
	Fp32DenormalMode              uint32
	WaveSize                      WaveSize
	WaveBreakSize                 uint32
	WgpMode                       bool
}

/** @brief Pipeline-wide compiler options shared by every stage. */
type PipelineOptions struct {
	ReconfigWorkgroupLayout bool
}

/** @brief Geometry-engine state for shaders on NGG-capable hardware. */
type NggState struct {
	EnableNgg              bool
	EnableFastLaunch       bool
	EnableVertexReuse      bool
	EnableFrustumCulling   bool
	EnableBoxFilterCulling bool
	EnableSphereCulling    bool
	EnableBackfaceCulling  bool
	EnableSmallPrimFilter  bool
	EnableSubvectorPacking bool
}

/**
 * @brief Handle bundle passed to the shader-stage override path. Any nil
 * member simply skips the writes that would target it.
 */
type PipelineShaderOptions struct {
	Options         *ShaderOptions
	PipelineOptions *PipelineOptions
	NggState        *NggState
}

/** @brief Dynamic per-stage state applied at pipeline bind rather than compile. */
type DynamicGraphicsShaderInfo struct {
	CuEnableMask  uint32
	MaxWavesPerCu uint32
}

/** @brief Dynamic state for every graphics stage of a pipeline. */
type DynamicGraphicsShaderInfos struct {
	VS DynamicGraphicsShaderInfo
	HS DynamicGraphicsShaderInfo
	DS DynamicGraphicsShaderInfo
	GS DynamicGraphicsShaderInfo
	PS DynamicGraphicsShaderInfo
}

/** @brief Dynamic state for a compute pipeline. */
type DynamicComputeShaderInfo struct {
	MaxWavesPerCu        uint32
	MaxThreadGroupsPerCu uint32
}

/** @brief The subset of the graphics pipeline create info the optimizer may rewrite. */
type GraphicsPipelineCreateInfo struct {
	UseLateAllocVsLimit bool
	LateAllocVsLimit    uint32
	BinningOverride     BinningOverride
}
