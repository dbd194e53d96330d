package profile

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"golang.org/x/exp/constraints"
	"gopkg.in/yaml.v3"

	"github.com/spaghettifunk/prism/engine/metadata"
)

// Hardware ceilings enforced on deserialized limits so a bad rule file can
// request at most what the register files actually hold.
const (
	maxVgprLimit     = 256
	maxSgprLimit     = 128
	maxWavesPerCuCap = 40
)

/**
 * @brief On-disk profile schema. YAML is a superset of JSON, so rule files
 * written in either form deserialize through the same document types.
 */
type document struct {
	Entries []documentEntry `yaml:"entries"`
}

type documentEntry struct {
	Pattern documentPattern `yaml:"pattern"`
	Action  documentAction  `yaml:"action"`
}

type documentPattern struct {
	Always  bool                             `yaml:"always,omitempty"`
	Shaders map[string]documentShaderPattern `yaml:"shaders,omitempty"`
}

type documentShaderHash struct {
	Lower uint64 `yaml:"lower"`
	Upper uint64 `yaml:"upper"`
}

type documentShaderPattern struct {
	StageActive      bool                `yaml:"stageActive,omitempty"`
	StageInactive    bool                `yaml:"stageInactive,omitempty"`
	CodeHash         *documentShaderHash `yaml:"codeHash,omitempty"`
	CodeSizeLessThan uint64              `yaml:"codeSizeLessThan,omitempty"`
}

type documentAction struct {
	Shaders          map[string]documentShaderAction `yaml:"shaders,omitempty"`
	LateAllocVsLimit *uint32                         `yaml:"lateAllocVsLimit,omitempty"`
	BinningOverride  *uint32                         `yaml:"binningOverride,omitempty"`
}

type documentShaderAction struct {
	VgprLimit                     *uint32 `yaml:"vgprLimit,omitempty"`
	SgprLimit                     *uint32 `yaml:"sgprLimit,omitempty"`
	MaxThreadGroupsPerComputeUnit *uint32 `yaml:"maxThreadGroupsPerComputeUnit,omitempty"`
	LdsSpillLimitDwords           *uint32 `yaml:"ldsSpillLimitDwords,omitempty"`
	UserDataSpillThreshold        *uint32 `yaml:"userDataSpillThreshold,omitempty"`
	ForceLoopUnrollCount          *uint32 `yaml:"forceLoopUnrollCount,omitempty"`
	UnrollThreshold               *uint32 `yaml:"unrollThreshold,omitempty"`
	Fp32DenormalMode              *uint32 `yaml:"fp32DenormalMode,omitempty"`
	WaveSize                      *uint32 `yaml:"waveSize,omitempty"`
	WaveBreakSize                 *uint32 `yaml:"waveBreakSize,omitempty"`

	DebugMode               bool `yaml:"debugMode,omitempty"`
	TrapPresent             bool `yaml:"trapPresent,omitempty"`
	AllowReZ                bool `yaml:"allowReZ,omitempty"`
	DisableLoopUnroll       bool `yaml:"disableLoopUnroll,omitempty"`
	UseSiScheduler          bool `yaml:"useSiScheduler,omitempty"`
	ReconfigWorkgroupLayout bool `yaml:"reconfigWorkgroupLayout,omitempty"`
	EnableLoadScalarizer    bool `yaml:"enableLoadScalarizer,omitempty"`
	DisableLicm             bool `yaml:"disableLicm,omitempty"`
	EnableSelectiveInline   bool `yaml:"enableSelectiveInline,omitempty"`
	WgpMode                 bool `yaml:"wgpMode,omitempty"`

	NggDisable                bool `yaml:"nggDisable,omitempty"`
	NggEnableFastLaunch       bool `yaml:"nggEnableFastLaunch,omitempty"`
	NggEnableVertexReuse      bool `yaml:"nggEnableVertexReuse,omitempty"`
	NggEnableFrustumCulling   bool `yaml:"nggEnableFrustumCulling,omitempty"`
	NggEnableBoxFilterCulling bool `yaml:"nggEnableBoxFilterCulling,omitempty"`
	NggEnableSphereCulling    bool `yaml:"nggEnableSphereCulling,omitempty"`
	NggEnableBackfaceCulling  bool `yaml:"nggEnableBackfaceCulling,omitempty"`
	NggEnableSmallPrimFilter  bool `yaml:"nggEnableSmallPrimFilter,omitempty"`
	EnableSubvector           bool `yaml:"enableSubvector,omitempty"`

	CuEnableMask         *uint32 `yaml:"cuEnableMask,omitempty"`
	MaxWavesPerCu        *uint32 `yaml:"maxWavesPerCu,omitempty"`
	MaxThreadGroupsPerCu *uint32 `yaml:"maxThreadGroupsPerCu,omitempty"`
}

var stageNames = map[string]metadata.ShaderStage{
	"vs": metadata.ShaderStageVertex,
	"hs": metadata.ShaderStageTessControl,
	"ds": metadata.ShaderStageTessEvaluation,
	"gs": metadata.ShaderStageGeometry,
	"ps": metadata.ShaderStageFragment,
	"cs": metadata.ShaderStageCompute,
}

func parseStage(name string) (metadata.ShaderStage, error) {
	stage, ok := stageNames[name]
	if !ok {
		return 0, fmt.Errorf("unknown shader stage %q", name)
	}
	return stage, nil
}

func clamp[T constraints.Ordered](v, low, high T) T {
	if v < low {
		return low
	}
	if v > high {
		return high
	}
	return v
}

// UnmarshalProfile deserializes a rule document into the profile. On any
// error the profile is left exactly as it was; entries are only installed
// once the whole document deserialized cleanly. Empty input is a valid
// zero-entry document.
func UnmarshalProfile(data []byte, p *Profile) error {
	var doc document

	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)

	if err := decoder.Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return err
	}

	entries := make([]Entry, 0, max(len(doc.Entries), InitialEntryCapacity))

	for i := range doc.Entries {
		var entry Entry

		if err := deserializePattern(&doc.Entries[i].Pattern, &entry.Pattern); err != nil {
			return fmt.Errorf("entry %d: %w", i, err)
		}

		if err := deserializeAction(&doc.Entries[i].Action, &entry.Action); err != nil {
			return fmt.Errorf("entry %d: %w", i, err)
		}

		entries = append(entries, entry)
	}

	p.Entries = entries
	return nil
}

func deserializePattern(doc *documentPattern, pattern *PipelinePattern) error {
	pattern.Always = doc.Always

	for name, shaderDoc := range doc.Shaders {
		stage, err := parseStage(name)
		if err != nil {
			return err
		}

		shaderPattern := &pattern.Shaders[stage]
		shaderPattern.MatchStageActive = shaderDoc.StageActive
		shaderPattern.MatchStageInactive = shaderDoc.StageInactive
		shaderPattern.CodeSizeLessThan = shaderDoc.CodeSizeLessThan

		if shaderDoc.CodeHash != nil {
			shaderPattern.MatchCodeHash = true
			shaderPattern.CodeHash = metadata.ShaderHash{
				Lower: shaderDoc.CodeHash.Lower,
				Upper: shaderDoc.CodeHash.Upper,
			}
		}
	}

	return nil
}

func deserializeAction(doc *documentAction, action *Action) error {
	for name, shaderDoc := range doc.Shaders {
		stage, err := parseStage(name)
		if err != nil {
			return err
		}

		if err := deserializeShaderAction(&shaderDoc, &action.Shaders[stage]); err != nil {
			return fmt.Errorf("stage %s: %w", name, err)
		}
	}

	if doc.LateAllocVsLimit != nil {
		action.CreateInfo.LateAllocVsLimit.Assign(*doc.LateAllocVsLimit)
	}

	if doc.BinningOverride != nil {
		if *doc.BinningOverride > uint32(metadata.BinningOverrideDisable) {
			return fmt.Errorf("invalid binningOverride %d", *doc.BinningOverride)
		}
		action.CreateInfo.BinningOverride.Assign(metadata.BinningOverride(*doc.BinningOverride))
	}

	return nil
}

func deserializeShaderAction(doc *documentShaderAction, action *ShaderAction) error {
	if doc.VgprLimit != nil {
		action.VgprLimit.Assign(clamp(*doc.VgprLimit, 0, maxVgprLimit))
	}
	if doc.SgprLimit != nil {
		action.SgprLimit.Assign(clamp(*doc.SgprLimit, 0, maxSgprLimit))
	}
	if doc.MaxThreadGroupsPerComputeUnit != nil {
		action.MaxThreadGroupsPerComputeUnit.Assign(*doc.MaxThreadGroupsPerComputeUnit)
	}
	if doc.LdsSpillLimitDwords != nil {
		action.LdsSpillLimitDwords.Assign(*doc.LdsSpillLimitDwords)
	}
	if doc.UserDataSpillThreshold != nil {
		action.UserDataSpillThreshold.Assign(*doc.UserDataSpillThreshold)
	}
	if doc.ForceLoopUnrollCount != nil {
		action.ForceLoopUnrollCount.Assign(*doc.ForceLoopUnrollCount)
	}
	if doc.UnrollThreshold != nil {
		action.UnrollThreshold.Assign(*doc.UnrollThreshold)
	}
	if doc.Fp32DenormalMode != nil {
		action.Fp32DenormalMode.Assign(*doc.Fp32DenormalMode)
	}

	if doc.WaveSize != nil {
		switch *doc.WaveSize {
		case uint32(metadata.WaveSize32):
			action.WaveSize.Assign(metadata.WaveSize32)
		case uint32(metadata.WaveSize64):
			action.WaveSize.Assign(metadata.WaveSize64)
		default:
			return fmt.Errorf("invalid waveSize %d", *doc.WaveSize)
		}
	}

	if doc.WaveBreakSize != nil {
		action.WaveBreakSize.Assign(*doc.WaveBreakSize)
	}

	action.DebugMode = doc.DebugMode
	action.TrapPresent = doc.TrapPresent
	action.AllowReZ = doc.AllowReZ
	action.DisableLoopUnroll = doc.DisableLoopUnroll
	action.UseSiScheduler = doc.UseSiScheduler
	action.ReconfigWorkgroupLayout = doc.ReconfigWorkgroupLayout
	action.EnableLoadScalarizer = doc.EnableLoadScalarizer
	action.DisableLicm = doc.DisableLicm
	action.EnableSelectiveInline = doc.EnableSelectiveInline
	action.WgpMode = doc.WgpMode

	action.NggDisable = doc.NggDisable
	action.NggEnableFastLaunch = doc.NggEnableFastLaunch
	action.NggEnableVertexReuse = doc.NggEnableVertexReuse
	action.NggEnableFrustumCulling = doc.NggEnableFrustumCulling
	action.NggEnableBoxFilterCulling = doc.NggEnableBoxFilterCulling
	action.NggEnableSphereCulling = doc.NggEnableSphereCulling
	action.NggEnableBackfaceCulling = doc.NggEnableBackfaceCulling
	action.NggEnableSmallPrimFilter = doc.NggEnableSmallPrimFilter
	action.EnableSubvector = doc.EnableSubvector

	if doc.CuEnableMask != nil {
		action.CuEnableMask.Assign(*doc.CuEnableMask)
	}
	if doc.MaxWavesPerCu != nil {
		action.MaxWavesPerCu.Assign(clamp(*doc.MaxWavesPerCu, 0, maxWavesPerCuCap))
	}
	if doc.MaxThreadGroupsPerCu != nil {
		action.MaxThreadGroupsPerCu.Assign(*doc.MaxThreadGroupsPerCu)
	}

	return nil
}

// Write serializes the profile back into the document schema.
func (p *Profile) Write(w io.Writer) error {
	doc := document{}

	if len(p.Entries) > 0 {
		doc.Entries = make([]documentEntry, 0, len(p.Entries))
	}

	for i := range p.Entries {
		doc.Entries = append(doc.Entries, documentEntry{
			Pattern: serializePattern(&p.Entries[i].Pattern),
			Action:  serializeAction(&p.Entries[i].Action),
		})
	}

	encoder := yaml.NewEncoder(w)
	defer encoder.Close()

	return encoder.Encode(&doc)
}

func serializePattern(pattern *PipelinePattern) documentPattern {
	doc := documentPattern{Always: pattern.Always}

	for name, stage := range stageNames {
		shaderPattern := &pattern.Shaders[stage]

		if !shaderPattern.Enabled() {
			continue
		}

		shaderDoc := documentShaderPattern{
			StageActive:      shaderPattern.MatchStageActive,
			StageInactive:    shaderPattern.MatchStageInactive,
			CodeSizeLessThan: shaderPattern.CodeSizeLessThan,
		}

		if shaderPattern.MatchCodeHash {
			shaderDoc.CodeHash = &documentShaderHash{
				Lower: shaderPattern.CodeHash.Lower,
				Upper: shaderPattern.CodeHash.Upper,
			}
		}

		if doc.Shaders == nil {
			doc.Shaders = make(map[string]documentShaderPattern)
		}
		doc.Shaders[name] = shaderDoc
	}

	return doc
}

func serializeAction(action *Action) documentAction {
	doc := documentAction{}

	for name, stage := range stageNames {
		shaderDoc, used := serializeShaderAction(&action.Shaders[stage])
		if !used {
			continue
		}

		if doc.Shaders == nil {
			doc.Shaders = make(map[string]documentShaderAction)
		}
		doc.Shaders[name] = shaderDoc
	}

	if v, ok := action.CreateInfo.LateAllocVsLimit.Get(); ok {
		doc.LateAllocVsLimit = ptr(v)
	}

	if v, ok := action.CreateInfo.BinningOverride.Get(); ok {
		doc.BinningOverride = ptr(uint32(v))
	}

	return doc
}

func serializeShaderAction(action *ShaderAction) (documentShaderAction, bool) {
	doc := documentShaderAction{
		DebugMode:               action.DebugMode,
		TrapPresent:             action.TrapPresent,
		AllowReZ:                action.AllowReZ,
		DisableLoopUnroll:       action.DisableLoopUnroll,
		UseSiScheduler:          action.UseSiScheduler,
		ReconfigWorkgroupLayout: action.ReconfigWorkgroupLayout,
		EnableLoadScalarizer:    action.EnableLoadScalarizer,
		DisableLicm:             action.DisableLicm,
		EnableSelectiveInline:   action.EnableSelectiveInline,
		WgpMode:                 action.WgpMode,

		NggDisable:                action.NggDisable,
		NggEnableFastLaunch:       action.NggEnableFastLaunch,
		NggEnableVertexReuse:      action.NggEnableVertexReuse,
		NggEnableFrustumCulling:   action.NggEnableFrustumCulling,
		NggEnableBoxFilterCulling: action.NggEnableBoxFilterCulling,
		NggEnableSphereCulling:    action.NggEnableSphereCulling,
		NggEnableBackfaceCulling:  action.NggEnableBackfaceCulling,
		NggEnableSmallPrimFilter:  action.NggEnableSmallPrimFilter,
		EnableSubvector:           action.EnableSubvector,
	}

	used := action.DebugMode || action.TrapPresent || action.AllowReZ ||
		action.DisableLoopUnroll || action.UseSiScheduler || action.ReconfigWorkgroupLayout ||
		action.EnableLoadScalarizer || action.DisableLicm || action.EnableSelectiveInline ||
		action.WgpMode || action.NggDisable || action.NggEnableFastLaunch ||
		action.NggEnableVertexReuse || action.NggEnableFrustumCulling ||
		action.NggEnableBoxFilterCulling || action.NggEnableSphereCulling ||
		action.NggEnableBackfaceCulling || action.NggEnableSmallPrimFilter ||
		action.EnableSubvector

	if v, ok := action.VgprLimit.Get(); ok {
		doc.VgprLimit = ptr(v)
		used = true
	}
	if v, ok := action.SgprLimit.Get(); ok {
		doc.SgprLimit = ptr(v)
		used = true
	}
	if v, ok := action.MaxThreadGroupsPerComputeUnit.Get(); ok {
		doc.MaxThreadGroupsPerComputeUnit = ptr(v)
		used = true
	}
	if v, ok := action.LdsSpillLimitDwords.Get(); ok {
		doc.LdsSpillLimitDwords = ptr(v)
		used = true
	}
	if v, ok := action.UserDataSpillThreshold.Get(); ok {
		doc.UserDataSpillThreshold = ptr(v)
		used = true
	}
	if v, ok := action.ForceLoopUnrollCount.Get(); ok {
		doc.ForceLoopUnrollCount = ptr(v)
		used = true
	}
	if v, ok := action.UnrollThreshold.Get(); ok {
		doc.UnrollThreshold = ptr(v)
		used = true
	}
	if v, ok := action.Fp32DenormalMode.Get(); ok {
		doc.Fp32DenormalMode = ptr(v)
		used = true
	}
	if v, ok := action.WaveSize.Get(); ok {
		doc.WaveSize = ptr(uint32(v))
		used = true
	}
	if v, ok := action.WaveBreakSize.Get(); ok {
		doc.WaveBreakSize = ptr(v)
		used = true
	}
	if v, ok := action.CuEnableMask.Get(); ok {
		doc.CuEnableMask = ptr(v)
		used = true
	}
	if v, ok := action.MaxWavesPerCu.Get(); ok {
		doc.MaxWavesPerCu = ptr(v)
		used = true
	}
	if v, ok := action.MaxThreadGroupsPerCu.Get(); ok {
		doc.MaxThreadGroupsPerCu = ptr(v)
		used = true
	}

	return doc, used
}

func ptr[T any](v T) *T {
	return &v
}
