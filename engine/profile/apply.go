package profile

import (
	vk "github.com/goki/vulkan"

	"github.com/spaghettifunk/prism/engine/metadata"
)

/**
 * @brief Observability callback invoked once per matching entry on the
 * pipeline-create paths. Never affects control flow.
 */
type MatchHook func(kind Kind, index int, key *metadata.PipelineOptimizerKey)

// ApplyToShaderCreateInfo walks the profile in order and, for every entry
// matching the key, writes the armed overrides of the given stage into the
// caller-owned compiler options. A nil options handle is a no-op.
func (p *Profile) ApplyToShaderCreateInfo(key *metadata.PipelineOptimizerKey, stage metadata.ShaderStage, opts metadata.PipelineShaderOptions) {
	for i := range p.Entries {
		entry := &p.Entries[i]

		if !entry.Pattern.Matches(key) {
			continue
		}

		if opts.Options == nil {
			continue
		}

		applyShaderAction(&entry.Action.Shaders[stage], opts)
	}
}

func applyShaderAction(action *ShaderAction, opts metadata.PipelineShaderOptions) {
	options := opts.Options

	if v, ok := action.VgprLimit.Get(); ok {
		options.VgprLimit = v
	}

	if v, ok := action.SgprLimit.Get(); ok {
		options.SgprLimit = v
	}

	if v, ok := action.MaxThreadGroupsPerComputeUnit.Get(); ok {
		options.MaxThreadGroupsPerComputeUnit = v
	}

	if v, ok := action.LdsSpillLimitDwords.Get(); ok {
		options.LdsSpillLimitDwords = v
	}

	if v, ok := action.UserDataSpillThreshold.Get(); ok {
		options.UserDataSpillThreshold = v
	}

	if action.DebugMode {
		options.DebugMode = true
	}

	if action.TrapPresent {
		options.TrapPresent = true
	}

	if action.AllowReZ {
		options.AllowReZ = true
	}

	if action.DisableLoopUnroll {
		options.DisableLoopUnroll = true
	}

	if action.UseSiScheduler {
		options.UseSiScheduler = true
	}

	if action.ReconfigWorkgroupLayout && opts.PipelineOptions != nil {
		opts.PipelineOptions.ReconfigWorkgroupLayout = true
	}

	if action.EnableLoadScalarizer {
		options.EnableLoadScalarizer = true
	}

	if v, ok := action.ForceLoopUnrollCount.Get(); ok {
		options.ForceLoopUnrollCount = v
	}

	if action.DisableLicm {
		options.DisableLicm = true
	}

	if action.EnableSelectiveInline {
		options.EnableSelectiveInline = true
	}

	if v, ok := action.UnrollThreshold.Get(); ok {
		options.UnrollThreshold = v
	}

	if v, ok := action.Fp32DenormalMode.Get(); ok {
		options.Fp32DenormalMode = v
	}

	if v, ok := action.WaveSize.Get(); ok {
		options.WaveSize = v
	}

	if action.WgpMode {
		options.WgpMode = true
	}

	if v, ok := action.WaveBreakSize.Get(); ok {
		options.WaveBreakSize = v
	}

	if opts.NggState != nil {
		if action.NggDisable {
			opts.NggState.EnableNgg = false
		}

		if action.NggEnableFastLaunch {
			opts.NggState.EnableFastLaunch = true
		}

		if action.NggEnableVertexReuse {
			opts.NggState.EnableVertexReuse = true
		}

		if action.NggEnableFrustumCulling {
			opts.NggState.EnableFrustumCulling = true
		}

		if action.NggEnableBoxFilterCulling {
			opts.NggState.EnableBoxFilterCulling = true
		}

		if action.NggEnableSphereCulling {
			opts.NggState.EnableSphereCulling = true
		}

		if action.NggEnableBackfaceCulling {
			opts.NggState.EnableBackfaceCulling = true
		}

		if action.NggEnableSmallPrimFilter {
			opts.NggState.EnableSmallPrimFilter = true
		}

		if action.EnableSubvector {
			opts.NggState.EnableSubvectorPacking = true
		}
	}
}

// ApplyToGraphicsPipelineCreateInfo applies per-stage dynamic shader info
// for every stage flagged in stageMask and the pipeline-level overrides onto
// the create info. The hook, when non-nil, fires once per matching entry.
func (p *Profile) ApplyToGraphicsPipelineCreateInfo(key *metadata.PipelineOptimizerKey, stageMask vk.ShaderStageFlagBits, createInfo *metadata.GraphicsPipelineCreateInfo, shaderInfos *metadata.DynamicGraphicsShaderInfos, hook MatchHook) {
	for i := range p.Entries {
		entry := &p.Entries[i]

		if !entry.Pattern.Matches(key) {
			continue
		}

		shaders := &entry.Action.Shaders

		if stageMask&vk.ShaderStageVertexBit != 0 {
			applyDynamicGraphicsShaderInfo(&shaders[metadata.ShaderStageVertex], &shaderInfos.VS)
		}

		if stageMask&vk.ShaderStageTessellationControlBit != 0 {
			applyDynamicGraphicsShaderInfo(&shaders[metadata.ShaderStageTessControl], &shaderInfos.HS)
		}

		if stageMask&vk.ShaderStageTessellationEvaluationBit != 0 {
			applyDynamicGraphicsShaderInfo(&shaders[metadata.ShaderStageTessEvaluation], &shaderInfos.DS)
		}

		if stageMask&vk.ShaderStageGeometryBit != 0 {
			applyDynamicGraphicsShaderInfo(&shaders[metadata.ShaderStageGeometry], &shaderInfos.GS)
		}

		if stageMask&vk.ShaderStageFragmentBit != 0 {
			applyDynamicGraphicsShaderInfo(&shaders[metadata.ShaderStageFragment], &shaderInfos.PS)
		}

		createAction := &entry.Action.CreateInfo

		if v, ok := createAction.LateAllocVsLimit.Get(); ok {
			createInfo.UseLateAllocVsLimit = true
			createInfo.LateAllocVsLimit = v
		}

		if v, ok := createAction.BinningOverride.Get(); ok {
			createInfo.BinningOverride = v
		}

		if hook != nil {
			hook(p.Kind, i, key)
		}
	}
}

// ApplyToComputePipelineCreateInfo is the compute-only analogue of the
// graphics path, targeting the dynamic compute shader info.
func (p *Profile) ApplyToComputePipelineCreateInfo(key *metadata.PipelineOptimizerKey, info *metadata.DynamicComputeShaderInfo, hook MatchHook) {
	for i := range p.Entries {
		entry := &p.Entries[i]

		if !entry.Pattern.Matches(key) {
			continue
		}

		action := &entry.Action.Shaders[metadata.ShaderStageCompute]

		if v, ok := action.MaxWavesPerCu.Get(); ok {
			info.MaxWavesPerCu = v
		}

		if v, ok := action.MaxThreadGroupsPerCu.Get(); ok {
			info.MaxThreadGroupsPerCu = v
		}

		if hook != nil {
			hook(p.Kind, i, key)
		}
	}
}

func applyDynamicGraphicsShaderInfo(action *ShaderAction, info *metadata.DynamicGraphicsShaderInfo) {
	if v, ok := action.CuEnableMask.Get(); ok {
		info.CuEnableMask = v
	}

	if v, ok := action.MaxWavesPerCu.Get(); ok {
		info.MaxWavesPerCu = v
	}
}
