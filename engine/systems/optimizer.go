package systems

import (
	"os"
	"sync"

	"github.com/fsnotify/fsnotify"
	vk "github.com/goki/vulkan"
	"github.com/google/uuid"

	"github.com/spaghettifunk/prism/engine/config"
	"github.com/spaghettifunk/prism/engine/core"
	"github.com/spaghettifunk/prism/engine/metadata"
	"github.com/spaghettifunk/prism/engine/profile"
)

/** @brief Configuration for the optimizer system. */
type OptimizerSystemConfig struct {
	// Runtime settings the profiles are synthesized from. Never mutated.
	Settings *config.RuntimeSettings
	// Application identity resolved by the platform layer.
	AppProfile metadata.AppProfile
	// Target hardware, used to scope built-in table entries.
	GfxLevel     metadata.GfxIpLevel
	AsicRevision metadata.AsicRevision
}

/**
 * @brief Decides which shader-compiler and pipeline-creation tuning
 * parameters apply to a pipeline about to be compiled, by matching its
 * shader binaries against the application, tuning and runtime profiles.
 *
 * Profiles are built once at system creation and are read-only afterwards,
 * so the override paths are safe for concurrent pipeline creation. The only
 * exception is the runtime profile when reload-on-change is enabled, which
 * swaps under the RWMutex.
 */
type OptimizerSystem struct {
	// Instance identifier carried in diagnostic output.
	ID     uuid.UUID
	Config *OptimizerSystemConfig

	appProfile    *profile.Profile
	tuningProfile *profile.Profile

	runtimeMutex   sync.RWMutex
	runtimeProfile *profile.Profile

	// Serializes diagnostic prints only; never held while matching.
	printMutex sync.Mutex

	watcher *fsnotify.Watcher
	done    chan struct{}
}

func NewOptimizerSystem(cfg *OptimizerSystemConfig) (*OptimizerSystem, error) {
	if cfg == nil {
		core.LogError(core.ErrNilConfiguration.Error())
		return nil, core.ErrNilConfiguration
	}
	if cfg.Settings == nil {
		cfg.Settings = config.DefaultSettings()
	}

	opt := &OptimizerSystem{
		ID:     uuid.New(),
		Config: cfg,
		done:   make(chan struct{}),
	}

	opt.buildAppProfile()
	opt.buildTuningProfile()

	if cfg.Settings.EnablePipelineProfileDumping {
		opt.dumpProfile(opt.tuningProfile, cfg.Settings.PipelineProfileDumpFile)
	}

	opt.runtimeProfile = opt.buildRuntimeProfile()

	if cfg.Settings.PipelineProfileReloadOnChange && cfg.Settings.PipelineProfileRuntimeFile != "" {
		if err := opt.watchRuntimeProfile(); err != nil {
			// Reload is best effort; the profile built above stays valid.
			core.LogWarn("runtime profile watcher unavailable: %s", err.Error())
		}
	}

	return opt, nil
}

// OverrideShaderCreateInfo rewrites the caller-owned compiler options for
// one stage of the pipeline identified by key. The application, tuning and
// runtime profiles apply in that order, so later profiles win on conflict.
func (opt *OptimizerSystem) OverrideShaderCreateInfo(key *metadata.PipelineOptimizerKey, stage metadata.ShaderStage, opts metadata.PipelineShaderOptions) {
	if stage >= metadata.ShaderStageCount {
		core.LogFatal("OverrideShaderCreateInfo - shader stage %d out of range", stage)
	}

	opt.appProfile.ApplyToShaderCreateInfo(key, stage, opts)
	opt.tuningProfile.ApplyToShaderCreateInfo(key, stage, opts)
	opt.currentRuntimeProfile().ApplyToShaderCreateInfo(key, stage, opts)
}

// OverrideGraphicsPipelineCreateInfo rewrites the dynamic shader info of
// every stage flagged in stageMask plus the pipeline-level create info.
func (opt *OptimizerSystem) OverrideGraphicsPipelineCreateInfo(key *metadata.PipelineOptimizerKey, stageMask vk.ShaderStageFlagBits, createInfo *metadata.GraphicsPipelineCreateInfo, shaderInfos *metadata.DynamicGraphicsShaderInfos) {
	hook := opt.matchHook()

	opt.appProfile.ApplyToGraphicsPipelineCreateInfo(key, stageMask, createInfo, shaderInfos, hook)
	opt.tuningProfile.ApplyToGraphicsPipelineCreateInfo(key, stageMask, createInfo, shaderInfos, hook)
	opt.currentRuntimeProfile().ApplyToGraphicsPipelineCreateInfo(key, stageMask, createInfo, shaderInfos, hook)
}

// OverrideComputePipelineCreateInfo is the compute analogue of the graphics
// path, targeting the dynamic compute shader info.
func (opt *OptimizerSystem) OverrideComputePipelineCreateInfo(key *metadata.PipelineOptimizerKey, info *metadata.DynamicComputeShaderInfo) {
	hook := opt.matchHook()

	opt.appProfile.ApplyToComputePipelineCreateInfo(key, info, hook)
	opt.tuningProfile.ApplyToComputePipelineCreateInfo(key, info, hook)
	opt.currentRuntimeProfile().ApplyToComputePipelineCreateInfo(key, info, hook)
}

func (opt *OptimizerSystem) Shutdown() error {
	if opt.watcher != nil {
		close(opt.done)
		if err := opt.watcher.Close(); err != nil {
			return err
		}
		opt.watcher = nil
	}
	return nil
}

func (opt *OptimizerSystem) currentRuntimeProfile() *profile.Profile {
	opt.runtimeMutex.RLock()
	defer opt.runtimeMutex.RUnlock()
	return opt.runtimeProfile
}

// matchHook returns the diagnostic callback, or nil when match printing is
// disabled so the apply paths stay branch-free.
func (opt *OptimizerSystem) matchHook() profile.MatchHook {
	if !opt.Config.Settings.PipelineProfileDbgPrintProfileMatch {
		return nil
	}
	return opt.logProfileEntryMatch
}

func (opt *OptimizerSystem) logProfileEntryMatch(kind profile.Kind, index int, key *metadata.PipelineOptimizerKey) {
	opt.printMutex.Lock()
	defer opt.printMutex.Unlock()

	core.LogInfo("[%s] %s pipeline profile entry %d triggered for pipeline:", opt.ID.String(), kind.String(), index)

	for stage := metadata.ShaderStage(0); stage < metadata.ShaderStageCount; stage++ {
		shader := &key.Shaders[stage]

		if shader.CodeSize != 0 {
			core.LogInfo("  %s: Hash: %016X %016X Size: %8d",
				stage.String(), shader.CodeHash.Upper, shader.CodeHash.Lower, shader.CodeSize)
		}
	}
}

func (opt *OptimizerSystem) dumpProfile(p *profile.Profile, path string) {
	if path == "" {
		return
	}

	file, err := os.Create(path)
	if err != nil {
		core.LogError("failed to dump pipeline profile to %s: %s", path, err.Error())
		return
	}
	defer file.Close()

	if err := p.Write(file); err != nil {
		core.LogError("failed to dump pipeline profile to %s: %s", path, err.Error())
	}
}
