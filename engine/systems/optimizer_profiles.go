package systems

import (
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"

	"github.com/spaghettifunk/prism/engine/core"
	"github.com/spaghettifunk/prism/engine/metadata"
	"github.com/spaghettifunk/prism/engine/profile"
)

// buildTuningProfile synthesizes at most one entry from the override
// scalars in the runtime settings. With the governing switch off the
// profile stays empty and no other scalar is consulted.
func (opt *OptimizerSystem) buildTuningProfile() {
	opt.tuningProfile = profile.New(profile.KindTuning)
	settings := opt.Config.Settings

	if !settings.OverrideShaderParams {
		return
	}

	// Only a single entry is currently supported.
	entry := opt.tuningProfile.Append()

	matchHash := settings.OverrideShaderHashLower != 0 || settings.OverrideShaderHashUpper != 0
	if !matchHash {
		entry.Pattern.Always = true
	}

	stage := metadata.ShaderStage(settings.OverrideShaderStage)
	if stage >= metadata.ShaderStageCount {
		core.LogFatal("buildTuningProfile - override shader stage %d out of range", settings.OverrideShaderStage)
	}

	pattern := &entry.Pattern.Shaders[stage]
	action := &entry.Action.Shaders[stage]

	pattern.MatchCodeHash = matchHash
	pattern.CodeHash = metadata.ShaderHash{
		Lower: uint64(settings.OverrideShaderHashLower),
		Upper: uint64(settings.OverrideShaderHashUpper),
	}

	if settings.OverrideNumVGPRsAvailable != 0 {
		action.VgprLimit.Assign(settings.OverrideNumVGPRsAvailable)
	}

	if settings.OverrideMaxLdsSpillDwords != 0 {
		action.LdsSpillLimitDwords.Assign(settings.OverrideMaxLdsSpillDwords)
	}

	if settings.OverrideUserDataSpillThreshold {
		action.UserDataSpillThreshold.Assign(0)
	}

	action.AllowReZ = settings.OverrideAllowReZ
	action.EnableSelectiveInline = settings.OverrideEnableSelectiveInline
	action.DisableLoopUnroll = settings.OverrideDisableLoopUnrolls

	if settings.OverrideUseSiScheduler {
		action.UseSiScheduler = true
	}

	if settings.OverrideReconfigWorkgroupLayout {
		action.ReconfigWorkgroupLayout = true
	}

	if settings.OverrideDisableLicm {
		action.DisableLicm = true
	}

	if settings.OverrideEnableLoadScalarizer {
		action.EnableLoadScalarizer = true
	}

	switch settings.OverrideWaveSize {
	case metadata.WaveSizeAuto:
	case metadata.WaveSize64:
		action.WaveSize.Assign(metadata.WaveSize64)
	case metadata.WaveSize32:
		action.WaveSize.Assign(metadata.WaveSize32)
	default:
		core.LogFatal("buildTuningProfile - invalid wave size override %d", settings.OverrideWaveSize)
	}

	switch settings.OverrideWgpMode {
	case metadata.WgpModeAuto:
	case metadata.WgpModeCu:
	case metadata.WgpModeWgp:
		action.WgpMode = true
	default:
		core.LogFatal("buildTuningProfile - invalid WGP mode override %d", settings.OverrideWgpMode)
	}

	action.NggDisable = settings.OverrideUseNgg
	action.EnableSubvector = settings.OverrideEnableSubvector

	if settings.OverrideWavesPerCu != 0 {
		action.MaxWavesPerCu.Assign(settings.OverrideWavesPerCu)
	}

	// Thread-group throttling only makes sense for compute work.
	if settings.OverrideCsTgPerCu != 0 && stage == metadata.ShaderStageCompute {
		action.MaxThreadGroupsPerCu.Assign(settings.OverrideCsTgPerCu)
	}

	switch settings.OverrideUsePbbPerCrc {
	case metadata.PipelineBinningModeDefault:
	case metadata.PipelineBinningModeEnable:
		entry.Action.CreateInfo.BinningOverride.Assign(metadata.BinningOverrideEnable)
	case metadata.PipelineBinningModeDisable:
		entry.Action.CreateInfo.BinningOverride.Assign(metadata.BinningOverrideDisable)
	default:
		core.LogFatal("buildTuningProfile - invalid binning mode override %d", settings.OverrideUsePbbPerCrc)
	}
}

// buildRuntimeProfile deserializes the externally supplied rule file. A
// missing path or empty file leaves the profile at zero entries without any
// diagnostic; a malformed document is reported and the profile stays empty.
func (opt *OptimizerSystem) buildRuntimeProfile() *profile.Profile {
	p := profile.New(profile.KindRuntime)
	settings := opt.Config.Settings

	if settings.PipelineProfileRuntimeFile == "" {
		return p
	}

	data, err := os.ReadFile(settings.PipelineProfileRuntimeFile)
	if err != nil {
		core.LogDebug("runtime pipeline profile %s not readable: %s", settings.PipelineProfileRuntimeFile, err.Error())
		return p
	}

	if len(data) == 0 {
		return p
	}

	if err := profile.UnmarshalProfile(data, p); err != nil {
		opt.runtimeParseError(err)
	}

	return p
}

// runtimeParseError reports a malformed rule file. The halt switch turns it
// into a fatal signal for triage builds; otherwise pipeline creation simply
// proceeds with fewer overrides.
func (opt *OptimizerSystem) runtimeParseError(err error) {
	if opt.Config.Settings.PipelineProfileHaltOnParseFailure {
		core.LogFatal("failed to parse runtime pipeline profile: %s", err.Error())
	}
	core.LogError("failed to parse runtime pipeline profile: %s", err.Error())
}

func (opt *OptimizerSystem) watchRuntimeProfile() error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}

	// Watch the directory; editors replace files rather than write in place.
	if err := watcher.Add(filepath.Dir(opt.Config.Settings.PipelineProfileRuntimeFile)); err != nil {
		watcher.Close()
		return err
	}

	opt.watcher = watcher
	go opt.start()

	return nil
}

func (opt *OptimizerSystem) start() {
	target := filepath.Clean(opt.Config.Settings.PipelineProfileRuntimeFile)

	for {
		select {

		case e, ok := <-opt.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(e.Name) != target {
				continue
			}
			if e.Op&(fsnotify.Create|fsnotify.Write) != 0 {
				rebuilt := opt.buildRuntimeProfile()

				opt.runtimeMutex.Lock()
				opt.runtimeProfile = rebuilt
				opt.runtimeMutex.Unlock()

				core.LogDebug("runtime pipeline profile reloaded with %d entries", rebuilt.EntryCount())
			}

		case e, ok := <-opt.watcher.Errors:
			if !ok {
				return
			}
			core.LogError(e.Error())

		case <-opt.done:
			return
		}
	}
}
