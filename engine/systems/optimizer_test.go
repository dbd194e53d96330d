package systems

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	vk "github.com/goki/vulkan"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spaghettifunk/prism/engine/config"
	"github.com/spaghettifunk/prism/engine/metadata"
	"github.com/spaghettifunk/prism/engine/profile"
)

func newTestOptimizer(t *testing.T, settings *config.RuntimeSettings) *OptimizerSystem {
	t.Helper()

	opt, err := NewOptimizerSystem(&OptimizerSystemConfig{
		Settings:     settings,
		AppProfile:   metadata.AppProfileDefault,
		GfxLevel:     metadata.GfxIpLevel8,
		AsicRevision: metadata.AsicRevisionPolaris10,
	})
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, opt.Shutdown())
	})
	return opt
}

func TestNewOptimizerSystemNilConfig(t *testing.T) {
	_, err := NewOptimizerSystem(nil)
	assert.Error(t, err)
}

func TestTuningProfileSwitchOff(t *testing.T) {
	settings := config.DefaultSettings()
	settings.OverrideShaderParams = false
	// Scalars that would otherwise arm overrides.
	settings.OverrideNumVGPRsAvailable = 64
	settings.OverrideAllowReZ = true

	opt := newTestOptimizer(t, settings)

	assert.Equal(t, 0, opt.tuningProfile.EntryCount())
}

func TestTuningProfileAlwaysWithoutHash(t *testing.T) {
	settings := config.DefaultSettings()
	settings.OverrideShaderParams = true
	settings.OverrideNumVGPRsAvailable = 64

	opt := newTestOptimizer(t, settings)

	require.Equal(t, 1, opt.tuningProfile.EntryCount())
	entry := &opt.tuningProfile.Entries[0]
	assert.True(t, entry.Pattern.Always)

	vgpr, ok := entry.Action.Shaders[metadata.ShaderStageVertex].VgprLimit.Get()
	require.True(t, ok)
	assert.Equal(t, uint32(64), vgpr)
}

func TestTuningProfileHashPattern(t *testing.T) {
	settings := config.DefaultSettings()
	settings.OverrideShaderParams = true
	settings.OverrideShaderStage = uint32(metadata.ShaderStageFragment)
	settings.OverrideShaderHashLower = 0x1234
	settings.OverrideShaderHashUpper = 0x5678
	settings.OverrideWaveSize = metadata.WaveSize32
	settings.OverrideWgpMode = metadata.WgpModeWgp

	opt := newTestOptimizer(t, settings)

	require.Equal(t, 1, opt.tuningProfile.EntryCount())
	entry := &opt.tuningProfile.Entries[0]
	assert.False(t, entry.Pattern.Always)

	pattern := &entry.Pattern.Shaders[metadata.ShaderStageFragment]
	assert.True(t, pattern.MatchCodeHash)
	assert.Equal(t, metadata.ShaderHash{Lower: 0x1234, Upper: 0x5678}, pattern.CodeHash)

	action := &entry.Action.Shaders[metadata.ShaderStageFragment]
	waveSize, ok := action.WaveSize.Get()
	require.True(t, ok)
	assert.Equal(t, metadata.WaveSize32, waveSize)
	assert.True(t, action.WgpMode)
}

func TestTuningProfileDefaultScalarsStayUnarmed(t *testing.T) {
	settings := config.DefaultSettings()
	settings.OverrideShaderParams = true

	opt := newTestOptimizer(t, settings)

	require.Equal(t, 1, opt.tuningProfile.EntryCount())
	action := &opt.tuningProfile.Entries[0].Action.Shaders[metadata.ShaderStageVertex]

	assert.False(t, action.VgprLimit.Present())
	assert.False(t, action.WaveSize.Present())
	assert.False(t, action.MaxWavesPerCu.Present())
	assert.False(t, action.AllowReZ)
	assert.False(t, opt.tuningProfile.Entries[0].Action.CreateInfo.BinningOverride.Present())
}

func TestTuningProfileThreadGroupLimitIsComputeOnly(t *testing.T) {
	settings := config.DefaultSettings()
	settings.OverrideShaderParams = true
	settings.OverrideCsTgPerCu = 4
	settings.OverrideShaderStage = uint32(metadata.ShaderStageVertex)

	opt := newTestOptimizer(t, settings)
	action := &opt.tuningProfile.Entries[0].Action.Shaders[metadata.ShaderStageVertex]
	assert.False(t, action.MaxThreadGroupsPerCu.Present())

	settings = config.DefaultSettings()
	settings.OverrideShaderParams = true
	settings.OverrideCsTgPerCu = 4
	settings.OverrideShaderStage = uint32(metadata.ShaderStageCompute)

	opt = newTestOptimizer(t, settings)
	action = &opt.tuningProfile.Entries[0].Action.Shaders[metadata.ShaderStageCompute]

	tgPerCu, ok := action.MaxThreadGroupsPerCu.Get()
	require.True(t, ok)
	assert.Equal(t, uint32(4), tgPerCu)
}

func TestTuningProfileBinningOverride(t *testing.T) {
	settings := config.DefaultSettings()
	settings.OverrideShaderParams = true
	settings.OverrideUsePbbPerCrc = metadata.PipelineBinningModeEnable

	opt := newTestOptimizer(t, settings)

	binning, ok := opt.tuningProfile.Entries[0].Action.CreateInfo.BinningOverride.Get()
	require.True(t, ok)
	assert.Equal(t, metadata.BinningOverrideEnable, binning)
}

func TestAppProfileDota2OnPolaris(t *testing.T) {
	opt, err := NewOptimizerSystem(&OptimizerSystemConfig{
		AppProfile:   metadata.AppProfileDota2,
		GfxLevel:     metadata.GfxIpLevel8,
		AsicRevision: metadata.AsicRevisionPolaris11,
	})
	require.NoError(t, err)
	defer opt.Shutdown()

	require.Equal(t, len(dota2ReZFragmentHashes), opt.appProfile.EntryCount())

	// The fragment stage of a pipeline carrying a known hash gets exactly
	// the re-Z toggle and nothing else.
	key := &metadata.PipelineOptimizerKey{}
	key.Shaders[metadata.ShaderStageFragment] = metadata.ShaderOptimizerKey{
		CodeHash: dota2ReZFragmentHashes[3],
		CodeSize: 8192,
	}

	options := metadata.ShaderOptions{}
	opt.OverrideShaderCreateInfo(key, metadata.ShaderStageFragment, metadata.PipelineShaderOptions{
		Options: &options,
	})

	assert.Equal(t, metadata.ShaderOptions{AllowReZ: true}, options)
}

func TestAppProfileWrongRevision(t *testing.T) {
	opt, err := NewOptimizerSystem(&OptimizerSystemConfig{
		AppProfile:   metadata.AppProfileDota2,
		GfxLevel:     metadata.GfxIpLevel9,
		AsicRevision: metadata.AsicRevisionVega10,
	})
	require.NoError(t, err)
	defer opt.Shutdown()

	assert.Equal(t, 0, opt.appProfile.EntryCount())
}

func TestAppProfileIgnoreSwitch(t *testing.T) {
	settings := config.DefaultSettings()
	settings.PipelineProfileIgnoresAppProfile = true

	opt, err := NewOptimizerSystem(&OptimizerSystemConfig{
		Settings:     settings,
		AppProfile:   metadata.AppProfileDota2,
		GfxLevel:     metadata.GfxIpLevel8,
		AsicRevision: metadata.AsicRevisionPolaris10,
	})
	require.NoError(t, err)
	defer opt.Shutdown()

	assert.Equal(t, 0, opt.appProfile.EntryCount())
}

func TestRuntimeProfileEmptyPath(t *testing.T) {
	opt := newTestOptimizer(t, config.DefaultSettings())

	assert.Equal(t, 0, opt.currentRuntimeProfile().EntryCount())
}

func TestRuntimeProfileFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "profile.yaml")
	doc := "entries:\n  - pattern:\n      always: true\n    action:\n      shaders:\n        vs:\n          vgprLimit: 32\n"
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o644))

	settings := config.DefaultSettings()
	settings.PipelineProfileRuntimeFile = path

	opt := newTestOptimizer(t, settings)

	require.Equal(t, 1, opt.currentRuntimeProfile().EntryCount())
}

func TestRuntimeProfileMalformedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "profile.yaml")
	require.NoError(t, os.WriteFile(path, []byte("entries: {{{"), 0o644))

	settings := config.DefaultSettings()
	settings.PipelineProfileRuntimeFile = path

	opt := newTestOptimizer(t, settings)

	assert.Equal(t, 0, opt.currentRuntimeProfile().EntryCount())
}

func TestRuntimeProfileOverridesTuningProfile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "profile.yaml")
	doc := "entries:\n  - pattern:\n      always: true\n    action:\n      shaders:\n        vs:\n          vgprLimit: 32\n"
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o644))

	settings := config.DefaultSettings()
	settings.OverrideShaderParams = true
	settings.OverrideNumVGPRsAvailable = 64
	settings.PipelineProfileRuntimeFile = path

	opt := newTestOptimizer(t, settings)

	options := metadata.ShaderOptions{}
	opt.OverrideShaderCreateInfo(&metadata.PipelineOptimizerKey{}, metadata.ShaderStageVertex, metadata.PipelineShaderOptions{
		Options: &options,
	})

	// The runtime profile applies last and wins the conflict.
	assert.Equal(t, uint32(32), options.VgprLimit)
}

func TestOverrideGraphicsPipelineCreateInfo(t *testing.T) {
	settings := config.DefaultSettings()
	settings.OverrideShaderParams = true
	settings.OverrideWavesPerCu = 8

	opt := newTestOptimizer(t, settings)

	createInfo := metadata.GraphicsPipelineCreateInfo{}
	shaderInfos := metadata.DynamicGraphicsShaderInfos{}

	opt.OverrideGraphicsPipelineCreateInfo(&metadata.PipelineOptimizerKey{},
		vk.ShaderStageVertexBit, &createInfo, &shaderInfos)

	assert.Equal(t, uint32(8), shaderInfos.VS.MaxWavesPerCu)
	assert.Equal(t, uint32(0), shaderInfos.PS.MaxWavesPerCu)
}

func TestOverrideComputePipelineCreateInfo(t *testing.T) {
	settings := config.DefaultSettings()
	settings.OverrideShaderParams = true
	settings.OverrideShaderStage = uint32(metadata.ShaderStageCompute)
	settings.OverrideWavesPerCu = 10
	settings.OverrideCsTgPerCu = 2

	opt := newTestOptimizer(t, settings)

	info := metadata.DynamicComputeShaderInfo{}
	opt.OverrideComputePipelineCreateInfo(&metadata.PipelineOptimizerKey{}, &info)

	assert.Equal(t, uint32(10), info.MaxWavesPerCu)
	assert.Equal(t, uint32(2), info.MaxThreadGroupsPerCu)
}

func TestProfileDumping(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dump.yaml")

	settings := config.DefaultSettings()
	settings.OverrideShaderParams = true
	settings.OverrideNumVGPRsAvailable = 48
	settings.EnablePipelineProfileDumping = true
	settings.PipelineProfileDumpFile = path

	newTestOptimizer(t, settings)

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	dumped := profile.New(profile.KindTuning)
	require.NoError(t, profile.UnmarshalProfile(data, dumped))
	require.Equal(t, 1, dumped.EntryCount())

	vgpr, ok := dumped.Entries[0].Action.Shaders[metadata.ShaderStageVertex].VgprLimit.Get()
	require.True(t, ok)
	assert.Equal(t, uint32(48), vgpr)
}

func TestRuntimeProfileReloadOnChange(t *testing.T) {
	path := filepath.Join(t.TempDir(), "profile.yaml")
	require.NoError(t, os.WriteFile(path, []byte(""), 0o644))

	settings := config.DefaultSettings()
	settings.PipelineProfileRuntimeFile = path
	settings.PipelineProfileReloadOnChange = true

	opt := newTestOptimizer(t, settings)
	require.Equal(t, 0, opt.currentRuntimeProfile().EntryCount())

	doc := "entries:\n  - pattern:\n      always: true\n    action:\n      shaders:\n        vs:\n          vgprLimit: 32\n"
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o644))

	require.Eventually(t, func() bool {
		return opt.currentRuntimeProfile().EntryCount() == 1
	}, 5*time.Second, 10*time.Millisecond)
}

func TestWatcherLifecycle(t *testing.T) {
	path := filepath.Join(t.TempDir(), "profile.yaml")
	require.NoError(t, os.WriteFile(path, []byte(""), 0o644))

	settings := config.DefaultSettings()
	settings.PipelineProfileRuntimeFile = path
	settings.PipelineProfileReloadOnChange = true

	opt, err := NewOptimizerSystem(&OptimizerSystemConfig{Settings: settings})
	require.NoError(t, err)

	assert.NotNil(t, opt.watcher)
	require.NoError(t, opt.Shutdown())
	// Shutdown is idempotent once the watcher is released.
	require.NoError(t, opt.Shutdown())
}
