package config

import (
	"os"
	"strconv"

	"github.com/pelletier/go-toml/v2"

	"github.com/spaghettifunk/prism/engine/core"
	"github.com/spaghettifunk/prism/engine/metadata"
)

// HashValue is one 64-bit half of a shader code hash. TOML integers are
// signed, so halves with the top bit set cannot be written as integer
// literals; the settings file carries them as strings ("0xdd6c...") instead.
type HashValue uint64

func (h *HashValue) UnmarshalText(text []byte) error {
	value, err := strconv.ParseUint(string(text), 0, 64)
	if err != nil {
		return err
	}
	*h = HashValue(value)
	return nil
}

// RuntimeSettings is the read-only bag of scalars that steers the optimizer.
// Values are consumed at engine initialization and never mutated afterwards.
type RuntimeSettings struct {
	// Shader parameter overrides synthesized into the tuning profile.
	OverrideShaderParams            bool                         `toml:"override_shader_params"`
	OverrideShaderHashLower         HashValue                    `toml:"override_shader_hash_lower"`
	OverrideShaderHashUpper         HashValue                    `toml:"override_shader_hash_upper"`
	OverrideShaderStage             uint32                       `toml:"override_shader_stage"`
	OverrideNumVGPRsAvailable       uint32                       `toml:"override_num_vgprs_available"`
	OverrideMaxLdsSpillDwords       uint32                       `toml:"override_max_lds_spill_dwords"`
	OverrideUserDataSpillThreshold  bool                         `toml:"override_user_data_spill_threshold"`
	OverrideAllowReZ                bool                         `toml:"override_allow_re_z"`
	OverrideEnableSelectiveInline   bool                         `toml:"override_enable_selective_inline"`
	OverrideDisableLoopUnrolls      bool                         `toml:"override_disable_loop_unrolls"`
	OverrideUseSiScheduler          bool                         `toml:"override_use_si_scheduler"`
	OverrideReconfigWorkgroupLayout bool                         `toml:"override_reconfig_workgroup_layout"`
	OverrideDisableLicm             bool                         `toml:"override_disable_licm"`
	OverrideEnableLoadScalarizer    bool                         `toml:"override_enable_load_scalarizer"`
	OverrideWaveSize                metadata.WaveSize            `toml:"override_wave_size"`
	OverrideWgpMode                 metadata.WgpMode             `toml:"override_wgp_mode"`
	OverrideUseNgg                  bool                         `toml:"override_use_ngg"`
	OverrideEnableSubvector         bool                         `toml:"override_enable_subvector"`
	OverrideWavesPerCu              uint32                       `toml:"override_waves_per_cu"`
	OverrideCsTgPerCu               uint32                       `toml:"override_cs_tg_per_cu"`
	OverrideUsePbbPerCrc            metadata.PipelineBinningMode `toml:"override_use_pbb_per_crc"`

	// Pipeline profile handling.
	PipelineProfileIgnoresAppProfile    bool   `toml:"pipeline_profile_ignores_app_profile"`
	PipelineProfileRuntimeFile          string `toml:"pipeline_profile_runtime_file"`
	PipelineProfileReloadOnChange       bool   `toml:"pipeline_profile_reload_on_change"`
	PipelineProfileDbgPrintProfileMatch bool   `toml:"pipeline_profile_dbg_print_profile_match"`
	PipelineProfileHaltOnParseFailure   bool   `toml:"pipeline_profile_halt_on_parse_failure"`
	EnablePipelineProfileDumping        bool   `toml:"enable_pipeline_profile_dumping"`
	PipelineProfileDumpFile             string `toml:"pipeline_profile_dump_file"`
}

// DefaultSettings returns settings with every override off. The zero value
// of each scalar is the "leave the compiler alone" value.
func DefaultSettings() *RuntimeSettings {
	return &RuntimeSettings{
		OverrideWaveSize:        metadata.WaveSizeAuto,
		OverrideWgpMode:         metadata.WgpModeAuto,
		OverrideUsePbbPerCrc:    metadata.PipelineBinningModeDefault,
		PipelineProfileDumpFile: "pipeline_profile_dump.yaml",
	}
}

// Load reads a TOML settings file over the defaults. A missing file is not
// an error; the defaults are returned as-is.
func Load(path string) (*RuntimeSettings, error) {
	settings := DefaultSettings()

	if path == "" {
		return settings, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			core.LogDebug("settings file %s not found, using defaults", path)
			return settings, nil
		}
		core.LogError(err.Error())
		return nil, err
	}

	if err := toml.Unmarshal(data, settings); err != nil {
		core.LogError("failed to parse settings file %s: %s", path, err.Error())
		return nil, err
	}

	return settings, nil
}
