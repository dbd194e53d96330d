package systems

import (
	"github.com/spaghettifunk/prism/engine/metadata"
	"github.com/spaghettifunk/prism/engine/profile"
)

// Fragment shaders in Dota 2 known to be safe for re-Z reordering on the
// Polaris family.
var dota2ReZFragmentHashes = []metadata.ShaderHash{
	{Lower: 0xdd6c573c46e6adf8, Upper: 0x751207727c904749},
	{Lower: 0x71093bf7c6e98da8, Upper: 0xfbc956d87a6d6631},
	{Lower: 0xedd89880de2091f9, Upper: 0x506d0ac3995d2f1b},
	{Lower: 0xbc583b30527e9f1d, Upper: 0x1ef8276d42a14220},
	{Lower: 0x012ddab000f80610, Upper: 0x3a65a6325756203d},
	{Lower: 0x78095b5acf62f4d5, Upper: 0x2c1afc1c6f669e33},
	{Lower: 0x22803b077988ec36, Upper: 0x7ba50586c34e1662},
	{Lower: 0x313dab8ff9408da0, Upper: 0xbb11905194a55485},
}

// buildAppProfile fills the application profile from the built-in tuning
// table for the recognized application and hardware revision. The ignore
// switch leaves it empty so the panel can rule out app-specific tuning.
func (opt *OptimizerSystem) buildAppProfile() {
	opt.appProfile = profile.New(profile.KindApplication)

	if opt.Config.Settings.PipelineProfileIgnoresAppProfile {
		return
	}

	switch opt.Config.AppProfile {
	case metadata.AppProfileDota2:
		opt.buildDota2Profile()
	default:
		// No built-in tuning for this application.
	}
}

func (opt *OptimizerSystem) buildDota2Profile() {
	revision := opt.Config.AsicRevision

	if revision >= metadata.AsicRevisionPolaris10 && revision <= metadata.AsicRevisionPolaris12 {
		for _, hash := range dota2ReZFragmentHashes {
			entry := opt.appProfile.Append()

			pattern := &entry.Pattern.Shaders[metadata.ShaderStageFragment]
			pattern.MatchStageActive = true
			pattern.MatchCodeHash = true
			pattern.CodeHash = hash

			entry.Action.Shaders[metadata.ShaderStageFragment].AllowReZ = true
		}
	}
}
