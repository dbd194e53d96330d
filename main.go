/*
This is an example application that exercises the optimizer
package the way a pipeline-creation path would
*/
package main

import (
	"flag"
	"os"
	"os/signal"
	"syscall"

	vk "github.com/goki/vulkan"

	"github.com/spaghettifunk/prism/engine/config"
	"github.com/spaghettifunk/prism/engine/core"
	"github.com/spaghettifunk/prism/engine/metadata"
	"github.com/spaghettifunk/prism/engine/systems"
)

func main() {
	settingsPath := flag.String("settings", "settings.toml", "path to the runtime settings file")
	flag.Parse()

	settings, err := config.Load(*settingsPath)
	if err != nil {
		panic(err)
	}

	optimizer, err := systems.NewOptimizerSystem(&systems.OptimizerSystemConfig{
		Settings:     settings,
		AppProfile:   metadata.AppProfileDota2,
		GfxLevel:     metadata.GfxIpLevel8,
		AsicRevision: metadata.AsicRevisionPolaris10,
	})
	if err != nil {
		panic(err)
	}

	// A pipeline with a vertex and a fragment stage, the fragment binary
	// being one of the known Dota 2 shaders.
	key := &metadata.PipelineOptimizerKey{}
	key.Shaders[metadata.ShaderStageVertex] = metadata.ShaderOptimizerKey{
		CodeHash: metadata.ShaderHash{Lower: 0x1111, Upper: 0x2222},
		CodeSize: 1024,
	}
	key.Shaders[metadata.ShaderStageFragment] = metadata.ShaderOptimizerKey{
		CodeHash: metadata.ShaderHash{Lower: 0xdd6c573c46e6adf8, Upper: 0x751207727c904749},
		CodeSize: 4096,
	}

	options := metadata.ShaderOptions{}
	pipelineOptions := metadata.PipelineOptions{}
	nggState := metadata.NggState{EnableNgg: true}

	optimizer.OverrideShaderCreateInfo(key, metadata.ShaderStageFragment, metadata.PipelineShaderOptions{
		Options:         &options,
		PipelineOptions: &pipelineOptions,
		NggState:        &nggState,
	})

	createInfo := metadata.GraphicsPipelineCreateInfo{}
	shaderInfos := metadata.DynamicGraphicsShaderInfos{}

	optimizer.OverrideGraphicsPipelineCreateInfo(key,
		vk.ShaderStageVertexBit|vk.ShaderStageFragmentBit, &createInfo, &shaderInfos)

	core.LogInfo("fragment options after overrides: %+v", options)
	core.LogInfo("create info after overrides: %+v", createInfo)

	if settings.PipelineProfileReloadOnChange {
		// Keep running so the profile watcher can be observed.
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT, syscall.SIGQUIT)
		<-sigCh
	}

	if err := optimizer.Shutdown(); err != nil {
		panic(err)
	}
}
