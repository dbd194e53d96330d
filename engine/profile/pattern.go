package profile

import (
	"github.com/spaghettifunk/prism/engine/metadata"
)

/**
 * @brief Predicate over one shader's identity. Each test is independently
 * enabled; a pattern with no enabled test ignores its stage entirely.
 */
type ShaderPattern struct {
	// Requires the stage's code hash to equal CodeHash in both halves.
	MatchCodeHash bool
	// Requires the stage to be present in the pipeline (code size > 0).
	MatchStageActive bool
	// Requires the stage to be absent from the pipeline (code size == 0).
	MatchStageInactive bool

	CodeHash metadata.ShaderHash
	// When nonzero, requires the stage's code size to exceed this threshold.
	CodeSizeLessThan uint64
}

// Enabled reports whether any test of this stage pattern is armed.
func (p *ShaderPattern) Enabled() bool {
	return p.MatchCodeHash || p.MatchStageActive || p.MatchStageInactive || p.CodeSizeLessThan != 0
}

/**
 * @brief Predicate over a whole pipeline. When Always is set the per-stage
 * tests are not evaluated at all.
 */
type PipelinePattern struct {
	Always  bool
	Shaders [metadata.ShaderStageCount]ShaderPattern
}

// Matches evaluates the pattern against a pipeline key. Enabled tests are a
// conjunction within a stage and across stages. A pattern with Always unset
// and no enabled test anywhere matches every key; the single-entry tuning
// profile relies on that when no hash is configured.
func (p *PipelinePattern) Matches(key *metadata.PipelineOptimizerKey) bool {
	if p.Always {
		return true
	}

	for stage := metadata.ShaderStage(0); stage < metadata.ShaderStageCount; stage++ {
		shaderPattern := &p.Shaders[stage]

		if !shaderPattern.Enabled() {
			continue
		}

		shaderKey := &key.Shaders[stage]

		if shaderPattern.MatchStageActive && shaderKey.CodeSize == 0 {
			return false
		}

		if shaderPattern.MatchStageInactive && shaderKey.CodeSize != 0 {
			return false
		}

		if shaderPattern.MatchCodeHash && !shaderPattern.CodeHash.Equal(shaderKey.CodeHash) {
			return false
		}

		// Code size test: the key's size has to exceed the threshold.
		if shaderPattern.CodeSizeLessThan != 0 && shaderPattern.CodeSizeLessThan >= shaderKey.CodeSize {
			return false
		}
	}

	return true
}
