package metadata

/** @brief The shader stages available in a pipeline. */
type ShaderStage uint32

const (
	ShaderStageVertex ShaderStage = iota
	ShaderStageTessControl
	ShaderStageTessEvaluation
	ShaderStageGeometry
	ShaderStageFragment
	ShaderStageCompute
	/** @brief The number of shader stages. Not a valid stage. */
	ShaderStageCount
)

// Short mnemonic used in diagnostic output (VS/HS/DS/GS/PS/CS).
func (s ShaderStage) String() string {
	switch s {
	case ShaderStageVertex:
		return "VS"
	case ShaderStageTessControl:
		return "HS"
	case ShaderStageTessEvaluation:
		return "DS"
	case ShaderStageGeometry:
		return "GS"
	case ShaderStageFragment:
		return "PS"
	case ShaderStageCompute:
		return "CS"
	}
	return "???"
}

/** @brief 128-bit content hash of a compiled shader binary, split in two 64-bit halves. */
type ShaderHash struct {
	Lower uint64
	Upper uint64
}

func (h ShaderHash) IsZero() bool {
	return h.Lower == 0 && h.Upper == 0
}

func (h ShaderHash) Equal(other ShaderHash) bool {
	return h.Lower == other.Lower && h.Upper == other.Upper
}

/**
 * @brief Identity of one shader inside a pipeline about to be compiled.
 * A CodeSize of zero means the stage is not present in the pipeline.
 */
type ShaderOptimizerKey struct {
	CodeHash ShaderHash
	CodeSize uint64
}

/** @brief The subject being matched: one shader identity per stage. */
type PipelineOptimizerKey struct {
	Shaders [ShaderStageCount]ShaderOptimizerKey
}

/** @brief Wavefront size selection for a shader. */
type WaveSize uint32

const (
	WaveSizeAuto WaveSize = 0
	WaveSize32   WaveSize = 32
	WaveSize64   WaveSize = 64
)

/** @brief Workgroup-processor execution mode. */
type WgpMode uint32

const (
	WgpModeAuto WgpMode = iota
	WgpModeCu
	WgpModeWgp
)
