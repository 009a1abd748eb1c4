package compute

import _ "embed"

//go:embed shaders/common.glsl
var shaderCommon string

//go:embed shaders/update.comp
var shaderUpdate string

//go:embed shaders/delta_h.comp
var shaderDeltaH string

//go:embed shaders/erode.comp
var shaderErode string

// ShaderSource returns the complete GLSL source of the kernel for s.
func ShaderSource(s Stage) string {
	switch s {
	case StageUpdate:
		return shaderCommon + shaderUpdate
	case StageDeltaH:
		return shaderCommon + shaderDeltaH
	case StageErode:
		return shaderCommon + shaderErode
	default:
		return ""
	}
}
