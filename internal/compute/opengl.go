//go:build gl

package compute

import (
	"fmt"
	"strings"

	"github.com/go-gl/gl/v4.3-core/gl"
)

var uniformNames = []string{
	"width", "maxHeight", "stepIndex", "rain", "rainFrequency",
	"kC", "kD", "kS", "kE", "kT", "cT", "hydraulic", "thermal", "finalize",
}

// GLDevice runs the kernels as OpenGL compute shaders. It needs a
// current OpenGL 4.3 context on the calling thread for its whole life.
type GLDevice struct {
	programs [stageCount]uint32
	uniforms [stageCount]map[string]int32
	ssbo     [bufferCount]uint32
	width    int
	size     int
}

// NewGLDevice loads the GL entry points of the current context and
// builds the three kernel programs.
func NewGLDevice() (Device, error) {
	if err := gl.Init(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	d := &GLDevice{}
	for s := Stage(0); s < stageCount; s++ {
		program, err := createComputeProgram(ShaderSource(s))
		if err != nil {
			d.Release()
			return nil, fmt.Errorf("%s kernel: %w", s, err)
		}
		d.programs[s] = program
		d.uniforms[s] = make(map[string]int32)
		for _, name := range uniformNames {
			if loc := gl.GetUniformLocation(program, gl.Str(name+"\x00")); loc >= 0 {
				d.uniforms[s][name] = loc
			}
		}
	}

	var maxWorkGroupCount [3]int32
	gl.GetIntegeri_v(gl.MAX_COMPUTE_WORK_GROUP_COUNT, 0, &maxWorkGroupCount[0])
	logger().Info("opengl compute initialized",
		"renderer", gl.GoStr(gl.GetString(gl.RENDERER)),
		"max_work_groups", maxWorkGroupCount[0])
	return d, nil
}

func (d *GLDevice) Name() string { return "opengl" }

func (d *GLDevice) Allocate(width int) error {
	d.releaseBuffers()
	d.width = width
	d.size = width * width
	bytes := d.size * 4

	gl.GenBuffers(int32(bufferCount), &d.ssbo[0])
	for b := Buffer(0); b < bufferCount; b++ {
		gl.BindBuffer(gl.SHADER_STORAGE_BUFFER, d.ssbo[b])
		gl.BufferData(gl.SHADER_STORAGE_BUFFER, bytes, nil, gl.DYNAMIC_COPY)
		gl.BindBufferBase(gl.SHADER_STORAGE_BUFFER, uint32(b), d.ssbo[b])
	}
	gl.BindBuffer(gl.SHADER_STORAGE_BUFFER, 0)
	logger().Debug("ssbos allocated", "width", width, "bytes_each", bytes)
	return checkError("allocate")
}

func (d *GLDevice) Upload(b Buffer, data []float32) error {
	if d.ssbo[b] == 0 {
		return ErrNotAllocated
	}
	if len(data) != d.size {
		return fmt.Errorf("%w: upload %d cells into %d", ErrBufferSize, len(data), d.size)
	}
	gl.BindBuffer(gl.SHADER_STORAGE_BUFFER, d.ssbo[b])
	gl.BufferSubData(gl.SHADER_STORAGE_BUFFER, 0, d.size*4, gl.Ptr(data))
	gl.BindBuffer(gl.SHADER_STORAGE_BUFFER, 0)
	return checkError("upload")
}

func (d *GLDevice) Download(b Buffer, dst []float32) error {
	if d.ssbo[b] == 0 {
		return ErrNotAllocated
	}
	if len(dst) != d.size {
		return fmt.Errorf("%w: download %d cells into %d", ErrBufferSize, d.size, len(dst))
	}
	gl.BindBuffer(gl.SHADER_STORAGE_BUFFER, d.ssbo[b])
	gl.GetBufferSubData(gl.SHADER_STORAGE_BUFFER, 0, d.size*4, gl.Ptr(dst))
	gl.BindBuffer(gl.SHADER_STORAGE_BUFFER, 0)
	return checkError("download")
}

func (d *GLDevice) Dispatch(s Stage, u Uniforms) error {
	if d.ssbo[HeightIn] == 0 {
		return ErrNotAllocated
	}
	if s < 0 || s >= stageCount {
		return fmt.Errorf("compute: unknown stage %v", s)
	}

	gl.UseProgram(d.programs[s])
	locs := d.uniforms[s]
	setInt := func(name string, v int32) {
		if loc, ok := locs[name]; ok {
			gl.Uniform1i(loc, v)
		}
	}
	setFloat := func(name string, v float32) {
		if loc, ok := locs[name]; ok {
			gl.Uniform1f(loc, v)
		}
	}
	setInt("width", u.Width)
	setFloat("maxHeight", u.MaxHeight)
	setInt("stepIndex", u.Step)
	setFloat("rain", u.Rain)
	setInt("rainFrequency", u.RainFrequency)
	setFloat("kC", u.KC)
	setFloat("kD", u.KD)
	setFloat("kS", u.KS)
	setFloat("kE", u.KE)
	setFloat("kT", u.KT)
	setFloat("cT", u.CT)
	setInt("hydraulic", boolInt(u.Hydraulic))
	setInt("thermal", boolInt(u.Thermal))
	setInt("finalize", boolInt(u.Finalize))

	groups := uint32((d.width + WorkgroupSize - 1) / WorkgroupSize)
	gl.DispatchCompute(groups, groups, 1)
	return checkError(s.String())
}

func (d *GLDevice) Barrier() {
	gl.MemoryBarrier(gl.SHADER_STORAGE_BARRIER_BIT)
}

func (d *GLDevice) Release() {
	d.releaseBuffers()
	for s := range d.programs {
		if d.programs[s] != 0 {
			gl.DeleteProgram(d.programs[s])
			d.programs[s] = 0
		}
	}
	gl.UseProgram(0)
}

func (d *GLDevice) releaseBuffers() {
	if d.ssbo[0] != 0 {
		gl.DeleteBuffers(int32(bufferCount), &d.ssbo[0])
	}
	d.ssbo = [bufferCount]uint32{}
	d.size, d.width = 0, 0
}

func boolInt(b bool) int32 {
	if b {
		return 1
	}
	return 0
}

func checkError(op string) error {
	if code := gl.GetError(); code != gl.NO_ERROR {
		return fmt.Errorf("%w: %s: gl error 0x%x", ErrDeviceLost, op, code)
	}
	return nil
}

func createComputeProgram(source string) (uint32, error) {
	shader := gl.CreateShader(gl.COMPUTE_SHADER)
	csources, free := gl.Strs(source + "\x00")
	gl.ShaderSource(shader, 1, csources, nil)
	free()
	gl.CompileShader(shader)

	var status int32
	gl.GetShaderiv(shader, gl.COMPILE_STATUS, &status)
	if status == gl.FALSE {
		var logLength int32
		gl.GetShaderiv(shader, gl.INFO_LOG_LENGTH, &logLength)
		log := strings.Repeat("\x00", int(logLength+1))
		gl.GetShaderInfoLog(shader, logLength, nil, gl.Str(log))
		gl.DeleteShader(shader)
		return 0, fmt.Errorf("%w: %v", ErrShaderCompile, strings.TrimRight(log, "\x00"))
	}

	program := gl.CreateProgram()
	gl.AttachShader(program, shader)
	gl.LinkProgram(program)
	gl.DeleteShader(shader)

	gl.GetProgramiv(program, gl.LINK_STATUS, &status)
	if status == gl.FALSE {
		var logLength int32
		gl.GetProgramiv(program, gl.INFO_LOG_LENGTH, &logLength)
		log := strings.Repeat("\x00", int(logLength+1))
		gl.GetProgramInfoLog(program, logLength, nil, gl.Str(log))
		gl.DeleteProgram(program)
		return 0, fmt.Errorf("%w: %v", ErrShaderLink, strings.TrimRight(log, "\x00"))
	}
	return program, nil
}
