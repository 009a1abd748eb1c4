package compute

import (
	"errors"
	"math"
	"strings"
	"testing"
)

func newDevice(t *testing.T, width int, height, water []float32) *ReferenceDevice {
	t.Helper()
	d := NewReferenceDevice()
	if err := d.Allocate(width); err != nil {
		t.Fatalf("allocate: %v", err)
	}
	zero := make([]float32, width*width)
	uploads := map[Buffer][]float32{
		HeightIn: height, HeightOut: height,
		WaterIn: water, WaterOut: water,
		SedimentIn: zero, SedimentOut: zero,
	}
	for b, data := range uploads {
		if err := d.Upload(b, data); err != nil {
			t.Fatalf("upload %d: %v", b, err)
		}
	}
	return d
}

func filled(n int, v float32) []float32 {
	s := make([]float32, n)
	for i := range s {
		s[i] = v
	}
	return s
}

func TestStageString(t *testing.T) {
	tests := []struct {
		stage Stage
		want  string
	}{
		{StageUpdate, "update"},
		{StageDeltaH, "delta_h"},
		{StageErode, "erode"},
		{Stage(7), "Unknown(7)"},
	}
	for _, tt := range tests {
		if got := tt.stage.String(); got != tt.want {
			t.Errorf("Stage(%d).String() = %q, want %q", int(tt.stage), got, tt.want)
		}
	}
}

func TestShaderSourcesEmbedded(t *testing.T) {
	for s := Stage(0); s < stageCount; s++ {
		src := ShaderSource(s)
		if !strings.HasPrefix(src, "#version 430") {
			t.Errorf("%s: missing version header", s)
		}
		if !strings.Contains(src, "void main()") {
			t.Errorf("%s: missing entry point", s)
		}
	}
	if ShaderSource(stageCount) != "" {
		t.Error("expected empty source for unknown stage")
	}
}

func TestReferenceDeviceErrors(t *testing.T) {
	d := NewReferenceDevice()
	if err := d.Upload(HeightIn, nil); !errors.Is(err, ErrNotAllocated) {
		t.Errorf("upload before allocate: got %v", err)
	}
	if err := d.Dispatch(StageUpdate, Uniforms{Width: 4}); !errors.Is(err, ErrNotAllocated) {
		t.Errorf("dispatch before allocate: got %v", err)
	}

	_ = d.Allocate(4)
	if err := d.Upload(WaterIn, make([]float32, 3)); !errors.Is(err, ErrBufferSize) {
		t.Errorf("short upload: got %v", err)
	}
	if err := d.Download(WaterIn, make([]float32, 20)); !errors.Is(err, ErrBufferSize) {
		t.Errorf("long download: got %v", err)
	}
	if err := d.Dispatch(StageErode, Uniforms{Width: 5}); !errors.Is(err, ErrBufferSize) {
		t.Errorf("width mismatch: got %v", err)
	}
}

func TestUpdateKernelRain(t *testing.T) {
	const width = 5
	d := newDevice(t, width, filled(width*width, 10), make([]float32, width*width))

	u := Uniforms{Width: width, MaxHeight: 20, Rain: 0.4, RainFrequency: 10, KE: 1, Hydraulic: true}
	if err := d.Dispatch(StageUpdate, u); err != nil {
		t.Fatal(err)
	}

	water := make([]float32, width*width)
	_ = d.Download(WaterIn, water)
	if got := water[2*width+2]; math.Abs(float64(got)-0.2) > 1e-6 {
		t.Errorf("interior water = %v, want 0.2", got)
	}
	if water[0] != 0 || water[width-1] != 0 {
		t.Error("rain fell on the frame")
	}

	u.Step = 3
	_ = d.Dispatch(StageUpdate, u)
	_ = d.Download(WaterIn, water)
	if got := water[2*width+2]; math.Abs(float64(got)-0.2) > 1e-6 {
		t.Errorf("rain on a non-rain step: water = %v", got)
	}
}

func TestUpdateKernelDriesCells(t *testing.T) {
	const width = 4
	water := filled(width*width, 1e-7)
	d := newDevice(t, width, filled(width*width, 5), water)
	sed := filled(width*width, 0.5)
	_ = d.Upload(SedimentIn, sed)
	_ = d.Upload(SedimentOut, sed)

	if err := d.Dispatch(StageUpdate, Uniforms{Width: width, Finalize: true, KE: 1}); err != nil {
		t.Fatal(err)
	}

	height := make([]float32, width*width)
	_ = d.Download(HeightIn, height)
	_ = d.Download(WaterIn, water)
	i := 1*width + 1
	if height[i] != 5.5 {
		t.Errorf("dry cell height = %v, want 5.5", height[i])
	}
	if water[i] != 0 {
		t.Errorf("dry cell water = %v, want 0", water[i])
	}
}

func TestErodeKernelConservesWater(t *testing.T) {
	const width = 9
	height := filled(width*width, 10)
	height[4*width+4] = 14
	water := make([]float32, width*width)
	for z := 2; z < width-2; z++ {
		for x := 2; x < width-2; x++ {
			water[z*width+x] = 0.5
		}
	}
	d := newDevice(t, width, height, water)
	u := Uniforms{Width: width, MaxHeight: 14, KC: 1, KD: 0.1, KS: 0.3, KE: 1, Hydraulic: true}

	for _, s := range []Stage{StageDeltaH, StageErode} {
		if err := d.Dispatch(s, u); err != nil {
			t.Fatal(err)
		}
		d.Barrier()
	}

	before, after := 0.0, 0.0
	out := make([]float32, width*width)
	_ = d.Download(WaterOut, out)
	for i := range water {
		before += float64(water[i])
		after += float64(out[i])
	}
	if math.Abs(before-after) > 1e-4 {
		t.Errorf("water not conserved: before %.6f after %.6f", before, after)
	}
}

func TestThermalKernelMovesMaterialDownhill(t *testing.T) {
	const width = 7
	height := filled(width*width, 0)
	center := 3*width + 3
	height[center] = 10
	d := newDevice(t, width, height, make([]float32, width*width))
	u := Uniforms{Width: width, KT: 0.5, CT: 0.1, Thermal: true}

	_ = d.Dispatch(StageDeltaH, u)
	_ = d.Dispatch(StageErode, u)

	out := make([]float32, width*width)
	_ = d.Download(HeightOut, out)
	if out[center] >= 10 {
		t.Errorf("peak did not slump: %v", out[center])
	}
	total := 0.0
	for z := 2; z < width-2; z++ {
		for x := 2; x < width-2; x++ {
			total += float64(out[z*width+x])
		}
	}
	if math.Abs(total-10) > 1e-4 {
		t.Errorf("thermal transport changed total height: %v", total)
	}
	if out[1*width+1] != 0 {
		t.Error("thermal touched the second ring")
	}
}
