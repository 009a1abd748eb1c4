// Package gui is a raylib window showing the terrain while it erodes.
package gui

import (
	"fmt"
	"image"
	"image/color"
	"sync/atomic"

	rl "github.com/gen2brain/raylib-go/raylib"

	"github.com/san-kum/erosim/internal/erosion"
	"github.com/san-kum/erosim/internal/terrain"
)

// maxSide keeps the preview mesh within raylib's 16-bit index range.
const maxSide = 256

var (
	ColBg      = rl.NewColor(10, 10, 10, 255)
	ColText    = rl.NewColor(140, 140, 140, 255)
	ColTextDim = rl.NewColor(60, 60, 60, 255)
	ColWater   = rl.NewColor(40, 110, 200, 150)
)

// Controls is the part of the engine the viewer drives.
type Controls interface {
	Start(erosion.Backend) error
	Stop()
	Step() int
	Eroding() bool
	Params() erosion.Params
	SetWaterPreview(bool)
}

type Viewer struct {
	engine    Controls
	mesh      *terrain.Mesh
	backend   erosion.Backend
	maxHeight float32

	camera  rl.Camera3D
	land    rl.Model
	water   rl.Model
	texture rl.Texture2D
	loaded  bool
	wet     bool
	showWet bool
	status  atomic.Value
}

func NewViewer(e Controls, mesh *terrain.Mesh, b erosion.Backend, maxHeight float32) *Viewer {
	return &Viewer{engine: e, mesh: mesh, backend: b, maxHeight: maxHeight, showWet: true}
}

// Run opens the window and blocks until it is closed. Must be called from
// the main goroutine.
func (v *Viewer) Run() {
	rl.InitWindow(1280, 720, "erosim")
	defer rl.CloseWindow()
	rl.SetTargetFPS(60)

	span := float32(maxSide)
	v.camera = rl.NewCamera3D(
		rl.NewVector3(span, span*0.8, span),
		rl.NewVector3(span/2, 0, span/2),
		rl.NewVector3(0, 1, 0),
		45.0,
		rl.CameraPerspective,
	)

	v.mesh.Regenerate(true)
	for !rl.WindowShouldClose() {
		v.update()
		v.draw()
	}
	v.engine.Stop()
	v.mesh.Wait()
	v.unload()
}

func (v *Viewer) update() {
	if rl.IsKeyPressed(rl.KeySpace) {
		if v.engine.Eroding() {
			v.engine.Stop()
		} else {
			v.start()
		}
	}
	if rl.IsKeyPressed(rl.KeyW) {
		v.showWet = !v.showWet
		v.engine.SetWaterPreview(v.showWet)
	}
	rl.UpdateCamera(&v.camera, rl.CameraOrbital)

	if f, ok := v.mesh.Upload(); ok {
		v.load(f)
	}
}

func (v *Viewer) start() {
	if v.backend == erosion.CPU {
		if err := v.engine.Start(v.backend); err != nil {
			v.status.Store(err.Error())
		}
		return
	}
	// GPU runs block until done; keep the window responsive
	go func() {
		if err := v.engine.Start(v.backend); err != nil {
			v.status.Store(err.Error())
		}
	}()
}

// load replaces the models with ones built from f.
func (v *Viewer) load(f *terrain.Frame) {
	v.unload()

	stride := max(1, (f.Width+maxSide-1)/maxSide)
	side := float32(f.Width / stride)
	size := rl.NewVector3(side, v.maxHeight, side)

	img := rl.NewImageFromImage(heightImage(f.Heights, f.Width, stride, v.maxHeight))
	v.land = rl.LoadModelFromMesh(rl.GenMeshHeightmap(*img, size))
	rl.UnloadImage(img)

	shade := rl.NewImageFromImage(shadeImage(f, stride))
	v.texture = rl.LoadTextureFromImage(shade)
	rl.UnloadImage(shade)
	rl.SetMaterialTexture(v.land.Materials, rl.MapDiffuse, v.texture)

	v.wet = f.WaterSurface != nil
	if v.wet {
		wimg := rl.NewImageFromImage(heightImage(f.WaterSurface, f.Width, stride, v.maxHeight))
		v.water = rl.LoadModelFromMesh(rl.GenMeshHeightmap(*wimg, size))
		rl.UnloadImage(wimg)
	}
	v.loaded = true
}

func (v *Viewer) unload() {
	if !v.loaded {
		return
	}
	rl.UnloadTexture(v.texture)
	rl.UnloadModel(v.land)
	if v.wet {
		rl.UnloadModel(v.water)
	}
	v.loaded, v.wet = false, false
}

func (v *Viewer) draw() {
	rl.BeginDrawing()
	rl.ClearBackground(ColBg)

	rl.BeginMode3D(v.camera)
	if v.loaded {
		rl.DrawModel(v.land, rl.NewVector3(0, 0, 0), 1, rl.White)
		if v.wet && v.showWet {
			// sunk slightly so dry ground is not covered
			rl.DrawModel(v.water, rl.NewVector3(0, -0.3, 0), 1, ColWater)
		}
	}
	rl.EndMode3D()

	state := "IDLE"
	if v.engine.Eroding() {
		state = "ERODING"
	}
	rl.DrawText(fmt.Sprintf("%s %s  step %d / %d", v.backend, state, v.engine.Step(), v.engine.Params().Steps), 30, 30, 20, ColText)
	if msg, _ := v.status.Load().(string); msg != "" {
		rl.DrawText(msg, 30, 60, 16, rl.Red)
	}
	rl.DrawText("[SPACE] START/STOP  [W] WATER  [ESC] QUIT", 30, 690, 14, ColTextDim)
	rl.DrawFPS(1180, 30)
	rl.EndDrawing()
}

// heightImage samples every stride-th cell into an 8-bit image scaled
// against maxHeight.
func heightImage(heights []float32, width, stride int, maxHeight float32) *image.Gray {
	side := width / stride
	img := image.NewGray(image.Rect(0, 0, side, side))
	for z := 0; z < side; z++ {
		for x := 0; x < side; x++ {
			h := heights[z*stride*width+x*stride] / maxHeight
			img.SetGray(x, z, color.Gray{Y: uint8(min(max(h, 0), 1) * 255)})
		}
	}
	return img
}

// shadeImage colours flat ground green and steep ground as rock.
func shadeImage(f *terrain.Frame, stride int) *image.RGBA {
	side := f.Width / stride
	img := image.NewRGBA(image.Rect(0, 0, side, side))
	grass := color.RGBA{86, 125, 70, 255}
	rock := color.RGBA{120, 110, 100, 255}
	for z := 0; z < side; z++ {
		for x := 0; x < side; x++ {
			up := f.Normals[z*stride*f.Width+x*stride].Y()
			t := min(max((up-0.6)/0.3, 0), 1)
			img.SetRGBA(x, z, color.RGBA{
				R: lerp8(rock.R, grass.R, t),
				G: lerp8(rock.G, grass.G, t),
				B: lerp8(rock.B, grass.B, t),
				A: 255,
			})
		}
	}
	return img
}

func lerp8(a, b uint8, t float32) uint8 {
	return uint8(float32(a) + (float32(b)-float32(a))*t)
}
