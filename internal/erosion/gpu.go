package erosion

import (
	"github.com/san-kum/erosim/internal/compute"
	"github.com/san-kum/erosim/internal/grid"
)

var gpuStages = [...]compute.Stage{compute.StageUpdate, compute.StageDeltaH, compute.StageErode}

func uniforms(p Params, width int, maxHeight float32) compute.Uniforms {
	return compute.Uniforms{
		Width:         int32(width),
		MaxHeight:     maxHeight,
		Rain:          p.Rain,
		RainFrequency: int32(p.RainFrequency),
		KC:            p.KC,
		KD:            p.KD,
		KS:            p.KS,
		KE:            p.KE,
		KT:            p.KT,
		CT:            p.CT,
		Hydraulic:     p.Hydraulic,
		Thermal:       p.Thermal,
	}
}

// gpuPipeline uploads the seeded grid, runs p.Steps iterations of the
// three kernels and reads height and water back. Sediment never leaves
// the device.
func (e *Engine) gpuPipeline(g *grid.Grid, dev compute.Device, devWidth int, p Params, maxHeight float32) error {
	if dev == nil {
		return compute.ErrUnavailable
	}
	if devWidth != g.Width {
		if err := dev.Allocate(g.Width); err != nil {
			return err
		}
		e.mu.Lock()
		e.devWidth = g.Width
		e.mu.Unlock()
	}

	uploads := []struct {
		buf  compute.Buffer
		data []float32
	}{
		{compute.HeightIn, g.HeightIn},
		{compute.HeightOut, g.HeightOut},
		{compute.WaterIn, g.WaterIn},
		{compute.WaterOut, g.WaterOut},
		{compute.SedimentIn, g.SedimentIn},
		{compute.SedimentOut, g.SedimentOut},
	}
	for _, up := range uploads {
		if err := dev.Upload(up.buf, up.data); err != nil {
			return err
		}
	}
	Logger().Debug("gpu buffers uploaded", "device", dev.Name(), "width", g.Width)

	u := uniforms(p, g.Width, maxHeight)
	steps := 0
	for ; steps < p.Steps && e.eroding.Load(); steps++ {
		u.Step = int32(steps)
		for _, s := range gpuStages {
			if err := dev.Dispatch(s, u); err != nil {
				return err
			}
			dev.Barrier()
		}
		e.step.Store(int64(steps + 1))
	}
	if steps == 0 {
		return nil
	}

	// evaporate and rotate the last step so the in buffers hold the result
	u.Finalize = true
	if err := dev.Dispatch(compute.StageUpdate, u); err != nil {
		return err
	}
	dev.Barrier()

	if err := dev.Download(compute.HeightIn, g.HeightIn); err != nil {
		return err
	}
	return dev.Download(compute.WaterIn, g.WaterIn)
}
