package erosion

import "github.com/san-kum/erosim/internal/grid"

// Moore neighbourhood offsets.
var (
	dX = [8]int{-1, 0, 1, -1, 1, -1, 0, 1}
	dZ = [8]int{-1, -1, -1, 0, 0, 1, 1, 1}
)

// cpuStep advances g by one step. Every pass reads only the in buffers
// and accumulates into the out buffers; rotation happens last, after all
// passes have finished.
func cpuStep(g *grid.Grid, p Params, step int, maxHeight float32) {
	w := g.Width
	if p.Hydraulic {
		if p.RainFrequency > 0 && step%p.RainFrequency == 0 {
			parallelRows(w, func(z0, z1 int) { distributeRain(g, p.Rain, maxHeight, z0, z1) })
		}
		parallelRows(w, func(z0, z1 int) { hydraulicErosion(g, p, z0, z1) })
	}
	if p.Thermal {
		parallelRows(w, func(z0, z1 int) { thermalErosion(g, p, z0, z1) })
	}
	parallelRows(w, func(z0, z1 int) { evaporate(g, p.KE, z0, z1) })
}

func distributeRain(g *grid.Grid, rain, maxHeight float32, z0, z1 int) {
	w := g.Width
	for z := max(z0, 1); z < min(z1, w-1); z++ {
		for x := 1; x < w-1; x++ {
			i := z*w + x
			g.WaterIn[i] += rain * (g.HeightIn[i] / maxHeight)
			g.WaterOut[i] = g.WaterIn[i]
		}
	}
}

func hydraulicErosion(g *grid.Grid, p Params, z0, z1 int) {
	w := g.Width
	hIn, wIn, sIn := g.HeightIn, g.WaterIn, g.SedimentIn
	var neighbours [8]int
	var deltas [8]float32

	for z := max(z0, 1); z < min(z1, w-1); z++ {
		for x := 1; x < w-1; x++ {
			i := z*w + x
			water := wIn[i]
			if water <= 0 {
				continue
			}

			level := hIn[i] + water
			var totalDeltaH float32
			for k := 0; k < 8; k++ {
				n := (z+dZ[k])*w + x + dX[k]
				d := level - (hIn[n] + wIn[n])
				if d > 0 {
					totalDeltaH += d
				}
				neighbours[k] = n
				deltas[k] = d
			}

			var cellDeltaH, cellDeltaS, cellDeltaW float32
			for k := 0; k < 8; k++ {
				n, deltaH := neighbours[k], deltas[k]

				if deltaH <= 0 {
					// no outflow target: pool and deposit
					if hIn[i] <= hIn[n] {
						dep := p.KD * sIn[i]
						cellDeltaH += dep
						cellDeltaS -= dep
					}
					continue
				}

				share := deltaH / totalDeltaH
				deltaW := min(water, deltaH) * share
				grid.AtomicAdd(g.WaterOut, n, deltaW)
				cellDeltaW -= deltaW

				deltaS := sIn[i] * share
				sCap := deltaW * p.KC
				if deltaS >= sCap {
					dep := p.KD * (deltaS - sCap)
					grid.AtomicAdd(g.SedimentOut, n, sCap)
					// the undeposited excess stays suspended here
					cellDeltaS -= dep + sCap
					cellDeltaH += dep
				} else {
					eroded := p.KS * (sCap - deltaS)
					cellDeltaH -= eroded
					cellDeltaS -= deltaS
					grid.AtomicAdd(g.SedimentOut, n, deltaS+eroded)
				}
			}

			grid.AtomicAdd(g.HeightOut, i, cellDeltaH)
			grid.AtomicAdd(g.SedimentOut, i, cellDeltaS)
			grid.AtomicAdd(g.WaterOut, i, cellDeltaW)
		}
	}
}

// thermalErosion slumps material steeper than the talus threshold. It
// works on the inner area two cells in from the edge so the outer two
// rings stay fixed.
func thermalErosion(g *grid.Grid, p Params, z0, z1 int) {
	w := g.Width
	hIn := g.HeightIn
	var lower [8]int
	var lowerDeltaH [8]float32

	for z := max(z0, 2); z < min(z1, w-2); z++ {
		for x := 2; x < w-2; x++ {
			i := z*w + x

			var totalDeltaH float32
			count := 0
			for k := 0; k < 8; k++ {
				nx, nz := x+dX[k], z+dZ[k]
				if nx < 2 || nz < 2 || nx >= w-2 || nz >= w-2 {
					continue
				}
				n := nz*w + nx
				if d := hIn[i] - hIn[n]; d > p.KT {
					totalDeltaH += d
					lower[count] = n
					lowerDeltaH[count] = d
					count++
				}
			}

			var cellDeltaH float32
			for k := 0; k < count; k++ {
				d := lowerDeltaH[k]
				moved := p.CT * (d - p.KT) * (d / totalDeltaH)
				cellDeltaH -= moved
				grid.AtomicAdd(g.HeightOut, lower[k], moved)
			}
			if count > 0 {
				grid.AtomicAdd(g.HeightOut, i, cellDeltaH)
			}
		}
	}
}

// evaporate dries the out generation and rotates it into the in buffers.
func evaporate(g *grid.Grid, kE float32, z0, z1 int) {
	w := g.Width
	for z := max(z0, 1); z < min(z1, w-1); z++ {
		for x := 1; x < w-1; x++ {
			i := z*w + x
			g.WaterOut[i] *= kE
			if g.WaterOut[i] < grid.DryThreshold {
				g.HeightOut[i] += g.SedimentIn[i]
				g.SedimentOut[i] = 0
				g.WaterOut[i] = 0
			}
		}
	}
	g.Rotate(z0, z1)
}
