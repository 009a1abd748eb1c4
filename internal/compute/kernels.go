package compute

// Go versions of the kernels in shaders/. Each function covers rows
// [z0, z1) and only ever writes cells inside that range, which is what
// lets ReferenceDevice split rows across goroutines without locking.

const dryThreshold = 1e-6

var (
	offX = [8]int{-1, 0, 1, -1, 1, -1, 0, 1}
	offZ = [8]int{-1, -1, -1, 0, 0, 1, 1, 1}
)

type fields [bufferCount][]float32

func updateKernel(f *fields, u Uniforms, z0, z1 int) {
	w := int(u.Width)
	hIn, hOut := f[HeightIn], f[HeightOut]
	wIn, wOut := f[WaterIn], f[WaterOut]
	sIn, sOut := f[SedimentIn], f[SedimentOut]

	rotate := u.Step > 0 || u.Finalize
	rain := !u.Finalize && u.Hydraulic && u.RainFrequency > 0 && u.Step%u.RainFrequency == 0

	for z := max(z0, 1); z < min(z1, w-1); z++ {
		for x := 1; x < w-1; x++ {
			i := z*w + x
			if rotate {
				wOut[i] *= u.KE
				if wOut[i] < dryThreshold {
					hOut[i] += sIn[i]
					sOut[i] = 0
					wOut[i] = 0
				}
				hIn[i] = hOut[i]
				wIn[i] = wOut[i]
				sIn[i] = sOut[i]
			}
			if rain {
				wIn[i] += u.Rain * (hIn[i] / u.MaxHeight)
				wOut[i] = wIn[i]
			}
		}
	}
}

func deltaHKernel(f *fields, u Uniforms, z0, z1 int) {
	w := int(u.Width)
	h, wat := f[HeightIn], f[WaterIn]
	totalHW, totalH := f[TotalDeltaHW], f[TotalDeltaH]

	for z := max(z0, 1); z < min(z1, w-1); z++ {
		for x := 1; x < w-1; x++ {
			i := z*w + x
			level := h[i] + wat[i]
			inner := x >= 2 && z >= 2 && x < w-2 && z < w-2

			var sumHW, sumH float32
			for k := 0; k < 8; k++ {
				nx, nz := x+offX[k], z+offZ[k]
				n := nz*w + nx
				if d := level - (h[n] + wat[n]); d > 0 {
					sumHW += d
				}
				if inner && nx >= 2 && nz >= 2 && nx < w-2 && nz < w-2 {
					if d := h[i] - h[n]; d > u.KT {
						sumH += d
					}
				}
			}
			totalHW[i] = sumHW
			totalH[i] = sumH
		}
	}
}

func erodeKernel(f *fields, u Uniforms, z0, z1 int) {
	w := int(u.Width)
	h, wat, sed := f[HeightIn], f[WaterIn], f[SedimentIn]
	hOut, wOut, sOut := f[HeightOut], f[WaterOut], f[SedimentOut]
	totalHW, totalH := f[TotalDeltaHW], f[TotalDeltaH]

	for z := max(z0, 1); z < min(z1, w-1); z++ {
		for x := 1; x < w-1; x++ {
			i := z*w + x
			var dH, dW, dS float32

			if u.Hydraulic {
				level := h[i] + wat[i]
				for k := 0; k < 8; k++ {
					nx, nz := x+offX[k], z+offZ[k]
					n := nz*w + nx

					// outflow
					if wat[i] > 0 {
						deltaH := level - (h[n] + wat[n])
						if deltaH <= 0 {
							if h[i] <= h[n] {
								dep := u.KD * sed[i]
								dH += dep
								dS -= dep
							}
						} else {
							share := deltaH / totalHW[i]
							flow := min(wat[i], deltaH) * share
							dW -= flow
							carried := sed[i] * share
							capacity := flow * u.KC
							if carried >= capacity {
								dep := u.KD * (carried - capacity)
								dS -= dep + capacity
								dH += dep
							} else {
								dH -= u.KS * (capacity - carried)
								dS -= carried
							}
						}
					}

					// inflow; frame cells never act as sources
					if nx < 1 || nz < 1 || nx >= w-1 || nz >= w-1 || wat[n] <= 0 {
						continue
					}
					deltaH := (h[n] + wat[n]) - level
					if deltaH <= 0 {
						continue
					}
					share := deltaH / totalHW[n]
					flow := min(wat[n], deltaH) * share
					dW += flow
					carried := sed[n] * share
					capacity := flow * u.KC
					if carried >= capacity {
						dS += capacity
					} else {
						dS += carried + u.KS*(capacity-carried)
					}
				}
			}

			if u.Thermal && x >= 2 && z >= 2 && x < w-2 && z < w-2 {
				for k := 0; k < 8; k++ {
					nx, nz := x+offX[k], z+offZ[k]
					if nx < 2 || nz < 2 || nx >= w-2 || nz >= w-2 {
						continue
					}
					n := nz*w + nx
					if d := h[i] - h[n]; d > u.KT {
						dH -= u.CT * (d - u.KT) * (d / totalH[i])
					}
					if d := h[n] - h[i]; d > u.KT {
						dH += u.CT * (d - u.KT) * (d / totalH[n])
					}
				}
			}

			hOut[i] = h[i] + dH
			wOut[i] = wat[i] + dW
			sOut[i] = sed[i] + dS
		}
	}
}
