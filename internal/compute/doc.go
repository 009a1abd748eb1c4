// Package compute runs the erosion kernels on a data-parallel device.
//
// Two devices implement [Device]:
//
//   - GLDevice: OpenGL 4.3 compute shaders over shader storage buffers
//   - ReferenceDevice: the same kernels written in Go, fanned out over
//     the available CPUs
//
// Each erosion step is three dispatches separated by barriers:
//
//	dev.Dispatch(compute.StageUpdate, u)
//	dev.Barrier()
//	dev.Dispatch(compute.StageDeltaH, u)
//	dev.Barrier()
//	dev.Dispatch(compute.StageErode, u)
//	dev.Barrier()
//
// The kernels use a gather formulation: every cell sums the flow it
// receives from its neighbours instead of pushing flow into them, so no
// floating point atomics are needed on the device.
//
// Build with OpenGL support:
//
//	go build -tags gl ./...
//
// Without the tag NewGLDevice and NewHeadlessContext return [ErrUnavailable].
package compute
