// Package erosion simulates hydraulic and thermal erosion over a square
// height grid.
//
// An [Engine] is bound to a [Terrain] once, then runs any number of
// simulations on it:
//
//	e := erosion.NewEngine(erosion.DefaultParams())
//	if err := e.Bind(heightmap); err != nil {
//		return err
//	}
//	defer e.Release()
//	e.SetConsumer(mesh)
//	_ = e.Start(erosion.CPU) // returns immediately
//	...
//	e.Stop()                 // cooperative, waits for the current step
//	score, err := e.Score()
//
// Each step injects rain when due, moves water and sediment downhill,
// slumps slopes steeper than the talus threshold and finally evaporates
// water and rotates the double buffers.
//
// # Backends
//
// The CPU backend runs on a background goroutine and splits every pass
// by rows across GOMAXPROCS workers. Contributions into neighbouring
// cells are accumulated with atomic compare-and-swap adds.
//
// The GPU backend drives a [compute.Device] synchronously: three kernel
// dispatches per step separated by barriers, then a single read back of
// the height and water fields. The two backends agree statistically, not
// bit for bit.
package erosion
