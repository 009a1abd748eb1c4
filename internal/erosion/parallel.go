package erosion

import (
	"runtime"
	"sync"
)

// parallelRows splits rows [0, n) into contiguous chunks, one per CPU,
// and waits for all of them.
func parallelRows(n int, fn func(z0, z1 int)) {
	workers := runtime.GOMAXPROCS(0)
	if n/4 < workers {
		workers = n / 4
	}
	if workers <= 1 {
		fn(0, n)
		return
	}

	chunk := (n + workers - 1) / workers

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		start := w * chunk
		end := min(start+chunk, n)
		if start >= end {
			break
		}
		wg.Add(1)
		go func(s, e int) {
			defer wg.Done()
			fn(s, e)
		}(start, end)
	}
	wg.Wait()
}
