package erosion

import (
	"fmt"
	"math"
)

// Roughness returns the coefficient of variation of the local slope,
// where slope is the largest absolute height difference to the four
// direct neighbours. Cells within two of the edge are not scored.
func Roughness(heights []float32, width int) (float64, error) {
	if width < 5 {
		return 0, fmt.Errorf("%w: width %d, need at least 5 to score", ErrGridTooSmall, width)
	}
	if len(heights) != width*width {
		return 0, fmt.Errorf("%w: %d cells for width %d", ErrSizeMismatch, len(heights), width)
	}

	slopes := make([]float64, width*width)
	parallelRows(width, func(z0, z1 int) {
		for z := max(z0, 2); z < min(z1, width-2); z++ {
			for x := 2; x < width-2; x++ {
				i := z*width + x
				h := heights[i]
				slopes[i] = float64(max(
					abs32(h-heights[i+width]),
					abs32(h-heights[i-width]),
					abs32(h-heights[i+1]),
					abs32(h-heights[i-1]),
				))
			}
		}
	})

	inner := width - 4
	n := float64(inner * inner)
	total := 0.0
	for z := 2; z < width-2; z++ {
		for x := 2; x < width-2; x++ {
			total += slopes[z*width+x]
		}
	}
	mean := total / n
	if mean == 0 {
		return 0, ErrFlatTerrain
	}

	variance := 0.0
	for z := 2; z < width-2; z++ {
		for x := 2; x < width-2; x++ {
			d := slopes[z*width+x] - mean
			variance += d * d
		}
	}
	return math.Sqrt(variance/n) / mean, nil
}

func abs32(v float32) float32 {
	if v < 0 {
		return -v
	}
	return v
}
