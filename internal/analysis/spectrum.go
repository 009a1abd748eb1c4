package analysis

import (
	"errors"
	"fmt"
	"math"
	"math/cmplx"

	"github.com/mjibson/go-dsp/fft"
)

var (
	ErrTooSmall     = errors.New("analysis: field too small")
	ErrSizeMismatch = errors.New("analysis: heights do not match width")
	ErrFlatSpectrum = errors.New("analysis: spectrum has no power")
)

// RadialSpectrum returns the radially averaged power spectrum of a square
// height field. Index k holds the mean power at integer wavenumber k for
// 1 <= k < width/2; index 0 is always zero because the mean is removed.
func RadialSpectrum(heights []float32, width int) ([]float64, error) {
	if width < 4 {
		return nil, fmt.Errorf("%w: width %d", ErrTooSmall, width)
	}
	if len(heights) != width*width {
		return nil, fmt.Errorf("%w: %d cells for width %d", ErrSizeMismatch, len(heights), width)
	}

	var mean float64
	for _, h := range heights {
		mean += float64(h)
	}
	mean /= float64(len(heights))

	rows := make([][]float64, width)
	for z := range rows {
		row := make([]float64, width)
		for x := range row {
			row[x] = float64(heights[z*width+x]) - mean
		}
		rows[z] = row
	}
	freq := fft.FFT2Real(rows)

	bins := width / 2
	sum := make([]float64, bins)
	count := make([]int, bins)
	for v, row := range freq {
		kv := wavenumber(v, width)
		for u, c := range row {
			ku := wavenumber(u, width)
			k := int(math.Round(math.Hypot(float64(ku), float64(kv))))
			if k < 1 || k >= bins {
				continue
			}
			a := cmplx.Abs(c)
			sum[k] += a * a
			count[k]++
		}
	}

	for k := range sum {
		if count[k] > 0 {
			sum[k] /= float64(count[k])
		}
	}
	return sum, nil
}

// SpectralSlope fits log(power) against log(k) by least squares over the
// bins with non-zero power and returns the slope.
func SpectralSlope(spectrum []float64) (float64, error) {
	var n, sx, sy, sxx, sxy float64
	for k := 1; k < len(spectrum); k++ {
		if spectrum[k] <= 0 {
			continue
		}
		x, y := math.Log(float64(k)), math.Log(spectrum[k])
		n++
		sx += x
		sy += y
		sxx += x * x
		sxy += x * y
	}
	den := n*sxx - sx*sx
	if n < 2 || den == 0 {
		return 0, ErrFlatSpectrum
	}
	return (n*sxy - sx*sy) / den, nil
}

// Slope is RadialSpectrum followed by SpectralSlope.
func Slope(heights []float32, width int) (float64, error) {
	spectrum, err := RadialSpectrum(heights, width)
	if err != nil {
		return 0, err
	}
	return SpectralSlope(spectrum)
}

// wavenumber maps an FFT bin to its signed frequency.
func wavenumber(i, n int) int {
	if i > n/2 {
		return i - n
	}
	return i
}
