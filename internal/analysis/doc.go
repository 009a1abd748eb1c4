// Package analysis characterizes height fields in the frequency domain.
//
// Natural terrain has a power spectrum that falls off roughly as a power
// law of wavenumber. Erosion removes high frequency detail, so the fitted
// slope steepens as a run progresses:
//
//	spectrum, err := analysis.RadialSpectrum(heights, width)
//	if err != nil {
//	    return err
//	}
//	slope, err := analysis.SpectralSlope(spectrum)
//
// Roughness scoring lives in the erosion package; this package only adds
// the spectral view of the same surface.
package analysis
