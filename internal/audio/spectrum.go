package audio

import (
	"math"
	"math/cmplx"
	"sort"

	"gonum.org/v1/gonum/dsp/fourier"
)

// spectrum is the magnitude half-spectrum of one sample window. Bin i sits at
// i * binWidth Hz.
type spectrum struct {
	magnitudes []float64
	binWidth   float64
}

// computeSpectrum transforms a mono window into bin magnitudes below the
// Nyquist frequency.
func computeSpectrum(samples []float64, sampleRate int) spectrum {
	n := len(samples)
	fft := fourier.NewFFT(n)
	coefficients := fft.Coefficients(nil, samples)
	magnitudes := make([]float64, n/2)
	for i := range magnitudes {
		magnitudes[i] = cmplx.Abs(coefficients[i])
	}
	return spectrum{
		magnitudes: magnitudes,
		binWidth:   float64(sampleRate) / float64(n),
	}
}

// peak is one local spectral maximum.
type peak struct {
	Hz        float64
	Magnitude float64
}

// peaksInBand returns the strongest local maxima between lowHz and highHz,
// strongest first, at most limit entries. Maxima below floor are treated as
// noise.
func (s spectrum) peaksInBand(lowHz, highHz float64, limit int, floor float64) []peak {
	var peaks []peak
	for i := 1; i+1 < len(s.magnitudes); i++ {
		hz := float64(i) * s.binWidth
		if hz < lowHz || hz > highHz {
			continue
		}
		magnitude := s.magnitudes[i]
		if magnitude < floor {
			continue
		}
		if magnitude > s.magnitudes[i-1] && magnitude > s.magnitudes[i+1] {
			peaks = append(peaks, peak{Hz: hz, Magnitude: magnitude})
		}
	}
	sort.Slice(peaks, func(a, b int) bool { return peaks[a].Magnitude > peaks[b].Magnitude })
	if len(peaks) > limit {
		peaks = peaks[:limit]
	}
	return peaks
}

// magnitudeNear returns the strongest magnitude within tolerance of hz.
func (s spectrum) magnitudeNear(hz, tolerance float64) float64 {
	if s.binWidth <= 0 {
		return 0
	}
	low := int(math.Floor((hz - tolerance) / s.binWidth))
	high := int(math.Ceil((hz + tolerance) / s.binWidth))
	if low < 0 {
		low = 0
	}
	var strongest float64
	for i := low; i <= high && i < len(s.magnitudes); i++ {
		if s.magnitudes[i] > strongest {
			strongest = s.magnitudes[i]
		}
	}
	return strongest
}

// bandEnergy sums squared magnitudes for bins inside the band.
func (s spectrum) bandEnergy(lowHz, highHz float64) float64 {
	var total float64
	for i := 1; i < len(s.magnitudes); i++ {
		hz := float64(i) * s.binWidth
		if hz < lowHz || hz > highHz {
			continue
		}
		total += s.magnitudes[i] * s.magnitudes[i]
	}
	return total
}

// totalEnergy sums squared magnitudes across the spectrum. The DC bin is
// excluded so a constant offset cannot drown the band ratios.
func (s spectrum) totalEnergy() float64 {
	var total float64
	for i := 1; i < len(s.magnitudes); i++ {
		total += s.magnitudes[i] * s.magnitudes[i]
	}
	return total
}

// strongestMagnitude is the tallest non-DC bin, used to scale the peak floor.
func (s spectrum) strongestMagnitude() float64 {
	var strongest float64
	for i := 1; i < len(s.magnitudes); i++ {
		if s.magnitudes[i] > strongest {
			strongest = s.magnitudes[i]
		}
	}
	return strongest
}
