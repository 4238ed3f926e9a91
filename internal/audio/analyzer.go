package audio

import (
	"fmt"
	"math"
	"sort"

	"vigil/internal/analysis"
	"vigil/internal/concern"
	"vigil/internal/config"
	"vigil/internal/scenario"
	"vigil/internal/services"
)

const (
	defaultSilenceRMS  = 0.01
	defaultPeakCount   = 8
	defaultToleranceHz = 50

	// minWindow is the shortest window with enough spectral resolution to
	// say anything useful.
	minWindow = 32

	// peakFloorRatio discards local maxima quieter than this fraction of the
	// tallest bin.
	peakFloorRatio = 0.02

	// fallLoudnessGate is the RMS a structural thump must reach. Quiet
	// low-frequency rumble is not a fall.
	fallLoudnessGate = 0.3
)

// Analyzer classifies sample windows against the acoustic signature table.
// It holds no mutable state after construction and is safe for concurrent
// use.
type Analyzer struct {
	signatures  map[Event]Signature
	silenceRMS  float64
	peakCount   int
	toleranceHz float64
}

// NewAnalyzer builds an analyzer from the audio configuration. Zero config
// values fall back to the package defaults.
func NewAnalyzer(cfg config.Audio) *Analyzer {
	analyzer := &Analyzer{
		signatures:  make(map[Event]Signature, len(signatureTable)),
		silenceRMS:  defaultSilenceRMS,
		peakCount:   defaultPeakCount,
		toleranceHz: defaultToleranceHz,
	}
	for _, signature := range signatureTable {
		copied := signature
		copied.PeaksHz = append([]float64(nil), signature.PeaksHz...)
		analyzer.signatures[signature.Event] = copied
	}
	if cfg.SilenceRMS > 0 {
		analyzer.silenceRMS = cfg.SilenceRMS
	}
	if cfg.PeakCount > 0 {
		analyzer.peakCount = cfg.PeakCount
	}
	if cfg.ToleranceHz > 0 {
		analyzer.toleranceHz = cfg.ToleranceHz
	}
	return analyzer
}

// Analyze classifies one mono sample window. The returned slice is never
// empty: silence and "nothing matched" are themselves findings. Several
// events can fire from one window; per-finding concern is not aggregated
// here.
func (a *Analyzer) Analyze(samples []float64, sampleRate int, rms float64, sc scenario.Scenario) ([]analysis.Finding, error) {
	if len(samples) < minWindow {
		return nil, services.Wrap(services.ErrValidation, "audio", "analyze",
			fmt.Sprintf("sample window too short (%d samples)", len(samples)), nil)
	}
	if sampleRate <= 0 {
		return nil, services.Wrap(services.ErrValidation, "audio", "analyze",
			fmt.Sprintf("invalid sample rate %d", sampleRate), nil)
	}
	if _, ok := scenario.ParseScenario(sc.String()); !ok {
		return nil, services.Wrap(services.ErrValidation, "audio", "analyze",
			fmt.Sprintf("unknown scenario %q", sc), nil)
	}

	// A near-silent window in a room that should have baseline noise is a
	// signal of its own.
	if rms < a.silenceRMS {
		return []analysis.Finding{{
			Detected:    true,
			Event:       string(EventSilence),
			Confidence:  1,
			Concern:     concern.LevelLow,
			Description: "audio level below the silence floor",
		}}, nil
	}

	sp := computeSpectrum(samples, sampleRate)
	floor := sp.strongestMagnitude() * peakFloorRatio

	var findings []analysis.Finding
	for _, event := range relevantEvents(sc) {
		signature, ok := a.signatures[event]
		if !ok {
			continue
		}
		if finding, matched := a.match(sp, signature, rms, floor); matched {
			findings = append(findings, finding)
		}
	}
	if len(findings) == 0 {
		return []analysis.Finding{{
			Event:       string(EventNormal),
			Concern:     concern.LevelNone,
			Description: "no notable audio events",
		}}, nil
	}
	sort.SliceStable(findings, func(i, j int) bool {
		if findings[i].Concern != findings[j].Concern {
			return findings[i].Concern.Rank() > findings[j].Concern.Rank()
		}
		return findings[i].Confidence > findings[j].Confidence
	})
	return findings, nil
}

// match scores one signature against the spectrum. The boolean reports
// whether the confidence cleared the signature threshold.
func (a *Analyzer) match(sp spectrum, sig Signature, rms, floor float64) (analysis.Finding, bool) {
	peaks := sp.peaksInBand(sig.LowHz, sig.HighHz, a.peakCount, floor)
	if len(peaks) == 0 {
		return analysis.Finding{}, false
	}
	matched := matchPeaks(peaks, sig.PeaksHz, a.toleranceHz)
	if len(matched) == 0 {
		return analysis.Finding{}, false
	}
	base := float64(len(matched)) / float64(len(sig.PeaksHz))
	confidence := a.adjustConfidence(sp, sig, matched, base, rms)
	if confidence < sig.Threshold {
		return analysis.Finding{}, false
	}
	if confidence > 1 {
		confidence = 1
	}
	return analysis.Finding{
		Detected:    true,
		Event:       string(sig.Event),
		Confidence:  confidence,
		Concern:     concernForEvent(sig.Event, confidence),
		MatchedHz:   matched,
		Description: describeEvent(sig.Event),
	}, true
}

// matchPeaks maps each reference frequency to the closest extracted peak
// within tolerance and returns the matched frequencies in Hz.
func matchPeaks(peaks []peak, reference []float64, tolerance float64) []float64 {
	var matched []float64
	for _, want := range reference {
		best := -1.0
		bestDistance := tolerance + 1
		for _, p := range peaks {
			distance := math.Abs(p.Hz - want)
			if distance <= tolerance && distance < bestDistance {
				best = p.Hz
				bestDistance = distance
			}
		}
		if best >= 0 {
			matched = append(matched, best)
		}
	}
	return matched
}

// adjustConfidence folds the per-event discriminator into the raw peak-match
// fraction. Events without a discriminator keep the raw fraction.
func (a *Analyzer) adjustConfidence(sp spectrum, sig Signature, matched []float64, base, rms float64) float64 {
	switch sig.Event {
	case EventCry:
		return 0.6*base + 0.4*a.harmonicScore(sp, matched)
	case EventBark:
		return 0.7*base + 0.3*impulsiveSpreadScore(matched)
	case EventScream, EventGlassBreak:
		return 0.6*base + 0.4*highBandScore(sp, sig)
	case EventFallImpact:
		if rms < fallLoudnessGate {
			return 0
		}
		return 0.6*base + 0.4*lowDominanceScore(sp)
	default:
		return base
	}
}

// harmonicScore checks for energy near twice and three times the lowest
// matched frequency. Crying carries a strong harmonic stack; broadband noise
// in the same band does not.
func (a *Analyzer) harmonicScore(sp spectrum, matched []float64) float64 {
	fundamental := matched[0]
	for _, hz := range matched[1:] {
		if hz < fundamental {
			fundamental = hz
		}
	}
	root := sp.magnitudeNear(fundamental, a.toleranceHz)
	if root <= 0 {
		return 0
	}
	var score float64
	if sp.magnitudeNear(2*fundamental, a.toleranceHz) >= 0.3*root {
		score += 0.5
	}
	if sp.magnitudeNear(3*fundamental, a.toleranceHz) >= 0.2*root {
		score += 0.5
	}
	return score
}

// impulsiveSpreadScore rewards a wide gap between the lowest and highest
// matched peak. A bark excites the whole band at once; a tonal hum does not.
func impulsiveSpreadScore(matched []float64) float64 {
	low, high := matched[0], matched[0]
	for _, hz := range matched[1:] {
		if hz < low {
			low = hz
		}
		if hz > high {
			high = hz
		}
	}
	spread := high - low
	if spread >= 300 {
		return 1
	}
	return spread / 300
}

// highBandScore measures how much of the window's energy sits inside the
// signature band. Screams and breaking glass dominate the high end of the
// spectrum.
func highBandScore(sp spectrum, sig Signature) float64 {
	total := sp.totalEnergy()
	if total <= 0 {
		return 0
	}
	score := sp.bandEnergy(sig.LowHz, sig.HighHz) / total / 0.4
	if score > 1 {
		score = 1
	}
	return score
}

// lowDominanceScore compares thump-band energy against the mids. A fall
// rattles the structure well below anything vocal.
func lowDominanceScore(sp spectrum) float64 {
	low := sp.bandEnergy(40, 250)
	mid := sp.bandEnergy(250, 1000)
	if mid <= 0 {
		if low > 0 {
			return 1
		}
		return 0
	}
	score := low / mid / 2
	if score > 1 {
		score = 1
	}
	return score
}
