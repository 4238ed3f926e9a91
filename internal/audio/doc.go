// Package audio detects acoustic events in raw sample windows.
//
// Classification is frequency-domain pattern matching: the window is
// transformed into a magnitude spectrum, local peaks are extracted per
// signature band, and the peaks are compared against reference signatures
// for the events each scenario cares about (crying for baby, barking and
// other vocalizations for pet, fall impacts for elderly; screams and glass
// breaks everywhere). Secondary discriminators separate events that share a
// band: harmonic stacking for cries, impulsive spread for barks, high-band
// energy ratio for screams and glass, low-band dominance plus a loudness
// gate for falls.
//
// Analyze never returns an empty finding list. Silence below the RMS floor
// and windows matching nothing are reported as findings so callers always
// see a verdict.
package audio
