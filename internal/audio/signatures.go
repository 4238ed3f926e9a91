package audio

import (
	"vigil/internal/concern"
	"vigil/internal/scenario"
)

// Event names an acoustic pattern the analyzer can recognize.
type Event string

const (
	EventCry        Event = "cry"
	EventScream     Event = "scream"
	EventBark       Event = "bark"
	EventWhine      Event = "whine"
	EventMeow       Event = "meow"
	EventGlassBreak Event = "glass_break"
	EventFallImpact Event = "fall_impact"

	// EventSilence and EventNormal are synthetic findings emitted by the
	// analyzer itself; they have no signature in the table.
	EventSilence Event = "silence"
	EventNormal  Event = "normal"
)

// Signature is the reference shape of one acoustic event: the band it lives
// in, the peak frequencies a real occurrence reproduces, and the confidence
// needed to accept a match.
type Signature struct {
	Event     Event
	LowHz     float64
	HighHz    float64
	PeaksHz   []float64
	Threshold float64
}

// signatureTable is the built-in reference data. Never mutated at runtime;
// the analyzer copies it at construction.
var signatureTable = []Signature{
	{Event: EventCry, LowHz: 250, HighHz: 700, PeaksHz: []float64{300, 450, 530}, Threshold: 0.50},
	{Event: EventScream, LowHz: 1000, HighHz: 3000, PeaksHz: []float64{1200, 1800, 2400}, Threshold: 0.60},
	{Event: EventBark, LowHz: 200, HighHz: 1000, PeaksHz: []float64{240, 460, 700}, Threshold: 0.55},
	{Event: EventWhine, LowHz: 600, HighHz: 1600, PeaksHz: []float64{700, 1000, 1300}, Threshold: 0.60},
	{Event: EventMeow, LowHz: 350, HighHz: 900, PeaksHz: []float64{420, 560, 840}, Threshold: 0.60},
	{Event: EventGlassBreak, LowHz: 3000, HighHz: 8000, PeaksHz: []float64{3500, 4500, 6000}, Threshold: 0.60},
	{Event: EventFallImpact, LowHz: 40, HighHz: 250, PeaksHz: []float64{60, 110, 180}, Threshold: 0.65},
}

// sharedEvents are checked for every scenario.
var sharedEvents = []Event{EventScream, EventGlassBreak}

// relevantEvents returns the signatures worth checking for a scenario.
func relevantEvents(sc scenario.Scenario) []Event {
	switch sc {
	case scenario.Baby:
		return append([]Event{EventCry}, sharedEvents...)
	case scenario.Pet:
		return append([]Event{EventBark, EventWhine, EventMeow}, sharedEvents...)
	case scenario.Elderly:
		return append([]Event{EventFallImpact}, sharedEvents...)
	}
	return append([]Event(nil), sharedEvents...)
}

// concernForEvent maps an accepted event to its alert weight. Confidence
// pushes the borderline classes up one step.
func concernForEvent(event Event, confidence float64) concern.Level {
	switch event {
	case EventCry:
		if confidence >= 0.85 {
			return concern.LevelHigh
		}
		return concern.LevelMedium
	case EventScream, EventGlassBreak:
		return concern.LevelHigh
	case EventBark:
		if confidence >= 0.80 {
			return concern.LevelMedium
		}
		return concern.LevelLow
	case EventWhine, EventMeow:
		return concern.LevelLow
	case EventFallImpact:
		return concern.LevelCritical
	case EventSilence:
		return concern.LevelLow
	default:
		return concern.LevelNone
	}
}

func describeEvent(event Event) string {
	switch event {
	case EventCry:
		return "crying with harmonic structure"
	case EventScream:
		return "scream-range energy burst"
	case EventBark:
		return "impulsive barking"
	case EventWhine:
		return "sustained whining"
	case EventMeow:
		return "cat vocalization"
	case EventGlassBreak:
		return "glass-break transient"
	case EventFallImpact:
		return "heavy low-frequency impact"
	default:
		return string(event)
	}
}
