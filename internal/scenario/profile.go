package scenario

import (
	"fmt"

	"vigil/internal/config"
	"vigil/internal/queue"
)

// Profile carries the per-scenario knobs consumed by the vision cascade, the
// audio analyzer, and priority derivation.
type Profile struct {
	TriagePrompt    string
	DetailedPrompt  string
	MotionThreshold float64
	AudioThreshold  float64
	BasePriority    queue.Priority
}

// The prompts ask the model to lead with one severity word because the
// cascade's parser keys on exactly that vocabulary.
const severityInstruction = "Start your answer with exactly one severity word: " +
	"CRITICAL (immediate danger), URGENT (needs fast action), MODERATE (needs attention soon), " +
	"MINOR (slight irregularity), or NORMAL (everything is safe)."

var defaultProfiles = map[Scenario]Profile{
	Pet: {
		TriagePrompt: "You monitor a room with a pet through a fixed camera. " +
			"Look at this frame and answer with one word: CRITICAL, URGENT, MODERATE, MINOR, or NORMAL. " +
			"Chewing on cables, being somewhere dangerous, or visible injury is URGENT or worse.",
		DetailedPrompt: "You monitor a room with a pet. Describe what the animal is doing in this frame " +
			"and whether it is destructive, distressed, or in danger. " + severityInstruction,
		MotionThreshold: 0.50,
		AudioThreshold:  0.45,
		BasePriority:    queue.PriorityNormal,
	},
	Baby: {
		TriagePrompt: "You monitor an infant's room through a fixed camera. " +
			"Look at this frame and answer with one word: CRITICAL, URGENT, MODERATE, MINOR, or NORMAL. " +
			"A baby face-down, tangled in bedding, or climbing out of the crib is CRITICAL.",
		DetailedPrompt: "You monitor an infant's room. Describe the baby's position and state in this frame, " +
			"including anything near the face and whether the posture looks safe. " + severityInstruction,
		MotionThreshold: 0.35,
		AudioThreshold:  0.30,
		BasePriority:    queue.PriorityHigh,
	},
	Elderly: {
		TriagePrompt: "You monitor the home of an elderly person through a fixed camera. " +
			"Look at this frame and answer with one word: CRITICAL, URGENT, MODERATE, MINOR, or NORMAL. " +
			"A person on the floor or collapsed is CRITICAL.",
		DetailedPrompt: "You monitor the home of an elderly person. Describe what the person is doing in this frame, " +
			"whether they are upright, and any sign of a fall or distress. " + severityInstruction,
		MotionThreshold: 0.40,
		AudioThreshold:  0.35,
		BasePriority:    queue.PriorityHigh,
	},
}

// Set is an immutable scenario-to-profile lookup.
type Set struct {
	profiles map[Scenario]Profile
}

// DefaultSet returns the built-in profiles.
func DefaultSet() *Set {
	profiles := make(map[Scenario]Profile, len(defaultProfiles))
	for key, profile := range defaultProfiles {
		profiles[key] = profile
	}
	return &Set{profiles: profiles}
}

// NewSet layers configuration overrides on top of the built-in profiles.
// Empty override fields keep the built-in value.
func NewSet(cfg *config.Config) (*Set, error) {
	set := DefaultSet()
	if cfg == nil {
		return set, nil
	}
	for key, override := range cfg.Scenarios {
		sc, ok := ParseScenario(key)
		if !ok {
			return nil, fmt.Errorf("unknown scenario %q in configuration", key)
		}
		profile := set.profiles[sc]
		if override.TriagePrompt != "" {
			profile.TriagePrompt = override.TriagePrompt
		}
		if override.DetailedPrompt != "" {
			profile.DetailedPrompt = override.DetailedPrompt
		}
		if override.MotionThreshold > 0 {
			profile.MotionThreshold = override.MotionThreshold
		}
		if override.AudioThreshold > 0 {
			profile.AudioThreshold = override.AudioThreshold
		}
		if override.BasePriority != "" {
			priority, ok := queue.ParsePriority(override.BasePriority)
			if !ok {
				return nil, fmt.Errorf("scenario %q: unknown base priority %q", key, override.BasePriority)
			}
			profile.BasePriority = priority
		}
		set.profiles[sc] = profile
	}
	return set, nil
}

// Profile returns the profile for a scenario.
func (s *Set) Profile(sc Scenario) (Profile, bool) {
	profile, ok := s.profiles[sc]
	return profile, ok
}

// PriorityFor derives the queue priority for a submission: the scenario's base
// tier, bumped when the trigger magnitude crosses the scenario threshold,
// dropped for scheduled sweeps, clamped to the valid range.
func PriorityFor(profile Profile, trigger queue.Trigger, magnitude float64) queue.Priority {
	priority := profile.BasePriority
	switch trigger {
	case queue.TriggerMotion:
		if magnitude >= profile.MotionThreshold {
			priority = priority.Shift(1)
		}
	case queue.TriggerAudio:
		if magnitude >= profile.AudioThreshold {
			priority = priority.Shift(1)
		}
	case queue.TriggerScheduled:
		priority = priority.Shift(-1)
	}
	return priority
}
