package scenario_test

import (
	"strings"
	"testing"

	"vigil/internal/config"
	"vigil/internal/queue"
	"vigil/internal/scenario"
)

func TestParseScenario(t *testing.T) {
	cases := []struct {
		input string
		want  scenario.Scenario
		ok    bool
	}{
		{input: "baby", want: scenario.Baby, ok: true},
		{input: " Elderly ", want: scenario.Elderly, ok: true},
		{input: "PET", want: scenario.Pet, ok: true},
		{input: "fish", ok: false},
		{input: "", ok: false},
	}
	for _, tc := range cases {
		got, ok := scenario.ParseScenario(tc.input)
		if ok != tc.ok {
			t.Fatalf("ParseScenario(%q) ok = %v, want %v", tc.input, ok, tc.ok)
		}
		if ok && got != tc.want {
			t.Fatalf("ParseScenario(%q) = %q, want %q", tc.input, got, tc.want)
		}
	}
}

func TestDefaultSetCoversEveryScenario(t *testing.T) {
	set := scenario.DefaultSet()
	for _, sc := range scenario.Scenarios() {
		profile, ok := set.Profile(sc)
		if !ok {
			t.Fatalf("missing profile for %s", sc)
		}
		if profile.TriagePrompt == "" || profile.DetailedPrompt == "" {
			t.Fatalf("%s profile has empty prompts", sc)
		}
		if profile.MotionThreshold <= 0 || profile.AudioThreshold <= 0 {
			t.Fatalf("%s profile has unset thresholds", sc)
		}
		// The keyword parser depends on the model answering with this
		// vocabulary, so every prompt must ask for it.
		for _, word := range []string{"CRITICAL", "URGENT", "NORMAL"} {
			if !strings.Contains(profile.TriagePrompt, word) {
				t.Fatalf("%s triage prompt never mentions %s", sc, word)
			}
			if !strings.Contains(profile.DetailedPrompt, word) {
				t.Fatalf("%s detailed prompt never mentions %s", sc, word)
			}
		}
	}
	if profile, _ := set.Profile(scenario.Baby); profile.BasePriority != queue.PriorityHigh {
		t.Fatalf("baby base priority = %s, want high", profile.BasePriority)
	}
	if profile, _ := set.Profile(scenario.Pet); profile.BasePriority != queue.PriorityNormal {
		t.Fatalf("pet base priority = %s, want normal", profile.BasePriority)
	}
}

func TestNewSetAppliesOverrides(t *testing.T) {
	cfg := config.Default()
	cfg.Scenarios = map[string]config.Scenario{
		"pet": {
			TriagePrompt:    "short pet check: answer CRITICAL, URGENT, MODERATE, MINOR, or NORMAL",
			MotionThreshold: 0.7,
			BasePriority:    "high",
		},
	}

	set, err := scenario.NewSet(&cfg)
	if err != nil {
		t.Fatalf("NewSet failed: %v", err)
	}

	pet, _ := set.Profile(scenario.Pet)
	if !strings.HasPrefix(pet.TriagePrompt, "short pet check") {
		t.Fatalf("triage prompt override lost: %q", pet.TriagePrompt)
	}
	if pet.MotionThreshold != 0.7 {
		t.Fatalf("motion threshold override lost: %v", pet.MotionThreshold)
	}
	if pet.BasePriority != queue.PriorityHigh {
		t.Fatalf("base priority override lost: %s", pet.BasePriority)
	}
	if pet.DetailedPrompt == "" {
		t.Fatal("unset override cleared the detailed prompt")
	}

	baby, _ := set.Profile(scenario.Baby)
	if baby.MotionThreshold != 0.35 {
		t.Fatalf("unrelated profile changed: %v", baby.MotionThreshold)
	}
}

func TestNewSetRejectsUnknownScenario(t *testing.T) {
	cfg := config.Default()
	cfg.Scenarios = map[string]config.Scenario{"fish": {}}
	if _, err := scenario.NewSet(&cfg); err == nil {
		t.Fatal("expected error for unknown scenario key")
	}
}

func TestPriorityDerivation(t *testing.T) {
	profile := scenario.Profile{
		MotionThreshold: 0.4,
		AudioThreshold:  0.3,
		BasePriority:    queue.PriorityHigh,
	}

	cases := []struct {
		name      string
		trigger   queue.Trigger
		magnitude float64
		want      queue.Priority
	}{
		{name: "motion below threshold", trigger: queue.TriggerMotion, magnitude: 0.2, want: queue.PriorityHigh},
		{name: "motion at threshold boosts", trigger: queue.TriggerMotion, magnitude: 0.4, want: queue.PriorityUrgent},
		{name: "audio boost", trigger: queue.TriggerAudio, magnitude: 0.9, want: queue.PriorityUrgent},
		{name: "scheduled sweep drops", trigger: queue.TriggerScheduled, magnitude: 0.9, want: queue.PriorityNormal},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := scenario.PriorityFor(profile, tc.trigger, tc.magnitude)
			if got != tc.want {
				t.Fatalf("PriorityFor = %s, want %s", got, tc.want)
			}
		})
	}

	// Boost clamps at urgent, scheduled clamps at low.
	urgentBase := scenario.Profile{MotionThreshold: 0.1, BasePriority: queue.PriorityUrgent}
	if got := scenario.PriorityFor(urgentBase, queue.TriggerMotion, 0.9); got != queue.PriorityUrgent {
		t.Fatalf("urgent boost escaped the range: %s", got)
	}
	lowBase := scenario.Profile{BasePriority: queue.PriorityLow}
	if got := scenario.PriorityFor(lowBase, queue.TriggerScheduled, 0); got != queue.PriorityLow {
		t.Fatalf("scheduled drop escaped the range: %s", got)
	}
}
