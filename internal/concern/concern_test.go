package concern_test

import (
	"testing"

	"vigil/internal/concern"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input string
		want  concern.Level
		ok    bool
	}{
		{"none", concern.LevelNone, true},
		{"LOW", concern.LevelLow, true},
		{"  Medium  ", concern.LevelMedium, true},
		{"high", concern.LevelHigh, true},
		{"CRITICAL", concern.LevelCritical, true},
		{"", concern.LevelNone, false},
		{"panic", concern.LevelNone, false},
	}
	for _, tc := range tests {
		got, ok := concern.ParseLevel(tc.input)
		if ok != tc.ok || got != tc.want {
			t.Fatalf("ParseLevel(%q) = (%s, %v), want (%s, %v)", tc.input, got, ok, tc.want, tc.ok)
		}
	}
}

func TestOrderingIsTotal(t *testing.T) {
	levels := concern.Levels()
	if len(levels) != 5 {
		t.Fatalf("expected 5 levels, got %d", len(levels))
	}
	for i := 1; i < len(levels); i++ {
		if levels[i].Rank() <= levels[i-1].Rank() {
			t.Fatalf("expected %s to outrank %s", levels[i], levels[i-1])
		}
		if !levels[i].AtLeast(levels[i-1]) {
			t.Fatalf("expected %s to be at least %s", levels[i], levels[i-1])
		}
		if levels[i-1].AtLeast(levels[i]) {
			t.Fatalf("did not expect %s to be at least %s", levels[i-1], levels[i])
		}
	}
}

func TestMax(t *testing.T) {
	if got := concern.Max(concern.LevelLow, concern.LevelHigh); got != concern.LevelHigh {
		t.Fatalf("Max(low, high) = %s", got)
	}
	if got := concern.Max(concern.LevelCritical, concern.LevelMedium); got != concern.LevelCritical {
		t.Fatalf("Max(critical, medium) = %s", got)
	}
	if got := concern.Max(concern.LevelNone, concern.LevelNone); got != concern.LevelNone {
		t.Fatalf("Max(none, none) = %s", got)
	}
}

func TestUnknownLevelRanksBelowNone(t *testing.T) {
	var unknown concern.Level = "weird"
	if unknown.Valid() {
		t.Fatal("expected unknown level to be invalid")
	}
	if unknown.Rank() >= concern.LevelNone.Rank() {
		t.Fatalf("expected unknown level to rank below none, got %d", unknown.Rank())
	}
}
