package vision_test

import (
	"testing"

	"vigil/internal/concern"
	"vigil/internal/vision"
)

func TestParseConcern(t *testing.T) {
	cases := []struct {
		name string
		text string
		want concern.Level
	}{
		{"critical keyword", "CRITICAL: infant is face down and not moving", concern.LevelCritical},
		{"emergency keyword", "This is an emergency, call for help", concern.LevelCritical},
		{"immediate keyword", "Immediate action required", concern.LevelCritical},
		{"urgent keyword", "URGENT: the person has fallen", concern.LevelHigh},
		{"danger keyword", "The dog is in danger near the stove", concern.LevelHigh},
		{"moderate keyword", "Moderate concern about the posture", concern.LevelMedium},
		{"attention keyword", "Needs attention soon", concern.LevelMedium},
		{"minor keyword", "Minor irregularity in the blanket position", concern.LevelLow},
		{"slight keyword", "A slight shift since the last frame", concern.LevelLow},
		{"normal keyword", "NORMAL: everything looks as expected", concern.LevelNone},
		{"safe keyword", "The room is safe and quiet", concern.LevelNone},
		{"fine keyword", "Everything is fine", concern.LevelNone},
		{"mixed case", "uRgEnT situation", concern.LevelHigh},
		{"strongest wins", "A minor issue, but the urgent part is the open door", concern.LevelHigh},
		{"critical beats normal", "Normally fine, but CRITICAL right now", concern.LevelCritical},
		{"unparseable text", "The weather outside is cloudy", concern.LevelLow},
		{"error text", "ERROR: connection refused", concern.LevelLow},
		{"empty text", "", concern.LevelLow},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := vision.ParseConcern(tc.text); got != tc.want {
				t.Fatalf("ParseConcern(%q) = %s, want %s", tc.text, got, tc.want)
			}
		})
	}
}
