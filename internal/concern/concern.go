package concern

import "strings"

// Level grades how worrying an observation is.
type Level string

const (
	LevelNone     Level = "none"
	LevelLow      Level = "low"
	LevelMedium   Level = "medium"
	LevelHigh     Level = "high"
	LevelCritical Level = "critical"
)

var orderedLevels = []Level{
	LevelNone,
	LevelLow,
	LevelMedium,
	LevelHigh,
	LevelCritical,
}

var levelRanks = func() map[Level]int {
	ranks := make(map[Level]int, len(orderedLevels))
	for i, level := range orderedLevels {
		ranks[level] = i
	}
	return ranks
}()

// Levels returns the known levels from least to most severe.
func Levels() []Level {
	cp := make([]Level, len(orderedLevels))
	copy(cp, orderedLevels)
	return cp
}

// ParseLevel converts a string into a known Level.
func ParseLevel(value string) (Level, bool) {
	normalized := Level(strings.ToLower(strings.TrimSpace(value)))
	if normalized == "" {
		return LevelNone, false
	}
	_, ok := levelRanks[normalized]
	if !ok {
		return LevelNone, false
	}
	return normalized, true
}

// Rank returns the level's position in the severity order, none=0 through
// critical=4. Unknown values rank below none.
func (l Level) Rank() int {
	rank, ok := levelRanks[l]
	if !ok {
		return -1
	}
	return rank
}

// Valid reports whether the level is one of the five known values.
func (l Level) Valid() bool {
	_, ok := levelRanks[l]
	return ok
}

// AtLeast reports whether l is as severe as other or more so.
func (l Level) AtLeast(other Level) bool {
	return l.Rank() >= other.Rank()
}

// Max returns the more severe of two levels.
func Max(a, b Level) Level {
	if b.Rank() > a.Rank() {
		return b
	}
	return a
}

func (l Level) String() string {
	return string(l)
}
