package scenario

import "strings"

// Scenario names a monitoring subject.
type Scenario string

const (
	Pet     Scenario = "pet"
	Baby    Scenario = "baby"
	Elderly Scenario = "elderly"
)

var orderedScenarios = []Scenario{Pet, Baby, Elderly}

// Scenarios returns the known scenarios in a stable order.
func Scenarios() []Scenario {
	cp := make([]Scenario, len(orderedScenarios))
	copy(cp, orderedScenarios)
	return cp
}

// ParseScenario converts a string into a known Scenario.
func ParseScenario(value string) (Scenario, bool) {
	normalized := Scenario(strings.ToLower(strings.TrimSpace(value)))
	switch normalized {
	case Pet, Baby, Elderly:
		return normalized, true
	}
	return "", false
}

// String returns the scenario name.
func (s Scenario) String() string {
	return string(s)
}
