package vision

import (
	"strings"

	"vigil/internal/concern"
)

// keywordTiers maps model vocabulary onto the concern scale. Tiers are
// ordered most severe first so the strongest matching keyword wins even when
// several appear in one response.
var keywordTiers = []struct {
	level    concern.Level
	keywords []string
}{
	{concern.LevelCritical, []string{"critical", "emergency", "immediate"}},
	{concern.LevelHigh, []string{"urgent", "danger"}},
	{concern.LevelMedium, []string{"moderate", "attention"}},
	{concern.LevelLow, []string{"minor", "slight"}},
	{concern.LevelNone, []string{"normal", "safe", "fine"}},
}

// ParseConcern grades free-form completion text by case-insensitive substring
// match against the keyword table. Text that matches no tier grades as low,
// never none, so unparseable output still reaches an operator.
func ParseConcern(text string) concern.Level {
	lowered := strings.ToLower(text)
	for _, tier := range keywordTiers {
		for _, keyword := range tier.keywords {
			if strings.Contains(lowered, keyword) {
				return tier.level
			}
		}
	}
	return concern.LevelLow
}
