package analysis

import (
	"encoding/json"
	"fmt"
	"time"

	"vigil/internal/concern"
)

// Path identifies which tier of the pipeline produced the final answer.
type Path string

const (
	PathTriage   Path = "triage"
	PathDetailed Path = "detailed"
	PathFallback Path = "fallback"
	PathAudio    Path = "audio"
)

// Finding describes one acoustic event decision from the spectral analyzer.
type Finding struct {
	Detected    bool          `json:"detected"`
	Event       string        `json:"event"`
	Confidence  float64       `json:"confidence"`
	Concern     concern.Level `json:"concern"`
	MatchedHz   []float64     `json:"matched_hz,omitempty"`
	Description string        `json:"description,omitempty"`
}

// Result is the outcome of processing one job.
type Result struct {
	Concern      concern.Level `json:"concern"`
	Description  string        `json:"description"`
	Model        string        `json:"model,omitempty"`
	Path         Path          `json:"path"`
	UsedFallback bool          `json:"used_fallback,omitempty"`
	Elapsed      time.Duration `json:"elapsed_ns,omitempty"`
	Findings     []Finding     `json:"findings,omitempty"`
}

// TopConcern returns the most severe concern across the result and its
// findings. Audio results aggregate this way because per-finding concern is
// never reduced by the analyzer itself.
func (r *Result) TopConcern() concern.Level {
	top := r.Concern
	for _, f := range r.Findings {
		top = concern.Max(top, f.Concern)
	}
	return top
}

// Encode serializes the result for storage on a job record.
func (r *Result) Encode() (string, error) {
	data, err := json.Marshal(r)
	if err != nil {
		return "", fmt.Errorf("encode analysis result: %w", err)
	}
	return string(data), nil
}

// Decode parses a stored result. Empty input yields nil without error so
// callers can treat jobs without results uniformly.
func Decode(raw string) (*Result, error) {
	if raw == "" {
		return nil, nil
	}
	var result Result
	if err := json.Unmarshal([]byte(raw), &result); err != nil {
		return nil, fmt.Errorf("decode analysis result: %w", err)
	}
	return &result, nil
}
