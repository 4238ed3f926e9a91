package inference

import (
	"context"
	"time"
)

// Request describes one vision completion call. Exactly one of ImagePath or
// ImageB64 must be set; backends read ImagePath from disk only when ImageB64
// is empty, so callers that already hold the encoded frame avoid a second
// read.
type Request struct {
	Model     string
	Prompt    string
	ImagePath string
	ImageB64  string
}

// Response carries the completion text plus enough metadata to attribute it.
type Response struct {
	Text    string
	Model   string
	Latency time.Duration
}

// Backend generates a completion for a frame. Implementations classify their
// failures with the services sentinel errors so the caller can distinguish a
// transient outage from a misconfigured endpoint.
type Backend interface {
	Name() string
	Generate(ctx context.Context, req Request) (Response, error)
}
