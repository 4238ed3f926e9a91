package api

import (
	"fmt"
	"strings"

	"vigil/internal/queue"
	"vigil/internal/scenario"
	"vigil/internal/services"
)

// BuildJob validates a submission and assembles the job to enqueue. The queue
// priority is derived from the scenario profile, trigger, and magnitude; a
// malformed submission is rejected here so it never becomes a failed job
// record. All rejections carry services.ErrValidation.
func BuildJob(req SubmitRequest, profiles *scenario.Set) (*queue.Job, error) {
	streamID := strings.TrimSpace(req.StreamID)
	if streamID == "" {
		return nil, services.Wrap(services.ErrValidation, "api", "submit", "stream id required", nil)
	}

	sc, ok := scenario.ParseScenario(req.Scenario)
	if !ok {
		return nil, services.Wrap(services.ErrValidation, "api", "submit",
			fmt.Sprintf("unknown scenario %q", req.Scenario), nil)
	}
	trigger, ok := queue.ParseTrigger(req.Trigger)
	if !ok {
		return nil, services.Wrap(services.ErrValidation, "api", "submit",
			fmt.Sprintf("unknown trigger %q", req.Trigger), nil)
	}
	if req.Magnitude < 0 {
		return nil, services.Wrap(services.ErrValidation, "api", "submit", "magnitude must not be negative", nil)
	}

	framePath := strings.TrimSpace(req.FramePath)
	if framePath != "" && req.Audio != nil {
		return nil, services.Wrap(services.ErrValidation, "api", "submit",
			"submission carries both a frame and an audio window", nil)
	}
	if framePath == "" && req.Audio == nil {
		return nil, services.Wrap(services.ErrValidation, "api", "submit",
			"submission needs a frame path or an audio window", nil)
	}

	if profiles == nil {
		profiles = scenario.DefaultSet()
	}
	profile, ok := profiles.Profile(sc)
	if !ok {
		return nil, services.Wrap(services.ErrValidation, "api", "submit",
			fmt.Sprintf("no profile for scenario %q", sc), nil)
	}

	job := &queue.Job{
		StreamID:  streamID,
		Scenario:  string(sc),
		Trigger:   trigger,
		Priority:  scenario.PriorityFor(profile, trigger, req.Magnitude),
		Magnitude: req.Magnitude,
	}

	if framePath != "" {
		job.Kind = queue.KindFrame
		job.FramePath = framePath
		return job, nil
	}

	if len(req.Audio.Samples) == 0 {
		return nil, services.Wrap(services.ErrValidation, "api", "submit", "audio window has no samples", nil)
	}
	if req.Audio.SampleRate <= 0 {
		return nil, services.Wrap(services.ErrValidation, "api", "submit", "audio sample rate must be positive", nil)
	}
	encoded, err := queue.AudioPayload{
		Samples:    req.Audio.Samples,
		SampleRate: req.Audio.SampleRate,
		RMS:        req.Audio.RMS,
	}.Encode()
	if err != nil {
		return nil, services.Wrap(services.ErrValidation, "api", "submit", "encode audio window", err)
	}
	job.Kind = queue.KindAudio
	job.AudioJSON = encoded
	return job, nil
}
