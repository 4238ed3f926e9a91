package stage

import (
	"vigil/internal/queue"
	"vigil/internal/services"
)

// ParseAudioWindow decodes the audio payload carried on a job.
// On failure it returns a services.ErrValidation suitable for handler Analyze
// methods; a job without a decodable window can never succeed on retry.
func ParseAudioWindow(job *queue.Job) (*queue.AudioPayload, error) {
	payload, err := queue.DecodeAudioPayload(job.AudioJSON)
	if err != nil {
		return nil, services.Wrap(
			services.ErrValidation, "stage", "parse audio window",
			"audio payload missing or invalid", err)
	}
	return payload, nil
}
