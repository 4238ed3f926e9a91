package main

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/spf13/cobra"

	"vigil/internal/api"
	"vigil/internal/ipc"
)

func newSubmitCommand(ctx *commandContext) *cobra.Command {
	var streamID string
	var scenarioName string
	var trigger string
	var magnitude float64
	var framePath string
	var toneHz []float64
	var audioSeconds float64
	var audioRate int

	cmd := &cobra.Command{
		Use:   "submit",
		Short: "Submit an analysis job to the running daemon",
		Long: "Submit enqueues a frame or audio analysis job. Frame jobs reference an " +
			"image on disk with --frame; audio jobs synthesize a test window from one " +
			"or more --tone frequencies, which is useful for exercising the spectral " +
			"analyzer without a live microphone.",
		RunE: func(cmd *cobra.Command, args []string) error {
			if strings.TrimSpace(framePath) != "" && len(toneHz) > 0 {
				return errors.New("specify either --frame or --tone, not both")
			}
			if strings.TrimSpace(framePath) == "" && len(toneHz) == 0 {
				return errors.New("a submission needs --frame or at least one --tone")
			}

			submission := api.SubmitRequest{
				StreamID:  streamID,
				Scenario:  scenarioName,
				Trigger:   trigger,
				Magnitude: magnitude,
			}
			if strings.TrimSpace(framePath) != "" {
				submission.FramePath = framePath
			} else {
				submission.Audio = synthesizeWindow(toneHz, audioSeconds, audioRate)
			}

			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.Submit(submission)
				if err != nil {
					return err
				}
				if ctx.JSONMode() {
					return writeJSON(cmd, resp)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Job %d enqueued at %s priority\n", resp.ID, resp.Priority)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&streamID, "stream", "cli", "Stream identifier for the job")
	cmd.Flags().StringVar(&scenarioName, "scenario", "pet", "Monitoring scenario (pet, baby, elderly)")
	cmd.Flags().StringVar(&trigger, "trigger", "scheduled", "Trigger cause (motion, audio, scheduled)")
	cmd.Flags().Float64Var(&magnitude, "magnitude", 0, "Trigger magnitude (motion score or audio RMS)")
	cmd.Flags().StringVar(&framePath, "frame", "", "Path to a frame image to analyze")
	cmd.Flags().Float64SliceVar(&toneHz, "tone", nil, "Sine frequency in Hz for a synthetic audio window (repeatable)")
	cmd.Flags().Float64Var(&audioSeconds, "seconds", 1.0, "Synthetic audio window length in seconds")
	cmd.Flags().IntVar(&audioRate, "rate", 16000, "Synthetic audio sample rate in Hz")
	return cmd
}

// synthesizeWindow mixes equal-amplitude sines at the given frequencies and
// reports the true RMS of the mix so the silence gate sees realistic input.
func synthesizeWindow(frequencies []float64, seconds float64, sampleRate int) *api.AudioWindow {
	if seconds <= 0 {
		seconds = 1.0
	}
	if sampleRate <= 0 {
		sampleRate = 16000
	}
	count := int(seconds * float64(sampleRate))
	if count < 1 {
		count = 1
	}

	amplitude := 0.8 / float64(len(frequencies))
	samples := make([]float64, count)
	var sumSquares float64
	for i := range samples {
		t := float64(i) / float64(sampleRate)
		var v float64
		for _, freq := range frequencies {
			v += amplitude * math.Sin(2*math.Pi*freq*t)
		}
		samples[i] = v
		sumSquares += v * v
	}

	return &api.AudioWindow{
		Samples:    samples,
		SampleRate: sampleRate,
		RMS:        math.Sqrt(sumSquares / float64(count)),
	}
}
