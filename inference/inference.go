// Package inference talks to the pyannote sidecar for speaker diarization and
// voice embeddings. The core depends only on the Client interface; collaborator
// failures surface as plain errors for the pipeline to wrap.
package inference

import (
	"context"
	"fmt"
	"time"

	"github.com/skillsenselab/voiceclip/match"
)

// Segment is a speaker-attributed time range in seconds. Boundaries are taken
// as reported by the diarizer.
type Segment struct {
	// Speaker is the anonymous speaker label (e.g. "SPEAKER_00").
	Speaker string `json:"speaker"`
	// Start is the segment start time in seconds.
	Start float64 `json:"start"`
	// End is the segment end time in seconds.
	End float64 `json:"end"`
}

// DiarizeRequest holds parameters for a diarization call.
type DiarizeRequest struct {
	// AudioPath is the path to the audio file to diarize.
	AudioPath string
	// Segmentation tunes the diarizer's segmentation model.
	Segmentation SegmentationParams
}

// SegmentationParams are the fixed segmentation knobs sent with every
// diarization request.
type SegmentationParams struct {
	// MinDurationOff is the minimum silence gap, in seconds, that splits turns.
	MinDurationOff float64 `yaml:"min_duration_off" mapstructure:"min_duration_off"`
	// Threshold is the onset/offset activation threshold.
	Threshold float64 `yaml:"threshold" mapstructure:"threshold"`
}

// DiarizeResponse holds the result of a diarization call.
type DiarizeResponse struct {
	// Segments contains speaker-attributed time segments.
	Segments []Segment `json:"segments"`
	// NumSpeakers is the number of distinct speakers detected.
	NumSpeakers int `json:"num_speakers"`
}

// Client is the interface to the diarization/embedding backend.
type Client interface {
	// Diarize sends audio for speaker diarization and returns the result.
	Diarize(ctx context.Context, req DiarizeRequest) (*DiarizeResponse, error)

	// Embed computes a whole-file speaker embedding for an audio artifact.
	Embed(ctx context.Context, audioPath string) (match.Vector, error)

	// IsAvailable reports whether the backend is reachable.
	IsAvailable(ctx context.Context) bool
}

// Config holds configuration for the sidecar client.
type Config struct {
	// BaseURL is the sidecar's HTTP base URL.
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
	// Timeout bounds each inference call.
	Timeout time.Duration `yaml:"timeout" mapstructure:"timeout"`
	// Segmentation is sent with every diarization request.
	Segmentation SegmentationParams `yaml:"segmentation" mapstructure:"segmentation"`
}

// ApplyDefaults fills unset fields with sensible defaults.
func (c *Config) ApplyDefaults() {
	if c.BaseURL == "" {
		c.BaseURL = "http://localhost:8388"
	}
	if c.Timeout == 0 {
		c.Timeout = 300 * time.Second
	}
	if c.Segmentation.MinDurationOff == 0 {
		c.Segmentation.MinDurationOff = 0.5
	}
	if c.Segmentation.Threshold == 0 {
		c.Segmentation.Threshold = 0.5
	}
}

// Validate checks the configuration for invalid values.
func (c *Config) Validate() error {
	if c.BaseURL == "" {
		return fmt.Errorf("inference.base_url is required")
	}
	if c.Timeout < 0 {
		return fmt.Errorf("inference.timeout must be non-negative (got: %s)", c.Timeout)
	}
	return nil
}
