package inference

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"

	"github.com/skillsenselab/voiceclip/match"
)

// Pyannote implements Client against the pyannote HTTP sidecar.
type Pyannote struct {
	cfg    Config
	client *http.Client
}

// NewPyannote creates a sidecar client from the given config.
func NewPyannote(cfg Config) *Pyannote {
	cfg.ApplyDefaults()
	return &Pyannote{
		cfg: cfg,
		client: &http.Client{
			Timeout: cfg.Timeout,
		},
	}
}

// IsAvailable checks if the sidecar is reachable.
func (p *Pyannote) IsAvailable(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.cfg.BaseURL+"/health", nil)
	if err != nil {
		return false
	}
	resp, err := p.client.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

// Diarize sends audio to the sidecar and returns speaker segments. When the
// request leaves Segmentation unset, the configured parameters are sent.
func (p *Pyannote) Diarize(ctx context.Context, req DiarizeRequest) (*DiarizeResponse, error) {
	seg := req.Segmentation
	if seg == (SegmentationParams{}) {
		seg = p.cfg.Segmentation
	}
	fields := map[string]string{
		"min_duration_off": fmt.Sprintf("%g", seg.MinDurationOff),
		"threshold":        fmt.Sprintf("%g", seg.Threshold),
	}

	var result pyannoteDiarization
	if err := p.postAudio(ctx, "/diarize", req.AudioPath, fields, &result); err != nil {
		return nil, err
	}
	if result.Error != "" {
		return nil, fmt.Errorf("diarization error: %s", result.Error)
	}

	segments := make([]Segment, len(result.Segments))
	for i, seg := range result.Segments {
		segments[i] = Segment{
			Speaker: seg.SpeakerID,
			Start:   seg.StartTime,
			End:     seg.EndTime,
		}
	}
	return &DiarizeResponse{
		Segments:    segments,
		NumSpeakers: result.NumSpeakers,
	}, nil
}

// Embed computes a whole-file embedding for the audio at audioPath.
func (p *Pyannote) Embed(ctx context.Context, audioPath string) (match.Vector, error) {
	var result pyannoteEmbedding
	if err := p.postAudio(ctx, "/embed", audioPath, map[string]string{"window": "whole"}, &result); err != nil {
		return nil, err
	}
	if result.Error != "" {
		return nil, fmt.Errorf("embedding error: %s", result.Error)
	}
	if len(result.Embedding) == 0 {
		return nil, fmt.Errorf("embedding error: empty vector for %s", filepath.Base(audioPath))
	}
	return match.Vector(result.Embedding), nil
}

// postAudio uploads the audio file plus form fields and decodes the JSON reply.
func (p *Pyannote) postAudio(ctx context.Context, path, audioPath string, fields map[string]string, out any) error {
	audioData, err := os.ReadFile(audioPath)
	if err != nil {
		return fmt.Errorf("read audio file: %w", err)
	}

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	part, err := writer.CreateFormFile("audio", filepath.Base(audioPath))
	if err != nil {
		return fmt.Errorf("create form file: %w", err)
	}
	if _, err := part.Write(audioData); err != nil {
		return fmt.Errorf("write audio data: %w", err)
	}
	for k, v := range fields {
		_ = writer.WriteField(k, v)
	}
	writer.Close()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.cfg.BaseURL+path, &buf)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return fmt.Errorf("inference request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("inference error (status %d): %s", resp.StatusCode, string(body))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode inference response: %w", err)
	}
	return nil
}

// --- internal sidecar API types ---

type pyannoteDiarization struct {
	Segments    []pyannoteSegment `json:"segments"`
	NumSpeakers int               `json:"num_speakers"`
	Error       string            `json:"error,omitempty"`
}

type pyannoteSegment struct {
	SpeakerID string  `json:"speaker_id"`
	StartTime float64 `json:"start_time"`
	EndTime   float64 `json:"end_time"`
}

type pyannoteEmbedding struct {
	Embedding []float64 `json:"embedding"`
	Error     string    `json:"error,omitempty"`
}

// compile-time check
var _ Client = (*Pyannote)(nil)
