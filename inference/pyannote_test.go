package inference

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
)

func writeTempAudio(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "ref.wav")
	if err := os.WriteFile(path, []byte("RIFFfake"), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestPyannote_Diarize(t *testing.T) {
	var gotMinDurationOff string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/diarize" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Fatalf("parse multipart: %v", err)
		}
		gotMinDurationOff = r.FormValue("min_duration_off")
		if _, _, err := r.FormFile("audio"); err != nil {
			t.Errorf("expected audio part: %v", err)
		}
		json.NewEncoder(w).Encode(map[string]any{
			"segments": []map[string]any{
				{"speaker_id": "SPEAKER_00", "start_time": 0.5, "end_time": 2.25},
				{"speaker_id": "SPEAKER_01", "start_time": 2.25, "end_time": 4.0},
			},
			"num_speakers": 2,
		})
	}))
	defer srv.Close()

	client := NewPyannote(Config{BaseURL: srv.URL})
	resp, err := client.Diarize(context.Background(), DiarizeRequest{
		AudioPath:    writeTempAudio(t),
		Segmentation: SegmentationParams{MinDurationOff: 0.5, Threshold: 0.5},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(resp.Segments) != 2 {
		t.Fatalf("expected 2 segments, got %d", len(resp.Segments))
	}
	if resp.Segments[0].Speaker != "SPEAKER_00" || resp.Segments[0].Start != 0.5 {
		t.Errorf("unexpected first segment: %+v", resp.Segments[0])
	}
	if resp.NumSpeakers != 2 {
		t.Errorf("expected 2 speakers, got %d", resp.NumSpeakers)
	}
	if gotMinDurationOff != "0.5" {
		t.Errorf("expected min_duration_off=0.5, got %q", gotMinDurationOff)
	}
}

func TestPyannote_DiarizeUsesConfiguredSegmentation(t *testing.T) {
	var gotMinDurationOff, gotThreshold string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Fatalf("parse multipart: %v", err)
		}
		gotMinDurationOff = r.FormValue("min_duration_off")
		gotThreshold = r.FormValue("threshold")
		json.NewEncoder(w).Encode(map[string]any{"segments": []map[string]any{}})
	}))
	defer srv.Close()

	// Requests without explicit segmentation params get the configured ones.
	client := NewPyannote(Config{BaseURL: srv.URL})
	if _, err := client.Diarize(context.Background(), DiarizeRequest{AudioPath: writeTempAudio(t)}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotMinDurationOff != "0.5" {
		t.Errorf("expected configured min_duration_off=0.5, got %q", gotMinDurationOff)
	}
	if gotThreshold != "0.5" {
		t.Errorf("expected configured threshold=0.5, got %q", gotThreshold)
	}

	client = NewPyannote(Config{BaseURL: srv.URL, Segmentation: SegmentationParams{MinDurationOff: 1.5, Threshold: 0.25}})
	if _, err := client.Diarize(context.Background(), DiarizeRequest{AudioPath: writeTempAudio(t)}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotMinDurationOff != "1.5" || gotThreshold != "0.25" {
		t.Errorf("expected overridden params 1.5/0.25, got %q/%q", gotMinDurationOff, gotThreshold)
	}
}

func TestPyannote_Embed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/embed" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		json.NewEncoder(w).Encode(map[string]any{
			"embedding": []float64{0.1, 0.2, 0.3},
		})
	}))
	defer srv.Close()

	client := NewPyannote(Config{BaseURL: srv.URL})
	vec, err := client.Embed(context.Background(), writeTempAudio(t))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(vec) != 3 || vec[1] != 0.2 {
		t.Errorf("unexpected vector: %v", vec)
	}
}

func TestPyannote_EmbedEmptyVector(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"embedding": []float64{}})
	}))
	defer srv.Close()

	client := NewPyannote(Config{BaseURL: srv.URL})
	if _, err := client.Embed(context.Background(), writeTempAudio(t)); err == nil {
		t.Fatal("expected error for empty embedding")
	}
}

func TestPyannote_SidecarError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"error": "model not loaded"})
	}))
	defer srv.Close()

	client := NewPyannote(Config{BaseURL: srv.URL})
	if _, err := client.Diarize(context.Background(), DiarizeRequest{AudioPath: writeTempAudio(t)}); err == nil {
		t.Fatal("expected error from sidecar error field")
	}
}

func TestPyannote_HTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	client := NewPyannote(Config{BaseURL: srv.URL})
	if _, err := client.Diarize(context.Background(), DiarizeRequest{AudioPath: writeTempAudio(t)}); err == nil {
		t.Fatal("expected error for 500 status")
	}
}

func TestPyannote_IsAvailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" {
			w.WriteHeader(http.StatusOK)
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	client := NewPyannote(Config{BaseURL: srv.URL})
	if !client.IsAvailable(context.Background()) {
		t.Error("expected sidecar to be available")
	}

	srv.Close()
	if client.IsAvailable(context.Background()) {
		t.Error("expected sidecar to be unavailable after close")
	}
}

func TestConfig_Defaults(t *testing.T) {
	cfg := Config{}
	cfg.ApplyDefaults()
	if cfg.BaseURL == "" {
		t.Error("expected default base URL")
	}
	if cfg.Segmentation.MinDurationOff != 0.5 || cfg.Segmentation.Threshold != 0.5 {
		t.Errorf("unexpected segmentation defaults: %+v", cfg.Segmentation)
	}
}
