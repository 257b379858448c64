package extract

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"testing"

	"github.com/skillsenselab/voiceclip/inference"
)

// fakeTool records slice and concat calls and creates the output files so
// skip-existing logic can be exercised.
type fakeTool struct {
	mu      sync.Mutex
	slices  []string
	concats [][]string
	fail    string // dst substring that triggers an error
}

func (f *fakeTool) record(src string, start, end float64, dst string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail != "" && strings.Contains(dst, f.fail) {
		return errors.New("tool failure")
	}
	f.slices = append(f.slices, fmt.Sprintf("%s[%g:%g]->%s", filepath.Base(src), start, end, filepath.Base(dst)))
	return os.WriteFile(dst, []byte("data"), 0o644)
}

func (f *fakeTool) SliceAudio(_ context.Context, src string, start, end float64, dst string) error {
	return f.record(src, start, end, dst)
}

func (f *fakeTool) Slice(_ context.Context, src string, start, end float64, dst string) error {
	return f.record(src, start, end, dst)
}

func (f *fakeTool) Concat(_ context.Context, parts []string, dst string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.concats = append(f.concats, parts)
	return os.WriteFile(dst, []byte("joined"), 0o644)
}

func segs() []inference.Segment {
	return []inference.Segment{
		{Speaker: "SPEAKER_00", Start: 0.0, End: 2.0},
		{Speaker: "SPEAKER_01", Start: 2.0, End: 3.5},
		{Speaker: "SPEAKER_00", Start: 3.5, End: 6.0},
		{Speaker: "SPEAKER_01", Start: 6.0, End: 7.0},
	}
}

func TestSpeakerAudio(t *testing.T) {
	dir := t.TempDir()
	tool := &fakeTool{}
	ex := New(4)

	paths, err := ex.SpeakerAudio(context.Background(), tool, "audio.wav", segs(), dir)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(paths) != 2 {
		t.Fatalf("expected 2 speaker files, got %d", len(paths))
	}
	if len(tool.slices) != 2 {
		t.Errorf("expected one slice per speaker, got %d: %v", len(tool.slices), tool.slices)
	}

	sort.Strings(tool.slices)
	// The first segment each speaker owns is the sample.
	if tool.slices[0] != "audio.wav[0:2]->SPEAKER_00.wav" {
		t.Errorf("unexpected slice: %s", tool.slices[0])
	}
	if tool.slices[1] != "audio.wav[2:3.5]->SPEAKER_01.wav" {
		t.Errorf("unexpected slice: %s", tool.slices[1])
	}
}

func TestSpeakerAudio_SkipsExisting(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "SPEAKER_00.wav"), []byte("old"), 0o644); err != nil {
		t.Fatal(err)
	}

	tool := &fakeTool{}
	ex := New(2)
	paths, err := ex.SpeakerAudio(context.Background(), tool, "audio.wav", segs(), dir)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(paths) != 2 {
		t.Fatalf("expected 2 speaker files, got %d", len(paths))
	}
	if len(tool.slices) != 1 {
		t.Errorf("expected existing file to be skipped, got slices %v", tool.slices)
	}

	// The pre-existing artifact was left untouched.
	data, _ := os.ReadFile(filepath.Join(dir, "SPEAKER_00.wav"))
	if string(data) != "old" {
		t.Error("expected existing artifact to be preserved")
	}
}

func TestSpeakerAudio_AllMalformed(t *testing.T) {
	tool := &fakeTool{}
	ex := New(2)
	bad := []inference.Segment{
		{Speaker: "SPEAKER_00", Start: 5.0, End: 2.0},
		{Speaker: "SPEAKER_01", Start: -1.0, End: 1.0},
	}
	paths, err := ex.SpeakerAudio(context.Background(), tool, "audio.wav", bad, t.TempDir())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(paths) != 0 {
		t.Errorf("expected no candidate speakers, got %v", paths)
	}
	if len(tool.slices) != 0 {
		t.Errorf("expected no slicing work, got %d slices", len(tool.slices))
	}
}

func TestSpeakerAudio_KeepsArtifactWhenSegmentsDegrade(t *testing.T) {
	dir := t.TempDir()
	existing := filepath.Join(dir, "SPEAKER_00.wav")
	if err := os.WriteFile(existing, []byte("earlier run"), 0o644); err != nil {
		t.Fatal(err)
	}

	// A rerun where the diarizer now reports only a malformed interval for
	// the speaker still reuses the sample cut on the previous run.
	tool := &fakeTool{}
	ex := New(2)
	degraded := []inference.Segment{{Speaker: "SPEAKER_00", Start: 4.0, End: 1.0}}

	paths, err := ex.SpeakerAudio(context.Background(), tool, "audio.wav", degraded, dir)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := paths["SPEAKER_00"]; got != existing {
		t.Errorf("expected existing artifact %s, got %q", existing, got)
	}
	if len(tool.slices) != 0 {
		t.Errorf("expected no slicing work, got %v", tool.slices)
	}
}

func TestClips(t *testing.T) {
	dir := t.TempDir()
	tool := &fakeTool{}
	ex := New(4)

	matching := map[string]bool{"SPEAKER_00": true}
	out, err := ex.Clips(context.Background(), tool, "video.mp4", segs(), matching, dir)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != filepath.Join(dir, "clipped.mp4") {
		t.Errorf("unexpected output path: %s", out)
	}
	if len(tool.slices) != 2 {
		t.Fatalf("expected 2 clips for SPEAKER_00, got %d: %v", len(tool.slices), tool.slices)
	}

	// Concat sees the parts in temporal order regardless of which worker
	// finished first.
	if len(tool.concats) != 1 {
		t.Fatalf("expected 1 concat, got %d", len(tool.concats))
	}
	parts := tool.concats[0]
	if len(parts) != 2 {
		t.Fatalf("expected 2 parts, got %v", parts)
	}
	if filepath.Base(parts[0]) != "part_0000.mp4" || filepath.Base(parts[1]) != "part_0001.mp4" {
		t.Errorf("parts out of order: %v", parts)
	}
}

func TestClips_NoMatchingSegments(t *testing.T) {
	tool := &fakeTool{}
	ex := New(2)

	_, err := ex.Clips(context.Background(), tool, "video.mp4", segs(), map[string]bool{"SPEAKER_99": true}, t.TempDir())
	if !errors.Is(err, ErrNoSegments) {
		t.Fatalf("expected ErrNoSegments, got %v", err)
	}
}

func TestClips_SkipsMalformedSegments(t *testing.T) {
	dir := t.TempDir()
	tool := &fakeTool{}
	ex := New(2)

	mixed := []inference.Segment{
		{Speaker: "SPEAKER_00", Start: 0.0, End: 2.0},
		{Speaker: "SPEAKER_00", Start: 4.0, End: 3.0}, // inverted, skipped
	}
	out, err := ex.Clips(context.Background(), tool, "video.mp4", mixed, map[string]bool{"SPEAKER_00": true}, dir)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out == "" || len(tool.slices) != 1 {
		t.Errorf("expected 1 clip, got %v", tool.slices)
	}
}

func TestClips_SliceFailure(t *testing.T) {
	tool := &fakeTool{fail: "part_0001"}
	ex := New(2)

	_, err := ex.Clips(context.Background(), tool, "video.mp4", segs(), map[string]bool{"SPEAKER_00": true, "SPEAKER_01": true}, t.TempDir())
	if err == nil {
		t.Fatal("expected slice failure to propagate")
	}
	if !strings.Contains(err.Error(), "tool failure") {
		t.Errorf("expected wrapped tool error, got %v", err)
	}
}
