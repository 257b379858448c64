// Package extract turns diarization segments into per-speaker audio artifacts
// and assembles the final clipped video for the matching speakers.
package extract

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/skillsenselab/voiceclip/inference"
	"github.com/skillsenselab/voiceclip/logger"
)

// ErrNoSegments is returned when the matching speakers own no usable segments.
var ErrNoSegments = errors.New("extract: no segments for matching speakers")

// AudioSlicer cuts an interval out of a wav file.
type AudioSlicer interface {
	SliceAudio(ctx context.Context, src string, start, end float64, dst string) error
}

// VideoCutter cuts intervals out of a video and joins the parts back together.
type VideoCutter interface {
	Slice(ctx context.Context, src string, start, end float64, dst string) error
	Concat(ctx context.Context, parts []string, dst string) error
}

// Extractor runs the slicing work across a bounded worker pool.
type Extractor struct {
	workers int
	log     *logger.Logger
}

// New returns an Extractor with the given pool size. Sizes below one fall
// back to a single worker.
func New(workers int) *Extractor {
	if workers < 1 {
		workers = 1
	}
	return &Extractor{
		workers: workers,
		log:     logger.WithComponent("extract"),
	}
}

// SpeakerAudio cuts one audio sample per speaker label out of audioPath,
// writing <label>.wav files into dir. The first segment each speaker owns is
// the sample. Files already present in dir are kept as-is, so a rerun over
// the same scratch directory skips finished work.
func (e *Extractor) SpeakerAudio(ctx context.Context, slicer AudioSlicer, audioPath string, segments []inference.Segment, dir string) (map[string]string, error) {
	// Deduplicate by label before dispatching so no two workers race on the
	// same output file.
	seen := make(map[string]bool)
	first := make(map[string]inference.Segment)
	for _, seg := range segments {
		seen[seg.Speaker] = true
		if !e.usable(seg) {
			continue
		}
		if _, ok := first[seg.Speaker]; !ok {
			first[seg.Speaker] = seg
		}
	}

	// A label with no usable segment is dropped unless a previous run already
	// produced its sample. No candidates at all is not a failure here; the
	// caller resolves an empty candidate set against the reference voice.
	paths := make(map[string]string, len(first))
	jobs := make([]inference.Segment, 0, len(first))
	for label := range seen {
		path := filepath.Join(dir, label+".wav")
		if _, err := os.Stat(path); err == nil {
			e.log.Debug("speaker audio exists, skipping", logger.Fields("speaker", label))
			paths[label] = path
			continue
		}
		seg, ok := first[label]
		if !ok {
			continue
		}
		paths[label] = path
		jobs = append(jobs, seg)
	}

	if err := e.runPool(ctx, len(jobs), func(ctx context.Context, i int) error {
		seg := jobs[i]
		dst := paths[seg.Speaker]
		if err := slicer.SliceAudio(ctx, audioPath, seg.Start, seg.End, dst); err != nil {
			return fmt.Errorf("extract: speaker %s audio: %w", seg.Speaker, err)
		}
		return nil
	}); err != nil {
		return nil, err
	}
	return paths, nil
}

// Clips cuts every segment owned by a matching speaker out of videoPath,
// in temporal order, and concatenates the parts into a single video written
// inside dir. Returns the output path.
func (e *Extractor) Clips(ctx context.Context, cutter VideoCutter, videoPath string, segments []inference.Segment, matching map[string]bool, dir string) (string, error) {
	var keep []inference.Segment
	for _, seg := range segments {
		if !matching[seg.Speaker] {
			continue
		}
		if !e.usable(seg) {
			continue
		}
		keep = append(keep, seg)
	}
	if len(keep) == 0 {
		return "", ErrNoSegments
	}

	sort.SliceStable(keep, func(i, j int) bool { return keep[i].Start < keep[j].Start })

	parts := make([]string, len(keep))
	for i := range keep {
		parts[i] = filepath.Join(dir, fmt.Sprintf("part_%04d.mp4", i))
	}

	if err := e.runPool(ctx, len(keep), func(ctx context.Context, i int) error {
		seg := keep[i]
		if err := cutter.Slice(ctx, videoPath, seg.Start, seg.End, parts[i]); err != nil {
			return fmt.Errorf("extract: clip %d [%g, %g): %w", i, seg.Start, seg.End, err)
		}
		return nil
	}); err != nil {
		return "", err
	}

	out := filepath.Join(dir, "clipped.mp4")
	if err := cutter.Concat(ctx, parts, out); err != nil {
		return "", fmt.Errorf("extract: concat: %w", err)
	}
	return out, nil
}

// usable rejects segments whose interval cannot be cut.
func (e *Extractor) usable(seg inference.Segment) bool {
	if seg.Start < 0 || seg.End <= seg.Start {
		e.log.Warn("skipping malformed segment", logger.Fields(
			"speaker", seg.Speaker,
			"start", seg.Start,
			"end", seg.End,
		))
		return false
	}
	return true
}

// runPool executes fn(0..n-1) across the worker pool and returns the first
// error. Remaining jobs are drained once an error or cancellation is seen.
func (e *Extractor) runPool(ctx context.Context, n int, fn func(ctx context.Context, i int) error) error {
	if n == 0 {
		return nil
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	jobs := make(chan int)
	errc := make(chan error, 1)

	var wg sync.WaitGroup
	workers := e.workers
	if workers > n {
		workers = n
	}
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				if ctx.Err() != nil {
					continue
				}
				if err := fn(ctx, i); err != nil {
					select {
					case errc <- err:
					default:
					}
					cancel()
				}
			}
		}()
	}

	for i := 0; i < n; i++ {
		jobs <- i
	}
	close(jobs)
	wg.Wait()

	select {
	case err := <-errc:
		return err
	default:
	}
	return ctx.Err()
}
