package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/skillsenselab/voiceclip/errors"
	"github.com/skillsenselab/voiceclip/extract"
	"github.com/skillsenselab/voiceclip/inference"
	"github.com/skillsenselab/voiceclip/logger"
	"github.com/skillsenselab/voiceclip/match"
	"github.com/skillsenselab/voiceclip/progress"
	"github.com/skillsenselab/voiceclip/storage"
)

// Fetcher downloads a remote video to a local file.
type Fetcher interface {
	Fetch(ctx context.Context, url, dst string) error
}

// Transcoder covers the ffmpeg operations the pipeline needs.
type Transcoder interface {
	ExtractAudio(ctx context.Context, src, dst string) error
	Reencode(ctx context.Context, src, dst string) error
	extract.AudioSlicer
	extract.VideoCutter
}

// Runner executes one clipping task end to end: fetch or accept the video,
// extract audio, diarize, match speakers against the reference voice, cut
// the matching segments, and upload the result.
type Runner struct {
	cfg       Config
	fetcher   Fetcher
	media     Transcoder
	inference inference.Client
	extractor *extract.Extractor
	progress  *progress.Store
	store     storage.Storage
	keyPrefix string
	log       *logger.Logger
	tracer    trace.Tracer
}

// NewRunner wires a Runner from its collaborators.
func NewRunner(cfg Config, fetcher Fetcher, media Transcoder, inf inference.Client, store storage.Storage, keyPrefix string, prog *progress.Store) *Runner {
	cfg.ApplyDefaults()
	return &Runner{
		cfg:       cfg,
		fetcher:   fetcher,
		media:     media,
		inference: inf,
		extractor: extract.New(cfg.Workers),
		progress:  prog,
		store:     store,
		keyPrefix: keyPrefix,
		log:       logger.WithComponent("pipeline"),
		tracer:    otel.Tracer("voiceclip/pipeline"),
	}
}

// Process runs the task to a terminal state. Panics are converted into a
// failed task instead of taking down the dispatcher. The scratch directory
// is removed no matter how the task ends.
func (r *Runner) Process(ctx context.Context, task *Task) {
	start := time.Now()
	log := r.log.WithFields(logger.Fields(logger.FieldTaskID, task.ID))

	ctx, span := r.tracer.Start(ctx, "pipeline.process",
		trace.WithAttributes(attribute.String("task.id", task.ID)))
	defer span.End()

	defer func() {
		if task.Dir != "" {
			if err := os.RemoveAll(task.Dir); err != nil {
				log.Warn("scratch cleanup failed", logger.ErrorFields("cleanup", err))
			}
		}
	}()

	defer func() {
		if rec := recover(); rec != nil {
			err := fmt.Errorf("task panic: %v", rec)
			span.RecordError(err)
			log.Error("task panicked", logger.ErrorFields("process", err))
			r.progress.Fail(task.ID, errors.Internal(err))
		}
	}()

	log.Info("task started")

	result, err := r.run(ctx, task)
	if err != nil {
		span.RecordError(err)
		log.Error("task failed", logger.ErrorFields("process", err))
		r.progress.Fail(task.ID, err)
		return
	}

	r.progress.Succeed(task.ID, *result)
	log.Info("task succeeded", logger.DurationFields("process", time.Since(start)))
}

func (r *Runner) run(ctx context.Context, task *Task) (*progress.Result, error) {
	videoPath := task.VideoPath

	// Stage: obtain the source video.
	if task.VideoURL != "" {
		videoPath = filepath.Join(task.Dir, "source.mp4")
		if err := r.stage(ctx, task.ID, "fetch", func(ctx context.Context) error {
			return r.fetcher.Fetch(ctx, task.VideoURL, videoPath)
		}); err != nil {
			return nil, errors.Collaborator("yt-dlp", err)
		}
	}
	r.progress.Progress(task.ID, "video ready", 10)

	// Stage: normalize the video so every slice shares one codec profile.
	prepared := filepath.Join(task.Dir, "prepared.mp4")
	if err := r.stage(ctx, task.ID, "reencode", func(ctx context.Context) error {
		return r.media.Reencode(ctx, videoPath, prepared)
	}); err != nil {
		return nil, errors.Collaborator("ffmpeg", err)
	}

	// Stage: pull the audio track for diarization.
	audioPath := filepath.Join(task.Dir, "audio.wav")
	if err := r.stage(ctx, task.ID, "extract_audio", func(ctx context.Context) error {
		return r.media.ExtractAudio(ctx, prepared, audioPath)
	}); err != nil {
		return nil, errors.Collaborator("ffmpeg", err)
	}
	r.progress.Progress(task.ID, "audio extracted", 30)

	// Stage: diarize.
	var segments []inference.Segment
	if err := r.stage(ctx, task.ID, "diarize", func(ctx context.Context) error {
		resp, err := r.inference.Diarize(ctx, inference.DiarizeRequest{AudioPath: audioPath})
		if err != nil {
			return err
		}
		segments = resp.Segments
		return nil
	}); err != nil {
		return nil, errors.Collaborator("inference", err)
	}
	r.progress.Progress(task.ID, "diarization complete", 50)

	// Stage: embed the reference voice and one sample per speaker, then
	// compare by cosine distance.
	var matched match.Result
	if err := r.stage(ctx, task.ID, "match", func(ctx context.Context) error {
		reference, err := r.inference.Embed(ctx, task.ReferencePath)
		if err != nil {
			return fmt.Errorf("reference embedding: %w", err)
		}

		samples, err := r.extractor.SpeakerAudio(ctx, r.media, audioPath, segments, task.Dir)
		if err != nil {
			return err
		}

		candidates := make(map[string]match.Vector, len(samples))
		for label, path := range samples {
			vec, err := r.inference.Embed(ctx, path)
			if err != nil {
				return fmt.Errorf("speaker %s embedding: %w", label, err)
			}
			candidates[label] = vec
		}

		matched = match.Speakers(reference, candidates, r.cfg.MatchThreshold)
		return nil
	}); err != nil {
		return nil, errors.Collaborator("inference", err)
	}

	matching := matchedLabels(matched)
	if len(matching) == 0 {
		return nil, errors.NoMatchingSpeakers()
	}
	r.progress.Progress(task.ID, "speakers matched", 70)

	// Stage: cut and join the matching segments.
	var clipped string
	if err := r.stage(ctx, task.ID, "clip", func(ctx context.Context) error {
		out, err := r.extractor.Clips(ctx, r.media, prepared, segments, matched.Matching, task.Dir)
		if err != nil {
			return err
		}
		clipped = out
		return nil
	}); err != nil {
		if err == extract.ErrNoSegments {
			return nil, errors.NoSegmentsFound()
		}
		return nil, errors.Collaborator("ffmpeg", err)
	}
	r.progress.Progress(task.ID, "clips assembled", 80)

	// Stage: publish the result.
	key := fmt.Sprintf("%s/output_%s.mp4", r.keyPrefix, task.ID)
	r.progress.Progress(task.ID, "uploading output", 90)
	var videoURL string
	if err := r.stage(ctx, task.ID, "upload", func(ctx context.Context) error {
		f, err := os.Open(clipped)
		if err != nil {
			return err
		}
		defer f.Close()

		if err := r.store.Upload(ctx, key, f); err != nil {
			return err
		}
		videoURL, err = r.store.URL(ctx, key)
		return err
	}); err != nil {
		return nil, errors.UploadFailed(err)
	}
	r.progress.Progress(task.ID, "uploaded", 95)

	return &progress.Result{
		VideoURL:         videoURL,
		MatchingSpeakers: matching,
		SpeakerDistances: matched.Distances,
	}, nil
}

// stage runs fn inside its own trace span.
func (r *Runner) stage(ctx context.Context, taskID, name string, fn func(ctx context.Context) error) error {
	ctx, span := r.tracer.Start(ctx, "pipeline."+name,
		trace.WithAttributes(attribute.String("task.id", taskID)))
	defer span.End()

	if err := fn(ctx); err != nil {
		span.RecordError(err)
		return err
	}
	return nil
}

func matchedLabels(res match.Result) []string {
	labels := make([]string, 0, len(res.Matching))
	for label, ok := range res.Matching {
		if ok {
			labels = append(labels, label)
		}
	}
	sort.Strings(labels)
	return labels
}
