package media

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/skillsenselab/voiceclip/process"
)

// FFmpeg wraps the ffmpeg binary for the audio and video transforms the
// clipping pipeline needs. All methods overwrite their destination.
type FFmpeg struct {
	cfg Config
	run process.Runner
}

// NewFFmpeg returns an FFmpeg wrapper. A nil runner uses process.Run.
func NewFFmpeg(cfg Config, runner process.Runner) *FFmpeg {
	cfg.ApplyDefaults()
	if runner == nil {
		runner = process.Run
	}
	return &FFmpeg{cfg: cfg, run: runner}
}

// ExtractAudio demuxes the audio track of src into a 16 kHz mono PCM wav at dst.
func (f *FFmpeg) ExtractAudio(ctx context.Context, src, dst string) error {
	args := []string{
		"-y",
		"-i", src,
		"-vn",
		"-acodec", "pcm_s16le",
		"-ar", "16000",
		"-ac", "1",
		dst,
	}
	return f.exec(ctx, args)
}

// Reencode downscales src to 480p with a fast low-bitrate encode, writing dst.
// The output is what gets sliced, so every clip shares one codec profile.
func (f *FFmpeg) Reencode(ctx context.Context, src, dst string) error {
	args := []string{
		"-y",
		"-i", src,
		"-vf", "scale=854:480",
		"-c:v", "libx264",
		"-preset", "ultrafast",
		"-crf", "28",
		"-c:a", "aac",
		dst,
	}
	return f.exec(ctx, args)
}

// Slice cuts the [start, end) interval of src into dst, re-encoding so the
// cut lands on exact timestamps rather than the nearest keyframe.
func (f *FFmpeg) Slice(ctx context.Context, src string, start, end float64, dst string) error {
	if end <= start {
		return fmt.Errorf("ffmpeg: invalid interval [%g, %g)", start, end)
	}
	args := []string{
		"-y",
		"-ss", formatSeconds(start),
		"-to", formatSeconds(end),
		"-i", src,
		"-c:v", "libx264",
		"-preset", "ultrafast",
		"-crf", "28",
		"-c:a", "aac",
		dst,
	}
	return f.exec(ctx, args)
}

// SliceAudio cuts the [start, end) interval of a wav file into dst without
// re-encoding the stream.
func (f *FFmpeg) SliceAudio(ctx context.Context, src string, start, end float64, dst string) error {
	if end <= start {
		return fmt.Errorf("ffmpeg: invalid interval [%g, %g)", start, end)
	}
	args := []string{
		"-y",
		"-ss", formatSeconds(start),
		"-to", formatSeconds(end),
		"-i", src,
		"-acodec", "copy",
		dst,
	}
	return f.exec(ctx, args)
}

// Concat joins the part files in order into dst using the concat demuxer.
// All parts must share a codec profile, which Slice guarantees.
func (f *FFmpeg) Concat(ctx context.Context, parts []string, dst string) error {
	if len(parts) == 0 {
		return fmt.Errorf("ffmpeg: no parts to concatenate")
	}

	listPath := filepath.Join(filepath.Dir(dst), "concat_list.txt")
	var list strings.Builder
	for _, p := range parts {
		abs, err := filepath.Abs(p)
		if err != nil {
			return fmt.Errorf("ffmpeg: resolve part path: %w", err)
		}
		fmt.Fprintf(&list, "file '%s'\n", abs)
	}
	if err := os.WriteFile(listPath, []byte(list.String()), 0o644); err != nil {
		return fmt.Errorf("ffmpeg: write concat list: %w", err)
	}
	defer os.Remove(listPath)

	args := []string{
		"-y",
		"-f", "concat",
		"-safe", "0",
		"-i", listPath,
		"-c", "copy",
		dst,
	}
	return f.exec(ctx, args)
}

func (f *FFmpeg) exec(ctx context.Context, args []string) error {
	ctx, cancel := context.WithTimeout(ctx, f.cfg.TranscodeTimeout)
	defer cancel()

	res, err := f.run(ctx, process.Command{
		Binary: f.cfg.FFmpegBinary,
		Args:   args,
	})
	if err != nil {
		return fmt.Errorf("ffmpeg: %w", err)
	}
	if res.ExitCode != 0 {
		return fmt.Errorf("ffmpeg: exit %d: %s", res.ExitCode, tail(res.Stderr))
	}
	return nil
}

// formatSeconds renders a timestamp with millisecond precision, the finest
// granularity ffmpeg seeks honor.
func formatSeconds(s float64) string {
	return fmt.Sprintf("%.3f", s)
}

// tail returns the last few lines of stderr, where ffmpeg puts its error.
func tail(b []byte) string {
	const maxLines = 4
	lines := strings.Split(strings.TrimSpace(string(b)), "\n")
	if len(lines) > maxLines {
		lines = lines[len(lines)-maxLines:]
	}
	return strings.Join(lines, " | ")
}
