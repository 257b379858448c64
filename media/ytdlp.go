package media

import (
	"context"
	"fmt"
	"os"

	"github.com/skillsenselab/voiceclip/process"
)

// YtDlp downloads remote videos with the yt-dlp binary.
type YtDlp struct {
	cfg Config
	run process.Runner
}

// NewYtDlp returns a YtDlp fetcher. A nil runner uses process.Run.
func NewYtDlp(cfg Config, runner process.Runner) *YtDlp {
	cfg.ApplyDefaults()
	if runner == nil {
		runner = process.Run
	}
	return &YtDlp{cfg: cfg, run: runner}
}

// Fetch downloads the video at url into dst as an mp4. yt-dlp merges the best
// mp4 video and m4a audio streams, falling back to a single mp4 format.
func (y *YtDlp) Fetch(ctx context.Context, url, dst string) error {
	ctx, cancel := context.WithTimeout(ctx, y.cfg.DownloadTimeout)
	defer cancel()

	args := []string{
		"-f", "bestvideo[ext=mp4]+bestaudio[ext=m4a]/mp4",
		"--no-playlist",
		"--no-progress",
	}
	if y.cfg.MaxRemoteSize != "" {
		args = append(args, "--max-filesize", y.cfg.MaxRemoteSize)
	}
	args = append(args, "-o", dst, url)

	res, err := y.run(ctx, process.Command{
		Binary: y.cfg.YtDlpBinary,
		Args:   args,
	})
	if err != nil {
		return fmt.Errorf("yt-dlp: %w", err)
	}
	if res.ExitCode != 0 {
		return fmt.Errorf("yt-dlp: exit %d: %s", res.ExitCode, tail(res.Stderr))
	}

	// yt-dlp exits 0 when --max-filesize skips the download, so the output
	// file is the only reliable success signal.
	info, err := os.Stat(dst)
	if err != nil {
		return fmt.Errorf("yt-dlp: no output file: %w", err)
	}
	if info.Size() == 0 {
		return fmt.Errorf("yt-dlp: empty output file %s", dst)
	}
	return nil
}
