// Package media drives the external tools that fetch and transform video:
// yt-dlp for remote downloads and ffmpeg for audio extraction, re-encoding,
// slicing and concatenation.
package media

import (
	"fmt"
	"time"
)

// Config holds external-tool settings for the media package.
type Config struct {
	// FFmpegBinary is the ffmpeg executable. Resolved via PATH when bare.
	FFmpegBinary string `yaml:"ffmpeg_binary" mapstructure:"ffmpeg_binary"`
	// YtDlpBinary is the yt-dlp executable.
	YtDlpBinary string `yaml:"ytdlp_binary" mapstructure:"ytdlp_binary"`
	// MaxRemoteSize caps remote downloads, passed to yt-dlp --max-filesize.
	// Accepts yt-dlp size syntax such as "2G" or "500M". Empty disables the cap.
	MaxRemoteSize string `yaml:"max_remote_size" mapstructure:"max_remote_size"`
	// DownloadTimeout bounds a single remote fetch.
	DownloadTimeout time.Duration `yaml:"download_timeout" mapstructure:"download_timeout"`
	// TranscodeTimeout bounds a single ffmpeg invocation.
	TranscodeTimeout time.Duration `yaml:"transcode_timeout" mapstructure:"transcode_timeout"`
}

// ApplyDefaults fills unset fields with sensible defaults.
func (c *Config) ApplyDefaults() {
	if c.FFmpegBinary == "" {
		c.FFmpegBinary = "ffmpeg"
	}
	if c.YtDlpBinary == "" {
		c.YtDlpBinary = "yt-dlp"
	}
	if c.MaxRemoteSize == "" {
		c.MaxRemoteSize = "2G"
	}
	if c.DownloadTimeout == 0 {
		c.DownloadTimeout = 15 * time.Minute
	}
	if c.TranscodeTimeout == 0 {
		c.TranscodeTimeout = 30 * time.Minute
	}
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	if c.FFmpegBinary == "" {
		return fmt.Errorf("media: ffmpeg_binary is required")
	}
	if c.YtDlpBinary == "" {
		return fmt.Errorf("media: ytdlp_binary is required")
	}
	return nil
}
