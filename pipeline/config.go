package pipeline

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Config holds pipeline settings.
type Config struct {
	// ScratchDir is where per-task working directories are created.
	ScratchDir string `yaml:"scratch_dir" mapstructure:"scratch_dir"`

	// Workers bounds the slicing worker pool inside a single task.
	// Tasks themselves run one at a time.
	Workers int `yaml:"workers" mapstructure:"workers"`

	// MatchThreshold is the maximum cosine distance for a speaker to count
	// as matching the reference voice. Inclusive.
	MatchThreshold float64 `yaml:"match_threshold" mapstructure:"match_threshold"`

	// ShutdownTimeout bounds how long Shutdown waits for the in-flight
	// task to finish.
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" mapstructure:"shutdown_timeout"`
}

// ApplyDefaults fills unset fields with sensible defaults.
func (c *Config) ApplyDefaults() {
	if c.ScratchDir == "" {
		c.ScratchDir = filepath.Join(os.TempDir(), "voiceclip")
	}
	if c.Workers <= 0 {
		c.Workers = 4
	}
	if c.MatchThreshold == 0 {
		c.MatchThreshold = 0.3
	}
	if c.ShutdownTimeout == 0 {
		c.ShutdownTimeout = 30 * time.Second
	}
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	if c.MatchThreshold < 0 || c.MatchThreshold > 2 {
		return fmt.Errorf("pipeline: match_threshold must be within [0, 2] (got %g)", c.MatchThreshold)
	}
	if c.Workers < 1 {
		return fmt.Errorf("pipeline: workers must be at least 1")
	}
	return nil
}
