// Package config loads and validates the voiceclip service configuration.
package config

import (
	"fmt"

	"github.com/skillsenselab/voiceclip/inference"
	"github.com/skillsenselab/voiceclip/logger"
	"github.com/skillsenselab/voiceclip/media"
	"github.com/skillsenselab/voiceclip/observability"
	"github.com/skillsenselab/voiceclip/pipeline"
	"github.com/skillsenselab/voiceclip/server"
	"github.com/skillsenselab/voiceclip/storage"
	"github.com/skillsenselab/voiceclip/version"
)

// Config is the top-level service configuration.
type Config struct {
	Name        string `yaml:"name" mapstructure:"name"`
	Environment string `yaml:"environment" mapstructure:"environment"`
	Version     string `yaml:"version" mapstructure:"version"`

	Logging   logger.Config        `yaml:"logging" mapstructure:"logging"`
	Server    server.Config        `yaml:"server" mapstructure:"server"`
	Pipeline  pipeline.Config      `yaml:"pipeline" mapstructure:"pipeline"`
	Inference inference.Config     `yaml:"inference" mapstructure:"inference"`
	Media     media.Config         `yaml:"media" mapstructure:"media"`
	Storage   storage.Config       `yaml:"storage" mapstructure:"storage"`
	Tracing   observability.Config `yaml:"tracing" mapstructure:"tracing"`
}

// ApplyDefaults fills unset fields with sensible defaults.
func (c *Config) ApplyDefaults() {
	if c.Name == "" {
		c.Name = "voiceclip"
	}
	if c.Environment == "" {
		c.Environment = "development"
	}
	if c.Version == "" {
		c.Version = version.Get().String()
	}
	if c.Logging.ServiceName == "" {
		c.Logging.ServiceName = c.Name
	}
	c.Logging.ApplyDefaults()
	c.Server.ApplyDefaults()
	c.Pipeline.ApplyDefaults()
	c.Inference.ApplyDefaults()
	c.Media.ApplyDefaults()
	c.Storage.ApplyDefaults()
	c.Tracing.ApplyDefaults()
}

// Validate checks the configuration for invalid values.
func (c *Config) Validate() error {
	validEnvs := []string{"development", "staging", "production"}
	found := false
	for _, v := range validEnvs {
		if c.Environment == v {
			found = true
			break
		}
	}
	if !found {
		return fmt.Errorf("config.environment must be one of [development, staging, production] (got: %s)", c.Environment)
	}
	if err := c.Logging.Validate(); err != nil {
		return fmt.Errorf("config.logging: %w", err)
	}
	if err := c.Server.Validate(); err != nil {
		return fmt.Errorf("config.server: %w", err)
	}
	if err := c.Pipeline.Validate(); err != nil {
		return fmt.Errorf("config.pipeline: %w", err)
	}
	if err := c.Inference.Validate(); err != nil {
		return fmt.Errorf("config.inference: %w", err)
	}
	if err := c.Media.Validate(); err != nil {
		return fmt.Errorf("config.media: %w", err)
	}
	if err := c.Storage.Validate(); err != nil {
		return fmt.Errorf("config.storage: %w", err)
	}
	return nil
}
