package config

import (
	"fmt"

	"github.com/kbukum/execkit/logger"
	"github.com/kbukum/execkit/observability"
	"github.com/kbukum/execkit/process"
	"github.com/kbukum/execkit/validation"
)

// ExecConfig is the complete execkit configuration.
//
//	process:
//	  timeout: 30s
//	  encoding: utf-8
//	  shell: auto
//	  inherit_env: true
//	  retry:
//	    max_attempts: 3
//	  limit:
//	    max_concurrent: 4
//	logging:
//	  level: debug
//	tracing:
//	  endpoint: localhost:4318
//	  insecure: true
type ExecConfig struct {
	Process process.Config             `yaml:"process" mapstructure:"process"`
	Logging logger.Config              `yaml:"logging" mapstructure:"logging"`
	Tracing observability.TracerConfig `yaml:"tracing" mapstructure:"tracing"`
}

// Defaults are applied before any file or environment source.
func Defaults() map[string]any {
	def := process.DefaultConfig()
	return map[string]any{
		"process.name":               def.Name,
		"process.shell":              def.Shell,
		"process.inherit_env":        def.InheritEnv,
		"process.retry.max_attempts": def.Retry.MaxAttempts,
		"logging.level":              "info",
		"logging.format":             "console",
		"logging.output":             "stderr",
		"logging.timestamp":          true,
		"tracing.service_name":       "execkit",
	}
}

// ApplyDefaults fills zero values that the loader did not cover.
func (c *ExecConfig) ApplyDefaults() {
	if c.Process.Name == "" {
		c.Process.Name = "process"
	}
	if c.Process.Shell == "" {
		c.Process.Shell = "auto"
	}
	c.Logging.ApplyDefaults()
	c.Tracing.ApplyDefaults()
}

// Validate checks struct constraints and the logging settings.
func (c *ExecConfig) Validate() error {
	if err := validation.Validate(c); err != nil {
		return err
	}
	if err := c.Logging.Validate(); err != nil {
		return fmt.Errorf("config.logging: %w", err)
	}
	return nil
}

// Load reads, defaults and validates the configuration.
func Load(opts ...LoaderOption) (*ExecConfig, error) {
	opts = append([]LoaderOption{WithDefaults(Defaults())}, opts...)

	var cfg ExecConfig
	if err := LoadInto(&cfg, opts...); err != nil {
		return nil, err
	}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}
