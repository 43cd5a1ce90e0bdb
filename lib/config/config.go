// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/tidwall/jsonc"
	"gopkg.in/yaml.v3"
)

// Environment represents the deployment environment.
type Environment string

const (
	// Development is for local development machines.
	Development Environment = "development"
	// Staging is for pre-production testing.
	Staging Environment = "staging"
	// Production is for production deployments.
	Production Environment = "production"
)

// Defaults for FlowConfig. The acknowledgment constants match what
// deployed repositories expect from writers.
const (
	DefaultAckIntervalThreshold = 128
	DefaultAckBatchSize         = 20
	DefaultHighWater            = 256
	DefaultLowWater             = 192
	DefaultResponseTimeout      = 4 * time.Second
)

// Config is the top-level configuration file.
type Config struct {
	// Environment selects which override section applies.
	Environment Environment `yaml:"environment"`

	// Flow configures publish flow control.
	Flow FlowConfig `yaml:"flow"`

	// Per-environment overrides, applied after the base values.
	Development *FlowOverrides `yaml:"development,omitempty"`
	Staging     *FlowOverrides `yaml:"staging,omitempty"`
	Production  *FlowOverrides `yaml:"production,omitempty"`
}

// FlowConfig holds the knobs of the repository write pipeline.
type FlowConfig struct {
	// BestEffort disables acknowledgment tracking: publishes are sent
	// and forgotten, and Close never waits.
	BestEffort bool `yaml:"best_effort"`

	// UseAck is the inverse spelling of BestEffort accepted from older
	// configuration files. When present it wins over best_effort.
	UseAck *bool `yaml:"use_ack,omitempty"`

	// AckIntervalThreshold is the pending count above which the writer
	// starts asking the repository to enumerate what it has stored.
	// Zero enumerates after every publish.
	AckIntervalThreshold int `yaml:"ack_interval_threshold"`

	// AckBatchSize is how many acknowledgments one enumeration
	// registration may deliver before it is renewed.
	AckBatchSize int `yaml:"ack_batch_size"`

	// HighWater is the pending count above which Publish blocks.
	HighWater int `yaml:"high_water"`

	// LowWater is the pending count at or below which blocked
	// publishers resume.
	LowWater int `yaml:"low_water"`

	// ResponseTimeout bounds each wait for a repository reply or for
	// acknowledgment progress, for example "4s".
	ResponseTimeout time.Duration `yaml:"response_timeout"`
}

// FlowOverrides holds the FlowConfig fields an environment section may
// replace. Unset fields keep the base value.
type FlowOverrides struct {
	BestEffort           *bool          `yaml:"best_effort,omitempty"`
	AckIntervalThreshold *int           `yaml:"ack_interval_threshold,omitempty"`
	AckBatchSize         *int           `yaml:"ack_batch_size,omitempty"`
	HighWater            *int           `yaml:"high_water,omitempty"`
	LowWater             *int           `yaml:"low_water,omitempty"`
	ResponseTimeout      *time.Duration `yaml:"response_timeout,omitempty"`
}

// DefaultFlow returns the flow settings used when nothing overrides
// them: verified delivery with the standard thresholds.
func DefaultFlow() FlowConfig {
	return FlowConfig{
		AckIntervalThreshold: DefaultAckIntervalThreshold,
		AckBatchSize:         DefaultAckBatchSize,
		HighWater:            DefaultHighWater,
		LowWater:             DefaultLowWater,
		ResponseTimeout:      DefaultResponseTimeout,
	}
}

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		Environment: Development,
		Flow:        DefaultFlow(),
	}
}

// Load loads configuration from the file named by REPOWRITE_CONFIG.
// There is no fallback search path.
func Load() (*Config, error) {
	configPath := os.Getenv("REPOWRITE_CONFIG")
	if configPath == "" {
		return nil, errors.New("REPOWRITE_CONFIG environment variable not set; " +
			"set it to the path of a config file, or pass the path to LoadFile")
	}
	return LoadFile(configPath)
}

// LoadFile loads configuration from path over the defaults. Files
// ending in .json or .jsonc may contain comments and trailing commas;
// anything else is parsed as YAML. The environment section matching
// Environment is applied before returning. The result is not
// validated; call Validate.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".json", ".jsonc":
		// JSON is a subset of YAML, so one decoder and one set of
		// struct tags serves both formats.
		data = jsonc.ToJSON(data)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}

	cfg.Flow.resolveAliases()
	cfg.applyEnvironmentOverrides()
	return cfg, nil
}

func (f *FlowConfig) resolveAliases() {
	if f.UseAck != nil {
		f.BestEffort = !*f.UseAck
		f.UseAck = nil
	}
}

// applyEnvironmentOverrides applies the section matching Environment.
func (c *Config) applyEnvironmentOverrides() {
	var overrides *FlowOverrides
	switch c.Environment {
	case Development:
		overrides = c.Development
	case Staging:
		overrides = c.Staging
	case Production:
		overrides = c.Production
	}
	if overrides == nil {
		return
	}

	if overrides.BestEffort != nil {
		c.Flow.BestEffort = *overrides.BestEffort
	}
	if overrides.AckIntervalThreshold != nil {
		c.Flow.AckIntervalThreshold = *overrides.AckIntervalThreshold
	}
	if overrides.AckBatchSize != nil {
		c.Flow.AckBatchSize = *overrides.AckBatchSize
	}
	if overrides.HighWater != nil {
		c.Flow.HighWater = *overrides.HighWater
	}
	if overrides.LowWater != nil {
		c.Flow.LowWater = *overrides.LowWater
	}
	if overrides.ResponseTimeout != nil {
		c.Flow.ResponseTimeout = *overrides.ResponseTimeout
	}
}

// BindFlags registers the flow knobs on flags, using the current
// values as defaults. Parsing flags afterward overwrites f in place,
// so the usual order is LoadFile, BindFlags, Parse, Validate.
func (f *FlowConfig) BindFlags(flags *pflag.FlagSet) {
	flags.BoolVar(&f.BestEffort, "best-effort", f.BestEffort,
		"send without tracking acknowledgments")
	flags.IntVar(&f.AckIntervalThreshold, "ack-interval", f.AckIntervalThreshold,
		"pending count above which repository enumeration is requested")
	flags.IntVar(&f.AckBatchSize, "ack-batch-size", f.AckBatchSize,
		"acknowledgments one enumeration delivers before it is renewed")
	flags.IntVar(&f.HighWater, "high-water", f.HighWater,
		"pending count above which publish blocks")
	flags.IntVar(&f.LowWater, "low-water", f.LowWater,
		"pending count at which blocked publishers resume")
	flags.DurationVar(&f.ResponseTimeout, "response-timeout", f.ResponseTimeout,
		"bound on each wait for a repository reply")
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	var errs []error
	if c.Environment != Development && c.Environment != Staging && c.Environment != Production {
		errs = append(errs, fmt.Errorf("invalid environment: %q", c.Environment))
	}
	if err := c.Flow.Validate(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// Validate checks the flow settings for errors.
func (f *FlowConfig) Validate() error {
	var errs []error

	if f.AckIntervalThreshold < 0 {
		errs = append(errs, fmt.Errorf("flow.ack_interval_threshold must not be negative, got %d", f.AckIntervalThreshold))
	}
	if f.AckBatchSize <= 0 {
		errs = append(errs, fmt.Errorf("flow.ack_batch_size must be positive, got %d", f.AckBatchSize))
	}
	if f.HighWater <= 0 {
		errs = append(errs, fmt.Errorf("flow.high_water must be positive, got %d", f.HighWater))
	}
	if f.LowWater < 0 {
		errs = append(errs, fmt.Errorf("flow.low_water must not be negative, got %d", f.LowWater))
	}
	if f.LowWater > f.HighWater {
		errs = append(errs, fmt.Errorf("flow.low_water (%d) must not exceed flow.high_water (%d)", f.LowWater, f.HighWater))
	}
	if f.ResponseTimeout <= 0 {
		errs = append(errs, fmt.Errorf("flow.response_timeout must be positive, got %s", f.ResponseTimeout))
	}

	return errors.Join(errs...)
}
