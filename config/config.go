// Package config loads the YAML configuration file shared by the CLI
// commands: model dimensions, beam-search parameters, bootstrap evaluation
// settings, and dataset location.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/awagatsuma/lasgo/decoder"
)

// Model describes the Seq2Seq architecture.
type Model struct {
	InputDim      int      `yaml:"input_dim"`
	EncoderHidden int      `yaml:"encoder_hidden"`
	EncoderLayers int      `yaml:"encoder_layers"`
	Bidirectional bool     `yaml:"bidirectional"`
	EmbedDim      int      `yaml:"embed_dim"`
	DecoderHidden int      `yaml:"decoder_hidden"`
	DecoderLayers int      `yaml:"decoder_layers"`
	Units         []string `yaml:"units"` // vocabulary surface units
}

// Eval holds the bootstrap evaluation settings.
type Eval struct {
	BootstrapSize int      `yaml:"bootstrap_size"`
	NumBootstraps int      `yaml:"num_bootstraps"`
	OutputDir     string   `yaml:"output_dir"`
	Seed          int64    `yaml:"seed"`
	Metrics       []string `yaml:"metrics"` // loss, word_error_rate, character_error_rate
}

// Data points at the evaluation dataset.
type Data struct {
	Manifest  string `yaml:"manifest"`
	BatchSize int    `yaml:"batch_size"`
}

// Config is the root of the YAML file.
type Config struct {
	Model    Model              `yaml:"model"`
	Beam     decoder.BeamConfig `yaml:"beam"`
	Eval     Eval               `yaml:"eval"`
	Data     Data               `yaml:"data"`
	LogLevel string             `yaml:"log_level"`
}

// Load reads and validates a configuration file.
func Load(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	var cfg Config
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: %s: %w", path, err)
	}
	return &cfg, nil
}

// Validate checks the fields the core cannot validate for itself. Beam
// parameters are validated separately by decoder.BeamConfig.Validate at the
// point of use.
func (c *Config) Validate() error {
	m := c.Model
	if m.InputDim <= 0 || m.EncoderHidden <= 0 || m.EncoderLayers <= 0 {
		return fmt.Errorf("bad encoder dimensions (input=%d hidden=%d layers=%d)",
			m.InputDim, m.EncoderHidden, m.EncoderLayers)
	}
	if m.EmbedDim <= 0 || m.DecoderHidden <= 0 || m.DecoderLayers <= 0 {
		return fmt.Errorf("bad decoder dimensions (embed=%d hidden=%d layers=%d)",
			m.EmbedDim, m.DecoderHidden, m.DecoderLayers)
	}
	if len(m.Units) == 0 {
		return fmt.Errorf("no vocabulary units")
	}
	if c.Data.BatchSize < 0 {
		return fmt.Errorf("batch size %d", c.Data.BatchSize)
	}
	for _, name := range c.Eval.Metrics {
		switch name {
		case "loss", "word_error_rate", "character_error_rate":
		default:
			return fmt.Errorf("unknown metric %q", name)
		}
	}
	return nil
}
