// Package config loads decoding configuration for disfl.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/happyhackingspace/disfl"
	"github.com/happyhackingspace/disfl/decoder"
)

// Config is the complete disfl configuration.
type Config struct {
	Model   ModelConfig      `yaml:"model"`
	Decode  DecodeConfig     `yaml:"decode"`
	Grammar *decoder.Grammar `yaml:"grammar,omitempty"`
}

// ModelConfig locates the distribution source model.
type ModelConfig struct {
	// Path is the JSON model file used by the tag command
	Path string `yaml:"path"`
}

// DecodeConfig selects how distributions become labels.
type DecodeConfig struct {
	// Strategy is "constrained", "independent" or "crf" (tag only)
	Strategy string `yaml:"strategy"`
	// Workers bounds concurrent sequence decoding (0 = GOMAXPROCS)
	Workers int `yaml:"workers"`
}

// DefaultConfig returns the constrained decoder over the disfluency grammar.
func DefaultConfig() *Config {
	return &Config{
		Model: ModelConfig{
			Path: "model.json",
		},
		Decode: DecodeConfig{
			Strategy: decoder.StrategyConstrained,
			Workers:  0,
		},
		Grammar: decoder.DisfluencyGrammar(),
	}
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	switch c.Decode.Strategy {
	case decoder.StrategyConstrained, decoder.StrategyIndependent, disfl.StrategyCRF:
	default:
		return fmt.Errorf("decode.strategy must be %q, %q or %q, got %q",
			decoder.StrategyConstrained, decoder.StrategyIndependent, disfl.StrategyCRF, c.Decode.Strategy)
	}
	if c.Decode.Workers < 0 {
		return fmt.Errorf("decode.workers must be non-negative")
	}
	if c.Grammar == nil {
		return fmt.Errorf("grammar is required")
	}
	if err := c.Grammar.Validate(); err != nil {
		return fmt.Errorf("grammar: %w", err)
	}
	return nil
}

// Decoder builds the configured decoder. The crf strategy runs on a model,
// not on scores, so it has none.
func (c *Config) Decoder() (decoder.Decoder, error) {
	if c.Decode.Strategy == disfl.StrategyCRF {
		return nil, fmt.Errorf("%w: %q needs a crf model, use the tag command",
			decoder.ErrUnknownStrategy, disfl.StrategyCRF)
	}
	return decoder.NewDecoder(c.Decode.Strategy, c.Grammar)
}

// Parse reads a YAML configuration on top of the defaults. A grammar in the
// document replaces the default grammar as a whole.
func Parse(data []byte) (*Config, error) {
	config := DefaultConfig()
	config.Grammar = nil
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if config.Grammar == nil {
		config.Grammar = decoder.DisfluencyGrammar()
	}
	return config, nil
}

// LoadFromFile loads configuration from a YAML file.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return Parse(data)
}

// LoadGrammar reads a standalone grammar YAML document.
func LoadGrammar(path string) (*decoder.Grammar, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read grammar file: %w", err)
	}
	var g decoder.Grammar
	if err := yaml.Unmarshal(data, &g); err != nil {
		return nil, fmt.Errorf("failed to parse grammar file: %w", err)
	}
	if err := g.Validate(); err != nil {
		return nil, err
	}
	return &g, nil
}

// MarshalGrammar renders g as YAML.
func MarshalGrammar(g *decoder.Grammar) ([]byte, error) {
	return yaml.Marshal(g)
}

// SaveToFile writes the configuration as YAML.
func (c *Config) SaveToFile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}
