// Package config handles converter configuration loading and management.
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/Faultbox/meshbridge/pkg/encoding"
	"github.com/Faultbox/meshbridge/pkg/material"
)

// Config holds all converter settings.
type Config struct {
	Conversion ConversionConfig `yaml:"conversion"`
	Textures   TexturesConfig   `yaml:"textures"`
	Source     SourceConfig     `yaml:"source"`
	Logging    LoggingConfig    `yaml:"logging"`
}

// ConversionConfig holds mesh and material conversion settings.
type ConversionConfig struct {
	Workers          int           `yaml:"workers"` // 0 = one per CPU
	TextureTimeout   time.Duration `yaml:"texture_timeout"`
	MemoizeMaterials bool          `yaml:"memoize_materials"`
	RoughnessPolicy  string        `yaml:"roughness_policy"` // texture_first or scalar_first
	ValidateIndices  bool          `yaml:"validate_indices"`
}

// TexturesConfig holds texture lookup and export settings.
type TexturesConfig struct {
	SearchPaths  []string `yaml:"search_paths"` // Directories searched for texture files
	Archives     []string `yaml:"archives"`     // Zip archives searched after directories
	CacheEnabled bool     `yaml:"cache_enabled"`
	ColorKey     bool     `yaml:"color_key"` // Magenta becomes transparent in color textures
	MaxSize      int      `yaml:"max_size"`  // Export size limit, 0 = keep
}

// SourceConfig holds source file settings.
type SourceConfig struct {
	TextEncoding string `yaml:"text_encoding"` // Encoding of names in OBJ/MTL files
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level   string `yaml:"level"`
	LogFile string `yaml:"log_file"`
}

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Conversion: ConversionConfig{
			Workers:          0,
			TextureTimeout:   10 * time.Second,
			MemoizeMaterials: true,
			RoughnessPolicy:  material.TextureFirst.String(),
			ValidateIndices:  true,
		},
		Textures: TexturesConfig{
			CacheEnabled: true,
			MaxSize:      0,
		},
		Source: SourceConfig{
			TextEncoding: "utf-8",
		},
		Logging: LoggingConfig{
			Level:   "info",
			LogFile: "",
		},
	}
}

// Validate checks values that cannot be expressed in YAML types.
func (c *Config) Validate() error {
	var errs []error
	if c.Conversion.Workers < 0 {
		errs = append(errs, fmt.Errorf("conversion.workers must be >= 0, got %d", c.Conversion.Workers))
	}
	if c.Conversion.TextureTimeout < 0 {
		errs = append(errs, fmt.Errorf("conversion.texture_timeout must be >= 0, got %s", c.Conversion.TextureTimeout))
	}
	if _, err := c.Policy(); err != nil {
		errs = append(errs, fmt.Errorf("conversion.roughness_policy: %w", err))
	}
	if _, err := c.Encoding(); err != nil {
		errs = append(errs, fmt.Errorf("source.text_encoding: %w", err))
	}
	if c.Textures.MaxSize < 0 {
		errs = append(errs, fmt.Errorf("textures.max_size must be >= 0, got %d", c.Textures.MaxSize))
	}
	return errors.Join(errs...)
}

// Policy returns the parsed roughness policy.
func (c *Config) Policy() (material.RoughnessPolicy, error) {
	return material.ParseRoughnessPolicy(c.Conversion.RoughnessPolicy)
}

// Encoding returns the decoder for source file names.
func (c *Config) Encoding() (encoding.Text, error) {
	return encoding.Lookup(c.Source.TextEncoding)
}
