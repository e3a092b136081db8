package config

import (
	"flag"
	"strings"
	"time"
)

// Flags holds command-line overrides registered on a flag set.
type Flags struct {
	Config          *string
	Debug           *bool
	Workers         *int
	TextureTimeout  *time.Duration
	RoughnessPolicy *string
	NoCache         *bool
	SearchPaths     *string
	Encoding        *string
}

// RegisterFlags adds the shared configuration flags to fs.
func RegisterFlags(fs *flag.FlagSet) *Flags {
	return &Flags{
		Config:          fs.String("config", "", "Path to config file"),
		Debug:           fs.Bool("debug", false, "Enable debug logging"),
		Workers:         fs.Int("workers", 0, "Concurrent conversion workers (0 = config value)"),
		TextureTimeout:  fs.Duration("texture-timeout", 0, "Per-texture load timeout"),
		RoughnessPolicy: fs.String("roughness-policy", "", "texture_first or scalar_first"),
		NoCache:         fs.Bool("no-cache", false, "Disable texture caching"),
		SearchPaths:     fs.String("textures", "", "Comma-separated texture search directories"),
		Encoding:        fs.String("encoding", "", "Text encoding of OBJ/MTL names"),
	}
}

// ConfigPath returns the explicit config path if provided via -config.
func (f *Flags) ConfigPath() string {
	if f == nil {
		return ""
	}
	return *f.Config
}

// apply applies CLI flag overrides to the config.
func (f *Flags) apply(cfg *Config) {
	if f == nil {
		return
	}
	if *f.Debug {
		cfg.Logging.Level = "debug"
	}
	if *f.Workers > 0 {
		cfg.Conversion.Workers = *f.Workers
	}
	if *f.TextureTimeout > 0 {
		cfg.Conversion.TextureTimeout = *f.TextureTimeout
	}
	if *f.RoughnessPolicy != "" {
		cfg.Conversion.RoughnessPolicy = *f.RoughnessPolicy
	}
	if *f.NoCache {
		cfg.Textures.CacheEnabled = false
	}
	if *f.SearchPaths != "" {
		for _, p := range strings.Split(*f.SearchPaths, ",") {
			if p = strings.TrimSpace(p); p != "" {
				cfg.Textures.SearchPaths = append(cfg.Textures.SearchPaths, p)
			}
		}
	}
	if *f.Encoding != "" {
		cfg.Source.TextEncoding = *f.Encoding
	}
}
