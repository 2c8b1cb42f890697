package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config represents the pipeline configuration
type Config struct {
	SourceDirs   []string       `yaml:"source_dirs"`
	OutputRoot   string         `yaml:"output_root"`
	Sizes        []SizeConfig   `yaml:"sizes"`
	WebP         WebPConfig     `yaml:"webp"`
	Fallback     FallbackConfig `yaml:"fallback"`
	AllowUpscale bool           `yaml:"allow_upscale"`
	Workers      int            `yaml:"workers"`
	IndexFile    string         `yaml:"index_file"`
	Manifest     ManifestConfig `yaml:"manifest"`
	Assets       AssetsConfig   `yaml:"assets"`
	Ntfy         NtfyConfig     `yaml:"ntfy"`
}

// SizeConfig is one responsive width. Height 0 keeps the source aspect ratio.
type SizeConfig struct {
	Tag    string `yaml:"tag"`
	Width  int    `yaml:"width"`
	Height int    `yaml:"height,omitempty"`
}

type WebPConfig struct {
	Quality int `yaml:"quality"`
	Effort  int `yaml:"effort"`
}

type FallbackConfig struct {
	Width       int  `yaml:"width"`
	Quality     int  `yaml:"quality"`
	Progressive bool `yaml:"progressive"`
}

type ManifestConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

type AssetsConfig struct {
	Dir   string        `yaml:"dir"`
	Files []AssetConfig `yaml:"files"`
}

type AssetConfig struct {
	Src string `yaml:"src"`
	Dst string `yaml:"dst"`
}

type NtfyConfig struct {
	Enabled bool   `yaml:"enabled"`
	Server  string `yaml:"server"`
	Topic   string `yaml:"topic"`
}

// Default returns the built-in configuration used when no config file exists
func Default() *Config {
	return &Config{
		SourceDirs: []string{
			"public/images/projects",
			"public/images/carousel",
			"public/images/services",
			"public/old_images",
		},
		OutputRoot: "public/optimized",
		Sizes: []SizeConfig{
			{Tag: "small", Width: 400},
			{Tag: "medium", Width: 600},
			{Tag: "large", Width: 800},
			{Tag: "xl", Width: 1200},
		},
		WebP: WebPConfig{
			Quality: 85,
			Effort:  6,
		},
		Fallback: FallbackConfig{
			Width:       800,
			Quality:     82,
			Progressive: true,
		},
		AllowUpscale: false,
		Workers:      1,
		Manifest: ManifestConfig{
			Enabled: false,
			Path:    "public/optimized/.manifest.db",
		},
		Assets: AssetsConfig{
			Dir: "assets",
			Files: []AssetConfig{
				{Src: "public/logo.svg", Dst: "logo.svg"},
				{Src: "public/favicon.png", Dst: "favicon.png"},
				{Src: "public/favicon.svg", Dst: "favicon.svg"},
			},
		},
		Ntfy: NtfyConfig{
			Server: "https://ntfy.sh",
		},
	}
}

// Load reads the configuration file on top of the defaults, then applies
// environment overrides (including a .env file if one is present).
// A missing file at path is not an error; the defaults are used.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	case errors.Is(err, os.ErrNotExist):
		// defaults only
	default:
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// .env is optional
	_ = godotenv.Load()
	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

func (c *Config) applyEnv() {
	c.OutputRoot = getEnv("IMGOPT_OUTPUT_ROOT", c.OutputRoot)
	c.Workers = getEnvAsInt("IMGOPT_WORKERS", c.Workers)
	c.Manifest.Path = getEnv("IMGOPT_MANIFEST_PATH", c.Manifest.Path)
	c.Ntfy.Topic = getEnv("IMGOPT_NTFY_TOPIC", c.Ntfy.Topic)
}

// Validate checks that the configuration can drive a run
func (c *Config) Validate() error {
	if len(c.SourceDirs) == 0 {
		return fmt.Errorf("source_dirs is required")
	}
	if c.OutputRoot == "" {
		return fmt.Errorf("output_root is required")
	}

	seen := make(map[string]bool)
	for i, s := range c.Sizes {
		if s.Tag == "" {
			return fmt.Errorf("sizes[%d].tag is required", i)
		}
		if s.Tag == "fallback" {
			return fmt.Errorf("sizes[%d].tag %q is reserved", i, s.Tag)
		}
		if seen[s.Tag] {
			return fmt.Errorf("duplicate size tag %q", s.Tag)
		}
		seen[s.Tag] = true
		if s.Width <= 0 {
			return fmt.Errorf("sizes[%d].width must be positive", i)
		}
		if s.Height < 0 {
			return fmt.Errorf("sizes[%d].height must not be negative", i)
		}
	}

	if c.WebP.Quality < 1 || c.WebP.Quality > 100 {
		return fmt.Errorf("webp.quality must be between 1 and 100")
	}
	if c.WebP.Effort < 0 || c.WebP.Effort > 6 {
		return fmt.Errorf("webp.effort must be between 0 and 6")
	}
	if c.Fallback.Width <= 0 {
		return fmt.Errorf("fallback.width must be positive")
	}
	if c.Fallback.Quality < 1 || c.Fallback.Quality > 100 {
		return fmt.Errorf("fallback.quality must be between 1 and 100")
	}
	if c.Workers < 1 {
		return fmt.Errorf("workers must be at least 1")
	}
	if c.Manifest.Enabled && c.Manifest.Path == "" {
		return fmt.Errorf("manifest.path is required when the manifest is enabled")
	}
	if c.Ntfy.Enabled && (c.Ntfy.Server == "" || c.Ntfy.Topic == "") {
		return fmt.Errorf("ntfy.server and ntfy.topic are required when ntfy is enabled")
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}
