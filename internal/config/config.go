package config

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

type contextKey string

const configKey contextKey = "config"

// Config holds all application configuration
type Config struct {
	// Core settings
	WorkDir string `yaml:"work_dir"`

	// FFmpeg settings
	FFmpeg FFmpegConfig `yaml:"ffmpeg"`

	// Render settings
	Render RenderConfig `yaml:"render"`

	// Style backend settings
	Style StyleConfig `yaml:"style"`

	// HTTP server settings
	Server ServerConfig `yaml:"server"`
}

type FFmpegConfig struct {
	BinaryPath string `yaml:"binary_path"`
	ProbePath  string `yaml:"probe_path"`
	Threads    int    `yaml:"threads"`
	Preset     string `yaml:"preset"`
	CRF        int    `yaml:"crf"`
}

type RenderConfig struct {
	Strategy       string  `yaml:"strategy"`
	FallbackWidth  int     `yaml:"fallback_width"`
	FallbackHeight int     `yaml:"fallback_height"`
	DefaultHoldMS  int     `yaml:"default_hold_ms"`
	FPS            float64 `yaml:"fps"`
}

type StyleConfig struct {
	Endpoint string            `yaml:"endpoint"`
	TimeoutS int               `yaml:"timeout_s"`
	MaxEdge  int               `yaml:"max_edge"`
	Presets  map[string]string `yaml:"presets"`
}

type ServerConfig struct {
	Addr string `yaml:"addr"`
}

// DefaultHold returns the configured hold duration for cues that omit one.
func (r RenderConfig) DefaultHold() time.Duration {
	return time.Duration(r.DefaultHoldMS) * time.Millisecond
}

// Timeout returns the style backend request timeout.
func (s StyleConfig) Timeout() time.Duration {
	return time.Duration(s.TimeoutS) * time.Second
}

// Load reads configuration from file or returns defaults
func Load(path string) (*Config, error) {
	cfg := defaultConfig()

	if path == "" {
		path = findConfigFile()
	}

	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, err
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Save writes configuration to file
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}

func defaultConfig() *Config {
	return &Config{
		WorkDir: "./work",
		FFmpeg: FFmpegConfig{
			BinaryPath: "ffmpeg",
			ProbePath:  "ffprobe",
			Threads:    0,
			Preset:     "medium",
			CRF:        23,
		},
		Render: RenderConfig{
			Strategy:       "concat",
			FallbackWidth:  1280,
			FallbackHeight: 720,
			DefaultHoldMS:  2000,
			FPS:            30,
		},
		Style: StyleConfig{
			TimeoutS: 120,
			MaxEdge:  1536,
			Presets:  make(map[string]string),
		},
		Server: ServerConfig{
			Addr: "127.0.0.1:8876",
		},
	}
}

func findConfigFile() string {
	candidates := []string{
		"./stillsplice.yaml",
		"./stillsplice.yml",
		filepath.Join(os.Getenv("HOME"), ".stillsplice", "config.yaml"),
	}

	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	return ""
}

// WithConfig stores config in context
func WithConfig(ctx context.Context, cfg *Config) context.Context {
	return context.WithValue(ctx, configKey, cfg)
}

// FromContext retrieves config from context
func FromContext(ctx context.Context) *Config {
	if cfg, ok := ctx.Value(configKey).(*Config); ok {
		return cfg
	}
	return defaultConfig()
}
