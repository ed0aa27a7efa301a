package config

import (
	"fmt"
	"os"
	"path/filepath"
)

type Config struct {
	Inference InferenceConfig
	Sampling  SamplingConfig
	Scratch   ScratchConfig
	Storage   StorageConfig
	Preview   PreviewConfig
	Browser   BrowserConfig
	Component ComponentConfig
	Log       LogConfig
}

type InferenceConfig struct {
	APIKey  string
	Model   string
	BaseURL string
}

type SamplingConfig struct {
	Rate float64
}

type ScratchConfig struct {
	Root string
}

type StorageConfig struct {
	DataDir string
}

type PreviewConfig struct {
	Port int
}

type BrowserConfig struct {
	// ControlURL connects to an already-running browser instead of
	// launching one. Empty means launch.
	ControlURL string
}

type ComponentConfig struct {
	Name string
}

type LogConfig struct {
	Level string
}

func defaults() Config {
	return Config{
		Inference: InferenceConfig{
			Model:   "claude-sonnet-4-5",
			BaseURL: "https://api.anthropic.com",
		},
		Sampling: SamplingConfig{
			Rate: 2.0,
		},
		Scratch: ScratchConfig{
			Root: filepath.Join(os.TempDir(), "clip2tsx"),
		},
		Storage: StorageConfig{
			DataDir: defaultDataDir(),
		},
		Preview: PreviewConfig{
			Port: 4173,
		},
		Component: ComponentConfig{
			Name: "AnimatedComponent",
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load reads configuration from the JSON config file, then applies
// CLIP2TSX_* environment overrides. The inference API key is required
// and comes from the environment only, never the config file.
func Load() (Config, error) {
	cfg, err := LoadLocal()
	if err != nil {
		return Config{}, err
	}
	if cfg.Inference.APIKey == "" {
		return Config{}, fmt.Errorf("missing required config: inference API key. Set it via environment variable CLIP2TSX_API_KEY")
	}
	return cfg, nil
}

// LoadLocal is Load without the API key requirement, for commands that
// never call the inference service (sessions, config, export).
func LoadLocal() (Config, error) {
	return loadWith(newPlatformBackend())
}

func loadWith(b ConfigBackend) (Config, error) {
	cfg := defaults()
	if err := applyBackend(&cfg, b); err != nil {
		return Config{}, err
	}
	applyEnvOverrides(&cfg)
	return cfg, nil
}
