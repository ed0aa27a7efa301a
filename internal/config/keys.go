package config

import (
	"fmt"
	"os"
	"strconv"
)

type keyType int

const (
	kString keyType = iota
	kInt
	kFloat
)

type keySpec struct {
	key     string
	typ     keyType
	env     string
	secret  bool
	apply   func(cfg *Config, v any)
	extract func(cfg Config) any
}

var specs = []keySpec{
	{
		key: "inference.api_key", typ: kString, env: "CLIP2TSX_API_KEY",
		secret:  true,
		apply:   func(cfg *Config, v any) { cfg.Inference.APIKey = v.(string) },
		extract: func(cfg Config) any { return cfg.Inference.APIKey },
	},
	{
		key: "inference.model", typ: kString, env: "CLIP2TSX_INFERENCE_MODEL",
		apply:   func(cfg *Config, v any) { cfg.Inference.Model = v.(string) },
		extract: func(cfg Config) any { return cfg.Inference.Model },
	},
	{
		key: "inference.base_url", typ: kString, env: "CLIP2TSX_INFERENCE_BASE_URL",
		apply:   func(cfg *Config, v any) { cfg.Inference.BaseURL = v.(string) },
		extract: func(cfg Config) any { return cfg.Inference.BaseURL },
	},
	{
		key: "sampling.rate", typ: kFloat, env: "CLIP2TSX_SAMPLING_RATE",
		apply:   func(cfg *Config, v any) { cfg.Sampling.Rate = v.(float64) },
		extract: func(cfg Config) any { return cfg.Sampling.Rate },
	},
	{
		key: "scratch.root", typ: kString, env: "CLIP2TSX_SCRATCH_ROOT",
		apply:   func(cfg *Config, v any) { cfg.Scratch.Root = v.(string) },
		extract: func(cfg Config) any { return cfg.Scratch.Root },
	},
	{
		key: "storage.data_dir", typ: kString, env: "CLIP2TSX_STORAGE_DATA_DIR",
		apply:   func(cfg *Config, v any) { cfg.Storage.DataDir = v.(string) },
		extract: func(cfg Config) any { return cfg.Storage.DataDir },
	},
	{
		key: "preview.port", typ: kInt, env: "CLIP2TSX_PREVIEW_PORT",
		apply:   func(cfg *Config, v any) { cfg.Preview.Port = v.(int) },
		extract: func(cfg Config) any { return cfg.Preview.Port },
	},
	{
		key: "browser.control_url", typ: kString, env: "CLIP2TSX_BROWSER_CONTROL_URL",
		apply:   func(cfg *Config, v any) { cfg.Browser.ControlURL = v.(string) },
		extract: func(cfg Config) any { return cfg.Browser.ControlURL },
	},
	{
		key: "component.name", typ: kString, env: "CLIP2TSX_COMPONENT_NAME",
		apply:   func(cfg *Config, v any) { cfg.Component.Name = v.(string) },
		extract: func(cfg Config) any { return cfg.Component.Name },
	},
	{
		key: "log.level", typ: kString, env: "CLIP2TSX_LOG_LEVEL",
		apply:   func(cfg *Config, v any) { cfg.Log.Level = v.(string) },
		extract: func(cfg Config) any { return cfg.Log.Level },
	},
}

func applyBackend(cfg *Config, b ConfigBackend) error {
	for _, s := range specs {
		if s.secret {
			continue
		}
		switch s.typ {
		case kString:
			v, ok, err := b.GetString(s.key)
			if err != nil {
				return fmt.Errorf("reading %s: %w", s.key, err)
			}
			if ok {
				s.apply(cfg, v)
			}
		case kInt:
			v, ok, err := b.GetInt(s.key)
			if err != nil {
				return fmt.Errorf("reading %s: %w", s.key, err)
			}
			if ok {
				s.apply(cfg, v)
			}
		case kFloat:
			v, ok, err := b.GetString(s.key)
			if err != nil {
				return fmt.Errorf("reading %s: %w", s.key, err)
			}
			if ok && v != "" {
				if f, err := strconv.ParseFloat(v, 64); err == nil {
					s.apply(cfg, f)
				} else {
					fmt.Fprintf(os.Stderr, "[WARN] could not parse float from config key %s=%q: %v. Using default value.\n", s.key, v, err)
				}
			}
		}
	}
	return nil
}

func applyEnvOverrides(cfg *Config) {
	for _, s := range specs {
		if s.env == "" {
			continue
		}
		raw := os.Getenv(s.env)
		if raw == "" {
			continue
		}
		switch s.typ {
		case kString:
			s.apply(cfg, raw)
		case kInt:
			if i, err := strconv.Atoi(raw); err == nil {
				s.apply(cfg, i)
			} else {
				fmt.Fprintf(os.Stderr, "[WARN] could not parse integer from env var %s=%q: %v. Using default value.\n", s.env, raw, err)
			}
		case kFloat:
			if f, err := strconv.ParseFloat(raw, 64); err == nil {
				s.apply(cfg, f)
			} else {
				fmt.Fprintf(os.Stderr, "[WARN] could not parse float from env var %s=%q: %v. Using default value.\n", s.env, raw, err)
			}
		}
	}
}
