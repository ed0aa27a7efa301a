package config

import (
	"errors"
	"strings"
	"testing"
)

// memBackend is an in-memory ConfigBackend for tests.
type memBackend struct {
	data map[string]any
	err  error
}

func (m *memBackend) GetString(key string) (string, bool, error) {
	if m.err != nil {
		return "", false, m.err
	}
	v, ok := m.data[key]
	if !ok {
		return "", false, nil
	}
	s, isStr := v.(string)
	if !isStr {
		return "", false, nil
	}
	return s, true, nil
}

func (m *memBackend) GetInt(key string) (int, bool, error) {
	if m.err != nil {
		return 0, false, m.err
	}
	v, ok := m.data[key]
	if !ok {
		return 0, false, nil
	}
	i, isInt := v.(int)
	if !isInt {
		return 0, false, nil
	}
	return i, true, nil
}

func (m *memBackend) SetString(key, val string) error  { m.data[key] = val; return nil }
func (m *memBackend) SetInt(key string, val int) error { m.data[key] = val; return nil }
func (m *memBackend) Delete(key string) error          { delete(m.data, key); return nil }

func emptyBackend() *memBackend {
	return &memBackend{data: make(map[string]any)}
}

func TestDefaults(t *testing.T) {
	cfg, err := loadWith(emptyBackend())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Inference.Model != "claude-sonnet-4-5" {
		t.Errorf("Inference.Model = %q", cfg.Inference.Model)
	}
	if cfg.Inference.BaseURL != "https://api.anthropic.com" {
		t.Errorf("Inference.BaseURL = %q", cfg.Inference.BaseURL)
	}
	if cfg.Sampling.Rate != 2.0 {
		t.Errorf("Sampling.Rate = %v, want 2.0", cfg.Sampling.Rate)
	}
	if cfg.Preview.Port != 4173 {
		t.Errorf("Preview.Port = %d, want 4173", cfg.Preview.Port)
	}
	if cfg.Component.Name != "AnimatedComponent" {
		t.Errorf("Component.Name = %q", cfg.Component.Name)
	}
	if cfg.Log.Level != "info" {
		t.Errorf("Log.Level = %q, want info", cfg.Log.Level)
	}
}

func TestBackendValuesApplied(t *testing.T) {
	b := emptyBackend()
	b.data["inference.model"] = "claude-opus-4"
	b.data["preview.port"] = 5000
	b.data["sampling.rate"] = "1.5"

	cfg, err := loadWith(b)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Inference.Model != "claude-opus-4" {
		t.Errorf("Inference.Model = %q", cfg.Inference.Model)
	}
	if cfg.Preview.Port != 5000 {
		t.Errorf("Preview.Port = %d", cfg.Preview.Port)
	}
	if cfg.Sampling.Rate != 1.5 {
		t.Errorf("Sampling.Rate = %v", cfg.Sampling.Rate)
	}
}

func TestEnvOverridesBackend(t *testing.T) {
	b := emptyBackend()
	b.data["inference.model"] = "file-model"

	t.Setenv("CLIP2TSX_INFERENCE_MODEL", "env-model")
	t.Setenv("CLIP2TSX_SAMPLING_RATE", "4")

	cfg, err := loadWith(b)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Inference.Model != "env-model" {
		t.Errorf("Inference.Model = %q, want env override", cfg.Inference.Model)
	}
	if cfg.Sampling.Rate != 4.0 {
		t.Errorf("Sampling.Rate = %v, want 4", cfg.Sampling.Rate)
	}
}

func TestAPIKeyFromEnvOnly(t *testing.T) {
	b := emptyBackend()
	// Secrets placed in the config file are ignored.
	b.data["inference.api_key"] = "file-secret"

	cfg, err := loadWith(b)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Inference.APIKey != "" {
		t.Errorf("APIKey = %q, want empty without env", cfg.Inference.APIKey)
	}

	t.Setenv("CLIP2TSX_API_KEY", "env-secret")
	cfg, err = loadWith(b)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Inference.APIKey != "env-secret" {
		t.Errorf("APIKey = %q", cfg.Inference.APIKey)
	}
}

func TestBackendErrorPropagates(t *testing.T) {
	b := &memBackend{err: errors.New("disk exploded")}
	if _, err := loadWith(b); err == nil {
		t.Fatal("expected error")
	}
}

func TestShowAll_HidesSecrets(t *testing.T) {
	cfg, err := loadWith(emptyBackend())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, info := range ShowAll(cfg) {
		if strings.Contains(info.Key, "api_key") {
			t.Errorf("secret key %q exposed by ShowAll", info.Key)
		}
		if info.EnvVar == "" {
			t.Errorf("key %q has no env var", info.Key)
		}
	}
}

func TestValidKeys_MatchSpecs(t *testing.T) {
	keys := ValidKeys()
	if len(keys) != len(specs)-1 {
		t.Errorf("ValidKeys = %d entries, want %d non-secret specs", len(keys), len(specs)-1)
	}
	for _, k := range keys {
		if k == "inference.api_key" {
			t.Error("secret listed in ValidKeys")
		}
	}
}
