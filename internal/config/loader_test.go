package config_test

import (
	"strings"
	"testing"

	"github.com/courseai/courseai/internal/config"
)

func TestLoadFromReader_Defaults(t *testing.T) {
	t.Parallel()
	yaml := `
database:
  dsn: "postgres://localhost/courseai"
llm:
  provider: openai
  model: gpt-4o-mini
`
	cfg, err := config.LoadFromReader(strings.NewReader(yaml))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Server.ListenAddr != config.DefaultListenAddr {
		t.Errorf("ListenAddr = %q, want %q", cfg.Server.ListenAddr, config.DefaultListenAddr)
	}
	if cfg.Speech.Backend != config.BackendGoogle {
		t.Errorf("Backend = %q, want google", cfg.Speech.Backend)
	}
	if cfg.Speech.SampleRate != config.DefaultSampleRate {
		t.Errorf("SampleRate = %d, want %d", cfg.Speech.SampleRate, config.DefaultSampleRate)
	}
	// Language has no global default: google and whisper disagree on theirs,
	// so an unset value must reach the backends untouched.
	if cfg.Speech.Language != "" {
		t.Errorf("Language = %q, want empty", cfg.Speech.Language)
	}
	if cfg.Uploads.MaxSizeBytes != config.DefaultMaxUploadBytes {
		t.Errorf("MaxSizeBytes = %d, want %d", cfg.Uploads.MaxSizeBytes, config.DefaultMaxUploadBytes)
	}
}

func TestLoadFromReader_UnknownFieldRejected(t *testing.T) {
	t.Parallel()
	yaml := `
server:
  listen_adr: ":9090"
`
	_, err := config.LoadFromReader(strings.NewReader(yaml))
	if err == nil {
		t.Fatal("expected error for unknown field, got nil")
	}
}

func TestValidate_InvalidBackend(t *testing.T) {
	t.Parallel()
	yaml := `
speech:
  backend: azure
`
	_, err := config.LoadFromReader(strings.NewReader(yaml))
	if err == nil {
		t.Fatal("expected error for invalid backend, got nil")
	}
	if !strings.Contains(err.Error(), "speech.backend") {
		t.Errorf("error should mention speech.backend, got: %v", err)
	}
}

func TestValidate_WhisperRequiresModelPath(t *testing.T) {
	t.Parallel()
	yaml := `
speech:
  backend: whisper
`
	_, err := config.LoadFromReader(strings.NewReader(yaml))
	if err == nil {
		t.Fatal("expected error for whisper without model_path, got nil")
	}
	if !strings.Contains(err.Error(), "model_path") {
		t.Errorf("error should mention model_path, got: %v", err)
	}
}

func TestValidate_FallbackRequiresModelPath(t *testing.T) {
	t.Parallel()
	yaml := `
speech:
  backend: google
  fallback: true
`
	_, err := config.LoadFromReader(strings.NewReader(yaml))
	if err == nil {
		t.Fatal("expected error for fallback without model_path, got nil")
	}
}

func TestValidate_LLMModelRequired(t *testing.T) {
	t.Parallel()
	yaml := `
llm:
  provider: openai
`
	_, err := config.LoadFromReader(strings.NewReader(yaml))
	if err == nil {
		t.Fatal("expected error for llm provider without model, got nil")
	}
	if !strings.Contains(err.Error(), "llm.model") {
		t.Errorf("error should mention llm.model, got: %v", err)
	}
}

func TestValidate_MultipleErrors(t *testing.T) {
	t.Parallel()
	yaml := `
server:
  log_level: loud
speech:
  sample_rate: -1
llm:
  provider: openai
`
	_, err := config.LoadFromReader(strings.NewReader(yaml))
	if err == nil {
		t.Fatal("expected errors, got nil")
	}
	errStr := err.Error()
	if !strings.Contains(errStr, "log_level") {
		t.Errorf("error should mention log_level, got: %v", err)
	}
	if !strings.Contains(errStr, "sample_rate") {
		t.Errorf("error should mention sample_rate, got: %v", err)
	}
	if !strings.Contains(errStr, "llm.model") {
		t.Errorf("error should mention llm.model, got: %v", err)
	}
}

func TestSlogLevel(t *testing.T) {
	t.Parallel()
	if config.LogLevel("").SlogLevel().String() != "INFO" {
		t.Error("empty level should default to info")
	}
	if config.LogDebug.SlogLevel().String() != "DEBUG" {
		t.Error("debug level should map to DEBUG")
	}
}
