package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"
	"time"

	"gopkg.in/yaml.v3"
)

// ValidLLMProviders lists known LLM provider names.
// Used by [Validate] to warn about unrecognised names.
var ValidLLMProviders = []string{
	"openai", "anthropic", "gemini", "ollama", "deepseek", "mistral", "groq", "llamacpp",
}

// Defaults applied by [Validate] when the corresponding field is unset.
const (
	DefaultListenAddr      = ":8080"
	DefaultSampleRate      = 16000
	DefaultWindowSeconds   = 5
	DefaultUploadDir       = "uploads/slides"
	DefaultMaxUploadBytes  = 50 << 20
	DefaultShutdownTimeout = 15 * time.Second
)

// Load reads the YAML configuration file at path and returns a validated [Config].
// It is a convenience wrapper around [LoadFromReader].
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %q: %w", path, err)
	}
	defer f.Close()

	cfg, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}

// LoadFromReader decodes a YAML config from r and validates the result.
// Useful in tests where configs are constructed from string literals.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := &Config{}
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that cfg contains a coherent set of values and fills in
// defaults for unset fields. It returns a joined error listing all
// validation failures found.
func Validate(cfg *Config) error {
	var errs []error

	// Server
	if cfg.Server.ListenAddr == "" {
		cfg.Server.ListenAddr = DefaultListenAddr
	}
	if cfg.Server.LogLevel != "" && !cfg.Server.LogLevel.IsValid() {
		errs = append(errs, fmt.Errorf("server.log_level %q is invalid; valid values: debug, info, warn, error", cfg.Server.LogLevel))
	}
	if cfg.Server.ShutdownTimeout < 0 {
		errs = append(errs, fmt.Errorf("server.shutdown_timeout %s is negative", cfg.Server.ShutdownTimeout))
	} else if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = DefaultShutdownTimeout
	}

	// Database
	if cfg.Database.DSN == "" {
		slog.Warn("database.dsn is empty; transcripts and hints will not be persisted")
	}

	// Speech
	if cfg.Speech.Backend == "" {
		cfg.Speech.Backend = BackendGoogle
	} else if !cfg.Speech.Backend.IsValid() {
		errs = append(errs, fmt.Errorf("speech.backend %q is invalid; valid values: google, whisper", cfg.Speech.Backend))
	}
	// Language stays empty when unset: each backend has its own default and
	// they disagree ("zh-TW" for google, "zh" for whisper).
	if cfg.Speech.SampleRate < 0 {
		errs = append(errs, fmt.Errorf("speech.sample_rate %d is negative", cfg.Speech.SampleRate))
	} else if cfg.Speech.SampleRate == 0 {
		cfg.Speech.SampleRate = DefaultSampleRate
	}
	if cfg.Speech.Whisper.WindowSeconds < 0 {
		errs = append(errs, fmt.Errorf("speech.whisper.window_seconds %d is negative", cfg.Speech.Whisper.WindowSeconds))
	} else if cfg.Speech.Whisper.WindowSeconds == 0 {
		cfg.Speech.Whisper.WindowSeconds = DefaultWindowSeconds
	}
	whisperNeeded := cfg.Speech.Backend == BackendWhisper || cfg.Speech.Fallback
	if whisperNeeded && cfg.Speech.Whisper.ModelPath == "" {
		errs = append(errs, errors.New("speech.whisper.model_path is required when the whisper backend is used"))
	}

	// LLM
	if cfg.LLM.Provider == "" {
		slog.Warn("llm.provider is empty; hint enrichment and coursework generation will be unavailable")
	} else if !slices.Contains(ValidLLMProviders, cfg.LLM.Provider) {
		slog.Warn("unknown llm provider name; may be a typo or third-party provider",
			"name", cfg.LLM.Provider,
			"known", ValidLLMProviders,
		)
	}
	if cfg.LLM.Provider != "" && cfg.LLM.Model == "" {
		errs = append(errs, errors.New("llm.model is required when llm.provider is set"))
	}

	// Uploads
	if cfg.Uploads.Dir == "" {
		cfg.Uploads.Dir = DefaultUploadDir
	}
	if cfg.Uploads.MaxSizeBytes < 0 {
		errs = append(errs, fmt.Errorf("uploads.max_size_bytes %d is negative", cfg.Uploads.MaxSizeBytes))
	} else if cfg.Uploads.MaxSizeBytes == 0 {
		cfg.Uploads.MaxSizeBytes = DefaultMaxUploadBytes
	}

	return errors.Join(errs...)
}

// SlogLevel converts the configured log level into a slog.Level.
// An empty level defaults to info.
func (l LogLevel) SlogLevel() slog.Level {
	switch l {
	case LogDebug:
		return slog.LevelDebug
	case LogWarn:
		return slog.LevelWarn
	case LogError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
