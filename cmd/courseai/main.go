// Command courseai is the lecture capture backend server: it ingests live
// meeting audio over websockets, transcribes it, detects teacher emphasis
// cues, and serves the course, slide, and quiz APIs.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	speech "cloud.google.com/go/speech/apiv1"
	anyllmlib "github.com/mozilla-ai/any-llm-go"
	"golang.org/x/sync/errgroup"

	"github.com/courseai/courseai/internal/config"
	"github.com/courseai/courseai/internal/coursework"
	"github.com/courseai/courseai/internal/health"
	"github.com/courseai/courseai/internal/hint"
	"github.com/courseai/courseai/internal/observe"
	"github.com/courseai/courseai/internal/resilience"
	"github.com/courseai/courseai/internal/server"
	"github.com/courseai/courseai/internal/slides"
	"github.com/courseai/courseai/pkg/courselog/postgres"
	"github.com/courseai/courseai/pkg/provider/llm"
	"github.com/courseai/courseai/pkg/provider/llm/anyllm"
	"github.com/courseai/courseai/pkg/recognize"
	"github.com/courseai/courseai/pkg/recognize/google"
	"github.com/courseai/courseai/pkg/recognize/whisper"
)

func main() {
	os.Exit(run())
}

func run() int {
	// ── CLI flags ──────────────────────────────────────────────────────────────
	configPath := flag.String("config", "config.yaml", "path to the YAML configuration file")
	flag.Parse()

	// ── Load configuration ────────────────────────────────────────────────────
	cfg, err := config.Load(*configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			fmt.Fprintf(os.Stderr, "courseai: config file %q not found, copy configs/example.yaml to get started\n", *configPath)
		} else {
			fmt.Fprintf(os.Stderr, "courseai: %v\n", err)
		}
		return 1
	}

	// ── Logger ────────────────────────────────────────────────────────────────
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: cfg.Server.LogLevel.SlogLevel(),
	}))
	slog.SetDefault(logger)

	slog.Info("courseai starting",
		"config", *configPath,
		"listen_addr", cfg.Server.ListenAddr,
		"log_level", cfg.Server.LogLevel,
	)

	// ── Signal context ────────────────────────────────────────────────────────
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ── Telemetry ─────────────────────────────────────────────────────────────
	otelShutdown, err := observe.InitProvider(ctx, observe.ProviderConfig{ServiceName: "courseai"})
	if err != nil {
		slog.Error("failed to initialise telemetry", "err", err)
		return 1
	}
	defer func() {
		if err := otelShutdown(context.Background()); err != nil {
			slog.Warn("telemetry shutdown error", "err", err)
		}
	}()

	// ── Persistence ───────────────────────────────────────────────────────────
	if cfg.Database.DSN == "" {
		slog.Error("database.dsn is required to run the server")
		return 1
	}
	store, err := postgres.NewStore(ctx, cfg.Database.DSN)
	if err != nil {
		slog.Error("failed to connect to database", "err", err)
		return 1
	}
	defer store.Close()

	// ── Speech recognition ────────────────────────────────────────────────────
	// A missing backend degrades rather than aborts: the HTTP APIs stay up and
	// websocket clients receive an error event.
	recognizer := buildRecognizer(ctx, cfg.Speech)

	// ── LLM provider ──────────────────────────────────────────────────────────
	provider := buildLLMProvider(cfg.LLM)

	var cw *coursework.Service
	if provider != nil {
		cw = coursework.NewService(provider, logger)
	}

	// ── Slides ────────────────────────────────────────────────────────────────
	slideProc, err := slides.NewProcessor(cfg.Uploads.Dir)
	if err != nil {
		slog.Error("failed to initialise upload directory", "err", err, "dir", cfg.Uploads.Dir)
		return 1
	}

	// ── HTTP server ───────────────────────────────────────────────────────────
	srv, err := server.New(server.Config{
		Store:          store,
		Recognizer:     recognizer,
		Backend:        string(cfg.Speech.Backend),
		SampleRate:     cfg.Speech.SampleRate,
		Language:       cfg.Speech.Language,
		Enricher:       hint.NewEnricher(provider, logger),
		Coursework:     cw,
		Slides:         slideProc,
		MaxUploadBytes: cfg.Uploads.MaxSizeBytes,
		Log:            logger,
		Checkers: []health.Checker{
			health.Database(store),
			health.UploadDir(cfg.Uploads.Dir),
		},
	})
	if err != nil {
		slog.Error("failed to initialise server", "err", err)
		return 1
	}

	httpSrv := &http.Server{
		Addr:              cfg.Server.ListenAddr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: cfg.Server.ReadTimeout,
	}

	printStartupSummary(cfg, recognizer != nil, provider != nil)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := httpSrv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		slog.Info("shutdown signal received, stopping")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		return httpSrv.Shutdown(shutdownCtx)
	})

	slog.Info("server ready, press Ctrl+C to shut down")

	if err := g.Wait(); err != nil {
		slog.Error("server error", "err", err)
		return 1
	}
	slog.Info("goodbye")
	return 0
}

// ── Provider wiring ───────────────────────────────────────────────────────────

// buildBackendFn is swapped out by tests that exercise the recognizer
// selection logic without real backends.
var buildBackendFn = buildBackend

// buildRecognizer constructs the configured speech backend. When the
// preferred cloud backend cannot be initialised and a whisper model is
// configured, the local backend takes over; otherwise failures are logged and
// yield a nil recognizer so the rest of the server stays usable.
func buildRecognizer(ctx context.Context, cfg config.SpeechConfig) recognize.Recognizer {
	primary := buildBackendFn(ctx, cfg, cfg.Backend)
	if primary == nil {
		if cfg.Backend == config.BackendGoogle && cfg.Whisper.ModelPath != "" {
			if backup := buildBackendFn(ctx, cfg, config.BackendWhisper); backup != nil {
				slog.Warn("preferred backend unavailable, falling back to whisper",
					"preferred", cfg.Backend)
				return backup
			}
		}
		return nil
	}

	if cfg.Fallback && cfg.Backend == config.BackendGoogle {
		backup := buildBackendFn(ctx, cfg, config.BackendWhisper)
		if backup != nil {
			fb := resilience.NewRecognizerFallback(primary, string(cfg.Backend), resilience.FallbackConfig{})
			fb.AddFallback(string(config.BackendWhisper), backup)
			slog.Info("recognizer fallback enabled",
				"primary", cfg.Backend, "fallback", config.BackendWhisper)
			return fb
		}
		slog.Warn("fallback requested but whisper backend unavailable")
	}

	return primary
}

func buildBackend(ctx context.Context, cfg config.SpeechConfig, backend config.SpeechBackend) recognize.Recognizer {
	switch backend {
	case config.BackendGoogle:
		client, err := speech.NewClient(ctx)
		if err != nil {
			slog.Warn("google speech client unavailable, transcription disabled", "err", err)
			return nil
		}
		opts := []google.Option{google.WithSampleRate(cfg.SampleRate)}
		if cfg.Language != "" {
			opts = append(opts, google.WithLanguage(cfg.Language))
		}
		p, err := google.New(client, opts...)
		if err != nil {
			slog.Warn("google recognizer init failed", "err", err)
			return nil
		}
		slog.Info("recognizer created", "backend", backend)
		return p

	case config.BackendWhisper:
		opts := []whisper.Option{
			whisper.WithSampleRate(cfg.SampleRate),
			whisper.WithWindowSeconds(cfg.Whisper.WindowSeconds),
		}
		if cfg.Language != "" {
			opts = append(opts, whisper.WithLanguage(cfg.Language))
		}
		p, err := whisper.New(cfg.Whisper.ModelPath, opts...)
		if err != nil {
			slog.Warn("whisper recognizer init failed", "err", err, "model", cfg.Whisper.ModelPath)
			return nil
		}
		slog.Info("recognizer created", "backend", backend, "model", cfg.Whisper.ModelPath)
		return p
	}
	return nil
}

// buildLLMProvider constructs the configured LLM backend, or nil when the
// config leaves it out. Without a provider, hint enrichment falls back to its
// sentinel values and the analysis/quiz endpoints return 503.
func buildLLMProvider(cfg config.LLMConfig) llm.Provider {
	if cfg.Provider == "" || cfg.Model == "" {
		slog.Warn("llm provider not configured, analysis and quiz generation disabled")
		return nil
	}

	var opts []anyllmlib.Option
	if cfg.APIKey != "" {
		opts = append(opts, anyllmlib.WithAPIKey(cfg.APIKey))
	}
	if cfg.BaseURL != "" {
		opts = append(opts, anyllmlib.WithBaseURL(cfg.BaseURL))
	}

	p, err := anyllm.New(cfg.Provider, cfg.Model, opts...)
	if err != nil {
		slog.Warn("llm provider init failed, analysis and quiz generation disabled", "err", err)
		return nil
	}
	slog.Info("llm provider created", "provider", cfg.Provider, "model", cfg.Model)
	return p
}

// ── Startup summary ───────────────────────────────────────────────────────────

func printStartupSummary(cfg *config.Config, speechReady, llmReady bool) {
	fmt.Println("╔═══════════════════════════════════════╗")
	fmt.Println("║        CourseAI startup summary       ║")
	fmt.Println("╠═══════════════════════════════════════╣")
	printRow("Speech", summarize(speechReady, string(cfg.Speech.Backend)))
	printRow("LLM", summarize(llmReady, cfg.LLM.Provider+" / "+cfg.LLM.Model))
	printRow("Database", "connected")
	printRow("Uploads", cfg.Uploads.Dir)
	printRow("Listen addr", cfg.Server.ListenAddr)
	fmt.Println("╚═══════════════════════════════════════╝")
}

func summarize(ready bool, desc string) string {
	if !ready {
		return "(disabled)"
	}
	return desc
}

func printRow(kind, value string) {
	if len(value) > 19 {
		value = value[:16] + "…"
	}
	fmt.Printf("║  %-14s  : %-19s ║\n", kind, value)
}
