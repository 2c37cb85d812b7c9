// Package server exposes the CourseAI HTTP surface: course CRUD, slide
// uploads, quiz generation and grading, and the websocket ingestion channel
// that feeds live lecture audio into the transcription pipeline.
package server

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/courseai/courseai/internal/coursework"
	"github.com/courseai/courseai/internal/health"
	"github.com/courseai/courseai/internal/hint"
	"github.com/courseai/courseai/internal/observe"
	"github.com/courseai/courseai/internal/slides"
	"github.com/courseai/courseai/pkg/courselog"
	"github.com/courseai/courseai/pkg/recognize"
)

// Config assembles the collaborators of the HTTP server.
type Config struct {
	// Store is the persistence gateway. Required.
	Store courselog.Store

	// Recognizer produces transcriptions for websocket sessions. When nil,
	// websocket clients receive an error event and are disconnected.
	Recognizer recognize.Recognizer

	// Backend names the recognition backend for logs and metrics.
	Backend string

	// SampleRate is the PCM sample rate expected from capture clients.
	SampleRate int

	// Language is the recognition language passed to each stream.
	Language string

	// Enricher analyzes detected hint phrases. Required.
	Enricher *hint.Enricher

	// Coursework runs the analysis/quiz LLM flows. When nil, those endpoints
	// return 503.
	Coursework *coursework.Service

	// Slides processes uploaded slide decks. Required.
	Slides *slides.Processor

	// MaxUploadBytes caps the size of one slide upload.
	MaxUploadBytes int64

	// Log is the server logger. Defaults to slog.Default.
	Log *slog.Logger

	// Metrics records HTTP and pipeline instrumentation. Defaults to
	// observe.DefaultMetrics.
	Metrics *observe.Metrics

	// Checkers are evaluated by the /readyz probe.
	Checkers []health.Checker
}

// Server routes HTTP requests to the CourseAI subsystems.
type Server struct {
	cfg    Config
	log    *slog.Logger
	health *health.Handler
}

// New validates cfg and creates a Server.
func New(cfg Config) (*Server, error) {
	if cfg.Store == nil {
		return nil, fmt.Errorf("server: Store must not be nil")
	}
	if cfg.Enricher == nil {
		return nil, fmt.Errorf("server: Enricher must not be nil")
	}
	if cfg.Slides == nil {
		return nil, fmt.Errorf("server: Slides must not be nil")
	}
	if cfg.Log == nil {
		cfg.Log = slog.Default()
	}
	if cfg.Metrics == nil {
		cfg.Metrics = observe.DefaultMetrics()
	}
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = 50 << 20
	}

	return &Server{
		cfg:    cfg,
		log:    cfg.Log,
		health: health.New(cfg.Checkers...),
	}, nil
}

// Handler builds the full route table. API routes are wrapped in the
// observability middleware; probe and metrics endpoints are not.
func (s *Server) Handler() http.Handler {
	api := http.NewServeMux()

	api.HandleFunc("POST /api/v1/courses", s.handleCreateCourse)
	api.HandleFunc("GET /api/v1/courses", s.handleListCourses)
	api.HandleFunc("GET /api/v1/courses/{course_id}", s.handleGetCourse)
	api.HandleFunc("DELETE /api/v1/courses/{course_id}", s.handleDeleteCourse)
	api.HandleFunc("GET /api/v1/courses/{course_id}/transcripts", s.handleListTranscripts)
	api.HandleFunc("GET /api/v1/courses/{course_id}/hints", s.handleListHints)
	api.HandleFunc("POST /api/v1/courses/{course_id}/slides", s.handleUploadSlides)
	api.HandleFunc("POST /api/v1/courses/{course_id}/analyze", s.handleAnalyzeCourse)
	api.HandleFunc("POST /api/v1/courses/{course_id}/suggest-quiz-scopes", s.handleSuggestQuizScopes)
	api.HandleFunc("POST /api/v1/quiz/generate", s.handleGenerateQuiz)
	api.HandleFunc("POST /api/v1/quiz/grade", s.handleGradeAnswer)
	api.HandleFunc("GET /api/v1/transcripts/ws/{course_id}", s.handleTranscribeWS)

	mux := http.NewServeMux()
	mux.Handle("/api/v1/", observe.Middleware(s.cfg.Metrics)(api))
	mux.Handle("GET /metrics", promhttp.Handler())
	s.health.Register(mux)

	return mux
}
