package resilience

import (
	"context"

	"github.com/courseai/courseai/pkg/recognize"
)

// RecognizerFallback implements [recognize.Recognizer] with automatic failover
// across multiple speech backends. Each backend has its own circuit breaker.
//
// Failover applies at stream open time only. Once a stream is running, a
// backend failure mid-stream terminates that stream; the next session opened
// through the group routes around the tripped backend.
type RecognizerFallback struct {
	group *FallbackGroup[recognize.Recognizer]
}

// Compile-time interface assertion.
var _ recognize.Recognizer = (*RecognizerFallback)(nil)

// NewRecognizerFallback creates a [RecognizerFallback] with primary as the
// preferred backend.
func NewRecognizerFallback(primary recognize.Recognizer, primaryName string, cfg FallbackConfig) *RecognizerFallback {
	return &RecognizerFallback{
		group: NewFallbackGroup(primary, primaryName, cfg),
	}
}

// AddFallback registers an additional recognition backend as a fallback.
func (f *RecognizerFallback) AddFallback(name string, r recognize.Recognizer) {
	f.group.AddFallback(name, r)
}

// StartStream opens a recognition stream against the first healthy backend.
// If the primary fails to open the stream, subsequent fallbacks are tried.
func (f *RecognizerFallback) StartStream(ctx context.Context, cfg recognize.StreamConfig) (recognize.Stream, error) {
	return ExecuteWithResult(f.group, func(r recognize.Recognizer) (recognize.Stream, error) {
		return r.StartStream(ctx, cfg)
	})
}
