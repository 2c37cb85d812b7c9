package resilience_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/courseai/courseai/internal/resilience"
	"github.com/courseai/courseai/pkg/recognize"
	recmock "github.com/courseai/courseai/pkg/recognize/mock"
)

func TestRecognizerFallback_PrimaryHealthy(t *testing.T) {
	primary := &recmock.Recognizer{}
	backup := &recmock.Recognizer{}

	f := resilience.NewRecognizerFallback(primary, "google", resilience.FallbackConfig{})
	f.AddFallback("whisper", backup)

	s, err := f.StartStream(context.Background(), recognize.StreamConfig{SampleRate: 16000, Channels: 1})
	if err != nil {
		t.Fatalf("StartStream: %v", err)
	}
	defer s.Close()

	if got := len(primary.Streams()); got != 1 {
		t.Errorf("primary streams = %d, want 1", got)
	}
	if got := len(backup.Streams()); got != 0 {
		t.Errorf("backup streams = %d, want 0", got)
	}
}

func TestRecognizerFallback_FailoverOnStartError(t *testing.T) {
	primary := &recmock.Recognizer{StartErr: errors.New("quota exceeded")}
	backup := &recmock.Recognizer{}

	f := resilience.NewRecognizerFallback(primary, "google", resilience.FallbackConfig{})
	f.AddFallback("whisper", backup)

	s, err := f.StartStream(context.Background(), recognize.StreamConfig{SampleRate: 16000, Channels: 1})
	if err != nil {
		t.Fatalf("StartStream: %v", err)
	}
	defer s.Close()

	if got := len(backup.Streams()); got != 1 {
		t.Errorf("backup streams = %d, want 1", got)
	}
}

func TestRecognizerFallback_AllFailed(t *testing.T) {
	primary := &recmock.Recognizer{StartErr: errors.New("quota exceeded")}
	backup := &recmock.Recognizer{StartErr: errors.New("model not loaded")}

	f := resilience.NewRecognizerFallback(primary, "google", resilience.FallbackConfig{})
	f.AddFallback("whisper", backup)

	_, err := f.StartStream(context.Background(), recognize.StreamConfig{})
	if !errors.Is(err, resilience.ErrAllFailed) {
		t.Fatalf("err = %v, want ErrAllFailed", err)
	}
}

func TestRecognizerFallback_OpenBreakerSkipsPrimary(t *testing.T) {
	primary := &recmock.Recognizer{StartErr: errors.New("quota exceeded")}
	backup := &recmock.Recognizer{}

	f := resilience.NewRecognizerFallback(primary, "google", resilience.FallbackConfig{
		CircuitBreaker: resilience.CircuitBreakerConfig{
			MaxFailures:  2,
			ResetTimeout: time.Hour,
		},
	})
	f.AddFallback("whisper", backup)

	// Two failing sessions trip the primary's breaker.
	for i := 0; i < 3; i++ {
		s, err := f.StartStream(context.Background(), recognize.StreamConfig{})
		if err != nil {
			t.Fatalf("session %d: %v", i, err)
		}
		s.Close()
	}

	// The breaker opened after the second failure, so the third session never
	// touched the primary.
	if got := len(backup.Streams()); got != 3 {
		t.Errorf("backup streams = %d, want 3", got)
	}
}
