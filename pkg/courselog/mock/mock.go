// Package mock provides an in-memory test double for the courselog store
// interfaces.
//
// Use Writer in pipeline tests to inspect which segments and hints were
// persisted and to inject write failures.
package mock

import (
	"context"
	"sync"

	"github.com/courseai/courseai/pkg/courselog"
)

// Writer is a mock implementation of [courselog.HintWriter]. All fields are
// safe to read after the exercised code has finished; mutating them during a
// concurrent call is the caller's responsibility.
type Writer struct {
	mu sync.Mutex

	// InsertTranscriptErr, if non-nil, is returned by every InsertTranscript call.
	InsertTranscriptErr error

	// InsertHintErr, if non-nil, is returned by every InsertHint call.
	InsertHintErr error

	// Transcripts records every segment passed to InsertTranscript, in order.
	Transcripts []courselog.TranscriptSegment

	// Hints records every hint passed to InsertHint, in order.
	Hints []courselog.TeacherHint
}

// InsertTranscript records seg and returns InsertTranscriptErr.
func (w *Writer) InsertTranscript(_ context.Context, seg courselog.TranscriptSegment) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.InsertTranscriptErr != nil {
		return w.InsertTranscriptErr
	}
	w.Transcripts = append(w.Transcripts, seg)
	return nil
}

// InsertHint records hint and returns InsertHintErr.
func (w *Writer) InsertHint(_ context.Context, hint courselog.TeacherHint) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.InsertHintErr != nil {
		return w.InsertHintErr
	}
	w.Hints = append(w.Hints, hint)
	return nil
}

// TranscriptCount returns the number of persisted segments. Thread-safe.
func (w *Writer) TranscriptCount() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.Transcripts)
}

// HintCount returns the number of persisted hints. Thread-safe.
func (w *Writer) HintCount() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.Hints)
}

// Compile-time interface check.
var _ courselog.HintWriter = (*Writer)(nil)
