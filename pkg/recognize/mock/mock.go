// Package mock provides a scriptable in-memory implementation of
// recognize.Recognizer for tests.
package mock

import (
	"context"
	"sync"

	"github.com/courseai/courseai/pkg/recognize"
)

// Compile-time assertions.
var (
	_ recognize.Recognizer = (*Recognizer)(nil)
	_ recognize.Stream     = (*Stream)(nil)
)

// Recognizer is a mock recognize.Recognizer. Scripted results are copied into
// every stream it opens.
type Recognizer struct {
	mu sync.Mutex

	// StartErr, if set, is returned by StartStream.
	StartErr error

	// Scripted results emitted by each opened stream, in order.
	Scripted []recognize.Result

	// StreamErr, if set, is reported by Stream.Err after the scripted
	// results have been delivered.
	StreamErr error

	streams []*Stream
}

// StartStream opens a mock stream preloaded with the scripted results.
func (r *Recognizer) StartStream(ctx context.Context, cfg recognize.StreamConfig) (recognize.Stream, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.StartErr != nil {
		return nil, r.StartErr
	}

	s := &Stream{
		Config:  cfg,
		results: make(chan recognize.Result, len(r.Scripted)+1),
		err:     r.StreamErr,
		done:    make(chan struct{}),
	}
	for _, res := range r.Scripted {
		s.results <- res
	}
	if r.StreamErr != nil {
		close(s.results)
	}
	r.streams = append(r.streams, s)
	return s, nil
}

// Streams returns all streams opened so far.
func (r *Recognizer) Streams() []*Stream {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]*Stream(nil), r.streams...)
}

// Stream is a mock recognize.Stream. It records audio sent to it and serves
// the recognizer's scripted results.
type Stream struct {
	Config recognize.StreamConfig

	mu     sync.Mutex
	audio  [][]byte
	closed bool

	results chan recognize.Result
	err     error
	done    chan struct{}
}

// SendAudio records the chunk.
func (s *Stream) SendAudio(chunk []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	buf := append([]byte(nil), chunk...)
	s.audio = append(s.audio, buf)
	return nil
}

// Results returns the scripted result channel. The channel closes when the
// stream is closed or a stream error was scripted.
func (s *Stream) Results() <-chan recognize.Result { return s.results }

// Err returns the scripted stream error, if any.
func (s *Stream) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Close closes the result channel after the scripted results drain.
func (s *Stream) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.closed {
		s.closed = true
		close(s.done)
		if s.err == nil {
			close(s.results)
		}
	}
	return nil
}

// Emit pushes an additional result into the open stream. Useful for tests
// that interleave audio and results.
func (s *Stream) Emit(res recognize.Result) {
	s.results <- res
}

// FinishWithError closes the result channel and makes Err return err, as a
// backend failure would.
func (s *Stream) FinishWithError(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	s.err = err
	close(s.done)
	close(s.results)
}

// AudioBytes returns the total number of audio bytes received.
func (s *Stream) AudioBytes() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int
	for _, c := range s.audio {
		n += len(c)
	}
	return n
}

// Chunks returns the recorded audio chunks.
func (s *Stream) Chunks() [][]byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([][]byte(nil), s.audio...)
}
