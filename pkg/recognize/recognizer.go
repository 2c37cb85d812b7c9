// Package recognize defines the Recognizer interface for speech-to-text
// backends.
//
// A Recognizer wraps a transcription service (Google Cloud Speech streaming,
// or a local whisper.cpp model) and exposes a uniform streaming interface. The
// central abstraction is Stream: once opened, a stream accepts raw PCM audio
// chunks and emits Result values in the order the audio was consumed. A single
// utterance may produce zero or more interim results before its final result;
// backends that cannot produce interims emit finals only.
//
// Implementations must be safe for concurrent use. One Recognizer instance is
// typically created at application start and shared by every course session;
// each session owns its own Stream.
package recognize

import "context"

// Result is one speech-recognition result, interim or final.
type Result struct {
	// Text is the recognised speech content.
	Text string

	// Confidence is the recognition confidence in [0.0, 1.0]. Interim results
	// report 0; backends without native scoring report a fixed nominal value.
	Confidence float64

	// IsFinal indicates whether the backend has committed to this result.
	// Interim results may be revised by a later result for the same utterance.
	IsFinal bool
}

// StreamConfig describes the audio format and recognition hints for a new
// stream.
type StreamConfig struct {
	// SampleRate is the audio sample rate in Hz. The capture client delivers
	// 16 kHz mono 16-bit PCM.
	SampleRate int

	// Channels is the number of audio channels. 1 = mono.
	Channels int

	// Language is the recognition language code. Backends apply their own
	// default when empty ("zh-TW" for Google, "zh" for whisper).
	Language string
}

// Stream represents one open recognition stream tied to one course session.
//
// Callers must call Close when the stream is no longer needed and must drain
// Results until it is closed. All methods are safe for concurrent use.
type Stream interface {
	// SendAudio delivers a chunk of raw PCM audio for transcription. Chunk
	// boundaries are arbitrary. Calling SendAudio after Close returns an error.
	SendAudio(chunk []byte) error

	// Results returns a read-only channel emitting recognition results in
	// audio order. The channel is closed when the stream ends, either normally
	// (Close) or because the backend failed; in the latter case Err reports
	// the failure.
	Results() <-chan Result

	// Err returns the terminal backend error, or nil if the stream ended
	// normally. Only valid after Results has been closed.
	Err() error

	// Close terminates the stream, flushes any pending audio, and releases all
	// associated resources. Calling Close more than once is safe and returns nil.
	Close() error
}

// Recognizer is the abstraction over any speech-to-text backend.
//
// Implementations must be safe for concurrent use; multiple streams may be
// open simultaneously, one per live course session.
type Recognizer interface {
	// StartStream opens a new recognition stream with the given audio format.
	// The returned Stream is ready to accept audio immediately. The caller
	// owns the Stream and must call Close when done.
	StartStream(ctx context.Context, cfg StreamConfig) (Stream, error)
}
