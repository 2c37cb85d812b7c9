// Package whisper provides a local whisper.cpp-backed recognizer using the
// whisper.cpp CGO bindings. It implements the recognize.Recognizer interface.
//
// whisper.cpp is a batch (non-streaming) transcription engine, so the
// recognizer simulates streaming by buffering incoming PCM audio into
// fixed-duration windows (5 s by default) and transcribing each window
// independently. Every window produces a single final result; no interims are
// emitted, and because whisper.cpp reports no native confidence score each
// result carries a fixed nominal confidence. The trailing partial window is
// flushed when the stream closes.
//
// The whisper.cpp static library (libwhisper.a) and headers must be available
// at link time via LIBRARY_PATH and C_INCLUDE_PATH.
package whisper

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	whisperlib "github.com/ggerganov/whisper.cpp/bindings/go/pkg/whisper"

	"github.com/courseai/courseai/pkg/recognize"
)

const (
	backendName = "whisper"

	// bitsPerSample is fixed at 16 for the signed little-endian PCM audio
	// whisper.cpp expects.
	bitsPerSample = 16

	defaultLanguage   = "zh"
	defaultSampleRate = 16000

	// defaultWindowSeconds is the batch window duration. At 16 kHz mono
	// 16-bit this is 160 000 bytes per window.
	defaultWindowSeconds = 5

	// nominalConfidence is reported on every result because whisper.cpp
	// provides no per-result confidence score.
	nominalConfidence = 0.9
)

// Compile-time assertion that Provider implements recognize.Recognizer.
var _ recognize.Recognizer = (*Provider)(nil)

// Option is a functional option for configuring a Provider.
type Option func(*Provider)

// WithLanguage sets the transcription language code (e.g. "zh", "en").
// Defaults to "zh".
func WithLanguage(lang string) Option {
	return func(p *Provider) { p.language = lang }
}

// WithSampleRate sets the audio sample rate in Hz. Must match the PCM data
// delivered via SendAudio. Defaults to 16000.
func WithSampleRate(rate int) Option {
	return func(p *Provider) { p.sampleRate = rate }
}

// WithWindowSeconds sets the batch window duration in seconds. Shorter windows
// reduce latency at the cost of recognition quality on utterances that span a
// window boundary. Defaults to 5.
func WithWindowSeconds(sec int) Option {
	return func(p *Provider) { p.windowSeconds = sec }
}

// Provider implements recognize.Recognizer using the whisper.cpp Go bindings.
// The model is loaded once and shared by all concurrent streams; each stream
// runs inference on its own whisper context.
type Provider struct {
	model         whisperlib.Model
	language      string
	sampleRate    int
	windowSeconds int
}

// New creates a Provider that loads the whisper.cpp model from the given file
// path. The caller must call Close when the provider is no longer needed.
func New(modelPath string, opts ...Option) (*Provider, error) {
	if modelPath == "" {
		return nil, errors.New("whisper: modelPath must not be empty")
	}
	model, err := whisperlib.New(modelPath)
	if err != nil {
		return nil, &recognize.BackendError{Backend: backendName, Err: fmt.Errorf("load model %q: %w", modelPath, err)}
	}

	p := &Provider{
		model:         model,
		language:      defaultLanguage,
		sampleRate:    defaultSampleRate,
		windowSeconds: defaultWindowSeconds,
	}
	for _, o := range opts {
		o(p)
	}
	return p, nil
}

// Close releases the whisper model.
func (p *Provider) Close() error {
	if p.model != nil {
		return p.model.Close()
	}
	return nil
}

// StartStream opens a new transcription stream. No inference happens until the
// first full window has been buffered.
func (p *Provider) StartStream(ctx context.Context, cfg recognize.StreamConfig) (recognize.Stream, error) {
	if err := ctx.Err(); err != nil {
		return nil, &recognize.BackendError{Backend: backendName, Err: err}
	}

	lang := cfg.Language
	if lang == "" {
		lang = p.language
	}
	sr := cfg.SampleRate
	if sr <= 0 {
		sr = p.sampleRate
	}
	ch := cfg.Channels
	if ch <= 0 {
		ch = 1
	}

	s := newStream(p.inferFunc(lang), sr, ch, p.windowSeconds)
	s.wg.Add(1)
	go s.processLoop(ctx)
	return s, nil
}

// inferFunc binds the shared model and a language into the per-window
// inference function used by the stream.
func (p *Provider) inferFunc(language string) inferFn {
	return func(pcm []byte, channels int) (string, error) {
		return inferNative(p.model, language, pcm, channels)
	}
}

// inferFn transcribes one PCM window. Split out so stream tests can substitute
// a fake without loading a model.
type inferFn func(pcm []byte, channels int) (string, error)

// stream is a live whisper transcription stream. It implements
// recognize.Stream. All buffering state is confined to the processLoop
// goroutine; no additional synchronisation is needed for it.
type stream struct {
	infer       inferFn
	channels    int
	windowBytes int

	audio   chan []byte
	results chan recognize.Result

	done    chan struct{}
	stopped chan struct{}
	once    sync.Once
	wg      sync.WaitGroup

	errMu sync.Mutex
	err   error
}

// newStream builds a stream without starting its process loop. The caller must
// call s.wg.Add(1) and go s.processLoop(ctx).
func newStream(infer inferFn, sampleRate, channels, windowSeconds int) *stream {
	windowBytes := sampleRate * channels * (bitsPerSample / 8) * windowSeconds
	if windowBytes <= 0 {
		windowBytes = defaultSampleRate * (bitsPerSample / 8) * defaultWindowSeconds
	}
	return &stream{
		infer:       infer,
		channels:    channels,
		windowBytes: windowBytes,
		audio:       make(chan []byte, 256),
		results:     make(chan recognize.Result, 64),
		done:        make(chan struct{}),
		stopped:     make(chan struct{}),
	}
}

// SendAudio queues a chunk of raw 16-bit little-endian signed PCM audio.
// Once the process loop has exited, after Close or a terminal inference
// error, SendAudio fails instead of filling a queue nothing drains.
func (s *stream) SendAudio(chunk []byte) error {
	select {
	case <-s.done:
		return errors.New("whisper: stream is closed")
	case <-s.stopped:
		return s.closedErr()
	default:
	}
	select {
	case s.audio <- chunk:
		return nil
	case <-s.done:
		return errors.New("whisper: stream is closed")
	case <-s.stopped:
		return s.closedErr()
	}
}

// closedErr reports why the stream stopped accepting audio.
func (s *stream) closedErr() error {
	if err := s.Err(); err != nil {
		return err
	}
	return errors.New("whisper: stream is closed")
}

// Results returns the channel of recognition results. Every result is final.
func (s *stream) Results() <-chan recognize.Result { return s.results }

// Err returns the terminal backend error, if any.
func (s *stream) Err() error {
	s.errMu.Lock()
	defer s.errMu.Unlock()
	return s.err
}

// Close terminates the stream. The trailing partial window is transcribed
// before the results channel closes.
func (s *stream) Close() error {
	s.once.Do(func() {
		close(s.done)
		s.wg.Wait()
	})
	return nil
}

func (s *stream) setErr(err error) {
	s.errMu.Lock()
	defer s.errMu.Unlock()
	if s.err == nil {
		s.err = err
	}
}

// processLoop buffers incoming audio and transcribes every full window as a
// final result. The final partial window is flushed on shutdown.
func (s *stream) processLoop(ctx context.Context) {
	defer s.wg.Done()
	defer close(s.results)
	// Closed before results so that a drained results channel implies
	// SendAudio already fails.
	defer close(s.stopped)

	var buffer []byte

	// transcribe runs inference on one window and emits the result. A failed
	// window is terminal for the stream.
	transcribe := func(pcm []byte) bool {
		text, err := s.infer(pcm, s.channels)
		if err != nil {
			s.setErr(&recognize.BackendError{Backend: backendName, Err: err})
			return false
		}
		if text == "" {
			return true
		}
		r := recognize.Result{Text: text, Confidence: nominalConfidence, IsFinal: true}
		// s.done is already closed while draining after Close, so the send
		// must come first; the done guard applies only when the result
		// buffer is full.
		select {
		case s.results <- r:
			return true
		default:
		}
		select {
		case s.results <- r:
		case <-s.done:
		}
		return true
	}

	// flushTail transcribes whatever partial window remains.
	flushTail := func() {
		if len(buffer) > 0 {
			transcribe(buffer)
			buffer = nil
		}
	}

	for {
		select {
		case <-ctx.Done():
			flushTail()
			return

		case <-s.done:
			// Drain any audio queued before Close, then flush the tail.
			for {
				select {
				case chunk := <-s.audio:
					buffer = append(buffer, chunk...)
				default:
					for len(buffer) >= s.windowBytes {
						window := buffer[:s.windowBytes]
						buffer = buffer[s.windowBytes:]
						if !transcribe(window) {
							return
						}
					}
					flushTail()
					return
				}
			}

		case chunk := <-s.audio:
			buffer = append(buffer, chunk...)
			for len(buffer) >= s.windowBytes {
				window := buffer[:s.windowBytes]
				buffer = buffer[s.windowBytes:]
				if !transcribe(window) {
					return
				}
			}
		}
	}
}

// inferNative converts pcm to float32 mono samples, runs whisper.cpp inference
// on a fresh context, and returns the concatenated segment text. Contexts are
// not thread-safe, but the model may be shared across goroutines.
func inferNative(model whisperlib.Model, language string, pcm []byte, channels int) (string, error) {
	samples := pcmToFloat32Mono(pcm, channels)

	wctx, err := model.NewContext()
	if err != nil {
		return "", fmt.Errorf("create context: %w", err)
	}
	if err := wctx.SetLanguage(language); err != nil {
		return "", fmt.Errorf("set language %q: %w", language, err)
	}
	if err := wctx.Process(samples, nil, nil, nil); err != nil {
		return "", fmt.Errorf("process audio: %w", err)
	}

	var parts []string
	for {
		segment, err := wctx.NextSegment()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return "", fmt.Errorf("read segment: %w", err)
		}
		text := strings.TrimSpace(segment.Text)
		if text != "" {
			parts = append(parts, text)
		}
	}
	return strings.Join(parts, " "), nil
}
