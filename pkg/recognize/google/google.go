// Package google provides a Google Cloud Speech-to-Text backed recognizer
// using the streaming recognition API. It implements the recognize.Recognizer
// interface.
//
// Interim results are forwarded with confidence 0: the API only reports a
// meaningful confidence score once a result is final.
package google

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	speech "cloud.google.com/go/speech/apiv1"
	"cloud.google.com/go/speech/apiv1/speechpb"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/courseai/courseai/pkg/recognize"
)

const (
	backendName       = "google"
	defaultLanguage   = "zh-TW"
	defaultSampleRate = 16000
	recognitionModel  = "latest_long"
)

// Compile-time assertion that Provider implements recognize.Recognizer.
var _ recognize.Recognizer = (*Provider)(nil)

// Option is a functional option for configuring the Provider.
type Option func(*Provider)

// WithLanguage sets the default recognition language code (e.g. "zh-TW",
// "en-US"). Streams may override it via StreamConfig.Language.
func WithLanguage(lang string) Option {
	return func(p *Provider) { p.language = lang }
}

// WithSampleRate sets the provider-level default sample rate in Hz.
func WithSampleRate(rate int) Option {
	return func(p *Provider) { p.sampleRate = rate }
}

// Provider implements recognize.Recognizer backed by the Google Cloud Speech
// streaming API. A single Provider (and its underlying gRPC client) is shared
// across all course sessions; each session opens its own stream.
type Provider struct {
	client     *speech.Client
	language   string
	sampleRate int
}

// New creates a Provider around an existing speech client. The caller owns the
// client's lifecycle; credentials are resolved by the client itself (typically
// via GOOGLE_APPLICATION_CREDENTIALS).
func New(client *speech.Client, opts ...Option) (*Provider, error) {
	if client == nil {
		return nil, errors.New("google: client must not be nil")
	}
	p := &Provider{
		client:     client,
		language:   defaultLanguage,
		sampleRate: defaultSampleRate,
	}
	for _, o := range opts {
		o(p)
	}
	return p, nil
}

// StartStream opens a streaming recognition session. It sends the initial
// configuration message before returning; audio may be sent immediately after.
func (p *Provider) StartStream(ctx context.Context, cfg recognize.StreamConfig) (recognize.Stream, error) {
	grpcStream, err := p.client.StreamingRecognize(ctx)
	if err != nil {
		return nil, &recognize.BackendError{Backend: backendName, Err: fmt.Errorf("open stream: %w", err)}
	}

	lang := cfg.Language
	if lang == "" {
		lang = p.language
	}
	sr := cfg.SampleRate
	if sr <= 0 {
		sr = p.sampleRate
	}

	configReq := &speechpb.StreamingRecognizeRequest{
		StreamingRequest: &speechpb.StreamingRecognizeRequest_StreamingConfig{
			StreamingConfig: &speechpb.StreamingRecognitionConfig{
				Config: &speechpb.RecognitionConfig{
					Encoding:                   speechpb.RecognitionConfig_LINEAR16,
					SampleRateHertz:            int32(sr),
					LanguageCode:               lang,
					EnableAutomaticPunctuation: true,
					Model:                      recognitionModel,
				},
				InterimResults: true,
			},
		},
	}
	if err := grpcStream.Send(configReq); err != nil {
		_ = grpcStream.CloseSend()
		return nil, &recognize.BackendError{Backend: backendName, Err: fmt.Errorf("send config: %w", err)}
	}

	s := newStream(grpcStream)
	s.wg.Add(2)
	go s.writeLoop()
	go s.readLoop()

	return s, nil
}

// newStream builds a stream without starting its loops. The caller must call
// s.wg.Add(2) and start writeLoop and readLoop.
func newStream(grpc recognizeClient) *stream {
	return &stream{
		grpc:    grpc,
		audio:   make(chan []byte, 256),
		results: make(chan recognize.Result, 64),
		done:    make(chan struct{}),
		stopped: make(chan struct{}),
	}
}

// recognizeClient is the subset of speechpb.Speech_StreamingRecognizeClient
// the stream needs. Narrowed to an interface so tests can substitute a fake.
type recognizeClient interface {
	Send(*speechpb.StreamingRecognizeRequest) error
	Recv() (*speechpb.StreamingRecognizeResponse, error)
	CloseSend() error
}

// stream is a live Google streaming recognition session. It implements
// recognize.Stream.
type stream struct {
	grpc    recognizeClient
	audio   chan []byte
	results chan recognize.Result

	done    chan struct{}
	stopped chan struct{}
	once    sync.Once
	wg      sync.WaitGroup

	errMu sync.Mutex
	err   error
}

// SendAudio queues a PCM audio chunk for delivery to the recognition API.
// Once the read loop has exited, after Close or a terminal API error,
// SendAudio fails instead of filling a queue nothing drains.
func (s *stream) SendAudio(chunk []byte) error {
	select {
	case <-s.done:
		return errors.New("google: stream is closed")
	case <-s.stopped:
		return s.closedErr()
	default:
	}
	select {
	case s.audio <- chunk:
		return nil
	case <-s.done:
		return errors.New("google: stream is closed")
	case <-s.stopped:
		return s.closedErr()
	}
}

// closedErr reports why the stream stopped accepting audio.
func (s *stream) closedErr() error {
	if err := s.Err(); err != nil {
		return err
	}
	return errors.New("google: stream is closed")
}

// Results returns the channel of recognition results.
func (s *stream) Results() <-chan recognize.Result { return s.results }

// Err returns the terminal backend error recorded by the read loop, if any.
func (s *stream) Err() error {
	s.errMu.Lock()
	defer s.errMu.Unlock()
	return s.err
}

// Close terminates the stream. Pending audio is flushed, the send side is
// closed so the API finalises the last utterance, and both loops are awaited.
func (s *stream) Close() error {
	s.once.Do(func() {
		close(s.done)
		s.wg.Wait()
	})
	return nil
}

// setErr records the first terminal error. Later errors are discarded.
func (s *stream) setErr(err error) {
	s.errMu.Lock()
	defer s.errMu.Unlock()
	if s.err == nil {
		s.err = err
	}
}

// writeLoop forwards queued audio chunks to the gRPC stream. On shutdown it
// drains whatever is buffered, then half-closes the stream so the API emits
// its remaining results and the read loop can finish.
func (s *stream) writeLoop() {
	defer s.wg.Done()
	defer s.grpc.CloseSend()

	for {
		select {
		case chunk := <-s.audio:
			if err := s.sendChunk(chunk); err != nil {
				return
			}
		case <-s.done:
			for {
				select {
				case chunk := <-s.audio:
					if err := s.sendChunk(chunk); err != nil {
						return
					}
				default:
					return
				}
			}
		}
	}
}

// sendChunk sends one audio content message.
func (s *stream) sendChunk(chunk []byte) error {
	return s.grpc.Send(&speechpb.StreamingRecognizeRequest{
		StreamingRequest: &speechpb.StreamingRecognizeRequest_AudioContent{
			AudioContent: chunk,
		},
	})
}

// readLoop receives recognition responses and dispatches them to the results
// channel. It owns the results channel and closes it on exit.
func (s *stream) readLoop() {
	defer s.wg.Done()
	defer close(s.results)
	// Closed before results so that a drained results channel implies
	// SendAudio already fails.
	defer close(s.stopped)

	for {
		resp, err := s.grpc.Recv()
		if errors.Is(err, io.EOF) || status.Code(err) == codes.Canceled {
			return
		}
		if err != nil {
			s.setErr(&recognize.BackendError{Backend: backendName, Err: err})
			return
		}

		res, ok := parseResponse(resp)
		if !ok {
			continue
		}
		// s.done may already be closed while the API flushes its last
		// results after Close, so the send must come first; the done
		// guard applies only when the result buffer is full.
		select {
		case s.results <- res:
			continue
		default:
		}
		select {
		case s.results <- res:
		case <-s.done:
			return
		}
	}
}

// parseResponse converts a streaming response into a Result. Returns false for
// responses carrying no usable alternative. Confidence is only meaningful on
// final results; interims report 0.
func parseResponse(resp *speechpb.StreamingRecognizeResponse) (recognize.Result, bool) {
	if len(resp.Results) == 0 {
		return recognize.Result{}, false
	}
	result := resp.Results[0]
	if len(result.Alternatives) == 0 {
		return recognize.Result{}, false
	}
	alt := result.Alternatives[0]

	confidence := 0.0
	if result.IsFinal {
		confidence = float64(alt.Confidence)
	}
	return recognize.Result{
		Text:       alt.Transcript,
		Confidence: confidence,
		IsFinal:    result.IsFinal,
	}, true
}
