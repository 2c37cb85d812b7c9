package session

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel/metric"

	"github.com/courseai/courseai/internal/hint"
	"github.com/courseai/courseai/internal/observe"
	"github.com/courseai/courseai/pkg/courselog"
	"github.com/courseai/courseai/pkg/recognize"
)

// State is the lifecycle state of a Pipeline.
type State int32

const (
	// StateOpen means the pipeline is created but not yet streaming.
	StateOpen State = iota
	// StateStreaming means the recognition stream is live.
	StateStreaming
	// StateClosed means the pipeline has finished; no further events will be
	// delivered.
	StateClosed
)

// String returns the lowercase state name.
func (s State) String() string {
	switch s {
	case StateOpen:
		return "open"
	case StateStreaming:
		return "streaming"
	case StateClosed:
		return "closed"
	}
	return "unknown"
}

// finalsBuffer bounds the queue of finalized segments awaiting enrichment so
// a stalled LLM applies backpressure instead of growing memory.
const finalsBuffer = 64

// Config assembles the collaborators of one transcription session.
type Config struct {
	// CourseID is the course this session transcribes for.
	CourseID string

	// Recognizer produces transcription results from the session audio.
	Recognizer recognize.Recognizer

	// Backend names the recognition backend for logs and metrics.
	Backend string

	// Stream configures the recognition stream.
	Stream recognize.StreamConfig

	// Writer persists finalized transcripts and detected hints. Persistence
	// failures are logged and absorbed; they never interrupt the session.
	Writer courselog.HintWriter

	// Enricher analyzes detected hint phrases. Required.
	Enricher *hint.Enricher

	// Sink receives transcript, hint, and error events.
	Sink EventSink

	// Log is the session logger. Defaults to slog.Default.
	Log *slog.Logger

	// Metrics records pipeline instrumentation. Defaults to
	// observe.DefaultMetrics.
	Metrics *observe.Metrics
}

// finalSegment is one finalized recognition result queued for in-order
// processing.
type finalSegment struct {
	text       string
	confidence float64
	timestamp  string
	received   time.Time
}

// Pipeline drives one live transcription session. Interim results are
// forwarded to the sink as they arrive; finalized results pass through a
// single worker goroutine that persists them, detects and enriches hints,
// and emits events in arrival order. A detected hint's event is always
// delivered before the transcript event of the segment that triggered it.
type Pipeline struct {
	cfg   Config
	clock *clock

	stream recognize.Stream
	finals chan finalSegment
	wg     sync.WaitGroup

	state     atomic.Int32
	closeOnce sync.Once
}

// NewPipeline creates a Pipeline in the open state.
func NewPipeline(cfg Config) (*Pipeline, error) {
	if cfg.CourseID == "" {
		return nil, fmt.Errorf("session: CourseID must not be empty")
	}
	if cfg.Recognizer == nil {
		return nil, fmt.Errorf("session: Recognizer must not be nil")
	}
	if cfg.Writer == nil {
		return nil, fmt.Errorf("session: Writer must not be nil")
	}
	if cfg.Enricher == nil {
		return nil, fmt.Errorf("session: Enricher must not be nil")
	}
	if cfg.Sink == nil {
		return nil, fmt.Errorf("session: Sink must not be nil")
	}
	if cfg.Log == nil {
		cfg.Log = slog.Default()
	}
	cfg.Log = cfg.Log.With("course_id", cfg.CourseID)
	if cfg.Metrics == nil {
		cfg.Metrics = observe.DefaultMetrics()
	}

	return &Pipeline{
		cfg:    cfg,
		clock:  newClock(),
		finals: make(chan finalSegment, finalsBuffer),
	}, nil
}

// State returns the current lifecycle state.
func (p *Pipeline) State() State {
	return State(p.state.Load())
}

// Start opens the recognition stream and launches the forwarding and finals
// goroutines. It returns an error only when the stream cannot be opened; from
// then on all failures surface as events or through Close.
func (p *Pipeline) Start(ctx context.Context) error {
	stream, err := p.cfg.Recognizer.StartStream(ctx, p.cfg.Stream)
	if err != nil {
		p.state.Store(int32(StateClosed))
		return fmt.Errorf("session: start recognition stream: %w", err)
	}
	p.stream = stream
	p.state.Store(int32(StateStreaming))
	p.cfg.Metrics.ActiveSessions.Add(ctx, 1)

	p.cfg.Log.Info("session started", "backend", p.cfg.Backend)

	p.wg.Add(2)
	go p.forwardLoop(ctx)
	go p.finalsLoop(ctx)
	return nil
}

// SendAudio forwards one PCM chunk to the recognition stream.
func (p *Pipeline) SendAudio(chunk []byte) error {
	if p.State() != StateStreaming {
		return fmt.Errorf("session: not streaming")
	}
	return p.stream.SendAudio(chunk)
}

// Close ends the session: the recognition stream is closed, remaining results
// are processed, and the pipeline transitions to closed. It blocks until all
// queued finals have been handled. Safe to call multiple times.
func (p *Pipeline) Close() error {
	p.closeOnce.Do(func() {
		if p.stream != nil {
			_ = p.stream.Close()
		}
		p.wg.Wait()
		p.state.Store(int32(StateClosed))
		p.cfg.Metrics.ActiveSessions.Add(context.Background(), -1)
		p.cfg.Log.Info("session closed")
	})
	return nil
}

// Wait blocks until the pipeline's goroutines have finished, which happens
// when the recognition stream ends.
func (p *Pipeline) Wait() {
	p.wg.Wait()
}

// forwardLoop consumes recognition results. Interim results go straight to
// the sink; finals are queued for the in-order finals worker. When the stream
// ends the finals queue is closed, and a terminal stream error becomes a
// single error event.
func (p *Pipeline) forwardLoop(ctx context.Context) {
	defer p.wg.Done()

	for result := range p.stream.Results() {
		ts := p.clock.Timestamp()
		if result.IsFinal {
			p.finals <- finalSegment{
				text:       result.Text,
				confidence: result.Confidence,
				timestamp:  ts,
				received:   time.Now(),
			}
			continue
		}
		p.send(ctx, TranscriptEvent{
			Type:       EventTypeTranscript,
			Timestamp:  ts,
			Text:       result.Text,
			Confidence: result.Confidence,
			IsFinal:    false,
		})
	}
	close(p.finals)

	if err := p.stream.Err(); err != nil {
		p.cfg.Log.Error("recognition stream failed", "error", err)
		p.cfg.Metrics.RecordRecognizerError(ctx, p.cfg.Backend)
		p.send(ctx, ErrorEvent{
			Type:    EventTypeError,
			Message: fmt.Sprintf("語音辨識失敗: %v", err),
		})
	}
}

// finalsLoop processes finalized segments strictly in arrival order.
func (p *Pipeline) finalsLoop(ctx context.Context) {
	defer p.wg.Done()

	for seg := range p.finals {
		p.processFinal(ctx, seg)
	}
}

// processFinal persists one finalized segment, runs hint detection and
// enrichment, and emits the hint event (if any) followed by the transcript
// event.
func (p *Pipeline) processFinal(ctx context.Context, seg finalSegment) {
	if err := p.cfg.Writer.InsertTranscript(ctx, courselog.TranscriptSegment{
		CourseID:   p.cfg.CourseID,
		Timestamp:  seg.timestamp,
		Text:       seg.text,
		Confidence: seg.confidence,
	}); err != nil {
		p.cfg.Log.Error("transcript persistence failed", "error", err)
		p.cfg.Metrics.RecordPersistFailure(ctx, "transcripts")
	}

	if hintType, ok := hint.Detect(seg.text); ok {
		p.cfg.Log.Info("teacher hint detected",
			"hint_type", string(hintType),
			"timestamp", seg.timestamp)
		p.cfg.Metrics.RecordHintDetected(ctx, string(hintType))

		enrichStart := time.Now()
		analysis := p.cfg.Enricher.Analyze(ctx, seg.text, seg.timestamp, "")
		p.cfg.Metrics.EnrichmentDuration.Record(ctx, time.Since(enrichStart).Seconds())

		if err := p.cfg.Writer.InsertHint(ctx, courselog.TeacherHint{
			CourseID:       p.cfg.CourseID,
			Timestamp:      seg.timestamp,
			HintText:       seg.text,
			HintType:       hintType,
			RelatedConcept: analysis.Concept,
			SlidePage:      analysis.SlidePage,
			Confidence:     analysis.Confidence,
		}); err != nil {
			p.cfg.Log.Error("hint persistence failed", "error", err)
			p.cfg.Metrics.RecordPersistFailure(ctx, "teacher_hints")
		}

		p.send(ctx, HintEvent{
			Type:      EventTypeTeacherHint,
			Timestamp: seg.timestamp,
			HintType:  string(hintType),
			Text:      seg.text,
		})
	}

	p.send(ctx, TranscriptEvent{
		Type:       EventTypeTranscript,
		Timestamp:  seg.timestamp,
		Text:       seg.text,
		Confidence: seg.confidence,
		IsFinal:    true,
	})

	p.cfg.Metrics.RecognitionDuration.Record(ctx, time.Since(seg.received).Seconds(),
		metric.WithAttributes(observe.Attr("backend", p.cfg.Backend)))
	p.cfg.Metrics.TranscriptFinals.Add(ctx, 1,
		metric.WithAttributes(observe.Attr("backend", p.cfg.Backend)))
}

// send delivers one event to the sink. Delivery failures are logged and
// dropped; a dead client must not stall transcription.
func (p *Pipeline) send(ctx context.Context, event any) {
	if err := p.cfg.Sink.Send(ctx, event); err != nil {
		p.cfg.Log.Warn("event delivery failed", "error", err)
	}
}
