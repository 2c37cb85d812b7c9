package session

import "context"

// Event type discriminators carried in the "type" field of every outbound
// event.
const (
	EventTypeTranscript  = "transcript"
	EventTypeTeacherHint = "teacher_hint"
	EventTypeError       = "error"
)

// TranscriptEvent is sent for every recognition result, interim and final.
type TranscriptEvent struct {
	Type       string  `json:"type"`
	Timestamp  string  `json:"timestamp"`
	Text       string  `json:"text"`
	Confidence float64 `json:"confidence"`
	IsFinal    bool    `json:"is_final"`
}

// HintEvent is sent when a finalized segment contains a teacher hint. It is
// delivered before the segment's own TranscriptEvent.
type HintEvent struct {
	Type      string `json:"type"`
	Timestamp string `json:"timestamp"`
	HintType  string `json:"hint_type"`
	Text      string `json:"text"`
}

// ErrorEvent is sent once when the recognition stream fails terminally.
type ErrorEvent struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// EventSink delivers pipeline events to the connected client. Implementations
// must serialise concurrent Send calls; the pipeline may deliver interim
// transcript events and final processing events from different goroutines.
type EventSink interface {
	Send(ctx context.Context, event any) error
}

// SinkFunc adapts a function to the EventSink interface.
type SinkFunc func(ctx context.Context, event any) error

// Send implements EventSink.
func (f SinkFunc) Send(ctx context.Context, event any) error {
	return f(ctx, event)
}
