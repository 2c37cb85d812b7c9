package server

import (
	"context"
	"net/http"
	"sync"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/courseai/courseai/internal/session"
	"github.com/courseai/courseai/pkg/recognize"
)

// wsSink delivers session events to one websocket client. Pipeline goroutines
// send concurrently, so writes are serialised.
type wsSink struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

// Send implements [session.EventSink].
func (s *wsSink) Send(ctx context.Context, event any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return wsjson.Write(ctx, s.conn, event)
}

// handleTranscribeWS runs one live transcription session over a websocket.
// The client streams binary PCM chunks; the server replies with transcript,
// teacher_hint and error events as JSON text messages. The session ends when
// the client disconnects or the recognition backend fails.
func (s *Server) handleTranscribeWS(w http.ResponseWriter, r *http.Request) {
	courseID := r.PathValue("course_id")

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		// The capture client is a browser extension, so the Origin header
		// never matches the backend host.
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		s.log.Warn("websocket accept failed", "course_id", courseID, "error", err)
		return
	}
	defer conn.Close(websocket.StatusInternalError, "session ended")

	ctx := r.Context()
	sink := &wsSink{conn: conn}

	if s.cfg.Recognizer == nil {
		_ = sink.Send(ctx, session.ErrorEvent{
			Type:    session.EventTypeError,
			Message: "語音辨識服務未初始化",
		})
		conn.Close(websocket.StatusNormalClosure, "")
		return
	}

	pipe, err := session.NewPipeline(session.Config{
		CourseID:   courseID,
		Recognizer: s.cfg.Recognizer,
		Backend:    s.cfg.Backend,
		Stream: recognize.StreamConfig{
			SampleRate: s.cfg.SampleRate,
			Channels:   1,
			Language:   s.cfg.Language,
		},
		Writer:   s.cfg.Store,
		Enricher: s.cfg.Enricher,
		Sink:     sink,
		Log:      s.log,
		Metrics:  s.cfg.Metrics,
	})
	if err != nil {
		s.log.Error("session setup failed", "course_id", courseID, "error", err)
		conn.Close(websocket.StatusInternalError, "session setup failed")
		return
	}

	if err := pipe.Start(ctx); err != nil {
		s.log.Error("session start failed", "course_id", courseID, "error", err)
		_ = sink.Send(ctx, session.ErrorEvent{
			Type:    session.EventTypeError,
			Message: "語音辨識失敗: " + err.Error(),
		})
		conn.Close(websocket.StatusNormalClosure, "")
		return
	}

	s.log.Info("websocket session connected", "course_id", courseID)

	// A terminal recognizer error ends the pipeline while this handler is
	// blocked in Read below; closing the connection unblocks it. The error
	// event has already been delivered by the time Wait returns.
	go func() {
		pipe.Wait()
		conn.Close(websocket.StatusNormalClosure, "")
	}()

	for {
		typ, data, err := conn.Read(ctx)
		if err != nil {
			// Client disconnect, normal closure included.
			break
		}
		if typ != websocket.MessageBinary {
			continue
		}
		if err := pipe.SendAudio(data); err != nil {
			s.log.Warn("audio forwarding failed", "course_id", courseID, "error", err)
			break
		}
	}

	// Close flushes pending audio and waits for queued finals, so the last
	// events are delivered before the connection drops.
	_ = pipe.Close()
	s.log.Info("websocket session disconnected", "course_id", courseID)
	conn.Close(websocket.StatusNormalClosure, "")
}
