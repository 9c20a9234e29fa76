package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"

	"github.com/sirouk/responses-proxy/pkg/api"
	"github.com/sirouk/responses-proxy/pkg/transport"
)

// writerState tracks the state of an SSE ResponseWriter.
type writerState int

const (
	writerIdle      writerState = iota // no writes yet
	writerStreaming                    // WriteEvent has been called at least once
	writerCompleted                    // terminal event sent, or WriteResponse was called
)

// terminalEvents are the event types that end a streaming response. This
// proxy's event vocabulary is closed: a response either completes or
// fails, carrying any incomplete/error detail inside that one terminal
// event rather than as a distinct event type.
var terminalEvents = map[api.StreamEventType]bool{
	api.EventResponseCompleted: true,
	api.EventResponseFailed:    true,
}

// sseResponseWriter implements transport.ResponseWriter for HTTP/SSE
// responses. It also supports a non-streaming JSON fallback, mutually
// exclusive with the SSE path on the same writer instance.
type sseResponseWriter struct {
	w  http.ResponseWriter
	rc *http.ResponseController

	mu    sync.Mutex
	state writerState

	// onResponseCreated fires once, when the first response.created event
	// is written, carrying the response ID.
	onResponseCreated func(id string)
}

var _ transport.ResponseWriter = (*sseResponseWriter)(nil)

// newSSEResponseWriter creates a ResponseWriter wrapping an
// http.ResponseWriter. onCreated may be nil.
func newSSEResponseWriter(w http.ResponseWriter, onCreated func(id string)) *sseResponseWriter {
	return &sseResponseWriter{
		w:                 w,
		rc:                http.NewResponseController(w),
		onResponseCreated: onCreated,
	}
}

// WriteEvent sends a single SSE event:
//
//	event: {type}\n
//	data: {json}\n
//	\n
//
// and, after a terminal event, the [DONE] sentinel.
func (s *sseResponseWriter) WriteEvent(ctx context.Context, event api.StreamEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == writerCompleted {
		return errors.New("cannot write event: writer is completed")
	}

	if s.state == writerIdle {
		s.w.Header().Set("Content-Type", "text/event-stream")
		s.w.Header().Set("Cache-Control", "no-cache")
		s.w.Header().Set("Connection", "keep-alive")
		s.w.Header().Set("X-Accel-Buffering", "no")
		s.state = writerStreaming
	}

	if event.Type == api.EventResponseCreated && event.Response != nil && s.onResponseCreated != nil {
		s.onResponseCreated(event.Response.ID)
		s.onResponseCreated = nil
	}

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	if _, err := fmt.Fprintf(s.w, "event: %s\ndata: %s\n\n", event.Type, data); err != nil {
		return fmt.Errorf("failed to write event: %w", err)
	}

	if err := s.rc.Flush(); err != nil {
		return fmt.Errorf("failed to flush: %w", err)
	}

	if terminalEvents[event.Type] {
		if _, err := fmt.Fprint(s.w, "data: [DONE]\n\n"); err != nil {
			return fmt.Errorf("failed to write [DONE]: %w", err)
		}
		if err := s.rc.Flush(); err != nil {
			return fmt.Errorf("failed to flush [DONE]: %w", err)
		}
		s.state = writerCompleted
	}

	return nil
}

// WriteResponse sends a complete non-streaming JSON response. Mutually
// exclusive with WriteEvent on the same writer.
func (s *sseResponseWriter) WriteResponse(ctx context.Context, resp *api.Response) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == writerStreaming {
		return errors.New("cannot write response: streaming has already started")
	}
	if s.state == writerCompleted {
		return errors.New("cannot write response: writer is completed")
	}

	s.w.Header().Set("Content-Type", "application/json")
	s.state = writerCompleted

	if err := json.NewEncoder(s.w).Encode(resp); err != nil {
		return fmt.Errorf("failed to encode response: %w", err)
	}

	return nil
}

// Flush ensures buffered data reaches the client.
func (s *sseResponseWriter) Flush() error {
	return s.rc.Flush()
}

// hasStartedStreaming reports whether at least one SSE event has been written.
func (s *sseResponseWriter) hasStartedStreaming() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state == writerStreaming || (s.state == writerCompleted && s.w.Header().Get("Content-Type") == "text/event-stream")
}
