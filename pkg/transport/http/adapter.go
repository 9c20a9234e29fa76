package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/sirouk/responses-proxy/pkg/api"
	"github.com/sirouk/responses-proxy/pkg/breaker"
	"github.com/sirouk/responses-proxy/pkg/transport"
)

// Adapter serves the create-response operation over HTTP. It has no
// ResponseStore: this proxy holds no state past the lifetime of one
// request, so there is nothing for a GET or DELETE verb to act on.
type Adapter struct {
	creator transport.ResponseCreator
	breaker *breaker.Breaker
	mux     *http.ServeMux
	config  Config
}

// Config holds configuration for the HTTP adapter.
type Config struct {
	Addr        string
	MaxBodySize int64
}

// DefaultConfig returns the default adapter configuration.
func DefaultConfig() Config {
	return Config{
		Addr:        ":8080",
		MaxBodySize: 10 << 20, // 10 MB
	}
}

// NewAdapter creates an HTTP adapter around the given ResponseCreator.
// br may be nil, in which case /health always reports closed. Middleware
// is applied to the creator in the given order.
func NewAdapter(creator transport.ResponseCreator, br *breaker.Breaker, cfg Config, middlewares ...transport.Middleware) *Adapter {
	if len(middlewares) > 0 {
		creator = transport.Chain(middlewares...)(creator)
	}

	a := &Adapter{
		creator: creator,
		breaker: br,
		mux:     http.NewServeMux(),
		config:  cfg,
	}

	a.mux.HandleFunc("POST /v1/responses", a.handleCreateResponse)
	a.mux.HandleFunc("GET /health", a.handleHealth)

	return a
}

// Handler returns the http.Handler for this adapter, with HTTP-level
// request-ID propagation applied.
func (a *Adapter) Handler() http.Handler {
	return httpRequestIDMiddleware(a.mux)
}

// httpRequestIDMiddleware propagates the X-Request-ID header: if the
// client sent one, it is forwarded into the request context and echoed
// back in the response headers before the first write. An ID generated
// later by the transport-level RequestID middleware is not echoed.
func httpRequestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if id := r.Header.Get("X-Request-ID"); id != "" {
			ctx := transport.ContextWithRequestID(r.Context(), id)
			r = r.WithContext(ctx)
		}
		rw := &requestIDResponseWriter{ResponseWriter: w, r: r}
		next.ServeHTTP(rw, r)
	})
}

// requestIDResponseWriter wraps http.ResponseWriter to inject the
// X-Request-ID header before the first write.
type requestIDResponseWriter struct {
	http.ResponseWriter
	r           *http.Request
	headersSent bool
}

func (w *requestIDResponseWriter) WriteHeader(statusCode int) {
	w.ensureRequestIDHeader()
	w.ResponseWriter.WriteHeader(statusCode)
}

func (w *requestIDResponseWriter) Write(b []byte) (int, error) {
	w.ensureRequestIDHeader()
	return w.ResponseWriter.Write(b)
}

func (w *requestIDResponseWriter) Flush() {
	if f, ok := w.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// Unwrap returns the underlying ResponseWriter for http.NewResponseController.
func (w *requestIDResponseWriter) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}

func (w *requestIDResponseWriter) ensureRequestIDHeader() {
	if w.headersSent {
		return
	}
	w.headersSent = true
	if id := transport.RequestIDFromContext(w.r.Context()); id != "" {
		w.ResponseWriter.Header().Set("X-Request-ID", id)
	}
}

// healthBody is the JSON shape returned by GET /health.
type healthBody struct {
	Status  string        `json:"status"`
	Breaker *breakerState `json:"circuit_breaker,omitempty"`
}

type breakerState struct {
	Enabled             bool `json:"enabled"`
	IsOpen              bool `json:"is_open"`
	ConsecutiveFailures int  `json:"consecutive_failures"`
}

// handleHealth handles GET /health. It reports circuit breaker state and
// returns 503 while the breaker is open, without making an upstream call.
func (a *Adapter) handleHealth(w http.ResponseWriter, r *http.Request) {
	body := healthBody{Status: "ok"}
	status := http.StatusOK

	if a.breaker != nil {
		snap := a.breaker.Snapshot()
		body.Breaker = &breakerState{
			Enabled:             snap.Enabled,
			IsOpen:              snap.IsOpen,
			ConsecutiveFailures: snap.ConsecutiveFailures,
		}
		if snap.IsOpen {
			body.Status = "degraded"
			status = http.StatusServiceUnavailable
		}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

// handleCreateResponse handles POST /v1/responses.
func (a *Adapter) handleCreateResponse(w http.ResponseWriter, r *http.Request) {
	if r.Header.Get("Authorization") == "" {
		transport.WriteErrorResponse(w,
			api.NewInvalidRequestError("authorization", "missing bearer token"),
			http.StatusUnauthorized,
		)
		return
	}

	ct := r.Header.Get("Content-Type")
	if ct != "" && ct != "application/json" {
		transport.WriteErrorResponse(w,
			api.NewInvalidRequestError("content_type", "Content-Type must be application/json"),
			http.StatusUnsupportedMediaType,
		)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, a.config.MaxBodySize)

	var req api.CreateResponseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			transport.WriteErrorResponse(w,
				api.NewInvalidRequestError("body", fmt.Sprintf("request body too large (max %d bytes)", a.config.MaxBodySize)),
				http.StatusRequestEntityTooLarge,
			)
			return
		}
		transport.WriteErrorResponse(w,
			api.NewInvalidRequestError("body", "invalid JSON: "+err.Error()),
			http.StatusBadRequest,
		)
		return
	}

	if apiErr := api.ValidateRequest(&req, api.DefaultValidationConfig()); apiErr != nil {
		transport.WriteAPIError(w, apiErr)
		return
	}

	if a.breaker != nil && !a.breaker.ShouldAllowRequest() {
		transport.WriteErrorResponse(w,
			api.NewServerError("upstream unavailable").WithCode("backend_unavailable_circuit_open"),
			http.StatusServiceUnavailable,
		)
		return
	}

	rw := newSSEResponseWriter(w, nil)
	if err := a.creator.CreateResponse(r.Context(), &req, rw); err != nil {
		a.writeHandlerError(w, rw, err)
	}
}

// writeHandlerError writes an error response from the handler. If
// streaming has already started, it sends a response.failed event;
// otherwise it writes a plain JSON error response.
func (a *Adapter) writeHandlerError(w http.ResponseWriter, rw *sseResponseWriter, err error) {
	var apiErr *api.APIError
	if !errors.As(err, &apiErr) {
		apiErr = api.NewServerError(err.Error())
	}

	if rw.hasStartedStreaming() {
		failEvent := api.StreamEvent{
			Type: api.EventResponseFailed,
			Response: &api.Response{
				Status: api.ResponseStatusFailed,
				Error:  apiErr,
			},
		}
		rw.WriteEvent(context.Background(), failEvent)
		return
	}

	transport.WriteAPIError(w, apiErr)
}
