package transport

import (
	"context"

	"github.com/sirouk/responses-proxy/pkg/api"
)

// ResponseCreator handles the create-response operation. It is the only
// handler contract this proxy exposes: there is no stored state for a
// second verb to act on.
type ResponseCreator interface {
	CreateResponse(ctx context.Context, req *api.CreateResponseRequest, w ResponseWriter) error
}

// ResponseCreatorFunc adapts an ordinary function to a ResponseCreator.
type ResponseCreatorFunc func(ctx context.Context, req *api.CreateResponseRequest, w ResponseWriter) error

// CreateResponse calls f(ctx, req, w).
func (f ResponseCreatorFunc) CreateResponse(ctx context.Context, req *api.CreateResponseRequest, w ResponseWriter) error {
	return f(ctx, req, w)
}

// ResponseWriter abstracts streaming and non-streaming output for the
// handler. WriteEvent and WriteResponse are mutually exclusive on a single
// writer instance: calling one after the other returns an error, as does
// calling WriteEvent after a terminal event has already been sent.
type ResponseWriter interface {
	// WriteEvent sends a single streaming event.
	WriteEvent(ctx context.Context, event api.StreamEvent) error

	// WriteResponse sends a complete non-streaming response.
	WriteResponse(ctx context.Context, resp *api.Response) error

	// Flush ensures buffered data reaches the client. Returns an error if
	// the client has disconnected.
	Flush() error
}
