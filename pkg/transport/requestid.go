package transport

import (
	"context"
	"crypto/rand"
	"encoding/hex"

	"github.com/sirouk/responses-proxy/pkg/api"
)

// RequestID returns middleware that assigns a request ID to each request.
// If the context already carries one (set by the HTTP adapter from the
// X-Request-ID header) it is kept; otherwise a new one is generated.
func RequestID() Middleware {
	return func(next ResponseCreator) ResponseCreator {
		return ResponseCreatorFunc(func(ctx context.Context, req *api.CreateResponseRequest, w ResponseWriter) error {
			id := RequestIDFromContext(ctx)
			if id == "" {
				id = generateRequestID()
				ctx = ContextWithRequestID(ctx, id)
			}
			return next.CreateResponse(ctx, req, w)
		})
	}
}

func generateRequestID() string {
	b := make([]byte, 16)
	rand.Read(b)
	return hex.EncodeToString(b)
}
