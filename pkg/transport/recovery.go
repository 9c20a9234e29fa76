package transport

import (
	"context"
	"fmt"

	"github.com/sirouk/responses-proxy/pkg/api"
)

// Recovery returns middleware that catches panics in the handler chain and
// converts them into a server error. The process keeps serving subsequent
// requests after a panic is recovered.
func Recovery() Middleware {
	return func(next ResponseCreator) ResponseCreator {
		return ResponseCreatorFunc(func(ctx context.Context, req *api.CreateResponseRequest, w ResponseWriter) (retErr error) {
			defer func() {
				if r := recover(); r != nil {
					retErr = api.NewServerError(fmt.Sprintf("internal server error: %v", r))
				}
			}()
			return next.CreateResponse(ctx, req, w)
		})
	}
}
