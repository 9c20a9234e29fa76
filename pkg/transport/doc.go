// Package transport defines the handler interface and middleware chain for
// the proxy's HTTP/SSE transport layer.
//
// The transport layer bridges external clients and the orchestrator. It
// deserializes incoming requests into the protocol types defined in pkg/api,
// dispatches them to a ResponseCreator, and serializes the result back to
// the client in either streaming (SSE) or non-streaming (JSON) form.
//
// # Handler Interface
//
// ResponseCreator is the single contract between the transport layer and
// request processing. Unlike a stateful responses API, there is no
// ResponseStore here: this proxy never persists a response, so there is
// nothing to list, fetch, or delete later.
//
// The ResponseWriter interface abstracts streaming and non-streaming
// output, letting the handler emit SSE events or one complete JSON
// response without knowing the underlying transport.
//
// # Middleware
//
// The middleware chain wraps ResponseCreator with cross-cutting concerns:
// panic recovery, request ID assignment, and structured logging via
// log/slog.
//
// # Zero Dependencies
//
// This package uses only the standard library. HTTP serving uses
// net/http with Go 1.22+ ServeMux routing patterns. SSE flushing uses
// http.NewResponseController.
package transport
