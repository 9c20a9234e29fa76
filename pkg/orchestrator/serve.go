package orchestrator

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sirouk/responses-proxy/pkg/api"
	"github.com/sirouk/responses-proxy/pkg/breaker"
	"github.com/sirouk/responses-proxy/pkg/modelcache"
	"github.com/sirouk/responses-proxy/pkg/upstream"
)

// maxListedModels caps how many models are named in a model_not_found
// error message.
const maxListedModels = 20

// Serve opens the upstream connection for req and drives the response to
// completion: on a pre-stream failure it synthesizes a single
// response.failed event (recording the failure on br); on success it hands
// the body to Run for full Phase A/B/C orchestration. This is the single
// entry point cmd/server wires to transport.ResponseCreator.
func Serve(ctx context.Context, req *api.CreateResponseRequest, responseID string, client *upstream.Client, chatReq *upstream.ChatCompletionRequest, cache *modelcache.Cache, emit EmitFunc, br *breaker.Breaker, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}

	httpResp, apiErr := client.Stream(ctx, chatReq)
	if apiErr != nil {
		if br != nil {
			br.RecordFailure()
		}
		return emitPreStreamFailure(req, responseID, apiErr, cache, emit)
	}
	defer httpResp.Body.Close()

	return Run(ctx, req, responseID, httpResp.Body, emit, br, logger)
}

// emitPreStreamFailure stamps and emits the single response.failed event
// for a connection that never produced a body.
func emitPreStreamFailure(req *api.CreateResponseRequest, responseID string, apiErr *api.APIError, cache *modelcache.Cache, emit EmitFunc) error {
	formatted := *apiErr
	if apiErr.Code == "model_not_found" {
		formatted.Message = formatModelNotFound(req.Model, cache)
	} else {
		formatted.Message = fmt.Sprintf("Backend Error:\n\n%s\n\nPlease check your request parameters and try again.", apiErr.Message)
	}

	seq := newSequencer(responseID)
	resp := echoResponse(req, responseID, api.ResponseStatusFailed, []api.Item{})
	resp.Error = &formatted

	event := seq.stamp(api.StreamEvent{
		Type:     api.EventResponseFailed,
		Response: resp,
	})
	return emit(event)
}

// formatModelNotFound composes the human-readable 404 message, listing up
// to maxListedModels cached models with their price annotations.
func formatModelNotFound(requested string, cache *modelcache.Cache) string {
	header := fmt.Sprintf("Model '%s' not found.\n\n", requested)

	if cache == nil || cache.Len() == 0 {
		return header + "No models available from backend.\n"
	}

	models := cache.Models(maxListedModels)
	var b strings.Builder
	b.WriteString("Available models:\n\n")
	for _, m := range models {
		b.WriteString("  - ")
		b.WriteString(m.ID)
		b.WriteString(priceSuffix(m))
		b.WriteString("\n")
	}
	if remaining := cache.Len() - len(models); remaining > 0 {
		fmt.Fprintf(&b, "\n...and %d more models.\n", remaining)
	}
	return header + b.String()
}

// priceSuffix renders a model's per-1K token pricing, omitting either side
// when unset, or nothing at all when neither price is known.
func priceSuffix(m upstream.ChatModel) string {
	if m.InputPriceUSD == nil && m.OutputPriceUSD == nil {
		return ""
	}
	var parts []string
	if m.InputPriceUSD != nil {
		parts = append(parts, fmt.Sprintf("input $%.4f/1K", *m.InputPriceUSD))
	}
	if m.OutputPriceUSD != nil {
		parts = append(parts, fmt.Sprintf("output $%.4f/1K", *m.OutputPriceUSD))
	}
	return " (" + strings.Join(parts, ", ") + ")"
}
