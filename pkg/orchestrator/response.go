package orchestrator

import (
	"time"

	"github.com/sirouk/responses-proxy/pkg/api"
)

// echoResponse builds the Response object embedded in response.created and
// response.completed/failed events, carrying the pass-through request
// fields the client expects echoed back.
func echoResponse(req *api.CreateResponseRequest, responseID string, status api.ResponseStatus, output []api.Item) *api.Response {
	if output == nil {
		output = []api.Item{}
	}

	resp := &api.Response{
		ID:        responseID,
		Object:    "response",
		CreatedAt: time.Now().Unix(),
		Status:    status,
		Model:     req.Model,
		Output:    output,
		Tools:     req.Tools,

		Truncation:        req.Truncation,
		ParallelToolCalls: boolOr(req.ParallelToolCalls, true),
		Text:              req.Text,
		Reasoning:         req.Reasoning,
		MaxOutputTokens:   req.MaxOutputTokens,
		MaxToolCalls:      req.MaxToolCalls,
		Store:             false,
		Background:        req.Background,
		ServiceTier:       req.ServiceTier,
		Metadata:          req.Metadata,
		User:              req.User,
	}

	if req.Instructions != "" {
		instructions := req.Instructions
		resp.Instructions = &instructions
	}

	if req.Temperature != nil {
		resp.Temperature = *req.Temperature
	}
	if req.TopP != nil {
		resp.TopP = *req.TopP
	}
	if req.FrequencyPenalty != nil {
		resp.FrequencyPenalty = *req.FrequencyPenalty
	}
	if req.PresencePenalty != nil {
		resp.PresencePenalty = *req.PresencePenalty
	}
	if req.TopLogprobs != nil {
		resp.TopLogprobs = *req.TopLogprobs
	}
	if req.ToolChoice != nil {
		resp.ToolChoice = req.ToolChoice
	}

	return resp
}

func boolOr(p *bool, def bool) bool {
	if p == nil {
		return def
	}
	return *p
}
