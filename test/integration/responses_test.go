package integration

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/sirouk/responses-proxy/pkg/api"
)

func TestPostResponseNonStreaming(t *testing.T) {
	reqBody := map[string]any{
		"model": "mock-model",
		"input": []map[string]any{
			{
				"type": "message",
				"role": "user",
				"content": []map[string]any{
					{"type": "input_text", "text": "Hello"},
				},
			},
		},
	}

	resp := postJSON(t, testEnv.BaseURL()+"/v1/responses", reqBody)
	if resp.StatusCode != http.StatusOK {
		body := readBody(t, resp)
		t.Fatalf("expected 200, got %d: %s", resp.StatusCode, body)
	}

	var response api.Response
	decodeJSON(t, resp, &response)

	if response.ID == "" {
		t.Error("response ID is empty")
	}
	if !api.ValidateResponseID(response.ID) {
		t.Errorf("invalid response ID format: %s", response.ID)
	}
	if response.Object != "response" {
		t.Errorf("object = %q, want %q", response.Object, "response")
	}
	if response.Status != api.ResponseStatusCompleted {
		t.Errorf("status = %q, want %q", response.Status, api.ResponseStatusCompleted)
	}
	if response.Model == "" {
		t.Error("model is empty")
	}
	if response.CreatedAt == 0 {
		t.Error("created_at is zero")
	}

	if len(response.Output) == 0 {
		t.Fatal("output is empty")
	}

	outputItem := response.Output[0]
	if outputItem.Type != api.ItemTypeMessage {
		t.Errorf("output[0].type = %q, want %q", outputItem.Type, api.ItemTypeMessage)
	}
	if outputItem.Status != api.ItemStatusCompleted {
		t.Errorf("output[0].status = %q, want %q", outputItem.Status, api.ItemStatusCompleted)
	}

	if response.Usage == nil {
		t.Error("usage is nil")
	} else if response.Usage.TotalTokens == 0 {
		t.Error("usage.total_tokens is zero")
	}
}

func TestResponseFieldValidation(t *testing.T) {
	reqBody := map[string]any{
		"model": "mock-model",
		"input": []map[string]any{
			{
				"type": "message",
				"role": "user",
				"content": []map[string]any{
					{"type": "input_text", "text": "Hello"},
				},
			},
		},
	}

	resp := postJSON(t, testEnv.BaseURL()+"/v1/responses", reqBody)
	if resp.StatusCode != http.StatusOK {
		body := readBody(t, resp)
		t.Fatalf("expected 200, got %d: %s", resp.StatusCode, body)
	}

	var raw map[string]json.RawMessage
	decodeJSON(t, resp, &raw)

	requiredFields := []string{
		"id", "object", "created_at", "status", "model",
		"output", "tools", "tool_choice", "truncation",
		"parallel_tool_calls", "temperature", "top_p",
		"metadata",
	}

	for _, field := range requiredFields {
		if _, ok := raw[field]; !ok {
			t.Errorf("required field %q missing from response", field)
		}
	}
}

func TestResponseOutputFormat(t *testing.T) {
	// Verify the flat wire format for output items.
	reqBody := map[string]any{
		"model": "mock-model",
		"input": []map[string]any{
			{
				"type": "message",
				"role": "user",
				"content": []map[string]any{
					{"type": "input_text", "text": "Hello"},
				},
			},
		},
	}

	resp := postJSON(t, testEnv.BaseURL()+"/v1/responses", reqBody)
	if resp.StatusCode != http.StatusOK {
		body := readBody(t, resp)
		t.Fatalf("expected 200, got %d: %s", resp.StatusCode, body)
	}

	var raw map[string]json.RawMessage
	decodeJSON(t, resp, &raw)

	var outputItems []map[string]json.RawMessage
	if err := json.Unmarshal(raw["output"], &outputItems); err != nil {
		t.Fatalf("parsing output: %v", err)
	}

	if len(outputItems) == 0 {
		t.Fatal("output is empty")
	}

	item := outputItems[0]

	for _, field := range []string{"type", "id", "status", "role", "content"} {
		if _, ok := item[field]; !ok {
			t.Errorf("output item missing flat field %q", field)
		}
	}

	if _, ok := item["message"]; ok {
		t.Error("output item has nested 'message' wrapper (should be flat wire format)")
	}
}
