package translate

import (
	"testing"

	"github.com/sirouk/responses-proxy/pkg/api"
)

func TestTranslateMissingModel(t *testing.T) {
	req := &api.CreateResponseRequest{Input: api.RequestInput{String: "hi", IsSet: true}}
	_, err := Translate(req, nil)
	if err == nil || err.Param != "model" {
		t.Fatalf("expected missing model error, got %v", err)
	}
}

func TestTranslateStringInput(t *testing.T) {
	req := &api.CreateResponseRequest{
		Model: "m",
		Input: api.RequestInput{String: "hi", IsSet: true},
	}
	out, err := Translate(req, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(out.Messages) != 1 || out.Messages[0].Role != "user" || out.Messages[0].Content != "hi" {
		t.Fatalf("got %+v", out.Messages)
	}
}

func TestTranslateInstructionsPrependSystemMessage(t *testing.T) {
	req := &api.CreateResponseRequest{
		Model:        "m",
		Instructions: "be nice",
		Input:        api.RequestInput{String: "hi", IsSet: true},
	}
	out, _ := Translate(req, nil)
	if len(out.Messages) != 2 || out.Messages[0].Role != "system" {
		t.Fatalf("got %+v", out.Messages)
	}
	content, ok := out.Messages[0].Content.(string)
	if !ok || content[:8] != "be nice\n" {
		t.Fatalf("system content = %q", out.Messages[0].Content)
	}
}

func TestTranslateFunctionCallOutputUnwrapsJSON(t *testing.T) {
	req := &api.CreateResponseRequest{
		Model: "m",
		Input: api.RequestInput{Items: []api.Item{
			{
				Type:               api.ItemTypeFunctionCallOutput,
				FunctionCallOutput: &api.FunctionCallOutputData{CallID: "c1", Output: `{"output":"result text"}`},
			},
		}, IsSet: true},
	}
	out, err := Translate(req, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(out.Messages) != 1 || out.Messages[0].Content != "result text" {
		t.Fatalf("got %+v", out.Messages)
	}
	if out.Messages[0].ToolCallID != "c1" {
		t.Fatalf("got tool_call_id %q", out.Messages[0].ToolCallID)
	}
}

func TestTranslateReasoningAttachesToAssistantMessage(t *testing.T) {
	req := &api.CreateResponseRequest{
		Model: "m",
		Input: api.RequestInput{Items: []api.Item{
			{Type: api.ItemTypeReasoning, Reasoning: &api.ReasoningData{Content: "thinking..."}},
			{Type: api.ItemTypeMessage, Message: &api.MessageData{
				Role:   api.RoleAssistant,
				Output: []api.OutputContentPart{{Type: "output_text", Text: "answer"}},
			}},
		}, IsSet: true},
	}
	out, _ := Translate(req, nil)
	if len(out.Messages) != 1 {
		t.Fatalf("got %d messages", len(out.Messages))
	}
	content, ok := out.Messages[0].Content.(string)
	if !ok {
		t.Fatalf("content not string: %#v", out.Messages[0].Content)
	}
	want := "<think>thinking...</think>answer"
	if content != want {
		t.Fatalf("got %q, want %q", content, want)
	}
}

func TestTranslateFunctionCallAttachesToAssistantToolCalls(t *testing.T) {
	req := &api.CreateResponseRequest{
		Model: "m",
		Input: api.RequestInput{Items: []api.Item{
			{Type: api.ItemTypeFunctionCall, FunctionCall: &api.FunctionCallData{CallID: "c1", Name: "read_file", Arguments: `{"p":1}`}},
			{Type: api.ItemTypeMessage, Message: &api.MessageData{Role: api.RoleAssistant}},
		}, IsSet: true},
	}
	out, _ := Translate(req, nil)
	if len(out.Messages) != 1 || len(out.Messages[0].ToolCalls) != 1 {
		t.Fatalf("got %+v", out.Messages)
	}
	if out.Messages[0].ToolCalls[0].Function.Name != "read_file" {
		t.Fatalf("got %+v", out.Messages[0].ToolCalls[0])
	}
}

func TestTranslateDropsNonFunctionTools(t *testing.T) {
	req := &api.CreateResponseRequest{
		Model: "m",
		Input: api.RequestInput{String: "hi", IsSet: true},
		Tools: []api.ToolDefinition{
			{Type: "function", Name: "f"},
			{Type: "retrieval", Name: "r"},
		},
	}
	out, _ := Translate(req, nil)
	if len(out.Tools) != 1 || out.Tools[0].Function.Name != "f" {
		t.Fatalf("got %+v", out.Tools)
	}
}
