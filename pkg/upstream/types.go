// Package upstream speaks the Chat Completions wire protocol to a single
// configured backend: request marshalling, response/chunk unmarshalling, and
// HTTP-status-to-APIError mapping.
package upstream

import "encoding/json"

// ChatCompletionRequest is the flattened request body sent to the backend.
type ChatCompletionRequest struct {
	Model             string              `json:"model"`
	Messages          []ChatMessage       `json:"messages"`
	Tools             []ChatTool          `json:"tools,omitempty"`
	ToolChoice        any                 `json:"tool_choice,omitempty"`
	Temperature       *float64            `json:"temperature,omitempty"`
	TopP              *float64            `json:"top_p,omitempty"`
	MaxTokens         *int                `json:"max_tokens,omitempty"`
	ParallelToolCalls *bool               `json:"parallel_tool_calls,omitempty"`
	Stream            bool                `json:"stream"`
	StreamOptions     *ChatStreamOptions  `json:"stream_options,omitempty"`
}

// ChatStreamOptions requests inclusion of a final usage chunk.
type ChatStreamOptions struct {
	IncludeUsage bool `json:"include_usage,omitempty"`
}

// ChatMessage is one entry in the flat message list.
type ChatMessage struct {
	Role       string         `json:"role"`
	Content    any            `json:"content,omitempty"`
	ToolCalls  []ChatToolCall `json:"tool_calls,omitempty"`
	ToolCallID string         `json:"tool_call_id,omitempty"`
	Name       string         `json:"name,omitempty"`
}

// ChatToolCall is a complete (non-streaming) tool call attached to an
// assistant message.
type ChatToolCall struct {
	ID       string           `json:"id"`
	Type     string           `json:"type"`
	Function ChatFunctionCall `json:"function"`
}

// ChatFunctionCall names the function and its complete JSON arguments.
type ChatFunctionCall struct {
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

// ChatTool is a function tool definition in the flat-per-function shape the
// Chat Completions protocol expects: {type, function:{name, description,
// parameters}}.
type ChatTool struct {
	Type     string          `json:"type"`
	Function ChatFunctionDef `json:"function"`
}

// ChatFunctionDef describes a callable function.
type ChatFunctionDef struct {
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Parameters  json.RawMessage `json:"parameters,omitempty"`
}

// ChatCompletionResponse is a non-streaming backend response.
type ChatCompletionResponse struct {
	ID      string       `json:"id"`
	Object  string       `json:"object"`
	Model   string       `json:"model"`
	Choices []ChatChoice `json:"choices"`
	Usage   *ChatUsage   `json:"usage,omitempty"`
}

// ChatChoice is one completion choice in a non-streaming response.
type ChatChoice struct {
	Index        int         `json:"index"`
	Message      ChatMessage `json:"message"`
	FinishReason string      `json:"finish_reason,omitempty"`
}

// ChatUsage carries token accounting.
type ChatUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// ChatCompletionChunk is one SSE-delivered streaming chunk.
type ChatCompletionChunk struct {
	ID      string           `json:"id"`
	Object  string           `json:"object"`
	Model   string           `json:"model"`
	Choices []ChatChunkChoice `json:"choices"`
	Usage   *ChatUsage       `json:"usage,omitempty"`
	Error   *ChatErrorBody   `json:"error,omitempty"`
}

// ChatChunkChoice is one choice's delta within a streaming chunk.
type ChatChunkChoice struct {
	Index        int            `json:"index"`
	Delta        ChatChunkDelta `json:"delta"`
	FinishReason *string        `json:"finish_reason,omitempty"`

	// Message is populated by backends that emit a single, non-streamed
	// "delta" carrying the entire message rather than incremental content.
	Message *ChatMessage `json:"message,omitempty"`
}

// ChatChunkDelta is the incremental content of one streaming choice.
//
// Content is deliberately json.RawMessage rather than a typed string: some
// backends emit a bare string, others an object ({type,text}), others a
// nested array of content parts. See RecoverText for the shape-tolerant
// extraction rule.
type ChatChunkDelta struct {
	Role             string               `json:"role,omitempty"`
	Content          json.RawMessage      `json:"content,omitempty"`
	ToolCalls        []ChatChunkToolCall  `json:"tool_calls,omitempty"`
	ReasoningContent *string              `json:"reasoning_content,omitempty"`
}

// ChatChunkToolCall is one incremental tool-call fragment, keyed by Index.
type ChatChunkToolCall struct {
	Index    int                   `json:"index"`
	ID       *string               `json:"id,omitempty"`
	Type     *string               `json:"type,omitempty"`
	Function ChatChunkFunctionCall `json:"function,omitempty"`
}

// ChatChunkFunctionCall is the incremental name/arguments fragment of a tool call.
type ChatChunkFunctionCall struct {
	Name      *string `json:"name,omitempty"`
	Arguments *string `json:"arguments,omitempty"`
}

// ChatErrorBody is an in-band error object a backend may embed in a chunk
// instead of (or in addition to) a non-2xx HTTP status.
type ChatErrorBody struct {
	Message string `json:"message"`
	Type    string `json:"type,omitempty"`
	Code    any    `json:"code,omitempty"`
}

// ChatErrorResponse wraps ChatErrorBody for a non-2xx JSON error response body.
type ChatErrorResponse struct {
	Error ChatErrorBody `json:"error"`
}

// RecoverText extracts displayable text from an arbitrary chunk content
// shape: a bare string returns itself; an object with type ∈ {text,
// output_text} returns its text field; an array recursively recovers each
// element and newline-joins the non-empty results; anything else recovers
// to empty.
func RecoverText(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}

	var arr []json.RawMessage
	if err := json.Unmarshal(raw, &arr); err == nil {
		var parts []string
		for _, elem := range arr {
			if text := RecoverText(elem); text != "" {
				parts = append(parts, text)
			}
		}
		return joinNonEmpty(parts)
	}

	var obj struct {
		Type string `json:"type"`
		Text string `json:"text"`
	}
	if err := json.Unmarshal(raw, &obj); err == nil {
		if obj.Type == "text" || obj.Type == "output_text" {
			return obj.Text
		}
	}

	return ""
}

func joinNonEmpty(parts []string) string {
	if len(parts) == 0 {
		return ""
	}
	out := parts[0]
	for _, p := range parts[1:] {
		out += "\n" + p
	}
	return out
}

// ChatModelsResponse is the /v1/models listing.
type ChatModelsResponse struct {
	Object string      `json:"object"`
	Data   []ChatModel `json:"data"`
}

// ChatModel is one entry in the model listing, extended with the optional
// pricing/capability annotations the model cache (§4.11) surfaces.
type ChatModel struct {
	ID              string        `json:"id"`
	Object          string        `json:"object,omitempty"`
	OwnedBy         string        `json:"owned_by,omitempty"`
	InputPriceUSD   *float64      `json:"input_price_usd,omitempty"`
	OutputPriceUSD  *float64      `json:"output_price_usd,omitempty"`
	Capabilities    *ModelCapabilities `json:"capabilities,omitempty"`
}

// ModelCapabilities describes what a model advertises support for.
type ModelCapabilities struct {
	ToolCalling bool `json:"tool_calling,omitempty"`
	Vision      bool `json:"vision,omitempty"`
	Reasoning   bool `json:"reasoning,omitempty"`
}
