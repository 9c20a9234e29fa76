// Package translate lowers a structured, multi-turn Responses request into
// the flat Chat Completions message list the upstream backend understands.
package translate

import (
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/sirouk/responses-proxy/pkg/api"
	"github.com/sirouk/responses-proxy/pkg/upstream"
)

// disclaimer is appended to the system message whenever instructions are
// present, to steer backends away from in-band XML tool-call encoding.
const disclaimer = "\n\nWhen calling tools, always respond with the native tool-call JSON mechanism provided by the API. Do not emit tool calls as XML or any other in-band text encoding."

// Error reports a failure to translate a request, before any upstream call is made.
type Error struct {
	Param   string
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Param, e.Message)
}

// errMissingModel is returned when the request carries no model name.
func errMissingModel() *Error {
	return &Error{Param: "model", Message: "model is required"}
}

// pendingToolCall is an accumulated function_call item awaiting attachment
// to the next assistant message.
type pendingToolCall struct {
	id        string
	name      string
	arguments string
}

// Translate lowers req into a ChatCompletionRequest. logger receives one
// warning per dropped or unattached construct; it may be nil.
func Translate(req *api.CreateResponseRequest, logger *slog.Logger) (*upstream.ChatCompletionRequest, *Error) {
	if logger == nil {
		logger = slog.Default()
	}

	if req.Model == "" {
		return nil, errMissingModel()
	}

	out := &upstream.ChatCompletionRequest{
		Model:  req.Model,
		Stream: req.Stream,
	}

	if req.Instructions != "" {
		out.Messages = append(out.Messages, upstream.ChatMessage{
			Role:    "system",
			Content: req.Instructions + disclaimer,
		})
	}

	switch {
	case req.Input.String != "":
		out.Messages = append(out.Messages, upstream.ChatMessage{
			Role:    "user",
			Content: req.Input.String,
		})
	case req.Input.Items != nil:
		msgs := translateItems(req.Input.Items, logger)
		out.Messages = append(out.Messages, msgs...)
	}

	for _, tool := range req.Tools {
		if tool.Type != "function" {
			logger.Warn("dropping non-function tool", "type", tool.Type, "name", tool.Name)
			continue
		}
		out.Tools = append(out.Tools, upstream.ChatTool{
			Type: "function",
			Function: upstream.ChatFunctionDef{
				Name:        tool.Name,
				Description: tool.Description,
				Parameters:  tool.Parameters,
			},
		})
	}

	if req.ToolChoice != nil {
		if req.ToolChoice.Function != nil {
			out.ToolChoice = map[string]any{
				"type":     "function",
				"function": map[string]any{"name": req.ToolChoice.Function.Name},
			}
		} else if req.ToolChoice.String != "" {
			out.ToolChoice = req.ToolChoice.String
		}
	}

	out.Temperature = req.Temperature
	out.TopP = req.TopP
	out.MaxTokens = req.MaxOutputTokens
	out.ParallelToolCalls = req.ParallelToolCalls

	logUnsupportedFields(req, logger)

	return out, nil
}

// translateItems walks items in order, maintaining the pending_reasoning and
// pending_tool_calls accumulators per spec rule 4.
func translateItems(items []api.Item, logger *slog.Logger) []upstream.ChatMessage {
	var (
		messages       []upstream.ChatMessage
		pendingReason  []string
		pendingCalls   []pendingToolCall
	)

	flushUnattached := func() {
		if len(pendingReason) > 0 {
			logger.Warn("dropping reasoning with no following assistant message")
			pendingReason = nil
		}
		if len(pendingCalls) > 0 {
			logger.Warn("dropping function_call with no following assistant message", "count", len(pendingCalls))
			pendingCalls = nil
		}
	}

	for _, item := range items {
		switch item.Type {
		case api.ItemTypeReasoning:
			if item.Reasoning != nil && item.Reasoning.Content != "" {
				pendingReason = append(pendingReason, item.Reasoning.Content)
			} else {
				logger.Warn("dropping reasoning item without text content (stateless proxy)")
			}

		case api.ItemTypeFunctionCall:
			if item.FunctionCall != nil {
				pendingCalls = append(pendingCalls, pendingToolCall{
					id:        item.FunctionCall.CallID,
					name:      item.FunctionCall.Name,
					arguments: item.FunctionCall.Arguments,
				})
			}

		case api.ItemTypeFunctionCallOutput:
			if item.FunctionCallOutput != nil {
				messages = append(messages, upstream.ChatMessage{
					Role:       "tool",
					ToolCallID: item.FunctionCallOutput.CallID,
					Content:    unwrapFunctionOutput(item.FunctionCallOutput.Output),
				})
			}

		case api.ItemTypeMessage:
			if item.Message == nil {
				continue
			}
			msg := buildMessage(item.Message)

			if item.Message.Role == api.RoleAssistant {
				if len(pendingReason) > 0 {
					think := "<think>" + joinLines(pendingReason) + "</think>"
					msg.Content = prependText(msg.Content, think)
					pendingReason = nil
				}
				if len(pendingCalls) > 0 {
					for _, pc := range pendingCalls {
						msg.ToolCalls = append(msg.ToolCalls, upstream.ChatToolCall{
							ID:   pc.id,
							Type: "function",
							Function: upstream.ChatFunctionCall{
								Name:      pc.name,
								Arguments: pc.arguments,
							},
						})
					}
					pendingCalls = nil
				}
			}

			messages = append(messages, msg)

		case api.ItemTypeItemReference:
			logger.Warn("dropping item_reference (stateless proxy)", "id", itemReferenceID(item))

		default:
			if !api.IsExtensionType(item.Type) {
				logger.Warn("dropping unrecognized item type", "type", item.Type)
			}
		}
	}

	flushUnattached()

	return messages
}

func itemReferenceID(item api.Item) string {
	if item.ItemReference != nil {
		return item.ItemReference.ID
	}
	return ""
}

// buildMessage converts the content of a message item per spec rule 5.
func buildMessage(m *api.MessageData) upstream.ChatMessage {
	role := string(m.Role)

	if m.Role == api.RoleAssistant {
		return upstream.ChatMessage{Role: role, Content: joinOutputText(m.Output)}
	}

	hasImage := false
	for _, p := range m.Content {
		if p.Type == "input_image" {
			hasImage = true
			break
		}
	}

	if !hasImage {
		var text string
		for _, p := range m.Content {
			switch p.Type {
			case "input_text", "output_text":
				text += p.Text
			case "reasoning":
				// Reasoning parts accumulate separately and are not placed
				// in chat content directly; nothing to do here since this
				// path only collapses to a single string when no image is
				// present and reasoning text is already folded in upstream.
			}
		}
		return upstream.ChatMessage{Role: role, Content: text}
	}

	var parts []map[string]any
	for _, p := range m.Content {
		switch p.Type {
		case "input_text", "output_text":
			parts = append(parts, map[string]any{"type": "text", "text": p.Text})
		case "input_image":
			parts = append(parts, map[string]any{"type": "image_url", "image_url": map[string]any{"url": p.URL}})
		case "input_file":
			// Dropped: no backend in this deployment is known to accept it.
		}
	}
	return upstream.ChatMessage{Role: role, Content: parts}
}

func joinOutputText(parts []api.OutputContentPart) string {
	var text string
	for _, p := range parts {
		if p.Type == "output_text" {
			text += p.Text
		}
	}
	return text
}

func prependText(content any, prefix string) any {
	switch v := content.(type) {
	case string:
		return prefix + v
	case []map[string]any:
		return append([]map[string]any{{"type": "text", "text": prefix}}, v...)
	default:
		return prefix
	}
}

func joinLines(lines []string) string {
	out := ""
	for i, l := range lines {
		if i > 0 {
			out += "\n"
		}
		out += l
	}
	return out
}

// unwrapFunctionOutput extracts the inner "output" string if output parses
// as {"output": "..."}; otherwise returns the raw output string unchanged.
func unwrapFunctionOutput(output string) string {
	var wrapper struct {
		Output string `json:"output"`
	}
	if err := json.Unmarshal([]byte(output), &wrapper); err == nil && wrapper.Output != "" {
		return wrapper.Output
	}
	return output
}

// logUnsupportedFields warns once per request about Responses-only fields
// this proxy does not forward upstream.
func logUnsupportedFields(req *api.CreateResponseRequest, logger *slog.Logger) {
	if req.Include != nil {
		logger.Warn("ignoring unsupported field", "field", "include")
	}
	if req.PreviousResponseID != "" {
		logger.Warn("ignoring unsupported field", "field", "previous_response_id")
	}
	if req.MaxToolCalls != nil {
		logger.Warn("ignoring unsupported field", "field", "max_tool_calls")
	}
	if req.StreamOptions != nil && req.StreamOptions.IncludeObfuscation {
		logger.Warn("ignoring unsupported field", "field", "stream_options.include_obfuscation")
	}
	if req.SafetyIdentifier != "" {
		logger.Warn("ignoring unsupported field", "field", "safety_identifier")
	}
	if req.PromptCacheKey != "" {
		logger.Warn("ignoring unsupported field", "field", "prompt_cache_key")
	}
	if req.ServiceTier != "" {
		logger.Warn("ignoring unsupported field", "field", "service_tier")
	}
}
