// Package orchestrator implements the core protocol-translation state
// machine: consuming a Chat Completions chunk stream and synthesizing the
// richer output-item event stream the Responses protocol speaks, including
// synthetic lifecycle events the backend itself never emits.
package orchestrator

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"strconv"
	"strings"

	"github.com/sirouk/responses-proxy/pkg/api"
	"github.com/sirouk/responses-proxy/pkg/breaker"
	"github.com/sirouk/responses-proxy/pkg/sse"
	"github.com/sirouk/responses-proxy/pkg/upstream"
	"github.com/sirouk/responses-proxy/pkg/xmltool"
)

// ErrClientGone is returned by Run when the client-bound event channel
// could not accept an event, signaling the client disconnected mid-stream.
var ErrClientGone = errors.New("orchestrator: client disconnected")

// EmitFunc delivers one stamped event to the client. It should return
// ErrClientGone (or any error) if delivery failed; Run treats any error as
// terminal and stops reading from the upstream body.
type EmitFunc func(api.StreamEvent) error

// Run drives one response end to end: Phase A preamble, Phase B streaming
// loop over body, Phase C finalization. It records the outcome on br
// (success unless the response ends in final_status=failed).
//
// body is the upstream's raw SSE byte stream; Run takes ownership and does
// not close it. req is the original request, kept only for echoing
// pass-through fields in the emitted Response objects.
func Run(ctx context.Context, req *api.CreateResponseRequest, responseID string, body io.Reader, emit EmitFunc, br *breaker.Breaker, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}

	seq := newSequencer(responseID)
	messageItemID := api.NewItemID()
	state := newResponseState(responseID, messageItemID)

	if err := runPreamble(req, responseID, state, seq, emit); err != nil {
		return err
	}

	if err := runStreamingLoop(ctx, body, req, responseID, state, seq, emit, logger); err != nil {
		return err
	}

	if err := runFinalization(req, responseID, state, seq, emit); err != nil {
		return err
	}

	if br != nil {
		if state.finalStatus == api.ResponseStatusFailed {
			br.RecordFailure()
		} else {
			br.RecordSuccess()
		}
	}

	return nil
}

// runPreamble emits the three unconditional Phase-A events.
func runPreamble(req *api.CreateResponseRequest, responseID string, state *responseState, seq *sequencer, emit EmitFunc) error {
	created := seq.stamp(api.StreamEvent{
		Type:     api.EventResponseCreated,
		Response: echoResponse(req, responseID, api.ResponseStatusInProgress, nil),
	})
	if err := emit(created); err != nil {
		return err
	}

	added := seq.stamp(api.StreamEvent{
		Type: api.EventOutputItemAdded,
		Item: &api.Item{
			ID:      state.messageItemID,
			Type:    api.ItemTypeMessage,
			Status:  api.ItemStatusInProgress,
			Message: &api.MessageData{Role: api.RoleAssistant},
		},
		OutputIndex: 0,
	})
	if err := emit(added); err != nil {
		return err
	}

	partAdded := seq.stamp(api.StreamEvent{
		Type:         api.EventContentPartAdded,
		ItemID:       state.messageItemID,
		OutputIndex:  0,
		ContentIndex: 0,
		Part:         &api.OutputContentPart{Type: "output_text"},
	})
	return emit(partAdded)
}

// runStreamingLoop consumes complete SSE payloads from body and drives
// Phase B of the state machine.
func runStreamingLoop(ctx context.Context, body io.Reader, req *api.CreateResponseRequest, responseID string, state *responseState, seq *sequencer, emit EmitFunc, logger *slog.Logger) error {
	parser := sse.New()
	buf := make([]byte, 32*1024)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		n, readErr := body.Read(buf)
		if n > 0 {
			for _, payload := range parser.Feed(buf[:n]) {
				done, err := processPayload(payload, state, seq, emit, logger)
				if err != nil {
					return err
				}
				if done {
					return nil
				}
			}
		}
		if readErr != nil {
			if readErr == io.EOF {
				if payload, ok := parser.Close(); ok {
					if _, err := processPayload(payload, state, seq, emit, logger); err != nil {
						return err
					}
				}
				return nil
			}
			return readErr
		}
	}
}

// processPayload handles one complete SSE payload. Returns done=true when
// the stream should stop (DONE sentinel, in-chunk error, or finish_reason
// resolved the response).
func processPayload(payload string, state *responseState, seq *sequencer, emit EmitFunc, logger *slog.Logger) (bool, error) {
	if payload == "" {
		return false, nil
	}
	if payload == sse.DonePayload {
		return true, nil
	}

	var chunk upstream.ChatCompletionChunk
	if err := json.Unmarshal([]byte(payload), &chunk); err != nil {
		logger.Warn("dropping unparseable backend chunk", "error", err)
		return false, nil
	}

	if chunk.Error != nil {
		state.finalStatus = api.ResponseStatusFailed
		return true, nil
	}

	if chunk.Usage != nil {
		state.usageSeen = true
		state.inputTokens = chunk.Usage.PromptTokens
		state.outputTokens = chunk.Usage.CompletionTokens
		state.totalTokens = chunk.Usage.TotalTokens
	}

	for _, choice := range chunk.Choices {
		if err := processChoice(choice, state, seq, emit); err != nil {
			return false, err
		}
	}

	resolved := false
	for _, choice := range chunk.Choices {
		if choice.FinishReason != nil {
			resolved = true
		}
	}
	return resolved, nil
}

// processChoice handles one chunk choice: finish_reason, non-streaming
// message content, reasoning delta, text delta, and tool-call deltas.
func processChoice(choice upstream.ChatChunkChoice, state *responseState, seq *sequencer, emit EmitFunc) error {
	if choice.FinishReason != nil {
		state.finalStatus = translateFinishReason(*choice.FinishReason)
	}

	if choice.Message != nil {
		if text, ok := choice.Message.Content.(string); ok && text != "" {
			return emitTextFragment(text, state, seq, emit)
		}
	}

	delta := choice.Delta

	if delta.ReasoningContent != nil && *delta.ReasoningContent != "" {
		if err := handleReasoningDelta(*delta.ReasoningContent, state, seq, emit); err != nil {
			return err
		}
	}

	if len(delta.Content) > 0 {
		text := upstream.RecoverText(delta.Content)
		if text != "" {
			if err := handleTextDelta(text, state, seq, emit); err != nil {
				return err
			}
		}
	}

	for _, tc := range delta.ToolCalls {
		if err := handleToolCallDelta(tc, state, seq, emit); err != nil {
			return err
		}
	}

	return nil
}

// translateFinishReason maps a backend finish_reason to the response's
// final status.
func translateFinishReason(reason string) api.ResponseStatus {
	switch reason {
	case "length":
		return api.ResponseStatusIncomplete
	case "content_filter":
		return api.ResponseStatusFailed
	case "stop", "tool_calls":
		return api.ResponseStatusCompleted
	default:
		return api.ResponseStatusCompleted
	}
}

// emitTextFragment handles a single, non-streamed message.content fragment
// (a backend that sends the whole text in one go rather than incrementally).
func emitTextFragment(text string, state *responseState, seq *sequencer, emit EmitFunc) error {
	state.accumulatedText += text
	event := seq.stamp(api.StreamEvent{
		Type:         api.EventOutputTextDelta,
		Delta:        text,
		ItemID:       state.messageItemID,
		OutputIndex:  0,
		ContentIndex: 0,
	})
	return emit(event)
}

// handleReasoningDelta implements the reasoning_content path of Phase B.
func handleReasoningDelta(text string, state *responseState, seq *sequencer, emit EmitFunc) error {
	if !state.reasoningStarted {
		state.reasoningStarted = true
		state.reasoningItemID = api.NewItemID()
	}
	state.accumulatedReasoning += text

	event := seq.stamp(api.StreamEvent{
		Type:         api.EventReasoningDelta,
		Delta:        text,
		ItemID:       state.reasoningItemID,
		OutputIndex:  0,
		ContentIndex: 0,
	})
	return emit(event)
}

// handleTextDelta implements the delta.content path of Phase B: XML
// buffering state transitions, deduplication, and plain text delta emission.
func handleTextDelta(text string, state *responseState, seq *sequencer, emit EmitFunc) error {
	state.accumulatedText += text

	if !state.xmlBuffering && xmltool.ContainsMarkup(state.accumulatedText) {
		state.xmlBuffering = true
		state.lastTextDelta = nil
	}

	if state.xmlBuffering {
		return maybeResolveXMLBuffer(state, seq, emit)
	}

	if text == "" {
		return nil
	}
	if state.lastTextDelta != nil && *state.lastTextDelta == text {
		return nil
	}

	d := text
	state.lastTextDelta = &d

	event := seq.stamp(api.StreamEvent{
		Type:         api.EventOutputTextDelta,
		Delta:        text,
		ItemID:       state.messageItemID,
		OutputIndex:  0,
		ContentIndex: 0,
	})
	return emit(event)
}

// maybeResolveXMLBuffer checks whether the buffered text now contains a
// closing tag and, if so, invokes the salvager and emits the resulting
// function-call lifecycle events.
func maybeResolveXMLBuffer(state *responseState, seq *sequencer, emit EmitFunc) error {
	hasClose := containsAny(state.accumulatedText, "</function>", "</tool_call>")
	if !hasClose {
		return nil
	}

	cleaned, calls := xmltool.Extract(state.accumulatedText)

	if len(calls) == 0 {
		// Closing tag present but nothing parsed: stop buffering and let
		// text flow through verbatim from here on.
		state.xmlBuffering = false
		return nil
	}

	state.accumulatedText = cleaned
	state.xmlBuffering = false

	for _, call := range calls {
		idx := state.freeXMLIndex()
		tc := &toolCallState{
			callID:    api.NewItemID(),
			itemID:    api.NewItemID(),
			typ:       "function",
			name:      call.Name,
			arguments: call.Arguments,
			itemAdded: true,
		}
		state.toolCalls[idx] = tc

		added := seq.stamp(api.StreamEvent{
			Type: api.EventOutputItemAdded,
			Item: &api.Item{
				ID:     tc.itemID,
				Type:   api.ItemTypeFunctionCall,
				Status: api.ItemStatusInProgress,
				FunctionCall: &api.FunctionCallData{
					CallID: tc.callID,
					Name:   tc.name,
				},
			},
			OutputIndex: idx + 1,
		})
		if err := emit(added); err != nil {
			return err
		}

		argsDone := seq.stamp(api.StreamEvent{
			Type:        api.EventFunctionCallArgsDone,
			Arguments:   tc.arguments,
			ItemID:      tc.itemID,
			OutputIndex: idx + 1,
		})
		if err := emit(argsDone); err != nil {
			return err
		}
	}

	return nil
}

func containsAny(s string, substrs ...string) bool {
	for _, sub := range substrs {
		if sub != "" && strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

// handleToolCallDelta implements the native tool-call path of Phase B.
func handleToolCallDelta(tc upstream.ChatChunkToolCall, state *responseState, seq *sequencer, emit EmitFunc) error {
	existing, ok := state.toolCalls[tc.Index]
	if !ok {
		callID := ""
		if tc.ID != nil {
			callID = *tc.ID
		} else {
			callID = syntheticCallID(state.responseID, tc.Index)
		}
		existing = &toolCallState{
			callID: callID,
			itemID: callID,
			typ:    "function",
		}
		if tc.Type != nil {
			existing.typ = *tc.Type
		}
		state.toolCalls[tc.Index] = existing
	} else {
		if tc.ID != nil {
			existing.callID = *tc.ID
			existing.itemID = *tc.ID
		}
		if tc.Type != nil {
			existing.typ = *tc.Type
		}
	}

	if tc.Function.Name != nil && !existing.itemAdded {
		existing.name = *tc.Function.Name
		existing.itemAdded = true

		added := seq.stamp(api.StreamEvent{
			Type: api.EventOutputItemAdded,
			Item: &api.Item{
				ID:     existing.itemID,
				Type:   api.ItemTypeFunctionCall,
				Status: api.ItemStatusInProgress,
				FunctionCall: &api.FunctionCallData{
					CallID: existing.callID,
					Name:   existing.name,
				},
			},
			OutputIndex: tc.Index + 1,
		})
		if err := emit(added); err != nil {
			return err
		}
	}

	if tc.Function.Arguments != nil && *tc.Function.Arguments != "" {
		existing.arguments += *tc.Function.Arguments
		delta := seq.stamp(api.StreamEvent{
			Type:        api.EventFunctionCallArgsDelta,
			Delta:       *tc.Function.Arguments,
			ItemID:      existing.itemID,
			OutputIndex: tc.Index + 1,
		})
		if err := emit(delta); err != nil {
			return err
		}
	}

	return nil
}

func syntheticCallID(responseID string, index int) string {
	return "call_" + responseID + "_" + strconv.Itoa(index)
}
