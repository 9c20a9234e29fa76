package orchestrator

import (
	"time"

	"github.com/sirouk/responses-proxy/pkg/api"
)

// runFinalization implements Phase C: closing out reasoning, the message
// item, every tool call, and the terminal response.completed event.
func runFinalization(req *api.CreateResponseRequest, responseID string, state *responseState, seq *sequencer, emit EmitFunc) error {
	if state.reasoningStarted {
		done := seq.stamp(api.StreamEvent{
			Type:         api.EventReasoningDone,
			Text:         state.accumulatedReasoning,
			ItemID:       state.reasoningItemID,
			OutputIndex:  0,
			ContentIndex: 0,
		})
		if err := emit(done); err != nil {
			return err
		}
	}

	var reasoningItem, messageItem *api.Item
	if state.reasoningStarted {
		reasoningItem = &api.Item{
			ID:        state.reasoningItemID,
			Type:      api.ItemTypeReasoning,
			Status:    api.ItemStatusCompleted,
			Reasoning: &api.ReasoningData{Content: state.accumulatedReasoning},
		}
	}

	if state.accumulatedText != "" {
		textDone := seq.stamp(api.StreamEvent{
			Type:         api.EventOutputTextDone,
			Text:         state.accumulatedText,
			ItemID:       state.messageItemID,
			OutputIndex:  0,
			ContentIndex: 0,
		})
		if err := emit(textDone); err != nil {
			return err
		}

		partDone := seq.stamp(api.StreamEvent{
			Type:         api.EventContentPartDone,
			ItemID:       state.messageItemID,
			OutputIndex:  0,
			ContentIndex: 0,
			Part:         &api.OutputContentPart{Type: "output_text", Text: state.accumulatedText},
		})
		if err := emit(partDone); err != nil {
			return err
		}

		messageItem = &api.Item{
			ID:     state.messageItemID,
			Type:   api.ItemTypeMessage,
			Status: api.ItemStatusCompleted,
			Message: &api.MessageData{
				Role:   api.RoleAssistant,
				Output: []api.OutputContentPart{{Type: "output_text", Text: state.accumulatedText}},
			},
		}

		itemDone := seq.stamp(api.StreamEvent{
			Type:        api.EventOutputItemDone,
			Item:        messageItem,
			OutputIndex: 0,
		})
		if err := emit(itemDone); err != nil {
			return err
		}
	}

	var toolItems []api.Item
	for _, idx := range state.sortedToolIndices() {
		tc := state.toolCalls[idx]
		if !tc.itemAdded {
			continue
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

		item := api.Item{
			ID:     tc.itemID,
			Type:   api.ItemTypeFunctionCall,
			Status: api.ItemStatusCompleted,
			FunctionCall: &api.FunctionCallData{
				CallID:    tc.callID,
				Name:      tc.name,
				Arguments: tc.arguments,
			},
		}
		toolItems = append(toolItems, item)

		itemDone := seq.stamp(api.StreamEvent{
			Type:        api.EventOutputItemDone,
			Item:        &item,
			OutputIndex: idx + 1,
		})
		if err := emit(itemDone); err != nil {
			return err
		}
	}

	var output []api.Item
	if reasoningItem != nil {
		output = append(output, *reasoningItem)
	}
	if messageItem != nil {
		output = append(output, *messageItem)
	}
	output = append(output, toolItems...)

	finalStatus := state.finalStatus
	if finalStatus == "" || finalStatus == api.ResponseStatusInProgress {
		finalStatus = api.ResponseStatusCompleted
	}

	var incomplete *api.IncompleteDetails
	if finalStatus == api.ResponseStatusIncomplete {
		incomplete = &api.IncompleteDetails{Reason: "max_output_tokens"}
	}

	resp := echoResponse(req, responseID, finalStatus, output)
	completedAt := time.Now().Unix()
	resp.CompletedAt = &completedAt
	resp.IncompleteDetails = incomplete
	resp.Usage = &api.Usage{
		InputTokens:         state.inputTokens,
		OutputTokens:        state.outputTokens,
		TotalTokens:         state.totalTokens,
		InputTokensDetails:  api.InputTokensDetails{CachedTokens: state.cachedTokens},
		OutputTokensDetails: api.OutputTokensDetails{ReasoningTokens: state.reasoningTokens},
	}

	// A mid-stream failure (in-chunk error, content_filter finish_reason) still
	// surfaces as response.completed with status=failed, not a separate event.
	// response.failed is reserved for the pre-stream adapter path in serve.go.
	completed := seq.stamp(api.StreamEvent{
		Type:     api.EventResponseCompleted,
		Response: resp,
	})
	return emit(completed)
}
