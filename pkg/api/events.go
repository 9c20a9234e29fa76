package api

import "strings"

// StreamEventType identifies the type of a streaming event.
type StreamEventType string

// Delta events are emitted during streaming to convey incremental content.
const (
	EventOutputItemAdded       StreamEventType = "response.output_item.added"
	EventContentPartAdded      StreamEventType = "response.content_part.added"
	EventOutputTextDelta       StreamEventType = "response.output_text.delta"
	EventOutputTextDone        StreamEventType = "response.output_text.done"
	EventReasoningDelta        StreamEventType = "response.reasoning_text.delta"
	EventReasoningDone         StreamEventType = "response.reasoning_text.done"
	EventFunctionCallArgsDelta StreamEventType = "response.function_call_arguments.delta"
	EventFunctionCallArgsDone  StreamEventType = "response.function_call_arguments.done"
	EventContentPartDone       StreamEventType = "response.content_part.done"
	EventOutputItemDone        StreamEventType = "response.output_item.done"
)

// Lifecycle events track the state of a response. This is a closed set: the
// proxy is stateless and speaks only a single synchronous turn per request,
// so there is no queued, cancelled, or requires_action state to report.
// incomplete and failed are carried as Response.Status values inside
// response.completed / response.failed, not as distinct event types.
const (
	EventResponseCreated    StreamEventType = "response.created"
	EventResponseInProgress StreamEventType = "response.in_progress"
	EventResponseCompleted  StreamEventType = "response.completed"
	EventResponseFailed     StreamEventType = "response.failed"
)

// StreamEvent represents a single server-sent event in a streaming response.
// EventID and ResponseID are always set; the remaining fields are populated
// according to Type.
type StreamEvent struct {
	Type           StreamEventType    `json:"type"`
	SequenceNumber int                `json:"sequence_number"`
	EventID        string             `json:"event_id"`
	ResponseID     string             `json:"response_id"`
	Response       *Response          `json:"response,omitempty"`
	Item           *Item              `json:"item,omitempty"`
	Part           *OutputContentPart `json:"part,omitempty"`
	Delta          string             `json:"delta,omitempty"`
	Text           string             `json:"text,omitempty"`
	Arguments      string             `json:"arguments,omitempty"`
	ItemID         string             `json:"item_id,omitempty"`
	OutputIndex    int                `json:"output_index,omitempty"`
	ContentIndex   int                `json:"content_index,omitempty"`
}

// IsExtensionEvent returns true if the event type follows the "provider:event_type"
// pattern used for provider-specific extension events.
func IsExtensionEvent(t StreamEventType) bool {
	return strings.Contains(string(t), ":")
}
