package orchestrator

import (
	"sort"

	"github.com/sirouk/responses-proxy/pkg/api"
)

// toolCallState is the per-in-flight-tool-call mutable record, keyed by the
// backend's delta index.
type toolCallState struct {
	callID    string
	itemID    string
	typ       string
	name      string
	arguments string
	itemAdded bool
}

// responseState is the single mutable struct one orchestration task owns
// for the lifetime of one response. No locking is required: exactly one
// goroutine drives it from Phase A through Phase C.
type responseState struct {
	responseID    string
	messageItemID string

	reasoningItemID      string
	reasoningStarted     bool
	accumulatedReasoning string

	accumulatedText string
	lastTextDelta   *string

	xmlBuffering bool

	toolCalls    map[int]*toolCallState
	nextXMLIndex int

	finalStatus api.ResponseStatus

	inputTokens     int
	outputTokens    int
	totalTokens     int
	cachedTokens    int
	reasoningTokens int
	usageSeen       bool
}

func newResponseState(responseID, messageItemID string) *responseState {
	return &responseState{
		responseID:    responseID,
		messageItemID: messageItemID,
		toolCalls:     make(map[int]*toolCallState),
		nextXMLIndex:  0,
		finalStatus:   api.ResponseStatusInProgress,
	}
}

// sortedToolIndices returns the keys of toolCalls in ascending order.
func (s *responseState) sortedToolIndices() []int {
	indices := make([]int, 0, len(s.toolCalls))
	for idx := range s.toolCalls {
		indices = append(indices, idx)
	}
	sort.Ints(indices)
	return indices
}

// freeXMLIndex returns the next output index not already claimed by a
// native tool call, starting the search at nextXMLIndex, and advances
// nextXMLIndex past it.
func (s *responseState) freeXMLIndex() int {
	for {
		if _, taken := s.toolCalls[s.nextXMLIndex]; !taken {
			idx := s.nextXMLIndex
			s.nextXMLIndex++
			return idx
		}
		s.nextXMLIndex++
	}
}
