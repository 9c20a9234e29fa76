package orchestrator

import (
	"fmt"
	"math"

	"github.com/sirouk/responses-proxy/pkg/api"
)

// sequencer stamps every outgoing event of one response with a monotonic
// event_id and sequence_number. It is owned by exactly one response's
// orchestration task; no locking is needed.
type sequencer struct {
	responseID   string
	nextEventID  uint64
	nextSeq      uint32
}

func newSequencer(responseID string) *sequencer {
	return &sequencer{responseID: responseID}
}

// stamp assigns the next event_id and sequence_number to event and returns
// the stamped copy. Counters use saturating arithmetic so a pathologically
// long-lived stream cannot wrap around.
func (s *sequencer) stamp(event api.StreamEvent) api.StreamEvent {
	event.ResponseID = s.responseID

	s.nextSeq = saturatingIncU32(s.nextSeq)
	event.SequenceNumber = int(s.nextSeq)

	s.nextEventID = saturatingIncU64(s.nextEventID)
	event.EventID = fmt.Sprintf("evt_%s_%016x", s.responseID, s.nextEventID)

	return event
}

func saturatingIncU32(n uint32) uint32 {
	if n == math.MaxUint32 {
		return n
	}
	return n + 1
}

func saturatingIncU64(n uint64) uint64 {
	if n == math.MaxUint64 {
		return n
	}
	return n + 1
}
