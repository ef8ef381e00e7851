package risk

import (
	"strconv"

	"microlend/core/types"
)

const (
	EventTypeScoreUpdated    = "risk.scoreUpdated"
	EventTypeValidityUpdated = "risk.validityUpdated"
)

type riskEvent struct {
	evt *types.Event
}

func (e riskEvent) EventType() string {
	if e.evt == nil {
		return ""
	}
	return e.evt.Type
}

func (e riskEvent) Event() *types.Event { return e.evt }

func newScoreUpdatedEvent(kind, subject string, score uint64, assessedAt int64) riskEvent {
	return riskEvent{evt: &types.Event{
		Type: EventTypeScoreUpdated,
		Attributes: map[string]string{
			"kind":       kind,
			"subject":    subject,
			"score":      strconv.FormatUint(score, 10),
			"assessedAt": strconv.FormatInt(assessedAt, 10),
		},
	}}
}

func newValidityUpdatedEvent(seconds int64) riskEvent {
	return riskEvent{evt: &types.Event{
		Type: EventTypeValidityUpdated,
		Attributes: map[string]string{
			"validitySeconds": strconv.FormatInt(seconds, 10),
		},
	}}
}
