package fees

import (
	"strconv"

	"microlend/core/types"
	"microlend/crypto"
)

// EventTypeRateUpdated is emitted when the operator changes the platform fee.
const EventTypeRateUpdated = "fees.rateUpdated"

type feeEvent struct {
	evt *types.Event
}

func (e feeEvent) EventType() string {
	if e.evt == nil {
		return ""
	}
	return e.evt.Type
}

func (e feeEvent) Event() *types.Event { return e.evt }

func newRateUpdatedEvent(operator crypto.Address, rateBps uint64) feeEvent {
	return feeEvent{evt: &types.Event{
		Type: EventTypeRateUpdated,
		Attributes: map[string]string{
			"operator": operator.String(),
			"rateBps":  strconv.FormatUint(rateBps, 10),
		},
	}}
}
