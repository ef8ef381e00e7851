package loan

import (
	"math/big"
	"strconv"

	"microlend/core/types"
)

const (
	EventTypeOfferCreated      = "loan.offerCreated"
	EventTypeOfferAccepted     = "loan.offerAccepted"
	EventTypeRepaymentReceived = "loan.repaymentReceived"
	EventTypeOfferRepaid       = "loan.offerRepaid"
	EventTypeOfferDefaulted    = "loan.offerDefaulted"
	EventTypeCollateralClaimed = "loan.collateralClaimed"
	EventTypeOfferCanceled     = "loan.offerCanceled"
)

type loanEvent struct {
	evt *types.Event
}

func (e loanEvent) EventType() string {
	if e.evt == nil {
		return ""
	}
	return e.evt.Type
}

func (e loanEvent) Event() *types.Event { return e.evt }

func newOfferCreatedEvent(offer *Offer) loanEvent {
	attrs := baseAttrs(offer)
	attrs["rateBps"] = strconv.FormatUint(offer.RateBps, 10)
	attrs["durationDays"] = strconv.FormatUint(offer.DurationDays, 10)
	attrs["valueUnit"] = offer.ValueUnit.String()
	return loanEvent{evt: &types.Event{Type: EventTypeOfferCreated, Attributes: attrs}}
}

func newOfferAcceptedEvent(offer *Offer, fee, disbursed *big.Int) loanEvent {
	attrs := baseAttrs(offer)
	attrs["borrower"] = offer.Borrower.String()
	attrs["fee"] = fee.String()
	attrs["disbursed"] = disbursed.String()
	attrs["remaining"] = offer.Remaining.String()
	attrs["startTime"] = strconv.FormatInt(offer.StartTime, 10)
	attrs["endTime"] = strconv.FormatInt(offer.EndTime, 10)
	return loanEvent{evt: &types.Event{Type: EventTypeOfferAccepted, Attributes: attrs}}
}

func newRepaymentEvent(offer *Offer, amount *big.Int) loanEvent {
	attrs := baseAttrs(offer)
	attrs["borrower"] = offer.Borrower.String()
	attrs["amount"] = amount.String()
	attrs["remaining"] = offer.Remaining.String()
	return loanEvent{evt: &types.Event{Type: EventTypeRepaymentReceived, Attributes: attrs}}
}

func newOfferRepaidEvent(offer *Offer) loanEvent {
	attrs := baseAttrs(offer)
	attrs["borrower"] = offer.Borrower.String()
	return loanEvent{evt: &types.Event{Type: EventTypeOfferRepaid, Attributes: attrs}}
}

func newOfferDefaultedEvent(offer *Offer) loanEvent {
	attrs := baseAttrs(offer)
	attrs["borrower"] = offer.Borrower.String()
	attrs["remaining"] = offer.Remaining.String()
	return loanEvent{evt: &types.Event{Type: EventTypeOfferDefaulted, Attributes: attrs}}
}

func newCollateralClaimedEvent(offer *Offer) loanEvent {
	attrs := baseAttrs(offer)
	attrs["borrower"] = offer.Borrower.String()
	return loanEvent{evt: &types.Event{Type: EventTypeCollateralClaimed, Attributes: attrs}}
}

func newOfferCanceledEvent(offer *Offer) loanEvent {
	return loanEvent{evt: &types.Event{Type: EventTypeOfferCanceled, Attributes: baseAttrs(offer)}}
}

func baseAttrs(offer *Offer) map[string]string {
	attrs := map[string]string{
		"offerId": strconv.FormatUint(offer.ID, 10),
		"lender":  offer.Lender.String(),
		"assetId": strconv.FormatUint(offer.AssetID, 10),
		"status":  offer.Status.String(),
	}
	if offer.Principal != nil {
		attrs["principal"] = offer.Principal.String()
	}
	return attrs
}
