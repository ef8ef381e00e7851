package loan

import (
	"math/big"

	"microlend/crypto"
)

// Status enumerates the loan lifecycle states.
type Status uint8

const (
	StatusOffered Status = iota
	StatusActive
	StatusRepaid
	StatusDefaulted
	StatusCanceled
)

// Valid reports whether the status value is within the supported range.
func (s Status) Valid() bool {
	switch s {
	case StatusOffered, StatusActive, StatusRepaid, StatusDefaulted, StatusCanceled:
		return true
	default:
		return false
	}
}

func (s Status) String() string {
	switch s {
	case StatusOffered:
		return "offered"
	case StatusActive:
		return "active"
	case StatusRepaid:
		return "repaid"
	case StatusDefaulted:
		return "defaulted"
	case StatusCanceled:
		return "canceled"
	default:
		return "unknown"
	}
}

// Offer is a single loan-offer record. Identifiers are monotonically assigned
// and never reused. Borrower, start/end and the remaining balance stay unset
// until acceptance.
type Offer struct {
	ID           uint64
	Lender       crypto.Address
	Principal    *big.Int
	RateBps      uint64
	DurationDays uint64
	ValueUnit    crypto.Address
	Status       Status
	AssetID      uint64
	Borrower     crypto.Address
	StartTime    int64
	EndTime      int64
	Remaining    *big.Int
	// CollateralClaimed marks a defaulted offer as settled after the lender
	// claims the collateral; a settled record accepts no further action.
	CollateralClaimed bool
	CreatedAt         int64
}

// Clone returns a deep copy so callers can safely mutate the copy without
// affecting the stored instance.
func (o *Offer) Clone() *Offer {
	if o == nil {
		return nil
	}
	clone := *o
	if o.Principal != nil {
		clone.Principal = new(big.Int).Set(o.Principal)
	}
	if o.Remaining != nil {
		clone.Remaining = new(big.Int).Set(o.Remaining)
	}
	return &clone
}

type storedOffer struct {
	ID                uint64 `json:"id"`
	Lender            []byte `json:"lender"`
	Principal         string `json:"principal"`
	RateBps           uint64 `json:"rateBps"`
	DurationDays      uint64 `json:"durationDays"`
	ValueUnit         []byte `json:"valueUnit"`
	Status            uint8  `json:"status"`
	AssetID           uint64 `json:"assetId"`
	Borrower          []byte `json:"borrower,omitempty"`
	StartTime         int64  `json:"startTime,omitempty"`
	EndTime           int64  `json:"endTime,omitempty"`
	Remaining         string `json:"remaining,omitempty"`
	CollateralClaimed bool   `json:"collateralClaimed,omitempty"`
	CreatedAt         int64  `json:"createdAt"`
}

func toStored(o *Offer) *storedOffer {
	stored := &storedOffer{
		ID:                o.ID,
		Lender:            append([]byte(nil), o.Lender.Bytes()...),
		RateBps:           o.RateBps,
		DurationDays:      o.DurationDays,
		ValueUnit:         append([]byte(nil), o.ValueUnit.Bytes()...),
		Status:            uint8(o.Status),
		AssetID:           o.AssetID,
		StartTime:         o.StartTime,
		EndTime:           o.EndTime,
		CollateralClaimed: o.CollateralClaimed,
		CreatedAt:         o.CreatedAt,
	}
	if o.Principal != nil {
		stored.Principal = o.Principal.String()
	}
	if !o.Borrower.IsZero() {
		stored.Borrower = append([]byte(nil), o.Borrower.Bytes()...)
	}
	if o.Remaining != nil {
		stored.Remaining = o.Remaining.String()
	}
	return stored
}

func fromStored(s *storedOffer) *Offer {
	offer := &Offer{
		ID:                s.ID,
		Lender:            crypto.NewAddress(crypto.AccountPrefix, append([]byte(nil), s.Lender...)),
		RateBps:           s.RateBps,
		DurationDays:      s.DurationDays,
		ValueUnit:         crypto.NewAddress(crypto.UnitPrefix, append([]byte(nil), s.ValueUnit...)),
		Status:            Status(s.Status),
		AssetID:           s.AssetID,
		StartTime:         s.StartTime,
		EndTime:           s.EndTime,
		CollateralClaimed: s.CollateralClaimed,
		CreatedAt:         s.CreatedAt,
	}
	if s.Principal != "" {
		offer.Principal, _ = new(big.Int).SetString(s.Principal, 10)
	}
	if len(s.Borrower) == 20 {
		offer.Borrower = crypto.NewAddress(crypto.AccountPrefix, append([]byte(nil), s.Borrower...))
	}
	if s.Remaining != "" {
		offer.Remaining, _ = new(big.Int).SetString(s.Remaining, 10)
	}
	return offer
}
