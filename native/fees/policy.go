package fees

import (
	"errors"
	"math/big"
	"sync"

	"microlend/core/events"
	"microlend/crypto"
)

var (
	// ErrFeeTooHigh rejects platform fee rates above the 10% ceiling.
	ErrFeeTooHigh = errors.New("fees: rate exceeds maximum")
	// ErrUnauthorized rejects rate changes from anyone but the operator.
	ErrUnauthorized = errors.New("fees: caller is not the platform operator")
)

const (
	// MaxRateBps caps the platform fee at 10%.
	MaxRateBps uint64 = 1_000
	// DefaultRateBps is the 1% rate applied until the operator configures
	// another one.
	DefaultRateBps uint64 = 100
)

var basisPoints = big.NewInt(10_000)

// Fee computes floor(principal x rateBps / 10000).
func Fee(principal *big.Int, rateBps uint64) *big.Int {
	if principal == nil || principal.Sign() <= 0 || rateBps == 0 {
		return big.NewInt(0)
	}
	fee := new(big.Int).Mul(principal, new(big.Int).SetUint64(rateBps))
	return fee.Quo(fee, basisPoints)
}

type policyStore interface {
	KVGet(key []byte, out interface{}) (bool, error)
	KVPut(key []byte, value interface{}) error
}

var rateKey = []byte("fees/rateBps")

// Policy owns the process-wide platform fee rate. The rate is persisted so a
// restart observes the operator's last configuration.
type Policy struct {
	mu       sync.RWMutex
	operator crypto.Address
	store    policyStore
	rateBps  uint64
	emitter  events.Emitter
}

// NewPolicy loads the persisted rate when present and falls back to the
// default otherwise.
func NewPolicy(operator crypto.Address, store policyStore) (*Policy, error) {
	p := &Policy{
		operator: operator,
		store:    store,
		rateBps:  DefaultRateBps,
		emitter:  events.NoopEmitter{},
	}
	if store != nil {
		var stored uint64
		ok, err := store.KVGet(rateKey, &stored)
		if err != nil {
			return nil, err
		}
		if ok {
			if stored > MaxRateBps {
				return nil, ErrFeeTooHigh
			}
			p.rateBps = stored
		}
	}
	return p, nil
}

// SetEmitter configures the event emitter. Passing nil resets it to a no-op.
func (p *Policy) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		p.emitter = events.NoopEmitter{}
		return
	}
	p.emitter = emitter
}

// RateBps returns the currently configured platform fee rate.
func (p *Policy) RateBps() uint64 {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.rateBps
}

// SetRate updates the platform fee rate. Only the operator may call it, and
// rates above MaxRateBps are rejected.
func (p *Policy) SetRate(caller crypto.Address, rateBps uint64) error {
	if !caller.Equal(p.operator) {
		return ErrUnauthorized
	}
	if rateBps > MaxRateBps {
		return ErrFeeTooHigh
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.store != nil {
		if err := p.store.KVPut(rateKey, rateBps); err != nil {
			return err
		}
	}
	p.rateBps = rateBps
	p.emitter.Emit(newRateUpdatedEvent(caller, rateBps))
	return nil
}

// Apply computes the fee for the supplied principal under the current rate.
func (p *Policy) Apply(principal *big.Int) *big.Int {
	return Fee(principal, p.RateBps())
}
