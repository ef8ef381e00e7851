package loan

import (
	"errors"
	"math/big"
	"time"

	"microlend/core/events"
	"microlend/crypto"
	nativecommon "microlend/native/common"
	"microlend/observability"
)

var (
	errNilState      = errors.New("loan ledger: state not configured")
	errNilRegistry   = errors.New("loan ledger: asset registry not configured")
	errNilResolver   = errors.New("loan ledger: unit resolver not configured")
	errNilFeePolicy  = errors.New("loan ledger: fee policy not configured")
	ErrInvalidInput  = errors.New("loan ledger: invalid input")
	ErrOfferNotFound = errors.New("loan ledger: offer not found")

	ErrNotOwner              = errors.New("loan ledger: lender does not own collateral asset")
	ErrNotVerified           = errors.New("loan ledger: collateral asset not verified")
	ErrAlreadyCollateralized = errors.New("loan ledger: asset already locked as collateral")
	ErrLoanExceedsLTV        = errors.New("loan ledger: principal exceeds collateral loan-to-value cap")

	ErrOfferUnavailable          = errors.New("loan ledger: offer not open for acceptance")
	ErrAlreadyAccepted           = errors.New("loan ledger: offer already accepted")
	ErrNotCollateralOwner        = errors.New("loan ledger: caller does not own collateral asset")
	ErrInsufficientFunds         = errors.New("loan ledger: lender balance below principal")
	ErrInsufficientAuthorization = errors.New("loan ledger: transfer authorization below required amount")

	ErrLoanNotActive        = errors.New("loan ledger: loan not active")
	ErrNotBorrower          = errors.New("loan ledger: caller is not the borrower")
	ErrInvalidAmount        = errors.New("loan ledger: amount must be positive")
	ErrAmountExceedsBalance = errors.New("loan ledger: amount exceeds remaining balance")

	ErrNotLender     = errors.New("loan ledger: caller is not the lender")
	ErrNotYetDue     = errors.New("loan ledger: loan deadline has not passed")
	ErrAlreadyRepaid = errors.New("loan ledger: loan already fully repaid")

	ErrLoanNotDefaulted  = errors.New("loan ledger: loan not defaulted")
	ErrCollateralClaimed = errors.New("loan ledger: collateral already claimed")

	ErrCannotCancelActive = errors.New("loan ledger: cannot cancel an active loan")
)

const moduleName = "loan"

type engineState interface {
	GetOffer(id uint64) (*Offer, bool, error)
	PutOffer(*Offer) error
	NextOfferID() (uint64, error)
}

// CollateralRegistry is the asset-registry boundary the ledger depends on.
// The lock mutations come from the registry's one-time capability, so only
// the loan ledger can toggle locks or move locked assets.
type CollateralRegistry interface {
	OwnerOf(assetID uint64) (crypto.Address, error)
	IsVerified(assetID uint64) (bool, error)
	IsLocked(assetID uint64) (bool, error)
	Value(assetID uint64) (uint64, error)
	SetLock(assetID uint64, locked bool) error
	TransferLocked(assetID uint64, from, to crypto.Address) error
}

// TransferService is the external fungible-balance ledger boundary. The loan
// ledger only ever moves funds it has been pre-authorized to move.
type TransferService interface {
	BalanceOf(account crypto.Address) *big.Int
	Allowance(owner, spender crypto.Address) *big.Int
	TransferFrom(from, to crypto.Address, amount *big.Int) error
}

// UnitResolver maps a value-transfer-unit address onto its transfer service.
type UnitResolver interface {
	Resolve(unit crypto.Address) (TransferService, error)
}

// FeePolicy yields the platform fee for a given principal.
type FeePolicy interface {
	Apply(principal *big.Int) *big.Int
}

// Engine drives the loan lifecycle state machine. Each mutating operation
// holds a non-reentrant call guard for its whole duration, including the
// external transfer-service and registry calls, so an adversarial transfer
// callback cannot observe or mutate half-applied state.
type Engine struct {
	state    engineState
	registry CollateralRegistry
	units    UnitResolver
	fees     FeePolicy
	operator crypto.Address
	// ledgerAddr is the spender identity lenders and borrowers authorize on
	// the value transfer service.
	ledgerAddr crypto.Address
	emitter    events.Emitter
	nowFn      func() int64
	guard      nativecommon.CallGuard
	pauses     nativecommon.PauseView
}

// NewEngine constructs a loan engine. The operator address receives platform
// fees; ledgerAddr is the identity transfer authorizations are granted to.
func NewEngine(operator, ledgerAddr crypto.Address) *Engine {
	return &Engine{
		operator:   operator,
		ledgerAddr: ledgerAddr,
		emitter:    events.NoopEmitter{},
		nowFn:      func() int64 { return time.Now().Unix() },
	}
}

// SetState wires the engine to the offer persistence layer.
func (e *Engine) SetState(state engineState) { e.state = state }

// SetRegistry wires the collateral registry boundary.
func (e *Engine) SetRegistry(registry CollateralRegistry) { e.registry = registry }

// SetUnitResolver wires the value-transfer-unit resolver.
func (e *Engine) SetUnitResolver(resolver UnitResolver) { e.units = resolver }

// SetFeePolicy wires the platform fee policy.
func (e *Engine) SetFeePolicy(policy FeePolicy) { e.fees = policy }

// SetPauses wires the module pause switches.
func (e *Engine) SetPauses(p nativecommon.PauseView) { e.pauses = p }

// SetEmitter configures the event emitter. Passing nil resets it to a no-op.
func (e *Engine) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		e.emitter = events.NoopEmitter{}
		return
	}
	e.emitter = emitter
}

// SetNowFunc overrides the time source. Primarily intended for tests.
func (e *Engine) SetNowFunc(now func() int64) {
	if now == nil {
		e.nowFn = func() int64 { return time.Now().Unix() }
		return
	}
	e.nowFn = now
}

// LedgerAddress returns the spender identity of this ledger instance.
func (e *Engine) LedgerAddress() crypto.Address { return e.ledgerAddr }

// GetOffer returns a copy of the offer record.
func (e *Engine) GetOffer(id uint64) (*Offer, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	offer, ok, err := e.state.GetOffer(id)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrOfferNotFound
	}
	return offer.Clone(), nil
}

// CreateOffer registers a loan offer against a verified, unlocked asset the
// lender owns and locks the asset as collateral. The principal must not
// exceed 70% of the asset's declared value.
func (e *Engine) CreateOffer(lender crypto.Address, principal *big.Int, rateBps, durationDays uint64, assetID uint64, valueUnit crypto.Address) (id uint64, err error) {
	defer func() {
		if err != nil {
			observability.Metrics().RecordRejection(moduleName, "createOffer")
		}
	}()
	if err := e.guard.Enter(); err != nil {
		return 0, err
	}
	defer e.guard.Exit()
	if err := e.checkWiring(); err != nil {
		return 0, err
	}
	if err := nativecommon.Guard(e.pauses, moduleName); err != nil {
		return 0, err
	}
	if lender.IsZero() || valueUnit.IsZero() {
		return 0, ErrInvalidInput
	}
	if principal == nil || principal.Sign() <= 0 || rateBps == 0 || durationDays == 0 {
		return 0, ErrInvalidInput
	}

	owner, err := e.registry.OwnerOf(assetID)
	if err != nil {
		return 0, err
	}
	if !lender.Equal(owner) {
		return 0, ErrNotOwner
	}
	verified, err := e.registry.IsVerified(assetID)
	if err != nil {
		return 0, err
	}
	if !verified {
		return 0, ErrNotVerified
	}
	locked, err := e.registry.IsLocked(assetID)
	if err != nil {
		return 0, err
	}
	if locked {
		return 0, ErrAlreadyCollateralized
	}
	value, err := e.registry.Value(assetID)
	if err != nil {
		return 0, err
	}
	if principal.Cmp(MaxPrincipal(value)) > 0 {
		return 0, ErrLoanExceedsLTV
	}

	id, err = e.state.NextOfferID()
	if err != nil {
		return 0, err
	}
	offer := &Offer{
		ID:           id,
		Lender:       lender,
		Principal:    new(big.Int).Set(principal),
		RateBps:      rateBps,
		DurationDays: durationDays,
		ValueUnit:    valueUnit,
		Status:       StatusOffered,
		AssetID:      assetID,
		CreatedAt:    e.nowFn(),
	}
	if err := e.registry.SetLock(assetID, true); err != nil {
		return 0, err
	}
	if err := e.state.PutOffer(offer); err != nil {
		// Roll the lock back; the offer was never registered.
		_ = e.registry.SetLock(assetID, false)
		return 0, err
	}
	e.emitter.Emit(newOfferCreatedEvent(offer))
	return id, nil
}

// AcceptOffer activates an offer. The caller must be the collateral asset's
// current owner, re-checked here because ownership may have changed since
// offer creation. Principal minus fee moves lender to caller, the fee moves
// lender to operator, and the total owed becomes principal plus simple
// interest. A transfer failure leaves every ledger field unmodified.
func (e *Engine) AcceptOffer(offerID uint64, caller crypto.Address) (err error) {
	defer func() {
		if err != nil {
			observability.Metrics().RecordRejection(moduleName, "acceptOffer")
		}
	}()
	if err := e.guard.Enter(); err != nil {
		return err
	}
	defer e.guard.Exit()
	if err := e.checkWiring(); err != nil {
		return err
	}
	if err := nativecommon.Guard(e.pauses, moduleName); err != nil {
		return err
	}

	offer, ok, err := e.state.GetOffer(offerID)
	if err != nil {
		return err
	}
	if !ok {
		return ErrOfferNotFound
	}
	if offer.Status != StatusOffered {
		return ErrOfferUnavailable
	}
	if !offer.Borrower.IsZero() {
		return ErrAlreadyAccepted
	}
	owner, err := e.registry.OwnerOf(offer.AssetID)
	if err != nil {
		return err
	}
	if !caller.Equal(owner) {
		return ErrNotCollateralOwner
	}

	svc, err := e.units.Resolve(offer.ValueUnit)
	if err != nil {
		return err
	}
	if svc.BalanceOf(offer.Lender).Cmp(offer.Principal) < 0 {
		return ErrInsufficientFunds
	}
	if svc.Allowance(offer.Lender, e.ledgerAddr).Cmp(offer.Principal) < 0 {
		return ErrInsufficientAuthorization
	}

	fee := e.fees.Apply(offer.Principal)
	disbursed := new(big.Int).Sub(offer.Principal, fee)
	// Two separate pulls against the lender's authorization. A failure on
	// the fee leg leaves the disbursement already moved; the offer record
	// is untouched until both settle.
	if err := svc.TransferFrom(offer.Lender, caller, disbursed); err != nil {
		return err
	}
	if fee.Sign() > 0 {
		if err := svc.TransferFrom(offer.Lender, e.operator, fee); err != nil {
			return err
		}
	}

	now := e.nowFn()
	interest := Interest(offer.Principal, offer.RateBps, offer.DurationDays)
	offer.Borrower = caller
	offer.Status = StatusActive
	offer.StartTime = now
	offer.EndTime = now + int64(offer.DurationDays)*secondsPerDay
	offer.Remaining = new(big.Int).Add(offer.Principal, interest)
	if err := e.state.PutOffer(offer); err != nil {
		return err
	}
	e.emitter.Emit(newOfferAcceptedEvent(offer, fee, disbursed))
	return nil
}

// Repay moves amount from the borrower to the lender and decrements the
// remaining balance. Reaching exactly zero is the only path to Repaid and
// unlocks the collateral.
func (e *Engine) Repay(offerID uint64, caller crypto.Address, amount *big.Int) (err error) {
	defer func() {
		if err != nil {
			observability.Metrics().RecordRejection(moduleName, "repay")
		}
	}()
	if err := e.guard.Enter(); err != nil {
		return err
	}
	defer e.guard.Exit()
	if err := e.checkWiring(); err != nil {
		return err
	}
	if err := nativecommon.Guard(e.pauses, moduleName); err != nil {
		return err
	}

	offer, ok, err := e.state.GetOffer(offerID)
	if err != nil {
		return err
	}
	if !ok {
		return ErrOfferNotFound
	}
	if offer.Status != StatusActive {
		return ErrLoanNotActive
	}
	if !caller.Equal(offer.Borrower) {
		return ErrNotBorrower
	}
	if amount == nil || amount.Sign() <= 0 {
		return ErrInvalidAmount
	}
	if amount.Cmp(offer.Remaining) > 0 {
		return ErrAmountExceedsBalance
	}

	svc, err := e.units.Resolve(offer.ValueUnit)
	if err != nil {
		return err
	}
	if svc.Allowance(caller, e.ledgerAddr).Cmp(amount) < 0 {
		return ErrInsufficientAuthorization
	}
	if err := svc.TransferFrom(caller, offer.Lender, amount); err != nil {
		return err
	}

	offer.Remaining = new(big.Int).Sub(offer.Remaining, amount)
	settled := offer.Remaining.Sign() == 0
	if settled {
		offer.Status = StatusRepaid
		if err := e.registry.SetLock(offer.AssetID, false); err != nil {
			return err
		}
	}
	if err := e.state.PutOffer(offer); err != nil {
		if settled {
			// Re-lock so ledger and registry stay consistent.
			_ = e.registry.SetLock(offer.AssetID, true)
		}
		return err
	}
	e.emitter.Emit(newRepaymentEvent(offer, amount))
	if settled {
		e.emitter.Emit(newOfferRepaidEvent(offer))
	}
	return nil
}

// DeclareDefault marks an overdue active loan as defaulted. No funds or
// collateral move; default only makes the collateral claimable.
func (e *Engine) DeclareDefault(offerID uint64, caller crypto.Address) (err error) {
	defer func() {
		if err != nil {
			observability.Metrics().RecordRejection(moduleName, "declareDefault")
		}
	}()
	if err := e.guard.Enter(); err != nil {
		return err
	}
	defer e.guard.Exit()
	if err := e.checkWiring(); err != nil {
		return err
	}
	if err := nativecommon.Guard(e.pauses, moduleName); err != nil {
		return err
	}

	offer, ok, err := e.state.GetOffer(offerID)
	if err != nil {
		return err
	}
	if !ok {
		return ErrOfferNotFound
	}
	if offer.Status != StatusActive {
		return ErrLoanNotActive
	}
	if !caller.Equal(offer.Lender) {
		return ErrNotLender
	}
	if offer.Remaining == nil || offer.Remaining.Sign() == 0 {
		return ErrAlreadyRepaid
	}
	if e.nowFn() <= offer.EndTime {
		return ErrNotYetDue
	}

	offer.Status = StatusDefaulted
	if err := e.state.PutOffer(offer); err != nil {
		return err
	}
	e.emitter.Emit(newOfferDefaultedEvent(offer))
	return nil
}

// ClaimCollateral moves the locked asset from the defaulted borrower to the
// lender through the registry's locked-transfer path. The lock flag stays
// true afterwards; the record is settled and accepts no further action.
func (e *Engine) ClaimCollateral(offerID uint64, caller crypto.Address) (err error) {
	defer func() {
		if err != nil {
			observability.Metrics().RecordRejection(moduleName, "claimCollateral")
		}
	}()
	if err := e.guard.Enter(); err != nil {
		return err
	}
	defer e.guard.Exit()
	if err := e.checkWiring(); err != nil {
		return err
	}
	if err := nativecommon.Guard(e.pauses, moduleName); err != nil {
		return err
	}

	offer, ok, err := e.state.GetOffer(offerID)
	if err != nil {
		return err
	}
	if !ok {
		return ErrOfferNotFound
	}
	if offer.Status != StatusDefaulted {
		return ErrLoanNotDefaulted
	}
	if !caller.Equal(offer.Lender) {
		return ErrNotLender
	}
	if offer.CollateralClaimed {
		return ErrCollateralClaimed
	}

	if err := e.registry.TransferLocked(offer.AssetID, offer.Borrower, offer.Lender); err != nil {
		return err
	}
	offer.CollateralClaimed = true
	if err := e.state.PutOffer(offer); err != nil {
		return err
	}
	e.emitter.Emit(newCollateralClaimedEvent(offer))
	return nil
}

// CancelOffer withdraws an unaccepted offer and unlocks the collateral.
func (e *Engine) CancelOffer(offerID uint64, caller crypto.Address) (err error) {
	defer func() {
		if err != nil {
			observability.Metrics().RecordRejection(moduleName, "cancelOffer")
		}
	}()
	if err := e.guard.Enter(); err != nil {
		return err
	}
	defer e.guard.Exit()
	if err := e.checkWiring(); err != nil {
		return err
	}
	if err := nativecommon.Guard(e.pauses, moduleName); err != nil {
		return err
	}

	offer, ok, err := e.state.GetOffer(offerID)
	if err != nil {
		return err
	}
	if !ok {
		return ErrOfferNotFound
	}
	switch offer.Status {
	case StatusOffered:
	case StatusActive:
		return ErrCannotCancelActive
	default:
		return ErrOfferUnavailable
	}
	if !caller.Equal(offer.Lender) {
		return ErrNotLender
	}
	if !offer.Borrower.IsZero() {
		return ErrAlreadyAccepted
	}

	if err := e.registry.SetLock(offer.AssetID, false); err != nil {
		return err
	}
	offer.Status = StatusCanceled
	if err := e.state.PutOffer(offer); err != nil {
		// Re-lock so ledger and registry stay consistent.
		_ = e.registry.SetLock(offer.AssetID, true)
		return err
	}
	e.emitter.Emit(newOfferCanceledEvent(offer))
	return nil
}

func (e *Engine) checkWiring() error {
	if e == nil || e.state == nil {
		return errNilState
	}
	if e.registry == nil {
		return errNilRegistry
	}
	if e.units == nil {
		return errNilResolver
	}
	if e.fees == nil {
		return errNilFeePolicy
	}
	return nil
}
