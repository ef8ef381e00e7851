package assets

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"microlend/core/events"
	"microlend/crypto"
)

var (
	ErrInvalidInput     = errors.New("asset registry: invalid input")
	ErrUnauthorized     = errors.New("asset registry: caller not authorized")
	ErrNotFound         = errors.New("asset registry: asset not found")
	ErrAlreadyVerified  = errors.New("asset registry: asset already verified")
	ErrCollateralLocked = errors.New("asset registry: asset is locked as collateral")
	ErrNotLocked        = errors.New("asset registry: asset is not locked")
	ErrNotOwner         = errors.New("asset registry: caller does not own asset")
	ErrAuthorityIssued  = errors.New("asset registry: lock authority already issued")
)

type registryStore interface {
	KVGet(key []byte, out interface{}) (bool, error)
	KVPut(key []byte, value interface{}) error
}

var nextAssetIDKey = []byte("assets/nextId")

func assetKey(id uint64) []byte {
	return []byte(fmt.Sprintf("assets/record/%020d", id))
}

func verifierKey(addr crypto.Address) []byte {
	return []byte(fmt.Sprintf("assets/verifier/%x", addr.Bytes()))
}

// Registry owns asset records: declared value, verification flag and the
// collateral-lock flag. Lock mutations and the locked-transfer path are only
// reachable through the LockAuthority capability, which the loan ledger holds.
type Registry struct {
	mu       sync.RWMutex
	store    registryStore
	operator crypto.Address
	emitter  events.Emitter
	nowFn    func() int64
	issued   bool
}

func NewRegistry(operator crypto.Address, store registryStore) *Registry {
	return &Registry{
		store:    store,
		operator: operator,
		emitter:  events.NoopEmitter{},
		nowFn:    func() int64 { return time.Now().Unix() },
	}
}

// SetEmitter configures the event emitter. Passing nil resets it to a no-op.
func (r *Registry) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		r.emitter = events.NoopEmitter{}
		return
	}
	r.emitter = emitter
}

// SetNowFunc overrides the time source. Primarily intended for tests.
func (r *Registry) SetNowFunc(now func() int64) {
	if now == nil {
		r.nowFn = func() int64 { return time.Now().Unix() }
		return
	}
	r.nowFn = now
}

// IssueLockAuthority hands out the one and only capability permitted to toggle
// collateral locks and execute locked transfers. A second issuance fails, so
// ambient callers can never reach the lock paths.
func (r *Registry) IssueLockAuthority() (*LockAuthority, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.issued {
		return nil, ErrAuthorityIssued
	}
	r.issued = true
	return &LockAuthority{registry: r}, nil
}

// Tokenize creates a new asset record. The declared value and owner are fixed
// at creation; verification and lock flags start false.
func (r *Registry) Tokenize(owner crypto.Address, value uint64, location, metadataRef string) (uint64, error) {
	if owner.IsZero() || value == 0 {
		return 0, ErrInvalidInput
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	id, err := r.nextID()
	if err != nil {
		return 0, err
	}
	record := &AssetRecord{
		ID:             id,
		Owner:          owner,
		DeclaredValue:  value,
		Location:       location,
		MetadataRef:    metadataRef,
		MetadataDigest: MetadataDigest(location, metadataRef),
		CreatedAt:      r.nowFn(),
	}
	if err := r.putRecord(record); err != nil {
		return 0, err
	}
	r.emitter.Emit(newTokenizedEvent(record))
	return id, nil
}

// AddVerifier authorizes an identity to verify assets. Operator only.
func (r *Registry) AddVerifier(caller, verifier crypto.Address) error {
	return r.setVerifier(caller, verifier, true)
}

// RemoveVerifier revokes verification authority. Operator only.
func (r *Registry) RemoveVerifier(caller, verifier crypto.Address) error {
	return r.setVerifier(caller, verifier, false)
}

func (r *Registry) setVerifier(caller, verifier crypto.Address, authorized bool) error {
	if !caller.Equal(r.operator) {
		return ErrUnauthorized
	}
	if verifier.IsZero() {
		return ErrInvalidInput
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.store.KVPut(verifierKey(verifier), authorized)
}

// Verify flips the verification flag. One-way; only authorized verifiers may
// call it.
func (r *Registry) Verify(caller crypto.Address, assetID uint64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	authorized, err := r.isVerifier(caller)
	if err != nil {
		return err
	}
	if !authorized {
		return ErrUnauthorized
	}
	record, err := r.getRecord(assetID)
	if err != nil {
		return err
	}
	if record.Verified {
		return ErrAlreadyVerified
	}
	record.Verified = true
	if err := r.putRecord(record); err != nil {
		return err
	}
	r.emitter.Emit(newVerifiedEvent(record, caller))
	return nil
}

// UpdateValue replaces the declared value. The caller must be the current
// owner or a verifier, and the asset must not be locked as collateral.
func (r *Registry) UpdateValue(caller crypto.Address, assetID uint64, newValue uint64) error {
	if newValue == 0 {
		return ErrInvalidInput
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	record, err := r.getRecord(assetID)
	if err != nil {
		return err
	}
	if !caller.Equal(record.Owner) {
		authorized, err := r.isVerifier(caller)
		if err != nil {
			return err
		}
		if !authorized {
			return ErrUnauthorized
		}
	}
	if record.Locked {
		return ErrCollateralLocked
	}
	record.DeclaredValue = newValue
	if err := r.putRecord(record); err != nil {
		return err
	}
	r.emitter.Emit(newValueUpdatedEvent(record, caller))
	return nil
}

// Transfer moves ownership through the normal path, which is blocked for the
// whole time an asset backs a loan.
func (r *Registry) Transfer(caller crypto.Address, assetID uint64, to crypto.Address) error {
	if to.IsZero() {
		return ErrInvalidInput
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	record, err := r.getRecord(assetID)
	if err != nil {
		return err
	}
	if !caller.Equal(record.Owner) {
		return ErrNotOwner
	}
	if record.Locked {
		return ErrCollateralLocked
	}
	from := record.Owner
	record.Owner = to
	if err := r.putRecord(record); err != nil {
		return err
	}
	r.emitter.Emit(newTransferredEvent(record, from, false))
	return nil
}

// Get returns a copy of the asset record.
func (r *Registry) Get(assetID uint64) (*AssetRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	record, err := r.getRecord(assetID)
	if err != nil {
		return nil, err
	}
	return record.Clone(), nil
}

// OwnerOf returns the asset's current owner.
func (r *Registry) OwnerOf(assetID uint64) (crypto.Address, error) {
	record, err := r.Get(assetID)
	if err != nil {
		return crypto.Address{}, err
	}
	return record.Owner, nil
}

// Value returns the asset's declared value.
func (r *Registry) Value(assetID uint64) (uint64, error) {
	record, err := r.Get(assetID)
	if err != nil {
		return 0, err
	}
	return record.DeclaredValue, nil
}

// IsVerified reports the verification flag.
func (r *Registry) IsVerified(assetID uint64) (bool, error) {
	record, err := r.Get(assetID)
	if err != nil {
		return false, err
	}
	return record.Verified, nil
}

// IsLocked reports the collateral-lock flag.
func (r *Registry) IsLocked(assetID uint64) (bool, error) {
	record, err := r.Get(assetID)
	if err != nil {
		return false, err
	}
	return record.Locked, nil
}

// IsVerifier reports whether the identity is an authorized verifier.
func (r *Registry) IsVerifier(addr crypto.Address) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.isVerifier(addr)
}

// LockAuthority is the capability handle over the collateral-lock paths. The
// registry issues exactly one; the loan ledger is its intended holder.
type LockAuthority struct {
	registry *Registry
}

// SetLock toggles the collateral-lock flag.
func (a *LockAuthority) SetLock(assetID uint64, locked bool) error {
	r := a.registry
	r.mu.Lock()
	defer r.mu.Unlock()
	record, err := r.getRecord(assetID)
	if err != nil {
		return err
	}
	if record.Locked == locked {
		return nil
	}
	record.Locked = locked
	if err := r.putRecord(record); err != nil {
		return err
	}
	r.emitter.Emit(newLockChangedEvent(record))
	return nil
}

// TransferLocked moves a locked asset from the defaulted borrower to the
// lender. It is the only transfer path that works while the lock flag is set.
func (a *LockAuthority) TransferLocked(assetID uint64, from, to crypto.Address) error {
	if to.IsZero() {
		return ErrInvalidInput
	}
	r := a.registry
	r.mu.Lock()
	defer r.mu.Unlock()
	record, err := r.getRecord(assetID)
	if err != nil {
		return err
	}
	if !record.Locked {
		return ErrNotLocked
	}
	if !from.Equal(record.Owner) {
		return ErrNotOwner
	}
	record.Owner = to
	if err := r.putRecord(record); err != nil {
		return err
	}
	r.emitter.Emit(newTransferredEvent(record, from, true))
	return nil
}

func (r *Registry) isVerifier(addr crypto.Address) (bool, error) {
	if addr.IsZero() {
		return false, nil
	}
	var authorized bool
	ok, err := r.store.KVGet(verifierKey(addr), &authorized)
	if err != nil {
		return false, err
	}
	return ok && authorized, nil
}

func (r *Registry) getRecord(assetID uint64) (*AssetRecord, error) {
	var stored storedAssetRecord
	ok, err := r.store.KVGet(assetKey(assetID), &stored)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrNotFound
	}
	return fromStored(&stored), nil
}

func (r *Registry) putRecord(record *AssetRecord) error {
	return r.store.KVPut(assetKey(record.ID), toStored(record))
}

func (r *Registry) nextID() (uint64, error) {
	var next uint64
	ok, err := r.store.KVGet(nextAssetIDKey, &next)
	if err != nil {
		return 0, err
	}
	if !ok {
		next = 1
	}
	if err := r.store.KVPut(nextAssetIDKey, next+1); err != nil {
		return 0, err
	}
	return next, nil
}
