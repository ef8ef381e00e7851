package risk

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"microlend/core/events"
	"microlend/crypto"
)

var (
	ErrInvalidScore = errors.New("risk oracle: score must be between 0 and 100")
	ErrInvalidInput = errors.New("risk oracle: invalid input")
	ErrUnauthorized = errors.New("risk oracle: caller not authorized")
	ErrNotAssessed  = errors.New("risk oracle: no assessment on record")
)

// DefaultValiditySeconds is the 90-day window an assessment stays valid for.
const DefaultValiditySeconds int64 = 90 * 24 * 60 * 60

const (
	borrowerWeight = 60
	assetWeight    = 40
)

type oracleStore interface {
	KVGet(key []byte, out interface{}) (bool, error)
	KVPut(key []byte, value interface{}) error
}

var validityKey = []byte("risk/validitySeconds")

func borrowerScoreKey(subject crypto.Address) []byte {
	return []byte(fmt.Sprintf("risk/borrower/%x", subject.Bytes()))
}

func assetScoreKey(assetID uint64) []byte {
	return []byte(fmt.Sprintf("risk/asset/%020d", assetID))
}

func assessorKey(addr crypto.Address) []byte {
	return []byte(fmt.Sprintf("risk/assessor/%x", addr.Bytes()))
}

type storedAssessment struct {
	Score      uint64 `json:"score"`
	AssessedAt int64  `json:"assessedAt"`
}

// Oracle stores per-borrower and per-asset risk scores with a validity
// window. Scores are written by assessor-role identities; the validity period
// is admin-controlled and persisted alongside the assessments.
type Oracle struct {
	mu       sync.RWMutex
	store    oracleStore
	admin    crypto.Address
	emitter  events.Emitter
	nowFn    func() int64
	validity int64
}

func NewOracle(admin crypto.Address, store oracleStore) (*Oracle, error) {
	o := &Oracle{
		store:    store,
		admin:    admin,
		emitter:  events.NoopEmitter{},
		nowFn:    func() int64 { return time.Now().Unix() },
		validity: DefaultValiditySeconds,
	}
	var stored int64
	ok, err := store.KVGet(validityKey, &stored)
	if err != nil {
		return nil, err
	}
	if ok && stored > 0 {
		o.validity = stored
	}
	return o, nil
}

// SetEmitter configures the event emitter. Passing nil resets it to a no-op.
func (o *Oracle) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		o.emitter = events.NoopEmitter{}
		return
	}
	o.emitter = emitter
}

// SetNowFunc overrides the wall clock used for validity checks. Primarily
// leveraged in tests to provide deterministic timestamps.
func (o *Oracle) SetNowFunc(now func() int64) {
	if now == nil {
		o.nowFn = func() int64 { return time.Now().Unix() }
		return
	}
	o.nowFn = now
}

// AddAssessor authorizes an identity to record assessments. Admin only.
func (o *Oracle) AddAssessor(caller, assessor crypto.Address) error {
	return o.setAssessor(caller, assessor, true)
}

// RemoveAssessor revokes assessment authority. Admin only.
func (o *Oracle) RemoveAssessor(caller, assessor crypto.Address) error {
	return o.setAssessor(caller, assessor, false)
}

func (o *Oracle) setAssessor(caller, assessor crypto.Address, authorized bool) error {
	if !caller.Equal(o.admin) {
		return ErrUnauthorized
	}
	if assessor.IsZero() {
		return ErrInvalidInput
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.store.KVPut(assessorKey(assessor), authorized)
}

// SetBorrowerScore records a borrower assessment. Assessor role only.
func (o *Oracle) SetBorrowerScore(caller, subject crypto.Address, score uint64) error {
	if subject.IsZero() {
		return ErrInvalidInput
	}
	return o.putScore(caller, borrowerScoreKey(subject), score, func(at int64) events.Event {
		return newScoreUpdatedEvent("borrower", subject.String(), score, at)
	})
}

// SetAssetScore records an asset assessment. Assessor role only.
func (o *Oracle) SetAssetScore(caller crypto.Address, assetID uint64, score uint64) error {
	if assetID == 0 {
		return ErrInvalidInput
	}
	return o.putScore(caller, assetScoreKey(assetID), score, func(at int64) events.Event {
		return newScoreUpdatedEvent("asset", fmt.Sprintf("%d", assetID), score, at)
	})
}

func (o *Oracle) putScore(caller crypto.Address, key []byte, score uint64, evt func(int64) events.Event) error {
	if score > 100 {
		return ErrInvalidScore
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	authorized, err := o.isAssessor(caller)
	if err != nil {
		return err
	}
	if !authorized {
		return ErrUnauthorized
	}
	at := o.nowFn()
	if err := o.store.KVPut(key, &storedAssessment{Score: score, AssessedAt: at}); err != nil {
		return err
	}
	o.emitter.Emit(evt(at))
	return nil
}

// UpdateValidityPeriod replaces the validity window. Admin only; the period
// must be positive.
func (o *Oracle) UpdateValidityPeriod(caller crypto.Address, seconds int64) error {
	if !caller.Equal(o.admin) {
		return ErrUnauthorized
	}
	if seconds <= 0 {
		return ErrInvalidInput
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	if err := o.store.KVPut(validityKey, seconds); err != nil {
		return err
	}
	o.validity = seconds
	o.emitter.Emit(newValidityUpdatedEvent(seconds))
	return nil
}

// ValidityPeriod returns the configured validity window in seconds.
func (o *Oracle) ValidityPeriod() int64 {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.validity
}

// BorrowerScore returns the borrower's score and whether it is still within
// the validity window.
func (o *Oracle) BorrowerScore(subject crypto.Address) (uint64, bool, error) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.getScore(borrowerScoreKey(subject))
}

// AssetScore returns the asset's score and whether it is still valid.
func (o *Oracle) AssetScore(assetID uint64) (uint64, bool, error) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.getScore(assetScoreKey(assetID))
}

// CombinedScore weighs the borrower score at 60% and the asset score at 40%,
// truncating the result. The combination is only valid while both components
// are valid.
func (o *Oracle) CombinedScore(subject crypto.Address, assetID uint64) (uint64, bool, error) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	borrower, borrowerValid, err := o.getScore(borrowerScoreKey(subject))
	if err != nil {
		return 0, false, err
	}
	asset, assetValid, err := o.getScore(assetScoreKey(assetID))
	if err != nil {
		return 0, false, err
	}
	combined := (borrower*borrowerWeight + asset*assetWeight) / 100
	return combined, borrowerValid && assetValid, nil
}

// RecommendedMaxLTV maps a risk score onto the advisory maximum loan-to-value
// percentage. The loan ledger's hard cap does not consult this table.
func RecommendedMaxLTV(score uint64) uint64 {
	switch {
	case score >= 90:
		return 80
	case score >= 75:
		return 70
	case score >= 60:
		return 60
	case score >= 40:
		return 50
	case score >= 25:
		return 40
	default:
		return 30
	}
}

// IsAssessor reports whether the identity holds the assessor role.
func (o *Oracle) IsAssessor(addr crypto.Address) (bool, error) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.isAssessor(addr)
}

func (o *Oracle) isAssessor(addr crypto.Address) (bool, error) {
	if addr.IsZero() {
		return false, nil
	}
	var authorized bool
	ok, err := o.store.KVGet(assessorKey(addr), &authorized)
	if err != nil {
		return false, err
	}
	return ok && authorized, nil
}

func (o *Oracle) getScore(key []byte) (uint64, bool, error) {
	var stored storedAssessment
	ok, err := o.store.KVGet(key, &stored)
	if err != nil {
		return 0, false, err
	}
	if !ok {
		return 0, false, ErrNotAssessed
	}
	valid := o.nowFn()-stored.AssessedAt <= o.validity
	return stored.Score, valid, nil
}
