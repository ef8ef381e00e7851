package token

import (
	"errors"
	"math/big"
	"sync"

	"microlend/crypto"
)

var (
	ErrInvalidAmount         = errors.New("token ledger: amount must be positive")
	ErrInsufficientFunds     = errors.New("token ledger: insufficient balance")
	ErrInsufficientAllowance = errors.New("token ledger: insufficient allowance")
	ErrUnauthorized          = errors.New("token ledger: caller not authorized")
	ErrInvalidAccount        = errors.New("token ledger: null account")
)

// Ledger is an in-memory fungible-balance ledger: the stablecoin the
// marketplace settles in. The loan ledger only ever moves funds through
// pre-authorized pull transfers, so the full surface (mint, approve, direct
// transfer) stays outside the loan engine's view.
type Ledger struct {
	mu         sync.RWMutex
	unit       crypto.Address
	issuer     crypto.Address
	balances   map[string]*big.Int
	allowances map[string]map[string]*big.Int
}

func NewLedger(unit, issuer crypto.Address) *Ledger {
	return &Ledger{
		unit:       unit,
		issuer:     issuer,
		balances:   make(map[string]*big.Int),
		allowances: make(map[string]map[string]*big.Int),
	}
}

// Unit returns the value-transfer-unit address identifying this ledger.
func (l *Ledger) Unit() crypto.Address { return l.unit }

// Mint credits freshly issued units to an account. Issuer only.
func (l *Ledger) Mint(caller, to crypto.Address, amount *big.Int) error {
	if !caller.Equal(l.issuer) {
		return ErrUnauthorized
	}
	if to.IsZero() {
		return ErrInvalidAccount
	}
	if amount == nil || amount.Sign() <= 0 {
		return ErrInvalidAmount
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.credit(to, amount)
	return nil
}

// BalanceOf returns a copy of the account balance.
func (l *Ledger) BalanceOf(account crypto.Address) *big.Int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if bal, ok := l.balances[key(account)]; ok {
		return new(big.Int).Set(bal)
	}
	return big.NewInt(0)
}

// Allowance returns the amount spender may pull from owner.
func (l *Ledger) Allowance(owner, spender crypto.Address) *big.Int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if grants, ok := l.allowances[key(owner)]; ok {
		if allowed, ok := grants[key(spender)]; ok {
			return new(big.Int).Set(allowed)
		}
	}
	return big.NewInt(0)
}

// Approve grants spender authorization to pull up to amount from the caller.
func (l *Ledger) Approve(caller, spender crypto.Address, amount *big.Int) error {
	if spender.IsZero() {
		return ErrInvalidAccount
	}
	if amount == nil || amount.Sign() < 0 {
		return ErrInvalidAmount
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	grants, ok := l.allowances[key(caller)]
	if !ok {
		grants = make(map[string]*big.Int)
		l.allowances[key(caller)] = grants
	}
	grants[key(spender)] = new(big.Int).Set(amount)
	return nil
}

// Transfer moves funds directly from the caller to another account.
func (l *Ledger) Transfer(caller, to crypto.Address, amount *big.Int) error {
	if to.IsZero() {
		return ErrInvalidAccount
	}
	if amount == nil || amount.Sign() <= 0 {
		return ErrInvalidAmount
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.move(caller, to, amount)
}

// transferFrom pulls amount from `from` to `to` on behalf of spender,
// consuming spender's allowance.
func (l *Ledger) transferFrom(spender, from, to crypto.Address, amount *big.Int) error {
	if to.IsZero() {
		return ErrInvalidAccount
	}
	if amount == nil || amount.Sign() <= 0 {
		return ErrInvalidAmount
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	grants, ok := l.allowances[key(from)]
	if !ok {
		return ErrInsufficientAllowance
	}
	allowed, ok := grants[key(spender)]
	if !ok || allowed.Cmp(amount) < 0 {
		return ErrInsufficientAllowance
	}
	if err := l.move(from, to, amount); err != nil {
		return err
	}
	grants[key(spender)] = new(big.Int).Sub(allowed, amount)
	return nil
}

func (l *Ledger) move(from, to crypto.Address, amount *big.Int) error {
	bal, ok := l.balances[key(from)]
	if !ok || bal.Cmp(amount) < 0 {
		return ErrInsufficientFunds
	}
	l.balances[key(from)] = new(big.Int).Sub(bal, amount)
	l.credit(to, amount)
	return nil
}

func (l *Ledger) credit(to crypto.Address, amount *big.Int) {
	if bal, ok := l.balances[key(to)]; ok {
		l.balances[key(to)] = new(big.Int).Add(bal, amount)
		return
	}
	l.balances[key(to)] = new(big.Int).Set(amount)
}

func key(addr crypto.Address) string {
	return string(addr.Bytes())
}

// Service is the spender-bound view handed to the loan ledger: balanceOf,
// allowance and pre-authorized pull transfers, nothing else.
type Service struct {
	ledger  *Ledger
	spender crypto.Address
}

// ServiceFor binds the ledger to a spender identity. TransferFrom calls made
// through the returned view consume allowances granted to that spender.
func (l *Ledger) ServiceFor(spender crypto.Address) *Service {
	return &Service{ledger: l, spender: spender}
}

func (s *Service) BalanceOf(account crypto.Address) *big.Int {
	return s.ledger.BalanceOf(account)
}

func (s *Service) Allowance(owner, spender crypto.Address) *big.Int {
	return s.ledger.Allowance(owner, spender)
}

func (s *Service) TransferFrom(from, to crypto.Address, amount *big.Int) error {
	return s.ledger.transferFrom(s.spender, from, to, amount)
}
