package token

import (
	"errors"
	"math/big"
	"testing"

	"microlend/crypto"
)

func makeAddress(prefix string, b byte) crypto.Address {
	buf := make([]byte, 20)
	for i := range buf {
		buf[i] = b
	}
	return crypto.NewAddress(prefix, buf)
}

func newTestLedger() (*Ledger, crypto.Address) {
	issuer := makeAddress(crypto.AccountPrefix, 0x01)
	unit := makeAddress(crypto.UnitPrefix, 0xF0)
	return NewLedger(unit, issuer), issuer
}

func TestMintAndTransfer(t *testing.T) {
	ledger, issuer := newTestLedger()
	alice := makeAddress(crypto.AccountPrefix, 0x02)
	bob := makeAddress(crypto.AccountPrefix, 0x03)

	if err := ledger.Mint(alice, alice, big.NewInt(100)); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
	if err := ledger.Mint(issuer, alice, big.NewInt(100)); err != nil {
		t.Fatalf("mint failed: %v", err)
	}
	if err := ledger.Mint(issuer, alice, big.NewInt(0)); !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("expected ErrInvalidAmount, got %v", err)
	}
	if err := ledger.Mint(issuer, crypto.Address{}, big.NewInt(1)); !errors.Is(err, ErrInvalidAccount) {
		t.Fatalf("expected ErrInvalidAccount, got %v", err)
	}

	if err := ledger.Transfer(alice, bob, big.NewInt(40)); err != nil {
		t.Fatalf("transfer failed: %v", err)
	}
	if got := ledger.BalanceOf(alice); got.Cmp(big.NewInt(60)) != 0 {
		t.Fatalf("expected alice balance 60, got %s", got)
	}
	if got := ledger.BalanceOf(bob); got.Cmp(big.NewInt(40)) != 0 {
		t.Fatalf("expected bob balance 40, got %s", got)
	}
	if err := ledger.Transfer(alice, bob, big.NewInt(61)); !errors.Is(err, ErrInsufficientFunds) {
		t.Fatalf("expected ErrInsufficientFunds, got %v", err)
	}
}

func TestServiceConsumesAllowance(t *testing.T) {
	ledger, issuer := newTestLedger()
	alice := makeAddress(crypto.AccountPrefix, 0x02)
	bob := makeAddress(crypto.AccountPrefix, 0x03)
	spender := makeAddress(crypto.AccountPrefix, 0x04)
	svc := ledger.ServiceFor(spender)

	if err := ledger.Mint(issuer, alice, big.NewInt(100)); err != nil {
		t.Fatalf("mint failed: %v", err)
	}
	if err := svc.TransferFrom(alice, bob, big.NewInt(10)); !errors.Is(err, ErrInsufficientAllowance) {
		t.Fatalf("expected ErrInsufficientAllowance, got %v", err)
	}

	if err := ledger.Approve(alice, spender, big.NewInt(30)); err != nil {
		t.Fatalf("approve failed: %v", err)
	}
	if err := svc.TransferFrom(alice, bob, big.NewInt(10)); err != nil {
		t.Fatalf("transfer from failed: %v", err)
	}
	if got := svc.Allowance(alice, spender); got.Cmp(big.NewInt(20)) != 0 {
		t.Fatalf("expected remaining allowance 20, got %s", got)
	}
	if err := svc.TransferFrom(alice, bob, big.NewInt(21)); !errors.Is(err, ErrInsufficientAllowance) {
		t.Fatalf("expected ErrInsufficientAllowance, got %v", err)
	}

	// Allowance without balance still fails on funds.
	if err := ledger.Approve(bob, spender, big.NewInt(1_000)); err != nil {
		t.Fatalf("approve failed: %v", err)
	}
	if err := svc.TransferFrom(bob, alice, big.NewInt(100)); !errors.Is(err, ErrInsufficientFunds) {
		t.Fatalf("expected ErrInsufficientFunds, got %v", err)
	}
}

func TestApproveReplacesGrant(t *testing.T) {
	ledger, _ := newTestLedger()
	alice := makeAddress(crypto.AccountPrefix, 0x02)
	spender := makeAddress(crypto.AccountPrefix, 0x04)

	if err := ledger.Approve(alice, spender, big.NewInt(30)); err != nil {
		t.Fatalf("approve failed: %v", err)
	}
	if err := ledger.Approve(alice, spender, big.NewInt(5)); err != nil {
		t.Fatalf("re-approve failed: %v", err)
	}
	if got := ledger.Allowance(alice, spender); got.Cmp(big.NewInt(5)) != 0 {
		t.Fatalf("expected allowance 5, got %s", got)
	}
	// Zeroing an allowance is allowed.
	if err := ledger.Approve(alice, spender, big.NewInt(0)); err != nil {
		t.Fatalf("zero approve failed: %v", err)
	}
	if err := ledger.Approve(alice, spender, big.NewInt(-1)); !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("expected ErrInvalidAmount, got %v", err)
	}
}

func TestBalanceCopiesAreIsolated(t *testing.T) {
	ledger, issuer := newTestLedger()
	alice := makeAddress(crypto.AccountPrefix, 0x02)
	if err := ledger.Mint(issuer, alice, big.NewInt(100)); err != nil {
		t.Fatalf("mint failed: %v", err)
	}
	bal := ledger.BalanceOf(alice)
	bal.SetInt64(0)
	if got := ledger.BalanceOf(alice); got.Cmp(big.NewInt(100)) != 0 {
		t.Fatalf("caller mutation leaked into ledger state, got %s", got)
	}
}
