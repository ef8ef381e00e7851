package common

import (
	"errors"
	"testing"
)

func TestCallGuardRejectsOverlap(t *testing.T) {
	var guard CallGuard
	if err := guard.Enter(); err != nil {
		t.Fatalf("first enter failed: %v", err)
	}
	if err := guard.Enter(); !errors.Is(err, ErrReentrant) {
		t.Fatalf("expected ErrReentrant, got %v", err)
	}
	guard.Exit()
	if err := guard.Enter(); err != nil {
		t.Fatalf("enter after exit failed: %v", err)
	}
}

func TestGuardPauseView(t *testing.T) {
	pauses := NewPauseSwitch()
	if err := Guard(pauses, "loan"); err != nil {
		t.Fatalf("unpaused module should pass: %v", err)
	}
	pauses.SetPaused("loan", true)
	if err := Guard(pauses, "loan"); !errors.Is(err, ErrModulePaused) {
		t.Fatalf("expected ErrModulePaused, got %v", err)
	}
	if err := Guard(pauses, "assets"); err != nil {
		t.Fatalf("other modules stay unaffected: %v", err)
	}
	pauses.SetPaused("loan", false)
	if err := Guard(pauses, "loan"); err != nil {
		t.Fatalf("unpause should clear the guard: %v", err)
	}
	if err := Guard(nil, "loan"); err != nil {
		t.Fatalf("nil view never pauses: %v", err)
	}
}
