package common

import (
	"errors"
	"sync"
	"sync/atomic"
)

var (
	// ErrReentrant rejects a mutating call that overlaps an in-flight
	// mutating call on the same ledger, including callback chains through
	// external collaborators.
	ErrReentrant = errors.New("reentrant call rejected")

	ErrModulePaused = errors.New("module paused")
)

// CallGuard is a non-blocking execution barrier. A mutating operation holds
// the guard for its entire duration; any overlapping entry is rejected rather
// than queued, so a transfer callback can never re-enter the ledger while its
// own state writes are pending.
type CallGuard struct {
	busy atomic.Bool
}

// Enter acquires the guard or fails with ErrReentrant.
func (g *CallGuard) Enter() error {
	if !g.busy.CompareAndSwap(false, true) {
		return ErrReentrant
	}
	return nil
}

// Exit releases the guard.
func (g *CallGuard) Exit() {
	g.busy.Store(false)
}

// PauseView exposes module pause flags to engines.
type PauseView interface {
	IsPaused(module string) bool
}

// Guard rejects the call when the named module is paused.
func Guard(p PauseView, module string) error {
	if p == nil || module == "" {
		return nil
	}
	if p.IsPaused(module) {
		return ErrModulePaused
	}
	return nil
}

// PauseSwitch is an operator-togglable PauseView implementation.
type PauseSwitch struct {
	mu      sync.RWMutex
	modules map[string]bool
}

func NewPauseSwitch() *PauseSwitch {
	return &PauseSwitch{modules: make(map[string]bool)}
}

// SetPaused toggles the pause flag for a module.
func (p *PauseSwitch) SetPaused(module string, paused bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.modules[module] = paused
}

// IsPaused implements PauseView.
func (p *PauseSwitch) IsPaused(module string) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.modules[module]
}
