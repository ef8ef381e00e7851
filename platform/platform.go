package platform

import (
	"errors"
	"log/slog"
	"sync"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"

	"microlend/config"
	"microlend/core/events"
	"microlend/crypto"
	"microlend/native/assets"
	nativecommon "microlend/native/common"
	"microlend/native/fees"
	"microlend/native/loan"
	"microlend/native/risk"
	"microlend/native/token"
	"microlend/storage"
)

// ErrUnknownUnit rejects offers referencing a stablecoin ledger the platform
// has not registered.
var ErrUnknownUnit = errors.New("platform: unknown value transfer unit")

// Platform wires the asset registry, risk oracle, loan ledger and fee policy
// together. The registry's one-time lock authority is captured here and
// handed only to the loan engine.
type Platform struct {
	Operator crypto.Address
	// LedgerAddress is the spender identity participants authorize on the
	// stablecoin ledgers.
	LedgerAddress crypto.Address

	Registry *assets.Registry
	Oracle   *risk.Oracle
	Loans    *loan.Engine
	Fees     *fees.Policy
	Pauses   *nativecommon.PauseSwitch
	Bus      *events.Bus

	mu    sync.RWMutex
	units map[string]*token.Ledger
}

// collateralBoundary combines the registry's read queries with the lock
// capability into the boundary the loan engine consumes.
type collateralBoundary struct {
	*assets.Registry
	authority *assets.LockAuthority
}

func (b collateralBoundary) SetLock(assetID uint64, locked bool) error {
	return b.authority.SetLock(assetID, locked)
}

func (b collateralBoundary) TransferLocked(assetID uint64, from, to crypto.Address) error {
	return b.authority.TransferLocked(assetID, from, to)
}

// Resolve implements loan.UnitResolver.
func (p *Platform) Resolve(unit crypto.Address) (loan.TransferService, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	ledger, ok := p.units[string(unit.Bytes())]
	if !ok {
		return nil, ErrUnknownUnit
	}
	return ledger.ServiceFor(p.LedgerAddress), nil
}

// RegisterUnit adds a stablecoin ledger to the resolver.
func (p *Platform) RegisterUnit(ledger *token.Ledger) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.units[string(ledger.Unit().Bytes())] = ledger
}

// Unit returns a registered stablecoin ledger.
func (p *Platform) Unit(addr crypto.Address) (*token.Ledger, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	ledger, ok := p.units[string(addr.Bytes())]
	return ledger, ok
}

// LedgerAddressFor derives a deterministic 20-byte module address from a
// domain tag.
func LedgerAddressFor(tag string) crypto.Address {
	digest := ethcrypto.Keccak256([]byte("microlend/module/" + tag))
	return crypto.NewAddress(crypto.AccountPrefix, digest[12:])
}

// New assembles the platform from configuration and a storage backend.
func New(cfg *config.Config, db storage.Database, log *slog.Logger) (*Platform, error) {
	operator, ok, err := cfg.OperatorAddress()
	if err != nil {
		return nil, err
	}
	if !ok {
		operator = LedgerAddressFor("operator")
	}

	kv := storage.NewKV(db)
	bus := events.NewBus(log)
	pauses := nativecommon.NewPauseSwitch()

	registry := assets.NewRegistry(operator, kv)
	registry.SetEmitter(bus)
	authority, err := registry.IssueLockAuthority()
	if err != nil {
		return nil, err
	}

	policy, err := fees.NewPolicy(operator, kv)
	if err != nil {
		return nil, err
	}
	policy.SetEmitter(bus)
	if cfg.PlatformFeeBps != policy.RateBps() {
		if err := policy.SetRate(operator, cfg.PlatformFeeBps); err != nil {
			return nil, err
		}
	}

	roles, err := config.LoadRoles(cfg.RolesFile)
	if err != nil {
		return nil, err
	}
	oracleAdmin := operator
	if roles.OracleAdmin != "" {
		oracleAdmin, err = crypto.DecodeAddress(roles.OracleAdmin)
		if err != nil {
			return nil, err
		}
	}
	oracle, err := risk.NewOracle(oracleAdmin, kv)
	if err != nil {
		return nil, err
	}
	oracle.SetEmitter(bus)
	if cfg.ScoreValiditySeconds != oracle.ValidityPeriod() {
		if err := oracle.UpdateValidityPeriod(oracleAdmin, cfg.ScoreValiditySeconds); err != nil {
			return nil, err
		}
	}

	p := &Platform{
		Operator:      operator,
		LedgerAddress: LedgerAddressFor("loan-ledger"),
		Registry:      registry,
		Oracle:        oracle,
		Fees:          policy,
		Pauses:        pauses,
		Bus:           bus,
		units:         make(map[string]*token.Ledger),
	}

	engine := loan.NewEngine(operator, p.LedgerAddress)
	engine.SetState(loan.NewKVState(kv))
	engine.SetRegistry(collateralBoundary{Registry: registry, authority: authority})
	engine.SetUnitResolver(p)
	engine.SetFeePolicy(policy)
	engine.SetPauses(pauses)
	engine.SetEmitter(bus)
	p.Loans = engine

	for _, verifier := range roles.Verifiers {
		addr, err := crypto.DecodeAddress(verifier)
		if err != nil {
			return nil, err
		}
		if err := registry.AddVerifier(operator, addr); err != nil {
			return nil, err
		}
	}
	for _, assessor := range roles.Assessors {
		addr, err := crypto.DecodeAddress(assessor)
		if err != nil {
			return nil, err
		}
		if err := oracle.AddAssessor(oracleAdmin, addr); err != nil {
			return nil, err
		}
	}

	for _, unit := range cfg.StablecoinUnits {
		addr, err := crypto.DecodeAddress(unit)
		if err != nil {
			return nil, err
		}
		p.RegisterUnit(token.NewLedger(addr, operator))
	}

	return p, nil
}
