package loan

import "math/big"

// Rates carry two-decimal precision: 1000 reads as 10.00% annually. The
// divisor folds the 10_000 rate scale with a 365-day year, so simple daily
// interest truncates in a single integer division.
const interestDivisor = 10_000 * 365

const secondsPerDay = 86_400

// maxLTVPercent is the hard collateralization cap applied at offer creation.
const maxLTVPercent = 70

// Interest computes floor(principal x rate x durationDays / (10000 x 365)).
// Simple interest, no compounding; truncation never favours the borrower.
func Interest(principal *big.Int, rateBps, durationDays uint64) *big.Int {
	if principal == nil || principal.Sign() <= 0 || rateBps == 0 || durationDays == 0 {
		return big.NewInt(0)
	}
	out := new(big.Int).Mul(principal, new(big.Int).SetUint64(rateBps))
	out.Mul(out, new(big.Int).SetUint64(durationDays))
	return out.Quo(out, big.NewInt(interestDivisor))
}

// MaxPrincipal returns the largest principal an asset of the given declared
// value can collateralize: floor(value x 70 / 100).
func MaxPrincipal(assetValue uint64) *big.Int {
	out := new(big.Int).SetUint64(assetValue)
	out.Mul(out, big.NewInt(maxLTVPercent))
	return out.Quo(out, big.NewInt(100))
}
