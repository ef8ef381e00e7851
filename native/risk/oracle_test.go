package risk

import (
	"errors"
	"testing"

	"microlend/crypto"
	"microlend/storage"
)

func makeAddress(b byte) crypto.Address {
	buf := make([]byte, 20)
	for i := range buf {
		buf[i] = b
	}
	return crypto.NewAddress(crypto.AccountPrefix, buf)
}

type oracleEnv struct {
	oracle   *Oracle
	admin    crypto.Address
	assessor crypto.Address
	borrower crypto.Address
	now      int64
}

func newOracleEnv(t *testing.T) *oracleEnv {
	t.Helper()
	env := &oracleEnv{
		admin:    makeAddress(0x01),
		assessor: makeAddress(0x02),
		borrower: makeAddress(0x03),
		now:      1_700_000_000,
	}
	oracle, err := NewOracle(env.admin, storage.NewKV(storage.NewMemDB()))
	if err != nil {
		t.Fatalf("new oracle failed: %v", err)
	}
	oracle.SetNowFunc(func() int64 { return env.now })
	if err := oracle.AddAssessor(env.admin, env.assessor); err != nil {
		t.Fatalf("add assessor failed: %v", err)
	}
	env.oracle = oracle
	return env
}

func TestScoreRoundTrip(t *testing.T) {
	env := newOracleEnv(t)

	if err := env.oracle.SetBorrowerScore(env.assessor, env.borrower, 80); err != nil {
		t.Fatalf("set borrower score failed: %v", err)
	}
	if err := env.oracle.SetAssetScore(env.assessor, 7, 55); err != nil {
		t.Fatalf("set asset score failed: %v", err)
	}

	score, valid, err := env.oracle.BorrowerScore(env.borrower)
	if err != nil || score != 80 || !valid {
		t.Fatalf("borrower score = %d valid=%v err=%v", score, valid, err)
	}
	score, valid, err = env.oracle.AssetScore(7)
	if err != nil || score != 55 || !valid {
		t.Fatalf("asset score = %d valid=%v err=%v", score, valid, err)
	}
}

func TestScoreAuthorization(t *testing.T) {
	env := newOracleEnv(t)
	stranger := makeAddress(0x09)

	if err := env.oracle.SetBorrowerScore(stranger, env.borrower, 50); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
	if err := env.oracle.SetBorrowerScore(env.assessor, env.borrower, 101); !errors.Is(err, ErrInvalidScore) {
		t.Fatalf("expected ErrInvalidScore, got %v", err)
	}
	if err := env.oracle.SetBorrowerScore(env.assessor, crypto.Address{}, 50); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
	if err := env.oracle.SetAssetScore(env.assessor, 0, 50); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for zero asset id, got %v", err)
	}
	if err := env.oracle.AddAssessor(stranger, stranger); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized on grant, got %v", err)
	}

	if err := env.oracle.RemoveAssessor(env.admin, env.assessor); err != nil {
		t.Fatalf("remove assessor failed: %v", err)
	}
	if err := env.oracle.SetBorrowerScore(env.assessor, env.borrower, 50); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized after revocation, got %v", err)
	}
}

func TestScoreValidityWindow(t *testing.T) {
	env := newOracleEnv(t)
	if err := env.oracle.SetBorrowerScore(env.assessor, env.borrower, 80); err != nil {
		t.Fatalf("set borrower score failed: %v", err)
	}

	// Exactly at the boundary is still valid; one second past expires.
	env.now += DefaultValiditySeconds
	if _, valid, err := env.oracle.BorrowerScore(env.borrower); err != nil || !valid {
		t.Fatalf("score should be valid at the boundary, valid=%v err=%v", valid, err)
	}
	env.now++
	score, valid, err := env.oracle.BorrowerScore(env.borrower)
	if err != nil {
		t.Fatalf("borrower score failed: %v", err)
	}
	if valid {
		t.Fatalf("score should have expired")
	}
	if score != 80 {
		t.Fatalf("expired scores stay readable, got %d", score)
	}
}

func TestUpdateValidityPeriod(t *testing.T) {
	env := newOracleEnv(t)
	if err := env.oracle.UpdateValidityPeriod(env.assessor, 60); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
	if err := env.oracle.UpdateValidityPeriod(env.admin, 0); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
	if err := env.oracle.UpdateValidityPeriod(env.admin, 60); err != nil {
		t.Fatalf("update validity failed: %v", err)
	}
	if got := env.oracle.ValidityPeriod(); got != 60 {
		t.Fatalf("expected validity 60, got %d", got)
	}

	if err := env.oracle.SetBorrowerScore(env.assessor, env.borrower, 80); err != nil {
		t.Fatalf("set borrower score failed: %v", err)
	}
	env.now += 61
	if _, valid, err := env.oracle.BorrowerScore(env.borrower); err != nil || valid {
		t.Fatalf("score should expire under shortened window, valid=%v err=%v", valid, err)
	}
}

func TestCombinedScore(t *testing.T) {
	env := newOracleEnv(t)

	if _, _, err := env.oracle.CombinedScore(env.borrower, 7); !errors.Is(err, ErrNotAssessed) {
		t.Fatalf("expected ErrNotAssessed, got %v", err)
	}

	if err := env.oracle.SetBorrowerScore(env.assessor, env.borrower, 81); err != nil {
		t.Fatalf("set borrower score failed: %v", err)
	}
	if _, _, err := env.oracle.CombinedScore(env.borrower, 7); !errors.Is(err, ErrNotAssessed) {
		t.Fatalf("expected ErrNotAssessed with missing asset score, got %v", err)
	}
	if err := env.oracle.SetAssetScore(env.assessor, 7, 50); err != nil {
		t.Fatalf("set asset score failed: %v", err)
	}

	// floor((81*60 + 50*40) / 100) = floor(68.6) = 68.
	combined, valid, err := env.oracle.CombinedScore(env.borrower, 7)
	if err != nil || combined != 68 || !valid {
		t.Fatalf("combined = %d valid=%v err=%v", combined, valid, err)
	}

	// The combination is only valid while both components are.
	env.now += DefaultValiditySeconds + 1
	combined, valid, err = env.oracle.CombinedScore(env.borrower, 7)
	if err != nil || valid {
		t.Fatalf("combined score should be stale, valid=%v err=%v", valid, err)
	}
	if combined != 68 {
		t.Fatalf("stale combined score stays readable, got %d", combined)
	}
}

func TestRecommendedMaxLTV(t *testing.T) {
	cases := []struct {
		score uint64
		want  uint64
	}{
		{100, 80}, {90, 80}, {89, 70}, {75, 70}, {74, 60}, {60, 60},
		{59, 50}, {40, 50}, {39, 40}, {25, 40}, {24, 30}, {0, 30},
	}
	for _, tc := range cases {
		if got := RecommendedMaxLTV(tc.score); got != tc.want {
			t.Fatalf("RecommendedMaxLTV(%d) = %d, want %d", tc.score, got, tc.want)
		}
	}
}

func TestValidityPeriodPersists(t *testing.T) {
	env := newOracleEnv(t)
	kv := storage.NewKV(storage.NewMemDB())
	oracle, err := NewOracle(env.admin, kv)
	if err != nil {
		t.Fatalf("new oracle failed: %v", err)
	}
	if err := oracle.UpdateValidityPeriod(env.admin, 120); err != nil {
		t.Fatalf("update validity failed: %v", err)
	}

	reopened, err := NewOracle(env.admin, kv)
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	if got := reopened.ValidityPeriod(); got != 120 {
		t.Fatalf("expected persisted validity 120, got %d", got)
	}
}
