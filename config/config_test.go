package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"microlend/crypto"
)

func testAddress(t *testing.T, prefix string, b byte) string {
	t.Helper()
	buf := make([]byte, 20)
	for i := range buf {
		buf[i] = b
	}
	return crypto.NewAddress(prefix, buf).String()
}

func TestLoadCreatesDefaultFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "./microlend-data", cfg.DataDir)
	require.Equal(t, ":9464", cfg.MetricsAddress)
	require.Equal(t, uint64(100), cfg.PlatformFeeBps)
	require.Equal(t, int64(90*24*60*60), cfg.ScoreValiditySeconds)

	_, err = os.Stat(path)
	require.NoError(t, err, "default config file should be written")

	reloaded, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, cfg, reloaded)
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("DataDir = \"/var/lib/microlend\"\n"), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "/var/lib/microlend", cfg.DataDir)
	require.Equal(t, ":9464", cfg.MetricsAddress)
	require.Equal(t, uint64(100), cfg.PlatformFeeBps)
	require.NotNil(t, cfg.StablecoinUnits)
}

func TestLoadKeepsExplicitZeroFee(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("PlatformFeeBps = 0\n"), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, uint64(0), cfg.PlatformFeeBps, "an explicit zero rate must not be replaced by the default")
}

func TestValidate(t *testing.T) {
	valid := &Config{
		MetricsAddress:       ":9464",
		PlatformFeeBps:       250,
		ScoreValiditySeconds: 3600,
		Operator:             testAddress(t, crypto.AccountPrefix, 0x01),
		StablecoinUnits:      []string{testAddress(t, crypto.UnitPrefix, 0x02)},
	}
	require.NoError(t, valid.Validate())

	feeTooHigh := *valid
	feeTooHigh.PlatformFeeBps = 1_001
	require.Error(t, feeTooHigh.Validate())

	badValidity := *valid
	badValidity.ScoreValiditySeconds = 0
	require.Error(t, badValidity.Validate())

	badOperator := *valid
	badOperator.Operator = "mln1notanaddress"
	require.Error(t, badOperator.Validate())

	wrongUnitPrefix := *valid
	wrongUnitPrefix.StablecoinUnits = []string{testAddress(t, crypto.AccountPrefix, 0x03)}
	require.Error(t, wrongUnitPrefix.Validate())
}

func TestOperatorAddress(t *testing.T) {
	cfg := &Config{}
	_, present, err := cfg.OperatorAddress()
	require.NoError(t, err)
	require.False(t, present)

	encoded := testAddress(t, crypto.AccountPrefix, 0x01)
	cfg.Operator = " " + encoded + " "
	addr, present, err := cfg.OperatorAddress()
	require.NoError(t, err)
	require.True(t, present)
	require.Equal(t, encoded, addr.String())
}

func TestLoadRoles(t *testing.T) {
	roles, err := LoadRoles("")
	require.NoError(t, err)
	require.Empty(t, roles.Verifiers)

	roles, err = LoadRoles(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	require.Empty(t, roles.Assessors)

	verifier := testAddress(t, crypto.AccountPrefix, 0x04)
	assessor := testAddress(t, crypto.AccountPrefix, 0x05)
	admin := testAddress(t, crypto.AccountPrefix, 0x06)
	path := filepath.Join(t.TempDir(), "roles.yaml")
	body := "verifiers:\n  - " + verifier + "\nassessors:\n  - " + assessor + "\noracleAdmin: " + admin + "\n"
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))

	roles, err = LoadRoles(path)
	require.NoError(t, err)
	require.Equal(t, []string{verifier}, roles.Verifiers)
	require.Equal(t, []string{assessor}, roles.Assessors)
	require.Equal(t, admin, roles.OracleAdmin)

	bad := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("verifiers:\n  - not-an-address\n"), 0o644))
	_, err = LoadRoles(bad)
	require.Error(t, err)
}
