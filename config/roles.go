package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"microlend/crypto"
)

// Roles is the operator-maintained roster of privileged identities, loaded
// from a YAML file at bootstrap.
type Roles struct {
	Verifiers   []string `yaml:"verifiers"`
	Assessors   []string `yaml:"assessors"`
	OracleAdmin string   `yaml:"oracleAdmin"`
}

// LoadRoles reads and validates the role roster. A missing path yields an
// empty roster.
func LoadRoles(path string) (*Roles, error) {
	if path == "" {
		return &Roles{}, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &Roles{}, nil
		}
		return nil, err
	}
	roles := &Roles{}
	if err := yaml.Unmarshal(raw, roles); err != nil {
		return nil, fmt.Errorf("roles: %w", err)
	}
	for _, entry := range append(append([]string{}, roles.Verifiers...), roles.Assessors...) {
		if _, err := crypto.DecodeAddress(entry); err != nil {
			return nil, fmt.Errorf("roles: invalid address %q: %w", entry, err)
		}
	}
	if roles.OracleAdmin != "" {
		if _, err := crypto.DecodeAddress(roles.OracleAdmin); err != nil {
			return nil, fmt.Errorf("roles: invalid oracle admin %q: %w", roles.OracleAdmin, err)
		}
	}
	return roles, nil
}
