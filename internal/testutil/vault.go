package testutil

import (
	"caseline/internal/contacts"
	"caseline/internal/vault"
)

// NewTestVault creates a new in-memory vault for testing.
func NewTestVault() contacts.Vault {
	return vault.NewMemoryVault("test-vault")
}
