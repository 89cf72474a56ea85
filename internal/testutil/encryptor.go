package testutil

import (
	"caseline/internal/contacts"
	"caseline/internal/encryption"
)

// NewTestEncryptor creates a new test encryptor for testing.
func NewTestEncryptor() contacts.Encryptor {
	return encryption.NewTestEncryptor()
}
