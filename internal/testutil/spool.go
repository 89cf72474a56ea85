package testutil

import (
	"caseline/internal/contacts"
	"caseline/internal/spool"
)

// DefaultSpoolMaxSize is the default max size for test spools (10MB).
const DefaultSpoolMaxSize = 10 * 1024 * 1024

// NewTestSpool creates a new in-memory spool for testing.
func NewTestSpool() contacts.Spool {
	return spool.NewMemorySpool(DefaultSpoolMaxSize)
}

// NewTestSpoolWithSize creates a new in-memory spool with a custom max size.
func NewTestSpoolWithSize(maxSize int64) contacts.Spool {
	return spool.NewMemorySpool(maxSize)
}
