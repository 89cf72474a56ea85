package contacts

import (
	"context"
	"io"
)

// Vault is where finished contact exports live. Operations stream through
// io.Reader/io.Writer so exports never need to fit in memory.
type Vault interface {
	// Put stores an object under key. size is the number of bytes r yields.
	// Storing the same key twice overwrites the object.
	Put(ctx context.Context, key string, r io.Reader, size int64) error

	// Get opens the object stored under key.
	Get(ctx context.Context, key string) (io.ReadCloser, error)

	// Exists reports whether an object is stored under key.
	Exists(ctx context.Context, key string) (bool, error)

	// ValidateSetup verifies that the vault is accessible and properly
	// configured.
	ValidateSetup(ctx context.Context) error
}
