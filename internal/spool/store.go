package spool

import (
	"io"

	"caseline/internal/contacts"
)

// spoolStore abstracts the storage mechanics for an export spool.
// Implementations handle content storage and queue management.
// Concurrency is managed by the caller (exportSpool.mu), so stores
// do not need to be safe for concurrent use.
type spoolStore interface {
	// StoreContent reads from r and stores it under the export ID.
	// Returns the number of bytes stored.
	StoreContent(exportID string, r io.Reader) (int64, error)

	// RemoveContent removes stored content by export ID (best-effort).
	RemoveContent(exportID string)

	// OpenContent returns a reader for stored content by export ID.
	OpenContent(exportID string) (io.ReadCloser, error)

	// ContentSize returns total bytes of all stored content.
	ContentSize() (int64, error)

	// Append adds an entry to the end of the queue.
	Append(entry contacts.SpoolEntry) error

	// Peek returns the first entry in the queue without removing it.
	// Returns nil if the queue is empty.
	Peek() (*contacts.SpoolEntry, error)

	// Pop removes the first entry matching exportID from the queue.
	Pop(exportID string) error

	// Len returns the number of entries in the queue.
	Len() (int, error)
}
