package contacts

import "io"

// SpoolEntry identifies one built export waiting to be pushed to the vault.
type SpoolEntry struct {
	ExportID string // Export record ID
	Key      string // Vault object key the export will be stored under
	Size     int64  // Plaintext size in bytes
}

// Spool queues built exports until they are pushed to the vault. Entries
// survive process restarts when the spool is backed by the filesystem.
// The spool enforces a maximum size to prevent filling up the filesystem.
type Spool interface {
	// Add stores the export content and appends the entry to the queue.
	Add(entry SpoolEntry, r io.Reader) error

	// ProcessNext hands the oldest queued export to fn. The entry is removed
	// only when fn succeeds; on error it stays queued for a later retry.
	// ok reports whether there was an entry to process.
	ProcessNext(fn func(entry SpoolEntry, content io.Reader) error) (ok bool, err error)

	// Count returns the number of queued exports.
	Count() (int, error)

	// Size returns the total size of spooled export content in bytes.
	Size() (int64, error)
}
