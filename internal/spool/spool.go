// Package spool queues built exports until they are pushed to the vault.
package spool

import (
	"fmt"
	"io"
	"sync"

	"caseline/internal/contacts"
)

// exportSpool implements contacts.Spool using a pluggable spoolStore
// for the storage mechanics. All shared queue logic lives here.
type exportSpool struct {
	store   spoolStore
	maxSize int64
	mu      sync.Mutex
}

var _ contacts.Spool = (*exportSpool)(nil)

// Add stores the export content and appends the entry to the queue.
func (s *exportSpool) Add(entry contacts.SpoolEntry, r io.Reader) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	written, err := s.store.StoreContent(entry.ExportID, r)
	if err != nil {
		return fmt.Errorf("storing export content: %w", err)
	}

	if written != entry.Size {
		s.store.RemoveContent(entry.ExportID)
		return fmt.Errorf("export content is %d bytes, expected %d", written, entry.Size)
	}

	total, err := s.store.ContentSize()
	if err != nil {
		s.store.RemoveContent(entry.ExportID)
		return fmt.Errorf("getting spool size: %w", err)
	}
	if total > s.maxSize {
		s.store.RemoveContent(entry.ExportID)
		return fmt.Errorf("spool full: would exceed max size of %d bytes", s.maxSize)
	}

	if err := s.store.Append(entry); err != nil {
		s.store.RemoveContent(entry.ExportID)
		return fmt.Errorf("adding to queue: %w", err)
	}

	return nil
}

// ProcessNext hands the oldest queued export to fn.
// If fn returns nil, the entry is removed along with its content.
// If fn returns an error, the entry stays in the queue for retry.
// ok reports whether an entry was processed and removed.
func (s *exportSpool) ProcessNext(fn func(entry contacts.SpoolEntry, content io.Reader) error) (bool, error) {
	s.mu.Lock()
	entry, err := s.store.Peek()
	if err != nil {
		s.mu.Unlock()
		return false, err
	}
	if entry == nil {
		s.mu.Unlock()
		return false, nil
	}

	reader, err := s.store.OpenContent(entry.ExportID)
	s.mu.Unlock()
	if err != nil {
		return false, fmt.Errorf("export content not found: %s", entry.ExportID)
	}
	defer reader.Close()

	// Call the push function outside the lock
	if err := fn(*entry, reader); err != nil {
		return false, err
	}

	// Success - remove the entry and its content
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.store.Pop(entry.ExportID); err != nil {
		return false, err
	}
	s.store.RemoveContent(entry.ExportID)

	return true, nil
}

// Count returns the number of queued exports.
func (s *exportSpool) Count() (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.store.Len()
}

// Size returns the total size of spooled export content in bytes.
func (s *exportSpool) Size() (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.store.ContentSize()
}
