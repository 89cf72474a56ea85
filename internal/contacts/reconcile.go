package contacts

import (
	"context"
	"fmt"

	"caseline/internal/model"
)

// ReconcileContact refreshes the local record by merging it with the
// platform's current snapshot. The local record is the primary side, so
// local values win conflicts, and the service's mutually-exclusive group
// sets apply. The merged result is run through the record adapter and
// persisted, then returned.
func (s *Service) ReconcileContact(ctx context.Context, org, uuid string) (*model.Contact, error) {
	release, err := s.locker.Acquire(ctx, contactLockKey(org, uuid))
	if err != nil {
		return nil, fmt.Errorf("locking contact %s: %w", uuid, err)
	}
	defer release()

	contact, err := s.database.FindContact(org, uuid)
	if err != nil {
		return nil, fmt.Errorf("finding contact %s: %w", uuid, err)
	}
	if contact == nil {
		return nil, fmt.Errorf("contact %s: %w", uuid, ErrNotFound)
	}
	if !contact.IsActive {
		return nil, fmt.Errorf("contact %s is inactive", uuid)
	}

	snapshot, err := s.remote.Contact(ctx, uuid)
	if err != nil {
		return nil, fmt.Errorf("fetching contact %s: %w", uuid, err)
	}

	merged, err := MergeContacts(contact.Remote(), *snapshot, s.mutexGroups)
	if err != nil {
		return nil, fmt.Errorf("merging contact %s: %w", uuid, err)
	}

	seed, err := s.adapter(org, merged)
	if err != nil {
		return nil, fmt.Errorf("adapting contact %s: %w", uuid, err)
	}
	if seed == nil {
		return nil, fmt.Errorf("contact %s is excluded from local storage", uuid)
	}

	contact.Apply(seed)
	if err := s.database.UpdateContact(contact); err != nil {
		return nil, fmt.Errorf("updating contact %s: %w", uuid, err)
	}

	s.logger.Info("contact reconciled", "org", org, "uuid", uuid)
	return contact, nil
}
