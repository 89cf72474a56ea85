package contacts

import (
	"context"
	"fmt"

	"caseline/internal/remote"
)

// SuspendFromGroups parks the contact's memberships in the org's
// suspend-from groups, typically while a case is open. Each parked group is
// remembered on the contact, removed from its live memberships and removed
// on the platform, so the contact stops receiving that group's messaging.
// It is an error to suspend a contact that is already suspended.
func (s *Service) SuspendFromGroups(ctx context.Context, org, uuid string) error {
	release, err := s.locker.Acquire(ctx, contactLockKey(org, uuid))
	if err != nil {
		return fmt.Errorf("locking contact %s: %w", uuid, err)
	}
	defer release()

	contact, err := s.database.FindContact(org, uuid)
	if err != nil {
		return fmt.Errorf("finding contact %s: %w", uuid, err)
	}
	if contact == nil {
		return fmt.Errorf("contact %s: %w", uuid, ErrNotFound)
	}
	if len(contact.SuspendedGroups) > 0 {
		return fmt.Errorf("contact %s is already suspended from groups", uuid)
	}

	groups, err := s.database.GetGroups(org)
	if err != nil {
		return fmt.Errorf("listing groups: %w", err)
	}
	suspendFrom := make(map[string]bool)
	for _, g := range groups {
		if g.SuspendFrom {
			suspendFrom[g.UUID] = true
		}
	}

	var kept, parked []remote.Group
	for _, g := range contact.Groups {
		if suspendFrom[g.UUID] {
			parked = append(parked, g)
		} else {
			kept = append(kept, g)
		}
	}
	if len(parked) == 0 {
		return nil
	}

	contact.Groups = kept
	contact.SuspendedGroups = parked
	if err := s.database.UpdateContact(contact); err != nil {
		return fmt.Errorf("updating contact %s: %w", uuid, err)
	}

	for _, g := range parked {
		if err := s.remote.RemoveFromGroup(ctx, uuid, g.UUID); err != nil {
			return fmt.Errorf("removing contact %s from group %s: %w", uuid, g.UUID, err)
		}
	}

	s.logger.Info("contact suspended from groups", "org", org, "uuid", uuid, "groups", len(parked))
	return nil
}

// RestoreGroups returns the contact's suspended memberships, locally and on
// the platform. Restoring a contact with nothing suspended is a no-op.
func (s *Service) RestoreGroups(ctx context.Context, org, uuid string) error {
	release, err := s.locker.Acquire(ctx, contactLockKey(org, uuid))
	if err != nil {
		return fmt.Errorf("locking contact %s: %w", uuid, err)
	}
	defer release()

	contact, err := s.database.FindContact(org, uuid)
	if err != nil {
		return fmt.Errorf("finding contact %s: %w", uuid, err)
	}
	if contact == nil {
		return fmt.Errorf("contact %s: %w", uuid, ErrNotFound)
	}
	if len(contact.SuspendedGroups) == 0 {
		return nil
	}

	restored := contact.SuspendedGroups
	contact.Groups = append(contact.Groups, restored...)
	contact.SuspendedGroups = nil
	if err := s.database.UpdateContact(contact); err != nil {
		return fmt.Errorf("updating contact %s: %w", uuid, err)
	}

	for _, g := range restored {
		if err := s.remote.AddToGroup(ctx, uuid, g.UUID); err != nil {
			return fmt.Errorf("adding contact %s to group %s: %w", uuid, g.UUID, err)
		}
	}

	s.logger.Info("contact groups restored", "org", org, "uuid", uuid, "groups", len(restored))
	return nil
}
