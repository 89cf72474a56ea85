package contacts

import (
	"fmt"

	"caseline/internal/model"
)

// OrgStatus aggregates one org's local sync state for display.
type OrgStatus struct {
	Org            string
	ActiveContacts int
	StubContacts   int
	ActiveGroups   int
	VisibleGroups  int
	ActiveFields   int
	VisibleFields  int

	// SpooledExports counts exports waiting to be pushed, across orgs.
	SpooledExports int

	// LastRuns holds the most recent sync run per kind, absent when that
	// kind has never run.
	LastRuns map[string]*model.SyncRun
}

// OrgStatus reports the org's record counts and most recent sync runs.
func (s *Service) OrgStatus(org string) (*OrgStatus, error) {
	total, stubs, err := s.database.CountContacts(org)
	if err != nil {
		return nil, fmt.Errorf("counting contacts: %w", err)
	}
	groups, err := s.database.GetGroups(org)
	if err != nil {
		return nil, fmt.Errorf("listing groups: %w", err)
	}
	fields, err := s.database.GetFields(org)
	if err != nil {
		return nil, fmt.Errorf("listing fields: %w", err)
	}
	spooled, err := s.spool.Count()
	if err != nil {
		return nil, fmt.Errorf("counting spooled exports: %w", err)
	}

	status := &OrgStatus{
		Org:            org,
		ActiveContacts: total,
		StubContacts:   stubs,
		ActiveGroups:   len(groups),
		ActiveFields:   len(fields),
		SpooledExports: spooled,
		LastRuns:       make(map[string]*model.SyncRun),
	}
	for _, g := range groups {
		if g.IsVisible {
			status.VisibleGroups++
		}
	}
	for _, f := range fields {
		if f.IsVisible {
			status.VisibleFields++
		}
	}

	for _, kind := range []string{model.SyncKindContacts, model.SyncKindGroups, model.SyncKindFields} {
		run, err := s.database.LatestSyncRun(org, kind)
		if err != nil {
			return nil, fmt.Errorf("loading last %s run: %w", kind, err)
		}
		if run != nil {
			status.LastRuns[kind] = run
		}
	}
	return status, nil
}

// ContactDetail is one contact expanded for display. VisibleFields carries
// every visible field key, with an empty value when the contact has none.
type ContactDetail struct {
	Contact       *model.Contact
	VisibleFields map[string]string
}

// ContactDetail loads one contact with its field values filtered to the
// org's visible fields.
func (s *Service) ContactDetail(org, uuid string) (*ContactDetail, error) {
	contact, err := s.database.FindContact(org, uuid)
	if err != nil {
		return nil, fmt.Errorf("finding contact %s: %w", uuid, err)
	}
	if contact == nil {
		return nil, fmt.Errorf("contact %s: %w", uuid, ErrNotFound)
	}

	fields, err := s.database.GetFields(org)
	if err != nil {
		return nil, fmt.Errorf("listing fields: %w", err)
	}
	visible := make(map[string]string)
	for _, f := range fields {
		if f.IsVisible {
			visible[f.Key] = contact.Fields[f.Key]
		}
	}
	return &ContactDetail{Contact: contact, VisibleFields: visible}, nil
}

// SyncHistory returns the org's recent sync runs, newest first. An empty
// kind covers all kinds.
func (s *Service) SyncHistory(org, kind string, limit int) ([]*model.SyncRun, error) {
	if limit <= 0 {
		limit = 20
	}
	runs, err := s.database.ListSyncRuns(org, kind, limit)
	if err != nil {
		return nil, fmt.Errorf("listing sync runs: %w", err)
	}
	return runs, nil
}

// Groups lists the org's active groups.
func (s *Service) Groups(org string) ([]*model.Group, error) {
	groups, err := s.database.GetGroups(org)
	if err != nil {
		return nil, fmt.Errorf("listing groups: %w", err)
	}
	return groups, nil
}

// Fields lists the org's active fields.
func (s *Service) Fields(org string) ([]*model.Field, error) {
	fields, err := s.database.GetFields(org)
	if err != nil {
		return nil, fmt.Errorf("listing fields: %w", err)
	}
	return fields, nil
}

// Exports lists the org's exports, newest first.
func (s *Service) Exports(org string, limit int) ([]*model.Export, error) {
	if limit <= 0 {
		limit = 20
	}
	exports, err := s.database.ListExports(org, limit)
	if err != nil {
		return nil, fmt.Errorf("listing exports: %w", err)
	}
	return exports, nil
}

// SetGroupVisible flags whether the group appears on contact displays and
// in exports.
func (s *Service) SetGroupVisible(org, uuid string, visible bool) error {
	group, err := s.database.FindGroup(org, uuid)
	if err != nil {
		return fmt.Errorf("finding group %s: %w", uuid, err)
	}
	if group == nil {
		return fmt.Errorf("group %s: %w", uuid, ErrNotFound)
	}
	group.IsVisible = visible
	if err := s.database.UpdateGroup(group); err != nil {
		return fmt.Errorf("updating group %s: %w", uuid, err)
	}
	return nil
}

// SetGroupSuspendFrom flags whether contacts are pulled out of the group
// while suspended.
func (s *Service) SetGroupSuspendFrom(org, uuid string, suspendFrom bool) error {
	group, err := s.database.FindGroup(org, uuid)
	if err != nil {
		return fmt.Errorf("finding group %s: %w", uuid, err)
	}
	if group == nil {
		return fmt.Errorf("group %s: %w", uuid, ErrNotFound)
	}
	group.SuspendFrom = suspendFrom
	if err := s.database.UpdateGroup(group); err != nil {
		return fmt.Errorf("updating group %s: %w", uuid, err)
	}
	return nil
}

// SetFieldVisible flags whether the field appears on contact displays and
// in exports.
func (s *Service) SetFieldVisible(org, key string, visible bool) error {
	field, err := s.database.FindField(org, key)
	if err != nil {
		return fmt.Errorf("finding field %s: %w", key, err)
	}
	if field == nil {
		return fmt.Errorf("field %s: %w", key, ErrNotFound)
	}
	field.IsVisible = visible
	if err := s.database.UpdateField(field); err != nil {
		return fmt.Errorf("updating field %s: %w", key, err)
	}
	return nil
}
