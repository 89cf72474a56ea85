package contacts

import (
	"context"
	"fmt"
	"io"
	"time"

	"caseline/internal/model"
	"caseline/internal/remote"
)

// Counts summarizes what one pull changed locally.
type Counts struct {
	Created int
	Updated int
	Deleted int
}

// PullOptions bound and scope one contact pull.
type PullOptions struct {
	// After and Before restrict the pull to contacts modified in this
	// window. A zero value leaves the window open on that side.
	After  time.Time
	Before time.Time

	// IncludeURNs makes URN changes count as differences.
	IncludeURNs bool

	// Groups and Fields scope change detection, as in CompareOptions.
	Groups []string
	Fields []string

	// Progress, when set, receives the cumulative number of fetched
	// snapshots after each batch, across both passes.
	Progress func(synced int)
}

// PullContacts mirrors the org's remote contacts into local storage for the
// given window. The first pass walks contacts modified in the window: new
// ones are created, changed or locally-inactive ones are updated and
// reactivated, and ones the record adapter excludes are deactivated. The
// second pass deactivates contacts the platform reports as deleted. Counts
// reflect local effects only, so re-running a window that is already
// mirrored counts nothing.
func (s *Service) PullContacts(ctx context.Context, org string, opt PullOptions) (Counts, error) {
	var counts Counts
	synced := 0

	query := remote.ContactQuery{After: opt.After, Before: opt.Before}
	pager := s.remote.Contacts(query)
	for {
		batch, err := pager.Next(ctx)
		if err == io.EOF {
			break
		}
		if err != nil {
			return counts, fmt.Errorf("fetching modified contacts: %w", err)
		}

		if err := s.applyBatch(org, batch, opt, &counts); err != nil {
			return counts, err
		}

		synced += len(batch)
		if opt.Progress != nil {
			opt.Progress(synced)
		}
	}

	query.Deleted = true
	pager = s.remote.Contacts(query)
	for {
		batch, err := pager.Next(ctx)
		if err == io.EOF {
			break
		}
		if err != nil {
			return counts, fmt.Errorf("fetching deleted contacts: %w", err)
		}

		uuids := make([]string, 0, len(batch))
		for _, rc := range batch {
			uuids = append(uuids, rc.UUID)
		}
		flipped, err := s.database.DeactivateContactsByUUID(org, uuids)
		if err != nil {
			return counts, fmt.Errorf("deactivating deleted contacts: %w", err)
		}
		counts.Deleted += flipped

		synced += len(batch)
		if opt.Progress != nil {
			opt.Progress(synced)
		}
	}

	s.logger.Info("contacts pulled", "org", org,
		"created", counts.Created, "updated", counts.Updated, "deleted", counts.Deleted)
	return counts, nil
}

// applyBatch reconciles one batch of modified snapshots against local
// records. Contacts the adapter excludes are collected and deactivated in
// one call at the end of the batch.
func (s *Service) applyBatch(org string, batch []remote.Contact, opt PullOptions, counts *Counts) error {
	uuids := make([]string, 0, len(batch))
	for _, rc := range batch {
		uuids = append(uuids, rc.UUID)
	}
	found, err := s.database.FindContactsByUUID(org, uuids)
	if err != nil {
		return fmt.Errorf("loading existing contacts: %w", err)
	}
	existing := make(map[string]*model.Contact, len(found))
	for _, c := range found {
		existing[c.UUID] = c
	}

	compareOpt := CompareOptions{IncludeURNs: opt.IncludeURNs, Groups: opt.Groups, Fields: opt.Fields}
	var excluded []string

	for _, rc := range batch {
		seed, err := s.adapter(org, rc)
		if err != nil {
			return fmt.Errorf("adapting contact %s: %w", rc.UUID, err)
		}

		local, known := existing[rc.UUID]
		switch {
		case known && seed != nil:
			diff, err := CompareContacts(rc, local.Remote(), compareOpt)
			if err != nil {
				return fmt.Errorf("comparing contact %s: %w", rc.UUID, err)
			}
			if diff == DiffNone && local.IsActive {
				continue
			}
			local.Apply(seed)
			if err := s.database.UpdateContact(local); err != nil {
				return fmt.Errorf("updating contact %s: %w", rc.UUID, err)
			}
			counts.Updated++
		case known:
			if local.IsActive {
				excluded = append(excluded, local.ID)
				counts.Deleted++
			}
		case seed != nil:
			contact := &model.Contact{
				ID:        s.idgen.New(),
				OrgID:     org,
				UUID:      rc.UUID,
				IsActive:  true,
				CreatedAt: s.clock.Now(),
			}
			contact.Apply(seed)
			if err := s.database.CreateContact(contact); err != nil {
				return fmt.Errorf("creating contact %s: %w", rc.UUID, err)
			}
			counts.Created++
		}
	}

	if len(excluded) > 0 {
		if err := s.database.DeactivateContacts(excluded); err != nil {
			return fmt.Errorf("deactivating excluded contacts: %w", err)
		}
	}
	return nil
}

// PullGroups mirrors the platform's group list into local storage. Groups
// no longer on the platform are deactivated; visibility and suspend-from
// flags on surviving groups are left alone.
func (s *Service) PullGroups(ctx context.Context, org string) (Counts, error) {
	var counts Counts

	incoming, err := s.remote.Groups(ctx)
	if err != nil {
		return counts, fmt.Errorf("fetching groups: %w", err)
	}

	seen := make(map[string]bool, len(incoming))
	for _, rg := range incoming {
		seen[rg.UUID] = true

		local, err := s.database.FindGroup(org, rg.UUID)
		if err != nil {
			return counts, fmt.Errorf("loading group %s: %w", rg.UUID, err)
		}
		switch {
		case local == nil:
			group := &model.Group{
				ID:        s.idgen.New(),
				OrgID:     org,
				UUID:      rg.UUID,
				Name:      rg.Name,
				Count:     rg.Count,
				IsActive:  true,
				CreatedAt: s.clock.Now(),
			}
			if err := s.database.CreateGroup(group); err != nil {
				return counts, fmt.Errorf("creating group %s: %w", rg.UUID, err)
			}
			counts.Created++
		case local.Name != rg.Name || local.Count != rg.Count || !local.IsActive:
			local.Name = rg.Name
			local.Count = rg.Count
			local.IsActive = true
			if err := s.database.UpdateGroup(local); err != nil {
				return counts, fmt.Errorf("updating group %s: %w", rg.UUID, err)
			}
			counts.Updated++
		}
	}

	active, err := s.database.GetGroups(org)
	if err != nil {
		return counts, fmt.Errorf("listing groups: %w", err)
	}
	var gone []string
	for _, g := range active {
		if !seen[g.UUID] {
			gone = append(gone, g.UUID)
		}
	}
	if len(gone) > 0 {
		flipped, err := s.database.DeactivateGroupsByUUID(org, gone)
		if err != nil {
			return counts, fmt.Errorf("deactivating groups: %w", err)
		}
		counts.Deleted += flipped
	}

	s.logger.Info("groups pulled", "org", org,
		"created", counts.Created, "updated", counts.Updated, "deleted", counts.Deleted)
	return counts, nil
}

// PullFields mirrors the platform's custom field definitions into local
// storage. Fields no longer on the platform are deactivated; visibility
// flags on surviving fields are left alone.
func (s *Service) PullFields(ctx context.Context, org string) (Counts, error) {
	var counts Counts

	incoming, err := s.remote.Fields(ctx)
	if err != nil {
		return counts, fmt.Errorf("fetching fields: %w", err)
	}

	seen := make(map[string]bool, len(incoming))
	for _, rf := range incoming {
		seen[rf.Key] = true
		valueType := model.FieldTypeFromRemote(rf.ValueType)

		local, err := s.database.FindField(org, rf.Key)
		if err != nil {
			return counts, fmt.Errorf("loading field %s: %w", rf.Key, err)
		}
		switch {
		case local == nil:
			field := &model.Field{
				ID:        s.idgen.New(),
				OrgID:     org,
				Key:       rf.Key,
				Label:     rf.Label,
				ValueType: valueType,
				IsActive:  true,
			}
			if err := s.database.CreateField(field); err != nil {
				return counts, fmt.Errorf("creating field %s: %w", rf.Key, err)
			}
			counts.Created++
		case local.Label != rf.Label || local.ValueType != valueType || !local.IsActive:
			local.Label = rf.Label
			local.ValueType = valueType
			local.IsActive = true
			if err := s.database.UpdateField(local); err != nil {
				return counts, fmt.Errorf("updating field %s: %w", rf.Key, err)
			}
			counts.Updated++
		}
	}

	active, err := s.database.GetFields(org)
	if err != nil {
		return counts, fmt.Errorf("listing fields: %w", err)
	}
	var gone []string
	for _, f := range active {
		if !seen[f.Key] {
			gone = append(gone, f.Key)
		}
	}
	if len(gone) > 0 {
		flipped, err := s.database.DeactivateFieldsByKey(org, gone)
		if err != nil {
			return counts, fmt.Errorf("deactivating fields: %w", err)
		}
		counts.Deleted += flipped
	}

	s.logger.Info("fields pulled", "org", org,
		"created", counts.Created, "updated", counts.Updated, "deleted", counts.Deleted)
	return counts, nil
}
