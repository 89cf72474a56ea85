package testutil

import (
	"context"
	"fmt"
	"io"

	"caseline/internal/contacts"
	"caseline/internal/remote"
)

// GroupCall records one group membership change requested on the remote.
type GroupCall struct {
	ContactUUID string
	GroupUUID   string
}

// FakeRemote is a scripted contacts.Remote for service tests. Zero value is
// usable: every listing is empty and single-contact lookups report not found.
type FakeRemote struct {
	// ContactPages are served, one slice per page, to modified-contact
	// queries. DeletedPages are served to deleted-contact queries.
	ContactPages [][]remote.Contact
	DeletedPages [][]remote.Contact

	// ContactsErr/DeletedErr are surfaced by the pager once its scripted
	// pages run out, in place of the end of iteration.
	ContactsErr error
	DeletedErr  error

	GroupList []remote.Group
	GroupsErr error

	FieldList []remote.Field
	FieldsErr error

	// ContactByUUID backs single-contact lookups. UUIDs not present report
	// remote.ErrNotFound.
	ContactByUUID map[string]*remote.Contact
	ContactErr    error

	AddErr    error
	RemoveErr error

	// Queries records every Contacts call. AddedTo and RemovedFrom record
	// group membership calls in order.
	Queries     []remote.ContactQuery
	AddedTo     []GroupCall
	RemovedFrom []GroupCall
}

var _ contacts.Remote = (*FakeRemote)(nil)

func (f *FakeRemote) Contacts(q remote.ContactQuery) remote.ContactPager {
	f.Queries = append(f.Queries, q)
	if q.Deleted {
		return &fakePager{pages: f.DeletedPages, err: f.DeletedErr}
	}
	return &fakePager{pages: f.ContactPages, err: f.ContactsErr}
}

func (f *FakeRemote) Contact(ctx context.Context, uuid string) (*remote.Contact, error) {
	if f.ContactErr != nil {
		return nil, f.ContactErr
	}
	contact, ok := f.ContactByUUID[uuid]
	if !ok {
		return nil, fmt.Errorf("contact %s: %w", uuid, remote.ErrNotFound)
	}
	return contact, nil
}

func (f *FakeRemote) Groups(ctx context.Context) ([]remote.Group, error) {
	if f.GroupsErr != nil {
		return nil, f.GroupsErr
	}
	return f.GroupList, nil
}

func (f *FakeRemote) Fields(ctx context.Context) ([]remote.Field, error) {
	if f.FieldsErr != nil {
		return nil, f.FieldsErr
	}
	return f.FieldList, nil
}

func (f *FakeRemote) AddToGroup(ctx context.Context, contactUUID, groupUUID string) error {
	if f.AddErr != nil {
		return f.AddErr
	}
	f.AddedTo = append(f.AddedTo, GroupCall{ContactUUID: contactUUID, GroupUUID: groupUUID})
	return nil
}

func (f *FakeRemote) RemoveFromGroup(ctx context.Context, contactUUID, groupUUID string) error {
	if f.RemoveErr != nil {
		return f.RemoveErr
	}
	f.RemovedFrom = append(f.RemovedFrom, GroupCall{ContactUUID: contactUUID, GroupUUID: groupUUID})
	return nil
}

type fakePager struct {
	pages [][]remote.Contact
	err   error
	next  int
}

func (p *fakePager) Next(ctx context.Context) ([]remote.Contact, error) {
	if p.next < len(p.pages) {
		page := p.pages[p.next]
		p.next++
		return page, nil
	}
	if p.err != nil {
		return nil, p.err
	}
	return nil, io.EOF
}
