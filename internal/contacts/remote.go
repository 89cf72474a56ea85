package contacts

import (
	"context"

	"caseline/internal/remote"
)

// Remote is the service's view of the messaging platform's API. One Remote
// serves one org; the wiring layer supplies the right credentials.
type Remote interface {
	// Contacts opens a pager over contact snapshots matching the query.
	// Throttled pages are retried inside the pager; any error it surfaces
	// is final for the whole iteration.
	Contacts(q remote.ContactQuery) remote.ContactPager

	// Contact fetches a single contact snapshot. Returns an error wrapping
	// remote.ErrNotFound when the platform has no such contact.
	Contact(ctx context.Context, uuid string) (*remote.Contact, error)

	// Groups fetches all contact groups defined on the platform.
	Groups(ctx context.Context) ([]remote.Group, error)

	// Fields fetches all custom field definitions on the platform.
	Fields(ctx context.Context) ([]remote.Field, error)

	// AddToGroup adds a contact to a group on the platform.
	AddToGroup(ctx context.Context, contactUUID, groupUUID string) error

	// RemoveFromGroup removes a contact from a group on the platform.
	RemoveFromGroup(ctx context.Context, contactUUID, groupUUID string) error
}
