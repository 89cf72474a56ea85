package contacts

import "caseline/internal/model"

// Database provides metadata storage for synced contact data.
// Lookups that find nothing return a nil record and a nil error.
// Deactivation always flips the is-active flag; rows are never deleted.
type Database interface {
	// Contact operations

	// FindContact returns an org's contact by remote identity, active or not.
	FindContact(org, uuid string) (*model.Contact, error)

	// FindContactsByUUID bulk-loads an org's contacts by remote identity,
	// active or not.
	FindContactsByUUID(org string, uuids []string) ([]*model.Contact, error)

	// CreateContact persists a new contact record.
	CreateContact(contact *model.Contact) error

	// UpdateContact overwrites a contact record, including its group
	// memberships and suspended set.
	UpdateContact(contact *model.Contact) error

	// DeactivateContacts flags contacts inactive by primary key.
	DeactivateContacts(ids []string) error

	// DeactivateContactsByUUID flags an org's active contacts with the given
	// remote identities inactive, returning how many rows actually flipped.
	DeactivateContactsByUUID(org string, uuids []string) (int, error)

	// ListContacts pages an org's active non-stub contacts in primary key
	// order: up to limit records with ID greater than afterID.
	ListContacts(org, afterID string, limit int) ([]*model.Contact, error)

	// CountContacts returns how many of an org's contacts are active and how
	// many of those are stubs.
	CountContacts(org string) (total, stubs int, err error)

	// Group operations

	// GetGroups returns an org's active groups ordered by name.
	GetGroups(org string) ([]*model.Group, error)

	// FindGroup returns an org's group by remote identity, active or not.
	FindGroup(org, uuid string) (*model.Group, error)

	// CreateGroup persists a new group record.
	CreateGroup(group *model.Group) error

	// UpdateGroup overwrites a group record.
	UpdateGroup(group *model.Group) error

	// DeactivateGroupsByUUID flags an org's active groups with the given
	// remote identities inactive, returning how many rows flipped.
	DeactivateGroupsByUUID(org string, uuids []string) (int, error)

	// Field operations

	// GetFields returns an org's active fields ordered by key.
	GetFields(org string) ([]*model.Field, error)

	// FindField returns an org's field by key, active or not.
	FindField(org, key string) (*model.Field, error)

	CreateField(field *model.Field) error
	UpdateField(field *model.Field) error

	// DeactivateFieldsByKey flags an org's active fields with the given keys
	// inactive, returning how many rows flipped.
	DeactivateFieldsByKey(org string, keys []string) (int, error)

	// Sync run operations

	CreateSyncRun(run *model.SyncRun) error
	UpdateSyncRun(run *model.SyncRun) error

	// ListSyncRuns returns an org's most recent runs, newest first.
	// kind "" lists all kinds.
	ListSyncRuns(org, kind string, limit int) ([]*model.SyncRun, error)

	// LatestSyncRun returns an org's most recent run of one kind.
	LatestSyncRun(org, kind string) (*model.SyncRun, error)

	// Export operations

	CreateExport(export *model.Export) error
	UpdateExportStatus(id, status string) error
	FindExport(org, id string) (*model.Export, error)

	// ListExports returns an org's most recent exports, newest first.
	ListExports(org string, limit int) ([]*model.Export, error)

	// Close closes the database connection.
	Close() error
}
