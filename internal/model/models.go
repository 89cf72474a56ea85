package model

import (
	"time"

	"caseline/internal/remote"
)

// Sync run kinds.
const (
	SyncKindContacts = "contacts"
	SyncKindGroups   = "groups"
	SyncKindFields   = "fields"
)

// Sync run statuses.
const (
	RunStatusRunning = "running"
	RunStatusOK      = "ok"
	RunStatusFailed  = "failed"
)

// Export statuses.
const (
	ExportStatusPending = "pending" // Built and spooled, not yet in the vault
	ExportStatusPushed  = "pushed"  // Uploaded to the vault
)

// Contact mirrors one remote contact for a single org.
// Deactivation is always a flag flip; rows are never deleted.
type Contact struct {
	ID              string         // UUID (local PK, not the remote identity)
	OrgID           string         // Owning org
	UUID            string         // Remote identity, unique per org
	Name            string         // Display name ("" = unset)
	Language        string         // Preferred language ("" = unset)
	URNs            []string       // Contact addresses, "scheme:path" (set semantics)
	Groups          []remote.Group // Current group memberships (remote refs)
	SuspendedGroups []remote.Group // Memberships parked while a case is open
	Fields          map[string]string
	IsActive        bool
	IsStub          bool // Created locally before the contact was ever synced
	CreatedAt       time.Time
}

// Group mirrors one remote contact group for a single org.
type Group struct {
	ID          string // UUID (local PK, not the remote identity)
	OrgID       string
	UUID        string // Remote identity, unique per org
	Name        string
	Count       int64 // Remote member count at last sync
	IsActive    bool
	IsVisible   bool // Whether partner users see this group
	SuspendFrom bool // Contacts leave this group while they have an open case
	CreatedAt   time.Time
}

// Field mirrors one remote custom field definition for a single org.
type Field struct {
	ID        string // UUID (local PK)
	OrgID     string
	Key       string // Remote identity, unique per org
	Label     string
	ValueType string // FieldType* code
	IsActive  bool
	IsVisible bool // Whether partner users see this field
}

// SyncRun records one pull invocation for one org.
type SyncRun struct {
	ID         string // UUID
	OrgID      string
	Kind       string // SyncKind*
	StartedAt  time.Time
	FinishedAt time.Time // Zero while the run is in flight
	Created    int
	Updated    int
	Deleted    int
	Status     string // RunStatus*
	Error      string
}

// Export records one built contact export and where it lives.
type Export struct {
	ID        string // UUID
	OrgID     string
	Key       string // Object key in the vault
	Size      int64  // Plaintext size in bytes
	Checksum  string // SHA-256 of the plaintext CSV
	Status    string // ExportStatus*
	CreatedAt time.Time
}
