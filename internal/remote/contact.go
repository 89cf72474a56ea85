package remote

import "time"

// Contact is a point-in-time snapshot of a contact on the remote platform.
// URNs use the "scheme:path" form (e.g. "tel:+250788123123"). Groups and
// URNs carry set semantics regardless of slice order.
type Contact struct {
	UUID       string            `json:"uuid"`
	Name       string            `json:"name"`
	Language   string            `json:"language"`
	URNs       []string          `json:"urns"`
	Groups     []Group           `json:"groups"`
	Fields     map[string]string `json:"fields"`
	Blocked    bool              `json:"blocked"`
	Stopped    bool              `json:"stopped"`
	CreatedOn  time.Time         `json:"created_on"`
	ModifiedOn time.Time         `json:"modified_on"`
}

// Group is a contact group on the remote platform. Count is only populated
// on group listing responses, not on the refs embedded in contacts.
type Group struct {
	UUID  string `json:"uuid"`
	Name  string `json:"name"`
	Count int64  `json:"count"`
}

// Field describes a custom contact field on the remote platform.
// ValueType is one of "text", "numeric", "datetime", "state", "district".
type Field struct {
	Key       string `json:"key"`
	Label     string `json:"label"`
	ValueType string `json:"value_type"`
}

// ContactQuery selects which contacts a listing request returns.
// Zero time bounds are omitted from the request.
type ContactQuery struct {
	// After/Before bound the remote modification time (inclusive).
	After  time.Time
	Before time.Time

	// Deleted switches to the deleted-contacts view, which returns stubs
	// carrying little more than the UUID.
	Deleted bool

	// UUID restricts the query to a single contact.
	UUID string
}
