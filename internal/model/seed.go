package model

import (
	"maps"
	"slices"

	"caseline/internal/remote"
)

// Field value type codes, mapped from the remote platform's value types.
const (
	FieldTypeText     = "T"
	FieldTypeNumeric  = "N"
	FieldTypeDatetime = "D"
	FieldTypeState    = "S"
	FieldTypeDistrict = "I"
)

// FieldTypeFromRemote maps a remote value type to its local code.
// Unrecognized types are stored as text.
func FieldTypeFromRemote(valueType string) string {
	switch valueType {
	case "numeric":
		return FieldTypeNumeric
	case "datetime":
		return FieldTypeDatetime
	case "state":
		return FieldTypeState
	case "district":
		return FieldTypeDistrict
	default:
		return FieldTypeText
	}
}

// ContactSeed is the payload a record adapter distills from a remote
// snapshot. URNs and group memberships ride along as a first-class part of
// the seed and are persisted together with the record.
type ContactSeed struct {
	Name     string
	Language string
	URNs     []string
	Groups   []remote.Group
	Fields   map[string]string
}

// SeedFromRemote is the standard record adapter: blocked contacts are
// excluded from local storage and unset field values are dropped.
func SeedFromRemote(org string, rc remote.Contact) (*ContactSeed, error) {
	if rc.Blocked {
		return nil, nil
	}
	fields := make(map[string]string)
	for k, v := range rc.Fields {
		if v != "" {
			fields[k] = v
		}
	}
	return &ContactSeed{
		Name:     rc.Name,
		Language: rc.Language,
		URNs:     slices.Clone(rc.URNs),
		Groups:   slices.Clone(rc.Groups),
		Fields:   fields,
	}, nil
}

// Apply overwrites the synced attributes with the seed's values and
// reactivates the record. Identity, suspension state and bookkeeping
// fields are untouched.
func (c *Contact) Apply(seed *ContactSeed) {
	c.Name = seed.Name
	c.Language = seed.Language
	c.URNs = slices.Clone(seed.URNs)
	c.Groups = slices.Clone(seed.Groups)
	c.Fields = maps.Clone(seed.Fields)
	c.IsActive = true
	c.IsStub = false
}

// Remote projects the local record as a remote-shaped snapshot for
// comparison and merging.
func (c *Contact) Remote() remote.Contact {
	return remote.Contact{
		UUID:     c.UUID,
		Name:     c.Name,
		Language: c.Language,
		URNs:     slices.Clone(c.URNs),
		Groups:   slices.Clone(c.Groups),
		Fields:   maps.Clone(c.Fields),
	}
}
