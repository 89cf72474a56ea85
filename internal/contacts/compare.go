package contacts

import (
	"errors"
	"fmt"
	"maps"
	"slices"

	"caseline/internal/remote"
)

// ErrUUIDMismatch means two snapshots claimed to describe the same contact
// but carried different identities. Comparing or merging across identities
// is a programming error, never a data condition.
var ErrUUIDMismatch = errors.New("contact UUIDs do not match")

// Diff identifies the first attribute on which two contact snapshots differ.
type Diff string

const (
	DiffNone   Diff = ""
	DiffName   Diff = "name"
	DiffURNs   Diff = "urns"
	DiffGroups Diff = "groups"
	DiffFields Diff = "fields"
)

// CompareOptions scope a comparison. A nil Groups or Fields slice compares
// the whole attribute; a non-nil slice restricts the comparison to the
// listed group UUIDs or field keys. An empty non-nil slice restricts it to
// nothing, so that attribute can never register a difference.
type CompareOptions struct {
	IncludeURNs bool
	Groups      []string
	Fields      []string
}

// CompareContacts returns the first attribute on which the two snapshots
// differ, checking name, then URNs (only when IncludeURNs), then groups,
// then fields. URNs and groups carry set semantics; slice order never
// matters. Language and the remote state flags are not compared.
func CompareContacts(first, second remote.Contact, opt CompareOptions) (Diff, error) {
	if first.UUID != second.UUID {
		return DiffNone, fmt.Errorf("%w: %s vs %s", ErrUUIDMismatch, first.UUID, second.UUID)
	}
	if first.Name != second.Name {
		return DiffName, nil
	}
	if opt.IncludeURNs && !equalSets(first.URNs, second.URNs) {
		return DiffURNs, nil
	}
	if !equalSets(scopedGroups(first.Groups, opt.Groups), scopedGroups(second.Groups, opt.Groups)) {
		return DiffGroups, nil
	}
	if !maps.Equal(scopedFields(first.Fields, opt.Fields), scopedFields(second.Fields, opt.Fields)) {
		return DiffFields, nil
	}
	return DiffNone, nil
}

// scopedGroups extracts the group UUIDs under the scope: all of them when
// the scope is nil, otherwise only those the scope lists.
func scopedGroups(groups []remote.Group, scope []string) []string {
	uuids := make([]string, 0, len(groups))
	for _, g := range groups {
		if scope == nil || slices.Contains(scope, g.UUID) {
			uuids = append(uuids, g.UUID)
		}
	}
	return uuids
}

// scopedFields restricts the field map to the scope's keys. A key the scope
// lists but only one side carries still registers as a difference.
func scopedFields(fields map[string]string, scope []string) map[string]string {
	if scope == nil {
		return fields
	}
	scoped := make(map[string]string, len(scope))
	for _, key := range scope {
		if v, ok := fields[key]; ok {
			scoped[key] = v
		}
	}
	return scoped
}

func equalSets(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	as := slices.Clone(a)
	bs := slices.Clone(b)
	slices.Sort(as)
	slices.Sort(bs)
	return slices.Equal(as, bs)
}
