package contacts

import (
	"fmt"
	"maps"
	"slices"
	"strings"

	"caseline/internal/remote"
)

// MergeContacts combines two snapshots of the same contact into one,
// with the primary winning every conflict: its name is kept outright, its
// URN path wins per scheme and its field values win per key. Group
// memberships honor the mutually-exclusive sets (lists of group UUIDs,
// applied in order): each set contributes at most one group, preferring the
// primary's first match. Neither input is mutated; the result owns fresh
// collections. Merged URNs come back stably sorted.
func MergeContacts(primary, secondary remote.Contact, mutexGroups [][]string) (remote.Contact, error) {
	if primary.UUID != secondary.UUID {
		return remote.Contact{}, fmt.Errorf("%w: %s vs %s", ErrUUIDMismatch, primary.UUID, secondary.UUID)
	}

	// URNs keyed by scheme; within one side a later URN of the same scheme
	// supersedes an earlier one, and the primary's path wins across sides.
	urnsByScheme := make(map[string]string)
	for _, urn := range secondary.URNs {
		scheme, path := splitURN(urn)
		urnsByScheme[scheme] = path
	}
	for _, urn := range primary.URNs {
		scheme, path := splitURN(urn)
		urnsByScheme[scheme] = path
	}
	urns := make([]string, 0, len(urnsByScheme))
	for scheme, path := range urnsByScheme {
		urns = append(urns, scheme+":"+path)
	}
	slices.Sort(urns)

	fields := maps.Clone(secondary.Fields)
	if fields == nil {
		fields = make(map[string]string)
	}
	maps.Copy(fields, primary.Fields)

	merged := primary
	merged.URNs = urns
	merged.Fields = fields
	merged.Groups = mergeGroups(primary.Groups, secondary.Groups, mutexGroups)
	return merged, nil
}

// mergeGroups resolves membership in two phases: each mutually-exclusive set
// picks its single survivor first, then every remaining group from either
// side is carried over, primary's groups ahead of the secondary's. Every
// UUID of a processed set counts as resolved whether or not it was held, and
// shared groups are carried once with the primary's ref winning.
func mergeGroups(primary, secondary []remote.Group, mutexGroups [][]string) []remote.Group {
	merged := make([]remote.Group, 0, len(primary)+len(secondary))
	resolved := make(map[string]bool)

	for _, set := range mutexGroups {
		if g, ok := firstInSet(primary, set); ok {
			merged = append(merged, g)
		} else if g, ok := firstInSet(secondary, set); ok {
			merged = append(merged, g)
		}
		for _, uuid := range set {
			resolved[uuid] = true
		}
	}

	for _, g := range primary {
		if !resolved[g.UUID] {
			merged = append(merged, g)
			resolved[g.UUID] = true
		}
	}
	for _, g := range secondary {
		if !resolved[g.UUID] {
			merged = append(merged, g)
			resolved[g.UUID] = true
		}
	}
	return merged
}

func firstInSet(groups []remote.Group, set []string) (remote.Group, bool) {
	for _, g := range groups {
		if slices.Contains(set, g.UUID) {
			return g, true
		}
	}
	return remote.Group{}, false
}

// splitURN separates "scheme:path" at the first colon.
func splitURN(urn string) (scheme, path string) {
	scheme, path, _ = strings.Cut(urn, ":")
	return scheme, path
}
