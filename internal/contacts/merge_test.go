package contacts_test

import (
	"errors"
	"reflect"
	"testing"

	"caseline/internal/contacts"
	"caseline/internal/remote"
)

func TestMergeContacts(t *testing.T) {
	t.Run("rejects snapshots with different UUIDs", func(t *testing.T) {
		t.Parallel()
		_, err := contacts.MergeContacts(
			remote.Contact{UUID: "C-001"},
			remote.Contact{UUID: "C-002"},
			nil,
		)
		if !errors.Is(err, contacts.ErrUUIDMismatch) {
			t.Errorf("err = %v, want ErrUUIDMismatch", err)
		}
	})

	t.Run("keeps the primary name and merges URNs by scheme", func(t *testing.T) {
		t.Parallel()
		primary := remote.Contact{
			UUID: "C-001",
			Name: "Ann",
			URNs: []string{"tel:+250788111111", "twitter:ann"},
		}
		secondary := remote.Contact{
			UUID: "C-001",
			Name: "Annie",
			URNs: []string{"tel:+250788222222", "mailto:ann@example.org"},
		}

		merged, err := contacts.MergeContacts(primary, secondary, nil)
		if err != nil {
			t.Fatalf("MergeContacts() error = %v", err)
		}
		if merged.UUID != "C-001" || merged.Name != "Ann" {
			t.Errorf("unexpected identity/name: %+v", merged)
		}
		wantURNs := []string{"mailto:ann@example.org", "tel:+250788111111", "twitter:ann"}
		if !reflect.DeepEqual(merged.URNs, wantURNs) {
			t.Errorf("URNs = %v, want %v", merged.URNs, wantURNs)
		}
	})

	t.Run("within one side a later URN supersedes an earlier one of the same scheme", func(t *testing.T) {
		t.Parallel()
		primary := remote.Contact{UUID: "C-001", URNs: []string{"tel:+111", "tel:+222"}}
		secondary := remote.Contact{UUID: "C-001"}

		merged, err := contacts.MergeContacts(primary, secondary, nil)
		if err != nil {
			t.Fatalf("MergeContacts() error = %v", err)
		}
		if !reflect.DeepEqual(merged.URNs, []string{"tel:+222"}) {
			t.Errorf("URNs = %v, want the later tel to win", merged.URNs)
		}
	})

	t.Run("merges fields with primary values winning", func(t *testing.T) {
		t.Parallel()
		primary := remote.Contact{UUID: "C-001", Fields: map[string]string{"city": "Kigali"}}
		secondary := remote.Contact{UUID: "C-001", Fields: map[string]string{"city": "Huye", "age": "32"}}

		merged, err := contacts.MergeContacts(primary, secondary, nil)
		if err != nil {
			t.Fatalf("MergeContacts() error = %v", err)
		}
		want := map[string]string{"city": "Kigali", "age": "32"}
		if !reflect.DeepEqual(merged.Fields, want) {
			t.Errorf("Fields = %v, want %v", merged.Fields, want)
		}
	})

	t.Run("mutually exclusive set keeps only the primary's group", func(t *testing.T) {
		t.Parallel()
		primary := remote.Contact{UUID: "C-001", Groups: []remote.Group{{UUID: "G-A", Name: "A"}}}
		secondary := remote.Contact{UUID: "C-001", Groups: []remote.Group{{UUID: "G-B", Name: "B"}}}

		merged, err := contacts.MergeContacts(primary, secondary, [][]string{{"G-A", "G-B"}})
		if err != nil {
			t.Fatalf("MergeContacts() error = %v", err)
		}
		if len(merged.Groups) != 1 || merged.Groups[0].UUID != "G-A" {
			t.Errorf("Groups = %+v, want only the primary's G-A", merged.Groups)
		}
	})

	t.Run("mutually exclusive set falls back to the secondary", func(t *testing.T) {
		t.Parallel()
		primary := remote.Contact{UUID: "C-001"}
		secondary := remote.Contact{UUID: "C-001", Groups: []remote.Group{{UUID: "G-B", Name: "B"}}}

		merged, err := contacts.MergeContacts(primary, secondary, [][]string{{"G-A", "G-B"}})
		if err != nil {
			t.Fatalf("MergeContacts() error = %v", err)
		}
		if len(merged.Groups) != 1 || merged.Groups[0].UUID != "G-B" {
			t.Errorf("Groups = %+v, want the secondary's G-B", merged.Groups)
		}
	})

	t.Run("set members are resolved even when neither side holds one", func(t *testing.T) {
		t.Parallel()
		primary := remote.Contact{UUID: "C-001", Groups: []remote.Group{{UUID: "G-X"}}}
		secondary := remote.Contact{UUID: "C-001", Groups: []remote.Group{{UUID: "G-Y"}}}

		merged, err := contacts.MergeContacts(primary, secondary, [][]string{{"G-A", "G-B"}})
		if err != nil {
			t.Fatalf("MergeContacts() error = %v", err)
		}
		uuids := groupUUIDs(merged.Groups)
		if !reflect.DeepEqual(uuids, []string{"G-X", "G-Y"}) {
			t.Errorf("Groups = %v, want unaffected groups carried primary-first", uuids)
		}
	})

	t.Run("shared groups are carried once", func(t *testing.T) {
		t.Parallel()
		primary := remote.Contact{UUID: "C-001", Groups: []remote.Group{{UUID: "G-X", Name: "X primary"}}}
		secondary := remote.Contact{UUID: "C-001", Groups: []remote.Group{{UUID: "G-X", Name: "X secondary"}}}

		merged, err := contacts.MergeContacts(primary, secondary, nil)
		if err != nil {
			t.Fatalf("MergeContacts() error = %v", err)
		}
		if len(merged.Groups) != 1 || merged.Groups[0].Name != "X primary" {
			t.Errorf("Groups = %+v, want the primary's ref once", merged.Groups)
		}
	})

	t.Run("merging a snapshot with itself changes nothing", func(t *testing.T) {
		t.Parallel()
		c := fullContact()
		merged, err := contacts.MergeContacts(c, c, [][]string{{"G-001", "G-999"}})
		if err != nil {
			t.Fatalf("MergeContacts() error = %v", err)
		}
		if merged.Name != c.Name || merged.Language != c.Language {
			t.Errorf("merged = %+v", merged)
		}
		if !reflect.DeepEqual(merged.URNs, []string{"tel:+250788123123", "twitter:ann"}) {
			t.Errorf("URNs = %v", merged.URNs)
		}
		if !reflect.DeepEqual(groupUUIDs(merged.Groups), []string{"G-001", "G-002"}) {
			t.Errorf("Groups = %v", groupUUIDs(merged.Groups))
		}
		if !reflect.DeepEqual(merged.Fields, c.Fields) {
			t.Errorf("Fields = %v", merged.Fields)
		}
	})

	t.Run("does not mutate its inputs", func(t *testing.T) {
		t.Parallel()
		primary := fullContact()
		secondary := fullContact()
		secondary.Name = "Other"
		secondary.URNs = []string{"tel:+250788999999"}
		secondary.Fields = map[string]string{"city": "Huye"}

		wantPrimary := fullContact()

		merged, err := contacts.MergeContacts(primary, secondary, [][]string{{"G-001", "G-002"}})
		if err != nil {
			t.Fatalf("MergeContacts() error = %v", err)
		}
		merged.Fields["city"] = "mutated"
		if len(merged.Groups) > 0 {
			merged.Groups[0].Name = "mutated"
		}

		if !reflect.DeepEqual(primary, wantPrimary) {
			t.Errorf("primary mutated: %+v", primary)
		}
		if !reflect.DeepEqual(secondary.Fields, map[string]string{"city": "Huye"}) {
			t.Errorf("secondary mutated: %+v", secondary.Fields)
		}
	})
}

func groupUUIDs(groups []remote.Group) []string {
	uuids := make([]string, 0, len(groups))
	for _, g := range groups {
		uuids = append(uuids, g.UUID)
	}
	return uuids
}
