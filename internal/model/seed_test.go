package model_test

import (
	"testing"

	"caseline/internal/model"
	"caseline/internal/remote"
)

func TestSeedFromRemote(t *testing.T) {
	t.Run("excludes blocked contacts", func(t *testing.T) {
		t.Parallel()
		seed, err := model.SeedFromRemote("org1", remote.Contact{UUID: "C-001", Blocked: true})
		if err != nil {
			t.Fatalf("SeedFromRemote() error = %v", err)
		}
		if seed != nil {
			t.Errorf("got seed %+v, want nil for blocked contact", seed)
		}
	})

	t.Run("drops unset field values", func(t *testing.T) {
		t.Parallel()
		rc := remote.Contact{
			UUID:     "C-001",
			Name:     "Ann",
			Language: "eng",
			URNs:     []string{"tel:+250788123123"},
			Fields:   map[string]string{"city": "Kigali", "nickname": ""},
			Groups:   []remote.Group{{UUID: "G-001", Name: "Reporters"}},
		}
		seed, err := model.SeedFromRemote("org1", rc)
		if err != nil {
			t.Fatalf("SeedFromRemote() error = %v", err)
		}
		if seed.Name != "Ann" || seed.Language != "eng" {
			t.Errorf("unexpected seed: %+v", seed)
		}
		if len(seed.URNs) != 1 || seed.URNs[0] != "tel:+250788123123" {
			t.Errorf("urns = %v", seed.URNs)
		}
		if _, ok := seed.Fields["nickname"]; ok {
			t.Error("empty field value should be dropped")
		}
		if seed.Fields["city"] != "Kigali" {
			t.Errorf("city = %q", seed.Fields["city"])
		}
		if len(seed.Groups) != 1 || seed.Groups[0].UUID != "G-001" {
			t.Errorf("groups = %+v", seed.Groups)
		}
	})

	t.Run("keeps stopped contacts", func(t *testing.T) {
		t.Parallel()
		seed, err := model.SeedFromRemote("org1", remote.Contact{UUID: "C-001", Stopped: true})
		if err != nil {
			t.Fatalf("SeedFromRemote() error = %v", err)
		}
		if seed == nil {
			t.Error("stopped contacts should still be synced")
		}
	})
}

func TestContact_Apply(t *testing.T) {
	t.Parallel()
	contact := &model.Contact{
		ID:              "id-1",
		OrgID:           "org1",
		UUID:            "C-001",
		Name:            "Old Name",
		Groups:          []remote.Group{{UUID: "G-OLD"}},
		SuspendedGroups: []remote.Group{{UUID: "G-SUS"}},
		IsActive:        false,
		IsStub:          true,
	}
	contact.Apply(&model.ContactSeed{
		Name:     "New Name",
		Language: "fra",
		URNs:     []string{"tel:+250788000001"},
		Groups:   []remote.Group{{UUID: "G-NEW", Name: "New"}},
		Fields:   map[string]string{"age": "32"},
	})

	if contact.Name != "New Name" || contact.Language != "fra" {
		t.Errorf("unexpected contact after apply: %+v", contact)
	}
	if len(contact.URNs) != 1 || contact.URNs[0] != "tel:+250788000001" {
		t.Errorf("urns = %v", contact.URNs)
	}
	if !contact.IsActive {
		t.Error("apply should reactivate the record")
	}
	if contact.IsStub {
		t.Error("apply should clear the stub flag")
	}
	if len(contact.Groups) != 1 || contact.Groups[0].UUID != "G-NEW" {
		t.Errorf("groups = %+v", contact.Groups)
	}
	if len(contact.SuspendedGroups) != 1 || contact.SuspendedGroups[0].UUID != "G-SUS" {
		t.Errorf("suspended groups should be untouched, got %+v", contact.SuspendedGroups)
	}
	if contact.ID != "id-1" || contact.UUID != "C-001" {
		t.Error("identity fields should be untouched")
	}
}

func TestContact_Remote(t *testing.T) {
	t.Parallel()
	contact := &model.Contact{
		OrgID:    "org1",
		UUID:     "C-001",
		Name:     "Ann",
		Language: "eng",
		URNs:     []string{"tel:+250788123123"},
		Groups:   []remote.Group{{UUID: "G-001", Name: "Reporters"}},
		Fields:   map[string]string{"city": "Kigali"},
	}
	rc := contact.Remote()

	if rc.UUID != "C-001" || rc.Name != "Ann" || rc.Language != "eng" {
		t.Errorf("unexpected projection: %+v", rc)
	}
	if len(rc.URNs) != 1 || rc.URNs[0] != "tel:+250788123123" {
		t.Errorf("urns = %v", rc.URNs)
	}
	if len(rc.Groups) != 1 || rc.Groups[0].UUID != "G-001" {
		t.Errorf("groups = %+v", rc.Groups)
	}

	// projection owns its collections
	rc.Groups[0].UUID = "G-MUTATED"
	rc.Fields["city"] = "mutated"
	if contact.Groups[0].UUID != "G-001" || contact.Fields["city"] != "Kigali" {
		t.Error("mutating the projection should not touch the record")
	}
}

func TestFieldTypeFromRemote(t *testing.T) {
	t.Parallel()
	cases := []struct {
		remoteType string
		want       string
	}{
		{"text", model.FieldTypeText},
		{"numeric", model.FieldTypeNumeric},
		{"datetime", model.FieldTypeDatetime},
		{"state", model.FieldTypeState},
		{"district", model.FieldTypeDistrict},
		{"ward", model.FieldTypeText},
	}
	for _, tc := range cases {
		if got := model.FieldTypeFromRemote(tc.remoteType); got != tc.want {
			t.Errorf("FieldTypeFromRemote(%q) = %q, want %q", tc.remoteType, got, tc.want)
		}
	}
}
