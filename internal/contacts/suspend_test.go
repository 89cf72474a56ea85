package contacts_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"caseline/internal/contacts"
	"caseline/internal/model"
	"caseline/internal/remote"
	"caseline/internal/testutil"
)

// seedSuspendFixtures stores a suspend-from group, a regular group and a
// contact belonging to both.
func seedSuspendFixtures(t *testing.T, ts *testService) {
	t.Helper()
	storeGroup(t, ts.db, &model.Group{
		ID: "g-1", OrgID: testOrg, UUID: "G-SUS", Name: "Polls",
		IsActive: true, SuspendFrom: true, CreatedAt: ts.clock.Now(),
	})
	storeGroup(t, ts.db, &model.Group{
		ID: "g-2", OrgID: testOrg, UUID: "G-REG", Name: "Reporters",
		IsActive: true, CreatedAt: ts.clock.Now(),
	})
	storeContact(t, ts.db, &model.Contact{
		ID: "c-1", OrgID: testOrg, UUID: "C-001", Name: "Ann",
		Groups: []remote.Group{
			{UUID: "G-SUS", Name: "Polls"},
			{UUID: "G-REG", Name: "Reporters"},
		},
		IsActive: true, CreatedAt: ts.clock.Now(),
	})
}

func TestService_SuspendFromGroups(t *testing.T) {
	ctx := context.Background()

	t.Run("parks memberships in suspend-from groups", func(t *testing.T) {
		ts := newTestService(t)
		seedSuspendFixtures(t, ts)

		if err := ts.svc.SuspendFromGroups(ctx, testOrg, "C-001"); err != nil {
			t.Fatalf("SuspendFromGroups() error = %v", err)
		}

		got := loadContact(t, ts.db, testOrg, "C-001")
		if len(got.Groups) != 1 || got.Groups[0].UUID != "G-REG" {
			t.Errorf("Groups = %v, want just G-REG", got.Groups)
		}
		if len(got.SuspendedGroups) != 1 || got.SuspendedGroups[0].UUID != "G-SUS" {
			t.Errorf("SuspendedGroups = %v, want just G-SUS", got.SuspendedGroups)
		}

		want := []testutil.GroupCall{{ContactUUID: "C-001", GroupUUID: "G-SUS"}}
		if len(ts.remote.RemovedFrom) != 1 || ts.remote.RemovedFrom[0] != want[0] {
			t.Errorf("platform removals = %v, want %v", ts.remote.RemovedFrom, want)
		}
	})

	t.Run("suspending twice is an error", func(t *testing.T) {
		ts := newTestService(t)
		seedSuspendFixtures(t, ts)

		if err := ts.svc.SuspendFromGroups(ctx, testOrg, "C-001"); err != nil {
			t.Fatalf("first SuspendFromGroups() error = %v", err)
		}
		err := ts.svc.SuspendFromGroups(ctx, testOrg, "C-001")
		if err == nil || !strings.Contains(err.Error(), "already suspended") {
			t.Errorf("second SuspendFromGroups() error = %v, want already suspended", err)
		}
	})

	t.Run("contact outside every suspend-from group is left alone", func(t *testing.T) {
		ts := newTestService(t)
		seedSuspendFixtures(t, ts)
		storeContact(t, ts.db, &model.Contact{
			ID: "c-2", OrgID: testOrg, UUID: "C-002", Name: "Bob",
			Groups:   []remote.Group{{UUID: "G-REG", Name: "Reporters"}},
			IsActive: true, CreatedAt: ts.clock.Now(),
		})

		if err := ts.svc.SuspendFromGroups(ctx, testOrg, "C-002"); err != nil {
			t.Fatalf("SuspendFromGroups() error = %v", err)
		}

		got := loadContact(t, ts.db, testOrg, "C-002")
		if len(got.Groups) != 1 || len(got.SuspendedGroups) != 0 {
			t.Errorf("contact = %+v, want memberships untouched", got)
		}
		if len(ts.remote.RemovedFrom) != 0 {
			t.Errorf("platform removals = %v, want none", ts.remote.RemovedFrom)
		}
	})

	t.Run("unknown contact reports not found", func(t *testing.T) {
		ts := newTestService(t)

		err := ts.svc.SuspendFromGroups(ctx, testOrg, "C-404")
		if !errors.Is(err, contacts.ErrNotFound) {
			t.Errorf("SuspendFromGroups() error = %v, want ErrNotFound", err)
		}
	})

	t.Run("platform failure leaves the membership parked locally", func(t *testing.T) {
		ts := newTestService(t)
		seedSuspendFixtures(t, ts)
		ts.remote.RemoveErr = errors.New("api returned status 502")

		err := ts.svc.SuspendFromGroups(ctx, testOrg, "C-001")
		if err == nil || !strings.Contains(err.Error(), "removing contact") {
			t.Errorf("SuspendFromGroups() error = %v, want removing contact", err)
		}

		// Local state records the suspension; restore brings it back once
		// the platform recovers.
		got := loadContact(t, ts.db, testOrg, "C-001")
		if len(got.SuspendedGroups) != 1 {
			t.Errorf("SuspendedGroups = %v, want the parked group", got.SuspendedGroups)
		}
	})
}

func TestService_RestoreGroups(t *testing.T) {
	ctx := context.Background()

	t.Run("returns parked memberships", func(t *testing.T) {
		ts := newTestService(t)
		seedSuspendFixtures(t, ts)
		if err := ts.svc.SuspendFromGroups(ctx, testOrg, "C-001"); err != nil {
			t.Fatalf("SuspendFromGroups() error = %v", err)
		}

		if err := ts.svc.RestoreGroups(ctx, testOrg, "C-001"); err != nil {
			t.Fatalf("RestoreGroups() error = %v", err)
		}

		got := loadContact(t, ts.db, testOrg, "C-001")
		if len(got.Groups) != 2 {
			t.Fatalf("Groups = %v, want both memberships back", got.Groups)
		}
		if len(got.SuspendedGroups) != 0 {
			t.Errorf("SuspendedGroups = %v, want empty", got.SuspendedGroups)
		}

		want := testutil.GroupCall{ContactUUID: "C-001", GroupUUID: "G-SUS"}
		if len(ts.remote.AddedTo) != 1 || ts.remote.AddedTo[0] != want {
			t.Errorf("platform additions = %v, want %v", ts.remote.AddedTo, want)
		}
	})

	t.Run("restoring with nothing parked is a no-op", func(t *testing.T) {
		ts := newTestService(t)
		seedSuspendFixtures(t, ts)

		if err := ts.svc.RestoreGroups(ctx, testOrg, "C-001"); err != nil {
			t.Fatalf("RestoreGroups() error = %v", err)
		}
		if len(ts.remote.AddedTo) != 0 {
			t.Errorf("platform additions = %v, want none", ts.remote.AddedTo)
		}
	})

	t.Run("unknown contact reports not found", func(t *testing.T) {
		ts := newTestService(t)

		err := ts.svc.RestoreGroups(ctx, testOrg, "C-404")
		if !errors.Is(err, contacts.ErrNotFound) {
			t.Errorf("RestoreGroups() error = %v, want ErrNotFound", err)
		}
	})

	t.Run("suspend and restore round-trips across runs", func(t *testing.T) {
		ts := newTestService(t)
		seedSuspendFixtures(t, ts)

		for i := 0; i < 2; i++ {
			if err := ts.svc.SuspendFromGroups(ctx, testOrg, "C-001"); err != nil {
				t.Fatalf("SuspendFromGroups() error = %v", err)
			}
			if err := ts.svc.RestoreGroups(ctx, testOrg, "C-001"); err != nil {
				t.Fatalf("RestoreGroups() error = %v", err)
			}
		}

		got := loadContact(t, ts.db, testOrg, "C-001")
		if len(got.Groups) != 2 || len(got.SuspendedGroups) != 0 {
			t.Errorf("contact = %+v, want both memberships live", got)
		}
	})
}
