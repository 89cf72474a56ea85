package remote

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestClientContacts(t *testing.T) {
	t.Run("follows cursor pagination to the end", func(t *testing.T) {
		var gotAuth string
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotAuth = r.Header.Get("Authorization")
			if r.URL.Path != "/api/v2/contacts.json" {
				t.Errorf("unexpected path %q", r.URL.Path)
			}
			if r.URL.Query().Get("cursor") == "" {
				next := fmt.Sprintf("http://%s/api/v2/contacts.json?cursor=p2", r.Host)
				writeJSON(t, w, map[string]any{
					"next": next,
					"results": []map[string]any{
						{"uuid": "C-001", "name": "Ann", "urns": []string{"tel:+1234"}},
						{"uuid": "C-002", "name": "Bob"},
					},
				})
				return
			}
			writeJSON(t, w, map[string]any{
				"next":    nil,
				"results": []map[string]any{{"uuid": "C-003"}},
			})
		}))
		defer server.Close()

		client := NewClient(server.URL, "sesame")
		pager := client.Contacts(ContactQuery{})

		first, err := pager.Next(context.Background())
		if err != nil {
			t.Fatalf("first page: %v", err)
		}
		if len(first) != 2 || first[0].UUID != "C-001" || first[0].Name != "Ann" {
			t.Errorf("unexpected first page: %+v", first)
		}
		if gotAuth != "Token sesame" {
			t.Errorf("auth header = %q, want token auth", gotAuth)
		}

		second, err := pager.Next(context.Background())
		if err != nil {
			t.Fatalf("second page: %v", err)
		}
		if len(second) != 1 || second[0].UUID != "C-003" {
			t.Errorf("unexpected second page: %+v", second)
		}

		if _, err := pager.Next(context.Background()); err != io.EOF {
			t.Errorf("after last page err = %v, want io.EOF", err)
		}
	})

	t.Run("encodes query window and deleted view", func(t *testing.T) {
		var gotQuery map[string]string
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotQuery = map[string]string{
				"after":   r.URL.Query().Get("after"),
				"before":  r.URL.Query().Get("before"),
				"deleted": r.URL.Query().Get("deleted"),
			}
			writeJSON(t, w, map[string]any{"next": nil, "results": []any{}})
		}))
		defer server.Close()

		client := NewClient(server.URL, "sesame")
		q := ContactQuery{
			After:   time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC),
			Before:  time.Date(2024, 1, 16, 0, 0, 0, 0, time.UTC),
			Deleted: true,
		}
		if _, err := client.Contacts(q).Next(context.Background()); err != nil {
			t.Fatalf("fetch: %v", err)
		}
		if gotQuery["after"] != "2024-01-15T10:30:00Z" {
			t.Errorf("after = %q", gotQuery["after"])
		}
		if gotQuery["before"] != "2024-01-16T00:00:00Z" {
			t.Errorf("before = %q", gotQuery["before"])
		}
		if gotQuery["deleted"] != "true" {
			t.Errorf("deleted = %q", gotQuery["deleted"])
		}
	})

	t.Run("retries a throttled page and then succeeds", func(t *testing.T) {
		var calls int
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls++
			if calls == 1 {
				w.Header().Set("Retry-After", "1")
				w.WriteHeader(http.StatusTooManyRequests)
				return
			}
			writeJSON(t, w, map[string]any{"next": nil, "results": []map[string]any{{"uuid": "C-001"}}})
		}))
		defer server.Close()

		client := NewClient(server.URL, "sesame")
		batch, err := client.Contacts(ContactQuery{}).Next(context.Background())
		if err != nil {
			t.Fatalf("fetch: %v", err)
		}
		if calls != 2 {
			t.Errorf("calls = %d, want 2", calls)
		}
		if len(batch) != 1 {
			t.Errorf("batch = %+v", batch)
		}
	})

	t.Run("gives up throttled page once attempts are exhausted", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Retry-After", "1")
			w.WriteHeader(http.StatusTooManyRequests)
		}))
		defer server.Close()

		client := NewClient(server.URL, "sesame", WithPageRetries(1))
		_, err := client.Contacts(ContactQuery{}).Next(context.Background())
		var rle *RateLimitError
		if !errors.As(err, &rle) {
			t.Fatalf("err = %v, want rate limit error", err)
		}
		if rle.RetryAfter != time.Second {
			t.Errorf("retry after = %s, want 1s", rle.RetryAfter)
		}
	})

	t.Run("surfaces API errors without retrying", func(t *testing.T) {
		var calls int
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls++
			w.WriteHeader(http.StatusBadGateway)
			writeJSON(t, w, map[string]any{"detail": "backend down"})
		}))
		defer server.Close()

		client := NewClient(server.URL, "sesame")
		_, err := client.Contacts(ContactQuery{}).Next(context.Background())
		var apiErr *APIError
		if !errors.As(err, &apiErr) {
			t.Fatalf("err = %v, want API error", err)
		}
		if apiErr.StatusCode != http.StatusBadGateway || apiErr.Message != "backend down" {
			t.Errorf("unexpected API error: %+v", apiErr)
		}
		if calls != 1 {
			t.Errorf("calls = %d, want no retries", calls)
		}
	})
}

func TestClientContact(t *testing.T) {
	t.Run("returns the matching snapshot", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if got := r.URL.Query().Get("uuid"); got != "C-007" {
				t.Errorf("uuid param = %q", got)
			}
			writeJSON(t, w, map[string]any{
				"next":    nil,
				"results": []map[string]any{{"uuid": "C-007", "name": "Greta", "fields": map[string]any{"city": "Kigali"}}},
			})
		}))
		defer server.Close()

		contact, err := NewClient(server.URL, "sesame").Contact(context.Background(), "C-007")
		if err != nil {
			t.Fatalf("fetch: %v", err)
		}
		if contact.Name != "Greta" || contact.Fields["city"] != "Kigali" {
			t.Errorf("unexpected contact: %+v", contact)
		}
	})

	t.Run("reports missing contacts", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			writeJSON(t, w, map[string]any{"next": nil, "results": []any{}})
		}))
		defer server.Close()

		_, err := NewClient(server.URL, "sesame").Contact(context.Background(), "C-404")
		if !errors.Is(err, ErrNotFound) {
			t.Errorf("err = %v, want ErrNotFound", err)
		}
	})
}

func TestClientGroupsAndFields(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/v2/groups.json":
			if r.URL.Query().Get("cursor") == "" {
				next := fmt.Sprintf("http://%s/api/v2/groups.json?cursor=p2", r.Host)
				writeJSON(t, w, map[string]any{
					"next":    next,
					"results": []map[string]any{{"uuid": "G-001", "name": "Reporters", "count": 120}},
				})
				return
			}
			writeJSON(t, w, map[string]any{
				"next":    nil,
				"results": []map[string]any{{"uuid": "G-002", "name": "Testers", "count": 5}},
			})
		case "/api/v2/fields.json":
			writeJSON(t, w, map[string]any{
				"next":    nil,
				"results": []map[string]any{{"key": "age", "label": "Age", "value_type": "numeric"}},
			})
		default:
			t.Errorf("unexpected path %q", r.URL.Path)
		}
	}))
	defer server.Close()

	client := NewClient(server.URL, "sesame")

	groups, err := client.Groups(context.Background())
	if err != nil {
		t.Fatalf("groups: %v", err)
	}
	if len(groups) != 2 || groups[0].UUID != "G-001" || groups[1].Count != 5 {
		t.Errorf("unexpected groups: %+v", groups)
	}

	fields, err := client.Fields(context.Background())
	if err != nil {
		t.Fatalf("fields: %v", err)
	}
	if len(fields) != 1 || fields[0].Key != "age" || fields[0].ValueType != "numeric" {
		t.Errorf("unexpected fields: %+v", fields)
	}
}

func TestClientGroupActions(t *testing.T) {
	var got map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/v2/contact_actions.json" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decoding action body: %v", err)
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	client := NewClient(server.URL, "sesame")
	if err := client.RemoveFromGroup(context.Background(), "C-001", "G-001"); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if got["action"] != "remove" || got["group"] != "G-001" {
		t.Errorf("unexpected action body: %v", got)
	}
	contacts, _ := got["contacts"].([]any)
	if len(contacts) != 1 || contacts[0] != "C-001" {
		t.Errorf("unexpected contacts in body: %v", got["contacts"])
	}
}

func TestParseRetryAfter(t *testing.T) {
	cases := []struct {
		header string
		want   time.Duration
	}{
		{"", 0},
		{"2", 2 * time.Second},
		{" 5 ", 5 * time.Second},
		{"-1", 0},
		{"soon", 0},
	}
	for _, tc := range cases {
		if got := parseRetryAfter(tc.header); got != tc.want {
			t.Errorf("parseRetryAfter(%q) = %s, want %s", tc.header, got, tc.want)
		}
	}
}

func writeJSON(t *testing.T, w http.ResponseWriter, v any) {
	t.Helper()
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		t.Fatalf("encoding response: %v", err)
	}
}
