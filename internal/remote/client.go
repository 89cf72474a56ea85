// Package remote is a client for RapidPro-style messaging platform APIs.
// It exposes contact, group and field listings as cursor pagers and handles
// the platform's request throttling transparently.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// DefaultPageRetries is how many attempts are made for a single page fetch
// before a throttled request is given up on.
const DefaultPageRetries = 3

// Client talks to the remote platform's REST API using token authentication.
// Safe for concurrent use.
type Client struct {
	baseURL     string
	token       string
	httpClient  *http.Client
	pageRetries int
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the HTTP client used for requests.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithPageRetries sets the attempt budget per page fetch.
func WithPageRetries(n int) Option {
	return func(c *Client) { c.pageRetries = n }
}

// NewClient creates a client for the platform at baseURL, authenticating
// every request with the given API token.
func NewClient(baseURL, token string, opts ...Option) *Client {
	c := &Client{
		baseURL:     strings.TrimSuffix(baseURL, "/"),
		token:       token,
		httpClient:  http.DefaultClient,
		pageRetries: DefaultPageRetries,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Contacts returns a pager over contact snapshots matching the query,
// ordered by modification time on the remote side.
func (c *Client) Contacts(q ContactQuery) ContactPager {
	return &pager[Contact]{client: c, url: c.endpoint("contacts", q.values())}
}

// Contact fetches a single contact snapshot by UUID.
// Returns an error wrapping ErrNotFound when no such contact exists.
func (c *Client) Contact(ctx context.Context, uuid string) (*Contact, error) {
	p := &pager[Contact]{client: c, url: c.endpoint("contacts", url.Values{"uuid": []string{uuid}})}
	batch, err := p.Next(ctx)
	if err != nil {
		return nil, err
	}
	if len(batch) == 0 {
		return nil, fmt.Errorf("contact %s: %w", uuid, ErrNotFound)
	}
	return &batch[0], nil
}

// Groups fetches all contact groups defined on the platform.
func (c *Client) Groups(ctx context.Context) ([]Group, error) {
	return drain(ctx, &pager[Group]{client: c, url: c.endpoint("groups", nil)})
}

// Fields fetches all custom field definitions on the platform.
func (c *Client) Fields(ctx context.Context) ([]Field, error) {
	return drain(ctx, &pager[Field]{client: c, url: c.endpoint("fields", nil)})
}

// AddToGroup adds a contact to a group on the remote platform.
func (c *Client) AddToGroup(ctx context.Context, contactUUID, groupUUID string) error {
	return c.contactAction(ctx, contactUUID, "add", groupUUID)
}

// RemoveFromGroup removes a contact from a group on the remote platform.
func (c *Client) RemoveFromGroup(ctx context.Context, contactUUID, groupUUID string) error {
	return c.contactAction(ctx, contactUUID, "remove", groupUUID)
}

func drain[T any](ctx context.Context, p *pager[T]) ([]T, error) {
	var all []T
	for {
		batch, err := p.Next(ctx)
		if err == io.EOF {
			return all, nil
		}
		if err != nil {
			return nil, err
		}
		all = append(all, batch...)
	}
}

func (c *Client) contactAction(ctx context.Context, contactUUID, action, groupUUID string) error {
	payload, err := json.Marshal(map[string]any{
		"contacts": []string{contactUUID},
		"action":   action,
		"group":    groupUUID,
	})
	if err != nil {
		return fmt.Errorf("encoding contact action: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint("contact_actions", nil), bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("building contact action request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.do(req)
	if err != nil {
		return fmt.Errorf("contact action %q: %w", action, err)
	}
	resp.Body.Close()
	return nil
}

func (c *Client) getJSON(ctx context.Context, rawURL string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	resp, err := c.do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}

// do sends the request with auth headers and maps throttling and error
// statuses to typed errors. On success the caller owns the response body.
func (c *Client) do(req *http.Request) (*http.Response, error) {
	req.Header.Set("Authorization", "Token "+c.token)
	req.Header.Set("Accept", "application/json")
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode == http.StatusTooManyRequests {
		resp.Body.Close()
		return nil, &RateLimitError{RetryAfter: parseRetryAfter(resp.Header.Get("Retry-After"))}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg := readErrorDetail(resp.Body)
		resp.Body.Close()
		return nil, &APIError{StatusCode: resp.StatusCode, Message: msg}
	}
	return resp, nil
}

func (c *Client) endpoint(resource string, params url.Values) string {
	u := c.baseURL + "/api/v2/" + resource + ".json"
	if len(params) > 0 {
		u += "?" + params.Encode()
	}
	return u
}

func (q ContactQuery) values() url.Values {
	params := url.Values{}
	if !q.After.IsZero() {
		params.Set("after", q.After.UTC().Format(time.RFC3339Nano))
	}
	if !q.Before.IsZero() {
		params.Set("before", q.Before.UTC().Format(time.RFC3339Nano))
	}
	if q.Deleted {
		params.Set("deleted", "true")
	}
	if q.UUID != "" {
		params.Set("uuid", q.UUID)
	}
	return params
}

// parseRetryAfter reads the Retry-After header's delay-seconds form.
// Returns zero for an absent or unparseable value.
func parseRetryAfter(header string) time.Duration {
	if header == "" {
		return 0
	}
	secs, err := strconv.Atoi(strings.TrimSpace(header))
	if err != nil || secs < 0 {
		return 0
	}
	return time.Duration(secs) * time.Second
}

// readErrorDetail pulls the platform's "detail" message out of an error
// response body, falling back to the raw body text.
func readErrorDetail(r io.Reader) string {
	raw, err := io.ReadAll(io.LimitReader(r, 4096))
	if err != nil {
		return ""
	}
	var payload struct {
		Detail string `json:"detail"`
	}
	if json.Unmarshal(raw, &payload) == nil && payload.Detail != "" {
		return payload.Detail
	}
	return strings.TrimSpace(string(raw))
}
