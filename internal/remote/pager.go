package remote

import (
	"context"
	"errors"
	"io"

	"github.com/cenkalti/backoff/v5"
)

// ContactPager streams pages of contact snapshots from a listing request.
// Next returns io.EOF once the final page has been consumed. Pages already
// returned are never refetched; only a throttled page is retried in place.
type ContactPager interface {
	Next(ctx context.Context) ([]Contact, error)
}

// envelope is the pagination wrapper every listing endpoint responds with.
// Next is the absolute URL of the following page, or empty on the last one.
type envelope[T any] struct {
	Next    string `json:"next"`
	Results []T    `json:"results"`
}

type pager[T any] struct {
	client *Client
	url    string
	done   bool
}

func (p *pager[T]) Next(ctx context.Context) ([]T, error) {
	if p.done {
		return nil, io.EOF
	}
	env, err := fetchPage[T](ctx, p.client, p.url)
	if err != nil {
		return nil, err
	}
	p.url = env.Next
	if p.url == "" {
		p.done = true
	}
	return env.Results, nil
}

// fetchPage fetches one page, retrying throttled requests until the client's
// per-page attempt budget runs out. Waits honor the server's Retry-After when
// present and fall back to exponential backoff when it is absent. Any other
// failure aborts immediately.
func fetchPage[T any](ctx context.Context, c *Client, url string) (*envelope[T], error) {
	env, err := backoff.Retry(ctx, func() (*envelope[T], error) {
		var env envelope[T]
		err := c.getJSON(ctx, url, &env)
		var rle *RateLimitError
		switch {
		case err == nil:
			return &env, nil
		case errors.As(err, &rle) && rle.RetryAfter > 0:
			return nil, &backoff.RetryAfterError{Duration: rle.RetryAfter}
		case errors.As(err, &rle):
			return nil, err
		default:
			return nil, backoff.Permanent(err)
		}
	}, backoff.WithMaxTries(uint(c.pageRetries)))
	if err != nil {
		var ra *backoff.RetryAfterError
		if errors.As(err, &ra) {
			err = &RateLimitError{RetryAfter: ra.Duration}
		}
		return nil, err
	}
	return env, nil
}
