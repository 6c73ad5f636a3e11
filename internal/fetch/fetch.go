// Package fetch retrieves listing pages and turns their bytes into text the
// extractors can read.
package fetch

import (
	"context"
	"errors"
)

var (
	ErrFetchFailed  = errors.New("fetch failed")
	ErrBlocked      = errors.New("blocked by anti-bot protection")
	ErrDecodeFailed = errors.New("decode failed")
)

// Page is a fetched document.
type Page struct {
	URL        string
	StatusCode int
	HTML       string
}

type Fetcher interface {
	Fetch(ctx context.Context, url string) (*Page, error)
	Close() error
}

type waitSelectorKey struct{}

// WithWaitSelector asks rendering fetchers to wait for selector after
// navigation. Plain HTTP fetchers ignore it.
func WithWaitSelector(ctx context.Context, selector string) context.Context {
	if selector == "" {
		return ctx
	}
	return context.WithValue(ctx, waitSelectorKey{}, selector)
}

// WaitSelector returns the selector set by WithWaitSelector, or "".
func WaitSelector(ctx context.Context) string {
	s, _ := ctx.Value(waitSelectorKey{}).(string)
	return s
}
