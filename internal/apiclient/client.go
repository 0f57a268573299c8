// Package apiclient issues list and detail queries against the reiki search
// API and decodes the JSON envelopes into jorei types.
package apiclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/JakeFAU/jorei-crawler/internal/jorei"
)

// Error classes surfaced to the pagination driver. ErrNotFound wraps
// ErrDecode so callers matching on decode failures also catch it.
var (
	ErrTransport = errors.New("transport failure")
	ErrDecode    = errors.New("decode failure")
	ErrNotFound  = fmt.Errorf("%w: no record in response", ErrDecode)
)

// Response is the raw result of one GET.
type Response struct {
	URL        string
	StatusCode int
	Body       []byte
	Duration   time.Duration
}

// Fetcher performs a single HTTP GET.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (Response, error)
}

// Client decodes API responses fetched through a Fetcher.
type Client struct {
	fetcher Fetcher
}

// New builds a Client over fetcher.
func New(fetcher Fetcher) (*Client, error) {
	if fetcher == nil {
		return nil, fmt.Errorf("fetcher is required")
	}
	return &Client{fetcher: fetcher}, nil
}

// FetchList retrieves one page of search results. Each listed document
// must carry an id.
func (c *Client) FetchList(ctx context.Context, url string) (jorei.ListPage, error) {
	env, err := c.get(ctx, url)
	if err != nil {
		return jorei.ListPage{}, err
	}
	docs := make([]jorei.Doc, 0, len(env.Response.Docs))
	for i, raw := range env.Response.Docs {
		doc, err := jorei.DecodeDoc(raw, "id")
		if err != nil {
			return jorei.ListPage{}, fmt.Errorf("%w: GET %s: doc %d: %w", ErrDecode, url, i, err)
		}
		docs = append(docs, doc)
	}
	return jorei.ListPage{Total: *env.Response.NumFound, Docs: docs}, nil
}

// FetchDetail retrieves the single record selected by url. An empty docs
// list yields ErrNotFound; a document without one of jorei.DetailFields
// yields ErrDecode.
func (c *Client) FetchDetail(ctx context.Context, url string) (jorei.Doc, error) {
	env, err := c.get(ctx, url)
	if err != nil {
		return jorei.Doc{}, err
	}
	if len(env.Response.Docs) == 0 {
		return jorei.Doc{}, fmt.Errorf("%w: GET %s", ErrNotFound, url)
	}
	doc, err := jorei.DecodeDoc(env.Response.Docs[0], jorei.DetailFields...)
	if err != nil {
		return jorei.Doc{}, fmt.Errorf("%w: GET %s: %w", ErrDecode, url, err)
	}
	return doc, nil
}

func (c *Client) get(ctx context.Context, url string) (jorei.Envelope, error) {
	resp, err := c.fetcher.Fetch(ctx, url)
	if err != nil {
		return jorei.Envelope{}, fmt.Errorf("%w: GET %s: %w", ErrTransport, url, err)
	}
	var env jorei.Envelope
	if err := json.Unmarshal(resp.Body, &env); err != nil {
		return jorei.Envelope{}, fmt.Errorf("%w: GET %s: %w", ErrDecode, url, err)
	}
	switch {
	case env.Response.NumFound == nil:
		return jorei.Envelope{}, fmt.Errorf("%w: GET %s: missing response.numFound", ErrDecode, url)
	case env.Response.Start == nil:
		return jorei.Envelope{}, fmt.Errorf("%w: GET %s: missing response.start", ErrDecode, url)
	case env.Response.Docs == nil:
		return jorei.Envelope{}, fmt.Errorf("%w: GET %s: missing response.docs", ErrDecode, url)
	}
	return env, nil
}
