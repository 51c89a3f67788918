package trello

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/cases"

	"github.com/sommerlab/boardsync/internal/reconcile"
)

// DefaultBaseURL is the Trello REST API root.
const DefaultBaseURL = "https://api.trello.com/1"

// APIError is a non-2xx response from the Trello API.
type APIError struct {
	Status int
	Body   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("trello: HTTP %d: %s", e.Status, e.Body)
}

// Client is a Trello REST API client. The API key and token are sent as
// query parameters on every request.
type Client struct {
	key     string
	token   string
	baseURL string
	http    *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL overrides the API root (tests point this at httptest servers).
func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = strings.TrimRight(u, "/") }
}

// WithHTTPClient overrides the underlying HTTP client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

// New creates a Trello client.
func New(key, token string, opts ...Option) *Client {
	c := &Client{
		key:     key,
		token:   token,
		baseURL: DefaultBaseURL,
		http:    &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// do issues one API request and decodes the JSON response into out (when out
// is non-nil). 401/403 map to AUTH errors; a single retry honors Retry-After
// on 429.
func (c *Client) do(ctx context.Context, method, endpoint string, params url.Values, out any) error {
	if params == nil {
		params = url.Values{}
	}
	params.Set("key", c.key)
	params.Set("token", c.token)

	reqURL := c.baseURL + "/" + strings.TrimLeft(endpoint, "/") + "?" + params.Encode()

	for attempt := 0; ; attempt++ {
		req, err := http.NewRequestWithContext(ctx, method, reqURL, nil)
		if err != nil {
			return fmt.Errorf("trello: build request: %w", err)
		}
		req.Header.Set("Accept", "application/json")

		resp, err := c.http.Do(req)
		if err != nil {
			return fmt.Errorf("trello: %s %s: %w", method, endpoint, err)
		}

		if resp.StatusCode == http.StatusTooManyRequests && attempt == 0 {
			wait := retryAfter(resp)
			io.Copy(io.Discard, resp.Body)
			resp.Body.Close()
			select {
			case <-time.After(wait):
				continue
			case <-ctx.Done():
				return ctx.Err()
			}
		}

		body, readErr := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
		resp.Body.Close()
		if readErr != nil {
			return fmt.Errorf("trello: read response: %w", readErr)
		}

		switch {
		case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
			return &reconcile.Error{
				Code:    reconcile.CodeAuth,
				Message: fmt.Sprintf("trello rejected credentials (HTTP %d)", resp.StatusCode),
				Err:     &APIError{Status: resp.StatusCode, Body: strings.TrimSpace(string(body))},
			}
		case resp.StatusCode < 200 || resp.StatusCode > 299:
			return &APIError{Status: resp.StatusCode, Body: strings.TrimSpace(string(body))}
		}

		if out == nil {
			return nil
		}
		if err := json.Unmarshal(body, out); err != nil {
			return fmt.Errorf("trello: decode %s %s: %w", method, endpoint, err)
		}
		return nil
	}
}

func retryAfter(resp *http.Response) time.Duration {
	if secs, err := strconv.Atoi(resp.Header.Get("Retry-After")); err == nil && secs > 0 {
		return time.Duration(secs) * time.Second
	}
	return time.Second
}

// NormalizeName produces a caseless comparison key for list and card names.
func NormalizeName(s string) string {
	return cases.Fold().String(strings.TrimSpace(s))
}
