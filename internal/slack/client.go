// Package slack is a minimal Slack Web API client covering the two calls the
// inbox job needs: reading channel history and adding a reaction marker.
package slack

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/sommerlab/boardsync/internal/reconcile"
)

// DefaultBaseURL is the Slack Web API root.
const DefaultBaseURL = "https://slack.com/api"

// Reaction is a reaction on a message.
type Reaction struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// Message is one channel message. TS is Slack's stable message identifier
// within a channel.
type Message struct {
	TS        string     `json:"ts"`
	Text      string     `json:"text"`
	Reactions []Reaction `json:"reactions"`
}

// HasReaction reports whether any reaction with the given name is present.
func (m *Message) HasReaction(name string) bool {
	for _, r := range m.Reactions {
		if r.Name == name {
			return true
		}
	}
	return false
}

// APIError is an ok=false response from the Slack API.
type APIError struct {
	Op   string
	Code string // Slack error string, e.g. "invalid_auth"
}

func (e *APIError) Error() string {
	return fmt.Sprintf("slack: %s: %s", e.Op, e.Code)
}

// Client is a Slack Web API client using bearer token auth.
type Client struct {
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

// New creates a Slack client.
func New(token string, opts ...Option) *Client {
	c := &Client{
		token:   token,
		baseURL: DefaultBaseURL,
		http:    &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type envelope struct {
	OK    bool   `json:"ok"`
	Error string `json:"error"`
}

// call issues one Web API method as a form POST and decodes the response
// into out. Slack's ok=false envelope becomes an APIError; auth failures
// become AUTH-coded reconcile errors.
func (c *Client) call(ctx context.Context, method string, params url.Values, out any) error {
	req, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+"/"+method,
		strings.NewReader(params.Encode()))
	if err != nil {
		return fmt.Errorf("slack: build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("slack: %s: %w", method, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("slack: read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("slack: %s: HTTP %d", method, resp.StatusCode)
	}

	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return fmt.Errorf("slack: decode %s: %w", method, err)
	}
	if !env.OK {
		apiErr := &APIError{Op: method, Code: env.Error}
		switch env.Error {
		case "invalid_auth", "not_authed", "account_inactive", "token_revoked":
			return &reconcile.Error{
				Code:    reconcile.CodeAuth,
				Message: "slack rejected credentials",
				Err:     apiErr,
			}
		}
		return apiErr
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("slack: decode %s: %w", method, err)
	}
	return nil
}

// ChannelHistory returns the most recent messages in a channel, newest
// first, up to limit.
func (c *Client) ChannelHistory(ctx context.Context, channelID string, limit int) ([]Message, error) {
	params := url.Values{}
	params.Set("channel", channelID)
	if limit > 0 {
		params.Set("limit", strconv.Itoa(limit))
	}
	var out struct {
		Messages []Message `json:"messages"`
	}
	if err := c.call(ctx, "conversations.history", params, &out); err != nil {
		return nil, err
	}
	return out.Messages, nil
}

// AddReaction adds a reaction to a message. "already_reacted" is treated as
// success: the marker the reaction exists for is already in place, which is
// exactly what a repeated or overlapping run wants.
func (c *Client) AddReaction(ctx context.Context, channelID, timestamp, name string) error {
	params := url.Values{}
	params.Set("channel", channelID)
	params.Set("timestamp", timestamp)
	params.Set("name", name)

	err := c.call(ctx, "reactions.add", params, nil)
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Code == "already_reacted" {
		return nil
	}
	return err
}
