// Package datalayer talks to the external reservation service over HTTP. It
// implements every collaborator port the calendar consumes.
package datalayer

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"campcal/internal/app/policies"
)

var (
	ErrNotConfigured = errors.New("datalayer: http client not configured")
	ErrNotFound      = errors.New("datalayer: not found")
	ErrRejected      = errors.New("datalayer: request rejected")
)

// StatusError carries a non-2xx answer. Conflict and validation answers wrap
// ErrRejected; 404 wraps ErrNotFound.
type StatusError struct {
	Op     string
	Status int
	Body   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("datalayer: %s returned status %d: %s", e.Op, e.Status, e.Body)
}

func (e *StatusError) Unwrap() error {
	switch {
	case e.Status == http.StatusNotFound:
		return ErrNotFound
	case e.Status >= 400 && e.Status < 500:
		return ErrRejected
	default:
		return nil
	}
}

type Client struct {
	BaseURL string
	HTTP    *http.Client
	Logger  *slog.Logger
	// Headers are added to every request, e.g. a service token.
	Headers map[string]string
}

func (c *Client) do(ctx context.Context, op, method, path string, query url.Values, in, out any) error {
	if c == nil || c.HTTP == nil {
		return ErrNotConfigured
	}
	if c.BaseURL == "" {
		return fmt.Errorf("%w: base url missing", ErrNotConfigured)
	}
	endpoint := strings.TrimRight(c.BaseURL, "/") + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var body io.Reader
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range c.Headers {
		req.Header.Set(k, v)
	}

	resp, err := c.HTTP.Do(req)
	if err != nil {
		c.logError(ctx, op+" request failed", err)
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		err := &StatusError{Op: op, Status: resp.StatusCode, Body: strings.TrimSpace(string(snippet))}
		c.logError(ctx, op+" returned error", err)
		return err
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		c.logError(ctx, op+" decode failed", err)
		return fmt.Errorf("datalayer: decode %s: %w", op, err)
	}
	return nil
}

func (c *Client) logError(ctx context.Context, msg string, err error) {
	if c.Logger == nil {
		return
	}
	c.Logger.ErrorContext(ctx, msg, "error", err)
}

func campgroundPath(campgroundID, suffix string) string {
	return "/campgrounds/" + url.PathEscape(campgroundID) + suffix
}

var (
	_ policies.AvailabilityPort = (*Client)(nil)
	_ policies.OverlapPort      = (*Client)(nil)
	_ policies.QuotePort        = (*Client)(nil)
	_ policies.InventoryPort    = (*Client)(nil)
	_ policies.ReservationPort  = (*Client)(nil)
	_ policies.HoldPort         = (*Client)(nil)
)
