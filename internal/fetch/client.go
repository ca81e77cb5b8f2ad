// Package fetch retrieves chart payloads from a payload endpoint.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"rfcharts/internal/core"
	applog "rfcharts/internal/log"
)

// ErrTransportFailure is returned when the endpoint cannot be reached or
// answers with a non-success status.
var ErrTransportFailure = errors.New("transport failure")

// ErrPayloadTooLarge is returned, wrapped in a *TransportError, for bodies
// over the client's size limit.
var ErrPayloadTooLarge = errors.New("payload too large")

// maxBody bounds how much of a payload response is read.
const maxBody = 8 << 20

// TransportError carries the endpoint and, when the server answered, its status.
type TransportError struct {
	Endpoint string
	Status   int
	Err      error
}

func (e *TransportError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("%s: GET %s: status %d", ErrTransportFailure, e.Endpoint, e.Status)
	}
	return fmt.Sprintf("%s: GET %s: %v", ErrTransportFailure, e.Endpoint, e.Err)
}

func (e *TransportError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrTransportFailure}
	}
	return []error{ErrTransportFailure, e.Err}
}

// Client fetches payloads over HTTP. Failed requests are not retried.
type Client struct {
	http     *http.Client
	logger   *applog.Logger
	maxBytes int64
}

// NewClient returns a client whose requests give up after timeout. A nil
// logger logs through the process default.
func NewClient(timeout time.Duration, logger *applog.Logger) *Client {
	if logger == nil {
		logger = applog.FromContext(context.Background())
	}
	return &Client{
		http:     &http.Client{Timeout: timeout},
		logger:   logger.WithComponent(applog.ComponentFetch),
		maxBytes: maxBody,
	}
}

// Payload GETs endpoint and decodes the body as a RawPayload.
func (c *Client) Payload(ctx context.Context, endpoint string) (core.RawPayload, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return core.RawPayload{}, &TransportError{Endpoint: endpoint, Err: err}
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.WarnContext(ctx, "Payload fetch failed", "endpoint", endpoint, applog.FieldError, err)
		return core.RawPayload{}, &TransportError{Endpoint: endpoint, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.logger.WarnContext(ctx, "Payload endpoint returned error status",
			"endpoint", endpoint,
			"status", resp.StatusCode)
		return core.RawPayload{}, &TransportError{Endpoint: endpoint, Status: resp.StatusCode}
	}

	if resp.ContentLength > c.maxBytes {
		return core.RawPayload{}, c.tooLarge(ctx, endpoint, resp.ContentLength)
	}
	// one byte over the limit tells a full body from a truncated one
	body, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBytes+1))
	if err != nil {
		return core.RawPayload{}, &TransportError{Endpoint: endpoint, Err: err}
	}
	if int64(len(body)) > c.maxBytes {
		return core.RawPayload{}, c.tooLarge(ctx, endpoint, -1)
	}

	c.logger.DebugContext(ctx, "Payload fetched",
		"endpoint", endpoint,
		"duration", time.Since(start),
		"bytes", len(body))

	return core.DecodePayload(body)
}

func (c *Client) tooLarge(ctx context.Context, endpoint string, size int64) error {
	c.logger.WarnContext(ctx, "Payload exceeds size limit",
		"endpoint", endpoint,
		"limit", c.maxBytes,
		"content_length", size)
	return &TransportError{
		Endpoint: endpoint,
		Err:      fmt.Errorf("%w: more than %d bytes", ErrPayloadTooLarge, c.maxBytes),
	}
}
