// Package client is the application-side SDK for the formkite API. It wraps
// the raw HTTP surface with bearer authentication, uniform error translation
// and normalization of the backend's inconsistent field casing.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"

	"github.com/pkg/errors"
)

// APIError carries the HTTP status and the message the backend sent with a
// failed call.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return e.Message
}

type Client struct {
	BaseURL string
	HTTP    *http.Client
	Session *Session
}

func New(baseURL string, store Storage) *Client {
	c := &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		HTTP:    http.DefaultClient,
	}
	c.Session = newSession(c, store)
	return c
}

// Do issues a single request. No retry, no timeout, no backoff: a failed
// call surfaces once and the caller decides what to do about it.
//
// Non-2xx statuses come back as *APIError, with the message taken from the
// body's message field when there is one. A 204 or an unparseable success
// body yields a nil payload without error.
func (c *Client) Do(ctx context.Context, method, path string, body any) (json.RawMessage, error) {
	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return nil, errors.Wrap(err, "encode request body")
		}
		reader = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, reader)
	if err != nil {
		return nil, errors.Wrap(err, "build request")
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range c.Session.AuthHeader() {
		req.Header.Set(k, v)
	}

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "request failed")
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrap(err, "read response body")
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &APIError{
			Status:  resp.StatusCode,
			Message: errorMessage(resp.StatusCode, payload),
		}
	}

	if resp.StatusCode == http.StatusNoContent || !json.Valid(payload) {
		return nil, nil
	}
	return json.RawMessage(payload), nil
}

// Download performs an authenticated GET for a binary payload and returns
// the content plus the filename from the content disposition, if any.
func (c *Client) Download(ctx context.Context, path string) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+path, nil)
	if err != nil {
		return nil, "", errors.Wrap(err, "build request")
	}
	for k, v := range c.Session.AuthHeader() {
		req.Header.Set(k, v)
	}

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, "", errors.Wrap(err, "request failed")
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", errors.Wrap(err, "read response body")
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, "", &APIError{
			Status:  resp.StatusCode,
			Message: errorMessage(resp.StatusCode, payload),
		}
	}

	name := ""
	if _, params, err := mime.ParseMediaType(resp.Header.Get("Content-Disposition")); err == nil {
		name = params["filename"]
	}
	return payload, name, nil
}

func errorMessage(status int, payload []byte) string {
	body := map[string]any{}
	if json.Unmarshal(payload, &body) == nil {
		if msg := pickString(body, "message", "Message"); msg != "" {
			return msg
		}
	}
	return fmt.Sprintf("HTTP %d", status)
}
