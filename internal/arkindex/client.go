// Package arkindex is a small client for the Arkindex REST API, covering the
// endpoints used to push text-matcher results onto a corpus: listing
// volumes, pages, transcriptions, entities and classes, and creating
// transcriptions, entities, text segments and classifications.
package arkindex

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/FocuswithJustin/horae/core/errors"
	"github.com/FocuswithJustin/horae/internal/logging"
)

// Environment variables read by NewClientFromEnv.
const (
	EnvURL   = "ARKINDEX_API_URL"
	EnvToken = "ARKINDEX_API_TOKEN"
)

const maxErrorBody = 4096

// APIError is a non-2xx response.
type APIError struct {
	Status int
	Body   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("arkindex: HTTP %d: %s", e.Status, e.Body)
}

// IsNotFound reports a 404 response.
func (e *APIError) IsNotFound() bool {
	return e.Status == http.StatusNotFound
}

// Client talks to one Arkindex instance.
type Client struct {
	baseURL    *url.URL
	token      string
	httpClient *http.Client
	userAgent  string
}

// NewClient creates a client for the API rooted at baseURL, for example
// "https://arkindex.teklia.com". The token may be empty for public data.
func NewClient(baseURL, token string) (*Client, error) {
	u, err := url.Parse(strings.TrimSuffix(baseURL, "/"))
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, errors.NewValidation("url", "not an http(s) URL: "+baseURL)
	}
	return &Client{
		baseURL: u,
		token:   token,
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
		userAgent: "horae/1.0",
	}, nil
}

// NewClientFromEnv creates a client from ARKINDEX_API_URL and
// ARKINDEX_API_TOKEN.
func NewClientFromEnv() (*Client, error) {
	base := os.Getenv(EnvURL)
	if base == "" {
		return nil, errors.NewValidation(EnvURL, "not set")
	}
	return NewClient(base, os.Getenv(EnvToken))
}

// SetHTTPClient replaces the underlying HTTP client.
func (c *Client) SetHTTPClient(h *http.Client) {
	c.httpClient = h
}

// ValidateID checks that id is a UUID, as every Arkindex object id is.
func ValidateID(field, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return errors.NewValidation(field, "not a UUID: "+id)
	}
	return nil
}

// resolve builds the request URL. Absolute URLs, such as the next link of a
// listing, must point at the configured instance so the token never leaves
// it.
func (c *Client) resolve(path string, query url.Values) (string, error) {
	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		u, err := url.Parse(path)
		if err != nil || u.Scheme != c.baseURL.Scheme || u.Host != c.baseURL.Host {
			return "", errors.NewValidation("url", "refusing to follow a link off "+c.baseURL.Host+": "+path)
		}
		return path, nil
	}
	u := *c.baseURL
	u.Path = strings.TrimSuffix(u.Path, "/") + "/api/v1/" + strings.TrimPrefix(path, "/")
	if len(query) > 0 {
		u.RawQuery = query.Encode()
	}
	return u.String(), nil
}

// do sends one request. body, when not nil, is sent as JSON; out, when not
// nil, receives the decoded response.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	var payload io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return errors.Wrap(err, "encode request")
		}
		payload = bytes.NewReader(data)
	}

	target, err := c.resolve(path, query)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, method, target, payload)
	if err != nil {
		return errors.Wrap(err, "create request")
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Token "+c.token)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		logging.APIFailure(ctx, method, path, 0, err)
		return errors.Wrapf(err, "%s %s", method, path)
	}
	defer resp.Body.Close()
	logging.APIRequest(ctx, method, path, resp.StatusCode, time.Since(start))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		apiErr := &APIError{Status: resp.StatusCode, Body: strings.TrimSpace(string(data))}
		logging.APIFailure(ctx, method, path, resp.StatusCode, apiErr)
		return apiErr
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &errors.ParseError{Format: "JSON", Path: path, Message: err.Error(), Err: err}
	}
	return nil
}

// page is one page of a paginated listing.
type page[T any] struct {
	Count   int     `json:"count"`
	Next    *string `json:"next"`
	Results []T     `json:"results"`
}

// Paginate follows the "next" links of a listing endpoint and returns every
// result.
func Paginate[T any](ctx context.Context, c *Client, path string, query url.Values) ([]T, error) {
	var out []T
	next := path
	for next != "" {
		var p page[T]
		if err := c.do(ctx, http.MethodGet, next, query, nil, &p); err != nil {
			return nil, err
		}
		out = append(out, p.Results...)
		next = ""
		if p.Next != nil {
			next = *p.Next
		}
		// the next link already carries the query
		query = nil
	}
	return out, nil
}
