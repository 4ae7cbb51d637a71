// Package maps is a small client for the Google Maps web services used by the
// research pipeline: geocoding, text search, nearby search and place details.
package maps

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/thefilesareinthecomputer/web-scraping-research-agent/pkg/transport"
)

const DefaultBaseURL = "https://maps.googleapis.com"

// Service names used in errors and metrics.
const (
	ServiceGeocode = "geocode"
	ServiceText    = "textsearch"
	ServiceNearby  = "nearbysearch"
	ServiceDetails = "details"
)

// Recorder observes every call outcome. status is the payload status, or
// "transport_error" / "http_<code>" when no payload was decoded.
type Recorder interface {
	ObserveCall(service, status string)
}

type Client struct {
	httpClient transport.Doer
	apiKey     string
	baseURL    string
	userAgent  string
	recorder   Recorder
}

type Option func(*Client)

// WithBaseURL points the client at another host, mostly for tests.
func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = strings.TrimRight(u, "/") }
}

func WithRecorder(r Recorder) Option {
	return func(c *Client) { c.recorder = r }
}

func NewClient(httpClient transport.Doer, apiKey string, opts ...Option) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	c := &Client{
		httpClient: httpClient,
		apiKey:     apiKey,
		baseURL:    DefaultBaseURL,
		userAgent:  "restaurant-research-agent/1.0",
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// StatusError is a non-OK status carried inside an otherwise valid payload.
// These are never retried.
type StatusError struct {
	Service string
	Status  string
	Message string
}

func (e *StatusError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s: status %s: %s", e.Service, e.Status, e.Message)
	}
	return fmt.Sprintf("%s: status %s", e.Service, e.Status)
}

// HTTPError is a non-200 response that survived the transport's retries.
type HTTPError struct {
	Service    string
	StatusCode int
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("%s: unexpected HTTP status %d", e.Service, e.StatusCode)
}

// ErrNoResults is returned by Geocode when the service found nothing.
var ErrNoResults = errors.New("no results")

// IsStatus reports whether err is a StatusError with the given status.
func IsStatus(err error, status string) bool {
	var se *StatusError
	return errors.As(err, &se) && se.Status == status
}

type statusPayload interface {
	status() (string, string)
}

// get performs one call and decodes the body into out. OK and ZERO_RESULTS
// are success; any other payload status becomes a *StatusError.
func (c *Client) get(ctx context.Context, service, path string, params url.Values, out statusPayload) error {
	params.Set("key", c.apiKey)
	apiURL := fmt.Sprintf("%s%s?%s", c.baseURL, path, params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, apiURL, nil)
	if err != nil {
		return fmt.Errorf("%s: build request: %w", service, err)
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.observe(service, "transport_error")
		return fmt.Errorf("%s: %w", service, redactKey(err, c.apiKey))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.observe(service, fmt.Sprintf("http_%d", resp.StatusCode))
		return &HTTPError{Service: service, StatusCode: resp.StatusCode}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		c.observe(service, "decode_error")
		return fmt.Errorf("%s: decode response: %w", service, err)
	}

	status, msg := out.status()
	c.observe(service, status)
	switch status {
	case StatusOK, StatusZeroResults:
		return nil
	default:
		return &StatusError{Service: service, Status: status, Message: msg}
	}
}

func (c *Client) observe(service, status string) {
	if c.recorder != nil {
		c.recorder.ObserveCall(service, status)
	}
}

// redactKey keeps the API key out of url.Error messages that end up in logs.
func redactKey(err error, key string) error {
	if key == "" {
		return err
	}
	var ue *url.Error
	if errors.As(err, &ue) {
		return &url.Error{Op: ue.Op, URL: strings.ReplaceAll(ue.URL, url.QueryEscape(key), "REDACTED"), Err: ue.Err}
	}
	return err
}
