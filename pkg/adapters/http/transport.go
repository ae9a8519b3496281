package http

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/aretw0/convo/internal/logging"
	"github.com/aretw0/convo/pkg/domain"
	"github.com/aretw0/convo/pkg/wire"
)

// DefaultEndpoint is the public runtime.
const DefaultEndpoint = "https://general-runtime.voiceflow.com"

// maxErrorBody bounds how much of a failed response is kept in a StatusError.
const maxErrorBody = 4096

// ErrMissingVersion is returned by New when no version ID is given.
var ErrMissingVersion = errors.New("version ID is required")

// StatusError reports a non-2xx response from the runtime.
type StatusError struct {
	Method     string
	URL        string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s %s: unexpected status %d: %s", e.Method, e.URL, e.StatusCode, e.Body)
}

// Transport implements ports.Transport over the runtime's HTTP API:
//
//	GET  {endpoint}/interact/{versionID}/state
//	POST {endpoint}/interact/{versionID}
type Transport struct {
	client     *http.Client
	endpoint   string
	versionID  string
	apiKey     string
	headers    http.Header
	decodeOpts []wire.Option
	logger     *slog.Logger
}

// Option configures a Transport.
type Option func(*Transport)

// WithHTTPClient replaces the default client (60s timeout).
func WithHTTPClient(c *http.Client) Option {
	return func(t *Transport) {
		if c != nil {
			t.client = c
		}
	}
}

// WithEndpoint sets the runtime base URL.
func WithEndpoint(endpoint string) Option {
	return func(t *Transport) {
		if endpoint != "" {
			t.endpoint = endpoint
		}
	}
}

// WithAPIKey sets the key sent in the Authorization header.
func WithAPIKey(key string) Option {
	return func(t *Transport) {
		t.apiKey = key
	}
}

// WithHeader adds a header to every request.
func WithHeader(key, value string) Option {
	return func(t *Transport) {
		t.headers.Add(key, value)
	}
}

// WithDecodeOptions sets the options used to decode turn responses.
func WithDecodeOptions(opts ...wire.Option) Option {
	return func(t *Transport) {
		t.decodeOpts = append(t.decodeOpts, opts...)
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(t *Transport) {
		if logger != nil {
			t.logger = logger
		}
	}
}

// New creates a transport for versionID.
func New(versionID string, opts ...Option) (*Transport, error) {
	if strings.TrimSpace(versionID) == "" {
		return nil, ErrMissingVersion
	}
	t := &Transport{
		client:    &http.Client{Timeout: 60 * time.Second},
		endpoint:  DefaultEndpoint,
		versionID: versionID,
		headers:   make(http.Header),
		logger:    logging.NewNop(),
	}
	for _, opt := range opts {
		opt(t)
	}

	u, err := url.Parse(t.endpoint)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid endpoint %q", t.endpoint)
	}
	t.endpoint = strings.TrimRight(t.endpoint, "/")
	return t, nil
}

// VersionID returns the version the transport talks to.
func (t *Transport) VersionID() string {
	return t.versionID
}

func (t *Transport) interactURL(suffix string) string {
	return t.endpoint + "/interact/" + url.PathEscape(t.versionID) + suffix
}

// FetchInitialState retrieves the starting state of the version.
func (t *Transport) FetchInitialState(ctx context.Context) (*domain.State, error) {
	body, err := t.do(ctx, http.MethodGet, t.interactURL("/state"), nil)
	if err != nil {
		return nil, err
	}
	return wire.DecodeState(body)
}

// Exchange posts one turn and decodes the response envelope.
func (t *Transport) Exchange(ctx context.Context, req domain.TurnRequest) (*domain.Envelope, error) {
	payload, err := wire.EncodeTurnRequest(req)
	if err != nil {
		return nil, err
	}
	body, err := t.do(ctx, http.MethodPost, t.interactURL(""), payload)
	if err != nil {
		return nil, err
	}
	return wire.DecodeEnvelope(body, t.decodeOpts...)
}

func (t *Transport) do(ctx context.Context, method, target string, payload []byte) ([]byte, error) {
	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	for key, values := range t.headers {
		for _, v := range values {
			req.Header.Add(key, v)
		}
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if t.apiKey != "" {
		req.Header.Set("Authorization", t.apiKey)
	}

	start := time.Now()
	resp, err := t.client.Do(req)
	if err != nil {
		t.logger.Warn("runtime request failed", "method", method, "url", target, "err", err)
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		t.logger.Warn("runtime returned error status", "method", method, "url", target, "status", resp.StatusCode)
		return nil, &StatusError{Method: method, URL: target, StatusCode: resp.StatusCode, Body: string(body)}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	t.logger.Debug("runtime request", "method", method, "url", target, "status", resp.StatusCode, "duration", time.Since(start))
	return body, nil
}
