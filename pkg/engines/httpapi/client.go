// Package httpapi provides an engine client for streaming SQL engines
// that accept statements over an HTTP JSON API with bearer-token auth.
package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/leapstack-labs/sluice/pkg/core"
	"github.com/leapstack-labs/sluice/pkg/engine"
)

// EngineName is the registry name of this client.
const EngineName = "httpapi"

// defaultTimeout bounds a single HTTP request when the target does not
// set one.
const defaultTimeout = 60 * time.Second

// API paths relative to the configured endpoint.
const (
	statementsPath = "/statements"
	versionPath    = "/version"
)

// Client submits statements to an HTTP statement API. One POST per
// statement; the engine acknowledges with a 2xx status.
type Client struct {
	Logger *slog.Logger

	endpoint   string
	token      string
	target     core.TargetConfig
	httpClient *http.Client
}

// New creates an HTTP API client. If logger is nil, a discard logger is used.
func New(logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Client{Logger: logger}
}

// Name returns the engine name this client is registered under.
func (c *Client) Name() string {
	return EngineName
}

// Connect validates the endpoint and prepares the HTTP client. No
// request is sent; use Ping to verify reachability.
func (c *Client) Connect(_ context.Context, target core.TargetConfig) error {
	endpoint := strings.TrimRight(strings.TrimSpace(target.Endpoint), "/")
	if endpoint == "" {
		return fmt.Errorf("httpapi target requires endpoint")
	}

	u, err := url.Parse(endpoint)
	if err != nil {
		return fmt.Errorf("invalid endpoint %q: %w", target.Endpoint, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("invalid endpoint %q: scheme must be http or https", target.Endpoint)
	}

	timeout := defaultTimeout
	if target.TimeoutSeconds > 0 {
		timeout = time.Duration(target.TimeoutSeconds) * time.Second
	}

	c.Logger.Debug("configuring http api client",
		slog.String("endpoint", endpoint),
		slog.Bool("authenticated", target.Token != ""))

	c.endpoint = endpoint
	c.token = target.Token
	c.target = target
	c.httpClient = &http.Client{Timeout: timeout}
	return nil
}

// Ping checks the engine's version endpoint.
func (c *Client) Ping(ctx context.Context) error {
	if c.httpClient == nil {
		return fmt.Errorf("engine connection not established")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint+versionPath, nil)
	if err != nil {
		return err
	}
	c.setHeaders(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to ping engine: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return newAPIError(resp)
	}
	return nil
}

// submitRequest is the wire form of one statement submission.
type submitRequest struct {
	Statement string `json:"statement"`
	Database  string `json:"database,omitempty"`
	Schema    string `json:"schema,omitempty"`
}

// Submit posts one DDL statement to the statement endpoint.
func (c *Client) Submit(ctx context.Context, statement string) error {
	if c.httpClient == nil {
		return fmt.Errorf("engine connection not established")
	}

	body := submitRequest{
		Statement: statement,
		Database:  c.target.Database,
		Schema:    c.target.Schema,
	}
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(body); err != nil {
		return fmt.Errorf("failed to encode statement: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+statementsPath, &buf)
	if err != nil {
		return err
	}
	c.setHeaders(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to submit statement: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return newAPIError(resp)
	}
	return nil
}

// Close releases the HTTP client. No connection is held open.
func (c *Client) Close() error {
	if c.httpClient != nil {
		c.httpClient.CloseIdleConnections()
		c.httpClient = nil
	}
	return nil
}

func (c *Client) setHeaders(req *http.Request) {
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
}

// maxErrorBody caps how much of a failed response lands in an error
// message.
const maxErrorBody = 512

// APIError is returned when the engine answers with a non-2xx status.
type APIError struct {
	StatusCode int
	Message    string // parsed "message" field, if the body had one
	Body       string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("engine api http %d: %s", e.StatusCode, e.Message)
	}
	msg := strings.TrimSpace(e.Body)
	if msg == "" {
		msg = http.StatusText(e.StatusCode)
	}
	if len(msg) > maxErrorBody {
		msg = msg[:maxErrorBody] + "..."
	}
	return fmt.Sprintf("engine api http %d: %s", e.StatusCode, msg)
}

// newAPIError builds an APIError from a failed response, pulling the
// message out of a {"message": ...} body when present.
func newAPIError(resp *http.Response) *APIError {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64*1024))

	apiErr := &APIError{StatusCode: resp.StatusCode, Body: string(raw)}

	var wire struct {
		Message string `json:"message"`
	}
	if json.Unmarshal(raw, &wire) == nil && wire.Message != "" {
		apiErr.Message = wire.Message
	}
	return apiErr
}

// Ensure Client implements the engine.Client interface
var _ engine.Client = (*Client)(nil)
