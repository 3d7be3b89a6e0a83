package zenodo

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

const (
	ProductionURL = "https://zenodo.org"
	SandboxURL    = "https://sandbox.zenodo.org"

	// DefaultPageSize is the number of depositions requested per listing page.
	DefaultPageSize = 100

	depositionsPath = "/api/deposit/depositions"
)

// ErrMissingToken is returned when no access token is supplied.
var ErrMissingToken = errors.New("ZENODO_TOKEN is required")

// Option configures the Zenodo client.
type Option func(*Client)

// WithBaseURL sets the API host. An empty value keeps the current host.
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		if baseURL != "" {
			c.baseURL = strings.TrimRight(baseURL, "/")
		}
	}
}

// WithSandbox switches between the sandbox and production hosts.
func WithSandbox(sandbox bool) Option {
	return func(c *Client) {
		if sandbox {
			c.baseURL = SandboxURL
		} else {
			c.baseURL = ProductionURL
		}
	}
}

// WithHTTPClient sets the HTTP client used for requests.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// Client is a thin wrapper over the Zenodo deposit REST API. It is built once
// per run and passed to every operation.
type Client struct {
	token      string
	baseURL    string
	httpClient *http.Client
}

// New constructs a client authenticated with a bearer token.
func New(token string, opts ...Option) (*Client, error) {
	if strings.TrimSpace(token) == "" {
		return nil, ErrMissingToken
	}
	c := &Client{
		token:      token,
		baseURL:    ProductionURL,
		httpClient: http.DefaultClient,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// BaseURL reports the API host requests are resolved against.
func (c *Client) BaseURL() string { return c.baseURL }

// resolve qualifies a relative API path with the base URL. Absolute links
// handed back by the service are returned unchanged.
func (c *Client) resolve(ref string) (string, error) {
	u, err := url.Parse(ref)
	if err != nil {
		return "", fmt.Errorf("parse url %q: %w", ref, err)
	}
	if u.IsAbs() {
		return u.String(), nil
	}
	base, err := url.Parse(c.baseURL)
	if err != nil {
		return "", fmt.Errorf("parse zenodo base url: %w", err)
	}
	return base.ResolveReference(u).String(), nil
}

func (c *Client) newRequest(ctx context.Context, method, ref string, body io.Reader) (*http.Request, error) {
	endpoint, err := c.resolve(ref)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return nil, fmt.Errorf("build zenodo request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Accept", "application/json")
	return req, nil
}

// doJSON sends an optional JSON body and decodes a JSON response into out.
// out may be nil when the response body is not needed.
func (c *Client) doJSON(ctx context.Context, op, method, ref string, in, out any) error {
	var body io.Reader
	if in != nil {
		var buf bytes.Buffer
		if err := json.NewEncoder(&buf).Encode(in); err != nil {
			return fmt.Errorf("encode %s request: %w", op, err)
		}
		body = &buf
	}
	req, err := c.newRequest(ctx, method, ref, body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return c.do(op, req, out)
}

func (c *Client) do(op string, req *http.Request, out any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("zenodo %s: %w", op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		errBody, _ := io.ReadAll(resp.Body)
		return &APIError{
			Op:         op,
			StatusCode: resp.StatusCode,
			Status:     resp.Status,
			Body:       strings.TrimSpace(string(errBody)),
		}
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", op, err)
	}
	return nil
}

func (c *Client) get(ctx context.Context, op, ref string, out any) error {
	return c.doJSON(ctx, op, http.MethodGet, ref, nil, out)
}

func (c *Client) post(ctx context.Context, op, ref string, in, out any) error {
	return c.doJSON(ctx, op, http.MethodPost, ref, in, out)
}

func (c *Client) put(ctx context.Context, op, ref string, in, out any) error {
	return c.doJSON(ctx, op, http.MethodPut, ref, in, out)
}

func (c *Client) delete(ctx context.Context, op, ref string) error {
	return c.doJSON(ctx, op, http.MethodDelete, ref, nil, nil)
}

// putStream uploads raw bytes. size is sent as Content-Length when known.
func (c *Client) putStream(ctx context.Context, op, ref string, r io.Reader, size int64, out any) error {
	req, err := c.newRequest(ctx, http.MethodPut, ref, r)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/octet-stream")
	if size >= 0 {
		req.ContentLength = size
	}
	return c.do(op, req, out)
}

// APIError captures error details from Zenodo responses.
type APIError struct {
	Op         string
	StatusCode int
	Status     string
	Body       string
}

func (e *APIError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("zenodo %s failed: %s", e.Op, e.Status)
	}
	return fmt.Sprintf("zenodo %s failed: %s: %s", e.Op, e.Status, e.Body)
}
