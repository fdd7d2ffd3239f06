// Package backend implements the HTTP clients for the external collaborators
// the checkout workflow consumes: price calculation, order creation, and
// payment proof upload. The backend owns all authoritative business logic;
// this package only speaks its wire contracts.
package backend

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// maxResponseSize caps how much of a collaborator response is read.
const maxResponseSize = 1 << 20

// Options configures the shared backend Client.
type Options struct {
	// BaseURL is the backend API root, e.g. https://api.example.com.
	BaseURL string
	// Timeout bounds each request end to end. Defaults to 15s.
	Timeout time.Duration
	// Transport overrides the underlying RoundTripper. It is always wrapped
	// with otel instrumentation and outgoing request IDs.
	Transport http.RoundTripper
	// TraceOptions are passed to the otel transport, e.g. the tracer and
	// meter providers.
	TraceOptions []otelhttp.Option
}

// Client is the shared HTTP entry point for all backend collaborators.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient validates the base URL and builds the instrumented HTTP client.
func NewClient(opts Options) (*Client, error) {
	u, err := url.Parse(opts.BaseURL)
	if err != nil {
		return nil, errors.Wrap(err, "parse base URL")
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, errors.Errorf("base URL %q must be absolute", opts.BaseURL)
	}

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}

	rt := opts.Transport
	if rt == nil {
		rt = http.DefaultTransport
	}

	return &Client{
		baseURL: strings.TrimRight(opts.BaseURL, "/"),
		http: &http.Client{
			Timeout: timeout,
			Transport: requestIDTransport{
				next: otelhttp.NewTransport(rt, opts.TraceOptions...),
			},
		},
	}, nil
}

// post issues a POST and returns the response body and status code. An error
// here is a transport failure; application-level rejections arrive as a
// decodable body with success=false.
func (c *Client) post(ctx context.Context, path, contentType string, body io.Reader) ([]byte, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, body)
	if err != nil {
		return nil, 0, errors.Wrap(err, "build request")
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, 0, errors.Wrapf(err, "POST %s", path)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, resp.StatusCode, errors.Wrapf(err, "read response for %s", path)
	}
	return data, resp.StatusCode, nil
}

// requestIDTransport stamps a unique X-Request-ID on every outgoing request
// so backend logs can be correlated with this client's.
type requestIDTransport struct {
	next http.RoundTripper
}

func (t requestIDTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if req.Header.Get("X-Request-ID") == "" {
		clone := req.Clone(req.Context())
		clone.Header.Set("X-Request-ID", uuid.New().String())
		req = clone
	}
	return t.next.RoundTrip(req)
}
