package unlock

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	defaultTimeout   = 10 * time.Second
	maxResponseBytes = 1 << 20 // 1 MB
)

// Transport carries one unlock request to the authentication endpoint and
// returns the raw reply. It is an external collaborator: the engine
// treats any returned error or non-2xx status as Connection Failed and
// never retries on its own. Timeouts are the transport's responsibility.
type Transport interface {
	Send(ctx context.Context, endpoint string, params url.Values) (status int, body []byte, err error)
}

// HTTPTransport is the stock Transport, posting form-encoded parameters
// over HTTP(S).
type HTTPTransport struct {
	httpClient *http.Client
	timeout    time.Duration // applied after all options
	userAgent  string
}

// TransportOption configures an HTTPTransport.
type TransportOption func(*HTTPTransport)

// WithHTTPClient sets a custom HTTP client. The client's Timeout will be
// overridden by WithTimeout (or the default 10s).
func WithHTTPClient(c *http.Client) TransportOption {
	return func(t *HTTPTransport) {
		t.httpClient = c
	}
}

// WithTimeout sets the HTTP client timeout. Default is 10 seconds.
// Option ordering does not matter: timeout is always applied after all
// options.
func WithTimeout(d time.Duration) TransportOption {
	return func(t *HTTPTransport) {
		t.timeout = d
	}
}

// WithUserAgent sets the User-Agent header sent with requests.
func WithUserAgent(ua string) TransportOption {
	return func(t *HTTPTransport) {
		t.userAgent = ua
	}
}

// NewHTTPTransport creates the default HTTP transport.
func NewHTTPTransport(opts ...TransportOption) *HTTPTransport {
	t := &HTTPTransport{
		timeout:   defaultTimeout,
		userAgent: "distrho-unlock-go/1.0",
	}
	for _, opt := range opts {
		opt(t)
	}
	if t.httpClient == nil {
		t.httpClient = &http.Client{}
	}
	t.httpClient.Timeout = t.timeout
	return t
}

// Send posts the parameters to the endpoint and returns the status code
// and a bounded read of the body.
func (t *HTTPTransport) Send(ctx context.Context, endpoint string, params url.Values) (int, []byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(params.Encode()))
	if err != nil {
		return 0, nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	if t.userAgent != "" {
		req.Header.Set("User-Agent", t.userAgent)
	}

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return resp.StatusCode, nil, fmt.Errorf("read response: %w", err)
	}
	return resp.StatusCode, body, nil
}
