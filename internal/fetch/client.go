package fetch

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"time"

	"golang.org/x/net/proxy"
)

// Default client settings.
const (
	// DefaultTimeout bounds a whole request, body included.
	DefaultTimeout = 30 * time.Second

	// DefaultMaxBodySize bounds buffered bodies read by Get.
	DefaultMaxBodySize = 10 * 1024 * 1024 // 10MB

	// DefaultUserAgent identifies pageloader in HTTP requests.
	DefaultUserAgent = "pageloader/1.0 (+https://github.com/nao1215/pageloader)"

	// maxRedirects stops redirect loops.
	maxRedirects = 10
)

// Client downloads pages and resources over HTTP.
// It is safe for concurrent use.
type Client struct {
	// httpClient performs the requests.
	httpClient *http.Client

	// timeout is the per-request timeout.
	timeout time.Duration

	// userAgent is sent with every request.
	userAgent string

	// headers are added to every request.
	headers map[string]string

	// maxBodySize limits bodies read by Get.
	maxBodySize int64

	// proxyAddress is an optional SOCKS5 proxy in host:port form.
	proxyAddress string

	// transport overrides the default transport when set.
	transport http.RoundTripper
}

// Option configures a Client.
type Option func(*Client)

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.timeout = d
	}
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(c *Client) {
		if ua != "" {
			c.userAgent = ua
		}
	}
}

// WithHeaders sets extra headers sent with every request.
func WithHeaders(headers map[string]string) Option {
	return func(c *Client) {
		c.headers = headers
	}
}

// WithMaxBodySize sets the maximum size of a body read by Get.
func WithMaxBodySize(size int64) Option {
	return func(c *Client) {
		if size > 0 {
			c.maxBodySize = size
		}
	}
}

// WithProxy routes requests through a SOCKS5 proxy at address (host:port).
func WithProxy(address string) Option {
	return func(c *Client) {
		c.proxyAddress = address
	}
}

// WithTransport replaces the underlying round tripper.
// Headers are still injected on top of it.
func WithTransport(rt http.RoundTripper) Option {
	return func(c *Client) {
		c.transport = rt
	}
}

// NewClient creates a Client with the given options.
// It fails only when the proxy address is malformed; the proxy itself is
// not contacted.
func NewClient(opts ...Option) (*Client, error) {
	c := &Client{
		timeout:     DefaultTimeout,
		userAgent:   DefaultUserAgent,
		maxBodySize: DefaultMaxBodySize,
	}

	for _, opt := range opts {
		opt(c)
	}

	base := c.transport
	if base == nil {
		transport, err := c.newTransport()
		if err != nil {
			return nil, err
		}
		base = transport
	}

	c.httpClient = &http.Client{
		Transport: &headerInjectingTransport{
			base:      base,
			userAgent: c.userAgent,
			headers:   c.headers,
		},
		Timeout: c.timeout,
		CheckRedirect: func(_ *http.Request, via []*http.Request) error {
			if len(via) >= maxRedirects {
				return http.ErrUseLastResponse
			}
			return nil
		},
	}

	return c, nil
}

// newTransport builds the default transport, dialing through the proxy
// when one is configured.
func (c *Client) newTransport() (*http.Transport, error) {
	transport, ok := http.DefaultTransport.(*http.Transport)
	if !ok {
		transport = &http.Transport{}
	}
	transport = transport.Clone()

	if c.proxyAddress == "" {
		return transport, nil
	}

	if !isValidProxyAddress(c.proxyAddress) {
		return nil, ErrInvalidProxyAddress
	}

	dialer, err := proxy.SOCKS5("tcp", c.proxyAddress, nil, proxy.Direct)
	if err != nil {
		return nil, fmt.Errorf("failed to create SOCKS5 dialer: %w", err)
	}

	transport.Proxy = nil
	if cd, ok := dialer.(proxy.ContextDialer); ok {
		transport.DialContext = cd.DialContext
	} else {
		transport.DialContext = func(_ context.Context, network, addr string) (net.Conn, error) {
			return dialer.Dial(network, addr)
		}
	}

	return transport, nil
}

// isValidProxyAddress checks that address is host:port with a port in 1-65535.
func isValidProxyAddress(address string) bool {
	host, port, err := net.SplitHostPort(address)
	if err != nil || host == "" {
		return false
	}
	n, err := strconv.Atoi(port)
	if err != nil {
		return false
	}
	return n >= 1 && n <= 65535
}

// Get fetches rawURL and returns its whole body.
func (c *Client) Get(ctx context.Context, rawURL string) ([]byte, error) {
	body, err := c.Stream(ctx, rawURL)
	if err != nil {
		return nil, err
	}
	defer body.Close()

	data, err := io.ReadAll(io.LimitReader(body, c.maxBodySize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read body of %s: %w", rawURL, err)
	}
	if int64(len(data)) > c.maxBodySize {
		return nil, fmt.Errorf("%w: %s is larger than %d bytes", ErrBodyTooLarge, rawURL, c.maxBodySize)
	}

	return data, nil
}

// Stream fetches rawURL and returns the open response body.
// The caller must close it.
func (c *Client) Stream(ctx context.Context, rawURL string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096)) //nolint:errcheck // drain for connection reuse
		_ = resp.Body.Close()                                      //nolint:errcheck // status error takes precedence
		return nil, &StatusError{URL: rawURL, StatusCode: resp.StatusCode}
	}

	return resp.Body, nil
}

// Timeout returns the per-request timeout.
func (c *Client) Timeout() time.Duration {
	return c.timeout
}

// headerInjectingTransport wraps an http.RoundTripper to add the
// User-Agent and custom headers to every request, redirects included.
type headerInjectingTransport struct {
	base      http.RoundTripper
	userAgent string
	headers   map[string]string
}

// RoundTrip implements http.RoundTripper.
func (t *headerInjectingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	clone := req.Clone(req.Context())

	if t.userAgent != "" {
		clone.Header.Set("User-Agent", t.userAgent)
	}
	for key, value := range t.headers {
		clone.Header.Set(key, value)
	}

	return t.base.RoundTrip(clone)
}
