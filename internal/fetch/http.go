package fetch

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/cookiejar"
	"strconv"
	"strings"
	"time"

	"golang.org/x/net/proxy"
)

// Defaults used by NewHTTPFetcher.
const (
	DefaultTimeout     = 30 * time.Second
	DefaultUserAgent   = "Mozilla/5.0 (X11; Linux x86_64; rv:128.0) Gecko/20100101 Firefox/128.0"
	DefaultMaxBodySize = 5 * 1024 * 1024 // 5MB
	maxRedirects       = 10
)

// HTTPFetcher fetches pages with a plain HTTP client.
type HTTPFetcher struct {
	client       *http.Client
	timeout      time.Duration
	userAgent    string
	maxBodySize  int64
	cookie       string
	headers      map[string]string
	proxyAddress string
	retries      int
	retryDelay   time.Duration
}

// HTTPOption configures an HTTPFetcher.
type HTTPOption func(*HTTPFetcher)

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) HTTPOption {
	return func(f *HTTPFetcher) {
		f.timeout = d
	}
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) HTTPOption {
	return func(f *HTTPFetcher) {
		f.userAgent = ua
	}
}

// WithMaxBodySize limits how many bytes of a response body are read.
func WithMaxBodySize(size int64) HTTPOption {
	return func(f *HTTPFetcher) {
		f.maxBodySize = size
	}
}

// WithCookie sends a raw cookie string ("a=1; b=2") with every request.
func WithCookie(cookie string) HTTPOption {
	return func(f *HTTPFetcher) {
		f.cookie = cookie
	}
}

// WithHeaders sends extra headers with every request.
func WithHeaders(headers map[string]string) HTTPOption {
	return func(f *HTTPFetcher) {
		f.headers = headers
	}
}

// WithProxy routes every request through the SOCKS5 proxy at address
// ("host:port").
func WithProxy(address string) HTTPOption {
	return func(f *HTTPFetcher) {
		f.proxyAddress = address
	}
}

// WithRetries retries network errors, 429 and 5xx responses up to n
// times, waiting delay between attempts.
func WithRetries(n int, delay time.Duration) HTTPOption {
	return func(f *HTTPFetcher) {
		if n >= 0 {
			f.retries = n
		}
		f.retryDelay = delay
	}
}

// WithHTTPClient uses client as is. Proxy, cookie and header options are
// ignored when a client is supplied.
func WithHTTPClient(client *http.Client) HTTPOption {
	return func(f *HTTPFetcher) {
		f.client = client
	}
}

// NewHTTPFetcher creates an HTTPFetcher.
func NewHTTPFetcher(opts ...HTTPOption) (*HTTPFetcher, error) {
	f := &HTTPFetcher{
		timeout:     DefaultTimeout,
		userAgent:   DefaultUserAgent,
		maxBodySize: DefaultMaxBodySize,
		retryDelay:  time.Second,
	}
	for _, opt := range opts {
		opt(f)
	}

	if f.client == nil {
		client, err := f.newClient()
		if err != nil {
			return nil, err
		}
		f.client = client
	}
	return f, nil
}

// newClient builds the http.Client from the fetcher's options.
func (f *HTTPFetcher) newClient() (*http.Client, error) {
	transport := &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		MaxIdleConns:        32,
		MaxIdleConnsPerHost: 4,
		IdleConnTimeout:     30 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
	}

	if f.proxyAddress != "" {
		if !isValidProxyAddress(f.proxyAddress) {
			return nil, fmt.Errorf("%w: %q", ErrInvalidProxyAddress, f.proxyAddress)
		}
		dialer, err := proxy.SOCKS5("tcp", f.proxyAddress, nil, proxy.Direct)
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
	}

	jar, _ := cookiejar.New(nil) //nolint:errcheck // cookiejar.New only fails with invalid options

	var rt http.RoundTripper = transport
	if f.cookie != "" || len(f.headers) > 0 {
		rt = &headerInjectingTransport{base: transport, cookie: f.cookie, headers: f.headers}
	}

	return &http.Client{
		Transport: rt,
		Timeout:   f.timeout,
		Jar:       jar,
		CheckRedirect: func(_ *http.Request, via []*http.Request) error {
			if len(via) >= maxRedirects {
				return http.ErrUseLastResponse
			}
			return nil
		},
	}, nil
}

// Fetch implements Fetcher.
func (f *HTTPFetcher) Fetch(ctx context.Context, pageURL string) (string, error) {
	var lastErr *FetchError
	for attempt := 0; attempt <= f.retries; attempt++ {
		if attempt > 0 && f.retryDelay > 0 {
			select {
			case <-ctx.Done():
				return "", NewFetchError(pageURL, ctx.Err())
			case <-time.After(f.retryDelay):
			}
		}

		body, err := f.fetchOnce(ctx, pageURL)
		if err == nil {
			return body, nil
		}
		lastErr = err
		if !err.Temporary() || ctx.Err() != nil {
			break
		}
	}
	return "", lastErr
}

// fetchOnce performs a single GET request.
func (f *HTTPFetcher) fetchOnce(ctx context.Context, pageURL string) (string, *FetchError) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return "", &FetchError{URL: pageURL, Err: err}
	}
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.5")

	resp, err := f.client.Do(req)
	if err != nil {
		return "", &FetchError{URL: pageURL, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096)) //nolint:errcheck // drain for connection reuse
		return "", &FetchError{URL: pageURL, StatusCode: resp.StatusCode, Err: ErrStatus}
	}

	if !isTextContent(resp.Header.Get("Content-Type")) {
		return "", nil
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBodySize))
	if err != nil {
		return "", &FetchError{URL: pageURL, StatusCode: resp.StatusCode, Err: err}
	}
	return string(body), nil
}

// isTextContent reports whether a Content-Type can carry extractable text.
// A missing header is treated as text.
func isTextContent(contentType string) bool {
	if contentType == "" {
		return true
	}
	ct := strings.ToLower(contentType)
	return strings.HasPrefix(ct, "text/") ||
		strings.Contains(ct, "html") ||
		strings.Contains(ct, "xml") ||
		strings.Contains(ct, "json")
}

// isValidProxyAddress checks that address is "host:port" with a port
// between 1 and 65535.
func isValidProxyAddress(address string) bool {
	host, port, err := net.SplitHostPort(address)
	if err != nil || host == "" {
		return false
	}
	n, err := strconv.Atoi(port)
	return err == nil && n >= 1 && n <= 65535
}

// headerInjectingTransport wraps an http.RoundTripper to inject
// custom headers and cookies into every request, redirects included.
type headerInjectingTransport struct {
	base    http.RoundTripper
	cookie  string
	headers map[string]string
}

// RoundTrip implements http.RoundTripper.
func (t *headerInjectingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	clone := req.Clone(req.Context())

	if t.cookie != "" {
		if existing := clone.Header.Get("Cookie"); existing != "" {
			clone.Header.Set("Cookie", existing+"; "+t.cookie)
		} else {
			clone.Header.Set("Cookie", t.cookie)
		}
	}
	for key, value := range t.headers {
		clone.Header.Set(key, value)
	}

	return t.base.RoundTrip(clone)
}

var _ Fetcher = (*HTTPFetcher)(nil)
