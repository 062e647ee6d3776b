package fetch

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/chromedp/chromedp"
)

// BrowserFetcher renders pages in a shared headless Chrome instance, one
// tab per Fetch. Use it for sites that build their content with
// JavaScript.
type BrowserFetcher struct {
	allocCancel   context.CancelFunc
	browserCtx    context.Context
	browserCancel context.CancelFunc
	timeout       time.Duration
	waitTime      time.Duration
	userAgent     string
	proxyAddress  string
	execPath      string

	startOnce sync.Once
	startErr  error
	closeOnce sync.Once
}

// BrowserOption configures a BrowserFetcher.
type BrowserOption func(*BrowserFetcher)

// WithBrowserTimeout sets the per-page navigation timeout.
func WithBrowserTimeout(d time.Duration) BrowserOption {
	return func(b *BrowserFetcher) {
		b.timeout = d
	}
}

// WithWaitTime waits d after the body is ready before reading the DOM.
func WithWaitTime(d time.Duration) BrowserOption {
	return func(b *BrowserFetcher) {
		b.waitTime = d
	}
}

// WithBrowserUserAgent overrides Chrome's user agent.
func WithBrowserUserAgent(ua string) BrowserOption {
	return func(b *BrowserFetcher) {
		b.userAgent = ua
	}
}

// WithBrowserProxy routes the browser through a SOCKS5 proxy ("host:port").
func WithBrowserProxy(address string) BrowserOption {
	return func(b *BrowserFetcher) {
		b.proxyAddress = address
	}
}

// WithExecPath uses a specific Chrome binary.
func WithExecPath(path string) BrowserOption {
	return func(b *BrowserFetcher) {
		b.execPath = path
	}
}

// NewBrowserFetcher prepares the browser allocator. The Chrome process is
// launched on the first Fetch and shared by every later one. Call Close
// to release it.
func NewBrowserFetcher(opts ...BrowserOption) (*BrowserFetcher, error) {
	b := &BrowserFetcher{
		timeout: DefaultTimeout,
	}
	for _, opt := range opts {
		opt(b)
	}

	if b.proxyAddress != "" && !isValidProxyAddress(b.proxyAddress) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidProxyAddress, b.proxyAddress)
	}

	allocOpts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.DisableGPU,
		chromedp.NoSandbox,
		chromedp.Headless,
	)
	if b.userAgent != "" {
		allocOpts = append(allocOpts, chromedp.UserAgent(b.userAgent))
	}
	if b.proxyAddress != "" {
		allocOpts = append(allocOpts, chromedp.ProxyServer("socks5://"+b.proxyAddress))
	}
	if b.execPath != "" {
		allocOpts = append(allocOpts, chromedp.ExecPath(b.execPath))
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), allocOpts...)
	browserCtx, browserCancel := chromedp.NewContext(allocCtx)
	b.allocCancel = allocCancel
	b.browserCtx = browserCtx
	b.browserCancel = browserCancel
	return b, nil
}

// start launches Chrome once. Tabs created from browserCtx before it has
// run would each spawn and tear down a browser of their own.
func (b *BrowserFetcher) start() error {
	b.startOnce.Do(func() {
		if err := chromedp.Run(b.browserCtx); err != nil {
			b.startErr = fmt.Errorf("failed to launch chrome: %w", err)
		}
	})
	return b.startErr
}

// Fetch implements Fetcher. It returns the rendered outer HTML of the page.
func (b *BrowserFetcher) Fetch(ctx context.Context, pageURL string) (string, error) {
	if err := b.start(); err != nil {
		return "", NewFetchError(pageURL, err)
	}

	tabCtx, cancel := chromedp.NewContext(b.browserCtx)
	defer cancel()

	// Tabs hang off the browser context, so caller cancellation is forwarded.
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	timeoutCtx, timeoutCancel := context.WithTimeout(tabCtx, b.timeout)
	defer timeoutCancel()

	tasks := []chromedp.Action{
		chromedp.Navigate(pageURL),
		chromedp.WaitReady("body"),
	}
	if b.waitTime > 0 {
		tasks = append(tasks, chromedp.Sleep(b.waitTime))
	}

	var pageHTML string
	tasks = append(tasks, chromedp.OuterHTML("html", &pageHTML))

	if err := chromedp.Run(timeoutCtx, tasks...); err != nil {
		if ctx.Err() != nil {
			err = ctx.Err()
		}
		return "", NewFetchError(pageURL, err)
	}
	return pageHTML, nil
}

// Close shuts the browser down. It is safe to call more than once.
func (b *BrowserFetcher) Close() error {
	b.closeOnce.Do(func() {
		b.browserCancel()
		b.allocCancel()
	})
	return nil
}

var _ Fetcher = (*BrowserFetcher)(nil)
