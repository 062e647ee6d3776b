package fetch

import (
	"context"
	"net/url"
	"strings"
)

// HostRouter sends each request to the Fetcher registered for the URL's
// host, falling back to a default. It is how per-site cookies and headers
// reach the wire without the crawler knowing about them.
//
// Routes must be registered before the router is shared between goroutines.
type HostRouter struct {
	routes   map[string]Fetcher
	fallback Fetcher
}

// NewHostRouter creates a router that uses fallback for unregistered hosts.
func NewHostRouter(fallback Fetcher) *HostRouter {
	return &HostRouter{
		routes:   make(map[string]Fetcher),
		fallback: fallback,
	}
}

// Route registers f for host. "www." is ignored so that example.com and
// www.example.com share a route.
func (r *HostRouter) Route(host string, f Fetcher) {
	r.routes[routeKey(host)] = f
}

// Len returns the number of registered routes.
func (r *HostRouter) Len() int {
	return len(r.routes)
}

// Fetch implements Fetcher.
func (r *HostRouter) Fetch(ctx context.Context, pageURL string) (string, error) {
	return r.fetcherFor(pageURL).Fetch(ctx, pageURL)
}

func (r *HostRouter) fetcherFor(pageURL string) Fetcher {
	u, err := url.Parse(pageURL)
	if err != nil {
		return r.fallback
	}
	if f, ok := r.routes[routeKey(u.Hostname())]; ok {
		return f
	}
	return r.fallback
}

func routeKey(host string) string {
	return strings.TrimPrefix(strings.ToLower(host), "www.")
}
