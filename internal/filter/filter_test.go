package filter

import (
	"errors"
	"reflect"
	"testing"
)

func TestDefaultEmailFilter(t *testing.T) {
	t.Parallel()

	in := []string{"a@example.com", "b@example.com", "a@example.com"}
	got := NewDefaultEmailFilter().Filter(in)
	if !reflect.DeepEqual(got, in) {
		t.Errorf("expected pass-through %v, got %v", in, got)
	}

	got[0] = "changed"
	if in[0] != "a@example.com" {
		t.Error("expected filter output not to alias its input")
	}
}

func TestDomainEmailFilter(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		opts []DomainEmailFilterOption
		in   []string
		want []string
	}{
		{
			name: "asset names are rejected",
			in:   []string{"logo@2x.png", "hero@3x.JPG", "info@example.com"},
			want: []string{"info@example.com"},
		},
		{
			name: "blocked domains are rejected case-insensitively",
			opts: []DomainEmailFilterOption{WithBlockedDomains("Sentry.io")},
			in:   []string{"abc123@sentry.io", "sales@example.com"},
			want: []string{"sales@example.com"},
		},
		{
			name: "role accounts are kept unless enabled",
			in:   []string{"noreply@example.com"},
			want: []string{"noreply@example.com"},
		},
		{
			name: "role accounts rejected with built-in list",
			opts: []DomainEmailFilterOption{WithRoleAccounts()},
			in:   []string{"NoReply@example.com", "postmaster@example.com", "jane@example.com"},
			want: []string{"jane@example.com"},
		},
		{
			name: "custom role list",
			opts: []DomainEmailFilterOption{WithRoleAccounts("info")},
			in:   []string{"info@example.com", "noreply@example.com"},
			want: []string{"noreply@example.com"},
		},
		{
			name: "duplicates within a call are collapsed",
			in:   []string{"a@example.com", "a@example.com", "b@example.com"},
			want: []string{"a@example.com", "b@example.com"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got := NewDomainEmailFilter(tt.opts...).Filter(tt.in)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Filter(%v) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestDefaultLinkFilter(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		seed string
		opts LinkOptions
		in   []string
		want []string
	}{
		{
			name: "resolves relative links against the seed",
			seed: "https://example.com",
			in:   []string{"/about", "team.html", "https://example.com/blog?page=2"},
			want: []string{
				"https://example.com/about",
				"https://example.com/team.html",
				"https://example.com/blog?page=2",
			},
		},
		{
			name: "rejects external and non-http links",
			seed: "https://example.com",
			in: []string{
				"https://other.com/page",
				"mailto:info@example.com",
				"javascript:void(0)",
				"tel:+123",
				"ftp://example.com/file",
				"#section",
				"",
			},
			want: []string{},
		},
		{
			name: "strips fragments and deduplicates within a call",
			seed: "https://example.com",
			in:   []string{"/about#team", "/about", "/ABOUT"},
			want: []string{"https://example.com/about", "https://example.com/ABOUT"},
		},
		{
			name: "links to the root collapse to the seed as given",
			seed: "https://example.com",
			in:   []string{"/", "https://EXAMPLE.com", "https://example.com/#top"},
			want: []string{"https://example.com"},
		},
		{
			name: "www prefix is the same site",
			seed: "https://example.com",
			in:   []string{"https://www.example.com/contact"},
			want: []string{"https://www.example.com/contact"},
		},
		{
			name: "allowed domains extend the scope",
			seed: "https://example.com",
			opts: LinkOptions{AllowedDomains: []string{"example.org"}},
			in:   []string{"https://example.org/imprint", "https://example.net/"},
			want: []string{"https://example.org/imprint"},
		},
		{
			name: "subdomains only when enabled",
			seed: "https://example.com",
			opts: LinkOptions{IncludeSubdomains: true},
			in:   []string{"https://shop.example.com/", "https://badexample.com/"},
			want: []string{"https://shop.example.com/"},
		},
		{
			name: "ignore and follow patterns",
			seed: "https://example.com",
			opts: LinkOptions{
				IgnorePatterns: []string{"/admin/*", "*.pdf"},
				FollowPatterns: []string{"/docs/*", "/admin/*"},
			},
			in: []string{
				"/admin/users",
				"/docs/manual.pdf",
				"/docs/intro",
				"/blog/post",
			},
			want: []string{"https://example.com/docs/intro"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			f, err := NewDefaultLinkFilter(tt.seed, tt.opts)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			got := f.Filter(tt.in)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Filter(%v) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestDefaultLinkFilter_NoMemoryAcrossCalls(t *testing.T) {
	t.Parallel()

	f, err := NewDefaultLinkFilter("https://example.com", LinkOptions{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	first := f.Filter([]string{"/about"})
	second := f.Filter([]string{"/about"})
	if !reflect.DeepEqual(first, second) {
		t.Errorf("expected identical output for identical input, got %v and %v", first, second)
	}
}

func TestNewDefaultLinkFilter_InvalidSeed(t *testing.T) {
	t.Parallel()

	for _, seed := range []string{"", "example.com", "ftp://example.com", "https://"} {
		if _, err := NewDefaultLinkFilter(seed, LinkOptions{}); !errors.Is(err, ErrInvalidSeedURL) {
			t.Errorf("seed %q: expected ErrInvalidSeedURL, got %v", seed, err)
		}
	}
}

func TestContactInfoLinkFilter(t *testing.T) {
	t.Parallel()

	t.Run("keeps contact and about pages only", func(t *testing.T) {
		t.Parallel()

		f, err := NewContactInfoLinkFilter("https://example.com", LinkOptions{})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		got := f.Filter([]string{"/about", "/contact", "/blog/post-1"})
		want := []string{"https://example.com/about", "https://example.com/contact"}
		if !reflect.DeepEqual(got, want) {
			t.Errorf("expected %v, got %v", want, got)
		}
	})

	t.Run("host name does not count as a keyword", func(t *testing.T) {
		t.Parallel()

		f, err := NewContactInfoLinkFilter("https://contact.example.com", LinkOptions{})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got := f.Filter([]string{"/blog"}); len(got) != 0 {
			t.Errorf("expected no links, got %v", got)
		}
	})

	t.Run("falls back to in-scope links when enabled", func(t *testing.T) {
		t.Parallel()

		f, err := NewContactInfoLinkFilter("https://example.com", LinkOptions{UseDefaultFallback: true})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		got := f.Filter([]string{"/blog", "https://other.com/contact"})
		want := []string{"https://example.com/blog"}
		if !reflect.DeepEqual(got, want) {
			t.Errorf("expected %v, got %v", want, got)
		}
	})

	t.Run("custom keywords", func(t *testing.T) {
		t.Parallel()

		f, err := NewContactInfoLinkFilter("https://example.com", LinkOptions{ContactKeywords: []string{"Team"}})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		got := f.Filter([]string{"/about", "/our-team"})
		want := []string{"https://example.com/our-team"}
		if !reflect.DeepEqual(got, want) {
			t.Errorf("expected %v, got %v", want, got)
		}
	})
}

func TestParseStrategy(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in      string
		want    Strategy
		wantErr bool
	}{
		{in: "", want: StrategyDefault},
		{in: "0", want: StrategyDefault},
		{in: "default", want: StrategyDefault},
		{in: "1", want: StrategyContactInfo},
		{in: "Contact", want: StrategyContactInfo},
		{in: "contact-info", want: StrategyContactInfo},
		{in: "2", wantErr: true},
		{in: "sitemap", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			t.Parallel()

			got, err := ParseStrategy(tt.in)
			if tt.wantErr {
				if !errors.Is(err, ErrUnknownLinkFilter) {
					t.Errorf("expected ErrUnknownLinkFilter, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("expected %v, got %v", tt.want, got)
			}
		})
	}
}

func TestNewLinkFilter(t *testing.T) {
	t.Parallel()

	if _, err := NewLinkFilter(Strategy(7), "https://example.com", LinkOptions{}); !errors.Is(err, ErrUnknownLinkFilter) {
		t.Errorf("expected ErrUnknownLinkFilter, got %v", err)
	}

	lf, err := NewLinkFilter(StrategyContactInfo, "https://example.com", LinkOptions{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := lf.(*ContactInfoLinkFilter); !ok {
		t.Errorf("expected *ContactInfoLinkFilter, got %T", lf)
	}

	lf, err = NewLinkFilter(StrategyDefault, "not a url", LinkOptions{})
	if err == nil || lf != nil {
		t.Errorf("expected nil filter and error, got %v, %v", lf, err)
	}
}

func TestMatchPattern(t *testing.T) {
	t.Parallel()

	tests := []struct {
		pattern string
		path    string
		want    bool
	}{
		{"/admin/*", "/admin/dashboard", true},
		{"/admin/*", "/admin", true},
		{"/admin/*", "/administrator", false},
		{"*.pdf", "/docs/file.pdf", true},
		{"/api/v?", "/api/v1", true},
		{"/api/v?", "/api/v10", false},
		{"/logout*", "/logout-now", true},
	}

	for _, tt := range tests {
		t.Run(tt.pattern+" "+tt.path, func(t *testing.T) {
			t.Parallel()

			if got := matchPattern(tt.pattern, tt.path); got != tt.want {
				t.Errorf("matchPattern(%q, %q) = %v, want %v", tt.pattern, tt.path, got, tt.want)
			}
		})
	}
}
