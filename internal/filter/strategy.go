package filter

import (
	"fmt"
	"strings"
)

// Strategy selects a link filter implementation.
type Strategy int

const (
	// StrategyDefault follows every in-scope link.
	StrategyDefault Strategy = iota
	// StrategyContactInfo follows only links that look like contact pages.
	StrategyContactInfo
)

// String returns the name used in configuration files and flags.
func (s Strategy) String() string {
	switch s {
	case StrategyDefault:
		return "default"
	case StrategyContactInfo:
		return "contact"
	default:
		return fmt.Sprintf("Strategy(%d)", int(s))
	}
}

// IsValid reports whether s names a known strategy.
func (s Strategy) IsValid() bool {
	return s == StrategyDefault || s == StrategyContactInfo
}

// ParseStrategy converts a configuration value into a Strategy.
// Both names and the numeric selectors "0" and "1" are accepted.
func ParseStrategy(s string) (Strategy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "0", "default":
		return StrategyDefault, nil
	case "1", "contact", "contact-info", "contactinfo":
		return StrategyContactInfo, nil
	default:
		return StrategyDefault, fmt.Errorf("%w: %q", ErrUnknownLinkFilter, s)
	}
}

// NewLinkFilter builds the link filter of the given strategy for one site.
func NewLinkFilter(strategy Strategy, seedURL string, opts LinkOptions) (LinkFilter, error) {
	var (
		lf  LinkFilter
		err error
	)
	switch strategy {
	case StrategyDefault:
		lf, err = NewDefaultLinkFilter(seedURL, opts)
	case StrategyContactInfo:
		lf, err = NewContactInfoLinkFilter(seedURL, opts)
	default:
		return nil, fmt.Errorf("%w: %d", ErrUnknownLinkFilter, int(strategy))
	}
	if err != nil {
		return nil, err
	}
	return lf, nil
}
