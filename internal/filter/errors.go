package filter

import "errors"

var (
	// ErrUnknownLinkFilter is returned when a link filter strategy selector
	// does not name a known strategy.
	ErrUnknownLinkFilter = errors.New("unknown link filter strategy")

	// ErrInvalidSeedURL is returned when a link filter is created for a seed
	// URL that is not an absolute http or https URL.
	ErrInvalidSeedURL = errors.New("invalid seed URL: must be an absolute http or https URL")
)
