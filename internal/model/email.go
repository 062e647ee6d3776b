package model

import "strings"

// Email is an accepted email address together with the URL of the page
// it was first found on. Values are never modified after creation.
type Email struct {
	// Address is the email address as it appeared on the page.
	Address string `json:"address"`

	// URL is the page that produced the address first.
	URL string `json:"url"`
}

// NewEmail creates an Email for the given address and source URL.
func NewEmail(address, url string) Email {
	return Email{Address: address, URL: url}
}

// Domain returns the part of the address after the last '@'.
// It returns an empty string for malformed addresses.
func (e Email) Domain() string {
	idx := strings.LastIndex(e.Address, "@")
	if idx < 0 || idx == len(e.Address)-1 {
		return ""
	}
	return strings.Trim(e.Address[idx+1:], "[]")
}

// LocalPart returns the part of the address before the last '@'.
func (e Email) LocalPart() string {
	idx := strings.LastIndex(e.Address, "@")
	if idx < 0 {
		return e.Address
	}
	return e.Address[:idx]
}

// String returns the address.
func (e Email) String() string {
	return e.Address
}
