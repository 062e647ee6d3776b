package extract

import "regexp"

// emailAtom is the character class of an unquoted local-part atom.
// It contains a backtick, so it cannot live inside a raw string literal.
const emailAtom = "[a-z0-9!#$%&'*+/=?^_`{|}~-]"

// emailPattern follows the RFC 5322 addr-spec grammar: dot-atom or quoted
// local parts, and hostname or bracketed IPv4 / general address literals
// as domains. Letters match in either case, so Sales@Example.COM is found
// as written.
var emailPattern = regexp.MustCompile(`(?i)(?:` + emailAtom + `+(?:\.` + emailAtom + `+)*` +
	`|"(?:[\x01-\x08\x0b\x0c\x0e-\x1f\x21\x23-\x5b\x5d-\x7f]|\\[\x01-\x09\x0b\x0c\x0e-\x7f])*")` +
	`@(?:(?:[a-z0-9](?:[a-z0-9-]*[a-z0-9])?\.)+[a-z0-9](?:[a-z0-9-]*[a-z0-9])?` +
	`|\[(?:(?:25[0-5]|2[0-4][0-9]|[01]?[0-9][0-9]?)\.){3}` +
	`(?:25[0-5]|2[0-4][0-9]|[01]?[0-9][0-9]?|[a-z0-9-]*[a-z0-9]:` +
	`(?:[\x01-\x08\x0b\x0c\x0e-\x1f\x21-\x5a\x53-\x7f]|\\[\x01-\x09\x0b\x0c\x0e-\x7f])+)\])`)

// FindEmails returns every substring of content that matches the email
// grammar, in order of appearance. Duplicates are kept.
func FindEmails(content string) []string {
	matches := emailPattern.FindAllString(content, -1)
	if matches == nil {
		return make([]string, 0)
	}
	return matches
}
