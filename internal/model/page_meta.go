package model

// PageMeta holds the structured metadata of a fetched page.
type PageMeta struct {
	// Title is the text of the <title> element.
	Title string `json:"title,omitempty"`

	// Description is the content of <meta name="description">, falling
	// back to og:description.
	Description string `json:"description,omitempty"`

	// Language is the lang attribute of the <html> element.
	Language string `json:"language,omitempty"`

	// Canonical is the href of <link rel="canonical">.
	Canonical string `json:"canonical,omitempty"`

	// MetaTags maps meta name (or OpenGraph property) to content.
	MetaTags map[string]string `json:"meta_tags,omitempty"`
}

// IsEmpty reports whether no metadata was found.
func (m PageMeta) IsEmpty() bool {
	return m.Title == "" && m.Description == "" && m.Language == "" &&
		m.Canonical == "" && len(m.MetaTags) == 0
}
