package domain

import "strings"

// Candidate is a watched person, identified by the display form of the full name
type Candidate struct {
	FullName   string `json:"full_name"`
	ExternalID string `json:"external_id,omitempty"` // optional, e.g. token address
}

// NewCandidate makes a candidate from name and surname parts
func NewCandidate(name, surname, externalID string) Candidate {
	full := strings.Join(strings.Fields(name+" "+surname), " ")
	return Candidate{FullName: full, ExternalID: strings.TrimSpace(externalID)}
}

// Source is a monitored origin of items
type Source struct {
	URL  string     `json:"url"`
	Kind SourceKind `json:"kind"`
}

// SourceKind selects how the content of a source is extracted
type SourceKind string

// enum of source kinds
const (
	SourceHTML SourceKind = "html" // home page with many article blocks
	SourceRSS  SourceKind = "rss"  // rss or atom feed
	SourcePage SourceKind = "page" // single article page, main content only
)
