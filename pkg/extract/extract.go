// Package extract turns raw source content into items. Html home pages, rss/atom feeds and
// single article pages are supported. Items of home pages and feeds produced once are not
// produced again unless forgotten.
package extract

import (
	"fmt"
	"net/url"
	"strings"
	"sync"

	"github.com/umputun/habemus/pkg/domain"
)

// Extractor makes items from raw content of the source at sourceURL
type Extractor interface {
	Extract(raw, sourceURL string) ([]domain.Item, error)
}

// Dispatcher selects the extractor by source kind and drops items already produced before
type Dispatcher struct {
	extractors map[domain.SourceKind]Extractor
	seen       *Seen
}

// NewDispatcher makes dispatcher with html, rss and page extractors. If seen is nil
// items are not deduplicated across calls. Page sources are never deduplicated, a followed
// page keeps its title while the content changes.
func NewDispatcher(seen *Seen) *Dispatcher {
	return &Dispatcher{
		extractors: map[domain.SourceKind]Extractor{
			domain.SourceHTML: &HTMLExtractor{},
			domain.SourceRSS:  NewFeedExtractor(),
			domain.SourcePage: &PageExtractor{},
		},
		seen: seen,
	}
}

// Extract returns new items of the source raw content
func (d *Dispatcher) Extract(src domain.Source, raw string) ([]domain.Item, error) {
	kind := src.Kind
	if kind == "" {
		kind = domain.SourceHTML
	}
	ex, ok := d.extractors[kind]
	if !ok {
		return nil, fmt.Errorf("unsupported source kind %q for %s", src.Kind, src.URL)
	}
	items, err := ex.Extract(raw, src.URL)
	if err != nil {
		return nil, fmt.Errorf("extract %s: %w", src.URL, err)
	}
	if d.seen == nil || kind == domain.SourcePage {
		return items, nil
	}
	return d.seen.Filter(items), nil
}

// Forget makes ids extractable again
func (d *Dispatcher) Forget(ids []string) {
	if d.seen == nil {
		return
	}
	d.seen.Forget(ids)
}

// Len returns number of remembered item ids
func (d *Dispatcher) Len() int {
	if d.seen == nil {
		return 0
	}
	return d.seen.Len()
}

// Seen is the process-wide set of item ids produced by extraction, not candidate specific.
// Seen is safe for concurrent use.
type Seen struct {
	mu  sync.Mutex
	ids map[string]struct{}
}

// NewSeen makes empty set
func NewSeen() *Seen {
	return &Seen{ids: make(map[string]struct{})}
}

// Filter returns items with ids not seen before and remembers them
func (s *Seen) Filter(items []domain.Item) []domain.Item {
	s.mu.Lock()
	defer s.mu.Unlock()
	res := make([]domain.Item, 0, len(items))
	for _, it := range items {
		if _, ok := s.ids[it.ID]; ok {
			continue
		}
		s.ids[it.ID] = struct{}{}
		res = append(res, it)
	}
	return res
}

// Forget removes ids from the set
func (s *Seen) Forget(ids []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range ids {
		delete(s.ids, id)
	}
}

// Len returns number of remembered ids
func (s *Seen) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.ids)
}

// collapse trims s and replaces whitespace runs with a single space
func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// resolveLink makes href absolute using scheme and host of sourceURL.
// Returns empty string for links not pointing to a page.
func resolveLink(href, sourceURL string) string {
	href = strings.TrimSpace(href)
	if href == "" || strings.HasPrefix(href, "#") {
		return ""
	}
	ref, err := url.Parse(href)
	if err != nil {
		return ""
	}
	if ref.IsAbs() {
		if ref.Scheme != "http" && ref.Scheme != "https" {
			return "" // javascript:, mailto: and such
		}
		return ref.String()
	}
	base, err := url.Parse(sourceURL)
	if err != nil || base.Scheme == "" || base.Host == "" {
		return ""
	}
	origin := &url.URL{Scheme: base.Scheme, Host: base.Host, Path: "/"}
	return origin.ResolveReference(ref).String()
}
