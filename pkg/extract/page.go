package extract

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/markusmobius/go-trafilatura"

	"github.com/umputun/habemus/pkg/domain"
)

// PageExtractor makes a single item from the main content of an article page,
// used for live blogs and special pages followed directly
type PageExtractor struct{}

// Extract runs trafilatura on raw page. The headline is the page title, or the first
// line of the content if there is no title.
func (e *PageExtractor) Extract(raw, sourceURL string) ([]domain.Item, error) {
	u, err := url.Parse(sourceURL)
	if err != nil {
		return nil, fmt.Errorf("parse source url: %w", err)
	}

	opts := trafilatura.Options{
		EnableFallback:  true,
		ExcludeComments: true,
		Deduplicate:     true,
		OriginalURL:     u,
	}
	result, err := trafilatura.Extract(strings.NewReader(raw), opts)
	if err != nil {
		return nil, fmt.Errorf("extract page content: %w", err)
	}
	if result == nil {
		return nil, nil
	}

	content := strings.TrimSpace(result.ContentText)
	headline := collapse(result.Metadata.Title)
	if headline == "" {
		first, _, _ := strings.Cut(content, "\n")
		headline = collapse(first)
	}
	if headline == "" {
		return nil, nil
	}
	return []domain.Item{domain.NewArticle(sourceURL, headline, collapse(content), sourceURL)}, nil
}
