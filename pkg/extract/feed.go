package extract

import (
	"fmt"
	"html"

	"github.com/microcosm-cc/bluemonday"
	"github.com/mmcdole/gofeed"

	"github.com/umputun/habemus/pkg/domain"
)

// FeedExtractor makes an item from every entry of an rss or atom feed
type FeedExtractor struct {
	policy *bluemonday.Policy
}

// NewFeedExtractor makes feed extractor stripping all markup from entries
func NewFeedExtractor() *FeedExtractor {
	return &FeedExtractor{policy: bluemonday.StrictPolicy()}
}

// Extract parses raw feed, entries without title are skipped
func (e *FeedExtractor) Extract(raw, sourceURL string) ([]domain.Item, error) {
	feed, err := gofeed.NewParser().ParseString(raw)
	if err != nil {
		return nil, fmt.Errorf("parse feed: %w", err)
	}

	items := make([]domain.Item, 0, len(feed.Items))
	for _, entry := range feed.Items {
		headline := e.plain(entry.Title)
		if headline == "" {
			continue
		}
		content := e.plain(entry.Description + " " + entry.Content)
		items = append(items, domain.NewArticle(sourceURL, headline, content, resolveLink(entry.Link, sourceURL)))
	}
	return items, nil
}

// plain strips tags and entities, the sanitizer escapes text so it is unescaped back
func (e *FeedExtractor) plain(s string) string {
	return collapse(html.UnescapeString(e.policy.Sanitize(s)))
}
