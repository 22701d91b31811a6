package domain

// ItemKind discriminates extracted content types
type ItemKind string

// KindArticle is the only kind produced by extractors for now
const KindArticle ItemKind = "article"

// Item represents one unit of content extracted from a monitored source.
// Items are immutable once created by an extractor.
type Item struct {
	ID       string   `json:"id"`
	Headline string   `json:"headline"`
	Content  string   `json:"content"`
	Link     string   `json:"link,omitempty"`
	Source   string   `json:"source"`
	Kind     ItemKind `json:"kind"`
}

// ItemID returns the stable identifier of an item extracted from source with the given headline.
// The same headline seen again on the same source always yields the same id.
func ItemID(source, headline string) string {
	return source + "::" + headline
}

// NewArticle makes an article item with its id derived from source and headline
func NewArticle(source, headline, content, link string) Item {
	return Item{
		ID:       ItemID(source, headline),
		Headline: headline,
		Content:  content,
		Link:     link,
		Source:   source,
		Kind:     KindArticle,
	}
}

// ScoredItem is an item matched for a specific candidate, with its confidence score
type ScoredItem struct {
	Item
	Score int `json:"confidence_score"`
}

// NewScoredItem attaches score to item, negative scores are clamped to zero
func NewScoredItem(item Item, score int) ScoredItem {
	if score < 0 {
		score = 0
	}
	return ScoredItem{Item: item, Score: score}
}

// MeanScore returns the arithmetic mean of items scores, zero for no items
func MeanScore(items []ScoredItem) float64 {
	if len(items) == 0 {
		return 0
	}
	total := 0
	for _, it := range items {
		total += it.Score
	}
	return float64(total) / float64(len(items))
}

// IDs returns ids of the scored items, in order
func IDs(items []ScoredItem) []string {
	res := make([]string, 0, len(items))
	for _, it := range items {
		res = append(res, it.ID)
	}
	return res
}
