package extract

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/umputun/habemus/pkg/domain"
)

// HTMLExtractor makes an item from every article-like block of a page having a heading
type HTMLExtractor struct{}

// Extract walks article, div and section blocks. The first h1-h4 of a block is the headline,
// the link is the first anchor of the headline or of the block, the content is the block text
// with text nodes separated by spaces.
// Blocks without a headline are skipped, repeated headlines are kept once.
func (e *HTMLExtractor) Extract(raw, sourceURL string) ([]domain.Item, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}

	var items []domain.Item
	ids := map[string]struct{}{}
	doc.Find("article, div, section").Each(func(_ int, block *goquery.Selection) {
		heading := block.Find("h1, h2, h3, h4").First()
		if heading.Length() == 0 {
			return
		}
		headline := collapse(heading.Text())
		if headline == "" {
			return
		}
		item := domain.NewArticle(sourceURL, headline, blockText(block), blockLink(heading, block, sourceURL))
		if _, dup := ids[item.ID]; dup {
			return
		}
		ids[item.ID] = struct{}{}
		items = append(items, item)
	})
	return items, nil
}

func blockLink(heading, block *goquery.Selection, sourceURL string) string {
	for _, sel := range []*goquery.Selection{heading.Find("a[href]"), block.Find("a[href]")} {
		if href, ok := sel.First().Attr("href"); ok {
			if link := resolveLink(href, sourceURL); link != "" {
				return link
			}
		}
	}
	return ""
}

// blockText joins text nodes of the selection with spaces, script and style content is skipped
func blockText(sel *goquery.Selection) string {
	var parts []string
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		switch {
		case n.Type == html.TextNode:
			parts = append(parts, n.Data)
			return
		case n.Type == html.ElementNode && (n.DataAtom == atom.Script || n.DataAtom == atom.Style):
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	for _, n := range sel.Nodes {
		walk(n)
	}
	return collapse(strings.Join(parts, " "))
}
