package scrape

import (
	"bytes"
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	readability "github.com/go-shiori/go-readability"
)

// contentSelectors are tried in order when readability cannot identify an
// article; they cover the common content containers of blog and docs
// platforms.
var contentSelectors = []string{"article", "main", ".content", "#content", ".post", ".entry"}

// extractText pulls the main textual content out of an HTML page. It prefers
// readability's article extraction and falls back to a selector-based scan of
// paragraphs, headings and list items when readability finds nothing usable.
func extractText(pageURL string, html []byte) (title, text string, err error) {
	parsed, err := url.Parse(pageURL)
	if err != nil {
		return "", "", fmt.Errorf("%w: invalid url %q: %w", ErrFetch, pageURL, err)
	}

	article, rerr := readability.FromReader(bytes.NewReader(html), parsed)
	if rerr == nil && strings.TrimSpace(article.TextContent) != "" {
		return article.Title, strings.TrimSpace(article.TextContent), nil
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(html))
	if err != nil {
		return "", "", fmt.Errorf("%w: parsing %s: %w", ErrFetch, pageURL, err)
	}

	doc.Find("script, style, nav, header, footer").Remove()

	container := doc.Selection
	for _, selector := range contentSelectors {
		if s := doc.Find(selector); s.Length() > 0 {
			container = s.First()
			break
		}
	}

	var parts []string
	container.Find("p, h1, h2, h3, h4, h5, h6, li").Each(func(_ int, s *goquery.Selection) {
		if t := strings.TrimSpace(s.Text()); t != "" {
			parts = append(parts, t)
		}
	})

	text = strings.Join(parts, "\n\n")
	if strings.TrimSpace(text) == "" {
		return "", "", fmt.Errorf("%w: no extractable content in %s", ErrFetch, pageURL)
	}

	return strings.TrimSpace(doc.Find("title").First().Text()), text, nil
}
