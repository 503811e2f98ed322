package extract

import (
	"sort"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/byteowlz/a11yscan/internal/dom"
)

var skippedHrefPrefixes = []string{"#", "javascript:", "mailto:", "tel:"}

// Links returns the top MaxLinks anchors with a navigable href and visible
// text, de-duplicated by selector and ordered by descending importance.
func Links(doc *dom.Document) []LinkCandidate {
	seen := make(map[string]bool)
	var out []LinkCandidate

	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href := strings.TrimSpace(s.AttrOr("href", ""))
		if href == "" || hasSkippedPrefix(href) || isHidden(s) {
			return
		}
		text := visibleText(s)
		if text == "" {
			return
		}
		selector := dom.SelectorFor(s)
		if seen[selector] {
			return
		}
		seen[selector] = true

		inMain := dom.InMainContent(s)
		out = append(out, LinkCandidate{
			URL:              doc.Resolve(href),
			LinkText:         text,
			CurrentTitle:     strings.TrimSpace(s.AttrOr("title", "")),
			CurrentAriaLabel: strings.TrimSpace(s.AttrOr("aria-label", "")),
			Selector:         selector,
			IsMainContent:    inMain,
			ImportanceScore: scoreLink(linkSignals{
				inMain: inMain,
				class:  s.AttrOr("class", ""),
				text:   text,
			}),
		})
	})

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].ImportanceScore > out[j].ImportanceScore
	})
	if len(out) > MaxLinks {
		out = out[:MaxLinks]
	}
	return out
}

func hasSkippedPrefix(href string) bool {
	lower := strings.ToLower(href)
	for _, p := range skippedHrefPrefixes {
		if strings.HasPrefix(lower, p) {
			return true
		}
	}
	return false
}
