package extract

import (
	"sort"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/byteowlz/a11yscan/internal/dom"
)

const buttonQuery = `button, [role="button"], input[type="button"], input[type="submit"], input[type="reset"], input[type="image"]`

// contextDepth bounds how far up parentContext looks for surrounding text.
const contextDepth = 3

// Buttons returns the top MaxButtons native and ARIA buttons, de-duplicated by
// selector and ordered by descending importance.
func Buttons(doc *dom.Document) []ButtonCandidate {
	seen := make(map[string]bool)
	var out []ButtonCandidate

	doc.Find(buttonQuery).Each(func(_ int, s *goquery.Selection) {
		if isHidden(s) || s.Is("[disabled]") {
			return
		}
		selector := dom.SelectorFor(s)
		if seen[selector] {
			return
		}
		seen[selector] = true

		text := buttonText(s)
		label := strings.TrimSpace(s.AttrOr("aria-label", ""))
		inMain := dom.InMainContent(s)
		out = append(out, ButtonCandidate{
			ButtonText:       text,
			CurrentAriaLabel: label,
			ParentContext:    parentContext(s, text),
			Selector:         selector,
			IsMainContent:    inMain,
			ImportanceScore: scoreButton(buttonSignals{
				inMain:    inMain,
				class:     s.AttrOr("class", ""),
				inputType: strings.ToLower(s.AttrOr("type", "")),
				text:      text,
				ariaLabel: label,
			}),
		})
	})

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].ImportanceScore > out[j].ImportanceScore
	})
	if len(out) > MaxButtons {
		out = out[:MaxButtons]
	}
	return out
}

func buttonText(s *goquery.Selection) string {
	if goquery.NodeName(s) == "input" {
		if v := collapse(s.AttrOr("value", "")); v != "" {
			return v
		}
		return collapse(s.AttrOr("alt", ""))
	}
	return visibleText(s)
}

// parentContext returns the nearest ancestor text that says more than the
// button itself, cut to MaxParentContext runes.
func parentContext(s *goquery.Selection, own string) string {
	p := s.Parent()
	for depth := 0; depth < contextDepth && p.Length() > 0; depth++ {
		name := goquery.NodeName(p)
		if name == "body" || name == "html" {
			break
		}
		if text := visibleText(p); text != "" && text != own {
			return truncateRunes(text, MaxParentContext)
		}
		p = p.Parent()
	}
	return ""
}
