package extract

import (
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"github.com/byteowlz/a11yscan/internal/dom"
)

var (
	styleDimension = regexp.MustCompile(`(?i)(?:^|;)\s*(width|height)\s*:\s*([0-9.]+)px`)
	cssURL         = regexp.MustCompile(`(?i)url\(\s*['"]?([^'")]+?)['"]?\s*\)`)
	hiddenStyle    = regexp.MustCompile(`(?i)(display\s*:\s*none|visibility\s*:\s*hidden)`)
)

// collapse trims s and folds runs of whitespace into single spaces.
func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// truncateRunes cuts s to at most n runes.
func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return strings.TrimSpace(string(r[:n]))
}

// visibleText is the collapsed text of s with script and style content skipped.
func visibleText(s *goquery.Selection) string {
	var b strings.Builder
	for _, n := range s.Nodes {
		writeText(&b, n)
	}
	return collapse(b.String())
}

func writeText(b *strings.Builder, n *html.Node) {
	switch n.Type {
	case html.TextNode:
		b.WriteString(n.Data)
		b.WriteByte(' ')
		return
	case html.ElementNode:
		if n.Data == "script" || n.Data == "style" || n.Data == "noscript" || n.Data == "template" {
			return
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		writeText(b, c)
	}
}

// isHidden reports whether s or an ancestor is hidden from rendering.
func isHidden(s *goquery.Selection) bool {
	for n := s.Get(0); n != nil && n.Type == html.ElementNode; n = n.Parent {
		if dom.Attr(n, dom.AttrHidden) == "true" {
			return true
		}
		for _, a := range n.Attr {
			if a.Key == "hidden" {
				return true
			}
		}
		if strings.EqualFold(dom.Attr(n, "aria-hidden"), "true") {
			return true
		}
		if hiddenStyle.MatchString(dom.Attr(n, "style")) {
			return true
		}
	}
	return false
}

// dimensions returns the rendered size of s when it is known: stamped live
// geometry first, then width/height attributes, then inline style.
func dimensions(s *goquery.Selection) (w, h int, ok bool) {
	if w, h, ok = pair(s.AttrOr(dom.AttrRenderedWidth, ""), s.AttrOr(dom.AttrRenderedHeight, "")); ok {
		return w, h, true
	}
	if w, h, ok = pair(s.AttrOr("width", ""), s.AttrOr("height", "")); ok {
		return w, h, true
	}

	var sw, sh string
	for _, m := range styleDimension.FindAllStringSubmatch(s.AttrOr("style", ""), -1) {
		switch strings.ToLower(m[1]) {
		case "width":
			sw = m[2]
		case "height":
			sh = m[2]
		}
	}
	return pair(sw, sh)
}

func pair(ws, hs string) (int, int, bool) {
	w, okW := parsePixels(ws)
	h, okH := parsePixels(hs)
	if !okW || !okH {
		return 0, 0, false
	}
	return w, h, true
}

func parsePixels(v string) (int, bool) {
	v = strings.TrimSuffix(strings.TrimSpace(v), "px")
	if v == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil || f < 0 {
		return 0, false
	}
	return int(f + 0.5), true
}

// ancestorClasses joins the class attribute of s and its parent.
func ancestorClasses(s *goquery.Selection) string {
	return strings.TrimSpace(s.AttrOr("class", "") + " " + s.Parent().AttrOr("class", ""))
}
