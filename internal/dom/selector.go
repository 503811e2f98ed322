package dom

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// maxSelectorDepth caps how many ancestor levels a selector may span.
const maxSelectorDepth = 5

// maxSelectorClasses is how many class tokens each level contributes.
const maxSelectorClasses = 2

// BuildSelector derives a short structural path for n. A valid id is returned
// as-is; otherwise each level up to body emits its tag plus at most two class
// tokens, joined with child combinators.
//
// The result depends only on the DOM, so repeated calls on an unchanged
// document return identical selectors.
func BuildSelector(n *html.Node) string {
	if n == nil || n.Type != html.ElementNode {
		return ""
	}
	if id := strings.TrimSpace(attr(n, "id")); isValidIdent(id) {
		return "#" + id
	}

	var parts []string
	for cur := n; cur != nil && cur.Type == html.ElementNode && len(parts) < maxSelectorDepth; cur = cur.Parent {
		if isSemanticRoot(cur) {
			break
		}
		parts = append(parts, selectorPart(cur))
	}
	if len(parts) == 0 {
		return n.Data
	}

	for i, j := 0, len(parts)-1; i < j; i, j = i+1, j-1 {
		parts[i], parts[j] = parts[j], parts[i]
	}
	return strings.Join(parts, " > ")
}

// SelectorFor is BuildSelector for the first node of s.
func SelectorFor(s *goquery.Selection) string {
	if s == nil || s.Length() == 0 {
		return ""
	}
	return BuildSelector(s.Get(0))
}

func selectorPart(n *html.Node) string {
	part := n.Data
	var classes []string
	for _, cls := range strings.Fields(attr(n, "class")) {
		if !isValidIdent(cls) {
			continue
		}
		classes = append(classes, cls)
		if len(classes) == maxSelectorClasses {
			break
		}
	}
	if len(classes) > 0 {
		part += "." + strings.Join(classes, ".")
	}
	return part
}

func isSemanticRoot(n *html.Node) bool {
	return n.Data == "body" || n.Data == "html"
}

// isValidIdent reports whether s can be used unescaped as a CSS class or id.
func isValidIdent(s string) bool {
	if s == "" {
		return false
	}
	if s[0] >= '0' && s[0] <= '9' {
		return false
	}
	if len(s) > 1 && s[0] == '-' && s[1] >= '0' && s[1] <= '9' {
		return false
	}
	if s == "-" {
		return false
	}
	return !strings.ContainsAny(s, ".:#[]()>~+*/\\'\"=,!@$%^&{}|;?<` ")
}
