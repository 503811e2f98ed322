package dom

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

var (
	mainTags  = map[string]bool{"main": true, "article": true}
	mainHints = []string{"main", "content", "article"}

	chromeTags  = map[string]bool{"nav": true, "aside": true, "footer": true, "header": true}
	chromeHints = []string{"sidebar", "menu", "nav", "banner"}
	chromeRoles = map[string]bool{"navigation": true, "banner": true, "contentinfo": true, "complementary": true}
)

// IsMainContent walks from n outwards and reports whether the nearest
// qualifying ancestor marks primary content. Chrome regions (nav, aside,
// footer, header, menus, ads) and an exhausted ancestry both yield false.
func IsMainContent(n *html.Node) bool {
	for cur := n; cur != nil && cur.Type == html.ElementNode; cur = cur.Parent {
		if isSemanticRoot(cur) {
			break
		}
		class := strings.ToLower(attr(cur, "class"))
		id := strings.ToLower(attr(cur, "id"))
		role := strings.ToLower(attr(cur, "role"))

		if mainTags[cur.Data] || role == "main" || containsAny(class, mainHints) || containsAny(id, mainHints) {
			return true
		}
		if chromeTags[cur.Data] || chromeRoles[role] || containsAny(class, chromeHints) || hasAdToken(class) {
			return false
		}
	}
	return false
}

// InMainContent is IsMainContent for the first node of s.
func InMainContent(s *goquery.Selection) bool {
	if s == nil || s.Length() == 0 {
		return false
	}
	return IsMainContent(s.Get(0))
}

func containsAny(s string, needles []string) bool {
	if s == "" {
		return false
	}
	for _, n := range needles {
		if strings.Contains(s, n) {
			return true
		}
	}
	return false
}

// hasAdToken matches advertising classes on token boundaries so that words
// such as "header" or "download" do not count.
func hasAdToken(class string) bool {
	for _, tok := range strings.Fields(class) {
		switch {
		case tok == "ad", tok == "ads", tok == "adsbygoogle":
			return true
		case strings.HasPrefix(tok, "ad-"), strings.HasPrefix(tok, "ad_"), strings.HasPrefix(tok, "ads-"):
			return true
		case strings.HasSuffix(tok, "-ad"), strings.HasSuffix(tok, "_ad"), strings.HasSuffix(tok, "-ads"):
			return true
		case strings.Contains(tok, "advert"):
			return true
		}
	}
	return false
}
