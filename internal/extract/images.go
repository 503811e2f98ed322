package extract

import (
	"regexp"
	"sort"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/byteowlz/a11yscan/internal/dom"
)

// minBackgroundSize excludes tracking pixels and decorative slivers.
const minBackgroundSize = 50

// imgSourceAttrs are tried in order; lazy loaders park the real URL in data
// attributes and leave a placeholder in src.
var imgSourceAttrs = []string{"src", "data-src", "data-lazy-src", "lazy-src", "data-original"}

const backgroundContainers = "div, section, header, article, figure, aside, li, a, span"

var (
	rasterExtension = regexp.MustCompile(`\.(jpe?g|png|gif|webp|avif|bmp|tiff?)($|[?#&])`)
	rasterParam     = regexp.MustCompile(`[?&](format|fm|ext)=(jpe?g|png|gif|webp|avif)`)
	rasterDataURI   = regexp.MustCompile(`^data:image/(png|jpe?g|gif|webp|avif|bmp);`)
	imagePathHint   = regexp.MustCompile(`/(images?|img|photos?|media|uploads)/`)

	blockedImageMarkers = []string{
		".svg", "image/svg", "/ads/", "/ad/", "doubleclick", "adservice", "adserver",
		"banner", "tracking", "tracker", "pixel", "beacon", "spacer", "1x1", "blank.gif",
	}
)

// Images scans doc for <img> elements and CSS background images, drops
// non-raster and advertising references, de-duplicates by resolved URL and
// returns the candidates ordered by descending importance.
func Images(doc *dom.Document) []ImageCandidate {
	seen := make(map[string]bool)
	var out []ImageCandidate

	doc.Find("img").Each(func(_ int, s *goquery.Selection) {
		if isHidden(s) {
			return
		}
		raw := imgSource(s)
		if raw == "" {
			return
		}
		resolved := doc.Resolve(raw)
		if !IsRasterImageURL(resolved) || seen[resolved] {
			return
		}
		seen[resolved] = true

		w, h, sized := dimensions(s)
		inMain := dom.InMainContent(s)
		out = append(out, ImageCandidate{
			URL:           resolved,
			CurrentAlt:    strings.TrimSpace(s.AttrOr("alt", "")),
			Selector:      dom.SelectorFor(s),
			IsMainContent: inMain,
			ImportanceScore: scoreImage(imageSignals{
				inMain:   inMain,
				width:    w,
				height:   h,
				sized:    sized,
				class:    ancestorClasses(s),
				inFigure: s.Closest("figure").Length() > 0,
			}),
			Source: SourceImg,
			Width:  w,
			Height: h,
		})
	})

	doc.Find(backgroundContainers).Each(func(_ int, s *goquery.Selection) {
		raw := backgroundSource(s)
		if raw == "" || isHidden(s) {
			return
		}
		w, h, sized := dimensions(s)
		if !sized || w < minBackgroundSize || h < minBackgroundSize {
			return
		}
		resolved := doc.Resolve(raw)
		if !IsRasterImageURL(resolved) || seen[resolved] {
			return
		}
		seen[resolved] = true

		label := strings.TrimSpace(s.AttrOr("aria-label", ""))
		if label == "" {
			label = strings.TrimSpace(s.AttrOr("title", ""))
		}
		inMain := dom.InMainContent(s)
		out = append(out, ImageCandidate{
			URL:           resolved,
			CurrentAlt:    label,
			Selector:      dom.SelectorFor(s),
			IsMainContent: inMain,
			ImportanceScore: scoreImage(imageSignals{
				inMain:   inMain,
				width:    w,
				height:   h,
				sized:    true,
				class:    ancestorClasses(s),
				inFigure: s.Closest("figure").Length() > 0,
			}),
			Source: SourceBackground,
			Width:  w,
			Height: h,
		})
	})

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].ImportanceScore > out[j].ImportanceScore
	})
	return out
}

func imgSource(s *goquery.Selection) string {
	for _, a := range imgSourceAttrs {
		if v := strings.TrimSpace(s.AttrOr(a, "")); v != "" && !isPlaceholder(v) {
			return v
		}
	}
	return ""
}

// isPlaceholder matches the transparent GIF data URIs lazy loaders put in src.
func isPlaceholder(v string) bool {
	return strings.HasPrefix(v, "data:image/gif") || strings.HasPrefix(v, "data:image/svg")
}

// backgroundSource returns the first url() in the element's stamped computed
// background or its inline style.
func backgroundSource(s *goquery.Selection) string {
	if v := strings.TrimSpace(s.AttrOr(dom.AttrBackground, "")); v != "" && v != "none" {
		if m := cssURL.FindStringSubmatch(v); m != nil {
			return strings.TrimSpace(m[1])
		}
		return v
	}
	style := s.AttrOr("style", "")
	if !strings.Contains(strings.ToLower(style), "background") {
		return ""
	}
	if m := cssURL.FindStringSubmatch(style); m != nil {
		return strings.TrimSpace(m[1])
	}
	return ""
}

// IsRasterImageURL reports whether ref looks like a raster image and carries
// none of the vector, advertising or tracking markers.
func IsRasterImageURL(ref string) bool {
	lower := strings.ToLower(strings.TrimSpace(ref))
	if lower == "" {
		return false
	}
	if strings.HasPrefix(lower, "data:") {
		return rasterDataURI.MatchString(lower)
	}
	if !strings.HasPrefix(lower, "http://") && !strings.HasPrefix(lower, "https://") && !strings.HasPrefix(lower, "/") {
		return false
	}
	for _, marker := range blockedImageMarkers {
		if strings.Contains(lower, marker) {
			return false
		}
	}
	return rasterExtension.MatchString(lower) || rasterParam.MatchString(lower) || imagePathHint.MatchString(lower)
}
