package extract

import (
	"testing"

	"github.com/byteowlz/a11yscan/internal/dom"
)

func parse(t *testing.T, html string) *dom.Document {
	t.Helper()
	doc, err := dom.Parse("https://example.com/articles/1", html)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	return doc
}

func TestImages_SourcesAndFilters(t *testing.T) {
	html := `<body>
<main>
  <figure class="hero"><img src="/img/lead.jpg" width="800" height="400" alt=""></figure>
  <img data-src="https://cdn.example.com/lazy.webp" src="data:image/gif;base64,R0lGOD" width="200" height="150">
  <img src="/icons/logo.svg">
  <img src="https://ads.example.com/ads/promo.jpg">
  <img src="/tracking/pixel.gif" width="1" height="1">
  <img src="/img/lead.jpg" class="dup">
  <img lazy-src="photo.png" alt="Existing alt">
  <div class="cover" style="background-image: url('/media/cover.jpg'); width: 600px; height: 300px"></div>
  <div class="tiny" style="background-image:url(/media/tiny.jpg); width:20px; height:20px"></div>
  <div class="unsized" style="background-image:url(/media/unsized.jpg)"></div>
  <img src="/img/hidden.jpg" style="display:none">
  <img src="https://example.com/document.pdf">
</main>
</body>`
	got := Images(parse(t, html))

	want := map[string]ImageSource{
		"https://example.com/img/lead.jpg":      SourceImg,
		"https://cdn.example.com/lazy.webp":     SourceImg,
		"https://example.com/articles/photo.png": SourceImg,
		"https://example.com/media/cover.jpg":   SourceBackground,
	}
	if len(got) != len(want) {
		for _, c := range got {
			t.Logf("candidate: %s (%s) score=%d", c.URL, c.Source, c.ImportanceScore)
		}
		t.Fatalf("expected %d candidates, got %d", len(want), len(got))
	}
	for _, c := range got {
		src, ok := want[c.URL]
		if !ok {
			t.Errorf("unexpected candidate %q", c.URL)
			continue
		}
		if c.Source != src {
			t.Errorf("%s: expected source %q, got %q", c.URL, src, c.Source)
		}
		if !c.IsMainContent {
			t.Errorf("%s: expected main content", c.URL)
		}
	}

	if got[0].URL != "https://example.com/img/lead.jpg" {
		t.Errorf("expected hero figure image first, got %q", got[0].URL)
	}
}

func TestImages_SortedAndClamped(t *testing.T) {
	html := `<body>
<nav><img src="/img/nav.png" width="40" height="40"></nav>
<main><figure><img class="featured primary" src="/img/big.jpg" width="1200" height="800"></figure></main>
<div><img src="/img/plain.jpg" width="200" height="150"></div>
</body>`
	got := Images(parse(t, html))
	if len(got) != 3 {
		t.Fatalf("expected 3 candidates, got %d", len(got))
	}
	for i, c := range got {
		if c.ImportanceScore < 0 || c.ImportanceScore > 100 {
			t.Errorf("%s: score %d out of range", c.URL, c.ImportanceScore)
		}
		if i > 0 && got[i-1].ImportanceScore < c.ImportanceScore {
			t.Errorf("candidates not sorted at %d", i)
		}
	}
	if got[0].ImportanceScore != 100 {
		t.Errorf("expected clamped score 100 for featured image, got %d", got[0].ImportanceScore)
	}
	last := got[len(got)-1]
	if last.URL != "https://example.com/img/nav.png" || last.ImportanceScore != 0 {
		t.Errorf("expected nav icon last with score 0, got %s=%d", last.URL, last.ImportanceScore)
	}
}

func TestImages_TiesKeepDocumentOrder(t *testing.T) {
	html := `<body><div><img src="/img/a.jpg"><img src="/img/b.jpg"><img src="/img/c.jpg"></div></body>`
	got := Images(parse(t, html))
	order := []string{"a", "b", "c"}
	for i, c := range got {
		want := "https://example.com/img/" + order[i] + ".jpg"
		if c.URL != want {
			t.Errorf("position %d: expected %q, got %q", i, want, c.URL)
		}
	}
}

func TestImages_LiveAnnotations(t *testing.T) {
	html := `<body><main>
<div class="card" data-a11y-bg="url(&quot;https://cdn.example.com/card.jpg&quot;)" data-a11y-w="320" data-a11y-h="180"></div>
<img src="/img/offscreen.jpg" data-a11y-hidden="true">
</main></body>`
	got := Images(parse(t, html))
	if len(got) != 1 {
		t.Fatalf("expected 1 candidate, got %d", len(got))
	}
	c := got[0]
	if c.URL != "https://cdn.example.com/card.jpg" || c.Width != 320 || c.Height != 180 {
		t.Errorf("unexpected candidate %+v", c)
	}
}

func TestIsRasterImageURL(t *testing.T) {
	tests := []struct {
		url  string
		want bool
	}{
		{"https://x/a.jpg", true},
		{"https://x/a.JPEG?w=200", true},
		{"https://x/render?id=4&format=webp", true},
		{"https://x/images/12345", true},
		{"data:image/png;base64,AAAA", true},
		{"data:image/svg+xml;utf8,<svg/>", false},
		{"https://x/logo.svg", false},
		{"https://x/banner-top.jpg", false},
		{"https://x/tracking.gif", false},
		{"https://x/page.html", false},
		{"ftp://x/a.jpg", false},
		{"", false},
	}
	for _, tt := range tests {
		if got := IsRasterImageURL(tt.url); got != tt.want {
			t.Errorf("IsRasterImageURL(%q) = %v, want %v", tt.url, got, tt.want)
		}
	}
}
