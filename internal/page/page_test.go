package page

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/byteowlz/a11yscan/internal/dom"
	"github.com/byteowlz/a11yscan/internal/fetcher"
)

var (
	_ Page = (*Static)(nil)
	_ Page = (*Chrome)(nil)
	_ Page = (*Rod)(nil)
)

type fakeImages struct {
	calls []string
	uri   string
	err   error
}

func (f *fakeImages) FetchImageDataURI(_ context.Context, url string) (string, error) {
	f.calls = append(f.calls, url)
	return f.uri, f.err
}

const article = `<html><head><title>Shop</title></head><body>
<main><img id="hero" src="/hero.jpg" alt=""><a class="cta" href="/buy">Buy</a></main>
</body></html>`

func TestStatic_SetAttributeAndHTML(t *testing.T) {
	p, err := NewStatic("https://shop.test/", article, nil)
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()

	if err := p.SetAttribute(ctx, "#hero", "alt", "[AI] A red bicycle."); err != nil {
		t.Fatalf("SetAttribute failed: %v", err)
	}
	if err := p.SetAttribute(ctx, "#gone", "alt", "x"); !errors.Is(err, dom.ErrElementNotFound) {
		t.Errorf("expected ErrElementNotFound, got %v", err)
	}

	html, err := p.HTML(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(html, `alt="[AI] A red bicycle."`) {
		t.Errorf("write not serialised: %s", html)
	}

	doc, err := p.Document(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if doc.Title() != "Shop" || p.URL() != "https://shop.test/" {
		t.Errorf("unexpected document %q at %q", doc.Title(), p.URL())
	}
}

func TestStatic_ImageDataURI(t *testing.T) {
	ctx := context.Background()
	images := &fakeImages{uri: "data:image/jpeg;base64,AAAA"}
	p, _ := NewStatic("https://shop.test/", article, images)

	got, err := p.ImageDataURI(ctx, "#hero", "https://shop.test/hero.jpg")
	if err != nil || got != "data:image/jpeg;base64,AAAA" {
		t.Fatalf("ImageDataURI() = %q, %v", got, err)
	}
	if len(images.calls) != 1 || images.calls[0] != "https://shop.test/hero.jpg" {
		t.Errorf("unexpected fetches %v", images.calls)
	}

	inline := "data:image/png;base64,iVBORw0KGgo="
	if got, _ := p.ImageDataURI(ctx, "", inline); got != inline {
		t.Errorf("data URI should pass through, got %q", got)
	}

	images.err = errors.New("HTTP error: 403")
	if _, err := p.ImageDataURI(ctx, "#hero", "https://shop.test/hero.jpg"); !errors.Is(err, ErrNoImageData) {
		t.Errorf("expected ErrNoImageData, got %v", err)
	}

	bare, _ := NewStatic("https://shop.test/", article, nil)
	if _, err := bare.ImageDataURI(ctx, "#hero", "https://shop.test/hero.jpg"); !errors.Is(err, ErrNoImageData) {
		t.Errorf("expected ErrNoImageData without fetcher, got %v", err)
	}
}

func TestOpen_Static(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/old" {
			http.Redirect(w, r, "/shop", http.StatusMovedPermanently)
			return
		}
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(article))
	}))
	defer server.Close()

	client := fetcher.New(fetcher.Options{Timeout: 5 * time.Second, FollowRedirects: true})
	p, err := Open(context.Background(), EngineStatic, server.URL+"/old", client, Options{})
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer p.Close()
	if p.URL() != server.URL+"/shop" {
		t.Errorf("expected final URL, got %q", p.URL())
	}
	doc, _ := p.Document(context.Background())
	if doc.Resolve("/hero.jpg") != server.URL+"/hero.jpg" {
		t.Errorf("relative URLs should resolve against the final URL")
	}

	if _, err := Open(context.Background(), "lynx", server.URL, client, Options{}); err == nil {
		t.Error("expected error for unknown engine")
	}
}

func TestScript(t *testing.T) {
	got, err := script(setAttributeScript, "main img.x", "alt", `say "hi"`)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(got, "("+setAttributeScript+")(") {
		t.Errorf("expression should call the function: %q", got)
	}
	if !strings.HasSuffix(got, `("main img.x", "alt", "say \"hi\"")`) {
		t.Errorf("unexpected arguments in %q", got[len(setAttributeScript):])
	}

	if _, err := script(annotateScript, func() {}); err == nil {
		t.Error("expected error for unencodable argument")
	}
}

func TestWriteResult(t *testing.T) {
	if err := writeResult("ok", "#a"); err != nil {
		t.Errorf("ok: %v", err)
	}
	if err := writeResult("missing", "#a"); !errors.Is(err, dom.ErrElementNotFound) {
		t.Errorf("missing: %v", err)
	}
	if err := writeResult("invalid", "a[["); !errors.Is(err, dom.ErrInvalidSelector) {
		t.Errorf("invalid: %v", err)
	}
	if err := writeResult("", "#a"); err == nil {
		t.Error("expected error for unknown status")
	}
}

func TestDecodeImageData(t *testing.T) {
	d, err := decodeImageData(`{"uri":"data:image/jpeg;base64,AAAA","via":"canvas"}`)
	if err != nil || d.Via != "canvas" || d.URI != "data:image/jpeg;base64,AAAA" {
		t.Errorf("decodeImageData() = %+v, %v", d, err)
	}
	for _, raw := range []string{
		`{"error":"HTTP 403"}`,
		`{"uri":"data:text/html;base64,AAAA","via":"fetch"}`,
		`not json`,
	} {
		if _, err := decodeImageData(raw); err == nil {
			t.Errorf("expected error for %s", raw)
		}
	}
}

func TestRodCookies(t *testing.T) {
	expires := time.Unix(1893456000, 0)
	params := rodCookies("https://shop.test/", []*http.Cookie{
		{Name: "session", Value: "abc", Domain: ".shop.test", Path: "/", Secure: true, Expires: expires},
		{Name: "pref", Value: "dark"},
	})
	if len(params) != 2 {
		t.Fatalf("expected 2 cookies, got %d", len(params))
	}
	if params[0].Domain != ".shop.test" || params[0].URL != "" || !params[0].Secure || float64(params[0].Expires) != 1893456000 {
		t.Errorf("unexpected first cookie %+v", params[0])
	}
	if params[1].URL != "https://shop.test/" {
		t.Errorf("host-only cookie should be bound to the page URL, got %+v", params[1])
	}
}
