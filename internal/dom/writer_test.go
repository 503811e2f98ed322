package dom

import (
	"context"
	"errors"
	"strings"
	"testing"
)

func TestWriter_ApplyAttributes(t *testing.T) {
	html := `<body><main>
<img id="pic" src="/a.jpg" alt="">
<div id="bg" style="background-image:url(/b.jpg)"></div>
<a id="lnk" href="/x">More</a>
<button id="btn"></button>
</main></body>`
	doc := mustParse(t, "https://example.com", html)
	w := NewWriter(doc, "", nil)
	ctx := context.Background()

	tests := []struct {
		kind     Kind
		selector string
		attr     string
	}{
		{KindImage, "#pic", "alt"},
		{KindBackgroundImage, "#bg", "aria-label"},
		{KindLink, "#lnk", "title"},
		{KindButton, "#btn", "aria-label"},
	}

	for _, tt := range tests {
		if err := w.Apply(ctx, tt.kind, tt.selector, "A red bicycle."); err != nil {
			t.Fatalf("Apply(%s) failed: %v", tt.kind, err)
		}
		got, ok := doc.Attribute(tt.selector, tt.attr)
		if !ok {
			t.Fatalf("%s: attribute %q not set", tt.kind, tt.attr)
		}
		if got != DefaultProvenancePrefix+"A red bicycle." {
			t.Errorf("%s: expected prefixed value, got %q", tt.kind, got)
		}
	}
}

func TestWriter_Idempotent(t *testing.T) {
	doc := mustParse(t, "", `<body><img id="pic" src="/a.jpg"></body>`)
	w := NewWriter(doc, "", nil)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if err := w.Apply(ctx, KindImage, "#pic", "A logo."); err != nil {
			t.Fatalf("Apply #%d failed: %v", i, err)
		}
	}
	got, _ := doc.Attribute("#pic", "alt")
	if got != "[AI] A logo." {
		t.Errorf("expected single prefix, got %q", got)
	}

	// Feeding an already formatted value back in must not stack prefixes.
	if err := w.Apply(ctx, KindImage, "#pic", got); err != nil {
		t.Fatalf("Apply failed: %v", err)
	}
	again, _ := doc.Attribute("#pic", "alt")
	if again != got {
		t.Errorf("expected %q after re-applying, got %q", got, again)
	}
}

func TestWriter_MissingElement(t *testing.T) {
	doc := mustParse(t, "", `<body><img id="pic" src="/a.jpg"></body>`)
	w := NewWriter(doc, "", nil)

	err := w.Apply(context.Background(), KindImage, "#gone", "A cat.")
	if !errors.Is(err, ErrElementNotFound) {
		t.Fatalf("expected ErrElementNotFound, got %v", err)
	}
	if got, _ := doc.Attribute("#pic", "alt"); got != "" {
		t.Errorf("unrelated element modified: %q", got)
	}
}

func TestWriter_InvalidSelector(t *testing.T) {
	doc := mustParse(t, "", `<body></body>`)
	w := NewWriter(doc, "", nil)
	err := w.Apply(context.Background(), KindButton, "div >> [", "Close")
	if !errors.Is(err, ErrInvalidSelector) {
		t.Fatalf("expected ErrInvalidSelector, got %v", err)
	}
}

func TestWriter_Format(t *testing.T) {
	w := NewWriter(nil, "", nil)
	tests := []struct {
		in   string
		want string
	}{
		{"A cat.", "[AI] A cat."},
		{"  two\n lines  ", "[AI] two lines"},
		{"<b>bold</b> claim", "[AI] bold claim"},
		{"Tom & Jerry", "[AI] Tom & Jerry"},
		{"[AI] [AI] nested", "[AI] nested"},
		{"   ", ""},
		{"<script>x()</script>", ""},
	}
	for _, tt := range tests {
		if got := w.Format(tt.in); got != tt.want {
			t.Errorf("Format(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestWriter_CustomPrefix(t *testing.T) {
	w := NewWriter(nil, "Generated: ", nil)
	got := w.Format("Generated: Search")
	if !strings.HasPrefix(got, "Generated: ") || strings.Count(got, "Generated:") != 1 {
		t.Errorf("unexpected formatted value %q", got)
	}
}

func TestDocument_HTMLReflectsWrites(t *testing.T) {
	doc := mustParse(t, "", `<html><body><img id="pic" src="/a.jpg"></body></html>`)
	if err := doc.SetAttribute(context.Background(), "#pic", "alt", "x"); err != nil {
		t.Fatalf("SetAttribute failed: %v", err)
	}
	out, err := doc.HTML()
	if err != nil {
		t.Fatalf("HTML failed: %v", err)
	}
	if !strings.Contains(out, `alt="x"`) {
		t.Errorf("expected rendered alt attribute, got %s", out)
	}
}

func TestDocument_Resolve(t *testing.T) {
	doc := mustParse(t, "https://example.com/blog/post", `<head><base href="/static/"></head><body></body>`)
	tests := []struct {
		in   string
		want string
	}{
		{"a.jpg", "https://example.com/static/a.jpg"},
		{"https://cdn.test/b.png", "https://cdn.test/b.png"},
		{"data:image/png;base64,AAA", "data:image/png;base64,AAA"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := doc.Resolve(tt.in); got != tt.want {
			t.Errorf("Resolve(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
