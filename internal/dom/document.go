package dom

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"
	"golang.org/x/net/html"
)

var (
	// ErrElementNotFound is returned when a selector no longer resolves to a node.
	ErrElementNotFound = errors.New("element not found")
	// ErrInvalidSelector is returned when a selector cannot be compiled.
	ErrInvalidSelector = errors.New("invalid selector")
)

// Document is a parsed HTML document. Extractors read it, writers mutate it.
// It is not safe for concurrent writes; callers serialise mutations.
type Document struct {
	doc  *goquery.Document
	base *url.URL
}

// Parse parses html and records pageURL as the base for resolving relative
// references. A <base href> in the document takes precedence.
func Parse(pageURL, html string) (*Document, error) {
	return ParseReader(pageURL, strings.NewReader(html))
}

// ParseReader is Parse for an io.Reader.
func ParseReader(pageURL string, r io.Reader) (*Document, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}

	d := &Document{doc: doc}
	if pageURL != "" {
		base, err := url.Parse(pageURL)
		if err != nil {
			return nil, fmt.Errorf("invalid page URL %q: %w", pageURL, err)
		}
		d.base = base
	}

	if href, ok := doc.Find("base[href]").First().Attr("href"); ok {
		if ref, err := url.Parse(strings.TrimSpace(href)); err == nil {
			if d.base != nil {
				d.base = d.base.ResolveReference(ref)
			} else if ref.IsAbs() {
				d.base = ref
			}
		}
	}

	return d, nil
}

// Root returns the top-level selection.
func (d *Document) Root() *goquery.Selection {
	return d.doc.Selection
}

// Find runs a CSS query over the whole document.
func (d *Document) Find(selector string) *goquery.Selection {
	return d.doc.Find(selector)
}

// BaseURL returns the URL relative references resolve against, or nil.
func (d *Document) BaseURL() *url.URL {
	return d.base
}

// Title returns the trimmed <title> text.
func (d *Document) Title() string {
	return strings.TrimSpace(d.doc.Find("title").First().Text())
}

// Resolve turns ref into an absolute URL when a base is known. Data URIs and
// already-absolute references are returned unchanged.
func (d *Document) Resolve(ref string) string {
	ref = strings.TrimSpace(ref)
	if ref == "" || strings.HasPrefix(ref, "data:") {
		return ref
	}
	u, err := url.Parse(ref)
	if err != nil {
		return ref
	}
	if u.IsAbs() || d.base == nil {
		return u.String()
	}
	return d.base.ResolveReference(u).String()
}

// Lookup returns the first element matching selector.
func (d *Document) Lookup(selector string) (*goquery.Selection, error) {
	matcher, err := cascadia.Compile(selector)
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %v", ErrInvalidSelector, selector, err)
	}
	sel := d.doc.FindMatcher(matcher).First()
	if sel.Length() == 0 {
		return nil, fmt.Errorf("%w: %s", ErrElementNotFound, selector)
	}
	return sel, nil
}

// SetAttribute sets name=value on the first element matching selector.
func (d *Document) SetAttribute(_ context.Context, selector, name, value string) error {
	sel, err := d.Lookup(selector)
	if err != nil {
		return err
	}
	sel.SetAttr(name, value)
	return nil
}

// Attribute reads name from the first element matching selector.
func (d *Document) Attribute(selector, name string) (string, bool) {
	sel, err := d.Lookup(selector)
	if err != nil {
		return "", false
	}
	return sel.Attr(name)
}

// HTML serialises the current state of the document.
func (d *Document) HTML() (string, error) {
	var b strings.Builder
	for _, n := range d.doc.Nodes {
		if err := html.Render(&b, n); err != nil {
			return "", fmt.Errorf("failed to render HTML: %w", err)
		}
	}
	return b.String(), nil
}

// attr returns the value of key on n.
func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

// Attr is the exported form of attr for callers working on raw nodes.
func Attr(n *html.Node, key string) string {
	if n == nil {
		return ""
	}
	return attr(n, key)
}

// Attributes stamped onto elements by the live-page annotation script. Static
// documents may carry them too when produced by a previous live snapshot.
const (
	AttrRenderedWidth  = "data-a11y-w"
	AttrRenderedHeight = "data-a11y-h"
	AttrBackground     = "data-a11y-bg"
	AttrHidden         = "data-a11y-hidden"
	AttrLoaded         = "data-a11y-loaded"
)
