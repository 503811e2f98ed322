package page

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/byteowlz/a11yscan/internal/dom"
	"github.com/byteowlz/a11yscan/internal/fetcher"
)

// ImageFetcher downloads an image out of page and encodes it as a data URI.
type ImageFetcher interface {
	FetchImageDataURI(ctx context.Context, url string) (string, error)
}

// Static is a page parsed from HTML. Writes mutate the in-memory document and
// show up in HTML. Its images never count as loaded, so the image fallback is
// always a fetch.
type Static struct {
	url    string
	images ImageFetcher

	mu  sync.Mutex
	doc *dom.Document
}

// NewStatic parses html as the document at pageURL. images may be nil, in
// which case ImageDataURI only passes data URIs through.
func NewStatic(pageURL, html string, images ImageFetcher) (*Static, error) {
	doc, err := dom.Parse(pageURL, html)
	if err != nil {
		return nil, err
	}
	return &Static{url: pageURL, doc: doc, images: images}, nil
}

// LoadStatic fetches pageURL with client and parses the response. The final
// URL after redirects becomes the page URL.
func LoadStatic(ctx context.Context, client *fetcher.Client, pageURL string) (*Static, error) {
	res, err := client.FetchHTML(ctx, pageURL)
	if err != nil {
		return nil, err
	}
	finalURL := res.URL
	if finalURL == "" {
		finalURL = pageURL
	}
	return NewStatic(finalURL, res.HTML, client)
}

func (s *Static) URL() string { return s.url }

func (s *Static) HTML(context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.doc.HTML()
}

func (s *Static) Document(context.Context) (*dom.Document, error) {
	return s.doc, nil
}

func (s *Static) SetAttribute(ctx context.Context, selector, name, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.doc.SetAttribute(ctx, selector, name, value)
}

func (s *Static) ImageDataURI(ctx context.Context, _ string, src string) (string, error) {
	if strings.HasPrefix(src, "data:image/") {
		return src, nil
	}
	if s.images == nil {
		return "", fmt.Errorf("%w: no image fetcher for %s", ErrNoImageData, s.url)
	}
	uri, err := s.images.FetchImageDataURI(ctx, src)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrNoImageData, err)
	}
	return uri, nil
}

func (s *Static) Close() error { return nil }
