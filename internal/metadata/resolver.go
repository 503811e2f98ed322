// Package metadata describes link targets from their own page metadata so
// that most links need no generation call.
package metadata

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"strings"

	"github.com/PuerkitoBio/goquery"
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/byteowlz/a11yscan/internal/logging"
)

// ErrNoMetadata covers every way a target can fail to yield a description:
// unreachable, non-HTML, or no usable tags.
var ErrNoMetadata = errors.New("no metadata")

const (
	defaultCacheSize = 256
	maxBodyBytes     = 2 << 20
	htmlAccept       = "text/html,application/xhtml+xml;q=0.9,*/*;q=0.5"
)

var (
	titleKeys       = []string{"og:title", "twitter:title"}
	descriptionKeys = []string{"og:description", "twitter:description", "description"}
)

// Metadata is what a link target says about itself.
type Metadata struct {
	Title       string
	Description string
}

// Best is the description when present, else the title.
func (m Metadata) Best() string {
	if m.Description != "" {
		return m.Description
	}
	return m.Title
}

// Requester sends a request and returns the response; fetcher.Client
// satisfies it.
type Requester interface {
	Request(ctx context.Context, method, url, accept string) (*http.Response, error)
}

type result struct {
	meta Metadata
	ok   bool
}

// Resolver probes link targets and caches the outcome per URL, misses
// included.
type Resolver struct {
	client Requester
	cache  *lru.Cache[string, result]
	logger *slog.Logger
}

func NewResolver(client Requester, cacheSize int, logger *slog.Logger) *Resolver {
	if cacheSize <= 0 {
		cacheSize = defaultCacheSize
	}
	if logger == nil {
		logger = logging.Discard()
	}
	cache, _ := lru.New[string, result](cacheSize) // only fails for size <= 0
	return &Resolver{
		client: client,
		cache:  cache,
		logger: logger.With("component", "metadata"),
	}
}

// Resolve returns the target's metadata, or ErrNoMetadata. Network failures
// are logged at debug level and folded into ErrNoMetadata.
func (r *Resolver) Resolve(ctx context.Context, url string) (Metadata, error) {
	if res, ok := r.cache.Get(url); ok {
		if !res.ok {
			return Metadata{}, ErrNoMetadata
		}
		return res.meta, nil
	}

	meta, err := r.fetch(ctx, url)
	if err != nil {
		r.logger.Debug("link metadata unavailable", "url", logging.Truncate(url), "error", err)
		// A cancelled run must not poison the cache.
		if ctx.Err() == nil {
			r.cache.Add(url, result{})
		}
		return Metadata{}, ErrNoMetadata
	}
	r.cache.Add(url, result{meta: meta, ok: true})
	return meta, nil
}

func (r *Resolver) fetch(ctx context.Context, url string) (Metadata, error) {
	// HEAD first so that downloads cost no body transfer. Servers that reject
	// or drop HEAD still get the GET.
	head, err := r.client.Request(ctx, http.MethodHead, url, htmlAccept)
	switch {
	case err != nil:
		if ctx.Err() != nil {
			return Metadata{}, err
		}
		r.logger.Debug("HEAD failed, trying GET", "url", logging.Truncate(url), "error", err)
	default:
		head.Body.Close()
		if head.StatusCode < 400 && !isHTML(head.Header.Get("Content-Type")) {
			return Metadata{}, fmt.Errorf("content type %q", head.Header.Get("Content-Type"))
		}
	}

	resp, err := r.client.Request(ctx, http.MethodGet, url, htmlAccept)
	if err != nil {
		return Metadata{}, err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return Metadata{}, fmt.Errorf("HTTP error: %d", resp.StatusCode)
	}
	if !isHTML(resp.Header.Get("Content-Type")) {
		return Metadata{}, fmt.Errorf("content type %q", resp.Header.Get("Content-Type"))
	}

	meta, err := Parse(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return Metadata{}, err
	}
	if meta.Best() == "" {
		return Metadata{}, ErrNoMetadata
	}
	return meta, nil
}

// Parse scrapes title and description tags from an HTML document.
func Parse(r io.Reader) (Metadata, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return Metadata{}, fmt.Errorf("parse HTML: %w", err)
	}

	tags := make(map[string]string)
	doc.Find("meta[content]").Each(func(_ int, s *goquery.Selection) {
		key := strings.ToLower(strings.TrimSpace(s.AttrOr("property", s.AttrOr("name", ""))))
		value := collapse(s.AttrOr("content", ""))
		if key != "" && value != "" {
			if _, seen := tags[key]; !seen {
				tags[key] = value
			}
		}
	})

	meta := Metadata{
		Title:       first(tags, titleKeys),
		Description: first(tags, descriptionKeys),
	}
	if meta.Title == "" {
		meta.Title = collapse(doc.Find("head title").First().Text())
	}
	if meta.Title == "" {
		meta.Title = collapse(doc.Find("title").First().Text())
	}
	return meta, nil
}

func first(tags map[string]string, keys []string) string {
	for _, k := range keys {
		if v := tags[k]; v != "" {
			return v
		}
	}
	return ""
}

func isHTML(contentType string) bool {
	if contentType == "" {
		return true
	}
	mt, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}
	return mt == "text/html" || mt == "application/xhtml+xml"
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
