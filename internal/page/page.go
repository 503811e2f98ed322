// Package page gives the pipeline access to the document being analysed:
// HTML parsed in memory, or a live tab driven through chromedp or rod.
//
// Live pages run small scripts inside the tab. Arguments go in as JSON and
// results come back as JSON strings; no DOM references cross the boundary.
package page

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/byteowlz/a11yscan/internal/dom"
	"github.com/byteowlz/a11yscan/internal/fetcher"
)

// Engine names accepted by Open.
const (
	EngineStatic   = "static"
	EngineChromedp = "chromedp"
	EngineRod      = "rod"
)

// ErrNoImageData is returned when neither a canvas snapshot nor a fetch
// produced an image data URI.
var ErrNoImageData = errors.New("no image data")

// CookieSource supplies browser cookies for the page URL.
type CookieSource interface {
	Cookies(ctx context.Context, targetURL string) ([]*http.Cookie, error)
}

// Options configures live pages.
type Options struct {
	// Timeout bounds navigation and every in-page script call.
	Timeout         time.Duration
	WaitForSelector string
	UserAgent       string
	// ExecPath is the Chrome binary; empty lets the engine find one.
	ExecPath        string
	Cookies         CookieSource
	Logger          *slog.Logger
}

func (o *Options) defaults() {
	if o.Timeout <= 0 {
		o.Timeout = 30 * time.Second
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
}

func (o *Options) cookies(ctx context.Context, pageURL string) []*http.Cookie {
	if o.Cookies == nil {
		return nil
	}
	cookies, err := o.Cookies.Cookies(ctx, pageURL)
	if err != nil {
		o.Logger.Warn("cookie import failed", "url", pageURL, "error", err)
		return nil
	}
	return cookies
}

// script calls fn inside the page with JSON-encoded args. It returns the
// expression form used by CDP Runtime.evaluate.
func script(fn string, args ...any) (string, error) {
	encoded := make([]string, len(args))
	for i, a := range args {
		b, err := json.Marshal(a)
		if err != nil {
			return "", fmt.Errorf("encode script argument: %w", err)
		}
		encoded[i] = string(b)
	}
	return "(" + fn + ")(" + strings.Join(encoded, ", ") + ")", nil
}

// writeResult maps the status string returned by setAttributeScript.
func writeResult(status, selector string) error {
	switch status {
	case "ok":
		return nil
	case "missing":
		return fmt.Errorf("%w: %s", dom.ErrElementNotFound, selector)
	case "invalid":
		return fmt.Errorf("%w: %q", dom.ErrInvalidSelector, selector)
	default:
		return fmt.Errorf("unexpected write status %q", status)
	}
}

type imageData struct {
	URI string `json:"uri"`
	Via string `json:"via"`
	Err string `json:"error"`
}

// decodeImageData parses the JSON returned by imageDataScript.
func decodeImageData(raw string) (imageData, error) {
	var d imageData
	if err := json.Unmarshal([]byte(raw), &d); err != nil {
		return d, fmt.Errorf("decode image data: %w", err)
	}
	if d.Err != "" {
		return d, fmt.Errorf("%w: %s", ErrNoImageData, d.Err)
	}
	if !strings.HasPrefix(d.URI, "data:image/") {
		return d, fmt.Errorf("%w: result is not an image data URI", ErrNoImageData)
	}
	return d, nil
}

// Page is implemented by every engine.
type Page interface {
	URL() string
	HTML(ctx context.Context) (string, error)
	Document(ctx context.Context) (*dom.Document, error)
	SetAttribute(ctx context.Context, selector, name, value string) error
	ImageDataURI(ctx context.Context, selector, src string) (string, error)
	Close() error
}

// Open loads pageURL with the named engine. client serves the static engine
// and its image fallback.
func Open(ctx context.Context, engine, pageURL string, client *fetcher.Client, opts Options) (Page, error) {
	switch strings.ToLower(engine) {
	case "", EngineStatic:
		return LoadStatic(ctx, client, pageURL)
	case EngineChromedp, "chrome", "js":
		return OpenChrome(ctx, pageURL, opts)
	case EngineRod:
		return OpenRod(ctx, pageURL, opts)
	default:
		return nil, fmt.Errorf("unknown extraction engine %q", engine)
	}
}
