// Package fetcher performs the out-of-page HTTP requests: page HTML for the
// static engine, image bytes for the fetch fallback, and link probes.
package fetcher

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"
	"time"
)

const (
	maxHTMLBytes  = 10 << 20
	maxImageBytes = 8 << 20
)

// ErrNotImage is returned when an image URL answers with a non-image body.
var ErrNotImage = errors.New("response is not an image")

// CookieSource supplies browser cookies for a request URL.
type CookieSource interface {
	Cookies(ctx context.Context, targetURL string) ([]*http.Cookie, error)
}

type Options struct {
	Timeout         time.Duration
	UserAgent       string
	BrowserAgent    string
	FollowRedirects bool
	MaxRedirects    int
	Cookies         CookieSource
}

type FetchResult struct {
	HTML       string
	URL        string
	StatusCode int
}

type Client struct {
	client          *http.Client
	userAgent       string
	browserAgent    string
	cookies         CookieSource
	userAgentSelect *UserAgentSelector
}

func New(opts Options) *Client {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	hc := &http.Client{Timeout: timeout}
	switch {
	case !opts.FollowRedirects:
		hc.CheckRedirect = func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		}
	case opts.MaxRedirects > 0:
		limit := opts.MaxRedirects
		hc.CheckRedirect = func(_ *http.Request, via []*http.Request) error {
			if len(via) >= limit {
				return fmt.Errorf("stopped after %d redirects", limit)
			}
			return nil
		}
	}
	return &Client{
		client:          hc,
		userAgent:       opts.UserAgent,
		browserAgent:    opts.BrowserAgent,
		cookies:         opts.Cookies,
		userAgentSelect: NewUserAgentSelector(),
	}
}

// UserAgent is the configured custom agent, or one picked for the browser
// agent type.
func (c *Client) UserAgent() string {
	if c.userAgent != "" {
		return c.userAgent
	}
	return c.userAgentSelect.GetUserAgent(c.browserAgent)
}

// Request sends a browser-like request with cookies attached. The caller
// closes the body.
func (c *Client) Request(ctx context.Context, method, url, accept string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("User-Agent", c.UserAgent())
	if accept == "" {
		accept = "*/*"
	}
	req.Header.Set("Accept", accept)
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")

	if c.cookies != nil {
		// Cookie import failures degrade to an anonymous request.
		if cookies, err := c.cookies.Cookies(ctx, url); err == nil {
			for _, cookie := range cookies {
				req.AddCookie(cookie)
			}
		}
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch URL: %w", err)
	}
	return resp, nil
}

// FetchHTML downloads a page for the static engine.
func (c *Client) FetchHTML(ctx context.Context, url string) (*FetchResult, error) {
	resp, err := c.Request(ctx, http.MethodGet, url,
		"text/html,application/xhtml+xml,application/xml;q=0.9,image/avif,image/webp,*/*;q=0.8")
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("HTTP error: %d %s", resp.StatusCode, resp.Status)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxHTMLBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	return &FetchResult{
		HTML:       string(body),
		URL:        resp.Request.URL.String(),
		StatusCode: resp.StatusCode,
	}, nil
}

// FetchImageDataURI downloads an image and returns it as a base64 data URI.
func (c *Client) FetchImageDataURI(ctx context.Context, url string) (string, error) {
	resp, err := c.Request(ctx, http.MethodGet, url, "image/avif,image/webp,image/png,image/jpeg,image/*;q=0.8")
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return "", fmt.Errorf("HTTP error: %d %s", resp.StatusCode, resp.Status)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxImageBytes))
	if err != nil {
		return "", fmt.Errorf("failed to read image body: %w", err)
	}

	mediaType := imageType(resp.Header.Get("Content-Type"), body)
	if mediaType == "" {
		return "", fmt.Errorf("%w: %s", ErrNotImage, resp.Header.Get("Content-Type"))
	}
	return "data:" + mediaType + ";base64," + base64.StdEncoding.EncodeToString(body), nil
}

// imageType prefers the declared content type and sniffs the body when the
// server sends something generic.
func imageType(declared string, body []byte) string {
	if mt, _, err := mime.ParseMediaType(declared); err == nil && strings.HasPrefix(mt, "image/") {
		return mt
	}
	if sniffed := http.DetectContentType(body); strings.HasPrefix(sniffed, "image/") {
		return sniffed
	}
	return ""
}
