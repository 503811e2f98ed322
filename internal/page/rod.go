package page

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"

	"github.com/byteowlz/a11yscan/internal/dom"
)

// settleTime is how long the DOM must stay unchanged after load.
const settleTime = 300 * time.Millisecond

// Rod is a live tab driven with go-rod. Pages are created with stealth
// patches applied.
type Rod struct {
	url    string
	opts   Options
	logger *slog.Logger

	launcher *launcher.Launcher
	browser  *rod.Browser
	page     *rod.Page
}

// OpenRod launches a local headless Chrome through rod's launcher and loads
// pageURL in a new tab.
func OpenRod(ctx context.Context, pageURL string, opts Options) (*Rod, error) {
	opts.defaults()
	r := &Rod{url: pageURL, opts: opts, logger: opts.Logger.With("component", "rod")}

	l := launcher.New().
		Headless(true).
		Set("disable-gpu").
		Set("no-first-run").
		Set("disable-blink-features", "AutomationControlled")
	if opts.ExecPath != "" {
		l = l.Bin(opts.ExecPath)
	}
	controlURL, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("launch Chrome: %w", err)
	}
	r.launcher = l

	r.browser = rod.New().ControlURL(controlURL)
	if err := r.browser.Connect(); err != nil {
		r.Close()
		return nil, fmt.Errorf("connect to Chrome: %w", err)
	}

	r.page, err = stealth.Page(r.browser)
	if err != nil {
		r.Close()
		return nil, fmt.Errorf("create tab: %w", err)
	}

	if opts.UserAgent != "" {
		if err := r.page.SetUserAgent(&proto.NetworkSetUserAgentOverride{UserAgent: opts.UserAgent}); err != nil {
			r.logger.Warn("user agent override failed", "error", err)
		}
	}
	if cookies := opts.cookies(ctx, pageURL); len(cookies) > 0 {
		if err := r.page.SetCookies(rodCookies(pageURL, cookies)); err != nil {
			r.logger.Warn("cookie injection failed", "error", err)
		}
	}

	navCtx, cancel := context.WithTimeout(ctx, opts.Timeout)
	defer cancel()
	page := r.page.Context(navCtx)
	if err := page.Navigate(pageURL); err != nil {
		r.Close()
		return nil, fmt.Errorf("navigate %s: %w", pageURL, err)
	}
	if err := page.WaitLoad(); err != nil {
		r.logger.Warn("wait load timeout", "url", pageURL, "error", err)
	}
	if err := page.WaitStable(settleTime); err != nil {
		r.logger.Debug("page did not settle", "url", pageURL, "error", err)
	}
	if opts.WaitForSelector != "" {
		if _, err := page.Element(opts.WaitForSelector); err != nil {
			r.logger.Warn("wait selector timeout", "selector", opts.WaitForSelector, "error", err)
		}
	}
	if info, err := r.page.Info(); err == nil && info.URL != "" {
		r.url = info.URL
	}
	return r, nil
}

func rodCookies(pageURL string, cookies []*http.Cookie) []*proto.NetworkCookieParam {
	params := make([]*proto.NetworkCookieParam, 0, len(cookies))
	for _, ck := range cookies {
		p := &proto.NetworkCookieParam{
			Name:     ck.Name,
			Value:    ck.Value,
			Domain:   ck.Domain,
			Path:     ck.Path,
			Secure:   ck.Secure,
			HTTPOnly: ck.HttpOnly,
		}
		if ck.Domain == "" {
			p.URL = pageURL
		}
		if !ck.Expires.IsZero() {
			p.Expires = proto.TimeSinceEpoch(ck.Expires.Unix())
		}
		params = append(params, p)
	}
	return params
}

// eval calls fn in the page with args and returns its string result.
func (r *Rod) eval(ctx context.Context, fn string, args ...any) (string, error) {
	evalCtx, cancel := context.WithTimeout(ctx, r.opts.Timeout)
	defer cancel()
	res, err := r.page.Context(evalCtx).Eval(fn, args...)
	if err != nil {
		return "", err
	}
	return res.Value.Str(), nil
}

func (r *Rod) URL() string { return r.url }

func (r *Rod) HTML(ctx context.Context) (string, error) {
	html, err := r.eval(ctx, `() => document.documentElement.outerHTML`)
	if err != nil {
		return "", fmt.Errorf("read page HTML: %w", err)
	}
	return html, nil
}

func (r *Rod) Document(ctx context.Context) (*dom.Document, error) {
	html, err := r.eval(ctx, annotateScript)
	if err != nil {
		return nil, fmt.Errorf("snapshot page: %w", err)
	}
	return dom.Parse(r.url, html)
}

func (r *Rod) SetAttribute(ctx context.Context, selector, name, value string) error {
	status, err := r.eval(ctx, setAttributeScript, selector, name, value)
	if err != nil {
		return fmt.Errorf("set %s on %s: %w", name, selector, err)
	}
	return writeResult(status, selector)
}

func (r *Rod) ImageDataURI(ctx context.Context, selector, src string) (string, error) {
	raw, err := r.eval(ctx, imageDataScript, selector, src)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrNoImageData, err)
	}
	d, err := decodeImageData(raw)
	if err != nil {
		return "", err
	}
	r.logger.Debug("image data captured", "selector", selector, "via", d.Via)
	return d.URI, nil
}

// Close closes the tab and kills the launched browser.
func (r *Rod) Close() error {
	var err error
	if r.page != nil {
		err = r.page.Close()
	}
	if r.browser != nil {
		if cerr := r.browser.Close(); err == nil {
			err = cerr
		}
	}
	if r.launcher != nil {
		r.launcher.Kill()
	}
	return err
}
