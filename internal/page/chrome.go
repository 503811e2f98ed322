package page

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"

	"github.com/byteowlz/a11yscan/internal/dom"
)

// Chrome is a live tab driven over CDP with chromedp.
type Chrome struct {
	url    string
	opts   Options
	logger *slog.Logger

	tab         context.Context
	cancelTab   context.CancelFunc
	cancelAlloc context.CancelFunc
}

// OpenChrome launches headless Chrome, injects cookies and navigates to
// pageURL. The browser lives until Close.
func OpenChrome(ctx context.Context, pageURL string, opts Options) (*Chrome, error) {
	opts.defaults()

	allocOpts := append([]chromedp.ExecAllocatorOption{}, chromedp.DefaultExecAllocatorOptions[:]...)
	if opts.UserAgent != "" {
		allocOpts = append(allocOpts, chromedp.UserAgent(opts.UserAgent))
	}
	if opts.ExecPath != "" {
		allocOpts = append(allocOpts, chromedp.ExecPath(opts.ExecPath))
	}
	allocCtx, cancelAlloc := chromedp.NewExecAllocator(context.WithoutCancel(ctx), allocOpts...)
	tab, cancelTab := chromedp.NewContext(allocCtx)

	c := &Chrome{
		url:         pageURL,
		opts:        opts,
		logger:      opts.Logger.With("component", "chromedp"),
		tab:         tab,
		cancelTab:   cancelTab,
		cancelAlloc: cancelAlloc,
	}

	// The first Run starts the browser process bound to the context it is
	// given, so it gets the long-lived tab context and no deadline.
	if err := chromedp.Run(tab); err != nil {
		c.Close()
		return nil, fmt.Errorf("failed to start Chrome: %w", err)
	}

	tasks := []chromedp.Action{network.Enable()}
	if cookies := opts.cookies(ctx, pageURL); len(cookies) > 0 {
		tasks = append(tasks, setCookies(pageURL, cookies))
		c.logger.Debug("injecting cookies", "count", len(cookies))
	}
	tasks = append(tasks, chromedp.Navigate(pageURL))
	if opts.WaitForSelector != "" {
		tasks = append(tasks, chromedp.WaitVisible(opts.WaitForSelector))
	} else {
		tasks = append(tasks, chromedp.WaitReady("body"))
	}
	var location string
	tasks = append(tasks, chromedp.Location(&location))

	if err := c.run(ctx, tasks...); err != nil {
		c.Close()
		return nil, fmt.Errorf("failed to load %s in Chrome: %w", pageURL, err)
	}
	if location != "" {
		c.url = location
	}
	return c, nil
}

func setCookies(pageURL string, cookies []*http.Cookie) chromedp.Action {
	return chromedp.ActionFunc(func(ctx context.Context) error {
		for _, ck := range cookies {
			p := network.SetCookie(ck.Name, ck.Value).
				WithPath(ck.Path).
				WithSecure(ck.Secure).
				WithHTTPOnly(ck.HttpOnly)
			if ck.Domain != "" {
				p = p.WithDomain(ck.Domain)
			} else {
				p = p.WithURL(pageURL)
			}
			if !ck.Expires.IsZero() {
				expires := cdp.TimeSinceEpoch(ck.Expires)
				p = p.WithExpires(&expires)
			}
			if err := p.Do(ctx); err != nil {
				return fmt.Errorf("set cookie %s: %w", ck.Name, err)
			}
		}
		return nil
	})
}

// run executes actions on the tab, bounded by the page timeout and by ctx.
// The browser is already allocated, so cancelling runCtx only ends these
// actions.
func (c *Chrome) run(ctx context.Context, actions ...chromedp.Action) error {
	runCtx, cancel := context.WithTimeout(c.tab, c.opts.Timeout)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()
	return chromedp.Run(runCtx, actions...)
}

// eval calls fn in the page and decodes its string result.
func (c *Chrome) eval(ctx context.Context, fn string, args ...any) (string, error) {
	expr, err := script(fn, args...)
	if err != nil {
		return "", err
	}
	var out string
	err = c.run(ctx, chromedp.Evaluate(expr, &out, func(p *runtime.EvaluateParams) *runtime.EvaluateParams {
		return p.WithAwaitPromise(true)
	}))
	return out, err
}

func (c *Chrome) URL() string { return c.url }

func (c *Chrome) HTML(ctx context.Context) (string, error) {
	var html string
	if err := c.run(ctx, chromedp.OuterHTML("html", &html, chromedp.ByQuery)); err != nil {
		return "", fmt.Errorf("read page HTML: %w", err)
	}
	return html, nil
}

func (c *Chrome) Document(ctx context.Context) (*dom.Document, error) {
	html, err := c.eval(ctx, annotateScript)
	if err != nil {
		return nil, fmt.Errorf("snapshot page: %w", err)
	}
	return dom.Parse(c.url, html)
}

func (c *Chrome) SetAttribute(ctx context.Context, selector, name, value string) error {
	status, err := c.eval(ctx, setAttributeScript, selector, name, value)
	if err != nil {
		return fmt.Errorf("set %s on %s: %w", name, selector, err)
	}
	return writeResult(status, selector)
}

func (c *Chrome) ImageDataURI(ctx context.Context, selector, src string) (string, error) {
	raw, err := c.eval(ctx, imageDataScript, selector, src)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrNoImageData, err)
	}
	d, err := decodeImageData(raw)
	if err != nil {
		return "", err
	}
	c.logger.Debug("image data captured", "selector", selector, "via", d.Via)
	return d.URI, nil
}

// Close shuts the tab and the browser process.
func (c *Chrome) Close() error {
	c.cancelTab()
	c.cancelAlloc()
	return nil
}
