// Package browser imports cookies from locally installed browsers so that
// pages behind a login can be scanned the way the user sees them.
package browser

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/browserutils/kooky"
	_ "github.com/browserutils/kooky/browser/all" // register every cookie store finder
	"github.com/hashicorp/golang-lru/v2/expirable"
	"golang.org/x/sync/singleflight"

	"github.com/byteowlz/a11yscan/internal/config"
)

type Type string

const (
	None    Type = "none"
	Auto    Type = "auto"
	Chrome  Type = "chrome"
	Firefox Type = "firefox"
	Safari  Type = "safari"
	Zen     Type = "zen"
)

// autoOrder is the preference order when no browser is named.
var autoOrder = []Type{Chrome, Firefox, Zen, Safari}

// jarTTL is how long a snapshot of a browser's cookie stores is reused.
// Image fallbacks and link probes ask for cookies once per element.
const jarTTL = 2 * time.Minute

// CookieSource reads cookies for a target URL from one browser's stores.
// It is safe for concurrent use.
type CookieSource struct {
	browser Type
	domains []string
	exclude []string

	load  func(ctx context.Context, b Type) []*http.Cookie
	jars  *expirable.LRU[Type, []*http.Cookie]
	group singleflight.Group
}

func NewCookieSource(cfg config.BrowserConfig) *CookieSource {
	t := Type(strings.ToLower(strings.TrimSpace(cfg.Default)))
	if t == "" {
		t = None
	}
	return &CookieSource{
		browser: t,
		domains: cfg.Cookies.Domains,
		exclude: cfg.Cookies.Exclude,
		load:    readStores,
		jars:    expirable.NewLRU[Type, []*http.Cookie](len(autoOrder), nil, jarTTL),
	}
}

// Enabled reports whether cookie import is switched on.
func (cs *CookieSource) Enabled() bool {
	return cs != nil && cs.browser != None
}

// Cookies returns the cookies the configured browser would send to targetURL.
// With Auto, the first browser in autoOrder that has any wins.
func (cs *CookieSource) Cookies(ctx context.Context, targetURL string) ([]*http.Cookie, error) {
	if !cs.Enabled() {
		return nil, nil
	}
	u, err := url.Parse(targetURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse URL: %w", err)
	}
	host := u.Hostname()
	if !cs.allowed(host) {
		return nil, nil
	}

	if cs.browser != Auto {
		return cs.fromBrowser(ctx, cs.browser, host), nil
	}
	for _, b := range autoOrder {
		if cookies := cs.fromBrowser(ctx, b, host); len(cookies) > 0 {
			return cookies, nil
		}
	}
	return nil, nil
}

func (cs *CookieSource) fromBrowser(ctx context.Context, b Type, host string) []*http.Cookie {
	var cookies []*http.Cookie
	for _, c := range cs.jar(ctx, b) {
		if matchesDomain(c.Domain, host) {
			cookies = append(cookies, c)
		}
	}
	return cookies
}

// jar returns every cookie of browser b. The stores are read at most once per
// jarTTL; concurrent callers share one read.
func (cs *CookieSource) jar(ctx context.Context, b Type) []*http.Cookie {
	if cookies, ok := cs.jars.Get(b); ok {
		return cookies
	}
	v, _, _ := cs.group.Do(string(b), func() (any, error) {
		if cookies, ok := cs.jars.Get(b); ok {
			return cookies, nil
		}
		cookies := cs.load(ctx, b)
		if ctx.Err() == nil {
			cs.jars.Add(b, cookies)
		}
		return cookies, nil
	})
	return v.([]*http.Cookie)
}

// readStores walks every cookie store kooky finds and keeps b's cookies.
func readStores(ctx context.Context, b Type) []*http.Cookie {
	var cookies []*http.Cookie
	for cookie, err := range kooky.TraverseCookies(ctx) {
		if err != nil || cookie == nil {
			continue
		}
		if !matchesBrowser(cookie.Browser, b) {
			continue
		}
		cookies = append(cookies, &http.Cookie{
			Name:     cookie.Name,
			Value:    cookie.Value,
			Path:     cookie.Path,
			Domain:   cookie.Domain,
			Expires:  cookie.Expires,
			Secure:   cookie.Secure,
			HttpOnly: cookie.HttpOnly,
		})
	}
	return cookies
}

// allowed applies the configured domain patterns. "*" matches every host and
// exclusions win over inclusions.
func (cs *CookieSource) allowed(host string) bool {
	for _, ex := range cs.exclude {
		if ex == "*" || matchesDomain(ex, host) {
			return false
		}
	}
	if len(cs.domains) == 0 {
		return true
	}
	for _, d := range cs.domains {
		if d == "*" || matchesDomain(d, host) {
			return true
		}
	}
	return false
}

func matchesBrowser(info kooky.BrowserInfo, b Type) bool {
	if info == nil {
		return false
	}
	name := strings.ToLower(info.Browser())
	switch b {
	case Chrome:
		return strings.Contains(name, "chrome") || strings.Contains(name, "chromium")
	case Firefox:
		return strings.Contains(name, "firefox") && !strings.Contains(strings.ToLower(info.FilePath()), "zen")
	case Safari:
		return strings.Contains(name, "safari")
	case Zen:
		return strings.Contains(name, "zen") ||
			(strings.Contains(name, "firefox") && strings.Contains(strings.ToLower(info.FilePath()), "zen"))
	}
	return false
}

// matchesDomain reports whether a cookie scoped to cookieDomain is sent to host.
func matchesDomain(cookieDomain, host string) bool {
	cookieDomain = strings.TrimPrefix(strings.ToLower(cookieDomain), ".")
	host = strings.ToLower(host)
	if cookieDomain == "" || host == "" {
		return false
	}
	return host == cookieDomain || strings.HasSuffix(host, "."+cookieDomain)
}
