package browser

import (
	"context"
	"net/http"
	"strconv"
	"sync"
	"testing"

	"github.com/byteowlz/a11yscan/internal/config"
)

func TestMatchesDomain(t *testing.T) {
	tests := []struct {
		cookie, host string
		want         bool
	}{
		{"example.com", "example.com", true},
		{".example.com", "www.example.com", true},
		{"example.com", "notexample.com", false},
		{"www.example.com", "example.com", false},
		{"", "example.com", false},
		{"EXAMPLE.com", "Example.COM", true},
	}
	for _, tt := range tests {
		if got := matchesDomain(tt.cookie, tt.host); got != tt.want {
			t.Errorf("matchesDomain(%q, %q) = %v, want %v", tt.cookie, tt.host, got, tt.want)
		}
	}
}

func TestCookieSource_Allowed(t *testing.T) {
	cs := NewCookieSource(config.BrowserConfig{
		Default: "chrome",
		Cookies: config.BrowserCookiesConfig{
			Domains: []string{"example.com", "news.org"},
			Exclude: []string{"private.example.com"},
		},
	})
	tests := map[string]bool{
		"example.com":         true,
		"www.example.com":     true,
		"private.example.com": false,
		"news.org":            true,
		"other.net":           false,
	}
	for host, want := range tests {
		if got := cs.allowed(host); got != want {
			t.Errorf("allowed(%q) = %v, want %v", host, got, want)
		}
	}
}

func TestCookieSource_Disabled(t *testing.T) {
	cs := NewCookieSource(config.BrowserConfig{Default: "none"})
	if cs.Enabled() {
		t.Fatal("expected cookie import disabled")
	}
	cookies, err := cs.Cookies(context.Background(), "https://example.com")
	if err != nil || cookies != nil {
		t.Errorf("expected no cookies and no error, got %v, %v", cookies, err)
	}

	var nilSource *CookieSource
	if nilSource.Enabled() {
		t.Error("nil source must report disabled")
	}
}

func TestCookieSource_ReadsStoresOncePerBrowser(t *testing.T) {
	cs := NewCookieSource(config.BrowserConfig{Default: "auto", Cookies: config.BrowserCookiesConfig{Domains: []string{"*"}}})

	var mu sync.Mutex
	loads := map[Type]int{}
	cs.load = func(_ context.Context, b Type) []*http.Cookie {
		mu.Lock()
		loads[b]++
		mu.Unlock()
		if b != Firefox {
			return nil
		}
		return []*http.Cookie{
			{Name: "session", Value: "abc", Domain: ".shop.test"},
			{Name: "other", Value: "x", Domain: "news.test"},
		}
	}

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			target := "https://shop.test/img" + strconv.Itoa(i) + ".jpg"
			if i%2 == 1 {
				target = "https://www.shop.test/p/" + strconv.Itoa(i)
			}
			cookies, err := cs.Cookies(context.Background(), target)
			if err != nil {
				t.Errorf("Cookies(%s) failed: %v", target, err)
				return
			}
			if len(cookies) != 1 || cookies[0].Name != "session" {
				t.Errorf("Cookies(%s) = %v", target, cookies)
			}
		}(i)
	}
	wg.Wait()

	for _, b := range []Type{Chrome, Firefox} {
		if loads[b] != 1 {
			t.Errorf("expected one read of %s stores, got %d", b, loads[b])
		}
	}
	if loads[Zen] != 0 || loads[Safari] != 0 {
		t.Errorf("browsers after the first match must not be read: %v", loads)
	}
}
