package scanner

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/byteowlz/a11yscan/internal/config"
	"github.com/byteowlz/a11yscan/internal/pipeline"
)

const shopPage = `<html><head><title>Bike Shop</title></head><body>
<nav><a href="/">Home</a></nav>
<main><article>
<h1>City bikes</h1>
<p>Our city bikes are built for daily commuting. Every frame is steel, every bike ships with fenders and lights, and we service them for free during the first year.</p>
<p>Visit the workshop to test ride any model before you buy. Appointments are not needed on weekdays.</p>
<img src="/bike.jpg" alt="">
</article></main>
</body></html>`

func newSite(t *testing.T) *httptest.Server {
	t.Helper()
	site := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		fmt.Fprint(w, shopPage)
	}))
	t.Cleanup(site.Close)
	return site
}

func newModel(t *testing.T, calls *atomic.Int32) *httptest.Server {
	t.Helper()
	model := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat/completions" {
			http.NotFound(w, r)
			return
		}
		calls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"id":"c1","object":"chat.completion","created":1,"model":"gpt-4o",
"choices":[{"index":0,"message":{"role":"assistant","content":"A red bicycle."},"finish_reason":"stop"}]}`)
	}))
	t.Cleanup(model.Close)
	return model
}

func testConfig(modelURL string) *config.Config {
	cfg := config.Default()
	cfg.Generation = config.GenerationConfig{Provider: "openai", APIKey: "test", BaseURL: modelURL + "/v1"}
	cfg.Extraction.MinContentLength = 0
	cfg.Enrichment.FetchMetadata = false
	return cfg
}

func TestScan_EndToEnd(t *testing.T) {
	var calls atomic.Int32
	site := newSite(t)
	model := newModel(t, &calls)

	s, err := New(testConfig(model.URL), nil)
	if err != nil {
		t.Fatal(err)
	}
	var phases []string
	res, err := s.Scan(context.Background(), site.URL+"/bikes", ScanOptions{
		Progress: func(p string) { phases = append(phases, p) },
	})
	if err != nil {
		t.Fatalf("Scan failed: %v", err)
	}

	report := res.Report
	if len(report.ImageAnalysis) != 1 {
		t.Fatalf("expected 1 image, got %d", len(report.ImageAnalysis))
	}
	img := report.ImageAnalysis[0]
	if img.URL != site.URL+"/bike.jpg" || img.GeneratedAlt == nil || *img.GeneratedAlt != "A red bicycle." {
		t.Errorf("unexpected image result %+v", img)
	}
	if !strings.Contains(res.HTML, `alt="[AI] A red bicycle."`) {
		t.Errorf("enriched HTML missing generated alt")
	}
	if len(phases) == 0 || phases[0] != pipeline.PhaseContent {
		t.Errorf("progress not reported: %v", phases)
	}
	if calls.Load() == 0 {
		t.Error("model was never called")
	}
}

func TestScanHTML_MissingKey(t *testing.T) {
	t.Setenv("A11YSCAN_OPENAI_KEY", "")
	t.Setenv("OPENAI_API_KEY", "")

	var calls atomic.Int32
	model := newModel(t, &calls)
	cfg := testConfig(model.URL)
	cfg.Generation.APIKey = ""

	s, err := New(cfg, nil)
	if err != nil {
		t.Fatal(err)
	}
	_, err = s.ScanHTML(context.Background(), "https://shop.test/", shopPage, ScanOptions{})
	if !errors.Is(err, config.ErrGeneration) {
		t.Fatalf("expected ErrGeneration, got %v", err)
	}
	if calls.Load() != 0 {
		t.Errorf("no model calls expected, got %d", calls.Load())
	}
}

func TestNew_UnknownBackend(t *testing.T) {
	cfg := config.Default()
	cfg.Extraction.Backend = "mercury"
	if _, err := New(cfg, nil); err == nil {
		t.Error("expected error for unknown content backend")
	}
}

func TestPageOptions(t *testing.T) {
	cfg := config.Default()
	cfg.Browser.Paths = map[string]string{"chrome": "/opt/chromium/chrome"}
	cfg.Extraction.JSTimeout = 7
	cfg.Extraction.WaitForSelector = "main"
	cfg.Network.UserAgent = "a11yscan-test"

	s, err := New(cfg, nil)
	if err != nil {
		t.Fatal(err)
	}
	opts := s.pageOptions()
	if opts.ExecPath != "/opt/chromium/chrome" {
		t.Errorf("expected configured Chrome path, got %q", opts.ExecPath)
	}
	if opts.Timeout != 7*time.Second || opts.WaitForSelector != "main" || opts.UserAgent != "a11yscan-test" {
		t.Errorf("unexpected page options %+v", opts)
	}
	if opts.Cookies != nil {
		t.Error("cookie import is off by default")
	}
}
