// Package scanner is the public entry point: it loads a page with the
// configured engine, runs the accessibility pipeline on it and returns the
// report together with the enriched HTML.
package scanner

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/byteowlz/a11yscan/internal/browser"
	"github.com/byteowlz/a11yscan/internal/config"
	"github.com/byteowlz/a11yscan/internal/content"
	"github.com/byteowlz/a11yscan/internal/fetcher"
	"github.com/byteowlz/a11yscan/internal/logging"
	"github.com/byteowlz/a11yscan/internal/metadata"
	"github.com/byteowlz/a11yscan/internal/page"
	"github.com/byteowlz/a11yscan/internal/pipeline"
)

const metadataCacheSize = 512

type Scanner struct {
	config   *config.Config
	client   *fetcher.Client
	cookies  *browser.CookieSource
	content  content.Extractor
	metadata *metadata.Resolver
	logger   *slog.Logger
}

type ScanOptions struct {
	// Progress receives pipeline phase labels.
	Progress func(phase string)
}

type ScanResult struct {
	Report *pipeline.Report
	// HTML is the page after generated attributes were written.
	HTML string
}

// New wires the fetcher, cookie import, content backend and metadata cache
// described by cfg. The metadata cache is shared by every scan.
func New(cfg *config.Config, logger *slog.Logger) (*Scanner, error) {
	if logger == nil {
		logger = logging.Discard()
	}

	cookies := browser.NewCookieSource(cfg.Browser)
	opts := fetcher.Options{
		Timeout:         seconds(cfg.Network.Timeout),
		UserAgent:       cfg.Network.UserAgent,
		BrowserAgent:    cfg.Network.BrowserAgent,
		FollowRedirects: cfg.Network.FollowRedirects,
		MaxRedirects:    cfg.Network.MaxRedirects,
	}
	if cookies.Enabled() {
		opts.Cookies = cookies
	}
	client := fetcher.New(opts)

	extractor, err := content.New(cfg.Extraction, seconds(cfg.Network.Timeout))
	if err != nil {
		return nil, err
	}

	s := &Scanner{
		config:  cfg,
		client:  client,
		cookies: cookies,
		content: extractor,
		logger:  logger,
	}
	if cfg.Enrichment.FetchMetadata {
		s.metadata = metadata.NewResolver(client, metadataCacheSize, logger)
	}
	return s, nil
}

// Scan loads url with the configured engine and analyses it.
func (s *Scanner) Scan(ctx context.Context, url string, opts ScanOptions) (*ScanResult, error) {
	p, err := page.Open(ctx, s.config.Extraction.Engine, url, s.client, s.pageOptions())
	if err != nil {
		return nil, fmt.Errorf("failed to load page: %w", err)
	}
	defer p.Close()

	return s.analyze(ctx, p, opts)
}

func (s *Scanner) pageOptions() page.Options {
	opts := page.Options{
		Timeout:         seconds(s.config.Extraction.JSTimeout),
		WaitForSelector: s.config.Extraction.WaitForSelector,
		UserAgent:       s.client.UserAgent(),
		ExecPath:        s.config.Browser.Paths["chrome"],
		Logger:          s.logger,
	}
	if s.cookies.Enabled() {
		opts.Cookies = s.cookies
	}
	return opts
}

// ScanHTML analyses html that was already fetched, as if served from url.
// Image fallbacks still fetch through the scanner's HTTP client.
func (s *Scanner) ScanHTML(ctx context.Context, url, html string, opts ScanOptions) (*ScanResult, error) {
	p, err := page.NewStatic(url, html, s.client)
	if err != nil {
		return nil, err
	}
	return s.analyze(ctx, p, opts)
}

func (s *Scanner) analyze(ctx context.Context, p page.Page, opts ScanOptions) (*ScanResult, error) {
	e := s.config.Enrichment
	popts := pipeline.Options{
		Content:          s.content,
		Generation:       s.config.Generation,
		MaxImages:        e.MaxImages,
		MaxLinks:         e.MaxLinks,
		MaxButtons:       e.MaxButtons,
		ReverseOrder:     e.ReverseOrder,
		Concurrency:      e.Concurrency,
		ProvenancePrefix: e.ProvenancePrefix,
		Progress:         opts.Progress,
		Logger:           s.logger,
	}
	if s.metadata != nil {
		popts.Metadata = s.metadata
	}

	report, err := pipeline.New(popts).Analyze(ctx, p)
	if err != nil {
		return nil, err
	}

	html, err := p.HTML(ctx)
	if err != nil {
		s.logger.Warn("could not read enriched HTML", "url", logging.Truncate(p.URL()), "error", err)
	}
	return &ScanResult{Report: report, HTML: html}, nil
}

func seconds(n int) time.Duration {
	return time.Duration(n) * time.Second
}
