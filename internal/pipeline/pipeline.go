// Package pipeline runs one accessibility analysis over a page: extract the
// page content, rank images, links and buttons, generate text for the top
// candidates and write it back onto the page.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/byteowlz/a11yscan/internal/config"
	"github.com/byteowlz/a11yscan/internal/content"
	"github.com/byteowlz/a11yscan/internal/dom"
	"github.com/byteowlz/a11yscan/internal/extract"
	"github.com/byteowlz/a11yscan/internal/gateway"
	"github.com/byteowlz/a11yscan/internal/logging"
	"github.com/byteowlz/a11yscan/internal/metadata"
)

// ErrContentExtraction aborts a run when the page content cannot be read.
var ErrContentExtraction = errors.New("content extraction failed")

// Progress phase labels, reported in this order.
const (
	PhaseContent  = "Extracting page content"
	PhaseScan     = "Scanning page elements"
	PhaseConfig   = "Loading generation settings"
	PhaseSummary  = "Summarizing page"
	PhaseImages   = "Analyzing images"
	PhaseLinks    = "Analyzing links"
	PhaseButtons  = "Analyzing buttons"
	PhaseFinalize = "Building report"
)

const (
	// contextRunes bounds the page summary passed along with link and button
	// requests, and the content used when summarizing fails.
	contextRunes       = 500
	defaultConcurrency = 4
)

// Page is the document under analysis. Static documents and live browser
// tabs both satisfy it.
type Page interface {
	URL() string
	HTML(ctx context.Context) (string, error)
	Document(ctx context.Context) (*dom.Document, error)
	SetAttribute(ctx context.Context, selector, name, value string) error
	// ImageDataURI rebuilds the image behind selector as a data URI from the
	// page side: a canvas snapshot when the element is loaded, otherwise a
	// fetch of src.
	ImageDataURI(ctx context.Context, selector, src string) (string, error)
}

// ContentExtractor returns the readable content of a page.
type ContentExtractor interface {
	Extract(ctx context.Context, pageURL, html string) (*content.Content, error)
}

// MetadataResolver looks up a link target's own title and description.
type MetadataResolver interface {
	Resolve(ctx context.Context, url string) (metadata.Metadata, error)
}

// GatewayFactory builds a gateway from resolved generation settings.
type GatewayFactory func(pc config.ProviderConfig) (gateway.Gateway, error)

// Options configures an Analyzer. Zero limits mean no cap beyond the
// extractors' own.
type Options struct {
	Content    ContentExtractor
	Generation config.GenerationConfig
	NewGateway GatewayFactory
	// Metadata enables the metadata tier of link enrichment when set.
	Metadata MetadataResolver

	MaxImages  int
	MaxLinks   int
	MaxButtons int
	// ReverseOrder enriches the capped candidates lowest score first.
	ReverseOrder     bool
	Concurrency      int
	ProvenancePrefix string

	// Progress receives phase labels before each phase starts.
	Progress func(phase string)
	Logger   *slog.Logger
}

// Analyzer runs analyses. It holds no per-run state and may be shared.
type Analyzer struct {
	opts Options
}

func New(opts Options) *Analyzer {
	if opts.NewGateway == nil {
		opts.NewGateway = DefaultGateway
	}
	if opts.Content == nil {
		opts.Content = content.NewReadability()
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = defaultConcurrency
	}
	if opts.Logger == nil {
		opts.Logger = logging.Discard()
	}
	return &Analyzer{opts: opts}
}

// DefaultGateway builds the provider client and paces it when a request rate
// is configured.
func DefaultGateway(pc config.ProviderConfig) (gateway.Gateway, error) {
	client, err := gateway.New(pc)
	if err != nil {
		return nil, err
	}
	return gateway.Limit(client, pc.RequestsPerSecond, pc.Burst), nil
}

// run carries the state of a single analysis.
type run struct {
	id      string
	page    Page
	gw      gateway.Gateway
	writer  *dom.Writer
	summary string
	logger  *slog.Logger
}

// Analyze runs the full pipeline on p. It fails only when the page content
// cannot be extracted or the generation settings are unusable; individual
// enrichment failures leave the element's generated value absent.
func (a *Analyzer) Analyze(ctx context.Context, p Page) (*Report, error) {
	started := time.Now()
	r := &run{id: uuid.NewString(), page: p}
	r.logger = a.opts.Logger.With("run_id", r.id, "url", logging.Truncate(p.URL()))
	r.logger.Info("analysis started")

	a.progress(PhaseContent)
	article, err := a.extractContent(ctx, p)
	if err != nil {
		r.logger.Error("content extraction failed", "error", err)
		return nil, err
	}

	a.progress(PhaseScan)
	doc, err := p.Document(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrContentExtraction, err)
	}
	if article.Title == "" {
		titled := *article
		titled.Title = doc.Title()
		article = &titled
	}
	images := extract.Images(doc)
	links := extract.Links(doc)
	buttons := extract.Buttons(doc)
	stats := Stats{ImagesFound: len(images), LinksFound: len(links), ButtonsFound: len(buttons)}
	images = selectTop(images, a.opts.MaxImages, a.opts.ReverseOrder)
	warnSharedSelectors(r.logger, images)
	links = selectTop(links, a.opts.MaxLinks, a.opts.ReverseOrder)
	buttons = selectTop(buttons, a.opts.MaxButtons, a.opts.ReverseOrder)
	r.logger.Debug("candidates selected",
		"images", len(images), "links", len(links), "buttons", len(buttons))

	a.progress(PhaseConfig)
	pc, err := a.opts.Generation.Resolve()
	if err != nil {
		r.logger.Error("generation settings unusable", "error", err)
		return nil, err
	}
	r.gw, err = a.opts.NewGateway(pc)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", config.ErrGeneration, err)
	}
	r.writer = dom.NewWriter(p, a.opts.ProvenancePrefix, r.logger)

	a.progress(PhaseSummary)
	r.summary = a.summarize(ctx, r, article)

	report := &Report{
		RunID:       r.id,
		URL:         p.URL(),
		Title:       article.Title,
		StartedAt:   started,
		PageSummary: r.summary,
	}

	a.progress(PhaseImages)
	report.ImageAnalysis = a.enrichImages(ctx, r, images)

	a.progress(PhaseLinks)
	report.LinkAnalysis = a.enrichLinks(ctx, r, links)

	a.progress(PhaseButtons)
	report.ButtonAnalysis = a.enrichButtons(ctx, r, buttons)

	a.progress(PhaseFinalize)
	report.Stats = stats.count(report)
	report.Duration = time.Since(started).Round(time.Millisecond).String()
	r.logger.Info("analysis finished",
		"images", report.Stats.ImagesEnriched, "links", report.Stats.LinksEnriched,
		"buttons", report.Stats.ButtonsEnriched, "duration", report.Duration)
	return report, nil
}

func (a *Analyzer) progress(phase string) {
	if a.opts.Progress != nil {
		a.opts.Progress(phase)
	}
}

func (a *Analyzer) extractContent(ctx context.Context, p Page) (*content.Content, error) {
	html, err := p.HTML(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrContentExtraction, err)
	}
	article, err := a.opts.Content.Extract(ctx, p.URL(), html)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrContentExtraction, err)
	}
	if article == nil {
		return nil, fmt.Errorf("%w: extractor returned no content", ErrContentExtraction)
	}
	return article, nil
}

// summarize asks the gateway for a page summary. A failed summary is not
// fatal: the title and the start of the content stand in for it.
func (a *Analyzer) summarize(ctx context.Context, r *run, article *content.Content) string {
	summary, err := r.gw.Summarize(ctx, article.Title, article.TextContent)
	if err == nil {
		return summary
	}
	r.logger.Warn("page summary failed, using content excerpt", "error", err)
	excerpt := truncateRunes(strings.TrimSpace(article.TextContent), contextRunes)
	if article.Title == "" {
		return excerpt
	}
	return strings.TrimSpace(article.Title + ". " + excerpt)
}

// warnSharedSelectors logs images whose selectors collide. Images dedupe by
// URL, so siblings without id or class can share a path, and writes for all
// of them land on the first match.
func warnSharedSelectors(logger *slog.Logger, images []extract.ImageCandidate) {
	selectors := make([]string, len(images))
	for i, img := range images {
		selectors[i] = img.Selector
	}
	for _, s := range sharedSelectors(selectors) {
		logger.Warn("images share a selector, writes land on the first match", "selector", s)
	}
}

func sharedSelectors(selectors []string) []string {
	seen := make(map[string]int, len(selectors))
	var shared []string
	for _, s := range selectors {
		seen[s]++
		if seen[s] == 2 {
			shared = append(shared, s)
		}
	}
	return shared
}

// selectTop keeps the first n items of a ranked list and optionally reverses
// the result.
func selectTop[T any](items []T, n int, reverse bool) []T {
	if n > 0 && len(items) > n {
		items = items[:n]
	}
	out := make([]T, len(items))
	copy(out, items)
	if reverse {
		for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
			out[i], out[j] = out[j], out[i]
		}
	}
	return out
}

func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}
