package pipeline

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/byteowlz/a11yscan/internal/dom"
	"github.com/byteowlz/a11yscan/internal/extract"
	"github.com/byteowlz/a11yscan/internal/gateway"
	"github.com/byteowlz/a11yscan/internal/logging"
)

// Link metadata sources.
const (
	SourceMetadata  = "metadata"
	SourceGenerated = "generated"
)

// fanOut calls fn for every index with at most limit calls in flight and
// returns once all of them are done. fn isolates its own failures.
func fanOut(n, limit int, fn func(i int)) {
	var g errgroup.Group
	g.SetLimit(limit)
	for i := 0; i < n; i++ {
		g.Go(func() error {
			fn(i)
			return nil
		})
	}
	_ = g.Wait()
}

func (a *Analyzer) enrichImages(ctx context.Context, r *run, candidates []extract.ImageCandidate) []ImageResult {
	results := make([]ImageResult, len(candidates))
	fanOut(len(candidates), a.opts.Concurrency, func(i int) {
		results[i] = a.enrichImage(ctx, r, candidates[i])
	})
	return results
}

// enrichImage sends the image URL to the gateway. When the provider cannot
// download it, the page rebuilds the image as a data URI and the gateway gets
// one more try with that.
func (a *Analyzer) enrichImage(ctx context.Context, r *run, c extract.ImageCandidate) ImageResult {
	res := ImageResult{ImageCandidate: c}
	log := r.logger.With("url", logging.Truncate(c.URL), "selector", c.Selector)

	alt, err := r.gw.DescribeImage(ctx, c.URL)
	if err != nil && gateway.IsFetchRejected(err) {
		log.Debug("provider could not fetch image, rebuilding it in page")
		uri, ferr := r.page.ImageDataURI(ctx, c.Selector, c.URL)
		if ferr != nil {
			log.Warn("image fallback failed", "error", ferr)
			return res
		}
		res.UsedFallback = true
		alt, err = r.gw.DescribeImage(ctx, uri)
	}
	if err != nil {
		log.Warn("image description failed", "error", err)
		return res
	}

	res.GeneratedAlt = &alt
	kind := dom.KindImage
	if c.Source == extract.SourceBackground {
		kind = dom.KindBackgroundImage
	}
	_ = r.writer.Apply(ctx, kind, c.Selector, alt)
	return res
}

func (a *Analyzer) enrichLinks(ctx context.Context, r *run, candidates []extract.LinkCandidate) []LinkResult {
	results := make([]LinkResult, len(candidates))
	fanOut(len(candidates), a.opts.Concurrency, func(i int) {
		results[i] = a.enrichLink(ctx, r, candidates[i])
	})
	return results
}

// enrichLink prefers the target's own metadata and only asks the gateway when
// there is none.
func (a *Analyzer) enrichLink(ctx context.Context, r *run, c extract.LinkCandidate) LinkResult {
	res := LinkResult{LinkCandidate: c}
	log := r.logger.With("url", logging.Truncate(c.URL), "selector", c.Selector)

	var desc, source string
	if a.opts.Metadata != nil {
		if meta, err := a.opts.Metadata.Resolve(ctx, c.URL); err == nil {
			desc, source = meta.Best(), SourceMetadata
		}
	}
	if desc == "" {
		var err error
		desc, err = r.gw.DescribeLink(ctx, gateway.LinkRequest{
			PageSummary:  truncateRunes(r.summary, contextRunes),
			LinkText:     c.LinkText,
			URL:          c.URL,
			CurrentTitle: c.CurrentTitle,
		})
		if err != nil {
			log.Warn("link description failed", "text", logging.Truncate(c.LinkText), "error", err)
			return res
		}
		source = SourceGenerated
	}

	res.GeneratedDescription = &desc
	res.MetadataSource = source
	_ = r.writer.Apply(ctx, dom.KindLink, c.Selector, desc)
	return res
}

func (a *Analyzer) enrichButtons(ctx context.Context, r *run, candidates []extract.ButtonCandidate) []ButtonResult {
	results := make([]ButtonResult, len(candidates))
	fanOut(len(candidates), a.opts.Concurrency, func(i int) {
		results[i] = a.enrichButton(ctx, r, candidates[i])
	})
	return results
}

func (a *Analyzer) enrichButton(ctx context.Context, r *run, c extract.ButtonCandidate) ButtonResult {
	res := ButtonResult{ButtonCandidate: c}
	label, err := r.gw.DescribeButton(ctx, gateway.ButtonRequest{
		PageSummary:      truncateRunes(r.summary, contextRunes),
		ButtonText:       c.ButtonText,
		CurrentAriaLabel: c.CurrentAriaLabel,
		ParentContext:    c.ParentContext,
	})
	if err != nil {
		r.logger.Warn("button label failed", "selector", c.Selector,
			"text", logging.Truncate(c.ButtonText), "error", err)
		return res
	}
	res.GeneratedAriaLabel = &label
	_ = r.writer.Apply(ctx, dom.KindButton, c.Selector, label)
	return res
}
