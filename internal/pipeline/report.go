package pipeline

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/byteowlz/a11yscan/internal/extract"
)

// ImageResult is an image candidate plus its generated alt text. A nil
// GeneratedAlt means enrichment failed.
type ImageResult struct {
	extract.ImageCandidate
	GeneratedAlt *string `json:"generatedAlt,omitempty"`
	UsedFallback bool    `json:"usedFallback,omitempty"`
}

type LinkResult struct {
	extract.LinkCandidate
	GeneratedDescription *string `json:"generatedDescription,omitempty"`
	// MetadataSource is SourceMetadata or SourceGenerated when a description
	// exists.
	MetadataSource string `json:"metadataSource,omitempty"`
}

type ButtonResult struct {
	extract.ButtonCandidate
	GeneratedAriaLabel *string `json:"generatedAriaLabel,omitempty"`
}

// Stats counts candidates found on the page and those that got a value.
type Stats struct {
	ImagesFound     int `json:"imagesFound"`
	ImagesEnriched  int `json:"imagesEnriched"`
	LinksFound      int `json:"linksFound"`
	LinksEnriched   int `json:"linksEnriched"`
	ButtonsFound    int `json:"buttonsFound"`
	ButtonsEnriched int `json:"buttonsEnriched"`
}

// Report is the result of one analysis.
type Report struct {
	RunID          string         `json:"runId"`
	URL            string         `json:"url"`
	Title          string         `json:"title"`
	StartedAt      time.Time      `json:"startedAt"`
	Duration       string         `json:"duration"`
	PageSummary    string         `json:"pageSummary"`
	ImageAnalysis  []ImageResult  `json:"imageAnalysis"`
	LinkAnalysis   []LinkResult   `json:"linkAnalysis,omitempty"`
	ButtonAnalysis []ButtonResult `json:"buttonAnalysis,omitempty"`
	Stats          Stats          `json:"stats"`
}

func (s Stats) count(r *Report) Stats {
	for _, img := range r.ImageAnalysis {
		if img.GeneratedAlt != nil {
			s.ImagesEnriched++
		}
	}
	for _, l := range r.LinkAnalysis {
		if l.GeneratedDescription != nil {
			s.LinksEnriched++
		}
	}
	for _, b := range r.ButtonAnalysis {
		if b.GeneratedAriaLabel != nil {
			s.ButtonsEnriched++
		}
	}
	return s
}

// WriteJSON writes reports as indented JSON: a single object for one report,
// an array otherwise.
func WriteJSON(w io.Writer, reports ...*Report) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	var v any = reports
	if len(reports) == 1 {
		v = reports[0]
	}
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("failed to encode report: %w", err)
	}
	return nil
}

// WriteMarkdown renders reports as a human-readable markdown summary.
func WriteMarkdown(w io.Writer, reports ...*Report) error {
	var b strings.Builder
	for i, r := range reports {
		if i > 0 {
			b.WriteString("\n---\n\n")
		}
		writeMarkdown(&b, r)
	}
	_, err := io.WriteString(w, b.String())
	return err
}

func writeMarkdown(b *strings.Builder, r *Report) {
	title := r.Title
	if title == "" {
		title = r.URL
	}
	fmt.Fprintf(b, "# %s\n\n", title)
	fmt.Fprintf(b, "- URL: %s\n- Run: %s\n- Duration: %s\n\n", r.URL, r.RunID, r.Duration)
	if r.PageSummary != "" {
		fmt.Fprintf(b, "%s\n\n", r.PageSummary)
	}

	fmt.Fprintf(b, "## Images (%d of %d enriched)\n\n", r.Stats.ImagesEnriched, r.Stats.ImagesFound)
	if len(r.ImageAnalysis) == 0 {
		b.WriteString("None selected.\n\n")
	} else {
		b.WriteString("| Score | Image | Current alt | Generated alt |\n|---|---|---|---|\n")
		for _, img := range r.ImageAnalysis {
			fmt.Fprintf(b, "| %d | %s | %s | %s |\n", img.ImportanceScore, cell(img.URL), cell(img.CurrentAlt), value(img.GeneratedAlt))
		}
		b.WriteString("\n")
	}

	if len(r.LinkAnalysis) > 0 {
		fmt.Fprintf(b, "## Links (%d of %d enriched)\n\n", r.Stats.LinksEnriched, r.Stats.LinksFound)
		b.WriteString("| Score | Text | Target | Description | Source |\n|---|---|---|---|---|\n")
		for _, l := range r.LinkAnalysis {
			fmt.Fprintf(b, "| %d | %s | %s | %s | %s |\n", l.ImportanceScore, cell(l.LinkText), cell(l.URL), value(l.GeneratedDescription), l.MetadataSource)
		}
		b.WriteString("\n")
	}

	if len(r.ButtonAnalysis) > 0 {
		fmt.Fprintf(b, "## Buttons (%d of %d enriched)\n\n", r.Stats.ButtonsEnriched, r.Stats.ButtonsFound)
		b.WriteString("| Score | Text | Context | Generated label |\n|---|---|---|---|\n")
		for _, btn := range r.ButtonAnalysis {
			fmt.Fprintf(b, "| %d | %s | %s | %s |\n", btn.ImportanceScore, cell(btn.ButtonText), cell(truncateRunes(btn.ParentContext, 60)), value(btn.GeneratedAriaLabel))
		}
		b.WriteString("\n")
	}
}

func value(v *string) string {
	if v == nil {
		return "_failed_"
	}
	return cell(*v)
}

// cell makes s safe inside a markdown table cell.
func cell(s string) string {
	if s == "" {
		return "-"
	}
	if strings.HasPrefix(s, "data:") {
		s = "(inline image)"
	}
	s = strings.ReplaceAll(s, "|", `\|`)
	return strings.Join(strings.Fields(s), " ")
}
