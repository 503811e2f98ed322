package dom

import (
	"context"
	"errors"
	"fmt"
	"html"
	"log/slog"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// DefaultProvenancePrefix marks attribute values written by this tool.
const DefaultProvenancePrefix = "[AI] "

// ErrEmptyValue is returned when a value is empty after sanitising.
var ErrEmptyValue = errors.New("empty value")

// Kind selects which attribute a generated value lands on.
type Kind int

const (
	KindImage Kind = iota
	KindBackgroundImage
	KindLink
	KindButton
)

func (k Kind) String() string {
	switch k {
	case KindImage:
		return "image"
	case KindBackgroundImage:
		return "background-image"
	case KindLink:
		return "link"
	case KindButton:
		return "button"
	}
	return "unknown"
}

// Attribute returns the attribute name written for k. Elements that cannot
// carry alt get aria-label instead.
func (k Kind) Attribute() string {
	switch k {
	case KindImage:
		return "alt"
	case KindLink:
		return "title"
	default:
		return "aria-label"
	}
}

// Target is anything that can set an attribute on the element a selector
// resolves to: an in-memory document or a live browser page.
type Target interface {
	SetAttribute(ctx context.Context, selector, name, value string) error
}

// Writer applies generated values back onto elements.
type Writer struct {
	target Target
	prefix string
	policy *bluemonday.Policy
	logger *slog.Logger
}

// NewWriter creates a writer for target. An empty prefix selects
// DefaultProvenancePrefix.
func NewWriter(target Target, prefix string, logger *slog.Logger) *Writer {
	if prefix == "" {
		prefix = DefaultProvenancePrefix
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Writer{
		target: target,
		prefix: prefix,
		policy: bluemonday.StrictPolicy(),
		logger: logger.With("component", "dom-writer"),
	}
}

// Apply writes value to the element behind selector. A selector that no longer
// resolves is logged and returned as ErrElementNotFound; callers treat it as a
// local, non-fatal failure.
func (w *Writer) Apply(ctx context.Context, kind Kind, selector, value string) error {
	final := w.Format(value)
	if final == "" {
		return fmt.Errorf("%s %s: %w", kind, selector, ErrEmptyValue)
	}

	name := kind.Attribute()
	if err := w.target.SetAttribute(ctx, selector, name, final); err != nil {
		if errors.Is(err, ErrElementNotFound) {
			w.logger.Warn("element not found for write", "kind", kind.String(), "selector", selector)
		} else {
			w.logger.Warn("attribute write failed", "kind", kind.String(), "selector", selector, "error", err)
		}
		return err
	}

	w.logger.Debug("attribute written", "kind", kind.String(), "selector", selector, "attribute", name)
	return nil
}

// Format sanitises value and prepends the provenance prefix exactly once.
// Formatting an already formatted value returns it unchanged.
func (w *Writer) Format(value string) string {
	clean := html.UnescapeString(w.policy.Sanitize(value))
	clean = strings.Join(strings.Fields(clean), " ")

	marker := strings.TrimSpace(w.prefix)
	for {
		trimmed := strings.TrimSpace(strings.TrimPrefix(clean, marker))
		if trimmed == clean {
			break
		}
		clean = trimmed
	}
	if clean == "" {
		return ""
	}
	return w.prefix + clean
}
