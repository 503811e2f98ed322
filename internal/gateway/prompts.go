package gateway

import (
	"fmt"
	"strings"
)

const maxSummaryInput = 6000

const summarySystemPrompt = `You summarize web pages for an accessibility tool. The summary is used as context when writing alt text, link titles and button labels for the same page.

Write two or three plain sentences covering what the page is about and what a visitor can do there. No lists, no markdown, no preamble.`

const imageSystemPrompt = `You write alt text for images on web pages.

Rules:
- Describe what the image shows and why it matters, in one sentence of at most 125 characters.
- Do not start with "Image of", "Picture of", "Photo of" or similar; screen readers already announce images.
- Transcribe short visible text such as logos or headings.
- Reply with the alt text only, without quotes.`

const imagePrompt = `Write alt text for this image.`

const linkSystemPrompt = `You write title attributes for links on web pages so that screen reader users know where a link leads before following it.

Rules:
- One short phrase of at most 80 characters describing the destination.
- Do not start with "Link to" or "Click here"; screen readers already announce links.
- Reply with the title text only, without quotes.`

const buttonSystemPrompt = `You write aria-label attributes for buttons on web pages.

Rules:
- A short imperative phrase of at most 50 characters saying what the button does, e.g. "Close dialog" or "Add to cart".
- Do not include the word "button"; screen readers already announce the role.
- Reply with the label only, without quotes.`

func buildSummaryPrompt(title, text string) string {
	return fmt.Sprintf("Page title: %s\n\nPage content:\n%s", orNone(title), text)
}

func buildLinkPrompt(req LinkRequest) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Page context: %s\n", orNone(req.PageSummary))
	fmt.Fprintf(&b, "Link text: %s\n", orNone(req.LinkText))
	fmt.Fprintf(&b, "Link URL: %s\n", orNone(req.URL))
	fmt.Fprintf(&b, "Current title: %s\n\n", orNone(req.CurrentTitle))
	b.WriteString("Write a title for this link.")
	return b.String()
}

func buildButtonPrompt(req ButtonRequest) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Page context: %s\n", orNone(req.PageSummary))
	fmt.Fprintf(&b, "Button text: %s\n", orNone(req.ButtonText))
	fmt.Fprintf(&b, "Current aria-label: %s\n", orNone(req.CurrentAriaLabel))
	fmt.Fprintf(&b, "Surrounding text: %s\n\n", orNone(req.ParentContext))
	b.WriteString("Write an aria-label for this button.")
	return b.String()
}

func orNone(s string) string {
	if strings.TrimSpace(s) == "" {
		return "(none)"
	}
	return s
}
