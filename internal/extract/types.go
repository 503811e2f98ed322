// Package extract scans a document for images, links and buttons and ranks
// them by how much a missing or weak accessible label is likely to matter.
package extract

// ImageSource tells where an image reference came from.
type ImageSource string

const (
	SourceImg        ImageSource = "img"
	SourceBackground ImageSource = "background"
)

// ImageCandidate is an image found on the page, scored but not yet enriched.
type ImageCandidate struct {
	URL             string      `json:"url"`
	CurrentAlt      string      `json:"currentAlt"`
	Selector        string      `json:"selector"`
	IsMainContent   bool        `json:"isMainContent"`
	ImportanceScore int         `json:"importanceScore"`
	Source          ImageSource `json:"source"`
	Width           int         `json:"width,omitempty"`
	Height          int         `json:"height,omitempty"`
}

// LinkCandidate is a hyperlink with visible text.
type LinkCandidate struct {
	URL              string `json:"url"`
	LinkText         string `json:"linkText"`
	CurrentTitle     string `json:"currentTitle"`
	CurrentAriaLabel string `json:"currentAriaLabel"`
	Selector         string `json:"selector"`
	IsMainContent    bool   `json:"isMainContent"`
	ImportanceScore  int    `json:"importanceScore"`
}

// ButtonCandidate is a native or ARIA button. ParentContext carries nearby
// text for buttons that have none of their own.
type ButtonCandidate struct {
	ButtonText       string `json:"buttonText"`
	CurrentAriaLabel string `json:"currentAriaLabel"`
	ParentContext    string `json:"parentContext"`
	Selector         string `json:"selector"`
	IsMainContent    bool   `json:"isMainContent"`
	ImportanceScore  int    `json:"importanceScore"`
}

const (
	// MaxLinks caps the ranked link list.
	MaxLinks = 20
	// MaxButtons caps the ranked button list.
	MaxButtons = 15
	// MaxParentContext is the rune budget for ButtonCandidate.ParentContext.
	MaxParentContext = 200
)
