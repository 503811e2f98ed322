package extract

import (
	"strings"
	"unicode/utf8"
)

// Every kind starts from the same baseline: half the range for elements in
// main content, nothing otherwise. Kind-specific signals move it from there and
// the result is clamped to [0, 100].
const (
	mainContentBonus = 50

	imageLargeBonus  = 30
	imageMediumBonus = 15
	imageSmallMalus  = -30
	imageHeroBonus   = 25
	imageFigureBonus = 15

	linkPrimaryBonus    = 30
	linkGoodLengthBonus = 20
	linkTooShortMalus   = -20
	linkGenericMalus    = -10

	buttonPrimaryBonus   = 30
	buttonLabelledMalus  = -20
	buttonIconOnlyBonus  = 30
	buttonShortTextBonus = 20
)

var (
	heroHints    = []string{"hero", "featured", "primary"}
	ctaHints     = []string{"primary", "cta", "call-to-action"}
	submitHints  = []string{"primary", "cta", "submit"}
	genericLinks = map[string]bool{"read more": true, "click here": true, "more": true}
	vagueLabels  = map[string]bool{"button": true, "btn": true, "click": true, "icon": true}
)

// score accumulates heuristic points.
type score int

func (s *score) add(cond bool, pts int) {
	if cond {
		*s += score(pts)
	}
}

func (s score) clamped() int {
	return clamp(int(s))
}

func clamp(v int) int {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}

// imageSignals are the inputs to the image score.
type imageSignals struct {
	inMain        bool
	width, height int
	sized         bool
	class         string
	inFigure      bool
}

func scoreImage(sig imageSignals) int {
	var s score
	s.add(sig.inMain, mainContentBonus)
	if sig.sized {
		switch {
		case sig.width >= 300 && sig.height >= 200:
			s.add(true, imageLargeBonus)
		case sig.width >= 150 && sig.height >= 100:
			s.add(true, imageMediumBonus)
		case sig.width < 100 || sig.height < 100:
			s.add(true, imageSmallMalus)
		}
	}
	s.add(containsAny(strings.ToLower(sig.class), heroHints), imageHeroBonus)
	s.add(sig.inFigure, imageFigureBonus)
	return s.clamped()
}

// linkSignals are the inputs to the link score.
type linkSignals struct {
	inMain bool
	class  string
	text   string
}

func scoreLink(sig linkSignals) int {
	var s score
	s.add(sig.inMain, mainContentBonus)
	s.add(containsAny(strings.ToLower(sig.class), ctaHints), linkPrimaryBonus)

	n := utf8.RuneCountInString(sig.text)
	switch {
	case n >= 4 && n <= 99:
		s.add(true, linkGoodLengthBonus)
	case n <= 3:
		s.add(true, linkTooShortMalus)
	}
	s.add(genericLinks[strings.ToLower(sig.text)], linkGenericMalus)
	return s.clamped()
}

// buttonSignals are the inputs to the button score.
type buttonSignals struct {
	inMain    bool
	class     string
	inputType string
	text      string
	ariaLabel string
}

func scoreButton(sig buttonSignals) int {
	var s score
	s.add(sig.inMain, mainContentBonus)
	s.add(containsAny(strings.ToLower(sig.class), submitHints) || sig.inputType == "submit", buttonPrimaryBonus)
	s.add(hasGoodLabel(sig.ariaLabel), buttonLabelledMalus)

	n := utf8.RuneCountInString(sig.text)
	switch {
	case n == 0:
		s.add(true, buttonIconOnlyBonus)
	case n <= 20:
		s.add(true, buttonShortTextBonus)
	}
	return s.clamped()
}

// hasGoodLabel reports whether an existing aria-label already describes the
// control well enough to lower its priority.
func hasGoodLabel(label string) bool {
	label = strings.ToLower(strings.TrimSpace(label))
	return utf8.RuneCountInString(label) >= 3 && !vagueLabels[label]
}

func containsAny(s string, needles []string) bool {
	for _, n := range needles {
		if strings.Contains(s, n) {
			return true
		}
	}
	return false
}
