package metsalto

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// DefaultHyphenGlyphs is the set of line-final glyphs treated as
// hyphenation marks: hyphen-minus, soft hyphen, hyphen, non-breaking hyphen,
// not sign (common in Fraktur OCR) and double oblique hyphen. Dashes are
// not included.
var DefaultHyphenGlyphs = []rune{'-', '\u00ad', '\u2010', '\u2011', '\u00ac', '\u2e17'}

// HyphenPolicy decides which line-final words continue on the next line and
// how the two fragments are joined.
type HyphenPolicy struct {
	// Glyphs is the finite set of hyphenation glyphs.
	Glyphs []rune

	// MinFragment is the minimum number of letters before the glyph.
	MinFragment int

	// KeepBeforeUpper keeps the glyph (as '-') when the continuation
	// fragment starts with an upper-case letter, so "Anglo-" + "Saxon"
	// stays "Anglo-Saxon". Fragments are joined without a space either way.
	KeepBeforeUpper bool
}

// DefaultHyphenPolicy returns the policy used when none is configured.
func DefaultHyphenPolicy() HyphenPolicy {
	return HyphenPolicy{
		Glyphs:      append([]rune(nil), DefaultHyphenGlyphs...),
		MinFragment: 1,
	}
}

// Validate returns an error if the policy cannot be applied.
func (p HyphenPolicy) Validate() error {
	if len(p.Glyphs) == 0 {
		return Errorf(EINVALID, "hyphen policy: at least one glyph required")
	}
	for _, g := range p.Glyphs {
		if unicode.IsLetter(g) || unicode.IsDigit(g) || unicode.IsSpace(g) {
			return Errorf(EINVALID, "hyphen policy: %q cannot be a hyphen glyph", g)
		}
	}
	if p.MinFragment < 0 {
		return Errorf(EINVALID, "hyphen policy: negative minimum fragment")
	}
	return nil
}

// IsGlyph reports whether r is a hyphenation glyph.
func (p HyphenPolicy) IsGlyph(r rune) bool {
	for _, g := range p.Glyphs {
		if g == r {
			return true
		}
	}
	return false
}

// IsContinuation reports whether a line-final word ending in a glyph is a
// word split across lines. Runs of glyphs ("--") and numbers followed by a
// glyph (tabular data such as "12-") are not continuations.
func (p HyphenPolicy) IsContinuation(text string) bool {
	last, size := utf8.DecodeLastRuneInString(text)
	if size == 0 || !p.IsGlyph(last) {
		return false
	}
	stem := text[:len(text)-size]
	prev, n := utf8.DecodeLastRuneInString(stem)
	if n == 0 || p.IsGlyph(prev) {
		return false
	}
	letters := 0
	for _, r := range stem {
		if unicode.IsLetter(r) {
			letters++
		}
	}
	if letters == 0 {
		return false
	}
	return letters >= p.MinFragment
}

// Strip removes one trailing glyph from text.
func (p HyphenPolicy) Strip(text string) string {
	last, size := utf8.DecodeLastRuneInString(text)
	if size > 0 && p.IsGlyph(last) {
		return text[:len(text)-size]
	}
	return text
}

// Join merges a continuation fragment with the fragment that follows it.
func (p HyphenPolicy) Join(head, tail string) string {
	first, _ := utf8.DecodeRuneInString(tail)
	stem := p.Strip(head)
	if p.KeepBeforeUpper && unicode.IsUpper(first) {
		return stem + "-" + tail
	}
	return stem + tail
}

// HyphenMerge records the source fragments of one merged token so the
// original OCR tokens stay recoverable.
type HyphenMerge struct {
	Region string `json:"region"`
	Head   string `json:"head"`
	Tail   string `json:"tail"`
	Merged string `json:"merged"`
}

// String returns "head|tail=merged".
func (m HyphenMerge) String() string {
	var b strings.Builder
	b.WriteString(m.Head)
	b.WriteByte('|')
	b.WriteString(m.Tail)
	b.WriteByte('=')
	b.WriteString(m.Merged)
	return b.String()
}
