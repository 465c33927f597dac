package etree

import (
	"strings"
	"unicode"

	"github.com/beevik/etree"
	"github.com/fwojciec/metsalto"
)

// Ensure LayoutParser implements metsalto.LayoutParser.
var _ metsalto.LayoutParser = (*LayoutParser)(nil)

// LayoutParser parses ALTO page documents.
type LayoutParser struct {
	Policy metsalto.HyphenPolicy
}

// NewLayoutParser returns a parser flagging continuations with policy.
func NewLayoutParser(policy metsalto.HyphenPolicy) *LayoutParser {
	return &LayoutParser{Policy: policy}
}

// ParseLayout parses the ALTO document of page seq.
func (p *LayoutParser) ParseLayout(seq int, data []byte) (*metsalto.PageLayout, error) {
	root, err := readDocument(data)
	if err != nil {
		return nil, metsalto.WrapError(metsalto.EALTO, err, "page %d: parsing ALTO XML", seq)
	}
	if !is(root, "alto") {
		return nil, metsalto.Errorf(metsalto.EALTO, "page %d: root element is %q, not alto", seq, root.Tag)
	}
	page := first(root, "Page")
	if page == nil {
		return nil, metsalto.Errorf(metsalto.EALTO, "page %d: no Page element", seq)
	}

	layout := metsalto.NewPageLayout(seq)
	layout.Width = intAttr(page, "WIDTH", 0)
	layout.Height = intAttr(page, "HEIGHT", 0)

	var walk func(*etree.Element)
	walk = func(el *etree.Element) {
		for _, c := range el.ChildElements() {
			switch {
			case is(c, metsalto.RegionText):
				layout.AddRegion(p.region(c, metsalto.RegionText))
			case is(c, metsalto.RegionComposed):
				layout.AddRegion(p.region(c, metsalto.RegionComposed))
			}
			walk(c)
		}
	}
	walk(page)
	return layout, nil
}

// region builds a region from a block element, flattening every TextLine
// below it.
func (p *LayoutParser) region(el *etree.Element, kind string) *metsalto.Region {
	r := &metsalto.Region{
		ID:   attr(el, "ID"),
		Kind: kind,
		Box:  box(el),
	}
	for _, tl := range descendants(el, "TextLine") {
		r.Lines = append(r.Lines, p.line(tl))
	}
	return r
}

func (p *LayoutParser) line(el *etree.Element) metsalto.Line {
	line := metsalto.Line{ID: attr(el, "ID"), Box: box(el)}
	hyphenated := false
	for _, c := range el.ChildElements() {
		switch {
		case is(c, "String"):
			line.Words = append(line.Words, metsalto.Word{
				ID:          attr(c, "ID"),
				Text:        c.SelectAttrValue("CONTENT", ""),
				Box:         box(c),
				Confidence:  floatAttr(c, "WC"),
				SubsType:    attr(c, "SUBS_TYPE"),
				SubsContent: attr(c, "SUBS_CONTENT"),
			})
			hyphenated = false
		case is(c, "HYP"):
			if n := len(line.Words); n > 0 {
				glyph := attr(c, "CONTENT")
				if glyph == "" {
					glyph = "-"
				}
				w := &line.Words[n-1]
				if !strings.HasSuffix(w.Text, glyph) {
					w.Text += glyph
				}
				hyphenated = true
			}
		}
	}
	if n := len(line.Words); n > 0 {
		w := &line.Words[n-1]
		w.Continuation = p.continues(w, hyphenated)
	}
	return line
}

// continues reports whether the line-final word w joins the next line.
// Explicit ALTO markup wins over the glyph heuristic, but numeric stems are
// never continuations.
func (p *LayoutParser) continues(w *metsalto.Word, hyphenated bool) bool {
	if hyphenated || w.SubsType == metsalto.SubsHypPart1 {
		return hasLetter(w.Text)
	}
	return p.Policy.IsContinuation(strings.TrimSpace(w.Text))
}

func hasLetter(s string) bool {
	for _, r := range s {
		if unicode.IsLetter(r) {
			return true
		}
	}
	return false
}

func box(el *etree.Element) metsalto.BoundingBox {
	return metsalto.BoundingBox{
		X:      intAttr(el, "HPOS", 0),
		Y:      intAttr(el, "VPOS", 0),
		Width:  intAttr(el, "WIDTH", 0),
		Height: intAttr(el, "HEIGHT", 0),
	}
}
