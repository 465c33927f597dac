package metsalto

// BoundingBox is an axis-aligned rectangle in page pixel coordinates.
type BoundingBox struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// IsZero reports whether the box carries no geometry.
func (b BoundingBox) IsZero() bool {
	return b.Width == 0 && b.Height == 0 && b.X == 0 && b.Y == 0
}

// Union returns the smallest box containing b and o. A zero box is the
// identity element.
func (b BoundingBox) Union(o BoundingBox) BoundingBox {
	if b.IsZero() {
		return o
	}
	if o.IsZero() {
		return b
	}
	x0, y0 := min(b.X, o.X), min(b.Y, o.Y)
	x1 := max(b.X+b.Width, o.X+o.Width)
	y1 := max(b.Y+b.Height, o.Y+o.Height)
	return BoundingBox{X: x0, Y: y0, Width: x1 - x0, Height: y1 - y0}
}

// Word is one OCR token.
type Word struct {
	ID         string
	Text       string
	Box        BoundingBox
	Confidence float64

	// Continuation marks a line-final fragment that joins the first word
	// of the next line.
	Continuation bool

	// SubsType and SubsContent carry the ALTO hyphenation markup
	// (HypPart1/HypPart2 and the full word) when present.
	SubsType    string
	SubsContent string
}

// ALTO String/@SUBS_TYPE values of a word split across lines.
const (
	SubsHypPart1 = "HypPart1"
	SubsHypPart2 = "HypPart2"
)

// Line is one TextLine.
type Line struct {
	ID    string
	Box   BoundingBox
	Words []Word
}

// Region kinds.
const (
	RegionText     = "TextBlock"
	RegionComposed = "ComposedBlock"
)

// Region is a TextBlock or ComposedBlock. Lines of a composed block are
// flattened in document order.
type Region struct {
	ID    string
	Kind  string
	Box   BoundingBox
	Lines []Line
}

// PageLayout is the parsed content of one ALTO page, indexed by element ID.
type PageLayout struct {
	Sequence int
	Width    int
	Height   int

	regions map[string]*Region
	lines   map[string]*Line
	words   map[string]*Word
	order   []string
}

// NewPageLayout returns an empty layout for the page with the given
// sequence number.
func NewPageLayout(seq int) *PageLayout {
	return &PageLayout{
		Sequence: seq,
		regions:  make(map[string]*Region),
		lines:    make(map[string]*Line),
		words:    make(map[string]*Word),
	}
}

// AddRegion indexes a region and its lines and words. A region with an ID
// that is already present is ignored; the first occurrence wins.
func (p *PageLayout) AddRegion(r *Region) {
	if r.ID == "" {
		return
	}
	if _, ok := p.regions[r.ID]; ok {
		return
	}
	p.regions[r.ID] = r
	p.order = append(p.order, r.ID)
	for i := range r.Lines {
		line := &r.Lines[i]
		if line.ID != "" {
			p.lines[line.ID] = line
		}
		for j := range line.Words {
			if w := &line.Words[j]; w.ID != "" {
				p.words[w.ID] = w
			}
		}
	}
}

// Region returns the region with the given ID.
func (p *PageLayout) Region(id string) (*Region, bool) {
	r, ok := p.regions[id]
	return r, ok
}

// Line returns the line with the given ID.
func (p *PageLayout) Line(id string) (*Line, bool) {
	l, ok := p.lines[id]
	return l, ok
}

// Word returns the word with the given ID.
func (p *PageLayout) Word(id string) (*Word, bool) {
	w, ok := p.words[id]
	return w, ok
}

// RegionIDs returns region IDs in document order.
func (p *PageLayout) RegionIDs() []string {
	return append([]string(nil), p.order...)
}

// LayoutParser parses one page's OCR layout document.
type LayoutParser interface {
	// ParseLayout parses the ALTO document of the page with the given
	// sequence number. Failures are EALTO errors scoped to that page.
	ParseLayout(seq int, data []byte) (*PageLayout, error)
}
