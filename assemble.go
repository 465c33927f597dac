package metsalto

import "strings"

// DefaultParagraphSeparator separates the text of consecutive regions.
const DefaultParagraphSeparator = "\n"

// PageSet maps page sequence numbers to parsed pages of one issue. Pages
// that failed to parse are absent.
type PageSet map[int]*PageLayout

// Assembler reconstructs article text from parsed pages.
type Assembler struct {
	Policy HyphenPolicy

	// ParagraphSeparator is inserted once between regions.
	ParagraphSeparator string
}

// NewAssembler returns an Assembler using the given hyphen policy.
func NewAssembler(policy HyphenPolicy) *Assembler {
	return &Assembler{Policy: policy, ParagraphSeparator: DefaultParagraphSeparator}
}

// AssembleIssue assembles every article of the structure map in reading
// order. Articles that resolve to nothing are dropped and reported.
func (a *Assembler) AssembleIssue(issueCode string, sm *StructMap, pages PageSet) ([]*Article, []Diagnostic) {
	var articles []*Article
	var diags []Diagnostic
	for i := range sm.Articles {
		art, d := a.Assemble(issueCode, &sm.Articles[i], pages)
		diags = append(diags, d...)
		if art != nil {
			articles = append(articles, art)
		}
	}
	return articles, diags
}

// Assemble reconstructs one article. Missing regions are skipped with a
// diagnostic; the article is nil when none of its regions resolved.
func (a *Assembler) Assemble(issueCode string, s *ArticleStructure, pages PageSet) (*Article, []Diagnostic) {
	if len(s.Heading) == 0 && len(s.Body) == 0 {
		return nil, []Diagnostic{{
			Stage:    StageAssembling,
			Code:     EASSEMBLY,
			Severity: SeverityWarning,
			Ref:      s.ID,
			Message:  "article declares no regions",
		}}
	}

	var diags []Diagnostic
	resolve := func(refs []RegionRef) []*resolvedRegion {
		var out []*resolvedRegion
		for _, ref := range refs {
			r, err := lookupRegion(pages, ref)
			if err != nil {
				diags = append(diags, NewDiagnostic(StageAssembling, s.ID+"@"+ref.String(), err))
				continue
			}
			out = append(out, &resolvedRegion{page: ref.Page, region: r})
		}
		return out
	}
	heading := resolve(s.Heading)
	body := resolve(s.Body)

	if len(heading) == 0 && len(body) == 0 {
		diags = append(diags, NewDiagnostic(StageAssembling, s.ID,
			Errorf(EASSEMBLY, "article %s: none of %d regions resolved", s.ID, len(s.Heading)+len(s.Body))))
		return nil, diags
	}

	art := &Article{
		IssueCode: issueCode,
		ID:        s.ID,
		NonText:   append([]string(nil), s.NonText...),
	}

	hb := a.newTextBuilder(" ")
	for _, rr := range heading {
		hb.addRegion(rr.region)
	}
	hb.finish()
	art.HeadingText = hb.String()
	art.Title = s.TitleOrEmpty()
	if s.Title == nil {
		art.Title = art.HeadingText
	}

	tb := a.newTextBuilder(a.separator())
	for _, rr := range body {
		tb.addRegion(rr.region)
	}
	tb.finish()
	art.Text = tb.String()

	// Layout attributes cover the whole region sequence, heading included.
	seen := make(map[int]bool)
	for _, rr := range append(heading, body...) {
		art.RegionIDs = append(art.RegionIDs, rr.region.ID)
		if !seen[rr.page] {
			seen[rr.page] = true
			art.Pages = append(art.Pages, rr.page)
		}
	}
	art.WordCount = hb.words + tb.words
	art.Box = hb.box.Union(tb.box)
	art.Merges = append(hb.merges, tb.merges...)
	if n := hb.confN + tb.confN; n > 0 {
		art.Confidence = (hb.confSum + tb.confSum) / float64(n)
	}
	for i, p := range art.Pages {
		if i == 0 || p < art.FirstPage {
			art.FirstPage = p
		}
		if p > art.LastPage {
			art.LastPage = p
		}
	}
	return art, diags
}

func (a *Assembler) separator() string {
	if a.ParagraphSeparator == "" {
		return DefaultParagraphSeparator
	}
	return a.ParagraphSeparator
}

type resolvedRegion struct {
	page   int
	region *Region
}

func lookupRegion(pages PageSet, ref RegionRef) (*Region, error) {
	page, ok := pages[ref.Page]
	if !ok || page == nil {
		return nil, Errorf(EASSEMBLY, "region %s: page %d unavailable", ref.ID, ref.Page)
	}
	r, ok := page.Region(ref.ID)
	if !ok {
		return nil, Errorf(EASSEMBLY, "region %s not found on page %d", ref.ID, ref.Page)
	}
	return r, nil
}

// textBuilder accumulates running text token by token. A continuation
// fragment is held back until the next token arrives; fragments are never
// joined across regions.
type textBuilder struct {
	policy HyphenPolicy
	sep    string

	b       strings.Builder
	needSep bool
	pending string

	// pendingFull is the SUBS_CONTENT of a held HypPart1 fragment.
	pendingFull string

	words   int
	box     BoundingBox
	confSum float64
	confN   int
	merges  []HyphenMerge
}

func (a *Assembler) newTextBuilder(sep string) *textBuilder {
	return &textBuilder{policy: a.Policy, sep: sep}
}

func (tb *textBuilder) addRegion(r *Region) {
	tb.flushPending()
	if tb.b.Len() > 0 {
		tb.needSep = true
	}
	for _, line := range r.Lines {
		for i := range line.Words {
			w := &line.Words[i]
			tok := collapseSpace(w.Text)
			if tok == "" {
				continue
			}
			tb.box = tb.box.Union(w.Box)
			if w.Confidence > 0 {
				tb.confSum += w.Confidence
				tb.confN++
			}
			lastInLine := i == len(line.Words)-1
			if tb.pending != "" {
				merged := tb.policy.Join(tb.pending, tok)
				if full := tb.fullWord(w); full != "" {
					merged = full
				}
				tb.merges = append(tb.merges, HyphenMerge{
					Region: r.ID,
					Head:   tb.pending,
					Tail:   tok,
					Merged: merged,
				})
				tb.pending, tb.pendingFull = "", ""
				tok = merged
			}
			if w.Continuation && lastInLine {
				tb.pending = tok
				if w.SubsType == SubsHypPart1 {
					tb.pendingFull = collapseSpace(w.SubsContent)
				}
				continue
			}
			tb.emit(tok)
		}
	}
}

// fullWord returns the ALTO substitution for a HypPart1/HypPart2 pair, or
// "" when the pair carries none. The substitution keeps genuine compound
// hyphens ("to-day") and the corrected spelling of the whole word.
func (tb *textBuilder) fullWord(tail *Word) string {
	if tail.SubsType != SubsHypPart2 {
		return ""
	}
	full := tb.pendingFull
	if full == "" {
		full = collapseSpace(tail.SubsContent)
	}
	if full == "" || strings.Contains(full, "--") || strings.Contains(full, " ") {
		return ""
	}
	return full
}

// flushPending emits a held fragment that found no continuation.
func (tb *textBuilder) flushPending() {
	if tb.pending != "" {
		tb.emit(tb.pending)
		tb.pending, tb.pendingFull = "", ""
	}
}

func (tb *textBuilder) emit(tok string) {
	switch {
	case tb.needSep:
		tb.b.WriteString(tb.sep)
		tb.needSep = false
	case tb.b.Len() > 0:
		tb.b.WriteByte(' ')
	}
	tb.b.WriteString(tok)
	tb.words++
}

func (tb *textBuilder) finish() {
	tb.flushPending()
}

func (tb *textBuilder) String() string {
	return tb.b.String()
}

// collapseSpace trims s and replaces every whitespace run with one space.
func collapseSpace(s string) string {
	if s == "" {
		return ""
	}
	return strings.Join(strings.Fields(s), " ")
}

// CleanText collapses whitespace runs within each line of s and drops empty
// lines, keeping single newlines as paragraph separators.
func CleanText(s string) string {
	lines := strings.Split(s, "\n")
	out := lines[:0]
	for _, l := range lines {
		if l = collapseSpace(l); l != "" {
			out = append(out, l)
		}
	}
	return strings.Join(out, "\n")
}
