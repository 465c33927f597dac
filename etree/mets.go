package etree

import (
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/araddon/dateparse"
	"github.com/beevik/etree"
	"github.com/fwojciec/metsalto"
)

// Ensure StructureParser implements metsalto.StructureParser.
var _ metsalto.StructureParser = (*StructureParser)(nil)

// DefaultExcludedTypes are logical div types whose regions carry no running
// text. Their presence is still recorded as non-text elements.
var DefaultExcludedTypes = []string{"ILLUSTRATION", "IMAGE", "CAPTION"}

// defaultOrder is used for content divs without a valid ORDER attribute.
const defaultOrder = 999

var pagePrefixRe = regexp.MustCompile(`^P(\d+)_`)

// StructureParser parses METS structural maps.
type StructureParser struct {
	excluded map[string]bool
}

// NewStructureParser returns a parser that skips the content of the given
// div types. With no types, DefaultExcludedTypes is used.
func NewStructureParser(excluded ...string) *StructureParser {
	if len(excluded) == 0 {
		excluded = DefaultExcludedTypes
	}
	p := &StructureParser{excluded: make(map[string]bool)}
	for _, t := range excluded {
		p.excluded[strings.ToUpper(t)] = true
	}
	return p
}

// ParseStructure parses a METS document.
func (p *StructureParser) ParseStructure(data []byte) (*metsalto.StructMap, error) {
	root, err := readDocument(data)
	if err != nil {
		return nil, metsalto.WrapError(metsalto.EMETS, err, "parsing METS XML")
	}

	sm := &metsalto.StructMap{}
	p.parseMetadata(root, sm)

	var physical, logical *etree.Element
	for _, m := range descendants(root, "structMap") {
		switch strings.ToUpper(attr(m, "TYPE")) {
		case "PHYSICAL":
			if physical == nil {
				physical = m
			}
		case "LOGICAL":
			if logical == nil {
				logical = m
			}
		}
	}
	if logical == nil {
		// Untyped maps: the first one declaring articles is the logical map.
		for _, m := range descendants(root, "structMap") {
			if len(articleDivs(m)) > 0 {
				logical = m
				break
			}
		}
	}
	if logical == nil {
		return nil, metsalto.Errorf(metsalto.EMETS, "no logical structure map")
	}

	fileToPage := make(map[string]int)
	if physical != nil {
		sm.Pages = parsePages(physical, fileToPage)
	}

	divs := articleDivs(logical)
	if len(divs) == 0 {
		return nil, metsalto.Errorf(metsalto.EMETS, "structure map declares no articles")
	}

	seen := make(map[string]bool)
	for i, div := range divs {
		art, err := p.parseArticle(i, div, fileToPage)
		if err != nil {
			return nil, err
		}
		if seen[art.ID] {
			return nil, metsalto.Errorf(metsalto.EMETS, "article %s declared twice", art.ID)
		}
		seen[art.ID] = true
		sm.Articles = append(sm.Articles, *art)
	}

	if len(sm.Pages) == 0 {
		sm.Pages = referencedPages(sm.Articles)
	}
	return sm, nil
}

// parseMetadata reads the optional MODS issue metadata.
func (p *StructureParser) parseMetadata(root *etree.Element, sm *metsalto.StructMap) {
	if el := first(root, "dateIssued"); el != nil {
		if t, err := dateparse.ParseAny(strings.TrimSpace(el.Text())); err == nil {
			sm.Date = t
		}
	}
	if el := first(root, "titleInfo"); el != nil {
		if title := first(el, "title"); title != nil {
			sm.Newspaper = metsalto.CleanText(title.Text())
		}
	}
}

// parsePages reads PAGE divs of the physical map and maps file IDs to page
// numbers.
func parsePages(physical *etree.Element, fileToPage map[string]int) []metsalto.PageRef {
	var pages []metsalto.PageRef
	for i, div := range descendants(physical, "div") {
		if !strings.EqualFold(attr(div, "TYPE"), "PAGE") {
			continue
		}
		page := metsalto.PageRef{
			Sequence: intAttr(div, "ORDER", len(pages)+1),
			ID:       attr(div, "ID"),
		}
		if page.Sequence <= 0 {
			page.Sequence = i + 1
		}
		for _, fptr := range descendants(div, "fptr") {
			id := attr(fptr, "FILEID")
			if id == "" {
				continue
			}
			if page.FileID == "" {
				page.FileID = id
			}
			fileToPage[id] = page.Sequence
		}
		pages = append(pages, page)
	}
	sort.SliceStable(pages, func(i, j int) bool { return pages[i].Sequence < pages[j].Sequence })
	return pages
}

// articleDivs returns ARTICLE divs in document order.
func articleDivs(m *etree.Element) []*etree.Element {
	var out []*etree.Element
	for _, div := range descendants(m, "div") {
		if strings.EqualFold(attr(div, "TYPE"), "ARTICLE") {
			out = append(out, div)
		}
	}
	return out
}

type orderedRef struct {
	order int
	ref   metsalto.RegionRef
}

func (p *StructureParser) parseArticle(index int, div *etree.Element, fileToPage map[string]int) (*metsalto.ArticleStructure, error) {
	art := &metsalto.ArticleStructure{ID: articleID(div)}
	if art.ID == "" {
		return nil, metsalto.Errorf(metsalto.EMETS, "article %d has neither DMDID nor ID", index+1)
	}
	if hasAttr(div, "LABEL") {
		title := metsalto.CleanText(div.SelectAttrValue("LABEL", ""))
		art.Title = &title
	}

	var content []orderedRef
	var walkErr error
	var walk func(*etree.Element)
	walk = func(parent *etree.Element) {
		for _, d := range children(parent, "div") {
			if walkErr != nil {
				return
			}
			typ := strings.ToUpper(attr(d, "TYPE"))
			if typ == "HEADING" {
				for _, area := range descendants(d, "area") {
					ref, err := resolveArea(art.ID, area, fileToPage)
					if err != nil {
						walkErr = err
						return
					}
					if ref.ID != "" {
						art.Heading = appendUnique(art.Heading, ref)
					}
				}
				continue
			}
			if typ != "" && !p.excluded[typ] {
				order := intAttr(d, "ORDER", defaultOrder)
				for _, area := range ownAreas(d) {
					ref, err := resolveArea(art.ID, area, fileToPage)
					if err != nil {
						walkErr = err
						return
					}
					if ref.ID != "" {
						content = append(content, orderedRef{order: order, ref: ref})
					}
				}
			}
			walk(d)
		}
	}
	walk(div)
	if walkErr != nil {
		return nil, walkErr
	}

	sort.SliceStable(content, func(i, j int) bool { return content[i].order < content[j].order })
	for _, c := range content {
		art.Body = appendUnique(art.Body, c.ref)
	}
	art.NonText = nonTextElements(div)
	return art, nil
}

// articleID derives the article identifier from DMDID, falling back to ID.
func articleID(div *etree.Element) string {
	if dmd := strings.Fields(attr(div, "DMDID")); len(dmd) > 0 {
		return strings.TrimPrefix(dmd[0], "MODSMD_")
	}
	return attr(div, "ID")
}

// ownAreas returns the areas a div points at directly or through its own
// fptr elements, excluding areas of nested divs.
func ownAreas(div *etree.Element) []*etree.Element {
	var out []*etree.Element
	for _, c := range div.ChildElements() {
		switch {
		case is(c, "area"):
			out = append(out, c)
		case is(c, "fptr"):
			out = append(out, descendants(c, "area")...)
		}
	}
	return out
}

// resolveArea turns an area into a region reference. The page comes from the
// P<n>_ prefix of BEGIN, or from the page owning the area's FILEID.
func resolveArea(articleID string, area *etree.Element, fileToPage map[string]int) (metsalto.RegionRef, error) {
	begin := attr(area, "BEGIN")
	if begin == "" {
		return metsalto.RegionRef{}, nil
	}
	if m := pagePrefixRe.FindStringSubmatch(begin); m != nil {
		n, _ := strconv.Atoi(m[1])
		return metsalto.RegionRef{Page: n, ID: begin}, nil
	}
	if n, ok := fileToPage[attr(area, "FILEID")]; ok {
		return metsalto.RegionRef{Page: n, ID: begin}, nil
	}
	return metsalto.RegionRef{}, metsalto.Errorf(metsalto.EMETS,
		"article %s: cannot resolve page of region %q (FILEID %q)", articleID, begin, attr(area, "FILEID"))
}

func appendUnique(refs []metsalto.RegionRef, ref metsalto.RegionRef) []metsalto.RegionRef {
	for _, r := range refs {
		if r == ref {
			return refs
		}
	}
	return append(refs, ref)
}

// nonTextElements lists the non-text div types of an article, duplicates
// included. A BODY is non-text when it holds no TEXT div.
func nonTextElements(article *etree.Element) []string {
	var out []string
	for _, child := range children(article, "div") {
		typ := strings.ToUpper(attr(child, "TYPE"))
		if typ == "" || typ == "HEADING" {
			continue
		}
		switch typ {
		case "TEXT":
		case "BODY":
			hasText := false
			for _, d := range descendants(child, "div") {
				if strings.EqualFold(attr(d, "TYPE"), "TEXT") {
					hasText = true
					break
				}
			}
			if !hasText {
				out = append(out, typ)
			}
		default:
			out = append(out, typ)
		}
		for _, sub := range descendants(child, "div") {
			switch st := strings.ToUpper(attr(sub, "TYPE")); st {
			case "", "TEXT", "HEADING", "BODY_CONTENT":
			default:
				out = append(out, st)
			}
		}
	}
	return out
}

// referencedPages derives a page list from the regions articles point at.
func referencedPages(articles []metsalto.ArticleStructure) []metsalto.PageRef {
	seen := make(map[int]bool)
	var seqs []int
	for i := range articles {
		for _, n := range articles[i].Pages() {
			if !seen[n] {
				seen[n] = true
				seqs = append(seqs, n)
			}
		}
	}
	sort.Ints(seqs)
	pages := make([]metsalto.PageRef, 0, len(seqs))
	for _, n := range seqs {
		pages = append(pages, metsalto.PageRef{Sequence: n})
	}
	return pages
}
