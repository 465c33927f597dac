package metsalto

import (
	"fmt"
	"time"
)

// RegionRef points at one ALTO region on one page of the same issue.
type RegionRef struct {
	Page int    `json:"page"`
	ID   string `json:"id"`
}

// String returns the reference as "page/id".
func (r RegionRef) String() string {
	return fmt.Sprintf("%d/%s", r.Page, r.ID)
}

// PageRef is one page declared by the physical structure map.
type PageRef struct {
	Sequence int    `json:"sequence"`
	ID       string `json:"id,omitempty"`
	FileID   string `json:"fileId,omitempty"`
}

// ArticleStructure is one article of the logical structure map.
type ArticleStructure struct {
	// ID is unique within the issue.
	ID string

	// Title is the declared label. Nil when the descriptor omits it.
	Title *string

	// Heading lists the regions holding the printed headline.
	Heading []RegionRef

	// Body lists the content regions in reading order.
	Body []RegionRef

	// NonText lists the types of non-text elements found in the article
	// (TABLE, ILLUSTRATION, ...), duplicates included.
	NonText []string
}

// TitleOrEmpty returns the declared title or "".
func (a *ArticleStructure) TitleOrEmpty() string {
	if a.Title == nil {
		return ""
	}
	return *a.Title
}

// Pages returns the distinct pages referenced by the article in first-use
// order.
func (a *ArticleStructure) Pages() []int {
	var pages []int
	seen := make(map[int]bool)
	for _, refs := range [][]RegionRef{a.Heading, a.Body} {
		for _, ref := range refs {
			if !seen[ref.Page] {
				seen[ref.Page] = true
				pages = append(pages, ref.Page)
			}
		}
	}
	return pages
}

// StructMap is the parsed structural descriptor of one issue.
type StructMap struct {
	// Newspaper and Date come from the descriptor metadata when present.
	Newspaper string
	Date      time.Time

	Pages    []PageRef
	Articles []ArticleStructure
}

// PageSequences returns the declared page numbers in order.
func (m *StructMap) PageSequences() []int {
	seqs := make([]int, 0, len(m.Pages))
	for _, p := range m.Pages {
		seqs = append(seqs, p.Sequence)
	}
	return seqs
}

// StructureParser parses an issue's structural descriptor.
type StructureParser interface {
	// ParseStructure returns the issue's page list and articles in
	// reading order. Failures are EMETS errors.
	ParseStructure(data []byte) (*StructMap, error)
}
