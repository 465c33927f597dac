package metsalto

import (
	"context"
	"sort"
)

// ArchivePage is one page document extracted from an issue archive.
type ArchivePage struct {
	Sequence int
	Name     string
	Data     []byte
}

// Archive holds the raw documents of one issue.
type Archive struct {
	// Descriptor is the METS document. Nil when none was found.
	Descriptor     []byte
	DescriptorName string

	// Pages are the ALTO documents sorted by sequence number.
	Pages []ArchivePage
}

// Page returns the page document with the given sequence number.
func (a *Archive) Page(seq int) (*ArchivePage, bool) {
	i := sort.Search(len(a.Pages), func(i int) bool { return a.Pages[i].Sequence >= seq })
	if i < len(a.Pages) && a.Pages[i].Sequence == seq {
		return &a.Pages[i], true
	}
	return nil, false
}

// Documents returns the number of documents read from the archive.
func (a *Archive) Documents() int {
	n := len(a.Pages)
	if a.Descriptor != nil {
		n++
	}
	return n
}

// SortPages orders pages by sequence number.
func (a *Archive) SortPages() {
	sort.SliceStable(a.Pages, func(i, j int) bool { return a.Pages[i].Sequence < a.Pages[j].Sequence })
}

// ArchiveLoader opens an issue archive and classifies its members.
type ArchiveLoader interface {
	// Load reads the issue's descriptor and page documents. Failures are
	// EARCHIVE errors. When the archive is damaged part way through, Load
	// may return the documents read so far together with the error.
	Load(ctx context.Context, issue *Issue) (*Archive, error)
}
