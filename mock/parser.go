package mock

import "github.com/fwojciec/metsalto"

var _ metsalto.StructureParser = (*StructureParser)(nil)

// StructureParser is a mock implementation of metsalto.StructureParser.
type StructureParser struct {
	ParseStructureFn func(data []byte) (*metsalto.StructMap, error)
}

func (p *StructureParser) ParseStructure(data []byte) (*metsalto.StructMap, error) {
	return p.ParseStructureFn(data)
}

var _ metsalto.LayoutParser = (*LayoutParser)(nil)

// LayoutParser is a mock implementation of metsalto.LayoutParser.
type LayoutParser struct {
	ParseLayoutFn func(seq int, data []byte) (*metsalto.PageLayout, error)
}

func (p *LayoutParser) ParseLayout(seq int, data []byte) (*metsalto.PageLayout, error) {
	return p.ParseLayoutFn(seq, data)
}
