package mock

import (
	"context"

	"github.com/fwojciec/metsalto"
)

var _ metsalto.ArchiveLoader = (*ArchiveLoader)(nil)

// ArchiveLoader is a mock implementation of metsalto.ArchiveLoader.
type ArchiveLoader struct {
	LoadFn func(ctx context.Context, issue *metsalto.Issue) (*metsalto.Archive, error)
}

func (l *ArchiveLoader) Load(ctx context.Context, issue *metsalto.Issue) (*metsalto.Archive, error) {
	return l.LoadFn(ctx, issue)
}
