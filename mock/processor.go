package mock

import (
	"context"

	"github.com/fwojciec/metsalto"
)

var _ metsalto.IssueProcessor = (*IssueProcessor)(nil)

// IssueProcessor is a mock implementation of metsalto.IssueProcessor.
type IssueProcessor struct {
	ProcessFn func(ctx context.Context, issue *metsalto.Issue) *metsalto.IssueResult
}

func (p *IssueProcessor) Process(ctx context.Context, issue *metsalto.Issue) *metsalto.IssueResult {
	return p.ProcessFn(ctx, issue)
}
