package mock

import (
	"context"

	"github.com/fwojciec/metsalto"
)

var _ metsalto.Ledger = (*Ledger)(nil)

// Ledger is a mock implementation of metsalto.Ledger.
type Ledger struct {
	BeginRunFn    func(ctx context.Context, s *metsalto.RunSummary) error
	RecordIssueFn func(ctx context.Context, runID string, result *metsalto.IssueResult) error
	EndRunFn      func(ctx context.Context, s *metsalto.RunSummary) error
}

func (l *Ledger) BeginRun(ctx context.Context, s *metsalto.RunSummary) error {
	return l.BeginRunFn(ctx, s)
}

func (l *Ledger) RecordIssue(ctx context.Context, runID string, result *metsalto.IssueResult) error {
	return l.RecordIssueFn(ctx, runID, result)
}

func (l *Ledger) EndRun(ctx context.Context, s *metsalto.RunSummary) error {
	return l.EndRunFn(ctx, s)
}
