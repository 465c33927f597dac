package mock

import (
	"context"

	"github.com/fwojciec/metsalto"
)

var _ metsalto.BatchWriter = (*BatchWriter)(nil)

// BatchWriter is a mock implementation of metsalto.BatchWriter.
type BatchWriter struct {
	WriteBatchFn func(ctx context.Context, issue *metsalto.Issue, articles []*metsalto.Article) (string, error)
}

func (w *BatchWriter) WriteBatch(ctx context.Context, issue *metsalto.Issue, articles []*metsalto.Article) (string, error) {
	return w.WriteBatchFn(ctx, issue, articles)
}

var _ metsalto.SummaryWriter = (*SummaryWriter)(nil)

// SummaryWriter is a mock implementation of metsalto.SummaryWriter.
type SummaryWriter struct {
	WriteSummaryFn func(ctx context.Context, s *metsalto.RunSummary) (string, error)
}

func (w *SummaryWriter) WriteSummary(ctx context.Context, s *metsalto.RunSummary) (string, error) {
	return w.WriteSummaryFn(ctx, s)
}
