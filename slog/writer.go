package slog

import (
	"context"
	"log/slog"
	"time"

	"github.com/fwojciec/metsalto"
)

// Ensure LoggingBatchWriter implements metsalto.BatchWriter.
var _ metsalto.BatchWriter = (*LoggingBatchWriter)(nil)

// LoggingBatchWriter wraps a BatchWriter with logging.
type LoggingBatchWriter struct {
	next   metsalto.BatchWriter
	logger *slog.Logger
}

// NewLoggingBatchWriter creates a new LoggingBatchWriter.
func NewLoggingBatchWriter(next metsalto.BatchWriter, logger *slog.Logger) *LoggingBatchWriter {
	return &LoggingBatchWriter{next: next, logger: logger}
}

// WriteBatch delegates to the wrapped writer and logs the operation.
func (w *LoggingBatchWriter) WriteBatch(ctx context.Context, issue *metsalto.Issue, articles []*metsalto.Article) (path string, err error) {
	defer func(begin time.Time) {
		level := slog.LevelDebug
		if err != nil {
			level = slog.LevelWarn
		}
		w.logger.Log(ctx, level, "batch write",
			"issue", issue.Code,
			"articles", len(articles),
			"path", path,
			"duration", time.Since(begin),
			"err", err,
		)
	}(time.Now())
	return w.next.WriteBatch(ctx, issue, articles)
}

// Ensure LoggingSummaryWriter implements metsalto.SummaryWriter.
var _ metsalto.SummaryWriter = (*LoggingSummaryWriter)(nil)

// LoggingSummaryWriter wraps a SummaryWriter with logging.
type LoggingSummaryWriter struct {
	next   metsalto.SummaryWriter
	logger *slog.Logger
}

// NewLoggingSummaryWriter creates a new LoggingSummaryWriter.
func NewLoggingSummaryWriter(next metsalto.SummaryWriter, logger *slog.Logger) *LoggingSummaryWriter {
	return &LoggingSummaryWriter{next: next, logger: logger}
}

// WriteSummary delegates to the wrapped writer and logs the run totals.
func (w *LoggingSummaryWriter) WriteSummary(ctx context.Context, s *metsalto.RunSummary) (path string, err error) {
	defer func(begin time.Time) {
		w.logger.Info("run summary",
			"run", s.RunID,
			"attempted", s.Totals.IssuesAttempted,
			"succeeded", s.Totals.Succeeded,
			"partial", s.Totals.Partial,
			"failed", s.Totals.Failed,
			"articles", s.Totals.Articles,
			"aborted", s.Aborted,
			"path", path,
			"duration", time.Since(begin),
			"err", err,
		)
	}(time.Now())
	return w.next.WriteSummary(ctx, s)
}
