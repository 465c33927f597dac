// Package slog provides logging decorators for the pipeline services.
package slog

import (
	"context"
	"log/slog"
	"time"

	"github.com/fwojciec/metsalto"
)

// Ensure LoggingProcessor implements metsalto.IssueProcessor.
var _ metsalto.IssueProcessor = (*LoggingProcessor)(nil)

// LoggingProcessor wraps an IssueProcessor and logs every outcome. Failed
// issues log at error level, partial ones at warn level.
type LoggingProcessor struct {
	next   metsalto.IssueProcessor
	logger *slog.Logger
}

// NewLoggingProcessor creates a new LoggingProcessor.
func NewLoggingProcessor(next metsalto.IssueProcessor, logger *slog.Logger) *LoggingProcessor {
	return &LoggingProcessor{next: next, logger: logger}
}

// Process delegates to the wrapped processor and logs the outcome.
func (p *LoggingProcessor) Process(ctx context.Context, issue *metsalto.Issue) (result *metsalto.IssueResult) {
	defer func(begin time.Time) {
		if result == nil || result.Outcome == nil {
			return
		}
		o := result.Outcome
		for _, d := range o.Diagnostics {
			p.logger.Debug("diagnostic",
				"issue", o.Issue,
				"stage", d.Stage,
				"code", d.Code,
				"severity", d.Severity,
				"ref", d.Ref,
				"msg", d.Message,
			)
		}
		p.logger.Log(ctx, statusLevel(o.Status), "issue processed",
			"issue", o.Issue,
			"status", o.Status,
			"pages", o.PagesParsed,
			"articles", o.Articles,
			"diagnostics", len(o.Diagnostics),
			"duration", time.Since(begin),
		)
	}(time.Now())
	return p.next.Process(ctx, issue)
}

func statusLevel(s metsalto.Status) slog.Level {
	switch s {
	case metsalto.StatusFailed:
		return slog.LevelError
	case metsalto.StatusPartial:
		return slog.LevelWarn
	default:
		return slog.LevelInfo
	}
}
