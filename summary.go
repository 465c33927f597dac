package metsalto

import (
	"context"
	"sort"
	"time"
)

// Totals aggregates outcomes of a run.
type Totals struct {
	IssuesRequested int `json:"issues_requested"`
	IssuesAttempted int `json:"issues_attempted"`
	Succeeded       int `json:"succeeded"`
	Partial         int `json:"partial"`
	Failed          int `json:"failed"`
	Articles        int `json:"total_articles"`
	PagesParsed     int `json:"total_pages"`
}

// RunSummary accumulates the outcomes of one run. It is owned by the
// coordinator; workers never touch it.
type RunSummary struct {
	RunID     string    `json:"run_id"`
	Revision  string    `json:"revision"`
	StartedAt time.Time `json:"started_at"`
	EndedAt   time.Time `json:"ended_at"`
	Workers   int       `json:"workers"`

	// Aborted is set when the run was interrupted before every issue
	// completed.
	Aborted bool `json:"aborted"`

	Totals   Totals               `json:"totals"`
	Outcomes []*ProcessingOutcome `json:"outcomes"`
}

// NewRunSummary returns an empty summary for a run over requested issues.
func NewRunSummary(runID, revision string, workers, requested int, startedAt time.Time) *RunSummary {
	return &RunSummary{
		RunID:     runID,
		Revision:  revision,
		StartedAt: startedAt,
		Workers:   workers,
		Totals:    Totals{IssuesRequested: requested},
		Outcomes:  []*ProcessingOutcome{},
	}
}

// Fold adds one outcome to the summary.
func (s *RunSummary) Fold(o *ProcessingOutcome) {
	s.Outcomes = append(s.Outcomes, o)
	s.Totals.IssuesAttempted++
	switch o.Status {
	case StatusSuccess:
		s.Totals.Succeeded++
	case StatusPartial:
		s.Totals.Partial++
	default:
		s.Totals.Failed++
	}
	s.Totals.Articles += o.Articles
	s.Totals.PagesParsed += o.PagesParsed
}

// Finalize stamps the end time and orders outcomes by issue code so the
// summary does not depend on completion order.
func (s *RunSummary) Finalize(endedAt time.Time, aborted bool) {
	s.EndedAt = endedAt
	s.Aborted = aborted
	sort.SliceStable(s.Outcomes, func(i, j int) bool {
		return s.Outcomes[i].Issue < s.Outcomes[j].Issue
	})
}

// Outcome returns the outcome recorded for the issue code.
func (s *RunSummary) Outcome(code string) (*ProcessingOutcome, bool) {
	for _, o := range s.Outcomes {
		if o.Issue == code {
			return o, true
		}
	}
	return nil, false
}

// IssuesWithStatus returns the codes of issues with the given status in
// outcome order.
func (s *RunSummary) IssuesWithStatus(status Status) []string {
	var codes []string
	for _, o := range s.Outcomes {
		if o.Status == status {
			codes = append(codes, o.Issue)
		}
	}
	return codes
}

// Validate checks that the totals agree with the outcome list.
func (s *RunSummary) Validate() error {
	var articles int
	for _, o := range s.Outcomes {
		articles += o.Articles
	}
	if articles != s.Totals.Articles {
		return Errorf(EINTERNAL, "summary: %d articles in outcomes, %d in totals", articles, s.Totals.Articles)
	}
	t := s.Totals
	if t.Succeeded+t.Partial+t.Failed != t.IssuesAttempted {
		return Errorf(EINTERNAL, "summary: %d+%d+%d outcomes for %d attempted issues",
			t.Succeeded, t.Partial, t.Failed, t.IssuesAttempted)
	}
	if t.IssuesAttempted != len(s.Outcomes) {
		return Errorf(EINTERNAL, "summary: %d outcomes for %d attempted issues", len(s.Outcomes), t.IssuesAttempted)
	}
	return nil
}

// SummaryWriter persists a run summary.
type SummaryWriter interface {
	// WriteSummary writes the summary and returns the path written.
	WriteSummary(ctx context.Context, s *RunSummary) (string, error)
}

// Ledger keeps an auditable record of runs. Implementations must tolerate
// being called only from the coordinator goroutine.
type Ledger interface {
	// BeginRun records the start of a run.
	BeginRun(ctx context.Context, s *RunSummary) error

	// RecordIssue records one issue's outcome, its diagnostics and, in
	// audit mode, the hyphen merges of its articles.
	RecordIssue(ctx context.Context, runID string, result *IssueResult) error

	// EndRun records the final totals of a run.
	EndRun(ctx context.Context, s *RunSummary) error
}
