// Package dispatch fans issue processing out over a bounded pool of
// workers. A single coordinator loop persists each issue's batch as soon as
// it arrives and folds its outcome into the run summary.
package dispatch

import (
	"context"
	"fmt"
	"runtime"
	"time"

	"github.com/fwojciec/metsalto"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// Dispatcher runs the issue processor over many issues. Workers are
// goroutines: a panic is contained to its issue, but a fatal runtime error
// (out of memory, concurrent map write, stack exhaustion) ends the process
// before a summary is written.
type Dispatcher struct {
	Processor metsalto.IssueProcessor
	Batches   metsalto.BatchWriter
	Summaries metsalto.SummaryWriter

	// Ledger is optional.
	Ledger metsalto.Ledger

	// Workers bounds concurrently processed issues. Zero means one per CPU.
	Workers  int
	Revision string

	// RetryDelays are the waits between batch write attempts. Nil means
	// DefaultRetryDelays.
	RetryDelays []time.Duration

	// Now and NewRunID default to time.Now and uuid.NewString.
	Now      func() time.Time
	NewRunID func() string
}

// Result is what a run leaves behind.
type Result struct {
	Summary     *metsalto.RunSummary
	SummaryPath string
}

// ProgressEvent reports progress during a run.
type ProgressEvent struct {
	Type      ProgressType
	Completed int
	Total     int
	Issue     string
	Status    metsalto.Status
}

// ProgressType indicates the type of progress event.
type ProgressType int

const (
	ProgressStarted ProgressType = iota
	ProgressIssueDone
	ProgressFinished
)

// ProgressFunc is a callback for reporting run progress.
type ProgressFunc func(event ProgressEvent)

// DefaultRetryDelays returns the backoff delays for batch writes: 100ms, 500ms, 2s.
func DefaultRetryDelays() []time.Duration {
	return []time.Duration{100 * time.Millisecond, 500 * time.Millisecond, 2 * time.Second}
}

// Run processes every issue and writes the run summary. Cancelling ctx
// stops dispatch; issues in flight finish as interrupted, and the summary
// is still written with Aborted set. Only environment problems and a
// failed summary write are returned as errors.
func (d *Dispatcher) Run(ctx context.Context, issues []*metsalto.Issue, progress ProgressFunc) (*Result, error) {
	issues = dedupe(issues)
	if len(issues) == 0 {
		return nil, metsalto.Errorf(metsalto.EENV, "no issues to process")
	}

	workers := d.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	workers = min(workers, len(issues))

	// bg outlives ctx: completed batches and the summary are written even
	// after cancellation.
	bg := context.WithoutCancel(ctx)

	summary := metsalto.NewRunSummary(d.runID(), d.Revision, workers, len(issues), d.now())
	if d.Ledger != nil {
		if err := d.Ledger.BeginRun(bg, summary); err != nil {
			return nil, metsalto.WrapError(metsalto.EENV, err, "starting run ledger")
		}
	}

	if progress != nil {
		progress(ProgressEvent{Type: ProgressStarted, Total: len(issues)})
	}

	resultCh := make(chan *metsalto.IssueResult, workers)
	var g errgroup.Group
	g.SetLimit(workers)

	go func() {
		for _, issue := range issues {
			if ctx.Err() != nil {
				break
			}
			g.Go(func() error {
				// Cancellation may land while g.Go waits for a free slot.
				if ctx.Err() != nil {
					return nil
				}
				resultCh <- d.process(ctx, issue)
				return nil
			})
		}
		_ = g.Wait()
		close(resultCh)
	}()

	for result := range resultCh {
		d.persist(ctx, bg, result)
		if d.Ledger != nil {
			if err := d.Ledger.RecordIssue(bg, summary.RunID, result); err != nil {
				result.Outcome.AddDiagnostic(metsalto.Diagnostic{
					Stage:    metsalto.StagePersisting,
					Code:     metsalto.EPERSIST,
					Severity: metsalto.SeverityWarning,
					Ref:      "ledger",
					Message:  err.Error(),
				})
			}
		}
		summary.Fold(result.Outcome)

		if progress != nil {
			progress(ProgressEvent{
				Type:      ProgressIssueDone,
				Completed: summary.Totals.IssuesAttempted,
				Total:     len(issues),
				Issue:     result.Outcome.Issue,
				Status:    result.Outcome.Status,
			})
		}
	}

	summary.Finalize(d.now(), ctx.Err() != nil)

	if d.Ledger != nil {
		// EndRun errors are ignored; the summary file is authoritative.
		_ = d.Ledger.EndRun(bg, summary)
	}

	path, err := d.Summaries.WriteSummary(bg, summary)
	if progress != nil {
		progress(ProgressEvent{Type: ProgressFinished, Completed: summary.Totals.IssuesAttempted, Total: len(issues)})
	}
	if err != nil {
		return &Result{Summary: summary}, metsalto.WrapError(metsalto.EPERSIST, err, "writing run summary")
	}
	return &Result{Summary: summary, SummaryPath: path}, nil
}

// process runs one issue, turning a worker panic into a crash outcome.
func (d *Dispatcher) process(ctx context.Context, issue *metsalto.Issue) (result *metsalto.IssueResult) {
	defer func() {
		if r := recover(); r != nil {
			result = crashed(issue, fmt.Sprintf("worker terminated: %v", r))
		}
	}()
	result = d.Processor.Process(ctx, issue)
	if result == nil || result.Outcome == nil {
		return crashed(issue, "worker returned no result")
	}
	return result
}

func crashed(issue *metsalto.Issue, msg string) *metsalto.IssueResult {
	o := &metsalto.ProcessingOutcome{Issue: issue.Code}
	o.Fail(metsalto.StageFailed, issue.Code, metsalto.Errorf(metsalto.ECRASH, "%s", msg))
	return &metsalto.IssueResult{Issue: issue, Outcome: o}
}

// persist writes the batch of a usable result. A batch that cannot be
// written fails the issue.
func (d *Dispatcher) persist(ctx, bg context.Context, result *metsalto.IssueResult) {
	o := result.Outcome
	if o.Status == metsalto.StatusFailed || len(result.Articles) == 0 {
		return
	}
	path, err := d.writeWithRetry(ctx, bg, result)
	if err != nil {
		o.Articles = 0
		o.Digest = ""
		result.Articles = nil
		if metsalto.ErrorCode(err) != metsalto.EPERSIST {
			err = metsalto.WrapError(metsalto.EPERSIST, err, "writing batch for %s", o.Issue)
		}
		o.Fail(metsalto.StagePersisting, o.Issue, err)
		return
	}
	o.Output = path
}

// writeWithRetry retries failed batch writes with backoff. Retries stop
// once ctx is cancelled; the attempt in progress still completes.
func (d *Dispatcher) writeWithRetry(ctx, bg context.Context, result *metsalto.IssueResult) (string, error) {
	delays := d.RetryDelays
	if delays == nil {
		delays = DefaultRetryDelays()
	}
	maxAttempts := len(delays) + 1

	var lastErr error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		path, err := d.Batches.WriteBatch(bg, result.Issue, result.Articles)
		if err == nil {
			return path, nil
		}
		lastErr = err

		if attempt >= maxAttempts-1 {
			break
		}
		select {
		case <-ctx.Done():
			return "", lastErr
		case <-time.After(delays[attempt]):
		}
	}
	return "", lastErr
}

func (d *Dispatcher) now() time.Time {
	if d.Now != nil {
		return d.Now()
	}
	return time.Now()
}

func (d *Dispatcher) runID() string {
	if d.NewRunID != nil {
		return d.NewRunID()
	}
	return uuid.NewString()
}

// dedupe drops repeated issue codes, keeping the first.
func dedupe(issues []*metsalto.Issue) []*metsalto.Issue {
	seen := make(map[string]bool, len(issues))
	out := make([]*metsalto.Issue, 0, len(issues))
	for _, issue := range issues {
		if issue == nil || seen[issue.Code] {
			continue
		}
		seen[issue.Code] = true
		out = append(out, issue)
	}
	return out
}
