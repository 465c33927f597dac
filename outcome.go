package metsalto

import (
	"context"
	"fmt"
)

// Status is the classification of one processed issue.
type Status string

// Status values.
const (
	StatusSuccess Status = "success"
	StatusPartial Status = "partial"
	StatusFailed  Status = "failed"
)

// Stage is a step of the issue processing state machine.
type Stage string

// Stages in processing order.
const (
	StageLoading    Stage = "loading"
	StageParsing    Stage = "parsing"
	StageAssembling Stage = "assembling"
	StagePersisting Stage = "persisting"
	StageCompleted  Stage = "completed"
	StageFailed     Stage = "failed"
)

// Severity of a diagnostic. Errors degrade an issue to partial; warnings
// are informational.
const (
	SeverityError   = "error"
	SeverityWarning = "warning"
)

// Diagnostic is one stage-level problem found while processing an issue.
type Diagnostic struct {
	Stage    Stage  `json:"stage"`
	Code     string `json:"code"`
	Severity string `json:"severity"`
	Ref      string `json:"ref,omitempty"`
	Message  string `json:"message"`
}

// String returns a single-line form of the diagnostic.
func (d Diagnostic) String() string {
	if d.Ref != "" {
		return fmt.Sprintf("%s/%s [%s] %s: %s", d.Stage, d.Code, d.Severity, d.Ref, d.Message)
	}
	return fmt.Sprintf("%s/%s [%s] %s", d.Stage, d.Code, d.Severity, d.Message)
}

// NewDiagnostic builds an error-severity diagnostic from err.
func NewDiagnostic(stage Stage, ref string, err error) Diagnostic {
	return Diagnostic{
		Stage:    stage,
		Code:     ErrorCode(err),
		Severity: SeverityError,
		Ref:      ref,
		Message:  err.Error(),
	}
}

// ProcessingOutcome reports how one issue was processed.
type ProcessingOutcome struct {
	Issue       string       `json:"issue"`
	Status      Status       `json:"status"`
	Stage       Stage        `json:"stage"`
	Diagnostics []Diagnostic `json:"diagnostics"`

	PagesParsed      int `json:"pages_parsed"`
	PagesExpected    int `json:"pages_expected"`
	ArticlesDeclared int `json:"articles_declared"`
	Articles         int `json:"articles"`

	// Digest fingerprints the article batch; equal batches have equal
	// digests.
	Digest string `json:"digest,omitempty"`

	// Output is the batch file written for the issue.
	Output string `json:"output,omitempty"`

	ElapsedSeconds float64 `json:"elapsed_seconds"`
}

// AddDiagnostic appends d to the outcome.
func (o *ProcessingOutcome) AddDiagnostic(d Diagnostic) {
	o.Diagnostics = append(o.Diagnostics, d)
}

// Degraded reports whether any error-severity diagnostic was recorded.
func (o *ProcessingOutcome) Degraded() bool {
	for _, d := range o.Diagnostics {
		if d.Severity == SeverityError {
			return true
		}
	}
	return false
}

// Classify sets the final status: failed when no article was produced,
// partial when articles were produced despite errors, success otherwise.
func (o *ProcessingOutcome) Classify() {
	switch {
	case o.Articles == 0:
		o.Status = StatusFailed
		o.Stage = StageFailed
	case o.Degraded():
		o.Status = StatusPartial
		o.Stage = StageCompleted
	default:
		o.Status = StatusSuccess
		o.Stage = StageCompleted
	}
}

// Fail marks the issue failed at the given stage with a diagnostic.
func (o *ProcessingOutcome) Fail(stage Stage, ref string, err error) {
	o.AddDiagnostic(NewDiagnostic(stage, ref, err))
	o.Status = StatusFailed
	o.Stage = StageFailed
}

// IssueResult is the immutable value a worker hands back to the
// coordinator: the article batch and the outcome.
type IssueResult struct {
	Issue    *Issue
	Articles []*Article
	Outcome  *ProcessingOutcome
}

// IssueProcessor runs the full pipeline for one issue. It never returns an
// error: every failure is captured as a diagnostic in the outcome.
type IssueProcessor interface {
	Process(ctx context.Context, issue *Issue) *IssueResult
}
