package metsalto_test

import (
	"errors"
	"testing"
	"time"

	"github.com/fwojciec/metsalto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProcessingOutcome_Classify(t *testing.T) {
	t.Parallel()

	warning := metsalto.Diagnostic{Stage: metsalto.StageAssembling, Code: metsalto.EASSEMBLY, Severity: metsalto.SeverityWarning}
	failure := metsalto.NewDiagnostic(metsalto.StageParsing, "page 2", metsalto.Errorf(metsalto.EALTO, "bad page"))

	tests := []struct {
		name      string
		articles  int
		diags     []metsalto.Diagnostic
		want      metsalto.Status
		wantStage metsalto.Stage
	}{
		{name: "clean", articles: 3, want: metsalto.StatusSuccess, wantStage: metsalto.StageCompleted},
		{name: "warnings only", articles: 3, diags: []metsalto.Diagnostic{warning}, want: metsalto.StatusSuccess, wantStage: metsalto.StageCompleted},
		{name: "errors with articles", articles: 1, diags: []metsalto.Diagnostic{failure}, want: metsalto.StatusPartial, wantStage: metsalto.StageCompleted},
		{name: "no articles", articles: 0, want: metsalto.StatusFailed, wantStage: metsalto.StageFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			o := &metsalto.ProcessingOutcome{Issue: "X_19000101", Articles: tt.articles, Diagnostics: tt.diags}
			o.Classify()

			assert.Equal(t, tt.want, o.Status)
			assert.Equal(t, tt.wantStage, o.Stage)
		})
	}
}

func TestProcessingOutcome_Fail(t *testing.T) {
	t.Parallel()

	o := &metsalto.ProcessingOutcome{Issue: "X_19000101"}
	o.Fail(metsalto.StageLoading, "X_1900.tar.gz", errors.New("permission denied"))

	assert.Equal(t, metsalto.StatusFailed, o.Status)
	assert.Equal(t, metsalto.StageFailed, o.Stage)
	require.Len(t, o.Diagnostics, 1)
	assert.Equal(t, metsalto.EINTERNAL, o.Diagnostics[0].Code)
	assert.Equal(t, metsalto.StageLoading, o.Diagnostics[0].Stage)
}

func TestDiagnostic_String(t *testing.T) {
	t.Parallel()

	d := metsalto.NewDiagnostic(metsalto.StageParsing, "page 2", metsalto.Errorf(metsalto.EALTO, "bad"))
	assert.Equal(t, "parsing/alto [error] page 2: alto: bad", d.String())
}

func outcome(code string, status metsalto.Status, articles, pages int) *metsalto.ProcessingOutcome {
	return &metsalto.ProcessingOutcome{Issue: code, Status: status, Articles: articles, PagesParsed: pages}
}

func TestRunSummary_Fold(t *testing.T) {
	t.Parallel()

	start := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	s := metsalto.NewRunSummary("run-1", "v1", 4, 3, start)

	s.Fold(outcome("C_19000103", metsalto.StatusFailed, 0, 0))
	s.Fold(outcome("A_19000101", metsalto.StatusSuccess, 5, 2))
	s.Fold(outcome("B_19000102", metsalto.StatusPartial, 2, 1))
	s.Finalize(start.Add(time.Minute), false)

	require.NoError(t, s.Validate())
	assert.Equal(t, metsalto.Totals{
		IssuesRequested: 3,
		IssuesAttempted: 3,
		Succeeded:       1,
		Partial:         1,
		Failed:          1,
		Articles:        7,
		PagesParsed:     3,
	}, s.Totals)

	t.Run("outcomes are ordered by issue code", func(t *testing.T) {
		t.Parallel()

		var codes []string
		for _, o := range s.Outcomes {
			codes = append(codes, o.Issue)
		}
		assert.Equal(t, []string{"A_19000101", "B_19000102", "C_19000103"}, codes)
	})

	t.Run("lookups", func(t *testing.T) {
		t.Parallel()

		o, ok := s.Outcome("B_19000102")
		require.True(t, ok)
		assert.Equal(t, 2, o.Articles)

		_, ok = s.Outcome("Z_19000101")
		assert.False(t, ok)

		assert.Equal(t, []string{"C_19000103"}, s.IssuesWithStatus(metsalto.StatusFailed))
	})
}

func TestRunSummary_Validate(t *testing.T) {
	t.Parallel()

	s := metsalto.NewRunSummary("run-1", "v1", 1, 1, time.Now())
	s.Fold(outcome("A_19000101", metsalto.StatusSuccess, 5, 2))
	s.Totals.Articles = 4

	err := s.Validate()
	require.Error(t, err)
	assert.Equal(t, metsalto.EINTERNAL, metsalto.ErrorCode(err))
}
