package sqlite_test

import (
	"context"
	"testing"
	"time"

	"github.com/fwojciec/metsalto"
	"github.com/fwojciec/metsalto/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var runStart = time.Date(2025, 3, 4, 5, 6, 7, 0, time.UTC)

func beginRun(t *testing.T, l *sqlite.Ledger, id, revision string, start time.Time) *metsalto.RunSummary {
	t.Helper()
	s := metsalto.NewRunSummary(id, revision, 4, 2, start)
	require.NoError(t, l.BeginRun(context.Background(), s))
	return s
}

func successResult() *metsalto.IssueResult {
	o := &metsalto.ProcessingOutcome{
		Issue:            "CHP_19031228",
		PagesParsed:      2,
		PagesExpected:    2,
		ArticlesDeclared: 2,
		Articles:         1,
		Digest:           "00000000deadbeef",
		Output:           "PP_CHP_19031228_r1.parquet",
		ElapsedSeconds:   1.5,
	}
	o.AddDiagnostic(metsalto.Diagnostic{
		Stage:    metsalto.StageAssembling,
		Code:     metsalto.EASSEMBLY,
		Severity: metsalto.SeverityWarning,
		Ref:      "ARTICLE2",
		Message:  "article declares no regions",
	})
	o.Classify()
	return &metsalto.IssueResult{
		Articles: []*metsalto.Article{{
			IssueCode: "CHP_19031228",
			ID:        "ARTICLE1",
			Text:      "The government announced.",
			WordCount: 3,
			Merges: []metsalto.HyphenMerge{
				{Region: "P1_TB00001", Head: "gov-", Tail: "ernment", Merged: "government"},
			},
		}},
		Outcome: o,
	}
}

func failedResult() *metsalto.IssueResult {
	o := &metsalto.ProcessingOutcome{Issue: "CHP_19031229"}
	o.Fail(metsalto.StageLoading, "CHP_19031229", metsalto.Errorf(metsalto.EARCHIVE, "archive not found"))
	return &metsalto.IssueResult{Outcome: o}
}

func TestLedger_RecordRun(t *testing.T) {
	t.Parallel()

	t.Run("records outcomes and totals", func(t *testing.T) {
		t.Parallel()

		ctx := context.Background()
		l := sqlite.NewLedger(openDB(t), false)
		s := beginRun(t, l, "run-1", "r1", runStart)

		for _, r := range []*metsalto.IssueResult{failedResult(), successResult()} {
			require.NoError(t, l.RecordIssue(ctx, s.RunID, r))
			s.Fold(r.Outcome)
		}
		s.Finalize(runStart.Add(time.Minute), true)
		require.NoError(t, l.EndRun(ctx, s))

		got, err := l.FindRun(ctx, "run-1")
		require.NoError(t, err)

		assert.Equal(t, "r1", got.Revision)
		assert.Equal(t, 4, got.Workers)
		assert.True(t, got.Aborted)
		assert.True(t, runStart.Equal(got.StartedAt))
		assert.True(t, runStart.Add(time.Minute).Equal(got.EndedAt))
		assert.Equal(t, s.Totals, got.Totals)
		require.NoError(t, got.Validate())

		require.Len(t, got.Outcomes, 2)
		ok := got.Outcomes[0]
		assert.Equal(t, "CHP_19031228", ok.Issue)
		assert.Equal(t, metsalto.StatusSuccess, ok.Status)
		assert.Equal(t, metsalto.StageCompleted, ok.Stage)
		assert.Equal(t, "00000000deadbeef", ok.Digest)
		assert.Equal(t, "PP_CHP_19031228_r1.parquet", ok.Output)
		assert.InDelta(t, 1.5, ok.ElapsedSeconds, 1e-9)
		assert.Equal(t, successResult().Outcome.Diagnostics, ok.Diagnostics)

		failed := got.Outcomes[1]
		assert.Equal(t, metsalto.StatusFailed, failed.Status)
		require.Len(t, failed.Diagnostics, 1)
		assert.Equal(t, metsalto.EARCHIVE, failed.Diagnostics[0].Code)
	})

	t.Run("re-recording an issue replaces it", func(t *testing.T) {
		t.Parallel()

		ctx := context.Background()
		l := sqlite.NewLedger(openDB(t), true)
		s := beginRun(t, l, "run-1", "r1", runStart)

		require.NoError(t, l.RecordIssue(ctx, s.RunID, successResult()))
		require.NoError(t, l.RecordIssue(ctx, s.RunID, successResult()))

		outcomes, err := l.FindOutcomes(ctx, "run-1")
		require.NoError(t, err)
		require.Len(t, outcomes, 1)
		assert.Len(t, outcomes[0].Diagnostics, 1)

		articles, err := l.FindArticles(ctx, "run-1", "CHP_19031228")
		require.NoError(t, err)
		assert.Len(t, articles, 1)
	})

	t.Run("unknown run is not found", func(t *testing.T) {
		t.Parallel()

		l := sqlite.NewLedger(openDB(t), false)

		_, err := l.FindRun(context.Background(), "missing")
		assert.Equal(t, metsalto.ENOTFOUND, metsalto.ErrorCode(err))

		err = l.EndRun(context.Background(), metsalto.NewRunSummary("missing", "r1", 1, 1, runStart))
		assert.Equal(t, metsalto.ENOTFOUND, metsalto.ErrorCode(err))
	})

	t.Run("outcome for unknown run is rejected", func(t *testing.T) {
		t.Parallel()

		l := sqlite.NewLedger(openDB(t), false)
		err := l.RecordIssue(context.Background(), "missing", successResult())
		require.Error(t, err)
	})
}

func TestLedger_Audit(t *testing.T) {
	t.Parallel()

	t.Run("records article fingerprints and merges", func(t *testing.T) {
		t.Parallel()

		ctx := context.Background()
		l := sqlite.NewLedger(openDB(t), true)
		s := beginRun(t, l, "run-1", "r1", runStart)
		require.NoError(t, l.RecordIssue(ctx, s.RunID, successResult()))

		articles, err := l.FindArticles(ctx, "run-1", "CHP_19031228")
		require.NoError(t, err)
		require.Len(t, articles, 1)
		assert.Equal(t, "ARTICLE1", articles[0].ID)
		assert.Equal(t, 3, articles[0].WordCount)
		assert.Len(t, articles[0].TextHash, 16)

		merges, err := l.FindMerges(ctx, "run-1", "CHP_19031228", "ARTICLE1")
		require.NoError(t, err)
		assert.Equal(t, []metsalto.HyphenMerge{
			{Region: "P1_TB00001", Head: "gov-", Tail: "ernment", Merged: "government"},
		}, merges)
	})

	t.Run("equal text has equal fingerprints across runs", func(t *testing.T) {
		t.Parallel()

		ctx := context.Background()
		l := sqlite.NewLedger(openDB(t), true)
		for _, id := range []string{"run-1", "run-2"} {
			s := beginRun(t, l, id, "r1", runStart)
			require.NoError(t, l.RecordIssue(ctx, s.RunID, successResult()))
		}

		first, err := l.FindArticles(ctx, "run-1", "CHP_19031228")
		require.NoError(t, err)
		second, err := l.FindArticles(ctx, "run-2", "CHP_19031228")
		require.NoError(t, err)
		assert.Equal(t, first, second)
	})

	t.Run("without audit only outcomes are kept", func(t *testing.T) {
		t.Parallel()

		ctx := context.Background()
		l := sqlite.NewLedger(openDB(t), false)
		s := beginRun(t, l, "run-1", "r1", runStart)
		require.NoError(t, l.RecordIssue(ctx, s.RunID, successResult()))

		articles, err := l.FindArticles(ctx, "run-1", "CHP_19031228")
		require.NoError(t, err)
		assert.Empty(t, articles)

		merges, err := l.FindMerges(ctx, "run-1", "CHP_19031228", "ARTICLE1")
		require.NoError(t, err)
		assert.Empty(t, merges)
	})
}

func TestLedger_FindRuns(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	l := sqlite.NewLedger(openDB(t), false)
	beginRun(t, l, "run-1", "r1", runStart)
	beginRun(t, l, "run-2", "r2", runStart.Add(time.Hour))
	beginRun(t, l, "run-3", "r1", runStart.Add(2*time.Hour))

	ids := func(runs []*metsalto.RunSummary) []string {
		var out []string
		for _, r := range runs {
			out = append(out, r.RunID)
		}
		return out
	}

	t.Run("most recent first", func(t *testing.T) {
		t.Parallel()

		runs, err := l.FindRuns(ctx, sqlite.RunFilter{})
		require.NoError(t, err)
		assert.Equal(t, []string{"run-3", "run-2", "run-1"}, ids(runs))
		assert.True(t, runs[0].EndedAt.IsZero(), "unfinished run")
	})

	t.Run("filters by revision", func(t *testing.T) {
		t.Parallel()

		rev := "r1"
		runs, err := l.FindRuns(ctx, sqlite.RunFilter{Revision: &rev})
		require.NoError(t, err)
		assert.Equal(t, []string{"run-3", "run-1"}, ids(runs))
	})

	t.Run("respects limit and offset", func(t *testing.T) {
		t.Parallel()

		runs, err := l.FindRuns(ctx, sqlite.RunFilter{Limit: 1, Offset: 1})
		require.NoError(t, err)
		assert.Equal(t, []string{"run-2"}, ids(runs))
	})
}
