package sqlite

import (
	"context"
	"database/sql"
	"encoding/binary"
	"encoding/hex"
	"strings"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/fwojciec/metsalto"
)

// Compile-time interface verification.
var _ metsalto.Ledger = (*Ledger)(nil)

// Ledger implements metsalto.Ledger using SQLite.
type Ledger struct {
	db *DB

	// Audit additionally records article text fingerprints and every hyphen
	// merge with its source fragments.
	Audit bool
}

// NewLedger creates a new Ledger.
func NewLedger(db *DB, audit bool) *Ledger {
	return &Ledger{db: db, Audit: audit}
}

// hashText computes the xxHash of text as a hex string.
func hashText(text string) string {
	return hex.EncodeToString(binary.BigEndian.AppendUint64(nil, xxhash.Sum64String(text)))
}

// BeginRun records the start of a run.
func (l *Ledger) BeginRun(ctx context.Context, s *metsalto.RunSummary) error {
	_, err := l.db.ExecContext(ctx, `
		INSERT INTO runs (id, revision, started_at, workers, issues_requested)
		VALUES (?, ?, ?, ?, ?)
	`, s.RunID, s.Revision, s.StartedAt.UTC().Format(time.RFC3339Nano), s.Workers, s.Totals.IssuesRequested)
	return err
}

// RecordIssue records one issue's outcome and diagnostics in a single
// transaction, replacing an earlier record of the same issue in the run.
func (l *Ledger) RecordIssue(ctx context.Context, runID string, result *metsalto.IssueResult) error {
	o := result.Outcome

	tx, err := l.db.BeginTx(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, "DELETE FROM outcomes WHERE run_id = ? AND issue = ?", runID, o.Issue); err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO outcomes (run_id, issue, status, stage, pages_parsed, pages_expected,
			articles_declared, articles, digest, output, elapsed_seconds)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, runID, o.Issue, string(o.Status), string(o.Stage), o.PagesParsed, o.PagesExpected,
		o.ArticlesDeclared, o.Articles, o.Digest, o.Output, o.ElapsedSeconds); err != nil {
		return err
	}

	for i, d := range o.Diagnostics {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO diagnostics (run_id, issue, position, stage, code, severity, ref, message)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		`, runID, o.Issue, i, string(d.Stage), d.Code, d.Severity, d.Ref, d.Message); err != nil {
			return err
		}
	}

	if l.Audit {
		if err := recordArticles(ctx, tx, runID, o.Issue, result.Articles); err != nil {
			return err
		}
	}

	return tx.Commit()
}

func recordArticles(ctx context.Context, tx *sql.Tx, runID, issue string, articles []*metsalto.Article) error {
	for i, a := range articles {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO articles (run_id, issue, article_id, position, text_hash, word_count)
			VALUES (?, ?, ?, ?, ?, ?)
		`, runID, issue, a.ID, i, hashText(a.Text), a.WordCount); err != nil {
			return err
		}
		for j, m := range a.Merges {
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO hyphen_merges (run_id, issue, article_id, position, region, head, tail, merged)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?)
			`, runID, issue, a.ID, j, m.Region, m.Head, m.Tail, m.Merged); err != nil {
				return err
			}
		}
	}
	return nil
}

// EndRun records the final totals of a run.
func (l *Ledger) EndRun(ctx context.Context, s *metsalto.RunSummary) error {
	t := s.Totals
	result, err := l.db.ExecContext(ctx, `
		UPDATE runs
		SET ended_at = ?, aborted = ?, issues_attempted = ?, succeeded = ?, partial = ?,
			failed = ?, articles = ?, pages = ?
		WHERE id = ?
	`, s.EndedAt.UTC().Format(time.RFC3339Nano), boolToInt(s.Aborted), t.IssuesAttempted, t.Succeeded, t.Partial,
		t.Failed, t.Articles, t.PagesParsed, s.RunID)
	if err != nil {
		return err
	}
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return metsalto.Errorf(metsalto.ENOTFOUND, "run %s not found", s.RunID)
	}
	return nil
}

// RunFilter selects runs, most recent first.
type RunFilter struct {
	Revision *string
	Limit    int
	Offset   int
}

const runColumns = `id, revision, started_at, ended_at, workers, aborted, issues_requested,
	issues_attempted, succeeded, partial, failed, articles, pages`

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner) (*metsalto.RunSummary, error) {
	var s metsalto.RunSummary
	var startedAt, endedAt string
	t := &s.Totals
	if err := row.Scan(&s.RunID, &s.Revision, &startedAt, &endedAt, &s.Workers, &s.Aborted,
		&t.IssuesRequested, &t.IssuesAttempted, &t.Succeeded, &t.Partial, &t.Failed,
		&t.Articles, &t.PagesParsed); err != nil {
		return nil, err
	}
	var err error
	if s.StartedAt, err = parseRFC3339(startedAt, "started_at"); err != nil {
		return nil, err
	}
	if endedAt != "" {
		if s.EndedAt, err = parseRFC3339(endedAt, "ended_at"); err != nil {
			return nil, err
		}
	}
	s.Outcomes = []*metsalto.ProcessingOutcome{}
	return &s, nil
}

// FindRun retrieves a run and its outcomes.
func (l *Ledger) FindRun(ctx context.Context, runID string) (*metsalto.RunSummary, error) {
	s, err := scanRun(l.db.QueryRowContext(ctx, "SELECT "+runColumns+" FROM runs WHERE id = ?", runID))
	if err == sql.ErrNoRows {
		return nil, metsalto.Errorf(metsalto.ENOTFOUND, "run %s not found", runID)
	}
	if err != nil {
		return nil, err
	}
	if s.Outcomes, err = l.FindOutcomes(ctx, runID); err != nil {
		return nil, err
	}
	return s, nil
}

// FindRuns retrieves runs matching the filter without their outcomes.
func (l *Ledger) FindRuns(ctx context.Context, filter RunFilter) ([]*metsalto.RunSummary, error) {
	var query strings.Builder
	var args []any

	query.WriteString("SELECT " + runColumns + " FROM runs WHERE 1=1")
	if filter.Revision != nil {
		query.WriteString(" AND revision = ?")
		args = append(args, *filter.Revision)
	}
	query.WriteString(" ORDER BY started_at DESC, id")
	appendPagination(&query, &args, filter.Limit, filter.Offset)

	rows, err := l.db.QueryContext(ctx, query.String(), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []*metsalto.RunSummary
	for rows.Next() {
		s, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, s)
	}
	return runs, rows.Err()
}

// FindOutcomes retrieves the outcomes of a run ordered by issue code.
func (l *Ledger) FindOutcomes(ctx context.Context, runID string) ([]*metsalto.ProcessingOutcome, error) {
	rows, err := l.db.QueryContext(ctx, `
		SELECT issue, status, stage, pages_parsed, pages_expected, articles_declared, articles,
			digest, output, elapsed_seconds
		FROM outcomes
		WHERE run_id = ?
		ORDER BY issue
	`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	outcomes := []*metsalto.ProcessingOutcome{}
	byIssue := make(map[string]*metsalto.ProcessingOutcome)
	for rows.Next() {
		var o metsalto.ProcessingOutcome
		var status, stage string
		if err := rows.Scan(&o.Issue, &status, &stage, &o.PagesParsed, &o.PagesExpected,
			&o.ArticlesDeclared, &o.Articles, &o.Digest, &o.Output, &o.ElapsedSeconds); err != nil {
			return nil, err
		}
		o.Status = metsalto.Status(status)
		o.Stage = metsalto.Stage(stage)
		outcomes = append(outcomes, &o)
		byIssue[o.Issue] = &o
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	drows, err := l.db.QueryContext(ctx, `
		SELECT issue, stage, code, severity, ref, message
		FROM diagnostics
		WHERE run_id = ?
		ORDER BY issue, position
	`, runID)
	if err != nil {
		return nil, err
	}
	defer drows.Close()

	for drows.Next() {
		var issue, stage string
		var d metsalto.Diagnostic
		if err := drows.Scan(&issue, &stage, &d.Code, &d.Severity, &d.Ref, &d.Message); err != nil {
			return nil, err
		}
		d.Stage = metsalto.Stage(stage)
		if o, ok := byIssue[issue]; ok {
			o.AddDiagnostic(d)
		}
	}
	return outcomes, drows.Err()
}

// ArticleRecord is the audit fingerprint of one article.
type ArticleRecord struct {
	ID        string
	TextHash  string
	WordCount int
}

// FindArticles retrieves the audited articles of an issue in reading order.
func (l *Ledger) FindArticles(ctx context.Context, runID, issue string) ([]ArticleRecord, error) {
	rows, err := l.db.QueryContext(ctx, `
		SELECT article_id, text_hash, word_count
		FROM articles
		WHERE run_id = ? AND issue = ?
		ORDER BY position
	`, runID, issue)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []ArticleRecord
	for rows.Next() {
		var r ArticleRecord
		if err := rows.Scan(&r.ID, &r.TextHash, &r.WordCount); err != nil {
			return nil, err
		}
		records = append(records, r)
	}
	return records, rows.Err()
}

// FindMerges retrieves the audited hyphen merges of an article.
func (l *Ledger) FindMerges(ctx context.Context, runID, issue, articleID string) ([]metsalto.HyphenMerge, error) {
	rows, err := l.db.QueryContext(ctx, `
		SELECT region, head, tail, merged
		FROM hyphen_merges
		WHERE run_id = ? AND issue = ? AND article_id = ?
		ORDER BY position
	`, runID, issue, articleID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var merges []metsalto.HyphenMerge
	for rows.Next() {
		var m metsalto.HyphenMerge
		if err := rows.Scan(&m.Region, &m.Head, &m.Tail, &m.Merged); err != nil {
			return nil, err
		}
		merges = append(merges, m)
	}
	return merges, rows.Err()
}
