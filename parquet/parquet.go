// Package parquet writes article batches as zstd-compressed Parquet files,
// one file per issue.
package parquet

import (
	"context"
	"os"
	"path/filepath"

	"github.com/fwojciec/metsalto"
	"github.com/parquet-go/parquet-go"
)

// Ensure BatchWriter implements metsalto.BatchWriter.
var _ metsalto.BatchWriter = (*BatchWriter)(nil)

// Ext is the batch file extension.
const Ext = ".parquet"

// Row is the on-disk record of one article.
type Row struct {
	IssueCode   string   `parquet:"issue_code"`
	ArticleID   string   `parquet:"article_id"`
	Title       string   `parquet:"title"`
	HeadingText string   `parquet:"heading_text"`
	Text        string   `parquet:"text"`
	PageNumbers []int64  `parquet:"page_numbers,list"`
	RegionIDs   []string `parquet:"region_ids,list"`
	WordCount   int64    `parquet:"word_count"`
	FirstPage   int64    `parquet:"first_page"`
	LastPage    int64    `parquet:"last_page"`
	X           int64    `parquet:"x"`
	Y           int64    `parquet:"y"`
	Width       int64    `parquet:"width"`
	Height      int64    `parquet:"height"`
	Confidence  float64  `parquet:"confidence"`
	NonText     []string `parquet:"non_text_elements,list"`
}

// NewRow converts an article to its on-disk record. The article ID is
// qualified with the issue code so rows stay unique across batches.
func NewRow(a *metsalto.Article) Row {
	pages := make([]int64, len(a.Pages))
	for i, p := range a.Pages {
		pages[i] = int64(p)
	}
	return Row{
		IssueCode:   a.IssueCode,
		ArticleID:   a.IssueCode + "_" + a.ID,
		Title:       a.Title,
		HeadingText: a.HeadingText,
		Text:        a.Text,
		PageNumbers: pages,
		RegionIDs:   nonNil(a.RegionIDs),
		WordCount:   int64(a.WordCount),
		FirstPage:   int64(a.FirstPage),
		LastPage:    int64(a.LastPage),
		X:           int64(a.Box.X),
		Y:           int64(a.Box.Y),
		Width:       int64(a.Box.Width),
		Height:      int64(a.Box.Height),
		Confidence:  a.Confidence,
		NonText:     nonNil(a.NonText),
	}
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

// BatchWriter writes one Parquet file per issue into Dir.
type BatchWriter struct {
	// Dir is the batch directory. It is created on first write.
	Dir string
}

// NewBatchWriter creates a BatchWriter writing into dir.
func NewBatchWriter(dir string) *BatchWriter {
	return &BatchWriter{Dir: dir}
}

// Path returns the batch file path for the issue.
func (w *BatchWriter) Path(issue *metsalto.Issue) string {
	return filepath.Join(w.Dir, issue.OutputName()+Ext)
}

// WriteBatch writes the articles to a temporary file next to the target and
// renames it into place, so a batch is either complete or absent. An
// existing batch for the same issue and revision is replaced.
func (w *BatchWriter) WriteBatch(ctx context.Context, issue *metsalto.Issue, articles []*metsalto.Article) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", metsalto.WrapError(metsalto.EPERSIST, err, "writing batch for %s", issue.Code)
	}
	if err := os.MkdirAll(w.Dir, 0o755); err != nil {
		return "", metsalto.WrapError(metsalto.EPERSIST, err, "creating batch directory")
	}

	target := w.Path(issue)
	tmp, err := os.CreateTemp(w.Dir, "."+issue.OutputName()+".*.tmp")
	if err != nil {
		return "", metsalto.WrapError(metsalto.EPERSIST, err, "creating temp file for %s", issue.Code)
	}
	tmpName := tmp.Name()
	committed := false
	defer func() {
		if !committed {
			_ = tmp.Close()
			_ = os.Remove(tmpName)
		}
	}()

	rows := make([]Row, len(articles))
	for i, a := range articles {
		rows[i] = NewRow(a)
	}

	pw := parquet.NewGenericWriter[Row](tmp, parquet.Compression(&parquet.Zstd))
	if _, err := pw.Write(rows); err != nil {
		return "", metsalto.WrapError(metsalto.EPERSIST, err, "encoding batch for %s", issue.Code)
	}
	if err := pw.Close(); err != nil {
		return "", metsalto.WrapError(metsalto.EPERSIST, err, "finishing batch for %s", issue.Code)
	}
	if err := tmp.Sync(); err != nil {
		return "", metsalto.WrapError(metsalto.EPERSIST, err, "syncing batch for %s", issue.Code)
	}
	if err := tmp.Close(); err != nil {
		return "", metsalto.WrapError(metsalto.EPERSIST, err, "closing batch for %s", issue.Code)
	}
	if err := os.Rename(tmpName, target); err != nil {
		_ = os.Remove(tmpName)
		committed = true
		return "", metsalto.WrapError(metsalto.EPERSIST, err, "committing batch for %s", issue.Code)
	}
	committed = true
	return target, nil
}

// ReadBatch reads a batch file back.
func ReadBatch(path string) ([]Row, error) {
	rows, err := parquet.ReadFile[Row](path)
	if err != nil {
		return nil, metsalto.WrapError(metsalto.EPERSIST, err, "reading batch %s", filepath.Base(path))
	}
	return rows, nil
}
