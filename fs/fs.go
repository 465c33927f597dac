// Package fs manages the output directory tree: batch and summary
// directories, writability checks and atomic file replacement.
package fs

import (
	"os"
	"path/filepath"

	"github.com/fwojciec/metsalto"
)

// Output subdirectories.
const (
	BatchDirName   = "pp_issue_mets_alto_dfs"
	SummaryDirName = "pp_issue_processing_summaries"
)

// Layout is the output directory tree of a run.
type Layout struct {
	Root string
}

// NewLayout creates a Layout rooted at root.
func NewLayout(root string) *Layout {
	return &Layout{Root: root}
}

// BatchDir is where per-issue batches go.
func (l *Layout) BatchDir() string {
	return filepath.Join(l.Root, BatchDirName)
}

// SummaryDir is where run summaries go.
func (l *Layout) SummaryDir() string {
	return filepath.Join(l.Root, SummaryDirName)
}

// Prepare creates the output directories and checks that both accept new
// files. Any failure is an EENV error: the run cannot start.
func (l *Layout) Prepare() error {
	if l.Root == "" {
		return metsalto.Errorf(metsalto.EENV, "output root required")
	}
	for _, dir := range []string{l.BatchDir(), l.SummaryDir()} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return metsalto.WrapError(metsalto.EENV, err, "creating %s", dir)
		}
		if err := checkWritable(dir); err != nil {
			return metsalto.WrapError(metsalto.EENV, err, "output directory %s is not writable", dir)
		}
	}
	return nil
}

func checkWritable(dir string) error {
	f, err := os.CreateTemp(dir, ".wcheck-*")
	if err != nil {
		return err
	}
	name := f.Name()
	_ = f.Close()
	return os.Remove(name)
}

// WriteFileAtomic writes data to dir/name through a temporary file in the
// same directory, so readers see either the old file or the new one.
func WriteFileAtomic(dir, name string, data []byte) (string, error) {
	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return "", err
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return "", err
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return "", err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return "", err
	}
	dest := filepath.Join(dir, name)
	if err := os.Rename(tmpName, dest); err != nil {
		_ = os.Remove(tmpName)
		return "", err
	}
	return dest, nil
}
