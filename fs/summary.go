package fs

import (
	"context"
	"os"
	"path/filepath"

	"github.com/fwojciec/metsalto"
	"github.com/segmentio/encoding/json"
)

// Ensure SummaryWriter implements metsalto.SummaryWriter at compile time.
var _ metsalto.SummaryWriter = (*SummaryWriter)(nil)

// SummaryTimeLayout formats the run start time in summary file names.
const SummaryTimeLayout = "20060102_150405"

// SummaryWriter writes run summaries as indented JSON files named after
// the run start time.
type SummaryWriter struct {
	dir string
}

// NewSummaryWriter creates a SummaryWriter writing into dir.
func NewSummaryWriter(dir string) *SummaryWriter {
	return &SummaryWriter{dir: dir}
}

// WriteSummary writes s as summary_<YYYYMMDD_HHMMSS>.json. When a summary
// with that name already exists from another run, the run ID is appended.
func (w *SummaryWriter) WriteSummary(ctx context.Context, s *metsalto.RunSummary) (string, error) {
	if err := s.Validate(); err != nil {
		return "", err
	}
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return "", metsalto.WrapError(metsalto.EPERSIST, err, "encoding run summary")
	}
	data = append(data, '\n')

	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return "", metsalto.WrapError(metsalto.EPERSIST, err, "creating summary directory")
	}
	path, err := WriteFileAtomic(w.dir, w.fileName(s), data)
	if err != nil {
		return "", metsalto.WrapError(metsalto.EPERSIST, err, "writing run summary")
	}
	return path, nil
}

func (w *SummaryWriter) fileName(s *metsalto.RunSummary) string {
	stamp := s.StartedAt.Format(SummaryTimeLayout)
	name := "summary_" + stamp + ".json"
	if _, err := os.Stat(filepath.Join(w.dir, name)); err == nil && s.RunID != "" {
		id := s.RunID
		if len(id) > 8 {
			id = id[:8]
		}
		name = "summary_" + stamp + "_" + id + ".json"
	}
	return name
}

// ReadSummary reads a summary file written by SummaryWriter.
func ReadSummary(path string) (*metsalto.RunSummary, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, metsalto.WrapError(metsalto.EPERSIST, err, "reading run summary")
	}
	var s metsalto.RunSummary
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, metsalto.WrapError(metsalto.EPERSIST, err, "decoding run summary %s", filepath.Base(path))
	}
	return &s, nil
}
