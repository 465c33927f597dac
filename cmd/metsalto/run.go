package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/fwojciec/metsalto"
	"github.com/fwojciec/metsalto/dispatch"
	"github.com/fwojciec/metsalto/etree"
	"github.com/fwojciec/metsalto/extract"
	"github.com/fwojciec/metsalto/fs"
	"github.com/fwojciec/metsalto/parquet"
	mslog "github.com/fwojciec/metsalto/slog"
	"github.com/fwojciec/metsalto/targz"
	"github.com/fwojciec/metsalto/yaml"
)

// Run executes the run command.
func (c *RunCmd) Run(deps *Dependencies) error {
	revision := c.Revision
	if revision == "" {
		revision = time.Now().Format(metsalto.IssueDateLayout)
	}

	policy := yaml.DefaultPolicy(etree.DefaultExcludedTypes)
	if c.Policy != "" {
		p, err := yaml.LoadPolicy(c.Policy, policy)
		if err != nil {
			return err
		}
		policy = p
	}

	layout := fs.NewLayout(c.Output)
	if err := layout.Prepare(); err != nil {
		return err
	}

	issues, err := c.resolve(deps, revision)
	if err != nil {
		return err
	}

	assembler := metsalto.NewAssembler(policy.Hyphen)
	assembler.ParagraphSeparator = policy.ParagraphSeparator
	processor := extract.NewProcessor(
		targz.NewLoader(),
		etree.NewStructureParser(policy.ExcludedTypes...),
		etree.NewLayoutParser(policy.Hyphen),
		assembler,
	)

	d := &dispatch.Dispatcher{
		Processor: mslog.NewLoggingProcessor(processor, deps.Logger),
		Batches:   mslog.NewLoggingBatchWriter(parquet.NewBatchWriter(layout.BatchDir()), deps.Logger),
		Summaries: mslog.NewLoggingSummaryWriter(fs.NewSummaryWriter(layout.SummaryDir()), deps.Logger),
		Workers:   c.Workers,
		Revision:  revision,
	}
	if deps.Ledger != nil {
		d.Ledger = deps.Ledger
	}

	res, err := d.Run(deps.Ctx, issues, progressLogger(deps))
	if res != nil {
		printReport(deps.Stdout, res)
	}
	if err != nil {
		return err
	}
	return nil
}

// resolve turns the selection flags into a de-duplicated issue list.
// Explicit codes take precedence over directory discovery. Problems with
// single archives or codes are logged and skipped.
func (c *RunCmd) resolve(deps *Dependencies, revision string) ([]*metsalto.Issue, error) {
	resolver := targz.NewResolver(c.Input, revision)

	codes := append([]string(nil), c.Issues...)
	if c.IssueFile != "" {
		lines, err := readLines(c.IssueFile)
		if err != nil {
			return nil, err
		}
		codes = append(codes, lines...)
	}

	var issues []*metsalto.Issue
	var problems []error
	if len(codes) > 0 {
		issues, problems = resolver.Issues(codes)
	} else {
		filter := targz.Filter{Newspapers: c.Newspapers}
		if c.NewspaperYearFile != "" {
			years, err := readLines(c.NewspaperYearFile)
			if err != nil {
				return nil, err
			}
			filter.NewspaperYears = years
		}
		var err error
		issues, problems, err = resolver.Discover(deps.Ctx, filter)
		if err != nil {
			return nil, err
		}
	}

	for _, p := range problems {
		deps.Logger.Warn("skipping input", "err", p)
	}
	deps.Logger.Info("issues resolved", "count", len(issues), "skipped", len(problems))
	return issues, nil
}

// readLines returns the non-blank lines of a file, skipping # comments.
func readLines(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, metsalto.WrapError(metsalto.EENV, err, "opening %s", path)
	}
	defer f.Close()

	var lines []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		lines = append(lines, line)
	}
	if err := sc.Err(); err != nil {
		return nil, metsalto.WrapError(metsalto.EENV, err, "reading %s", path)
	}
	return lines, nil
}

// progressLogger logs run progress roughly every tenth of the issues.
func progressLogger(deps *Dependencies) dispatch.ProgressFunc {
	return func(e dispatch.ProgressEvent) {
		switch e.Type {
		case dispatch.ProgressStarted:
			deps.Logger.Info("run started", "issues", e.Total)
		case dispatch.ProgressIssueDone:
			step := max(1, e.Total/10)
			if e.Completed%step == 0 || e.Completed == e.Total {
				deps.Logger.Info("progress", "completed", e.Completed, "total", e.Total)
			}
		case dispatch.ProgressFinished:
			deps.Logger.Info("run finished", "completed", e.Completed, "total", e.Total)
		}
	}
}

// printReport writes the end-of-run report.
func printReport(w io.Writer, res *dispatch.Result) {
	s := res.Summary
	t := s.Totals
	elapsed := s.EndedAt.Sub(s.StartedAt)

	fmt.Fprintf(w, "Run %s (revision %s)\n", s.RunID, s.Revision)
	if s.Aborted {
		fmt.Fprintf(w, "Interrupted after %d of %d issues\n", t.IssuesAttempted, t.IssuesRequested)
	}
	fmt.Fprintf(w, "Issues processed: %d\n", t.IssuesAttempted)
	fmt.Fprintf(w, "  succeeded: %d\n", t.Succeeded)
	fmt.Fprintf(w, "  partial:   %d\n", t.Partial)
	fmt.Fprintf(w, "  failed:    %d\n", t.Failed)
	fmt.Fprintf(w, "Articles extracted: %d\n", t.Articles)
	if t.IssuesAttempted > 0 {
		fmt.Fprintf(w, "Average articles per issue: %.2f\n", float64(t.Articles)/float64(t.IssuesAttempted))
		fmt.Fprintf(w, "Average time per issue: %.2fs\n", elapsed.Seconds()/float64(t.IssuesAttempted))
	}
	fmt.Fprintf(w, "Total time: %s\n", elapsed.Round(time.Millisecond))
	if failed := s.IssuesWithStatus(metsalto.StatusFailed); len(failed) > 0 {
		fmt.Fprintf(w, "Failed issues: %s\n", strings.Join(failed, ", "))
	}
	if res.SummaryPath != "" {
		fmt.Fprintf(w, "Summary: %s\n", res.SummaryPath)
	}
}
