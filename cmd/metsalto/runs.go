package main

import (
	"fmt"

	"github.com/fwojciec/metsalto/sqlite"
)

// Run executes the runs command.
func (c *RunsCmd) Run(deps *Dependencies) error {
	filter := sqlite.RunFilter{Limit: c.Limit}
	if c.Revision != "" {
		filter.Revision = &c.Revision
	}

	runs, err := deps.Ledger.FindRuns(deps.Ctx, filter)
	if err != nil {
		return err
	}

	if len(runs) == 0 {
		fmt.Fprintln(deps.Stdout, "No runs recorded. Use 'metsalto run' to process issues.")
		return nil
	}

	for _, r := range runs {
		t := r.Totals
		state := "finished"
		switch {
		case r.EndedAt.IsZero():
			state = "incomplete"
		case r.Aborted:
			state = "aborted"
		}
		fmt.Fprintf(deps.Stdout, "%s  %s  %s  %s  issues=%d ok=%d partial=%d failed=%d articles=%d\n",
			r.RunID, r.StartedAt.Format("2006-01-02 15:04:05"), r.Revision, state,
			t.IssuesAttempted, t.Succeeded, t.Partial, t.Failed, t.Articles)
	}

	if c.Issues {
		run, err := deps.Ledger.FindRun(deps.Ctx, runs[0].RunID)
		if err != nil {
			return err
		}
		for _, o := range run.Outcomes {
			fmt.Fprintf(deps.Stdout, "  %s  %s  articles=%d pages=%d/%d\n",
				o.Issue, o.Status, o.Articles, o.PagesParsed, o.PagesExpected)
			for _, d := range o.Diagnostics {
				fmt.Fprintf(deps.Stdout, "    %s\n", d)
			}
		}
	}
	return nil
}
