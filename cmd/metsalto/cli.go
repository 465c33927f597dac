package main

import (
	"context"
	"io"
	"log/slog"

	"github.com/fwojciec/metsalto/sqlite"
)

// Dependencies holds all services and configuration for command execution.
type Dependencies struct {
	Ctx    context.Context
	Stdout io.Writer
	Stderr io.Writer
	Logger *slog.Logger

	// Ledger is nil when the run is not recorded.
	Ledger *sqlite.Ledger
}

// CLI defines the command-line interface structure for Kong.
type CLI struct {
	LogLevel  string `name:"log-level" default:"info" enum:"debug,info,warn,error" env:"METSALTO_LOG_LEVEL" help:"Log level (debug, info, warn, error)"`
	LogFormat string `name:"log-format" default:"text" enum:"text,json" help:"Log format (text, json)"`
	Ledger    string `name:"ledger" env:"METSALTO_LEDGER" help:"Run ledger database path (default: XDG data dir)"`

	Run  RunCmd  `cmd:"" help:"Extract articles from issue archives"`
	Runs RunsCmd `cmd:"" help:"List recorded runs"`
}

// RunCmd is the "run" subcommand.
type RunCmd struct {
	Input    []string `short:"i" name:"input" required:"" help:"Directory holding issue archives (repeatable)"`
	Output   string   `short:"o" name:"output" required:"" env:"METSALTO_OUTPUT" help:"Output root directory"`
	Revision string   `short:"r" name:"revision" help:"Revision tag for output names (default: today, YYYYMMDD)"`
	Workers  int      `short:"w" name:"workers" default:"0" env:"METSALTO_WORKERS" help:"Concurrent issues (0 = one per CPU)"`

	Issues            []string `name:"issue" help:"Issue code to process, e.g. CHP_19031228 (repeatable)"`
	IssueFile         string   `name:"issue-file" type:"existingfile" help:"File with one issue code per line"`
	NewspaperYearFile string   `name:"newspaper-year-file" type:"existingfile" help:"File with one NEWSPAPER_YEAR per line"`
	Newspapers        []string `name:"newspaper" help:"Only process these newspaper codes (repeatable)"`

	Policy   string `name:"policy" type:"existingfile" help:"YAML extraction policy file"`
	Audit    bool   `name:"audit" help:"Record hyphen merges and article fingerprints in the ledger"`
	NoLedger bool   `name:"no-ledger" help:"Do not record the run in the ledger"`
}

// RunsCmd is the "runs" subcommand.
type RunsCmd struct {
	Revision string `name:"revision" help:"Only runs with this revision tag"`
	Limit    int    `short:"n" name:"limit" default:"20" help:"Maximum runs to list"`
	Issues   bool   `name:"issues" help:"Show per-issue outcomes of the latest listed run"`
}
