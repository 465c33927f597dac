// Package extract runs the extraction pipeline for a single issue: load the
// archive, parse the structure map and every page, and assemble articles.
package extract

import (
	"context"
	"fmt"
	"runtime/debug"
	"strconv"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/fwojciec/metsalto"
)

// Ensure Processor implements metsalto.IssueProcessor.
var _ metsalto.IssueProcessor = (*Processor)(nil)

// Processor turns one issue archive into an article batch and an outcome.
// It is safe for concurrent use when its collaborators are.
type Processor struct {
	loader    metsalto.ArchiveLoader
	structure metsalto.StructureParser
	layout    metsalto.LayoutParser
	assembler *metsalto.Assembler
}

// NewProcessor creates a Processor from its collaborators.
func NewProcessor(
	loader metsalto.ArchiveLoader,
	structure metsalto.StructureParser,
	layout metsalto.LayoutParser,
	assembler *metsalto.Assembler,
) *Processor {
	return &Processor{
		loader:    loader,
		structure: structure,
		layout:    layout,
		assembler: assembler,
	}
}

// Process runs Loading → Parsing → Assembling → Completed for the issue.
// Every failure, including a panic inside a parser, ends up in the outcome.
func (p *Processor) Process(ctx context.Context, issue *metsalto.Issue) (result *metsalto.IssueResult) {
	outcome := &metsalto.ProcessingOutcome{Issue: issue.Code, Stage: metsalto.StageLoading}
	result = &metsalto.IssueResult{Issue: issue, Outcome: outcome}

	defer func(begin time.Time) {
		if r := recover(); r != nil {
			result.Articles = nil
			outcome.Articles = 0
			outcome.Digest = ""
			outcome.Fail(outcome.Stage, issue.Code,
				metsalto.Errorf(metsalto.EINTERNAL, "panic: %v\n%s", r, debug.Stack()))
		}
		outcome.ElapsedSeconds = time.Since(begin).Seconds()
	}(time.Now())

	archive, err := p.loader.Load(ctx, issue)
	if err != nil {
		if interrupted(ctx, outcome) {
			return result
		}
		if archive == nil || archive.Descriptor == nil {
			outcome.Fail(metsalto.StageLoading, issue.Code, err)
			return result
		}
		// Damaged archive with a descriptor: continue with what was read.
		outcome.AddDiagnostic(metsalto.NewDiagnostic(metsalto.StageLoading, issue.Code, err))
	}

	outcome.Stage = metsalto.StageParsing
	sm, err := p.structure.ParseStructure(archive.Descriptor)
	if err != nil {
		outcome.Fail(metsalto.StageParsing, archive.DescriptorName, err)
		return result
	}
	outcome.ArticlesDeclared = len(sm.Articles)
	checkMetadata(issue, sm, outcome)

	pages := make(metsalto.PageSet)
	seqs := expectedPages(sm, archive)
	outcome.PagesExpected = len(seqs)
	for _, seq := range seqs {
		if interrupted(ctx, outcome) {
			return result
		}
		ref := "page " + strconv.Itoa(seq)
		doc, ok := archive.Page(seq)
		if !ok {
			outcome.AddDiagnostic(metsalto.NewDiagnostic(metsalto.StageParsing, ref,
				metsalto.Errorf(metsalto.EARCHIVE, "page %d declared but missing from archive", seq)))
			continue
		}
		layout, err := p.layout.ParseLayout(seq, doc.Data)
		if err != nil {
			outcome.AddDiagnostic(metsalto.NewDiagnostic(metsalto.StageParsing, ref, err))
			continue
		}
		pages[seq] = layout
		outcome.PagesParsed++
	}
	if outcome.PagesParsed == 0 {
		outcome.Fail(metsalto.StageParsing, issue.Code,
			metsalto.Errorf(metsalto.EALTO, "none of %d pages could be parsed", outcome.PagesExpected))
		return result
	}

	outcome.Stage = metsalto.StageAssembling
	articles, diags := p.assembler.AssembleIssue(issue.Code, sm, pages)
	for _, d := range diags {
		outcome.AddDiagnostic(d)
	}
	result.Articles = articles
	outcome.Articles = len(articles)
	if len(articles) > 0 {
		outcome.Digest = Digest(articles)
	}
	outcome.Classify()
	return result
}

// interrupted records an interruption and reports whether ctx is done.
func interrupted(ctx context.Context, outcome *metsalto.ProcessingOutcome) bool {
	if ctx.Err() == nil {
		return false
	}
	outcome.Fail(outcome.Stage, outcome.Issue,
		metsalto.WrapError(metsalto.EINTERRUPTED, ctx.Err(), "processing interrupted"))
	return true
}

// expectedPages returns the pages declared by the structure map, or every
// page in the archive when the map declares none.
func expectedPages(sm *metsalto.StructMap, archive *metsalto.Archive) []int {
	if seqs := sm.PageSequences(); len(seqs) > 0 {
		return seqs
	}
	seqs := make([]int, 0, len(archive.Pages))
	for _, pg := range archive.Pages {
		seqs = append(seqs, pg.Sequence)
	}
	return seqs
}

// checkMetadata warns when the descriptor disagrees with the issue code.
func checkMetadata(issue *metsalto.Issue, sm *metsalto.StructMap, outcome *metsalto.ProcessingOutcome) {
	if sm.Date.IsZero() || issue.Date.IsZero() {
		return
	}
	if sm.Date.Format(metsalto.IssueDateLayout) != issue.Date.Format(metsalto.IssueDateLayout) {
		outcome.AddDiagnostic(metsalto.Diagnostic{
			Stage:    metsalto.StageParsing,
			Code:     metsalto.EMETS,
			Severity: metsalto.SeverityWarning,
			Ref:      issue.Code,
			Message: fmt.Sprintf("descriptor date %s does not match issue date %s",
				sm.Date.Format(metsalto.IssueDateLayout), issue.Date.Format(metsalto.IssueDateLayout)),
		})
	}
}

// Digest fingerprints an article batch. Equal batches have equal digests
// regardless of how they were scheduled.
func Digest(articles []*metsalto.Article) string {
	h := xxhash.New()
	field := func(s string) {
		_, _ = h.WriteString(s)
		_, _ = h.Write([]byte{0})
	}
	for _, a := range articles {
		field(a.IssueCode)
		field(a.ID)
		field(a.Title)
		field(a.HeadingText)
		field(a.Text)
		field(fmt.Sprint(a.Pages, a.RegionIDs, a.WordCount, a.Box, a.NonText))
	}
	return fmt.Sprintf("%016x", h.Sum64())
}
