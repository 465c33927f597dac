package metsalto_test

import (
	"strings"
	"testing"

	"github.com/fwojciec/metsalto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// textRegion builds a region from lines of space-separated words. Words are
// laid out left to right, 10px per word and 20px per line.
func textRegion(id string, lines ...string) *metsalto.Region {
	policy := metsalto.DefaultHyphenPolicy()
	r := &metsalto.Region{ID: id, Kind: metsalto.RegionText}
	for li, text := range lines {
		line := metsalto.Line{ID: id + "_L" + string(rune('0'+li))}
		for wi, tok := range strings.Fields(text) {
			line.Words = append(line.Words, metsalto.Word{
				Text:       tok,
				Box:        metsalto.BoundingBox{X: 10 + wi*10, Y: 20 + li*20, Width: 10, Height: 20},
				Confidence: 0.5,
			})
		}
		if n := len(line.Words); n > 0 {
			line.Words[n-1].Continuation = policy.IsContinuation(line.Words[n-1].Text)
		}
		r.Lines = append(r.Lines, line)
	}
	return r
}

func page(seq int, regions ...*metsalto.Region) *metsalto.PageLayout {
	p := metsalto.NewPageLayout(seq)
	for _, r := range regions {
		p.AddRegion(r)
	}
	return p
}

func strPtr(s string) *string { return &s }

func TestAssembler_Assemble(t *testing.T) {
	t.Parallel()

	t.Run("merges hyphenated word across lines", func(t *testing.T) {
		t.Parallel()

		pages := metsalto.PageSet{1: page(1, textRegion("TB1", "the gov-", "ernment said"))}
		s := &metsalto.ArticleStructure{ID: "A1", Body: []metsalto.RegionRef{{Page: 1, ID: "TB1"}}}

		art, diags := metsalto.NewAssembler(metsalto.DefaultHyphenPolicy()).Assemble("CHP_19031228", s, pages)

		require.NotNil(t, art)
		assert.Empty(t, diags)
		assert.Equal(t, "the government said", art.Text)
		assert.Equal(t, 3, art.WordCount)
		require.Len(t, art.Merges, 1)
		assert.Equal(t, metsalto.HyphenMerge{Region: "TB1", Head: "gov-", Tail: "ernment", Merged: "government"}, art.Merges[0])
	})

	t.Run("plain line break joins with one space", func(t *testing.T) {
		t.Parallel()

		pages := metsalto.PageSet{1: page(1, textRegion("TB1", "cat", "dog"))}
		s := &metsalto.ArticleStructure{ID: "A1", Body: []metsalto.RegionRef{{Page: 1, ID: "TB1"}}}

		art, _ := metsalto.NewAssembler(metsalto.DefaultHyphenPolicy()).Assemble("X_19000101", s, pages)

		require.NotNil(t, art)
		assert.Equal(t, "cat dog", art.Text)
	})

	t.Run("collapses whitespace inside tokens", func(t *testing.T) {
		t.Parallel()

		r := &metsalto.Region{ID: "TB1", Lines: []metsalto.Line{{Words: []metsalto.Word{
			{Text: "  New\t"}, {Text: ""}, {Text: "Zealand  Herald"},
		}}}}
		pages := metsalto.PageSet{1: page(1, r)}
		s := &metsalto.ArticleStructure{ID: "A1", Body: []metsalto.RegionRef{{Page: 1, ID: "TB1"}}}

		art, _ := metsalto.NewAssembler(metsalto.DefaultHyphenPolicy()).Assemble("X_19000101", s, pages)

		require.NotNil(t, art)
		assert.Equal(t, "New Zealand Herald", art.Text)
	})

	t.Run("separates regions with one paragraph separator", func(t *testing.T) {
		t.Parallel()

		pages := metsalto.PageSet{
			1: page(1, textRegion("TB1", "first part")),
			2: page(2, textRegion("TB2", "second part")),
		}
		s := &metsalto.ArticleStructure{ID: "A1", Body: []metsalto.RegionRef{
			{Page: 2, ID: "TB2"},
			{Page: 1, ID: "TB1"},
		}}

		art, _ := metsalto.NewAssembler(metsalto.DefaultHyphenPolicy()).Assemble("X_19000101", s, pages)

		require.NotNil(t, art)
		assert.Equal(t, "second part\nfirst part", art.Text)
		assert.Equal(t, []int{2, 1}, art.Pages)
		assert.Equal(t, []string{"TB2", "TB1"}, art.RegionIDs)
		assert.Equal(t, 1, art.FirstPage)
		assert.Equal(t, 2, art.LastPage)
	})

	t.Run("does not merge a fragment across regions", func(t *testing.T) {
		t.Parallel()

		pages := metsalto.PageSet{1: page(1, textRegion("TB1", "the gov-"), textRegion("TB2", "ernment"))}
		s := &metsalto.ArticleStructure{ID: "A1", Body: []metsalto.RegionRef{
			{Page: 1, ID: "TB1"},
			{Page: 1, ID: "TB2"},
		}}

		art, _ := metsalto.NewAssembler(metsalto.DefaultHyphenPolicy()).Assemble("X_19000101", s, pages)

		require.NotNil(t, art)
		assert.Equal(t, "the gov-\nernment", art.Text)
		assert.Empty(t, art.Merges)
	})

	t.Run("title falls back to heading text", func(t *testing.T) {
		t.Parallel()

		pages := metsalto.PageSet{1: page(1, textRegion("H1", "LATEST", "NEWS"), textRegion("TB1", "text"))}
		s := &metsalto.ArticleStructure{
			ID:      "A1",
			Heading: []metsalto.RegionRef{{Page: 1, ID: "H1"}},
			Body:    []metsalto.RegionRef{{Page: 1, ID: "TB1"}},
		}

		art, _ := metsalto.NewAssembler(metsalto.DefaultHyphenPolicy()).Assemble("X_19000101", s, pages)

		require.NotNil(t, art)
		assert.Equal(t, "LATEST NEWS", art.HeadingText)
		assert.Equal(t, "LATEST NEWS", art.Title)
		assert.Equal(t, "text", art.Text)
	})

	t.Run("declared title wins even when empty", func(t *testing.T) {
		t.Parallel()

		pages := metsalto.PageSet{1: page(1, textRegion("H1", "HEADLINE"), textRegion("TB1", "text"))}
		s := &metsalto.ArticleStructure{
			ID:      "A1",
			Title:   strPtr(""),
			Heading: []metsalto.RegionRef{{Page: 1, ID: "H1"}},
			Body:    []metsalto.RegionRef{{Page: 1, ID: "TB1"}},
		}

		art, _ := metsalto.NewAssembler(metsalto.DefaultHyphenPolicy()).Assemble("X_19000101", s, pages)

		require.NotNil(t, art)
		assert.Empty(t, art.Title)
		assert.Equal(t, "HEADLINE", art.HeadingText)
	})

	t.Run("aggregates layout attributes", func(t *testing.T) {
		t.Parallel()

		pages := metsalto.PageSet{1: page(1, textRegion("TB1", "a b", "c"))}
		s := &metsalto.ArticleStructure{ID: "A1", Body: []metsalto.RegionRef{{Page: 1, ID: "TB1"}}}

		art, _ := metsalto.NewAssembler(metsalto.DefaultHyphenPolicy()).Assemble("X_19000101", s, pages)

		require.NotNil(t, art)
		assert.Equal(t, metsalto.BoundingBox{X: 10, Y: 20, Width: 20, Height: 40}, art.Box)
		assert.InDelta(t, 0.5, art.Confidence, 1e-9)
		assert.Equal(t, 3, art.WordCount)
	})

	t.Run("heading-only article keeps its layout attributes", func(t *testing.T) {
		t.Parallel()

		pages := metsalto.PageSet{2: page(2, textRegion("H1", "NOTICE TO", "MARINERS"))}
		s := &metsalto.ArticleStructure{ID: "A1", Heading: []metsalto.RegionRef{{Page: 2, ID: "H1"}}}

		art, diags := metsalto.NewAssembler(metsalto.DefaultHyphenPolicy()).Assemble("X_19000101", s, pages)

		require.NotNil(t, art)
		assert.Empty(t, diags)
		assert.Equal(t, "NOTICE TO MARINERS", art.Title)
		assert.Empty(t, art.Text)
		assert.Equal(t, []int{2}, art.Pages)
		assert.Equal(t, []string{"H1"}, art.RegionIDs)
		assert.Equal(t, 2, art.FirstPage)
		assert.Equal(t, 2, art.LastPage)
		assert.Equal(t, 3, art.WordCount)
		assert.Equal(t, metsalto.BoundingBox{X: 10, Y: 20, Width: 20, Height: 40}, art.Box)
	})

	t.Run("heading on an earlier page than the body", func(t *testing.T) {
		t.Parallel()

		pages := metsalto.PageSet{
			1: page(1, textRegion("H1", "HEADLINE")),
			2: page(2, textRegion("TB1", "body text")),
		}
		s := &metsalto.ArticleStructure{
			ID:      "A1",
			Heading: []metsalto.RegionRef{{Page: 1, ID: "H1"}},
			Body:    []metsalto.RegionRef{{Page: 2, ID: "TB1"}},
		}

		art, _ := metsalto.NewAssembler(metsalto.DefaultHyphenPolicy()).Assemble("X_19000101", s, pages)

		require.NotNil(t, art)
		assert.Equal(t, "body text", art.Text)
		assert.Equal(t, []int{1, 2}, art.Pages)
		assert.Equal(t, []string{"H1", "TB1"}, art.RegionIDs)
		assert.Equal(t, 1, art.FirstPage)
		assert.Equal(t, 2, art.LastPage)
		assert.Equal(t, 3, art.WordCount)
	})

	t.Run("skips missing regions with a diagnostic", func(t *testing.T) {
		t.Parallel()

		pages := metsalto.PageSet{1: page(1, textRegion("TB1", "kept"))}
		s := &metsalto.ArticleStructure{ID: "A1", Body: []metsalto.RegionRef{
			{Page: 1, ID: "TB1"},
			{Page: 2, ID: "TB9"},
		}}

		art, diags := metsalto.NewAssembler(metsalto.DefaultHyphenPolicy()).Assemble("X_19000101", s, pages)

		require.NotNil(t, art)
		assert.Equal(t, "kept", art.Text)
		require.Len(t, diags, 1)
		assert.Equal(t, metsalto.EASSEMBLY, diags[0].Code)
		assert.Equal(t, metsalto.SeverityError, diags[0].Severity)
		assert.Equal(t, "A1@2/TB9", diags[0].Ref)
	})

	t.Run("drops article when nothing resolves", func(t *testing.T) {
		t.Parallel()

		s := &metsalto.ArticleStructure{ID: "A1", Body: []metsalto.RegionRef{{Page: 1, ID: "TB1"}}}

		art, diags := metsalto.NewAssembler(metsalto.DefaultHyphenPolicy()).Assemble("X_19000101", s, metsalto.PageSet{})

		assert.Nil(t, art)
		require.Len(t, diags, 2)
		assert.Equal(t, "A1", diags[1].Ref)
		assert.Equal(t, metsalto.EASSEMBLY, diags[1].Code)
	})

	t.Run("drops article without regions with a warning", func(t *testing.T) {
		t.Parallel()

		s := &metsalto.ArticleStructure{ID: "A1"}

		art, diags := metsalto.NewAssembler(metsalto.DefaultHyphenPolicy()).Assemble("X_19000101", s, metsalto.PageSet{})

		assert.Nil(t, art)
		require.Len(t, diags, 1)
		assert.Equal(t, metsalto.SeverityWarning, diags[0].Severity)
	})
}

func TestAssembler_Assemble_SubsContent(t *testing.T) {
	t.Parallel()

	hyp := func(text, subsType, full string) metsalto.Word {
		return metsalto.Word{Text: text, SubsType: subsType, SubsContent: full, Continuation: subsType == metsalto.SubsHypPart1}
	}
	words := func(ws ...string) []metsalto.Word {
		var out []metsalto.Word
		for _, w := range ws {
			out = append(out, metsalto.Word{Text: w})
		}
		return out
	}
	assemble := func(lines ...[]metsalto.Word) *metsalto.Article {
		r := &metsalto.Region{ID: "TB1", Kind: metsalto.RegionText}
		for _, ws := range lines {
			r.Lines = append(r.Lines, metsalto.Line{Words: ws})
		}
		s := &metsalto.ArticleStructure{ID: "A1", Body: []metsalto.RegionRef{{Page: 1, ID: "TB1"}}}
		art, _ := metsalto.NewAssembler(metsalto.DefaultHyphenPolicy()).Assemble("X_19000101", s, metsalto.PageSet{1: page(1, r)})
		require.NotNil(t, art)
		return art
	}

	t.Run("uses the full word of a marked pair", func(t *testing.T) {
		t.Parallel()

		art := assemble(
			append(words("see", "you"), hyp("to-", metsalto.SubsHypPart1, "to-day")),
			append([]metsalto.Word{hyp("day", metsalto.SubsHypPart2, "to-day")}, append(words("at"), hyp("Wel", metsalto.SubsHypPart1, "Wellington"))...),
			[]metsalto.Word{hyp("liugton", metsalto.SubsHypPart2, "Wellington")},
		)

		assert.Equal(t, "see you to-day at Wellington", art.Text)
		assert.Equal(t, 5, art.WordCount)
		assert.Equal(t, []metsalto.HyphenMerge{
			{Region: "TB1", Head: "to-", Tail: "day", Merged: "to-day"},
			{Region: "TB1", Head: "Wel", Tail: "liugton", Merged: "Wellington"},
		}, art.Merges)
	})

	t.Run("falls back to the policy without a full word", func(t *testing.T) {
		t.Parallel()

		art := assemble(
			[]metsalto.Word{hyp("gov-", metsalto.SubsHypPart1, "")},
			[]metsalto.Word{hyp("ernment", metsalto.SubsHypPart2, "")},
		)

		assert.Equal(t, "government", art.Text)
	})

	t.Run("ignores a full word with a hyphen run", func(t *testing.T) {
		t.Parallel()

		art := assemble(
			[]metsalto.Word{hyp("gov-", metsalto.SubsHypPart1, "gov--ernment")},
			[]metsalto.Word{hyp("ernment", metsalto.SubsHypPart2, "gov--ernment")},
		)

		assert.Equal(t, "government", art.Text)
	})
}

func TestAssembler_AssembleIssue(t *testing.T) {
	t.Parallel()

	pages := metsalto.PageSet{1: page(1, textRegion("TB1", "one"), textRegion("TB2", "two"), textRegion("TB3", "three"))}
	sm := &metsalto.StructMap{Articles: []metsalto.ArticleStructure{
		{ID: "C", Body: []metsalto.RegionRef{{Page: 1, ID: "TB3"}}},
		{ID: "A", Body: []metsalto.RegionRef{{Page: 1, ID: "TB1"}}},
		{ID: "B", Body: []metsalto.RegionRef{{Page: 1, ID: "TB2"}}},
	}}

	articles, diags := metsalto.NewAssembler(metsalto.DefaultHyphenPolicy()).AssembleIssue("X_19000101", sm, pages)

	assert.Empty(t, diags)
	require.Len(t, articles, 3)
	assert.Equal(t, "C", articles[0].ID)
	assert.Equal(t, "A", articles[1].ID)
	assert.Equal(t, "B", articles[2].ID)
	for _, a := range articles {
		assert.Equal(t, "X_19000101", a.IssueCode)
	}
}

func TestCleanText(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "a b\nc", metsalto.CleanText("  a \t b \n\n  c  "))
	assert.Empty(t, metsalto.CleanText(" \n "))
}
