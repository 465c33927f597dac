package metsalto_test

import (
	"testing"

	"github.com/fwojciec/metsalto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHyphenPolicy_IsContinuation(t *testing.T) {
	t.Parallel()

	policy := metsalto.DefaultHyphenPolicy()

	tests := []struct {
		text string
		want bool
	}{
		{text: "gov-", want: true},
		{text: "gov\u00ad", want: true},
		{text: "gov\u2010", want: true},
		{text: "Ge\u00ac", want: true},
		{text: "a-", want: true},
		{text: "cat", want: false},
		{text: "-", want: false},
		{text: "--", want: false},
		{text: "gov--", want: false},
		{text: "1880-", want: false},
		{text: "12\u2011", want: false},
		{text: "gov\u2014", want: false},
		{text: "", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tt.want, policy.IsContinuation(tt.text))
		})
	}
}

func TestHyphenPolicy_MinFragment(t *testing.T) {
	t.Parallel()

	policy := metsalto.DefaultHyphenPolicy()
	policy.MinFragment = 3

	assert.False(t, policy.IsContinuation("ab-"))
	assert.True(t, policy.IsContinuation("abc-"))
}

func TestHyphenPolicy_Join(t *testing.T) {
	t.Parallel()

	t.Run("drops glyph and joins without space", func(t *testing.T) {
		t.Parallel()

		policy := metsalto.DefaultHyphenPolicy()

		assert.Equal(t, "government", policy.Join("gov-", "ernment"))
		assert.Equal(t, "AngloSaxon", policy.Join("Anglo-", "Saxon"))
	})

	t.Run("keeps hyphen before upper case when configured", func(t *testing.T) {
		t.Parallel()

		policy := metsalto.DefaultHyphenPolicy()
		policy.KeepBeforeUpper = true

		assert.Equal(t, "Anglo-Saxon", policy.Join("Anglo\u00ad", "Saxon"))
		assert.Equal(t, "government", policy.Join("gov-", "ernment"))
	})
}

func TestHyphenPolicy_Validate(t *testing.T) {
	t.Parallel()

	require.NoError(t, metsalto.DefaultHyphenPolicy().Validate())

	tests := []struct {
		name   string
		policy metsalto.HyphenPolicy
	}{
		{name: "no glyphs", policy: metsalto.HyphenPolicy{}},
		{name: "letter glyph", policy: metsalto.HyphenPolicy{Glyphs: []rune{'x'}}},
		{name: "space glyph", policy: metsalto.HyphenPolicy{Glyphs: []rune{' '}}},
		{name: "negative fragment", policy: metsalto.HyphenPolicy{Glyphs: []rune{'-'}, MinFragment: -1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			err := tt.policy.Validate()
			require.Error(t, err)
			assert.Equal(t, metsalto.EINVALID, metsalto.ErrorCode(err))
		})
	}
}
