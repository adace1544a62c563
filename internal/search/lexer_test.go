package search

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLexTerms(t *testing.T) {
	toks, err := lex("quick brown fox")
	require.NoError(t, err)
	require.Len(t, toks, 3)
	for i, want := range []string{"quick", "brown", "fox"} {
		assert.Equal(t, tokTerm, toks[i].kind)
		assert.Equal(t, want, toks[i].text)
	}
}

func TestLexOperators(t *testing.T) {
	tests := []struct {
		name  string
		input string
		kinds []tokenKind
	}{
		{"keywords", "a AND b OR c", []tokenKind{tokTerm, tokAnd, tokTerm, tokOr, tokTerm}},
		{"symbols", "a && b || c", []tokenKind{tokTerm, tokAnd, tokTerm, tokOr, tokTerm}},
		{"not", "a NOT b", []tokenKind{tokTerm, tokNot, tokTerm}},
		{"modifiers", "+a -b", []tokenKind{tokPlus, tokTerm, tokMinus, tokTerm}},
		{"parens", "(a b)", []tokenKind{tokLParen, tokTerm, tokTerm, tokRParen}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			toks, err := lex(tt.input)
			require.NoError(t, err)
			require.Len(t, toks, len(tt.kinds))
			for i, k := range tt.kinds {
				assert.Equal(t, k, toks[i].kind, "token %d", i)
			}
		})
	}
}

func TestLexPhrase(t *testing.T) {
	toks, err := lex(`"quick brown fox"`)
	require.NoError(t, err)
	require.Len(t, toks, 1)
	assert.Equal(t, tokPhrase, toks[0].kind)
	assert.Equal(t, "quick brown fox", toks[0].text)
	assert.Equal(t, -1, toks[0].slop)
}

func TestLexPhraseSlop(t *testing.T) {
	toks, err := lex(`"quick fox"~3`)
	require.NoError(t, err)
	require.Len(t, toks, 1)
	assert.Equal(t, 3, toks[0].slop)
}

func TestLexUnterminatedPhrase(t *testing.T) {
	_, err := lex(`"quick brown`)
	assert.Error(t, err)
}

func TestLexFieldPrefix(t *testing.T) {
	toks, err := lex(`title:fox body:"the quick" created:[2020 TO 2021]`)
	require.NoError(t, err)
	require.Len(t, toks, 3)

	assert.Equal(t, tokTerm, toks[0].kind)
	assert.Equal(t, "title", toks[0].field)
	assert.Equal(t, "fox", toks[0].text)

	assert.Equal(t, tokPhrase, toks[1].kind)
	assert.Equal(t, "body", toks[1].field)
	assert.Equal(t, "the quick", toks[1].text)

	assert.Equal(t, tokRange, toks[2].kind)
	assert.Equal(t, "created", toks[2].field)
}

func TestLexFuzzy(t *testing.T) {
	toks, err := lex("roam~ roam~0.8 roam~2")
	require.NoError(t, err)
	require.Len(t, toks, 3)

	assert.True(t, toks[0].fuzzy)
	assert.Zero(t, toks[0].fuzzyVal)
	assert.Equal(t, "roam", toks[0].text)

	assert.True(t, toks[1].fuzzy)
	assert.InDelta(t, 0.8, toks[1].fuzzyVal, 1e-9)

	assert.True(t, toks[2].fuzzy)
	assert.InDelta(t, 2.0, toks[2].fuzzyVal, 1e-9)
}

func TestLexRange(t *testing.T) {
	tests := []struct {
		name         string
		input        string
		lo, hi       string
		incLo, incHi bool
	}{
		{"inclusive", "[alpha TO omega]", "alpha", "omega", true, true},
		{"exclusive", "{1 TO 5}", "1", "5", false, false},
		{"mixed", "[1 TO 5}", "1", "5", true, false},
		{"open low", "[* TO 5]", "", "5", true, true},
		{"open high", "[5 TO *]", "5", "", true, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			toks, err := lex(tt.input)
			require.NoError(t, err)
			require.Len(t, toks, 1)
			tok := toks[0]
			assert.Equal(t, tokRange, tok.kind)
			assert.Equal(t, tt.lo, tok.lo)
			assert.Equal(t, tt.hi, tok.hi)
			assert.Equal(t, tt.incLo, tok.incLo)
			assert.Equal(t, tt.incHi, tok.incHi)
		})
	}
}

func TestLexRangeErrors(t *testing.T) {
	_, err := lex("[1 TO 5")
	assert.Error(t, err)

	_, err = lex("[1 5]")
	assert.Error(t, err)
}

func TestLexHyphenInsideWordIsNotAnOperator(t *testing.T) {
	toks, err := lex("well-known")
	require.NoError(t, err)
	require.Len(t, toks, 1)
	assert.Equal(t, "well-known", toks[0].text)
}
