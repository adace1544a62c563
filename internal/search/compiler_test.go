package search

import (
	"testing"
	"time"

	"github.com/blevesearch/bleve/v2/search/query"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCompiler(t *testing.T, s Settings) *Compiler {
	t.Helper()
	c, err := NewCompiler(s, nil)
	require.NoError(t, err)
	return c
}

func TestCompilerRejectsInvalidSettings(t *testing.T) {
	s := DefaultSettings()
	s.Parser = "surreal"
	_, err := NewCompiler(s, nil)
	assert.Error(t, err)
}

func TestParseBlankInput(t *testing.T) {
	c := newTestCompiler(t, DefaultSettings())
	for _, raw := range []string{"", "   ", "\t\n"} {
		cq, err := c.Parse(raw, "content")
		assert.NoError(t, err)
		assert.Nil(t, cq)
	}
}

func TestParseMalformedInput(t *testing.T) {
	c := newTestCompiler(t, DefaultSettings())
	for _, raw := range []string{`"unterminated`, "[1 TO", "[1 5]"} {
		cq, err := c.Parse(raw, "content")
		assert.NoError(t, err, "input %q", raw)
		assert.Nil(t, cq, "input %q", raw)
	}

	s := DefaultSettings()
	s.Parser = ParserClassic
	c = newTestCompiler(t, s)
	for _, raw := range []string{"(a b", "a)", "((a)"} {
		cq, err := c.Parse(raw, "content")
		assert.NoError(t, err, "input %q", raw)
		assert.Nil(t, cq, "input %q", raw)
	}
}

func TestParseBlankDefaultField(t *testing.T) {
	c := newTestCompiler(t, DefaultSettings())
	_, err := c.Parse("fox", "")
	assert.Error(t, err)
}

func TestParseSingleTerm(t *testing.T) {
	c := newTestCompiler(t, DefaultSettings())
	cq, err := c.Parse("fox", "content")
	require.NoError(t, err)
	require.NotNil(t, cq)

	mq, ok := cq.Query.(*query.MatchQuery)
	require.True(t, ok)
	assert.Equal(t, "fox", mq.Match)
	assert.Equal(t, []string{"fox"}, cq.Terms)
	assert.Equal(t, "content", cq.Field)
}

func TestParsePhrase(t *testing.T) {
	c := newTestCompiler(t, DefaultSettings())
	cq, err := c.Parse(`"quick brown fox"`, "content")
	require.NoError(t, err)
	require.NotNil(t, cq)

	_, ok := cq.Query.(*query.MatchPhraseQuery)
	assert.True(t, ok)
	assert.Equal(t, []string{"quick", "brown", "fox"}, cq.Terms)
}

func TestParseSloppyPhraseDegradesToMatch(t *testing.T) {
	c := newTestCompiler(t, DefaultSettings())
	cq, err := c.Parse(`"quick fox"~2`, "content")
	require.NoError(t, err)
	require.NotNil(t, cq)

	mq, ok := cq.Query.(*query.MatchQuery)
	require.True(t, ok)
	assert.Equal(t, query.MatchQueryOperatorAnd, mq.Operator)
}

func TestParseFuzzy(t *testing.T) {
	c := newTestCompiler(t, DefaultSettings())
	cq, err := c.Parse("roam~0.8", "content")
	require.NoError(t, err)
	require.NotNil(t, cq)

	fq, ok := cq.Query.(*query.FuzzyQuery)
	require.True(t, ok)
	assert.Equal(t, "roam", fq.Term)
	assert.Equal(t, 1, fq.Fuzziness)
}

func TestParseWildcard(t *testing.T) {
	c := newTestCompiler(t, DefaultSettings())
	cq, err := c.Parse("fo*", "content")
	require.NoError(t, err)
	require.NotNil(t, cq)

	wq, ok := cq.Query.(*query.WildcardQuery)
	require.True(t, ok)
	assert.Equal(t, "fo*", wq.Wildcard)
}

func TestParseLeadingWildcardDropped(t *testing.T) {
	c := newTestCompiler(t, DefaultSettings())
	cq, err := c.Parse("*fox", "content")
	assert.NoError(t, err)
	assert.Nil(t, cq)

	s := DefaultSettings()
	s.AllowLeadingWildcard = true
	c = newTestCompiler(t, s)
	cq, err = c.Parse("*fox", "content")
	require.NoError(t, err)
	require.NotNil(t, cq)
	_, ok := cq.Query.(*query.WildcardQuery)
	assert.True(t, ok)
}

func TestParseFieldOverride(t *testing.T) {
	c := newTestCompiler(t, DefaultSettings())
	cq, err := c.Parse("title:fox", "content")
	require.NoError(t, err)
	require.NotNil(t, cq)

	mq, ok := cq.Query.(*query.MatchQuery)
	require.True(t, ok)
	assert.Equal(t, "title", mq.FieldVal)
}

func TestParseNumericRange(t *testing.T) {
	c := newTestCompiler(t, DefaultSettings())
	cq, err := c.Parse("count:[2 TO 10}", "content")
	require.NoError(t, err)
	require.NotNil(t, cq)

	nq, ok := cq.Query.(*query.NumericRangeQuery)
	require.True(t, ok)
	require.NotNil(t, nq.Min)
	require.NotNil(t, nq.Max)
	assert.Equal(t, 2.0, *nq.Min)
	assert.Equal(t, 10.0, *nq.Max)
	assert.True(t, *nq.InclusiveMin)
	assert.False(t, *nq.InclusiveMax)
}

func TestParseDateRange(t *testing.T) {
	c := newTestCompiler(t, DefaultSettings())
	cq, err := c.Parse("created:[2020-01-15 TO 2021-06-30]", "content")
	require.NoError(t, err)
	require.NotNil(t, cq)

	_, ok := cq.Query.(*query.DateRangeQuery)
	assert.True(t, ok)
}

func TestParseTermRange(t *testing.T) {
	c := newTestCompiler(t, DefaultSettings())
	cq, err := c.Parse("name:[alpha TO omega]", "content")
	require.NoError(t, err)
	require.NotNil(t, cq)

	_, ok := cq.Query.(*query.TermRangeQuery)
	assert.True(t, ok)
}

func TestStandardParserJoinsWithDefaultOperator(t *testing.T) {
	s := DefaultSettings()
	s.DefaultOperator = OperatorAnd
	c := newTestCompiler(t, s)

	cq, err := c.Parse("quick fox", "content")
	require.NoError(t, err)
	require.NotNil(t, cq)

	bq, ok := cq.Query.(*query.BooleanQuery)
	require.True(t, ok)
	must, ok := bq.Must.(*query.ConjunctionQuery)
	require.True(t, ok)
	assert.Len(t, must.Conjuncts, 2)
	assert.Equal(t, []string{"quick", "fox"}, cq.Terms)
}

func TestStandardParserIgnoresGroupingAndModifiers(t *testing.T) {
	c := newTestCompiler(t, DefaultSettings())
	cq, err := c.Parse("(quick -fox)", "content")
	require.NoError(t, err)
	require.NotNil(t, cq)
	assert.Equal(t, []string{"quick", "fox"}, cq.Terms)
}

func TestClassicParserProhibitedClause(t *testing.T) {
	s := DefaultSettings()
	s.Parser = ParserClassic
	c := newTestCompiler(t, s)

	cq, err := c.Parse("quick -fox", "content")
	require.NoError(t, err)
	require.NotNil(t, cq)

	bq, ok := cq.Query.(*query.BooleanQuery)
	require.True(t, ok)
	assert.NotNil(t, bq.MustNot)
	assert.Equal(t, []string{"quick"}, cq.Terms)
}

func TestClassicParserPureNegativeMatchesEverythingElse(t *testing.T) {
	s := DefaultSettings()
	s.Parser = ParserClassic
	c := newTestCompiler(t, s)

	cq, err := c.Parse("-fox", "content")
	require.NoError(t, err)
	require.NotNil(t, cq)

	bq, ok := cq.Query.(*query.BooleanQuery)
	require.True(t, ok)
	assert.NotNil(t, bq.Must)
	assert.NotNil(t, bq.MustNot)
}

func TestClassicParserGrouping(t *testing.T) {
	s := DefaultSettings()
	s.Parser = ParserClassic
	c := newTestCompiler(t, s)

	cq, err := c.Parse("(quick OR brown) AND fox", "content")
	require.NoError(t, err)
	require.NotNil(t, cq)

	assert.ElementsMatch(t, []string{"quick", "brown", "fox"}, cq.Terms)
	_, ok := cq.Query.(*query.BooleanQuery)
	assert.True(t, ok)
}

func TestClassicParserAndPromotesPreviousClause(t *testing.T) {
	s := DefaultSettings()
	s.Parser = ParserClassic
	s.DefaultOperator = OperatorOr
	c := newTestCompiler(t, s)

	cq, err := c.Parse("quick AND fox", "content")
	require.NoError(t, err)
	require.NotNil(t, cq)

	bq, ok := cq.Query.(*query.BooleanQuery)
	require.True(t, ok)
	must, ok := bq.Must.(*query.ConjunctionQuery)
	require.True(t, ok)
	assert.Len(t, must.Conjuncts, 2)
}

func TestParseCacheReturnsSameCompilation(t *testing.T) {
	c := newTestCompiler(t, DefaultSettings())

	first, err := c.Parse("fox", "content")
	require.NoError(t, err)
	second, err := c.Parse("  fox  ", "content")
	require.NoError(t, err)
	assert.Same(t, first, second)
}

func TestParseCacheMissesAfterSettingsChange(t *testing.T) {
	c := newTestCompiler(t, DefaultSettings())

	first, err := c.Parse("fox", "content")
	require.NoError(t, err)

	s := DefaultSettings()
	s.DefaultOperator = OperatorAnd
	require.NoError(t, c.UpdateSettings(s))

	second, err := c.Parse("fox", "content")
	require.NoError(t, err)
	assert.NotSame(t, first, second)
	assert.Equal(t, OperatorAnd, second.Settings.DefaultOperator)
}

func TestUpdateSettingsRejectsInvalid(t *testing.T) {
	c := newTestCompiler(t, DefaultSettings())
	s := DefaultSettings()
	s.BM25B = 3
	assert.Error(t, c.UpdateSettings(s))
}

func TestTruncateToResolution(t *testing.T) {
	ts := time.Date(2021, 6, 15, 13, 45, 30, 999, time.UTC)
	tests := []struct {
		res  DateResolution
		want time.Time
	}{
		{ResolutionYear, time.Date(2021, 1, 1, 0, 0, 0, 0, time.UTC)},
		{ResolutionMonth, time.Date(2021, 6, 1, 0, 0, 0, 0, time.UTC)},
		{ResolutionDay, time.Date(2021, 6, 15, 0, 0, 0, 0, time.UTC)},
		{ResolutionHour, time.Date(2021, 6, 15, 13, 0, 0, 0, time.UTC)},
		{ResolutionMinute, time.Date(2021, 6, 15, 13, 45, 0, 0, time.UTC)},
		{ResolutionSecond, time.Date(2021, 6, 15, 13, 45, 30, 0, time.UTC)},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, truncateToResolution(ts, tt.res), string(tt.res))
	}
}

func TestParseDateLocale(t *testing.T) {
	us := DefaultSettings() // en-US
	got, ok := parseDate("03/04/2021", us)
	require.True(t, ok)
	assert.Equal(t, time.March, got.Month())
	assert.Equal(t, 4, got.Day())

	de := DefaultSettings()
	de.Locale = "de-DE"
	got, ok = parseDate("03/04/2021", de)
	require.True(t, ok)
	assert.Equal(t, time.April, got.Month())
	assert.Equal(t, 3, got.Day())
}
