package search

import (
	"testing"

	"github.com/blevesearch/bleve/v2/search"
	"github.com/stretchr/testify/assert"
)

func TestScorerFor(t *testing.T) {
	s := DefaultSettings()
	assert.Equal(t, "classic", scorerFor(s).Name())

	s.Similarity = SimilarityBM25
	assert.Equal(t, "bm25", scorerFor(s).Name())
}

func TestBM25IDFDecreasesWithDocFreq(t *testing.T) {
	rare := bm25IDF(1000, 1)
	common := bm25IDF(1000, 500)
	assert.Greater(t, rare, common)
	assert.Greater(t, common, 0.0)
}

func TestTFNormSaturates(t *testing.T) {
	s := DefaultSettings()
	one := tfNorm(1, 10, 10, s)
	five := tfNorm(5, 10, 10, s)
	fifty := tfNorm(50, 10, 10, s)

	assert.Greater(t, five, one)
	assert.Greater(t, fifty, five)
	// Diminishing returns: the jump from 5 to 50 occurrences is smaller
	// than k1+1 would allow linearly.
	assert.Less(t, fifty, s.BM25K1+1)
}

func TestTFNormPenalizesLongDocs(t *testing.T) {
	s := DefaultSettings()
	short := tfNorm(1, 5, 10, s)
	long := tfNorm(1, 50, 10, s)
	assert.Greater(t, short, long)
}

func TestTermFrequencyDiscountsOverlaps(t *testing.T) {
	hit := &search.DocumentMatch{
		Locations: search.FieldTermLocationMap{
			"content": search.TermLocationMap{
				"fox": search.Locations{
					{Pos: 1},
					{Pos: 1},
					{Pos: 7},
				},
			},
		},
	}

	assert.Equal(t, 2, termFrequency(hit, "content", "fox", true))
	assert.Equal(t, 3, termFrequency(hit, "content", "fox", false))
	assert.Equal(t, 0, termFrequency(hit, "content", "wolf", true))
	assert.Equal(t, 0, termFrequency(hit, "title", "fox", true))
}

func TestDocLength(t *testing.T) {
	hit := &search.DocumentMatch{
		Fields: map[string]interface{}{
			"content": "the quick brown fox",
			"tags":    []interface{}{"one two", "three"},
			"count":   float64(3),
		},
	}

	assert.Equal(t, 4, docLength(hit, "content"))
	assert.Equal(t, 3, docLength(hit, "tags"))
	assert.Equal(t, 0, docLength(hit, "count"))
	assert.Equal(t, 0, docLength(hit, "missing"))
}

func TestExplanationString(t *testing.T) {
	e := &Explanation{
		Value:   1.5,
		Message: "sum",
		Children: []*Explanation{
			{Value: 1.0, Message: "a"},
			{Value: 0.5, Message: "b"},
		},
	}
	out := e.String()
	assert.Contains(t, out, "sum")
	assert.Contains(t, out, "  1.000000  a")
	assert.Contains(t, out, "  0.500000  b")
}
