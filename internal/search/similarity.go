package search

import (
	"fmt"
	"math"

	"github.com/blevesearch/bleve/v2/search"
	index "github.com/blevesearch/bleve_index_api"

	"github.com/seekerlabs/indexscope/internal/errors"
	"github.com/seekerlabs/indexscope/internal/session"
)

// Explanation is a score breakdown node. Classic similarity surfaces the
// engine's own explanation tree; BM25 builds one from the re-scorer.
type Explanation struct {
	Value    float64
	Message  string
	Children []*Explanation
}

// String renders the explanation as an indented tree.
func (e *Explanation) String() string {
	return e.render("")
}

func (e *Explanation) render(indent string) string {
	out := fmt.Sprintf("%s%.6f  %s\n", indent, e.Value, e.Message)
	for _, c := range e.Children {
		out += c.render(indent + "  ")
	}
	return out
}

// Scorer assigns final scores to engine hits under one similarity model.
type Scorer interface {
	Name() string
	// Scores returns one score per hit, in hit order.
	Scores(r *session.Reader, cq *CompiledQuery, hits []*search.DocumentMatch) ([]float64, error)
	// Explain breaks down the score of a single hit.
	Explain(r *session.Reader, cq *CompiledQuery, hit *search.DocumentMatch) (*Explanation, error)
}

// scorerFor picks the scorer matching the compiled query's settings.
func scorerFor(s Settings) Scorer {
	if s.Similarity == SimilarityBM25 {
		return bm25Scorer{}
	}
	return classicScorer{}
}

// classicScorer trusts the engine: scores and explanations pass through
// unchanged.
type classicScorer struct{}

func (classicScorer) Name() string { return string(SimilarityClassic) }

func (classicScorer) Scores(_ *session.Reader, _ *CompiledQuery, hits []*search.DocumentMatch) ([]float64, error) {
	scores := make([]float64, len(hits))
	for i, h := range hits {
		scores[i] = h.Score
	}
	return scores, nil
}

func (classicScorer) Explain(_ *session.Reader, _ *CompiledQuery, hit *search.DocumentMatch) (*Explanation, error) {
	if hit.Expl == nil {
		return &Explanation{Value: hit.Score, Message: "engine score (no explanation available)"}, nil
	}
	return convertEngineExplanation(hit.Expl), nil
}

func convertEngineExplanation(e *search.Explanation) *Explanation {
	out := &Explanation{Value: e.Value, Message: e.Message}
	for _, c := range e.Children {
		out.Children = append(out.Children, convertEngineExplanation(c))
	}
	return out
}

// bm25Scorer re-scores hits with Okapi BM25 using corpus statistics read
// from the index. Document length is estimated from the stored default
// field; the average length is taken over the candidate set, which keeps
// scoring self-contained without a full corpus scan.
type bm25Scorer struct{}

func (bm25Scorer) Name() string { return string(SimilarityBM25) }

func (bm25Scorer) Scores(r *session.Reader, cq *CompiledQuery, hits []*search.DocumentMatch) ([]float64, error) {
	stats, err := collectBM25Stats(r, cq, hits)
	if err != nil {
		return nil, err
	}
	scores := make([]float64, len(hits))
	for i, h := range hits {
		scores[i] = bm25Score(cq, stats, h)
	}
	return scores, nil
}

func (bm25Scorer) Explain(r *session.Reader, cq *CompiledQuery, hit *search.DocumentMatch) (*Explanation, error) {
	stats, err := collectBM25Stats(r, cq, []*search.DocumentMatch{hit})
	if err != nil {
		return nil, err
	}

	s := cq.Settings
	dl := docLength(hit, cq.Field)
	root := &Explanation{
		Message: fmt.Sprintf("bm25(k1=%g, b=%g) score of doc %s", s.BM25K1, s.BM25B, hit.ID),
	}
	for _, term := range cq.Terms {
		tf := termFrequency(hit, cq.Field, term, s.DiscountOverlaps)
		if tf == 0 {
			continue
		}
		df := stats.docFreq[term]
		idf := bm25IDF(stats.totalDocs, df)
		norm := tfNorm(tf, dl, stats.avgdl, s)
		contribution := idf * norm
		root.Value += contribution
		root.Children = append(root.Children, &Explanation{
			Value:   contribution,
			Message: fmt.Sprintf("weight(%s:%s)", cq.Field, term),
			Children: []*Explanation{
				{Value: idf, Message: fmt.Sprintf("idf, docFreq=%d, docCount=%d", df, stats.totalDocs)},
				{Value: norm, Message: fmt.Sprintf("tf norm, freq=%d, dl=%d, avgdl=%.2f", tf, dl, stats.avgdl)},
			},
		})
	}
	return root, nil
}

type bm25Stats struct {
	totalDocs uint64
	docFreq   map[string]uint64
	avgdl     float64
}

// collectBM25Stats reads document frequencies from the field dictionary
// and averages document length over the candidate hits.
func collectBM25Stats(r *session.Reader, cq *CompiledQuery, hits []*search.DocumentMatch) (*bm25Stats, error) {
	total, err := r.DocCount()
	if err != nil {
		return nil, errors.New(errors.ErrCodeSearchFailed, "read document count", err)
	}

	stats := &bm25Stats{totalDocs: total, docFreq: make(map[string]uint64, len(cq.Terms))}
	for _, term := range cq.Terms {
		if _, seen := stats.docFreq[term]; seen {
			continue
		}
		df, err := documentFrequency(r, cq.Field, term)
		if err != nil {
			return nil, err
		}
		stats.docFreq[term] = df
	}

	var lengths uint64
	counted := 0
	for _, h := range hits {
		if dl := docLength(h, cq.Field); dl > 0 {
			lengths += uint64(dl)
			counted++
		}
	}
	if counted > 0 {
		stats.avgdl = float64(lengths) / float64(counted)
	} else {
		stats.avgdl = 1
	}
	return stats, nil
}

// documentFrequency reads the exact dictionary entry for term in field.
func documentFrequency(r *session.Reader, field, term string) (uint64, error) {
	dict, err := r.Index().FieldDictPrefix(field, []byte(term))
	if err != nil {
		return 0, errors.New(errors.ErrCodeSearchFailed,
			fmt.Sprintf("read field dictionary for %s", field), err)
	}
	defer dict.Close()

	for {
		var entry *index.DictEntry
		entry, err = dict.Next()
		if err != nil {
			return 0, errors.New(errors.ErrCodeSearchFailed,
				fmt.Sprintf("iterate field dictionary for %s", field), err)
		}
		if entry == nil {
			return 0, nil
		}
		if entry.Term == term {
			return entry.Count, nil
		}
	}
}

func bm25Score(cq *CompiledQuery, stats *bm25Stats, hit *search.DocumentMatch) float64 {
	s := cq.Settings
	dl := docLength(hit, cq.Field)

	var score float64
	for _, term := range cq.Terms {
		tf := termFrequency(hit, cq.Field, term, s.DiscountOverlaps)
		if tf == 0 {
			continue
		}
		score += bm25IDF(stats.totalDocs, stats.docFreq[term]) * tfNorm(tf, dl, stats.avgdl, s)
	}
	return score
}

func bm25IDF(totalDocs, df uint64) float64 {
	n := float64(totalDocs)
	d := float64(df)
	return math.Log(1 + (n-d+0.5)/(d+0.5))
}

func tfNorm(tf, dl int, avgdl float64, s Settings) float64 {
	if avgdl <= 0 {
		avgdl = 1
	}
	f := float64(tf)
	return f * (s.BM25K1 + 1) / (f + s.BM25K1*(1-s.BM25B+s.BM25B*float64(dl)/avgdl))
}

// termFrequency counts the term's occurrences in the hit's field using
// the match locations. With overlap discounting, stacked tokens at the
// same position count once.
func termFrequency(hit *search.DocumentMatch, field, term string, discountOverlaps bool) int {
	byTerm, ok := hit.Locations[field]
	if !ok {
		return 0
	}
	locs, ok := byTerm[term]
	if !ok {
		return 0
	}
	if !discountOverlaps {
		return len(locs)
	}
	positions := make(map[uint64]struct{}, len(locs))
	for _, l := range locs {
		positions[l.Pos] = struct{}{}
	}
	return len(positions)
}

// docLength estimates the field's token count from its stored value.
func docLength(hit *search.DocumentMatch, field string) int {
	v, ok := hit.Fields[field]
	if !ok {
		return 0
	}
	switch val := v.(type) {
	case string:
		return len(splitTerms(val))
	case []interface{}:
		n := 0
		for _, item := range val {
			if s, ok := item.(string); ok {
				n += len(splitTerms(s))
			}
		}
		return n
	default:
		return 0
	}
}
