package search

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/search"

	"github.com/seekerlabs/indexscope/internal/bus"
	"github.com/seekerlabs/indexscope/internal/errors"
	"github.com/seekerlabs/indexscope/internal/session"
)

// defaultMaxResults applies when a caller asks for zero or fewer rows.
const defaultMaxResults = 10

// previewRuneLimit bounds the stored-field preview attached to each row.
const previewRuneLimit = 100

// Row is one search hit prepared for display.
type Row struct {
	DocID   string  `json:"doc_id"`
	Score   float64 `json:"score"`
	Preview string  `json:"preview,omitempty"`
}

// Result is the outcome of one executed query.
type Result struct {
	TotalHits uint64
	Rows      []Row
}

// Executor runs compiled queries against the session's current reader.
// It tracks the reader through session events on the bus and remembers
// the last executed query so Explain can revisit individual documents.
type Executor struct {
	log *slog.Logger

	mu      sync.Mutex
	reader  *session.Reader
	current *CompiledQuery
	sim     *Settings

	subs []*bus.Subscription
}

// NewExecutor builds an executor following session state on the bus.
func NewExecutor(b *bus.Bus, logger *slog.Logger) *Executor {
	if logger == nil {
		logger = slog.Default()
	}
	e := &Executor{log: logger}
	e.subs = append(e.subs,
		bus.Subscribe(b, func(ev session.Opened) {
			e.mu.Lock()
			e.reader = ev.Reader
			e.mu.Unlock()
		}),
		bus.Subscribe(b, func(ev session.Closed) {
			e.mu.Lock()
			e.reader = nil
			e.current = nil
			e.mu.Unlock()
		}),
	)
	return e
}

// Detach cancels the executor's bus subscriptions.
func (e *Executor) Detach() {
	for _, s := range e.subs {
		s.Cancel()
	}
	e.subs = nil
}

// Configure switches the similarity used for scoring from here on.
// Compiled queries keep their parsing settings; only the scoring side of
// the given settings applies. Results already returned are untouched.
func (e *Executor) Configure(s Settings) error {
	if err := s.Validate(); err != nil {
		return err
	}
	e.mu.Lock()
	e.sim = &s
	e.mu.Unlock()
	return nil
}

// effective returns the compiled query to score with: the compilation as
// is, or a copy carrying the configured similarity override.
func (e *Executor) effective(cq *CompiledQuery) *CompiledQuery {
	e.mu.Lock()
	sim := e.sim
	e.mu.Unlock()
	if sim == nil {
		return cq
	}
	eff := *cq
	eff.Settings.Similarity = sim.Similarity
	eff.Settings.BM25K1 = sim.BM25K1
	eff.Settings.BM25B = sim.BM25B
	eff.Settings.DiscountOverlaps = sim.DiscountOverlaps
	return &eff
}

// Execute runs a compiled query and returns up to maxResults rows.
// Non-positive maxResults falls back to a small default page.
func (e *Executor) Execute(ctx context.Context, cq *CompiledQuery, maxResults int) (*Result, error) {
	if cq == nil {
		return nil, errors.New(errors.ErrCodeNilQuery, "nothing to execute: query is nil", nil)
	}
	reader := e.currentReader()
	if reader == nil {
		return nil, errors.LifecycleError(errors.ErrCodeNoSession, "no index is open")
	}
	if maxResults <= 0 {
		maxResults = defaultMaxResults
	}

	eff := e.effective(cq)
	req := bleve.NewSearchRequestOptions(eff.Query, maxResults, 0, false)
	req.Fields = []string{"*"}
	if eff.Settings.Similarity == SimilarityBM25 {
		req.IncludeLocations = true
	}

	res, err := reader.Index().SearchInContext(ctx, req)
	if err != nil {
		return nil, errors.New(errors.ErrCodeSearchFailed,
			fmt.Sprintf("execute query %q", cq.Raw), err)
	}

	scorer := scorerFor(eff.Settings)
	scores, err := scorer.Scores(reader, eff, res.Hits)
	if err != nil {
		return nil, err
	}

	rows := make([]Row, len(res.Hits))
	for i, hit := range res.Hits {
		rows[i] = Row{
			DocID:   hit.ID,
			Score:   scores[i],
			Preview: buildPreview(hit, cq.Field),
		}
	}
	if eff.Settings.Similarity == SimilarityBM25 {
		sort.SliceStable(rows, func(i, j int) bool {
			if rows[i].Score != rows[j].Score {
				return rows[i].Score > rows[j].Score
			}
			return rows[i].DocID < rows[j].DocID
		})
	}

	e.mu.Lock()
	e.current = cq
	e.mu.Unlock()

	e.log.Debug("query executed",
		"raw", cq.Raw, "similarity", scorer.Name(), "total", res.Total, "returned", len(rows))
	return &Result{TotalHits: res.Total, Rows: rows}, nil
}

// Explain breaks down how the last executed query scores one document.
// A document the query does not match yields a zero-valued node rather
// than an error. Before any Execute there is nothing to explain and the
// result is nil without error.
func (e *Executor) Explain(ctx context.Context, docID string) (*Explanation, error) {
	if strings.TrimSpace(docID) == "" {
		return nil, errors.ValidationError("document id must not be blank", nil)
	}
	reader := e.currentReader()
	if reader == nil {
		return nil, errors.LifecycleError(errors.ErrCodeNoSession, "no index is open")
	}

	e.mu.Lock()
	cq := e.current
	e.mu.Unlock()
	if cq == nil {
		return nil, nil
	}
	eff := e.effective(cq)

	conj := bleve.NewConjunctionQuery(eff.Query, bleve.NewDocIDQuery([]string{docID}))
	req := bleve.NewSearchRequestOptions(conj, 1, 0, true)
	req.Fields = []string{"*"}
	req.IncludeLocations = true

	res, err := reader.Index().SearchInContext(ctx, req)
	if err != nil {
		return nil, errors.New(errors.ErrCodeExplainFailed,
			fmt.Sprintf("explain doc %s against query %q", docID, cq.Raw), err)
	}
	if len(res.Hits) == 0 {
		return &Explanation{Value: 0, Message: fmt.Sprintf("doc %s does not match %q", docID, cq.Raw)}, nil
	}

	return scorerFor(eff.Settings).Explain(reader, eff, res.Hits[0])
}

// CurrentQuery returns the last executed compiled query, or nil.
func (e *Executor) CurrentQuery() *CompiledQuery {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.current
}

func (e *Executor) currentReader() *session.Reader {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.reader
}

// buildPreview renders a hit's stored fields as "name: value" pairs on a
// single line. The query's default field leads, remaining fields follow
// in name order; each value is truncated on its own so one long field
// cannot crowd out the rest.
func buildPreview(hit *search.DocumentMatch, defaultField string) string {
	var parts []string
	if v, ok := hit.Fields[defaultField]; ok {
		parts = append(parts, previewPair(defaultField, v))
	}

	names := make([]string, 0, len(hit.Fields))
	for name := range hit.Fields {
		if name != defaultField {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	for _, name := range names {
		parts = append(parts, previewPair(name, hit.Fields[name]))
	}

	return strings.Join(parts, "; ")
}

func previewPair(name string, v interface{}) string {
	val := fieldValueString(v)
	if runes := []rune(val); len(runes) > previewRuneLimit {
		val = string(runes[:previewRuneLimit]) + "…"
	}
	return name + ": " + val
}

func fieldValueString(v interface{}) string {
	switch val := v.(type) {
	case string:
		return val
	case []interface{}:
		items := make([]string, 0, len(val))
		for _, item := range val {
			items = append(items, fmt.Sprintf("%v", item))
		}
		return strings.Join(items, " ")
	default:
		return fmt.Sprintf("%v", v)
	}
}
