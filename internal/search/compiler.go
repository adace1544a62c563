package search

import (
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"
	"unicode"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/search/query"
	lru "github.com/hashicorp/golang-lru/v2"

	scoperrors "github.com/seekerlabs/indexscope/internal/errors"
)

// compiledCacheSize bounds the number of compiled queries kept per
// compiler. Cache entries are keyed on the raw string, the default field
// and a settings fingerprint, so a settings change never serves stale
// queries.
const compiledCacheSize = 256

// CompiledQuery is the output of the compiler: an engine query plus the
// metadata the executor needs for re-scoring and display.
type CompiledQuery struct {
	Raw      string
	Field    string
	Query    query.Query
	Terms    []string // positive analyzed terms, for BM25 re-scoring
	Settings Settings
}

// Compiler turns raw query strings into engine queries according to its
// current settings. It is safe for concurrent use.
type Compiler struct {
	mu       sync.RWMutex
	settings Settings
	cache    *lru.Cache[string, *CompiledQuery]
	log      *slog.Logger
}

// NewCompiler builds a compiler with the given settings. The settings are
// validated up front so every later Parse works from a known-good state.
func NewCompiler(settings Settings, logger *slog.Logger) (*Compiler, error) {
	if err := settings.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	cache, err := lru.New[string, *CompiledQuery](compiledCacheSize)
	if err != nil {
		return nil, scoperrors.InternalError("create query cache", err)
	}
	return &Compiler{settings: settings, cache: cache, log: logger}, nil
}

// Settings returns a copy of the compiler's current settings.
func (c *Compiler) Settings() Settings {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.settings
}

// UpdateSettings replaces the compiler's settings. Previously compiled
// queries stay valid; only future Parse calls see the new settings.
func (c *Compiler) UpdateSettings(s Settings) error {
	if err := s.Validate(); err != nil {
		return err
	}
	c.mu.Lock()
	c.settings = s
	c.mu.Unlock()
	return nil
}

// Parse compiles a raw query string against the default field. Blank and
// malformed input both yield (nil, nil): the caller treats that as "no
// query" rather than an error. A blank default field is a caller bug and
// returns a validation error.
func (c *Compiler) Parse(raw, defaultField string) (*CompiledQuery, error) {
	if strings.TrimSpace(defaultField) == "" {
		return nil, scoperrors.ValidationError("default field must not be blank", nil)
	}

	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return nil, nil
	}

	c.mu.RLock()
	settings := c.settings
	c.mu.RUnlock()

	key := defaultField + "\x00" + settings.fingerprint() + "\x00" + trimmed
	if cq, ok := c.cache.Get(key); ok {
		return cq, nil
	}

	toks, err := lex(trimmed)
	if err != nil {
		c.log.Debug("query discarded", "raw", trimmed, "reason", err)
		return nil, nil
	}

	var (
		q     query.Query
		terms []string
	)
	switch settings.Parser {
	case ParserClassic:
		q, terms, err = parseClassic(toks, defaultField, settings)
	default:
		q, terms, err = parseStandard(toks, defaultField, settings)
	}
	if err != nil {
		c.log.Debug("query discarded", "raw", trimmed, "reason", err)
		return nil, nil
	}
	if q == nil {
		return nil, nil
	}

	cq := &CompiledQuery{
		Raw:      trimmed,
		Field:    defaultField,
		Query:    q,
		Terms:    terms,
		Settings: settings,
	}
	c.cache.Add(key, cq)
	return cq, nil
}

// occurKind is how a clause participates in a boolean query.
type occurKind int

const (
	occurShould occurKind = iota
	occurMust
	occurMustNot
)

// clause pairs a sub-query with its boolean role. explicit records
// whether the role came from an operator or from the default, which
// matters when a later OR demotes the previous clause.
type clause struct {
	q        query.Query
	occ      occurKind
	explicit bool
}

// parseStandard builds a flat query: every atom becomes a clause joined
// by the default operator. Parentheses and unary modifiers are ignored;
// operator keywords are honored per pair.
func parseStandard(toks []token, field string, s Settings) (query.Query, []string, error) {
	var clauses []clause
	var terms []string

	pendingOr := false
	for _, t := range toks {
		switch t.kind {
		case tokLParen, tokRParen, tokPlus, tokMinus, tokNot:
			continue
		case tokAnd:
			pendingOr = false
			continue
		case tokOr:
			pendingOr = true
			if n := len(clauses); n > 0 && !clauses[n-1].explicit {
				clauses[n-1].occ = occurShould
				clauses[n-1].explicit = true
			}
			continue
		}

		q, ts, ok := buildAtom(t, field, s)
		if !ok {
			continue
		}
		occ := occurMust
		if s.DefaultOperator == OperatorOr || pendingOr {
			occ = occurShould
		}
		clauses = append(clauses, clause{q: q, occ: occ, explicit: pendingOr})
		terms = append(terms, ts...)
		pendingOr = false
	}

	return assemble(clauses), terms, nil
}

// parseClassic builds a query with full operator semantics: AND, OR, NOT,
// +, -, and parenthesized groups. Unbalanced parentheses are an error.
func parseClassic(toks []token, field string, s Settings) (query.Query, []string, error) {
	q, terms, rest, err := parseClassicGroup(toks, field, s, false)
	if err != nil {
		return nil, nil, err
	}
	if len(rest) > 0 {
		return nil, nil, fmt.Errorf("unbalanced parentheses")
	}
	return q, terms, nil
}

// parseClassicGroup consumes tokens until end of input or, when nested,
// the closing parenthesis. It returns the unconsumed tail.
func parseClassicGroup(toks []token, field string, s Settings, nested bool) (query.Query, []string, []token, error) {
	var clauses []clause
	var terms []string

	type modKind int
	const (
		modNone modKind = iota
		modPlus
		modMinus
	)
	type conjKind int
	const (
		conjNone conjKind = iota
		conjAnd
		conjOr
	)

	mod := modNone
	conj := conjNone

	addClause := func(q query.Query, ts []string) {
		occ := occurShould
		explicit := true
		switch {
		case mod == modMinus:
			occ = occurMustNot
		case mod == modPlus:
			occ = occurMust
		case conj == conjAnd:
			occ = occurMust
		case conj == conjOr:
			occ = occurShould
		case s.DefaultOperator == OperatorAnd:
			occ = occurMust
			explicit = false
		default:
			explicit = false
		}

		// AND promotes the previous clause, OR demotes it, but only
		// when that clause got its role from the default operator.
		if n := len(clauses); n > 0 && !clauses[n-1].explicit && mod == modNone {
			switch conj {
			case conjAnd:
				clauses[n-1].occ = occurMust
				clauses[n-1].explicit = true
			case conjOr:
				clauses[n-1].occ = occurShould
				clauses[n-1].explicit = true
			}
		}

		clauses = append(clauses, clause{q: q, occ: occ, explicit: explicit})
		if occ != occurMustNot {
			terms = append(terms, ts...)
		}
		mod = modNone
		conj = conjNone
	}

	i := 0
	for i < len(toks) {
		t := toks[i]
		switch t.kind {
		case tokAnd:
			conj = conjAnd
			i++
		case tokOr:
			conj = conjOr
			i++
		case tokNot, tokMinus:
			mod = modMinus
			i++
		case tokPlus:
			mod = modPlus
			i++
		case tokLParen:
			sub, ts, rest, err := parseClassicGroup(toks[i+1:], field, s, true)
			if err != nil {
				return nil, nil, nil, err
			}
			if sub != nil {
				addClause(sub, ts)
			} else {
				mod = modNone
				conj = conjNone
			}
			// rest starts after the consumed closing parenthesis
			toks = rest
			i = 0
		case tokRParen:
			if !nested {
				return nil, nil, nil, fmt.Errorf("unbalanced parentheses")
			}
			return assemble(clauses), terms, toks[i+1:], nil
		default:
			q, ts, ok := buildAtom(t, field, s)
			if ok {
				addClause(q, ts)
			} else {
				mod = modNone
				conj = conjNone
			}
			i++
		}
	}

	if nested {
		return nil, nil, nil, fmt.Errorf("unbalanced parentheses")
	}
	return assemble(clauses), terms, nil, nil
}

// assemble folds a clause list into a single query. A lone positive
// clause is returned as-is. A query with only prohibited clauses gets a
// match-all positive leg so "-foo" means "everything except foo".
func assemble(clauses []clause) query.Query {
	if len(clauses) == 0 {
		return nil
	}
	if len(clauses) == 1 && clauses[0].occ != occurMustNot {
		return clauses[0].q
	}

	bq := bleve.NewBooleanQuery()
	positive := false
	for _, cl := range clauses {
		switch cl.occ {
		case occurMust:
			bq.AddMust(cl.q)
			positive = true
		case occurShould:
			bq.AddShould(cl.q)
			positive = true
		case occurMustNot:
			bq.AddMustNot(cl.q)
		}
	}
	if !positive {
		bq.AddMust(bleve.NewMatchAllQuery())
	}
	return bq
}

// buildAtom turns a single term, phrase or range token into an engine
// query. Returns ok=false when the atom must be dropped, e.g. a leading
// wildcard while leading wildcards are disabled.
func buildAtom(t token, defaultField string, s Settings) (query.Query, []string, bool) {
	field := t.field
	if field == "" {
		field = defaultField
	}

	switch t.kind {
	case tokRange:
		return buildRange(t, field, s), nil, true
	case tokPhrase:
		return buildPhrase(t, field, s)
	default:
		return buildTerm(t, field, s)
	}
}

func buildTerm(t token, field string, s Settings) (query.Query, []string, bool) {
	if t.text == "" {
		return nil, nil, false
	}

	if t.fuzzy {
		fq := bleve.NewFuzzyQuery(strings.ToLower(t.text))
		fq.SetField(field)
		fq.SetFuzziness(fuzzinessFor(t.fuzzyVal, s))
		fq.SetPrefix(s.FuzzyPrefixLength)
		return fq, splitTerms(t.text), true
	}

	if strings.ContainsAny(t.text, "*?") {
		first := []rune(t.text)[0]
		if (first == '*' || first == '?') && !s.AllowLeadingWildcard {
			return nil, nil, false
		}
		wq := bleve.NewWildcardQuery(strings.ToLower(t.text))
		wq.SetField(field)
		return wq, nil, true
	}

	mq := bleve.NewMatchQuery(t.text)
	mq.SetField(field)
	if a := ResolveAnalyzer(s.Analyzer); a != "" {
		mq.Analyzer = a
	}
	if s.DefaultOperator == OperatorAnd {
		mq.SetOperator(query.MatchQueryOperatorAnd)
	}
	return mq, splitTerms(t.text), true
}

func buildPhrase(t token, field string, s Settings) (query.Query, []string, bool) {
	if strings.TrimSpace(t.text) == "" {
		return nil, nil, false
	}

	slop := t.slop
	if slop < 0 {
		slop = s.PhraseSlop
	}

	if slop == 0 {
		pq := bleve.NewMatchPhraseQuery(t.text)
		pq.SetField(field)
		if a := ResolveAnalyzer(s.Analyzer); a != "" {
			pq.Analyzer = a
		}
		return pq, splitTerms(t.text), true
	}

	// The engine has no positional slop on phrase queries, so a sloppy
	// phrase degrades to requiring all its terms in the field.
	mq := bleve.NewMatchQuery(t.text)
	mq.SetField(field)
	if a := ResolveAnalyzer(s.Analyzer); a != "" {
		mq.Analyzer = a
	}
	mq.SetOperator(query.MatchQueryOperatorAnd)
	return mq, splitTerms(t.text), true
}

// buildRange picks the strongest typed range the bounds support: date,
// then numeric, then term.
func buildRange(t token, field string, s Settings) query.Query {
	loOpen := t.lo == ""
	hiOpen := t.hi == ""

	loDate, loIsDate := parseDate(t.lo, s)
	hiDate, hiIsDate := parseDate(t.hi, s)
	if (loOpen || loIsDate) && (hiOpen || hiIsDate) && (loIsDate || hiIsDate) {
		var start, end time.Time
		if loIsDate {
			start = loDate
		}
		if hiIsDate {
			end = hiDate
		}
		dq := bleve.NewDateRangeInclusiveQuery(start, end, &t.incLo, &t.incHi)
		dq.SetField(field)
		return dq
	}

	loNum, loErr := parseFloat(t.lo)
	hiNum, hiErr := parseFloat(t.hi)
	if (loOpen || loErr == nil) && (hiOpen || hiErr == nil) && (loErr == nil || hiErr == nil) {
		var loPtr, hiPtr *float64
		if !loOpen {
			loPtr = &loNum
		}
		if !hiOpen {
			hiPtr = &hiNum
		}
		nq := bleve.NewNumericRangeInclusiveQuery(loPtr, hiPtr, &t.incLo, &t.incHi)
		nq.SetField(field)
		return nq
	}

	tq := bleve.NewTermRangeInclusiveQuery(strings.ToLower(t.lo), strings.ToLower(t.hi), &t.incLo, &t.incHi)
	tq.SetField(field)
	return tq
}

// fuzzinessFor maps a similarity-style value onto an edit distance. Values
// of one or more are taken as edit distances directly, capped at two;
// fractional values follow the configured minimum-similarity convention.
func fuzzinessFor(v float64, s Settings) int {
	if v == 0 {
		v = s.FuzzyMinSim
	}
	if v >= 2 {
		return 2
	}
	if v >= 1 {
		return int(v)
	}
	if v >= 0.75 {
		return 1
	}
	return 2
}

// splitTerms lowercases and splits text on non-alphanumeric runes,
// approximating the default analyzer for re-scoring purposes.
func splitTerms(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}
