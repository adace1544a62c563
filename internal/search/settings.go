// Package search implements query compilation, similarity configuration and
// search execution against the session's open index reader.
//
// The query grammar surface (phrases, wildcards, fuzzy terms, ranges) is
// translated onto the engine's query primitives; the engine's own syntax and
// scoring stay authoritative.
package search

import (
	"fmt"
	"time"

	"github.com/seekerlabs/indexscope/internal/errors"
)

// ParserType selects which query parsing strategy the compiler uses.
type ParserType string

const (
	// ParserClassic is the operator-precedence parser: explicit AND/OR/NOT,
	// +/- prefixes, grouping, field overrides and range syntax.
	ParserClassic ParserType = "classic"

	// ParserStandard is the flat parser: phrases, wildcards and fuzzy
	// markers are recognised, clauses join with the default operator,
	// grouping and unary modifiers are ignored.
	ParserStandard ParserType = "standard"
)

// Operator is the boolean operator applied between clauses that carry no
// explicit operator of their own.
type Operator string

const (
	// OperatorAnd requires every clause to match.
	OperatorAnd Operator = "and"
	// OperatorOr makes clauses optional.
	OperatorOr Operator = "or"
)

// SimilarityType selects the scoring function for ranked results.
type SimilarityType string

const (
	// SimilarityClassic keeps the engine's native TF-IDF style score.
	SimilarityClassic SimilarityType = "classic"
	// SimilarityBM25 re-scores hits with BM25 using K1/B parameters.
	SimilarityBM25 SimilarityType = "bm25"
)

// DateResolution is the precision date range bounds are truncated to.
type DateResolution string

const (
	ResolutionYear   DateResolution = "year"
	ResolutionMonth  DateResolution = "month"
	ResolutionDay    DateResolution = "day"
	ResolutionHour   DateResolution = "hour"
	ResolutionMinute DateResolution = "minute"
	ResolutionSecond DateResolution = "second"
)

// Settings is the immutable-per-query configuration for compilation and
// scoring. The compiler snapshots it when a query is compiled; later
// mutation never alters already-compiled queries.
type Settings struct {
	Parser               ParserType     `yaml:"parser"`
	DefaultOperator      Operator       `yaml:"default_operator"`
	AllowLeadingWildcard bool           `yaml:"allow_leading_wildcard"`
	PhraseSlop           int            `yaml:"phrase_slop"`
	FuzzyMinSim          float64        `yaml:"fuzzy_min_sim"`
	FuzzyPrefixLength    int            `yaml:"fuzzy_prefix_length"`
	DateResolution       DateResolution `yaml:"date_resolution"`
	Locale               string         `yaml:"locale"`
	TimeZone             string         `yaml:"time_zone"`
	Analyzer             string         `yaml:"analyzer"`

	Similarity       SimilarityType `yaml:"similarity"`
	BM25K1           float64        `yaml:"bm25_k1"`
	BM25B            float64        `yaml:"bm25_b"`
	DiscountOverlaps bool           `yaml:"discount_overlaps"`
}

// DefaultSettings returns the settings used when nothing is configured.
func DefaultSettings() Settings {
	return Settings{
		Parser:            ParserStandard,
		DefaultOperator:   OperatorOr,
		PhraseSlop:        0,
		FuzzyMinSim:       0.5,
		FuzzyPrefixLength: 0,
		DateResolution:    ResolutionDay,
		Locale:            "en-US",
		TimeZone:          "UTC",
		Similarity:        SimilarityClassic,
		BM25K1:            1.2,
		BM25B:             0.75,
		DiscountOverlaps:  true,
	}
}

// Validate checks settings for values the compiler cannot work with.
func (s *Settings) Validate() error {
	switch s.Parser {
	case ParserClassic, ParserStandard:
	default:
		return errors.New(errors.ErrCodeInvalidInput,
			fmt.Sprintf("unknown parser type %q", s.Parser), nil)
	}

	switch s.DefaultOperator {
	case OperatorAnd, OperatorOr:
	default:
		return errors.New(errors.ErrCodeInvalidInput,
			fmt.Sprintf("unknown default operator %q", s.DefaultOperator), nil)
	}

	switch s.Similarity {
	case SimilarityClassic, SimilarityBM25:
	default:
		return errors.New(errors.ErrCodeInvalidInput,
			fmt.Sprintf("unknown similarity type %q", s.Similarity), nil)
	}

	switch s.DateResolution {
	case ResolutionYear, ResolutionMonth, ResolutionDay,
		ResolutionHour, ResolutionMinute, ResolutionSecond:
	default:
		return errors.New(errors.ErrCodeInvalidInput,
			fmt.Sprintf("unknown date resolution %q", s.DateResolution), nil)
	}

	if s.FuzzyMinSim < 0 || s.FuzzyMinSim >= 1 {
		return errors.New(errors.ErrCodeInvalidInput,
			fmt.Sprintf("fuzzy minimum similarity %v outside [0,1)", s.FuzzyMinSim), nil)
	}
	if s.FuzzyPrefixLength < 0 {
		return errors.New(errors.ErrCodeInvalidInput, "negative fuzzy prefix length", nil)
	}
	if s.PhraseSlop < 0 {
		return errors.New(errors.ErrCodeInvalidInput, "negative phrase slop", nil)
	}
	if s.BM25K1 < 0 {
		return errors.New(errors.ErrCodeInvalidInput, "negative BM25 k1", nil)
	}
	if s.BM25B < 0 || s.BM25B > 1 {
		return errors.New(errors.ErrCodeInvalidInput,
			fmt.Sprintf("BM25 b %v outside [0,1]", s.BM25B), nil)
	}

	return nil
}

// Location resolves the configured time zone, falling back to UTC when the
// name is unknown on this system.
func (s Settings) Location() *time.Location {
	loc, err := time.LoadLocation(s.TimeZone)
	if err != nil || loc == nil {
		return time.UTC
	}
	return loc
}

// fingerprint encodes every compilation-relevant setting. Compiled-query
// cache entries are keyed on it so a settings change can never resurface a
// query compiled under the old settings.
func (s Settings) fingerprint() string {
	return fmt.Sprintf("%s|%s|%t|%d|%g|%d|%s|%s|%s|%s|%s|%g|%g|%t",
		s.Parser, s.DefaultOperator, s.AllowLeadingWildcard, s.PhraseSlop,
		s.FuzzyMinSim, s.FuzzyPrefixLength, s.DateResolution, s.Locale,
		s.TimeZone, s.Analyzer, s.Similarity, s.BM25K1, s.BM25B,
		s.DiscountOverlaps)
}
