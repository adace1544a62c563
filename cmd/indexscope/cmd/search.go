package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/seekerlabs/indexscope/internal/bus"
	"github.com/seekerlabs/indexscope/internal/history"
	"github.com/seekerlabs/indexscope/internal/output"
	"github.com/seekerlabs/indexscope/internal/search"
	"github.com/seekerlabs/indexscope/internal/session"
)

// searchOptions holds CLI flags for search.
type searchOptions struct {
	field       string
	limit       int
	dirImpl     string
	format      string // "text", "json"
	explainID   string
	parser      string
	operator    string
	similarity  string
	analyzer    string
	slop        int
	fuzzyMinSim float64
}

func newSearchCmd() *cobra.Command {
	var opts searchOptions

	cmd := &cobra.Command{
		Use:   "search <index-path> <query>",
		Short: "Run a query against an index",
		Long: `Open an index read-only, run one query, and print the hits.

Examples:
  indexscope search ./idx "quick brown fox"
  indexscope search ./idx 'title:fox AND created:[2020-01-01 TO 2021-01-01]' --parser classic
  indexscope search ./idx "quick" --similarity bm25 --explain-doc 42
  indexscope search ./idx "quick" --format json`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw := strings.Join(args[1:], " ")
			return runSearch(cmd.Context(), cmd, args[0], raw, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.field, "field", "f", "content", "Default field queries run against")
	cmd.Flags().IntVarP(&opts.limit, "limit", "n", 10, "Maximum number of results")
	cmd.Flags().StringVar(&opts.dirImpl, "dir", session.DirScorch, "Directory implementation")
	cmd.Flags().StringVar(&opts.format, "format", "text", "Output format: text, json")
	cmd.Flags().StringVar(&opts.explainID, "explain-doc", "", "Also print the score breakdown for this document id")
	cmd.Flags().StringVar(&opts.parser, "parser", "", "Override the configured parser: classic, standard")
	cmd.Flags().StringVar(&opts.operator, "operator", "", "Override the default operator: and, or")
	cmd.Flags().StringVar(&opts.similarity, "similarity", "", "Override the similarity: classic, bm25")
	cmd.Flags().StringVar(&opts.analyzer, "analyzer", "", "Override the analyzer term queries use")
	cmd.Flags().IntVar(&opts.slop, "slop", -1, "Override the phrase slop")
	cmd.Flags().Float64Var(&opts.fuzzyMinSim, "fuzzy-min-sim", -1, "Override the fuzzy minimum similarity [0,1)")

	return cmd
}

// applyOverrides folds CLI flag overrides into the configured settings.
func applyOverrides(settings search.Settings, opts searchOptions) search.Settings {
	if opts.parser != "" {
		settings.Parser = search.ParserType(opts.parser)
	}
	if opts.operator != "" {
		settings.DefaultOperator = search.Operator(opts.operator)
	}
	if opts.similarity != "" {
		settings.Similarity = search.SimilarityType(opts.similarity)
	}
	if opts.analyzer != "" {
		settings.Analyzer = opts.analyzer
	}
	if opts.slop >= 0 {
		settings.PhraseSlop = opts.slop
	}
	if opts.fuzzyMinSim >= 0 {
		settings.FuzzyMinSim = opts.fuzzyMinSim
	}
	return settings
}

func runSearch(ctx context.Context, cmd *cobra.Command, path, raw string, opts searchOptions) error {
	out := output.NewWriter(cmd.OutOrStdout())

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	settings := applyOverrides(cfg.Search, opts)

	b := bus.New()
	defer b.Close()

	manager := session.NewManager(session.ManagerConfig{Bus: b, Logger: slog.Default()})
	executor := search.NewExecutor(b, slog.Default())
	compiler, err := search.NewCompiler(settings, slog.Default())
	if err != nil {
		return err
	}

	var store *history.Store
	if cfg.History.Enabled {
		if store, err = history.Open(cfg.History.Path, slog.Default()); err != nil {
			slog.Warn("history unavailable", "error", err)
			store = nil
		} else {
			store.Attach(b)
			defer store.Close()
		}
	}

	if _, err := manager.Open(ctx, path, opts.dirImpl, true); err != nil {
		return err
	}
	defer manager.Close()

	cq, err := compiler.Parse(raw, opts.field)
	if err != nil {
		return err
	}
	if cq == nil {
		out.Printf("nothing to search: %q compiles to no query\n", raw)
		return nil
	}

	start := time.Now()
	res, err := executor.Execute(ctx, cq, opts.limit)
	if err != nil {
		return err
	}
	elapsed := time.Since(start)

	if store != nil {
		if herr := store.RecordQuery(cq.Raw, cq.Field, res.TotalHits); herr != nil {
			slog.Warn("record query", "error", herr)
		}
	}

	if opts.format == "json" {
		return printResultJSON(cmd, res, cq.Raw, elapsed)
	}
	out.PrintResult(res, cq.Raw, elapsed)

	if opts.explainID != "" {
		expl, err := executor.Explain(ctx, opts.explainID)
		if err != nil {
			return err
		}
		out.PrintExplanation(opts.explainID, expl)
	}
	return nil
}

func printResultJSON(cmd *cobra.Command, res *search.Result, raw string, elapsed time.Duration) error {
	payload := struct {
		Query     string       `json:"query"`
		TotalHits uint64       `json:"total_hits"`
		ElapsedMS float64      `json:"elapsed_ms"`
		Rows      []search.Row `json:"rows"`
	}{raw, res.TotalHits, float64(elapsed.Microseconds()) / 1000, res.Rows}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	if err := enc.Encode(payload); err != nil {
		return fmt.Errorf("encode results: %w", err)
	}
	return nil
}
