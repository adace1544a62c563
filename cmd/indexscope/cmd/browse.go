package cmd

import (
	"log/slog"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/seekerlabs/indexscope/internal/bus"
	"github.com/seekerlabs/indexscope/internal/history"
	"github.com/seekerlabs/indexscope/internal/search"
	"github.com/seekerlabs/indexscope/internal/session"
	"github.com/seekerlabs/indexscope/internal/ui"
)

func newBrowseCmd() *cobra.Command {
	var (
		field    string
		limit    int
		dirImpl  string
		writable bool
	)

	cmd := &cobra.Command{
		Use:   "browse <index-path>",
		Short: "Open an index in an interactive query session",
		Long: `Open an index and query it interactively: type a query, page through
hits, and inspect score breakdowns without leaving the terminal.

The index opens read-only by default; pass --write to open it
writable and hold the write lock for the session.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			b := bus.New()
			defer b.Close()

			manager := session.NewManager(session.ManagerConfig{
				Bus:           b,
				Logger:        slog.Default(),
				WatchChanges:  cfg.Watch.Enabled,
				WatchDebounce: cfg.Watch.Debounce(),
			})
			executor := search.NewExecutor(b, slog.Default())
			compiler, err := search.NewCompiler(cfg.Search, slog.Default())
			if err != nil {
				return err
			}

			// The index open and the history load are independent; do
			// them concurrently so large indexes do not serialize on a
			// cold history database.
			var store *history.Store
			g, gctx := errgroup.WithContext(cmd.Context())
			g.Go(func() error {
				_, err := manager.Open(gctx, args[0], dirImpl, !writable)
				return err
			})
			if cfg.History.Enabled {
				g.Go(func() error {
					s, err := history.Open(cfg.History.Path, slog.Default())
					if err != nil {
						slog.Warn("history unavailable", "error", err)
						return nil
					}
					store = s
					return nil
				})
			}
			if err := g.Wait(); err != nil {
				if store != nil {
					store.Close()
				}
				return err
			}
			defer manager.Close()
			if store != nil {
				store.Attach(b)
				if herr := store.RecordOpen(args[0], dirImpl, !writable); herr != nil {
					slog.Warn("record index open", "error", herr)
				}
				defer store.Close()
			}

			return ui.Browse(cmd.Context(), ui.BrowseConfig{
				Bus:          b,
				Manager:      manager,
				Compiler:     compiler,
				Executor:     executor,
				History:      store,
				Styles:       ui.DefaultStyles(),
				DefaultField: field,
				MaxResults:   limit,
			})
		},
	}

	cmd.Flags().StringVarP(&field, "field", "f", "content", "Default field queries run against")
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum number of results per query")
	cmd.Flags().StringVar(&dirImpl, "dir", session.DirScorch, "Directory implementation")
	cmd.Flags().BoolVar(&writable, "write", false, "Open the index writable (takes the write lock)")
	return cmd
}
