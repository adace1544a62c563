package cmd

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/seekerlabs/indexscope/internal/history"
	"github.com/seekerlabs/indexscope/internal/output"
)

func newHistoryCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recently opened indexes and executed queries",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			store, err := history.Open(cfg.History.Path, slog.Default())
			if err != nil {
				return err
			}
			defer store.Close()

			indexes, err := store.RecentIndexes(limit)
			if err != nil {
				return err
			}
			queries, err := store.RecentQueries(limit)
			if err != nil {
				return err
			}

			output.NewWriter(cmd.OutOrStdout()).PrintHistory(indexes, queries)
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 10, "Entries to show per section")
	return cmd
}
