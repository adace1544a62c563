package cmd

import (
	"encoding/json"
	"log/slog"
	"sort"

	"github.com/spf13/cobra"

	"github.com/seekerlabs/indexscope/internal/bus"
	"github.com/seekerlabs/indexscope/internal/output"
	"github.com/seekerlabs/indexscope/internal/session"
)

func newInfoCmd() *cobra.Command {
	var dirImpl string
	var format string

	cmd := &cobra.Command{
		Use:   "info <index-path>",
		Short: "Show an index's document count and fields",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			b := bus.New()
			defer b.Close()

			manager := session.NewManager(session.ManagerConfig{Bus: b, Logger: slog.Default()})
			reader, err := manager.Open(cmd.Context(), args[0], dirImpl, true)
			if err != nil {
				return err
			}
			defer manager.Close()

			docCount, err := reader.DocCount()
			if err != nil {
				return err
			}
			fields, err := reader.Fields()
			if err != nil {
				return err
			}
			sort.Strings(fields)

			if format == "json" {
				payload := struct {
					Path     string   `json:"path"`
					ReadOnly bool     `json:"read_only"`
					DocCount uint64   `json:"doc_count"`
					Fields   []string `json:"fields"`
				}{args[0], true, docCount, fields}
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(payload)
			}

			out := output.NewWriter(cmd.OutOrStdout())
			out.PrintIndexInfo(args[0], true, docCount, fields)
			return nil
		},
	}

	cmd.Flags().StringVar(&dirImpl, "dir", session.DirScorch, "Directory implementation")
	cmd.Flags().StringVar(&format, "format", "text", "Output format: text, json")
	return cmd
}
