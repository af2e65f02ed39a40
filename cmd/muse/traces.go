package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/tjfontaine/clockwork-muse/internal/config"
	"github.com/tjfontaine/clockwork-muse/internal/storage"
	"github.com/tjfontaine/clockwork-muse/internal/storage/sqlite"
	"github.com/tjfontaine/clockwork-muse/internal/trace"
)

func newTracesCmd(root *rootOptions) *cobra.Command {
	var (
		dbPath string
		opts   storage.ListOptions
		kind   string
	)

	cmd := &cobra.Command{
		Use:   "traces",
		Short: "List recorded LLM and search calls from the trace database",
		RunE: func(cmd *cobra.Command, args []string) error {
			if dbPath == "" {
				cfg, err := config.LoadFile(root.settings)
				if err != nil {
					return err
				}
				dbPath = cfg.Trace.DB
			}
			if dbPath == "" {
				return fmt.Errorf("no trace database: set TRACE_DB or pass --db")
			}

			store, err := sqlite.New(dbPath)
			if err != nil {
				return err
			}
			defer store.Close()

			opts.Kind = trace.Kind(kind)
			records, err := store.List(cmd.Context(), opts)
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "TIME\tKIND\tNAME\tMODEL\tELAPSED\tSTATUS")
			for _, rec := range records {
				status := "ok"
				if rec.Failed() {
					status = trace.Truncate(rec.Err, 60)
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%.2fs\t%s\n",
					rec.Time.Format("2006-01-02 15:04:05"), rec.Kind, rec.Name, rec.Model,
					rec.Elapsed.Seconds(), status)
			}
			return w.Flush()
		},
	}

	cmd.Flags().StringVar(&dbPath, "db", "", "trace database path (defaults to TRACE_DB)")
	cmd.Flags().StringVar(&kind, "kind", "", "only show llm or search records")
	cmd.Flags().BoolVar(&opts.FailedOnly, "failed", false, "only show failed calls")
	cmd.Flags().IntVar(&opts.Limit, "limit", storage.DefaultListLimit, "maximum records to show")
	return cmd
}
