package main

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/aleister1102/designdiff/internal/datastore"
	"github.com/spf13/cobra"
)

type historyOptions struct {
	limit      int
	scenario   string
	jsonOutput bool
}

func newHistoryCmd(rootFlags *rootFlags) *cobra.Command {
	opts := &historyOptions{}

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recorded runs, or the outcomes of one scenario over time",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := loadApp(rootFlags, "")
			if err != nil {
				return err
			}
			store, err := datastore.NewHistoryStore(app.cfg.StorageConfig, app.logger)
			if err != nil {
				return err
			}
			defer store.Close()

			ctx := cmd.Context()
			out := cmd.OutOrStdout()

			if opts.scenario != "" {
				records, err := store.ScenarioHistory(ctx, opts.scenario, opts.limit)
				if err != nil {
					return err
				}
				if opts.jsonOutput {
					return json.NewEncoder(out).Encode(records)
				}
				tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
				fmt.Fprintln(tw, "RUN\tSTARTED\tSTATUS\tDIFF PIXELS\tDURATION\tERROR")
				for _, r := range records {
					fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\t%s\n", r.RunID, r.StartedAt.Format(time.RFC3339),
						r.Status, r.DiffPixels, r.Duration.Round(time.Millisecond), r.Error)
				}
				return tw.Flush()
			}

			runs, err := store.ListRuns(ctx, opts.limit)
			if err != nil {
				return err
			}
			if opts.jsonOutput {
				return json.NewEncoder(out).Encode(runs)
			}
			if len(runs) == 0 {
				fmt.Fprintln(out, "No runs recorded yet.")
				return nil
			}
			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "RUN\tSTARTED\tPASSED\tFAILED\tINCONCLUSIVE\tREPORT")
			for _, r := range runs {
				fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%d\t%s\n", r.RunID, r.StartedAt.Format(time.RFC3339),
					r.Passed, r.Failed, r.Inconclusive, r.ReportPath)
			}
			return tw.Flush()
		},
	}

	cmd.Flags().IntVarP(&opts.limit, "limit", "n", 20, "Number of entries to show")
	cmd.Flags().StringVarP(&opts.scenario, "scenario", "s", "", "Show the history of one scenario")
	cmd.Flags().BoolVar(&opts.jsonOutput, "json", false, "Output in JSON format")

	return cmd
}
