package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/registralia/borme-cli/internal/model"
	"github.com/registralia/borme-cli/internal/store"
)

var (
	runsStatus string
	runsLimit  int
)

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "Inspect ingestion runs",
}

var runsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recent ingestion runs",
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := initStore(cmd.Context())
		if err != nil {
			return err
		}
		defer st.Close()

		runs, err := st.ListRuns(cmd.Context(), store.RunFilter{
			Status: model.RunStatus(runsStatus),
			Limit:  runsLimit,
		})
		if err != nil {
			return err
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tSTATUS\tFROM\tTO\tDOCS\tFAILED\tCREATED")
		for _, r := range runs {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d/%d\t%d\t%s\n",
				r.ID, r.Status,
				r.FromDate.Format("2006-01-02"), r.ToDate.Format("2006-01-02"),
				r.DocumentsProcessed, r.DocumentsTotal, r.DocumentsFailed,
				r.CreatedAt.Format("2006-01-02 15:04"))
		}
		return w.Flush()
	},
}

var runsShowCmd = &cobra.Command{
	Use:   "show <run-id>",
	Short: "Show one run's ledger and anomalies",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := initStore(cmd.Context())
		if err != nil {
			return err
		}
		defer st.Close()

		ctx := cmd.Context()
		run, err := st.GetRun(ctx, args[0])
		if err != nil {
			return err
		}

		fmt.Printf("run %s\n  status: %s\n  range: %s .. %s\n  documents: %d/%d (%d failed)\n",
			run.ID, run.Status,
			run.FromDate.Format("2006-01-02"), run.ToDate.Format("2006-01-02"),
			run.DocumentsProcessed, run.DocumentsTotal, run.DocumentsFailed)
		if run.Error != "" {
			fmt.Printf("  error: %s\n", run.Error)
		}

		entries, err := st.ListDocEntries(ctx, run.ID)
		if err != nil {
			return err
		}
		if len(entries) > 0 {
			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "\nGAZETTE\tPROVINCE\tSTATUS\tACTS\tERROR")
			for _, e := range entries {
				fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\n",
					e.GazetteID, e.Province, e.Status, e.ActCount, e.Error)
			}
			if err := w.Flush(); err != nil {
				return err
			}
		}

		anomalies, err := st.ListAnomalies(ctx, run.ID)
		if err != nil {
			return err
		}
		if len(anomalies) > 0 {
			fmt.Printf("\n%d anomalies:\n", len(anomalies))
			for _, a := range anomalies {
				fmt.Printf("  [%s] company=%d act=%d: %s\n", a.Kind, a.CompanyID, a.ActID, a.Detail)
			}
		}
		return nil
	},
}

func init() {
	runsListCmd.Flags().StringVar(&runsStatus, "status", "", "filter by status (pending|running|completed|partial|failed)")
	runsListCmd.Flags().IntVar(&runsLimit, "limit", 20, "max runs to list")
	runsCmd.AddCommand(runsListCmd)
	runsCmd.AddCommand(runsShowCmd)
	rootCmd.AddCommand(runsCmd)
}
