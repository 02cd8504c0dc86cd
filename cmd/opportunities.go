package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/opportunity-cli/internal/report"
	"github.com/sells-group/opportunity-cli/internal/store"
)

var opportunitiesCmd = &cobra.Command{
	Use:   "opportunities",
	Short: "Inspect saved ranking batches",
	Long: `List persisted ranking batches or show the opportunities of one batch.

Examples:
  opportunities
  opportunities --strategy revenue --limit 5
  opportunities --batch 4f6b1c3e-... --format csv`,
	RunE: runOpportunities,
}

func init() {
	f := opportunitiesCmd.Flags()
	f.String("batch", "", "show a single batch by id")
	f.String("strategy", "", "list filter: ranking strategy")
	f.Int("limit", 20, "list filter: maximum batches to show")
	f.String("format", "table", "batch output format: table, markdown, csv, json")

	rootCmd.AddCommand(opportunitiesCmd)
}

func runOpportunities(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	st, err := openStore(ctx)
	if err != nil {
		return eris.Wrap(err, "opportunities: open store")
	}
	defer st.Close()

	if batchID, _ := cmd.Flags().GetString("batch"); batchID != "" {
		batch, err := st.GetBatch(ctx, batchID)
		if err != nil {
			return eris.Wrap(err, "opportunities: get batch")
		}

		formatName, _ := cmd.Flags().GetString("format")
		format, err := report.ParseFormat(formatName)
		if err != nil {
			return err
		}
		return report.Render(os.Stdout, batch.Opportunities, format)
	}

	strategy, _ := cmd.Flags().GetString("strategy")
	limit, _ := cmd.Flags().GetInt("limit")

	batches, err := st.ListBatches(ctx, store.BatchFilter{Strategy: strategy, Limit: limit})
	if err != nil {
		return eris.Wrap(err, "opportunities: list batches")
	}
	if len(batches) == 0 {
		fmt.Println("No batches found.")
		return nil
	}

	fmt.Printf("%-38s %-12s %8s %10s %6s  %s\n",
		"BATCH", "STRATEGY", "CLIENTS", "SCENARIOS", "OPPS", "CREATED")
	for _, b := range batches {
		fmt.Printf("%-38s %-12s %8d %10d %6d  %s\n",
			b.ID, b.Strategy, b.ClientCount, b.ScenarioCount,
			len(b.Opportunities), b.CreatedAt.Format("2006-01-02 15:04:05"))
	}
	return nil
}
