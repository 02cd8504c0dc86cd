package main

import (
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/opportunity-cli/internal/loader"
	"github.com/sells-group/opportunity-cli/internal/model"
	"github.com/sells-group/opportunity-cli/internal/opportunity"
	"github.com/sells-group/opportunity-cli/internal/ranking"
	"github.com/sells-group/opportunity-cli/internal/report"
	"github.com/sells-group/opportunity-cli/internal/store"
)

var matchCmd = &cobra.Command{
	Use:   "match",
	Short: "Match clients against scenarios and rank the opportunities",
	Long: `Evaluate every client against every scenario, estimate revenue for
each match, and rank the resulting opportunities.

Examples:
  # Rank the full book with the composite strategy
  match --clients book.csv --scenarios scenarios.yaml

  # Top 10 by estimated revenue
  match --clients book.csv --scenarios scenarios.yaml --strategy revenue --limit 10

  # Quick wins only, as CSV
  match --clients book.xlsx --scenarios scenarios.yaml --quick-wins --format csv --output wins.csv

  # Persist the ranked batch
  match --clients book.csv --scenarios scenarios.yaml --save`,
	RunE: runMatch,
}

func init() {
	f := matchCmd.Flags()
	f.String("clients", "", "client book file (.csv, .xlsx, .json, .yaml)")
	f.String("scenarios", "", "scenario definitions file (.json, .yaml)")
	f.String("strategy", "", "ranking strategy: revenue, match_score, priority, composite (overrides config)")
	f.Float64("match-weight", 0, "composite match score weight (overrides config)")
	f.Float64("revenue-weight", 0, "composite revenue weight (overrides config)")
	f.Int("limit", 0, "maximum number of results (0=all)")
	f.Float64("min-match", -1, "minimum match score to emit an opportunity (overrides config)")
	f.Float64("min-score", 0, "filter: minimum match score")
	f.Float64("min-revenue", 0, "filter: minimum estimated revenue")
	f.Float64("max-time", 0, "filter: maximum estimated time in hours")
	f.String("priority", "", "filter: comma-separated priorities (high,medium,low)")
	f.String("category", "", "filter: comma-separated scenario categories")
	f.Bool("quick-wins", false, "filter: high match score and low time investment")
	f.Bool("high-value", false, "filter: estimated revenue above the high-value threshold")
	f.String("format", "table", "output format: table, markdown, csv, json")
	f.String("output", "", "output file path (default: stdout)")
	f.Bool("save", false, "save the ranked batch to the store")

	_ = matchCmd.MarkFlagRequired("clients")
	_ = matchCmd.MarkFlagRequired("scenarios")

	rootCmd.AddCommand(matchCmd)
}

func runMatch(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log := zap.L().With(zap.String("command", "match"))

	clientsPath, _ := cmd.Flags().GetString("clients")
	scenariosPath, _ := cmd.Flags().GetString("scenarios")

	clients, err := loader.LoadClients(clientsPath)
	if err != nil {
		return eris.Wrap(err, "match: load clients")
	}
	scenarios, err := loader.LoadScenarios(scenariosPath)
	if err != nil {
		return eris.Wrap(err, "match: load scenarios")
	}
	log.Info("inputs loaded",
		zap.Int("clients", len(clients)),
		zap.Int("scenarios", len(scenarios)),
	)

	threshold := cfg.Engine.MinMatchThreshold
	if v, _ := cmd.Flags().GetFloat64("min-match"); v >= 0 {
		threshold = v
	}
	builder := &opportunity.Builder{
		MinMatchThreshold: threshold,
		Workers:           cfg.Engine.Workers,
	}
	opportunities := builder.BuildAll(ctx, clients, scenarios)

	opportunities = ranking.Filter(opportunities, matchPredicates(cmd)...)

	opts, err := rankOptions(cmd)
	if err != nil {
		return err
	}
	ranked, err := ranking.Rank(opportunities, opts)
	if err != nil {
		return eris.Wrap(err, "match: rank")
	}
	log.Info("ranking complete",
		zap.String("strategy", string(opts.Strategy)),
		zap.Int("opportunities", len(ranked)),
	)

	if err := outputOpportunities(cmd, ranked); err != nil {
		return err
	}

	if save, _ := cmd.Flags().GetBool("save"); save {
		st, err := openStore(ctx)
		if err != nil {
			return eris.Wrap(err, "match: open store")
		}
		defer st.Close()

		batch := &store.Batch{
			Strategy:      string(opts.Strategy),
			ClientCount:   len(clients),
			ScenarioCount: len(scenarios),
			Opportunities: ranked,
		}
		if err := st.SaveBatch(ctx, batch); err != nil {
			return eris.Wrap(err, "match: save batch")
		}
		fmt.Printf("Saved batch %s (%d opportunities)\n", batch.ID, len(ranked))
	}

	return nil
}

// rankOptions builds ranking options from config with CLI flag overrides.
func rankOptions(cmd *cobra.Command) (ranking.Options, error) {
	strategyName := cfg.Engine.Strategy
	if v, _ := cmd.Flags().GetString("strategy"); v != "" {
		strategyName = v
	}
	strategy, err := ranking.ParseStrategy(strategyName)
	if err != nil {
		return ranking.Options{}, err
	}

	opts := ranking.Options{
		Strategy:       strategy,
		MatchWeight:    cfg.Engine.MatchWeight,
		RevenueWeight:  cfg.Engine.RevenueWeight,
		RevenueCeiling: cfg.Engine.RevenueNormalizationCeiling,
		Limit:          cfg.Engine.Limit,
	}
	if v, _ := cmd.Flags().GetFloat64("match-weight"); v > 0 {
		opts.MatchWeight = v
	}
	if v, _ := cmd.Flags().GetFloat64("revenue-weight"); v > 0 {
		opts.RevenueWeight = v
	}
	if v, _ := cmd.Flags().GetInt("limit"); v > 0 {
		opts.Limit = v
	}
	return opts, nil
}

// matchPredicates translates filter flags into ranking predicates.
func matchPredicates(cmd *cobra.Command) []ranking.Predicate {
	var preds []ranking.Predicate

	if v, _ := cmd.Flags().GetFloat64("min-score"); v > 0 {
		preds = append(preds, ranking.MinMatchScore(v))
	}
	if v, _ := cmd.Flags().GetFloat64("min-revenue"); v > 0 {
		preds = append(preds, ranking.MinRevenue(v))
	}
	if v, _ := cmd.Flags().GetFloat64("max-time"); v > 0 {
		preds = append(preds, ranking.MaxTimeHours(v))
	}
	if v, _ := cmd.Flags().GetString("priority"); v != "" {
		var priorities []model.Priority
		for _, p := range splitAndTrim(v) {
			priorities = append(priorities, model.Priority(p))
		}
		preds = append(preds, ranking.PriorityIn(priorities...))
	}
	if v, _ := cmd.Flags().GetString("category"); v != "" {
		preds = append(preds, ranking.CategoryIn(splitAndTrim(v)...))
	}
	if v, _ := cmd.Flags().GetBool("quick-wins"); v {
		preds = append(preds, ranking.QuickWin(
			cfg.Engine.QuickWinScoreThreshold,
			cfg.Engine.QuickWinTimeThresholdHours,
		))
	}
	if v, _ := cmd.Flags().GetBool("high-value"); v {
		preds = append(preds, ranking.HighValue(cfg.Engine.HighValueThreshold))
	}

	return preds
}

// outputOpportunities renders opportunities per the --format/--output flags.
func outputOpportunities(cmd *cobra.Command, opportunities []model.Opportunity) error {
	formatName, _ := cmd.Flags().GetString("format")
	format, err := report.ParseFormat(formatName)
	if err != nil {
		return err
	}

	outputPath, _ := cmd.Flags().GetString("output")
	w := os.Stdout
	if outputPath != "" {
		f, err := os.Create(outputPath)
		if err != nil {
			return eris.Wrapf(err, "match: create output file %s", outputPath)
		}
		defer f.Close() //nolint:errcheck
		w = f
	}

	return report.Render(w, opportunities, format)
}

func splitAndTrim(s string) []string {
	parts := strings.Split(s, ",")
	var result []string
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			result = append(result, p)
		}
	}
	return result
}
