package main

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/opportunity-cli/internal/discovery"
	"github.com/sells-group/opportunity-cli/internal/synthesis"
	"github.com/sells-group/opportunity-cli/pkg/anthropic"
)

var discoverCmd = &cobra.Command{
	Use:   "discover",
	Short: "Discover candidate scenarios with Claude",
	Long: `Generate candidate planning scenarios from a description of the client
book, then run them through synthesis to validate, deduplicate, and rank.

The book summary is read from the --summary file, or from stdin when the
flag is omitted.

Examples:
  discover --summary book_profile.txt --output candidates.yaml
  cat book_profile.txt | discover --save`,
	RunE: runDiscover,
}

func init() {
	f := discoverCmd.Flags()
	f.String("summary", "", "client book summary file (default: stdin)")
	f.Int("max-candidates", 0, "maximum candidates to request (overrides config)")
	f.Bool("raw", false, "emit raw candidates without synthesis")
	f.String("output", "", "output file path, .json or .yaml (default: stdout as JSON)")
	f.Bool("save", false, "save discovered scenarios to the store")

	rootCmd.AddCommand(discoverCmd)
}

func runDiscover(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.Anthropic.Key == "" {
		return eris.New("discover: anthropic.key is required (set OPPORTUNITY_ANTHROPIC_KEY)")
	}

	log := zap.L().With(zap.String("command", "discover"))

	summary, err := readSummary(cmd)
	if err != nil {
		return err
	}
	if summary == "" {
		return eris.New("discover: empty book summary")
	}

	discoveryCfg := cfg.Discovery
	if v, _ := cmd.Flags().GetInt("max-candidates"); v > 0 {
		discoveryCfg.MaxCandidates = v
	}

	ai := anthropic.NewClient(cfg.Anthropic.Key)
	discoverer := discovery.New(ai, cfg.Anthropic.Model, discoveryCfg)

	candidates, err := discoverer.Discover(ctx, summary)
	if err != nil {
		return eris.Wrap(err, "discover: generate candidates")
	}
	log.Info("candidates generated", zap.Int("count", len(candidates)))

	scenarios := candidates
	if raw, _ := cmd.Flags().GetBool("raw"); !raw {
		synth := synthesis.New(cfg.Synthesis)
		scenarios = synth.Synthesize(candidates, cfg.Synthesis.MinConfidence)
		log.Info("synthesis complete",
			zap.Int("candidates", len(candidates)),
			zap.Int("survivors", len(scenarios)),
		)
	}

	if err := writeScenarios(cmd, scenarios); err != nil {
		return err
	}

	if save, _ := cmd.Flags().GetBool("save"); save {
		st, err := openStore(ctx)
		if err != nil {
			return eris.Wrap(err, "discover: open store")
		}
		defer st.Close()

		for _, es := range scenarios {
			if err := st.SaveScenario(ctx, es); err != nil {
				return eris.Wrap(err, "discover: save scenario")
			}
		}
		fmt.Printf("Saved %d scenarios\n", len(scenarios))
	}

	return nil
}

func readSummary(cmd *cobra.Command) (string, error) {
	path, _ := cmd.Flags().GetString("summary")
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return "", eris.Wrapf(err, "discover: read summary %s", path)
		}
		return string(data), nil
	}

	data, err := io.ReadAll(os.Stdin)
	if err != nil {
		return "", eris.Wrap(err, "discover: read summary from stdin")
	}
	return string(data), nil
}
