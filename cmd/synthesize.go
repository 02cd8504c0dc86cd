package main

import (
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/opportunity-cli/internal/loader"
	"github.com/sells-group/opportunity-cli/internal/model"
	"github.com/sells-group/opportunity-cli/internal/synthesis"
)

var synthesizeCmd = &cobra.Command{
	Use:   "synthesize",
	Short: "Merge raw scenario candidates into a validated scenario set",
	Long: `Validate raw scenario candidates, deduplicate near-identical records,
boost confidence for multi-source corroboration, and emit the surviving
scenarios ordered by actionability.

Examples:
  # Synthesize candidates from several research passes
  synthesize --candidates raw.json --output scenarios.yaml

  # Raise the confidence floor
  synthesize --candidates raw.json --min-confidence 0.7

  # Persist the survivors to the store
  synthesize --candidates raw.json --save`,
	RunE: runSynthesize,
}

func init() {
	f := synthesizeCmd.Flags()
	f.String("candidates", "", "raw candidate file (.json, .yaml)")
	f.Float64("min-confidence", -1, "minimum overall confidence to keep (overrides config)")
	f.String("output", "", "output file path, .json or .yaml (default: stdout as JSON)")
	f.Bool("save", false, "save surviving scenarios to the store")

	_ = synthesizeCmd.MarkFlagRequired("candidates")

	rootCmd.AddCommand(synthesizeCmd)
}

func runSynthesize(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log := zap.L().With(zap.String("command", "synthesize"))

	candidatesPath, _ := cmd.Flags().GetString("candidates")
	candidates, err := loader.LoadCandidates(candidatesPath)
	if err != nil {
		return eris.Wrap(err, "synthesize: load candidates")
	}

	minConfidence := cfg.Synthesis.MinConfidence
	if v, _ := cmd.Flags().GetFloat64("min-confidence"); v >= 0 {
		minConfidence = v
	}

	synth := synthesis.New(cfg.Synthesis)
	scenarios := synth.Synthesize(candidates, minConfidence)

	log.Info("synthesis complete",
		zap.Int("candidates", len(candidates)),
		zap.Int("survivors", len(scenarios)),
		zap.Float64("min_confidence", minConfidence),
	)

	if err := writeScenarios(cmd, scenarios); err != nil {
		return err
	}

	if save, _ := cmd.Flags().GetBool("save"); save {
		st, err := openStore(ctx)
		if err != nil {
			return eris.Wrap(err, "synthesize: open store")
		}
		defer st.Close()

		for _, es := range scenarios {
			if err := st.SaveScenario(ctx, es); err != nil {
				return eris.Wrap(err, "synthesize: save scenario")
			}
		}
		fmt.Printf("Saved %d scenarios\n", len(scenarios))
	}

	return nil
}

func writeScenarios(cmd *cobra.Command, scenarios []model.EnrichedScenario) error {
	outputPath, _ := cmd.Flags().GetString("output")

	if outputPath == "" {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return eris.Wrap(enc.Encode(scenarios), "synthesize: encode scenarios")
	}

	var (
		data []byte
		err  error
	)
	if hasYAMLExt(outputPath) {
		data, err = yaml.Marshal(map[string]any{"scenarios": scenarios})
	} else {
		data, err = json.MarshalIndent(map[string]any{"scenarios": scenarios}, "", "  ")
	}
	if err != nil {
		return eris.Wrap(err, "synthesize: marshal scenarios")
	}
	return eris.Wrapf(os.WriteFile(outputPath, data, 0o644), "synthesize: write %s", outputPath)
}

func hasYAMLExt(path string) bool {
	n := len(path)
	return (n > 5 && path[n-5:] == ".yaml") || (n > 4 && path[n-4:] == ".yml")
}
