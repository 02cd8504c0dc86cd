package main

import (
	"fmt"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/opportunity-cli/internal/loader"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate scenario and client book files",
	Long: `Check scenario definitions and client book files for structural
problems before running a match: unknown operators, malformed revenue
formulas, missing identifiers, unreadable rows.

Examples:
  validate --scenarios scenarios.yaml
  validate --scenarios scenarios.yaml --clients book.csv`,
	RunE: runValidate,
}

func init() {
	f := validateCmd.Flags()
	f.String("scenarios", "", "scenario definitions file (.json, .yaml)")
	f.String("clients", "", "client book file (.csv, .xlsx, .json, .yaml)")

	rootCmd.AddCommand(validateCmd)
}

func runValidate(cmd *cobra.Command, _ []string) error {
	scenariosPath, _ := cmd.Flags().GetString("scenarios")
	clientsPath, _ := cmd.Flags().GetString("clients")

	if scenariosPath == "" && clientsPath == "" {
		return eris.New("validate: provide --scenarios and/or --clients")
	}

	if scenariosPath != "" {
		scenarios, err := loader.LoadScenarios(scenariosPath)
		if err != nil {
			return eris.Wrap(err, "validate: scenarios")
		}
		fmt.Printf("OK: %d scenarios in %s\n", len(scenarios), scenariosPath)
	}

	if clientsPath != "" {
		clients, err := loader.LoadClients(clientsPath)
		if err != nil {
			return eris.Wrap(err, "validate: clients")
		}
		var missingID int
		for i := range clients {
			if clients[i].ID == "" {
				missingID++
			}
		}
		fmt.Printf("OK: %d clients in %s\n", len(clients), clientsPath)
		if missingID > 0 {
			fmt.Printf("Warning: %d clients have no id\n", missingID)
		}
	}

	return nil
}
