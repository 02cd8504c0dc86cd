// Package loader reads scenario catalogs and client books from local files.
// Structural validation happens here, at load time, so the engine never sees
// an unknown operator or a malformed revenue formula.
package loader

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/opportunity-cli/internal/model"
)

// scenarioFile is the on-disk shape of a scenario catalog.
type scenarioFile struct {
	Scenarios []model.Scenario `json:"scenarios" yaml:"scenarios"`
}

// candidateFile is the on-disk shape of a raw enriched-candidate batch.
type candidateFile struct {
	Candidates []model.EnrichedScenario `json:"candidates" yaml:"candidates"`
}

// LoadScenarios reads and validates a scenario catalog (JSON or YAML by
// extension). Any invalid scenario fails the whole load: a catalog is
// configuration, and configuration errors are surfaced, not skipped.
func LoadScenarios(path string) ([]model.Scenario, error) {
	var f scenarioFile
	if err := readAs(path, &f); err != nil {
		return nil, err
	}
	if len(f.Scenarios) == 0 {
		return nil, eris.Errorf("loader: no scenarios in %s", path)
	}
	for i := range f.Scenarios {
		if err := f.Scenarios[i].Validate(); err != nil {
			return nil, eris.Wrapf(err, "loader: %s", path)
		}
	}
	return f.Scenarios, nil
}

// LoadCandidates reads a raw enriched-candidate batch for the synthesizer.
// Candidates are not validated here; the synthesizer drops invalid ones
// per-record instead of failing the batch.
func LoadCandidates(path string) ([]model.EnrichedScenario, error) {
	var f candidateFile
	if err := readAs(path, &f); err != nil {
		return nil, err
	}
	if len(f.Candidates) == 0 {
		return nil, eris.Errorf("loader: no candidates in %s", path)
	}
	return f.Candidates, nil
}

// readAs unmarshals a JSON or YAML file by extension.
func readAs(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return eris.Wrapf(err, "loader: read %s", path)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, v); err != nil {
			return eris.Wrapf(err, "loader: parse YAML %s", path)
		}
	case ".json":
		if err := json.Unmarshal(data, v); err != nil {
			return eris.Wrapf(err, "loader: parse JSON %s", path)
		}
	default:
		return eris.Errorf("loader: unsupported extension %q (want .json, .yaml, .yml)", filepath.Ext(path))
	}
	return nil
}
