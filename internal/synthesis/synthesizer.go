// Package synthesis deduplicates and confidence-scores opportunity scenarios
// discovered from multiple independent sources.
package synthesis

import (
	"sort"

	"go.uber.org/zap"

	"github.com/sells-group/opportunity-cli/internal/config"
	"github.com/sells-group/opportunity-cli/internal/model"
)

// Synthesizer merges raw enriched-scenario candidates into a validated,
// deduplicated, confidence-boosted catalog. It never mutates its inputs;
// every adjusted scenario is a fresh record.
type Synthesizer struct {
	cfg config.SynthesisConfig
}

// New creates a Synthesizer. Zero-value tunables fall back to the defaults
// the config package ships.
func New(cfg config.SynthesisConfig) *Synthesizer {
	if cfg.BoostPerSource == 0 {
		cfg.BoostPerSource = 0.1
	}
	if cfg.BoostCap == 0 {
		cfg.BoostCap = 0.2
	}
	if cfg.DedupPrefixLen == 0 {
		cfg.DedupPrefixLen = 40
	}
	return &Synthesizer{cfg: cfg}
}

// Synthesize validates, deduplicates, cross-reference-boosts, filters, and
// orders the given candidates. Candidates that fail validation are dropped
// and logged; they never abort the batch. The result is ordered descending
// by actionability composite score, ties broken by scenario ID ascending.
func (s *Synthesizer) Synthesize(candidates []model.EnrichedScenario, minConfidence float64) []model.EnrichedScenario {
	log := zap.L().With(zap.String("stage", "synthesis"))

	// 1. Construct-and-validate each candidate.
	valid := make([]model.EnrichedScenario, 0, len(candidates))
	for i := range candidates {
		es, err := model.NewEnrichedScenario(candidates[i])
		if err != nil {
			log.Warn("dropping invalid candidate",
				zap.String("scenario_id", candidates[i].ID),
				zap.Error(err),
			)
			continue
		}
		valid = append(valid, es)
	}

	// 2. Deduplicate: within a key group keep the highest-confidence record.
	best := make(map[string]model.EnrichedScenario)
	var order []string
	for _, es := range valid {
		key := dedupKey(es.Category, es.Name, s.cfg.DedupPrefixLen)
		cur, seen := best[key]
		if !seen {
			order = append(order, key)
			best[key] = es
			continue
		}
		if es.Confidence.OverallConfidence > cur.Confidence.OverallConfidence {
			best[key] = es
		}
	}

	// 3. Cross-reference boost: distinct source names per key group, counted
	// over the original validated pool, not the deduplicated survivors.
	sourcesByKey := make(map[string]map[string]bool)
	for _, es := range valid {
		key := dedupKey(es.Category, es.Name, s.cfg.DedupPrefixLen)
		if sourcesByKey[key] == nil {
			sourcesByKey[key] = make(map[string]bool)
		}
		for _, src := range es.Sources {
			sourcesByKey[key][src.Name] = true
		}
	}

	result := make([]model.EnrichedScenario, 0, len(best))
	for _, key := range order {
		es := best[key]
		if n := len(sourcesByKey[key]); n > 1 {
			es = s.applyBoost(es, n, log)
		}
		if es.Confidence.OverallConfidence < minConfidence {
			log.Debug("dropping low-confidence scenario",
				zap.String("scenario_id", es.ID),
				zap.Float64("confidence", es.Confidence.OverallConfidence),
				zap.Float64("min_confidence", minConfidence),
			)
			continue
		}
		result = append(result, es)
	}

	// 5. Deterministic order.
	sort.SliceStable(result, func(i, j int) bool {
		ci, cj := result[i].Actionability.CompositeScore, result[j].Actionability.CompositeScore
		if ci != cj {
			return ci > cj
		}
		return result[i].ID < result[j].ID
	})

	log.Info("synthesis complete",
		zap.Int("candidates", len(candidates)),
		zap.Int("valid", len(valid)),
		zap.Int("deduplicated", len(best)),
		zap.Int("returned", len(result)),
	)
	return result
}

// applyBoost returns a copy of the scenario with its cross-reference count
// and confidence raised for multi-source agreement. A boost that would
// violate the cross-field invariants is rejected and confidence stays put.
func (s *Synthesizer) applyBoost(es model.EnrichedScenario, distinctSources int, log *zap.Logger) model.EnrichedScenario {
	// Already accounted for: re-running synthesis on its own output must not
	// compound the boost.
	if es.Confidence.CrossReferenceCount >= distinctSources {
		return es
	}

	boost := float64(distinctSources-1) * s.cfg.BoostPerSource
	if boost > s.cfg.BoostCap {
		boost = s.cfg.BoostCap
	}

	boosted := es
	boosted.Confidence.CrossReferenceCount = distinctSources
	boosted.Confidence.OverallConfidence = es.Confidence.OverallConfidence + boost
	if boosted.Confidence.OverallConfidence > 1.0 {
		boosted.Confidence.OverallConfidence = 1.0
	}

	if violations := boosted.Violations(); len(violations) > 0 {
		log.Warn("rejecting confidence boost that would violate invariants",
			zap.String("scenario_id", es.ID),
			zap.Int("distinct_sources", distinctSources),
			zap.Strings("violations", violations),
		)
		return es
	}
	return boosted
}
