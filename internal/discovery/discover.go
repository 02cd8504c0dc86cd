// Package discovery asks Claude for opportunity scenario candidates. It
// produces raw enriched candidates for the synthesizer; it performs no
// validation, boosting, or ranking of its own.
package discovery

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/sells-group/opportunity-cli/internal/config"
	"github.com/sells-group/opportunity-cli/internal/cost"
	"github.com/sells-group/opportunity-cli/internal/model"
	"github.com/sells-group/opportunity-cli/internal/resilience"
	"github.com/sells-group/opportunity-cli/pkg/anthropic"
)

// discoveryPrompt is the system prompt for scenario discovery.
const discoveryPrompt = `You are a financial advisory analyst proposing opportunity scenarios for a book of business. Each scenario names measurable client criteria and a revenue formula.

Respond with ONLY valid JSON, no other text, in this shape:
{"scenarios": [{
  "id": "short-slug",
  "name": "...",
  "description": "...",
  "category": "retirement|tax|insurance|estate|investment",
  "criteria": [{"field": "age", "operator": "gte", "value": 55, "weight": 2}],
  "revenue_formula": {"formula_type": "percentage", "base_rate": 0.01, "multiplier_field": "portfolio.total_value"},
  "priority": "high|medium|low",
  "estimated_time_hours": 2,
  "temporal_context": {"urgency": "immediate|short_term|medium_term|long_term", "rationale": "..."},
  "actionability": {"specificity_score": 80, "urgency_score": 70, "impact_score": 75, "feasibility_score": 90, "recommended_action": "...", "talking_points": ["..."]},
  "confidence": {"overall_confidence": 0.7, "rationale": "..."}
}]}

Operators: gt, lt, gte, lte, eq, contains, in_range. Formula types: flat_fee, percentage, tiered, aum_based.`

// discoveryResponse mirrors the JSON Claude returns.
type discoveryResponse struct {
	Scenarios []model.EnrichedScenario `json:"scenarios"`
}

// Discoverer issues rate-limited discovery calls against the model API.
type Discoverer struct {
	ai      anthropic.Client
	model   string
	cfg     config.DiscoveryConfig
	limiter *rate.Limiter
	retry   resilience.RetryConfig
	costs   *cost.Calculator
	now     func() time.Time
}

// New creates a Discoverer.
func New(ai anthropic.Client, modelID string, cfg config.DiscoveryConfig) *Discoverer {
	rpm := cfg.RequestsPerMinute
	if rpm <= 0 {
		rpm = 30
	}
	retryCfg := resilience.DefaultRetryConfig()
	if cfg.MaxRetries > 0 {
		retryCfg.MaxAttempts = cfg.MaxRetries
	}
	retryCfg.ShouldRetry = func(err error) bool {
		return anthropic.IsRetryable(err) || resilience.IsTransient(err)
	}
	retryCfg.OnRetry = resilience.RetryLogger("anthropic", "create_message")
	return &Discoverer{
		ai:      ai,
		model:   modelID,
		cfg:     cfg,
		limiter: rate.NewLimiter(rate.Limit(rpm/60), 1),
		retry:   retryCfg,
		costs:   cost.NewCalculator(cost.DefaultRates()),
		now:     time.Now,
	}
}

// Discover asks Claude for scenario candidates given a free-form description
// of the client book. Returned candidates carry this discoverer's source
// record; the synthesizer validates and filters them.
func (d *Discoverer) Discover(ctx context.Context, bookSummary string) ([]model.EnrichedScenario, error) {
	log := zap.L().With(zap.String("phase", "discover"))

	if err := d.limiter.Wait(ctx); err != nil {
		return nil, eris.Wrap(err, "discover: rate limit wait")
	}

	userMsg := fmt.Sprintf("Client book summary:\n%s\n\nPropose up to %d scenarios.", bookSummary, d.maxCandidates())

	resp, err := resilience.DoVal(ctx, d.retry, func(ctx context.Context) (*anthropic.MessageResponse, error) {
		return d.ai.CreateMessage(ctx, anthropic.MessageRequest{
			Model:     d.model,
			MaxTokens: 4096,
			System:    []anthropic.SystemBlock{{Text: discoveryPrompt}},
			Messages:  []anthropic.Message{{Role: "user", Content: userMsg}},
		})
	})
	if err != nil {
		return nil, eris.Wrap(err, "discover: claude request")
	}
	log.Info("token usage",
		zap.String("model", d.model),
		zap.Int64("input_tokens", resp.Usage.InputTokens),
		zap.Int64("output_tokens", resp.Usage.OutputTokens),
		zap.Float64("estimated_cost_usd", d.costs.Claude(d.model, resp.Usage.InputTokens, resp.Usage.OutputTokens)),
	)

	var text string
	for _, block := range resp.Content {
		if block.Type == "text" {
			text = block.Text
			break
		}
	}
	if text == "" {
		return nil, eris.New("discover: empty claude response")
	}

	candidates, err := parseCandidates(text)
	if err != nil {
		return nil, err
	}

	// Stamp our source record on each candidate; confidence bookkeeping that
	// depends on it is aligned here, not validated (synthesis does that).
	source := model.Source{
		Name:             d.cfg.SourceName,
		Type:             "llm",
		ReliabilityScore: d.cfg.SourceReliability,
		RetrievedAt:      d.now().UTC(),
	}
	for i := range candidates {
		candidates[i].Sources = []model.Source{source}
		candidates[i].Confidence.SourceReliability = source.ReliabilityScore
		candidates[i].Confidence.CrossReferenceCount = 0
		if candidates[i].Confidence.OverallConfidence > source.ReliabilityScore {
			candidates[i].Confidence.OverallConfidence = source.ReliabilityScore
		}
	}

	if limit := d.maxCandidates(); len(candidates) > limit {
		candidates = candidates[:limit]
	}

	log.Info("discovery complete", zap.Int("candidates", len(candidates)))
	return candidates, nil
}

func (d *Discoverer) maxCandidates() int {
	if d.cfg.MaxCandidates > 0 {
		return d.cfg.MaxCandidates
	}
	return 20
}

// parseCandidates extracts the JSON object from the response text, which may
// have surrounding prose despite the prompt.
func parseCandidates(text string) ([]model.EnrichedScenario, error) {
	jsonStart := strings.Index(text, "{")
	jsonEnd := strings.LastIndex(text, "}")
	if jsonStart < 0 || jsonEnd < 0 || jsonEnd <= jsonStart {
		return nil, eris.Errorf("discover: no JSON in response: %.200s", text)
	}

	var parsed discoveryResponse
	if err := json.Unmarshal([]byte(text[jsonStart:jsonEnd+1]), &parsed); err != nil {
		return nil, eris.Wrap(err, "discover: parse response JSON")
	}
	return parsed.Scenarios, nil
}
