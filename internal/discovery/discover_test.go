package discovery

import (
	"context"
	"testing"
	"time"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/sells-group/opportunity-cli/internal/config"
	"github.com/sells-group/opportunity-cli/internal/resilience"
	"github.com/sells-group/opportunity-cli/pkg/anthropic"
)

func init() {
	zap.ReplaceGlobals(zap.NewNop())
}

// mockClient returns a canned response and records the request.
type mockClient struct {
	resp *anthropic.MessageResponse
	err  error
	req  anthropic.MessageRequest
}

func (m *mockClient) CreateMessage(_ context.Context, req anthropic.MessageRequest) (*anthropic.MessageResponse, error) {
	m.req = req
	return m.resp, m.err
}

func textResponse(text string) *anthropic.MessageResponse {
	return &anthropic.MessageResponse{
		ID:      "msg_test",
		Content: []anthropic.ContentBlock{{Type: "text", Text: text}},
		Usage:   anthropic.TokenUsage{InputTokens: 100, OutputTokens: 200},
	}
}

const scenarioJSON = `{
  "scenarios": [
    {
      "id": "roth-window",
      "name": "Roth Conversion Window",
      "category": "tax",
      "criteria": [{"field": "age", "operator": "gte", "value": 55, "weight": 2}],
      "revenue_formula": {"formula_type": "flat_fee", "base_rate": 1500},
      "priority": "high",
      "temporal_context": {"urgency": "short_term"},
      "actionability": {"specificity_score": 80, "urgency_score": 55, "impact_score": 70, "feasibility_score": 90},
      "confidence": {"overall_confidence": 0.9}
    },
    {
      "id": "hsa-maximization",
      "name": "HSA Maximization",
      "category": "tax",
      "criteria": [{"field": "annual_income", "operator": "gt", "value": 100000, "weight": 1}],
      "revenue_formula": {"formula_type": "flat_fee", "base_rate": 500},
      "priority": "medium",
      "temporal_context": {"urgency": "medium_term"},
      "actionability": {"specificity_score": 60, "urgency_score": 40, "impact_score": 50, "feasibility_score": 95},
      "confidence": {"overall_confidence": 0.6}
    }
  ]
}`

func testDiscoverer(ai anthropic.Client, cfg config.DiscoveryConfig) *Discoverer {
	if cfg.RequestsPerMinute == 0 {
		cfg.RequestsPerMinute = 6000 // keep tests from waiting on the limiter
	}
	d := New(ai, "claude-sonnet-4-5-20250929", cfg)
	d.now = func() time.Time { return time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC) }
	return d
}

func TestDiscover_ParsesAndStampsCandidates(t *testing.T) {
	mock := &mockClient{resp: textResponse(scenarioJSON)}
	d := testDiscoverer(mock, config.DiscoveryConfig{
		SourceName:        "claude_discovery",
		SourceReliability: 0.7,
	})

	candidates, err := d.Discover(context.Background(), "200 clients, mostly pre-retirees")
	require.NoError(t, err)
	require.Len(t, candidates, 2)

	first := candidates[0]
	assert.Equal(t, "roth-window", first.ID)
	require.Len(t, first.Sources, 1)
	assert.Equal(t, "claude_discovery", first.Sources[0].Name)
	assert.Equal(t, "llm", first.Sources[0].Type)
	assert.Equal(t, 0.7, first.Sources[0].ReliabilityScore)
	assert.Equal(t, time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC), first.Sources[0].RetrievedAt)

	// Stated 0.9 exceeds the source reliability and gets aligned down.
	assert.Equal(t, 0.7, first.Confidence.SourceReliability)
	assert.Equal(t, 0.7, first.Confidence.OverallConfidence)
	assert.Zero(t, first.Confidence.CrossReferenceCount)

	// A claim within the reliability bound is preserved.
	assert.Equal(t, 0.6, candidates[1].Confidence.OverallConfidence)
}

func TestDiscover_RequestShape(t *testing.T) {
	mock := &mockClient{resp: textResponse(scenarioJSON)}
	d := testDiscoverer(mock, config.DiscoveryConfig{MaxCandidates: 5, SourceName: "s", SourceReliability: 0.7})

	_, err := d.Discover(context.Background(), "summary text")
	require.NoError(t, err)

	assert.Equal(t, "claude-sonnet-4-5-20250929", mock.req.Model)
	require.Len(t, mock.req.System, 1)
	assert.Contains(t, mock.req.System[0].Text, "ONLY valid JSON")
	require.Len(t, mock.req.Messages, 1)
	assert.Contains(t, mock.req.Messages[0].Content, "summary text")
	assert.Contains(t, mock.req.Messages[0].Content, "up to 5 scenarios")
}

func TestDiscover_TruncatesToMaxCandidates(t *testing.T) {
	mock := &mockClient{resp: textResponse(scenarioJSON)}
	d := testDiscoverer(mock, config.DiscoveryConfig{MaxCandidates: 1, SourceName: "s", SourceReliability: 0.7})

	candidates, err := d.Discover(context.Background(), "book")
	require.NoError(t, err)
	require.Len(t, candidates, 1)
	assert.Equal(t, "roth-window", candidates[0].ID)
}

func TestDiscover_SurroundingProse(t *testing.T) {
	mock := &mockClient{resp: textResponse("Here are the scenarios:\n" + scenarioJSON + "\nLet me know if you need more.")}
	d := testDiscoverer(mock, config.DiscoveryConfig{SourceName: "s", SourceReliability: 0.7})

	candidates, err := d.Discover(context.Background(), "book")
	require.NoError(t, err)
	assert.Len(t, candidates, 2)
}

func TestDiscover_Errors(t *testing.T) {
	t.Run("api error", func(t *testing.T) {
		mock := &mockClient{err: eris.New("rate limited")}
		d := testDiscoverer(mock, config.DiscoveryConfig{SourceName: "s", SourceReliability: 0.7})
		_, err := d.Discover(context.Background(), "book")
		assert.Error(t, err)
	})

	t.Run("no text block", func(t *testing.T) {
		mock := &mockClient{resp: &anthropic.MessageResponse{Content: []anthropic.ContentBlock{{Type: "tool_use"}}}}
		d := testDiscoverer(mock, config.DiscoveryConfig{SourceName: "s", SourceReliability: 0.7})
		_, err := d.Discover(context.Background(), "book")
		assert.Error(t, err)
	})

	t.Run("no JSON in response", func(t *testing.T) {
		mock := &mockClient{resp: textResponse("I could not produce scenarios.")}
		d := testDiscoverer(mock, config.DiscoveryConfig{SourceName: "s", SourceReliability: 0.7})
		_, err := d.Discover(context.Background(), "book")
		assert.Error(t, err)
	})

	t.Run("malformed JSON", func(t *testing.T) {
		mock := &mockClient{resp: textResponse(`{"scenarios": [}`)}
		d := testDiscoverer(mock, config.DiscoveryConfig{SourceName: "s", SourceReliability: 0.7})
		_, err := d.Discover(context.Background(), "book")
		assert.Error(t, err)
	})
}

// flakyClient fails with a transient error until failures calls have been made.
type flakyClient struct {
	failures int
	calls    int
	resp     *anthropic.MessageResponse
}

func (m *flakyClient) CreateMessage(_ context.Context, _ anthropic.MessageRequest) (*anthropic.MessageResponse, error) {
	m.calls++
	if m.calls <= m.failures {
		return nil, resilience.NewTransientError(eris.New("overloaded"), 529)
	}
	return m.resp, nil
}

func TestDiscover_RetriesTransientErrors(t *testing.T) {
	mock := &flakyClient{failures: 2, resp: textResponse(scenarioJSON)}
	d := testDiscoverer(mock, config.DiscoveryConfig{SourceName: "s", SourceReliability: 0.7, MaxRetries: 3})
	d.retry.InitialBackoff = time.Millisecond
	d.retry.JitterFraction = 0

	candidates, err := d.Discover(context.Background(), "book")
	require.NoError(t, err)
	assert.Equal(t, 3, mock.calls)
	assert.Len(t, candidates, 2)
}

func TestDiscover_DoesNotRetryPermanentErrors(t *testing.T) {
	mock := &mockClient{err: eris.New("invalid request")}
	d := testDiscoverer(mock, config.DiscoveryConfig{SourceName: "s", SourceReliability: 0.7, MaxRetries: 3})

	_, err := d.Discover(context.Background(), "book")
	assert.Error(t, err)
}

func TestParseCandidates(t *testing.T) {
	scenarios, err := parseCandidates(scenarioJSON)
	require.NoError(t, err)
	assert.Len(t, scenarios, 2)

	_, err = parseCandidates("no braces here")
	assert.Error(t, err)
}
