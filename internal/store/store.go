package store

import (
	"context"
	"time"

	"github.com/sells-group/opportunity-cli/internal/model"
)

// Batch is one persisted ranking run: the full ordered result set produced
// by a single invocation of the engine, plus the inputs that shaped it.
type Batch struct {
	ID            string              `json:"id"`
	Strategy      string              `json:"strategy"`
	ClientCount   int                 `json:"client_count"`
	ScenarioCount int                 `json:"scenario_count"`
	Opportunities []model.Opportunity `json:"opportunities"`
	CreatedAt     time.Time           `json:"created_at"`
}

// BatchFilter specifies criteria for listing batches.
type BatchFilter struct {
	Strategy string `json:"strategy,omitempty"`
	Limit    int    `json:"limit,omitempty"`
	Offset   int    `json:"offset,omitempty"`
}

// Store defines the persistence interface for scenarios and ranking runs.
type Store interface {
	// Scenarios
	SaveScenario(ctx context.Context, scenario model.EnrichedScenario) error
	GetScenario(ctx context.Context, id string) (*model.EnrichedScenario, error)
	ListScenarios(ctx context.Context, category string) ([]model.EnrichedScenario, error)
	DeleteScenario(ctx context.Context, id string) error

	// Ranking batches
	SaveBatch(ctx context.Context, batch *Batch) error
	GetBatch(ctx context.Context, batchID string) (*Batch, error)
	ListBatches(ctx context.Context, filter BatchFilter) ([]Batch, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}
