package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/sells-group/opportunity-cli/internal/model"
)

// Pool is the subset of pgxpool.Pool the store uses. Tests substitute a
// pgxmock pool.
type Pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Ping(ctx context.Context) error
	Close()
}

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool Pool
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool}, nil
}

// NewPostgresWithPool wraps an existing pool. Used by tests.
func NewPostgresWithPool(pool Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS scenarios (
	id         TEXT PRIMARY KEY,
	category   TEXT NOT NULL,
	record     JSONB NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS ranking_batches (
	id             TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	strategy       TEXT NOT NULL,
	client_count   INTEGER NOT NULL,
	scenario_count INTEGER NOT NULL,
	opportunities  JSONB NOT NULL,
	created_at     TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_scenarios_category ON scenarios(category);
CREATE INDEX IF NOT EXISTS idx_ranking_batches_strategy ON ranking_batches(strategy);
CREATE INDEX IF NOT EXISTS idx_ranking_batches_created_at ON ranking_batches(created_at);
`

func (s *PostgresStore) Ping(ctx context.Context) error {
	return eris.Wrap(s.pool.Ping(ctx), "postgres: ping")
}

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func (s *PostgresStore) SaveScenario(ctx context.Context, scenario model.EnrichedScenario) error {
	recordJSON, err := json.Marshal(scenario)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal scenario")
	}
	now := time.Now().UTC()

	_, err = s.pool.Exec(ctx,
		`INSERT INTO scenarios (id, category, record, created_at, updated_at) VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (id) DO UPDATE SET category = $2, record = $3, updated_at = $5`,
		scenario.ID, scenario.Category, recordJSON, now, now,
	)
	return eris.Wrapf(err, "postgres: save scenario %s", scenario.ID)
}

func (s *PostgresStore) GetScenario(ctx context.Context, id string) (*model.EnrichedScenario, error) {
	var recordJSON []byte
	err := s.pool.QueryRow(ctx,
		`SELECT record FROM scenarios WHERE id = $1`, id,
	).Scan(&recordJSON)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, eris.Wrapf(err, "postgres: get scenario %s", id)
	}

	var es model.EnrichedScenario
	if err := json.Unmarshal(recordJSON, &es); err != nil {
		return nil, eris.Wrap(err, "postgres: unmarshal scenario")
	}
	return &es, nil
}

func (s *PostgresStore) ListScenarios(ctx context.Context, category string) ([]model.EnrichedScenario, error) {
	query := `SELECT record FROM scenarios`
	var args []any
	if category != "" {
		query += ` WHERE category = $1`
		args = append(args, category)
	}
	query += ` ORDER BY id ASC`

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list scenarios")
	}
	defer rows.Close()

	var scenarios []model.EnrichedScenario
	for rows.Next() {
		var recordJSON []byte
		if err := rows.Scan(&recordJSON); err != nil {
			return nil, eris.Wrap(err, "postgres: scan scenario")
		}
		var es model.EnrichedScenario
		if err := json.Unmarshal(recordJSON, &es); err != nil {
			return nil, eris.Wrap(err, "postgres: unmarshal scenario")
		}
		scenarios = append(scenarios, es)
	}
	return scenarios, eris.Wrap(rows.Err(), "postgres: list scenarios iterate")
}

func (s *PostgresStore) DeleteScenario(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM scenarios WHERE id = $1`, id)
	if err != nil {
		return eris.Wrapf(err, "postgres: delete scenario %s", id)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("scenario not found: %s", id)
	}
	return nil
}

func (s *PostgresStore) SaveBatch(ctx context.Context, batch *Batch) error {
	if batch.ID == "" {
		batch.ID = uuid.New().String()
	}
	if batch.CreatedAt.IsZero() {
		batch.CreatedAt = time.Now().UTC()
	}

	oppsJSON, err := json.Marshal(batch.Opportunities)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal opportunities")
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO ranking_batches (id, strategy, client_count, scenario_count, opportunities, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		batch.ID, batch.Strategy, batch.ClientCount, batch.ScenarioCount, oppsJSON, batch.CreatedAt,
	)
	return eris.Wrapf(err, "postgres: insert batch %s", batch.ID)
}

func (s *PostgresStore) GetBatch(ctx context.Context, batchID string) (*Batch, error) {
	var b Batch
	var oppsJSON []byte

	err := s.pool.QueryRow(ctx,
		`SELECT id, strategy, client_count, scenario_count, opportunities, created_at
		 FROM ranking_batches WHERE id = $1`,
		batchID,
	).Scan(&b.ID, &b.Strategy, &b.ClientCount, &b.ScenarioCount, &oppsJSON, &b.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, eris.Errorf("batch not found: %s", batchID)
		}
		return nil, eris.Wrapf(err, "postgres: get batch %s", batchID)
	}
	if err := json.Unmarshal(oppsJSON, &b.Opportunities); err != nil {
		return nil, eris.Wrap(err, "postgres: unmarshal opportunities")
	}
	return &b, nil
}

func (s *PostgresStore) ListBatches(ctx context.Context, filter BatchFilter) ([]Batch, error) {
	query := `SELECT id, strategy, client_count, scenario_count, opportunities, created_at
	          FROM ranking_batches WHERE true`
	args := []any{}
	argIdx := 1

	if filter.Strategy != "" {
		query += fmt.Sprintf(` AND strategy = $%d`, argIdx)
		args = append(args, filter.Strategy)
		argIdx++
	}
	query += ` ORDER BY created_at DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += fmt.Sprintf(` LIMIT $%d`, argIdx)
	args = append(args, limit)
	argIdx++

	if filter.Offset > 0 {
		query += fmt.Sprintf(` OFFSET $%d`, argIdx)
		args = append(args, filter.Offset)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list batches")
	}
	defer rows.Close()

	var batches []Batch
	for rows.Next() {
		var b Batch
		var oppsJSON []byte
		if err := rows.Scan(&b.ID, &b.Strategy, &b.ClientCount, &b.ScenarioCount, &oppsJSON, &b.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan batch")
		}
		if err := json.Unmarshal(oppsJSON, &b.Opportunities); err != nil {
			return nil, eris.Wrap(err, "postgres: unmarshal opportunities")
		}
		batches = append(batches, b)
	}
	return batches, eris.Wrap(rows.Err(), "postgres: list batches iterate")
}
