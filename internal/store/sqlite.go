package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/opportunity-cli/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS scenarios (
	id         TEXT PRIMARY KEY,
	category   TEXT NOT NULL,
	record     TEXT NOT NULL,
	created_at DATETIME NOT NULL DEFAULT (datetime('now')),
	updated_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS ranking_batches (
	id             TEXT PRIMARY KEY,
	strategy       TEXT NOT NULL,
	client_count   INTEGER NOT NULL,
	scenario_count INTEGER NOT NULL,
	opportunities  TEXT NOT NULL,
	created_at     DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_scenarios_category ON scenarios(category);
CREATE INDEX IF NOT EXISTS idx_ranking_batches_strategy ON ranking_batches(strategy);
CREATE INDEX IF NOT EXISTS idx_ranking_batches_created_at ON ranking_batches(created_at);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) SaveScenario(ctx context.Context, scenario model.EnrichedScenario) error {
	recordJSON, err := json.Marshal(scenario)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal scenario")
	}
	now := time.Now().UTC()

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO scenarios (id, category, record, created_at, updated_at) VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT (id) DO UPDATE SET category = excluded.category, record = excluded.record, updated_at = excluded.updated_at`,
		scenario.ID, scenario.Category, string(recordJSON), now, now,
	)
	return eris.Wrapf(err, "sqlite: save scenario %s", scenario.ID)
}

func (s *SQLiteStore) GetScenario(ctx context.Context, id string) (*model.EnrichedScenario, error) {
	var recordJSON string
	err := s.db.QueryRowContext(ctx,
		`SELECT record FROM scenarios WHERE id = ?`, id,
	).Scan(&recordJSON)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get scenario %s", id)
	}

	var es model.EnrichedScenario
	if err := json.Unmarshal([]byte(recordJSON), &es); err != nil {
		return nil, eris.Wrap(err, "sqlite: unmarshal scenario")
	}
	return &es, nil
}

func (s *SQLiteStore) ListScenarios(ctx context.Context, category string) ([]model.EnrichedScenario, error) {
	query := `SELECT record FROM scenarios`
	var args []any
	if category != "" {
		query += ` WHERE category = ?`
		args = append(args, category)
	}
	query += ` ORDER BY id ASC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list scenarios")
	}
	defer rows.Close()

	var scenarios []model.EnrichedScenario
	for rows.Next() {
		var recordJSON string
		if err := rows.Scan(&recordJSON); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan scenario")
		}
		var es model.EnrichedScenario
		if err := json.Unmarshal([]byte(recordJSON), &es); err != nil {
			return nil, eris.Wrap(err, "sqlite: unmarshal scenario")
		}
		scenarios = append(scenarios, es)
	}
	return scenarios, eris.Wrap(rows.Err(), "sqlite: list scenarios iterate")
}

func (s *SQLiteStore) DeleteScenario(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM scenarios WHERE id = ?`, id)
	if err != nil {
		return eris.Wrapf(err, "sqlite: delete scenario %s", id)
	}
	return checkRowsAffected(res, "scenario", id)
}

func (s *SQLiteStore) SaveBatch(ctx context.Context, batch *Batch) error {
	if batch.ID == "" {
		batch.ID = uuid.New().String()
	}
	if batch.CreatedAt.IsZero() {
		batch.CreatedAt = time.Now().UTC()
	}

	oppsJSON, err := json.Marshal(batch.Opportunities)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal opportunities")
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO ranking_batches (id, strategy, client_count, scenario_count, opportunities, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		batch.ID, batch.Strategy, batch.ClientCount, batch.ScenarioCount, string(oppsJSON), batch.CreatedAt,
	)
	return eris.Wrapf(err, "sqlite: insert batch %s", batch.ID)
}

func (s *SQLiteStore) GetBatch(ctx context.Context, batchID string) (*Batch, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, strategy, client_count, scenario_count, opportunities, created_at
		 FROM ranking_batches WHERE id = ?`,
		batchID,
	)

	var b Batch
	var oppsJSON string
	err := row.Scan(&b.ID, &b.Strategy, &b.ClientCount, &b.ScenarioCount, &oppsJSON, &b.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, eris.Errorf("batch not found: %s", batchID)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get batch %s", batchID)
	}
	if err := json.Unmarshal([]byte(oppsJSON), &b.Opportunities); err != nil {
		return nil, eris.Wrap(err, "sqlite: unmarshal opportunities")
	}
	return &b, nil
}

func (s *SQLiteStore) ListBatches(ctx context.Context, filter BatchFilter) ([]Batch, error) {
	query := `SELECT id, strategy, client_count, scenario_count, opportunities, created_at
	          FROM ranking_batches WHERE 1=1`
	var args []any

	if filter.Strategy != "" {
		query += ` AND strategy = ?`
		args = append(args, filter.Strategy)
	}
	query += ` ORDER BY created_at DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += ` LIMIT ?`
	args = append(args, limit)

	if filter.Offset > 0 {
		query += ` OFFSET ?`
		args = append(args, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list batches")
	}
	defer rows.Close()

	var batches []Batch
	for rows.Next() {
		var b Batch
		var oppsJSON string
		if err := rows.Scan(&b.ID, &b.Strategy, &b.ClientCount, &b.ScenarioCount, &oppsJSON, &b.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan batch")
		}
		if err := json.Unmarshal([]byte(oppsJSON), &b.Opportunities); err != nil {
			return nil, eris.Wrap(err, "sqlite: unmarshal opportunities")
		}
		batches = append(batches, b)
	}
	return batches, eris.Wrap(rows.Err(), "sqlite: list batches iterate")
}

// helpers

func checkRowsAffected(res sql.Result, entity, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "rows affected")
	}
	if n == 0 {
		return eris.Errorf("%s not found: %s", entity, id)
	}
	return nil
}
