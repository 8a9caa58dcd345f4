package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/cognicore/cognacy/pkg/cognacy/internalerr"
	"github.com/cognicore/cognacy/pkg/cognacy/model"
	"github.com/cognicore/cognacy/pkg/cognacy/store"
)

// sqliteStore implements the Store interface using SQLite
type sqliteStore struct {
	db *sql.DB
}

// OpenSQLite opens a SQLite database with WAL mode enabled
func OpenSQLite(ctx context.Context, path string) (store.Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	// Enable WAL mode for better concurrency
	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, err
	}

	if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, err
	}

	if err := initSchema(ctx, db); err != nil {
		db.Close()
		return nil, err
	}

	return &sqliteStore{db: db}, nil
}

// Close closes the database connection
func (s *sqliteStore) Close() error {
	return s.db.Close()
}

// initSchema creates tables if they don't exist
func initSchema(ctx context.Context, db *sql.DB) error {
	schema := `
CREATE TABLE IF NOT EXISTS models (
	id TEXT PRIMARY KEY,
	kind TEXT NOT NULL,
	symbols INTEGER NOT NULL,
	created_at TEXT NOT NULL,
	body TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_models_kind ON models(kind, id);

CREATE TABLE IF NOT EXISTS runs (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	model_id TEXT NOT NULL,
	dataset TEXT,
	pairs INTEGER NOT NULL,
	epochs INTEGER NOT NULL,
	batches INTEGER NOT NULL,
	pruned INTEGER NOT NULL,
	converged INTEGER NOT NULL,
	fscore REAL NOT NULL DEFAULT 0,
	created_at TEXT NOT NULL,
	FOREIGN KEY(model_id) REFERENCES models(id) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_runs_model ON runs(model_id);
`
	_, err := db.ExecContext(ctx, schema)
	return err
}

// SaveModel stores a model, assigning it an ID if it has none
func (s *sqliteStore) SaveModel(ctx context.Context, m *model.Model) (string, error) {
	if err := m.Validate(); err != nil {
		return "", err
	}
	if m.ID == "" {
		m.ID = model.NewID()
	}
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now().UTC()
	}

	body, err := json.Marshal(m)
	if err != nil {
		return "", err
	}

	_, err = s.db.ExecContext(ctx, `
INSERT INTO models (id, kind, symbols, created_at, body)
VALUES (?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
	kind=excluded.kind,
	symbols=excluded.symbols,
	created_at=excluded.created_at,
	body=excluded.body;
`, m.ID, string(m.Kind), len([]rune(m.Symbols)), m.CreatedAt.Format(time.RFC3339Nano), string(body))
	if err != nil {
		return "", fmt.Errorf("save model %s: %w", m.ID, err)
	}
	return m.ID, nil
}

func decodeModel(body string) (*model.Model, error) {
	var m model.Model
	if err := json.Unmarshal([]byte(body), &m); err != nil {
		return nil, fmt.Errorf("decode stored model: %v: %w", err, internalerr.ErrBadModel)
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return &m, nil
}

// GetModel loads a model by ID
func (s *sqliteStore) GetModel(ctx context.Context, id string) (*model.Model, error) {
	var body string
	err := s.db.QueryRowContext(ctx, `SELECT body FROM models WHERE id = ?`, id).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("model %s: %w", id, internalerr.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return decodeModel(body)
}

// LatestModel returns the most recently saved model of a kind
func (s *sqliteStore) LatestModel(ctx context.Context, kind model.Kind) (*model.Model, error) {
	var body string
	err := s.db.QueryRowContext(ctx, `
SELECT body FROM models
WHERE kind = ?
ORDER BY id DESC
LIMIT 1;
`, string(kind)).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("latest %s model: %w", kind, internalerr.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return decodeModel(body)
}

// ListModels returns all models, newest first
func (s *sqliteStore) ListModels(ctx context.Context) ([]store.Summary, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT id, kind, symbols, created_at
FROM models
ORDER BY id DESC;
`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []store.Summary
	for rows.Next() {
		var sum store.Summary
		var kind, created string
		if err := rows.Scan(&sum.ID, &kind, &sum.Symbols, &created); err != nil {
			return nil, err
		}
		sum.Kind = model.Kind(kind)
		if sum.CreatedAt, err = time.Parse(time.RFC3339Nano, created); err != nil {
			return nil, err
		}
		out = append(out, sum)
	}
	return out, rows.Err()
}

// DeleteModel removes a model and its runs
func (s *sqliteStore) DeleteModel(ctx context.Context, id string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM runs WHERE model_id = ?`, id); err != nil {
		return err
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM models WHERE id = ?`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("model %s: %w", id, internalerr.ErrNotFound)
	}
	return tx.Commit()
}

// SaveRun records a training run for a stored model
func (s *sqliteStore) SaveRun(ctx context.Context, r store.Run) error {
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now().UTC()
	}
	converged := 0
	if r.Converged {
		converged = 1
	}

	_, err := s.db.ExecContext(ctx, `
INSERT INTO runs (model_id, dataset, pairs, epochs, batches, pruned, converged, fscore, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?);
`, r.ModelID, r.Dataset, r.Pairs, r.Epochs, r.Batches, r.Pruned, converged, r.FScore, r.CreatedAt.Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("save run for %s: %w", r.ModelID, err)
	}
	return nil
}

// RunsForModel returns the runs of a model in insertion order
func (s *sqliteStore) RunsForModel(ctx context.Context, modelID string) ([]store.Run, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT model_id, dataset, pairs, epochs, batches, pruned, converged, fscore, created_at
FROM runs
WHERE model_id = ?
ORDER BY id;
`, modelID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []store.Run
	for rows.Next() {
		var r store.Run
		var converged int
		var created string
		if err := rows.Scan(&r.ModelID, &r.Dataset, &r.Pairs, &r.Epochs, &r.Batches, &r.Pruned, &converged, &r.FScore, &created); err != nil {
			return nil, err
		}
		r.Converged = converged != 0
		if r.CreatedAt, err = time.Parse(time.RFC3339Nano, created); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
