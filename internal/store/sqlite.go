package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/placewell/placewell/internal/model"
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
CREATE TABLE IF NOT EXISTS evaluations (
	id         TEXT PRIMARY KEY,
	kind       TEXT NOT NULL,
	address    TEXT,
	latitude   REAL NOT NULL,
	longitude  REAL NOT NULL,
	result     TEXT NOT NULL,
	created_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_evaluations_kind ON evaluations(kind);
CREATE INDEX IF NOT EXISTS idx_evaluations_created_at ON evaluations(created_at);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// SaveEvaluation inserts an evaluation row, assigning ID and CreatedAt.
func (s *SQLiteStore) SaveEvaluation(ctx context.Context, eval *model.Evaluation) error {
	if eval == nil {
		return eris.New("sqlite: nil evaluation")
	}
	eval.ID = uuid.New().String()
	eval.CreatedAt = time.Now().UTC()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO evaluations (id, kind, address, latitude, longitude, result, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		eval.ID, string(eval.Kind), eval.Address,
		eval.Site.Latitude, eval.Site.Longitude, eval.Result, eval.CreatedAt,
	)
	if err != nil {
		return eris.Wrap(err, "sqlite: insert evaluation")
	}
	return nil
}

// ListEvaluations returns the most recent evaluations, newest first. An empty
// kind lists all kinds.
func (s *SQLiteStore) ListEvaluations(ctx context.Context, kind model.EvaluationKind, limit int) ([]model.Evaluation, error) {
	if limit <= 0 {
		limit = 50
	}

	query := `SELECT id, kind, COALESCE(address, ''), latitude, longitude, result, created_at
		FROM evaluations`
	args := []any{}
	if kind != "" {
		query += ` WHERE kind = ?`
		args = append(args, string(kind))
	}
	query += ` ORDER BY created_at DESC, id LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list evaluations")
	}
	defer rows.Close() //nolint:errcheck

	var evals []model.Evaluation
	for rows.Next() {
		var e model.Evaluation
		var kindStr string
		if err := rows.Scan(&e.ID, &kindStr, &e.Address,
			&e.Site.Latitude, &e.Site.Longitude, &e.Result, &e.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan evaluation")
		}
		e.Kind = model.EvaluationKind(kindStr)
		evals = append(evals, e)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "sqlite: iterate evaluations")
	}
	return evals, nil
}
