package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/jackpot-predict/internal/model"
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
CREATE TABLE IF NOT EXISTS puzzle_examples (
	id        TEXT PRIMARY KEY,
	answer    TEXT NOT NULL UNIQUE,
	category  TEXT NOT NULL DEFAULT '',
	clues     TEXT NOT NULL,
	solved_at DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_puzzle_examples_category ON puzzle_examples(category);
CREATE INDEX IF NOT EXISTS idx_puzzle_examples_solved_at ON puzzle_examples(solved_at);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

const sqliteUpsertExample = `
INSERT INTO puzzle_examples (id, answer, category, clues, solved_at)
VALUES (?, ?, ?, ?, ?)
ON CONFLICT(answer) DO UPDATE SET
	category = excluded.category,
	clues = excluded.clues,
	solved_at = excluded.solved_at
RETURNING id`

// SaveExample upserts one example keyed by answer and returns the row id.
// Saving an answer that already exists keeps the original id.
func (s *SQLiteStore) SaveExample(ctx context.Context, ex model.PuzzleExample) (string, error) {
	if ex.Answer == "" {
		return "", eris.New("sqlite: save example: answer is required")
	}
	if ex.ID == "" {
		ex.ID = uuid.New().String()
	}
	if ex.SolvedAt.IsZero() {
		ex.SolvedAt = time.Now().UTC()
	}

	cluesJSON, err := json.Marshal(ex.Clues)
	if err != nil {
		return "", eris.Wrap(err, "sqlite: marshal clues")
	}

	var id string
	err = s.db.QueryRowContext(ctx, sqliteUpsertExample,
		ex.ID, ex.Answer, ex.Category, string(cluesJSON), ex.SolvedAt,
	).Scan(&id)
	if err != nil {
		return "", eris.Wrapf(err, "sqlite: save example %s", ex.Answer)
	}
	return id, nil
}

// SaveExamples upserts a batch of examples in one transaction.
func (s *SQLiteStore) SaveExamples(ctx context.Context, examples []model.PuzzleExample) (int64, error) {
	if len(examples) == 0 {
		return 0, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: save examples: begin tx")
	}
	defer tx.Rollback() //nolint:errcheck

	stmt, err := tx.PrepareContext(ctx, sqliteUpsertExample)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: save examples: prepare")
	}
	defer stmt.Close()

	var n int64
	for _, ex := range examples {
		if ex.Answer == "" {
			return 0, eris.New("sqlite: save examples: answer is required")
		}
		if ex.ID == "" {
			ex.ID = uuid.New().String()
		}
		if ex.SolvedAt.IsZero() {
			ex.SolvedAt = time.Now().UTC()
		}
		cluesJSON, err := json.Marshal(ex.Clues)
		if err != nil {
			return 0, eris.Wrap(err, "sqlite: marshal clues")
		}
		var id string
		if err := stmt.QueryRowContext(ctx, ex.ID, ex.Answer, ex.Category, string(cluesJSON), ex.SolvedAt).Scan(&id); err != nil {
			return 0, eris.Wrapf(err, "sqlite: save example %s", ex.Answer)
		}
		n++
	}

	if err := tx.Commit(); err != nil {
		return 0, eris.Wrap(err, "sqlite: save examples: commit")
	}
	return n, nil
}

func (s *SQLiteStore) GetExample(ctx context.Context, id string) (*model.PuzzleExample, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, answer, category, clues, solved_at FROM puzzle_examples WHERE id = ?`, id)
	ex, err := scanSQLiteExample(row)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get example %s", id)
	}
	return ex, nil
}

func (s *SQLiteStore) ListExamples(ctx context.Context, filter ExampleFilter) ([]model.PuzzleExample, error) {
	query := `SELECT id, answer, category, clues, solved_at FROM puzzle_examples WHERE 1=1`
	args := []any{}

	if filter.Category != "" {
		query += ` AND category = ?`
		args = append(args, filter.Category)
	}
	query += ` ORDER BY solved_at DESC`

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
		return nil, eris.Wrap(err, "sqlite: list examples")
	}
	defer rows.Close()

	var examples []model.PuzzleExample
	for rows.Next() {
		ex, err := scanSQLiteExample(rows)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: scan example")
		}
		examples = append(examples, *ex)
	}
	return examples, eris.Wrap(rows.Err(), "sqlite: list examples iterate")
}

func (s *SQLiteStore) CountExamples(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM puzzle_examples`).Scan(&n)
	return n, eris.Wrap(err, "sqlite: count examples")
}

// scannable covers both *sql.Row and *sql.Rows.
type scannable interface {
	Scan(dest ...any) error
}

func scanSQLiteExample(row scannable) (*model.PuzzleExample, error) {
	var ex model.PuzzleExample
	var cluesJSON string
	if err := row.Scan(&ex.ID, &ex.Answer, &ex.Category, &cluesJSON, &ex.SolvedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(cluesJSON), &ex.Clues); err != nil {
		return nil, eris.Wrap(err, "unmarshal clues")
	}
	return &ex, nil
}
