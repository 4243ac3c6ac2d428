package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/sells-group/jackpot-predict/internal/db"
	"github.com/sells-group/jackpot-predict/internal/model"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// preparedStatements lists queries to prepare on each new connection for
// faster execution of the most frequently used store operations.
var preparedStatements = map[string]string{
	"save_example": `INSERT INTO puzzle_examples (id, answer, category, clues, solved_at) VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (answer) DO UPDATE SET category = EXCLUDED.category, clues = EXCLUDED.clues, solved_at = EXCLUDED.solved_at
		RETURNING id`,
	"get_example":    `SELECT id, answer, category, clues, solved_at FROM puzzle_examples WHERE id = $1`,
	"count_examples": `SELECT COUNT(*) FROM puzzle_examples`,
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	// Apply pool sizing from config with sensible defaults.
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

	// Prepare frequently-used statements on each new connection.
	pgxCfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		for name, sql := range preparedStatements {
			if _, err := conn.Prepare(ctx, name, sql); err != nil {
				return eris.Wrapf(err, "postgres: prepare %s", name)
			}
		}
		return nil
	}

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

// Pool returns the underlying database pool for subsystems that need
// direct query access.
func (s *PostgresStore) Pool() db.Pool {
	return s.pool
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS puzzle_examples (
	id        TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	answer    TEXT NOT NULL UNIQUE,
	category  TEXT NOT NULL DEFAULT '',
	clues     JSONB NOT NULL,
	solved_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_puzzle_examples_category ON puzzle_examples(category);
CREATE INDEX IF NOT EXISTS idx_puzzle_examples_solved_at ON puzzle_examples(solved_at);
`

func (s *PostgresStore) Ping(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, "SELECT 1")
	return eris.Wrap(err, "postgres: ping")
}

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

// SaveExample upserts one example keyed by answer and returns the row id.
// Saving an answer that already exists keeps the original id.
func (s *PostgresStore) SaveExample(ctx context.Context, ex model.PuzzleExample) (string, error) {
	if ex.Answer == "" {
		return "", eris.New("postgres: save example: answer is required")
	}
	if ex.ID == "" {
		ex.ID = uuid.New().String()
	}
	if ex.SolvedAt.IsZero() {
		ex.SolvedAt = time.Now().UTC()
	}

	cluesJSON, err := json.Marshal(ex.Clues)
	if err != nil {
		return "", eris.Wrap(err, "postgres: marshal clues")
	}

	var id string
	err = s.pool.QueryRow(ctx, preparedStatements["save_example"],
		ex.ID, ex.Answer, ex.Category, cluesJSON, ex.SolvedAt,
	).Scan(&id)
	if err != nil {
		return "", eris.Wrapf(err, "postgres: save example %s", ex.Answer)
	}
	return id, nil
}

// SaveExamples bulk-upserts a batch of examples via a temp table and
// INSERT ... ON CONFLICT.
func (s *PostgresStore) SaveExamples(ctx context.Context, examples []model.PuzzleExample) (int64, error) {
	if len(examples) == 0 {
		return 0, nil
	}

	rows := make([][]any, 0, len(examples))
	for _, ex := range examples {
		if ex.Answer == "" {
			return 0, eris.New("postgres: save examples: answer is required")
		}
		if ex.ID == "" {
			ex.ID = uuid.New().String()
		}
		if ex.SolvedAt.IsZero() {
			ex.SolvedAt = time.Now().UTC()
		}
		cluesJSON, err := json.Marshal(ex.Clues)
		if err != nil {
			return 0, eris.Wrap(err, "postgres: marshal clues")
		}
		rows = append(rows, []any{ex.ID, ex.Answer, ex.Category, cluesJSON, ex.SolvedAt})
	}

	n, err := db.BulkUpsert(ctx, s.pool, db.UpsertConfig{
		Table:        "puzzle_examples",
		Columns:      []string{"id", "answer", "category", "clues", "solved_at"},
		ConflictKeys: []string{"answer"},
		UpdateCols:   []string{"category", "clues", "solved_at"},
	}, rows)
	if err != nil {
		return 0, eris.Wrap(err, "postgres: save examples")
	}
	return n, nil
}

func (s *PostgresStore) GetExample(ctx context.Context, id string) (*model.PuzzleExample, error) {
	var ex model.PuzzleExample
	var cluesJSON []byte

	err := s.pool.QueryRow(ctx, preparedStatements["get_example"], id).
		Scan(&ex.ID, &ex.Answer, &ex.Category, &cluesJSON, &ex.SolvedAt)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get example %s", id)
	}
	if err := json.Unmarshal(cluesJSON, &ex.Clues); err != nil {
		return nil, eris.Wrap(err, "postgres: unmarshal clues")
	}
	return &ex, nil
}

func (s *PostgresStore) ListExamples(ctx context.Context, filter ExampleFilter) ([]model.PuzzleExample, error) {
	query := `SELECT id, answer, category, clues, solved_at FROM puzzle_examples WHERE true`
	args := []any{}
	argIdx := 1

	if filter.Category != "" {
		query += fmt.Sprintf(` AND category = $%d`, argIdx)
		args = append(args, filter.Category)
		argIdx++
	}
	query += ` ORDER BY solved_at DESC`

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
		return nil, eris.Wrap(err, "postgres: list examples")
	}
	defer rows.Close()

	var examples []model.PuzzleExample
	for rows.Next() {
		var ex model.PuzzleExample
		var cluesJSON []byte
		if err := rows.Scan(&ex.ID, &ex.Answer, &ex.Category, &cluesJSON, &ex.SolvedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan example")
		}
		if err := json.Unmarshal(cluesJSON, &ex.Clues); err != nil {
			return nil, eris.Wrap(err, "postgres: unmarshal clues")
		}
		examples = append(examples, ex)
	}
	return examples, eris.Wrap(rows.Err(), "postgres: list examples iterate")
}

func (s *PostgresStore) CountExamples(ctx context.Context) (int, error) {
	var n int
	err := s.pool.QueryRow(ctx, preparedStatements["count_examples"]).Scan(&n)
	return n, eris.Wrap(err, "postgres: count examples")
}
