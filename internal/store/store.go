// Package store persists the historical puzzle archive. Examples feed
// category hints for new sessions and grow as completed sessions are
// archived.
package store

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/sells-group/jackpot-predict/internal/model"
)

// ExampleFilter specifies criteria for listing puzzle examples.
type ExampleFilter struct {
	Category string `json:"category,omitempty"`
	Limit    int    `json:"limit,omitempty"`
	Offset   int    `json:"offset,omitempty"`
}

// Store defines the persistence interface for the puzzle archive.
// Answers are unique; saving an example for an existing answer refreshes
// its clues and solve time.
type Store interface {
	SaveExample(ctx context.Context, ex model.PuzzleExample) (string, error)
	SaveExamples(ctx context.Context, examples []model.PuzzleExample) (int64, error)
	GetExample(ctx context.Context, id string) (*model.PuzzleExample, error)
	ListExamples(ctx context.Context, filter ExampleFilter) ([]model.PuzzleExample, error)
	CountExamples(ctx context.Context) (int, error)

	Migrate(ctx context.Context) error
	Close() error
}

// Config selects and tunes the storage backend.
type Config struct {
	Driver      string      `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string      `yaml:"database_url" mapstructure:"database_url"`
	Pool        *PoolConfig `yaml:"pool" mapstructure:"pool"`
}

// Open creates a Store for the configured driver. An empty driver defaults
// to sqlite.
func Open(ctx context.Context, cfg Config) (Store, error) {
	switch cfg.Driver {
	case "", "sqlite":
		dsn := cfg.DatabaseURL
		if dsn == "" {
			dsn = "jackpot.db"
		}
		return NewSQLite(dsn)
	case "postgres":
		return NewPostgres(ctx, cfg.DatabaseURL, cfg.Pool)
	default:
		return nil, eris.Errorf("unsupported store driver: %s", cfg.Driver)
	}
}
