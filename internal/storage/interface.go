package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/prasenjit/route-explorer/internal/models"
)

// Store types accepted by Open
const (
	TypeMemory   = "memory"
	TypeFile     = "file"
	TypeMySQL    = "mysql"
	TypePostgres = "postgres"
)

// HistoryStore defines the interface for test history persistence
type HistoryStore interface {
	// Append stores e and assigns its ID
	Append(ctx context.Context, e *models.TestLogEntry) error
	Get(ctx context.Context, id int64) (*models.TestLogEntry, error)
	// List returns entries most recent first. limit <= 0 returns everything.
	List(ctx context.Context, limit, offset int) ([]*models.TestLogEntry, error)
	Truncate(ctx context.Context) error
	// DeleteOlderThan removes entries created before cutoff
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
	Stats(ctx context.Context, now time.Time) (*models.HistoryStats, error)
	Close() error
}

// Open creates the store selected by typ
func Open(ctx context.Context, typ, path, dsn string) (HistoryStore, error) {
	switch typ {
	case "", TypeMemory:
		return NewMemoryStore(), nil
	case TypeFile:
		return NewFileStore(path)
	case TypeMySQL, TypePostgres:
		return NewSQLStore(ctx, typ, dsn)
	default:
		return nil, fmt.Errorf("unsupported storage type: %s", typ)
	}
}

func notFound(id int64) error {
	return models.NewNotFoundError("Log entry not found: %d", id)
}
