package storage

import (
	"context"
	"fmt"

	"github.com/interviewlab/backend/internal/session"
)

// Repository is the persistence surface for interview session records.
// session.Lifecycle consumes the FindByID/UpdateStatus subset; the HTTP
// API uses the rest.
type Repository interface {
	Create(ctx context.Context, s *session.Session) error

	FindByID(ctx context.Context, id string) (*session.Session, error)

	// UpdateStatus persists the new status plus whichever timestamps the
	// patch carries, and returns the updated record. Unknown ids fail
	// with session.ErrSessionNotFound.
	UpdateStatus(ctx context.Context, id string, status session.Status, patch session.TimestampPatch) (*session.Session, error)

	ListByOwner(ctx context.Context, ownerID string) ([]*session.Session, error)

	Close() error
}

// Open builds a repository for the configured driver.
func Open(driver, dsn string) (Repository, error) {
	switch driver {
	case "", "memory":
		return NewMemoryRepository(), nil
	case "sqlite":
		return NewSQLiteRepository(dsn)
	case "postgres":
		return NewPostgresRepository(dsn)
	default:
		return nil, fmt.Errorf("unknown storage driver %q", driver)
	}
}
