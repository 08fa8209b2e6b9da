package storage

import (
	"context"
	"database/sql"

	_ "github.com/lib/pq"

	"github.com/interviewlab/backend/internal/session"
)

type PostgresRepository struct {
	db *sql.DB
}

func NewPostgresRepository(connStr string) (*PostgresRepository, error) {
	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, err
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, err
	}

	repo := &PostgresRepository{db: db}
	if err := repo.createTables(); err != nil {
		db.Close()
		return nil, err
	}

	return repo, nil
}

func (r *PostgresRepository) createTables() error {
	schema := `
	CREATE TABLE IF NOT EXISTS interview_sessions (
		id TEXT PRIMARY KEY,
		owner_id TEXT NOT NULL,
		domain TEXT NOT NULL,
		difficulty TEXT NOT NULL,
		duration_min INTEGER NOT NULL,
		status TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL,
		started_at TIMESTAMPTZ,
		completed_at TIMESTAMPTZ
	);

	CREATE INDEX IF NOT EXISTS idx_owner_id ON interview_sessions(owner_id);
	`

	_, err := r.db.Exec(schema)
	return err
}

func (r *PostgresRepository) Create(ctx context.Context, s *session.Session) error {
	query := `
		INSERT INTO interview_sessions (id, owner_id, domain, difficulty, duration_min, status, created_at, started_at, completed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	_, err := r.db.ExecContext(
		ctx,
		query,
		s.ID,
		s.OwnerID,
		s.Domain,
		s.Difficulty,
		s.DurationMin,
		s.Status.String(),
		s.CreatedAt,
		s.StartedAt,
		s.CompletedAt,
	)

	return err
}

func (r *PostgresRepository) FindByID(ctx context.Context, id string) (*session.Session, error) {
	query := `
		SELECT id, owner_id, domain, difficulty, duration_min, status, created_at, started_at, completed_at
		FROM interview_sessions
		WHERE id = $1
	`

	return scanSession(r.db.QueryRowContext(ctx, query, id))
}

func (r *PostgresRepository) UpdateStatus(ctx context.Context, id string, status session.Status, patch session.TimestampPatch) (*session.Session, error) {
	query := `
		UPDATE interview_sessions
		SET status = $1,
		    started_at = COALESCE($2, started_at),
		    completed_at = COALESCE($3, completed_at)
		WHERE id = $4
	`

	res, err := r.db.ExecContext(ctx, query, status.String(), patch.StartedAt, patch.CompletedAt, id)
	if err != nil {
		return nil, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		return nil, session.ErrSessionNotFound
	}

	return r.FindByID(ctx, id)
}

func (r *PostgresRepository) ListByOwner(ctx context.Context, ownerID string) ([]*session.Session, error) {
	query := `
		SELECT id, owner_id, domain, difficulty, duration_min, status, created_at, started_at, completed_at
		FROM interview_sessions
		WHERE owner_id = $1
		ORDER BY created_at DESC
	`

	rows, err := r.db.QueryContext(ctx, query, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanSessions(rows)
}

func (r *PostgresRepository) Close() error {
	return r.db.Close()
}
