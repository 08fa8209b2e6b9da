package storage

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"

	"github.com/interviewlab/backend/internal/session"
)

type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, err
	}

	repo := &SQLiteRepository{db: db}
	if err := repo.createTables(); err != nil {
		db.Close()
		return nil, err
	}

	return repo, nil
}

func (r *SQLiteRepository) createTables() error {
	schema := `
	CREATE TABLE IF NOT EXISTS interview_sessions (
		id TEXT PRIMARY KEY,
		owner_id TEXT NOT NULL,
		domain TEXT NOT NULL,
		difficulty TEXT NOT NULL,
		duration_min INTEGER NOT NULL,
		status TEXT NOT NULL,
		created_at DATETIME NOT NULL,
		started_at DATETIME,
		completed_at DATETIME
	);

	CREATE INDEX IF NOT EXISTS idx_owner_id ON interview_sessions(owner_id);
	`

	_, err := r.db.Exec(schema)
	return err
}

func (r *SQLiteRepository) Create(ctx context.Context, s *session.Session) error {
	query := `
		INSERT INTO interview_sessions (id, owner_id, domain, difficulty, duration_min, status, created_at, started_at, completed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
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

func (r *SQLiteRepository) FindByID(ctx context.Context, id string) (*session.Session, error) {
	query := `
		SELECT id, owner_id, domain, difficulty, duration_min, status, created_at, started_at, completed_at
		FROM interview_sessions
		WHERE id = ?
	`

	return scanSession(r.db.QueryRowContext(ctx, query, id))
}

func (r *SQLiteRepository) UpdateStatus(ctx context.Context, id string, status session.Status, patch session.TimestampPatch) (*session.Session, error) {
	query := `
		UPDATE interview_sessions
		SET status = ?,
		    started_at = COALESCE(?, started_at),
		    completed_at = COALESCE(?, completed_at)
		WHERE id = ?
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

func (r *SQLiteRepository) ListByOwner(ctx context.Context, ownerID string) ([]*session.Session, error) {
	query := `
		SELECT id, owner_id, domain, difficulty, duration_min, status, created_at, started_at, completed_at
		FROM interview_sessions
		WHERE owner_id = ?
		ORDER BY created_at DESC
	`

	rows, err := r.db.QueryContext(ctx, query, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanSessions(rows)
}

func (r *SQLiteRepository) Close() error {
	return r.db.Close()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSession(row rowScanner) (*session.Session, error) {
	var (
		s           session.Session
		statusName  string
		startedAt   sql.NullTime
		completedAt sql.NullTime
	)

	err := row.Scan(
		&s.ID,
		&s.OwnerID,
		&s.Domain,
		&s.Difficulty,
		&s.DurationMin,
		&statusName,
		&s.CreatedAt,
		&startedAt,
		&completedAt,
	)
	if err == sql.ErrNoRows {
		return nil, session.ErrSessionNotFound
	}
	if err != nil {
		return nil, err
	}

	status, ok := session.ParseStatus(statusName)
	if !ok {
		return nil, fmt.Errorf("corrupt status %q for session %s", statusName, s.ID)
	}
	s.Status = status
	if startedAt.Valid {
		t := startedAt.Time
		s.StartedAt = &t
	}
	if completedAt.Valid {
		t := completedAt.Time
		s.CompletedAt = &t
	}
	return &s, nil
}

func scanSessions(rows *sql.Rows) ([]*session.Session, error) {
	var records []*session.Session

	for rows.Next() {
		rec, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}

	return records, rows.Err()
}
