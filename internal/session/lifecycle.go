package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

var ErrSessionNotFound = errors.New("session not found")

// InvalidTransitionError rejects a status change not present in the
// transition table. It carries enough context for a precise client
// message: where the session is now and where it could legally go.
type InvalidTransitionError struct {
	Current   Status
	Requested Status
	Allowed   []Status
}

func (e *InvalidTransitionError) Error() string {
	if len(e.Allowed) == 0 {
		return fmt.Sprintf("cannot move session from %s to %s: %s is terminal", e.Current, e.Requested, e.Current)
	}
	names := make([]string, len(e.Allowed))
	for i, s := range e.Allowed {
		names[i] = s.String()
	}
	return fmt.Sprintf("cannot move session from %s to %s: allowed next: %s", e.Current, e.Requested, strings.Join(names, ", "))
}

// Repository is the narrow persistence surface the lifecycle consumes.
// The full storage interface is a superset of this.
type Repository interface {
	FindByID(ctx context.Context, id string) (*Session, error)
	UpdateStatus(ctx context.Context, id string, status Status, patch TimestampPatch) (*Session, error)
}

// Lifecycle validates and applies status transitions against the fixed
// transition table. It is the only writer of Status, StartedAt and
// CompletedAt.
type Lifecycle struct {
	repo Repository
	now  func() time.Time
}

func NewLifecycle(repo Repository) *Lifecycle {
	return &Lifecycle{
		repo: repo,
		now:  time.Now,
	}
}

// RequestTransition moves the session identified by id to requested.
// Requesting the status the session already has is a no-op success, so
// clients can retry safely without drifting timestamps. Illegal moves
// fail with *InvalidTransitionError and leave the record unchanged.
func (l *Lifecycle) RequestTransition(ctx context.Context, id string, requested Status) (*Session, error) {
	rec, err := l.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if rec.Status == requested {
		return rec, nil
	}

	if !rec.Status.CanTransitionTo(requested) {
		return nil, &InvalidTransitionError{
			Current:   rec.Status,
			Requested: requested,
			Allowed:   rec.Status.AllowedNext(),
		}
	}

	var patch TimestampPatch
	now := l.now().UTC()
	switch requested {
	case InProgress:
		if rec.StartedAt == nil {
			patch.StartedAt = &now
		}
	case Completed:
		if rec.CompletedAt == nil {
			patch.CompletedAt = &now
		}
	}

	return l.repo.UpdateStatus(ctx, id, requested, patch)
}
