package session

import (
	"time"

	"github.com/google/uuid"
)

// Session is one interview attempt. Configuration fields (owner, domain,
// difficulty, duration) are fixed at creation; only Status and the two
// lifecycle timestamps change afterwards, and only through the Lifecycle.
type Session struct {
	ID          string     `json:"id"`
	OwnerID     string     `json:"ownerId"`
	Domain      string     `json:"domain"`
	Difficulty  string     `json:"difficulty"`
	DurationMin int        `json:"durationMin"`
	Status      Status     `json:"status"`
	CreatedAt   time.Time  `json:"createdAt"`
	StartedAt   *time.Time `json:"startedAt,omitempty"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`
}

func New(ownerID, domain, difficulty string, durationMin int) *Session {
	return &Session{
		ID:          uuid.New().String(),
		OwnerID:     ownerID,
		Domain:      domain,
		Difficulty:  difficulty,
		DurationMin: durationMin,
		Status:      Created,
		CreatedAt:   time.Now().UTC(),
	}
}

// Clone returns a deep copy, duplicating the timestamp pointers so the
// copy can be mutated independently of the original.
func (s *Session) Clone() *Session {
	c := *s
	if s.StartedAt != nil {
		t := *s.StartedAt
		c.StartedAt = &t
	}
	if s.CompletedAt != nil {
		t := *s.CompletedAt
		c.CompletedAt = &t
	}
	return &c
}

// TimestampPatch carries the lifecycle timestamps touched by a status
// transition. Nil fields are left untouched by the repository.
type TimestampPatch struct {
	StartedAt   *time.Time
	CompletedAt *time.Time
}
