package session

import (
	"encoding/json"
	"fmt"
)

type Status int

const (
	Created Status = iota
	InProgress
	Completed
)

var statusNames = map[Status]string{
	Created:    "CREATED",
	InProgress: "IN_PROGRESS",
	Completed:  "COMPLETED",
}

var statusFromName = map[string]Status{
	"CREATED":     Created,
	"IN_PROGRESS": InProgress,
	"COMPLETED":   Completed,
}

// transitions is the full set of legal moves. Keeping it in one table
// rather than spread across conditionals makes the lifecycle auditable
// and means an intermediate state is a one-line addition.
var transitions = map[Status][]Status{
	Created:    {InProgress},
	InProgress: {Completed},
	Completed:  {},
}

func (s Status) String() string {
	if name, ok := statusNames[s]; ok {
		return name
	}
	return "unknown"
}

// ParseStatus maps a wire string to a Status. The second return is false
// for anything outside the three known states.
func ParseStatus(name string) (Status, bool) {
	s, ok := statusFromName[name]
	return s, ok
}

// AllowedNext returns the statuses legally reachable from s.
func (s Status) AllowedNext() []Status {
	return transitions[s]
}

// CanTransitionTo reports whether moving from s to next is legal.
func (s Status) CanTransitionTo(next Status) bool {
	for _, allowed := range transitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

func (s Status) IsTerminal() bool {
	return len(transitions[s]) == 0
}

func (s Status) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

func (s *Status) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err != nil {
		return err
	}
	v, ok := statusFromName[name]
	if !ok {
		return fmt.Errorf("unknown session status %q", name)
	}
	*s = v
	return nil
}
