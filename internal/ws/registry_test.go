package ws

import (
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/interviewlab/backend/internal/observability"
)

// fakeTransport records decoded outbound messages. Setting fail makes
// every send error, simulating a connection that is already gone.
type fakeTransport struct {
	id string

	mu   sync.Mutex
	msgs []Message
	fail bool
}

func (f *fakeTransport) ID() string { return f.id }

func (f *fakeTransport) trySend(data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return errClientClosed
	}
	var m Message
	if err := json.Unmarshal(data, &m); err != nil {
		return err
	}
	f.msgs = append(f.msgs, m)
	return nil
}

func (f *fakeTransport) setFail(fail bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fail = fail
}

func (f *fakeTransport) messages() []Message {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]Message, len(f.msgs))
	copy(out, f.msgs)
	return out
}

func (f *fakeTransport) countType(t MessageType) int {
	n := 0
	for _, m := range f.messages() {
		if m.Type == t {
			n++
		}
	}
	return n
}

func newTestRegistry(interval time.Duration, cap int) *Registry {
	log := zerolog.Nop()
	return NewRegistry(interval, cap, &log, observability.NewMetrics())
}

// loopFor fetches the live loop registered for the connection so tests
// can drive ticks directly instead of waiting on real timers.
func loopFor(t *testing.T, r *Registry, connID string) *activeFeedback {
	t.Helper()
	r.mu.Lock()
	defer r.mu.Unlock()
	af, ok := r.active[connID]
	if !ok {
		t.Fatalf("no active loop for %s", connID)
	}
	return af
}

func TestBeginReplacesExistingLoop(t *testing.T) {
	r := newTestRegistry(time.Hour, 10)
	ft := &fakeTransport{id: "conn-1"}

	r.Begin(ft, "s1")
	first := loopFor(t, r, ft.id)

	r.Begin(ft, "s2")

	if got := r.ActiveCount(); got != 1 {
		t.Fatalf("ActiveCount = %d, want 1", got)
	}
	if sessionID, ok := r.Active(ft.id); !ok || sessionID != "s2" {
		t.Errorf("Active = (%q, %v), want (s2, true)", sessionID, ok)
	}

	r.mu.Lock()
	stopped := first.stopped
	r.mu.Unlock()
	if !stopped {
		t.Error("replaced loop was not cancelled")
	}

	// A queued tick from the replaced loop must not emit.
	before := ft.countType(MsgFeedback)
	if r.tick(ft, first) {
		t.Error("tick on a replaced loop should report the loop over")
	}
	if got := ft.countType(MsgFeedback); got != before {
		t.Errorf("replaced loop emitted: %d events, want %d", got, before)
	}
}

func TestTickSequenceIsDeterministic(t *testing.T) {
	r := newTestRegistry(time.Hour, 100)
	ft := &fakeTransport{id: "conn-1"}

	r.Begin(ft, "s1")
	af := loopFor(t, r, ft.id)

	for i := 0; i < 8; i++ {
		if !r.tick(ft, af) {
			t.Fatalf("tick %d ended the loop early", i)
		}
	}

	// The counter increments before selection, so the first emission
	// carries ordinal 1, never the zero event.
	wantSeq := []struct {
		category string
		severity string
	}{
		{"filler", "MEDIUM"},
		{"confidence", "HIGH"},
		{"relevance", "LOW"},
		{"pacing", "MEDIUM"},
		{"filler", "HIGH"},
		{"confidence", "LOW"},
		{"relevance", "MEDIUM"},
		{"pacing", "HIGH"},
	}

	var events []map[string]interface{}
	for _, m := range ft.messages() {
		if m.Type != MsgFeedback {
			continue
		}
		events = append(events, m.Payload.(map[string]interface{}))
	}
	if len(events) != len(wantSeq) {
		t.Fatalf("emitted %d events, want %d", len(events), len(wantSeq))
	}
	for i, want := range wantSeq {
		if events[i]["type"] != want.category {
			t.Errorf("event %d type = %v, want %s", i, events[i]["type"], want.category)
		}
		if events[i]["severity"] != want.severity {
			t.Errorf("event %d severity = %v, want %s", i, events[i]["severity"], want.severity)
		}
		if events[i]["message"] == "" {
			t.Errorf("event %d has empty message", i)
		}
	}
}

func TestEmissionCap(t *testing.T) {
	const emissionCap = 3
	r := newTestRegistry(time.Hour, emissionCap)
	ft := &fakeTransport{id: "conn-1"}

	r.Begin(ft, "s1")
	af := loopFor(t, r, ft.id)

	ticks := 0
	for r.tick(ft, af) {
		ticks++
		if ticks > emissionCap {
			t.Fatal("loop did not stop at the cap")
		}
	}

	if got := ft.countType(MsgFeedback); got != emissionCap {
		t.Errorf("emitted %d events, want %d", got, emissionCap)
	}
	if got := r.ActiveCount(); got != 0 {
		t.Errorf("ActiveCount after cap = %d, want 0", got)
	}

	// The final tick tore the loop down; nothing more comes out.
	if r.tick(ft, af) {
		t.Error("tick after cap should report the loop over")
	}
	if got := ft.countType(MsgFeedback); got != emissionCap {
		t.Errorf("events after extra tick = %d, want %d", got, emissionCap)
	}
}

func TestDisconnectTeardown(t *testing.T) {
	tests := []struct {
		name         string
		ticksBefore  int
		cap          int
		wantFeedback int
	}{
		{"BeforeCap", 2, 10, 2},
		{"CapAlreadyReached", 3, 3, 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newTestRegistry(time.Hour, tt.cap)
			ft := &fakeTransport{id: "conn-1"}

			r.Begin(ft, "s1")
			af := loopFor(t, r, ft.id)
			for i := 0; i < tt.ticksBefore; i++ {
				r.tick(ft, af)
			}

			r.Disconnect(ft)

			if got := r.ActiveCount(); got != 0 {
				t.Errorf("ActiveCount after disconnect = %d, want 0", got)
			}
			if _, ok := r.Active(ft.id); ok {
				t.Error("connection still has an active loop after disconnect")
			}
			if got := ft.countType(MsgFeedback); got != tt.wantFeedback {
				t.Errorf("feedback events = %d, want %d", got, tt.wantFeedback)
			}
			if got := ft.countType(MsgConnectionClosed); got != 1 {
				t.Errorf("connection_closed notices = %d, want 1", got)
			}
		})
	}
}

func TestNoFeedbackAfterDisconnectNotice(t *testing.T) {
	// Races a disconnect against a ticking loop. Whatever the
	// interleaving, the connection_closed notice is the last thing the
	// client hears.
	for i := 0; i < 50; i++ {
		r := newTestRegistry(time.Hour, 1000)
		ft := &fakeTransport{id: "conn-1"}

		r.Begin(ft, "s1")
		af := loopFor(t, r, ft.id)

		done := make(chan struct{})
		go func() {
			defer close(done)
			for r.tick(ft, af) {
			}
		}()
		r.Disconnect(ft)
		<-done

		closedAt := -1
		for idx, m := range ft.messages() {
			if m.Type == MsgConnectionClosed {
				closedAt = idx
			}
			if m.Type == MsgFeedback && closedAt >= 0 {
				t.Fatalf("feedback event at index %d arrived after connection_closed at %d", idx, closedAt)
			}
		}
		if closedAt == -1 {
			t.Fatal("no connection_closed notice recorded")
		}
	}
}

func TestStaleTickAfterDisconnect(t *testing.T) {
	r := newTestRegistry(time.Hour, 10)
	ft := &fakeTransport{id: "conn-1"}

	r.Begin(ft, "s1")
	af := loopFor(t, r, ft.id)
	r.Disconnect(ft)

	// Simulates a tick already queued when the disconnect landed.
	before := ft.countType(MsgFeedback)
	if r.tick(ft, af) {
		t.Error("stale tick should report the loop over")
	}
	if got := ft.countType(MsgFeedback); got != before {
		t.Error("stale tick emitted into a torn-down loop")
	}
}

func TestTransmitFailureKeepsSchedule(t *testing.T) {
	r := newTestRegistry(time.Hour, 10)
	ft := &fakeTransport{id: "conn-1"}

	r.Begin(ft, "s1")
	af := loopFor(t, r, ft.id)

	ft.setFail(true)
	if !r.tick(ft, af) {
		t.Fatal("transmit failure must not end the loop")
	}
	if got := r.ActiveCount(); got != 1 {
		t.Fatalf("loop gone after transmit failure: ActiveCount = %d", got)
	}

	// The next tick delivers again once the transport recovers, and the
	// counter kept advancing through the failed emission.
	ft.setFail(false)
	if !r.tick(ft, af) {
		t.Fatal("tick after recovery ended the loop")
	}
	msgs := ft.messages()
	last := msgs[len(msgs)-1]
	if last.Type != MsgFeedback {
		t.Fatalf("last message type = %s, want feedback", last.Type)
	}
	payload := last.Payload.(map[string]interface{})
	if payload["type"] != "confidence" {
		t.Errorf("second emission type = %v, want confidence (counter advanced past the dropped event)", payload["type"])
	}
}

func TestLoopRunsOnRealTimer(t *testing.T) {
	r := newTestRegistry(2*time.Millisecond, 3)
	ft := &fakeTransport{id: "conn-1"}

	r.Begin(ft, "s1")

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if ft.countType(MsgFeedback) == 3 && r.ActiveCount() == 0 {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}

	if got := ft.countType(MsgFeedback); got != 3 {
		t.Fatalf("emitted %d events, want 3", got)
	}
	if got := r.ActiveCount(); got != 0 {
		t.Fatalf("ActiveCount = %d, want 0", got)
	}

	// No further events without an explicit restart.
	time.Sleep(20 * time.Millisecond)
	if got := ft.countType(MsgFeedback); got != 3 {
		t.Errorf("events kept arriving after the cap: %d", got)
	}
}

func TestStopAll(t *testing.T) {
	r := newTestRegistry(time.Hour, 10)
	a := &fakeTransport{id: "conn-a"}
	b := &fakeTransport{id: "conn-b"}

	r.Begin(a, "s1")
	r.Begin(b, "s2")
	if got := r.ActiveCount(); got != 2 {
		t.Fatalf("ActiveCount = %d, want 2", got)
	}

	r.StopAll()

	if got := r.ActiveCount(); got != 0 {
		t.Errorf("ActiveCount after StopAll = %d, want 0", got)
	}
}
