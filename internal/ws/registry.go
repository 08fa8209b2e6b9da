package ws

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/interviewlab/backend/internal/feedback"
	"github.com/interviewlab/backend/internal/observability"
)

// transport is the outbound half of a connection the registry emits
// into. *client implements it; tests substitute a recorder.
type transport interface {
	ID() string
	trySend(data []byte) error
}

// activeFeedback is one live emission loop bound to a session id. At
// most one exists per connection at any time.
type activeFeedback struct {
	sessionID string
	ticker    *time.Ticker
	done      chan struct{}
	startedAt time.Time
	emitted   int
	stopped   bool
}

// Registry owns the connection -> active loop map and is its only
// writer. Loops are created by Begin, replaced by a second Begin on the
// same connection, and torn down on disconnect, cap, or shutdown.
type Registry struct {
	mu     sync.Mutex
	active map[string]*activeFeedback

	interval time.Duration
	cap      int
	log      zerolog.Logger
	metrics  *observability.Metrics
}

func NewRegistry(interval time.Duration, emissionCap int, log *zerolog.Logger, metrics *observability.Metrics) *Registry {
	return &Registry{
		active:   make(map[string]*activeFeedback),
		interval: interval,
		cap:      emissionCap,
		log:      *log,
		metrics:  metrics,
	}
}

// Begin starts a monitoring loop for the connection, replacing any loop
// already running there. The previous loop's timer is cancelled before
// the new one is registered, so two loops never run concurrently for
// one connection.
func (r *Registry) Begin(t transport, sessionID string) {
	af := &activeFeedback{
		sessionID: sessionID,
		done:      make(chan struct{}),
		startedAt: time.Now(),
	}

	r.mu.Lock()
	if cur, ok := r.active[t.ID()]; ok {
		r.teardownLocked(t.ID(), cur)
	}
	af.ticker = time.NewTicker(r.interval)
	r.active[t.ID()] = af
	r.mu.Unlock()

	r.metrics.ActiveLoops.Inc()
	r.log.Info().Str("conn", t.ID()).Str("session", sessionID).Msg("feedback loop started")

	go r.run(t, af)
}

func (r *Registry) run(t transport, af *activeFeedback) {
	for {
		select {
		case <-af.done:
			return
		case <-af.ticker.C:
			if !r.tick(t, af) {
				return
			}
		}
	}
}

// tick emits one feedback event. Returns false when the loop is over,
// either because it was torn down elsewhere or because this tick hit
// the emission cap. The staleness check, the transmit and any cap
// teardown all happen under r.mu, so a disconnect can never slip a
// connection_closed notice in front of an in-flight feedback event.
func (r *Registry) tick(t transport, af *activeFeedback) bool {
	r.mu.Lock()
	if cur, ok := r.active[t.ID()]; !ok || cur != af {
		// Torn down while this tick was queued. Emitting now would
		// write into a connection the registry believes is inactive.
		r.mu.Unlock()
		return false
	}
	af.emitted++
	n := af.emitted
	capped := n >= r.cap

	ev := feedback.ForCount(n, time.Now().UTC())
	data, _ := json.Marshal(Message{Type: MsgFeedback, Payload: ev})
	err := t.trySend(data)
	if capped {
		r.teardownLocked(t.ID(), af)
	}
	r.mu.Unlock()

	if err != nil {
		// Best-effort: the connection is gone or backed up. The loop
		// keeps its schedule; only the cap or a disconnect stops it.
		r.metrics.TransmitErrorsTotal.Inc()
		r.log.Debug().Str("conn", t.ID()).Str("session", af.sessionID).Err(err).Msg("feedback transmit failed")
	} else {
		r.metrics.FeedbackEventsTotal.WithLabelValues(ev.Category.String(), ev.Severity.String()).Inc()
	}

	if capped {
		r.log.Info().Str("conn", t.ID()).Str("session", af.sessionID).Int("emitted", n).Msg("feedback loop reached cap")
		return false
	}
	return true
}

// Disconnect tears down the connection's loop, if any, and writes a
// best-effort closure notice (ignored when the transport is already
// gone).
func (r *Registry) Disconnect(t transport) {
	r.mu.Lock()
	af, ok := r.active[t.ID()]
	if ok {
		r.teardownLocked(t.ID(), af)
	}
	r.mu.Unlock()

	data, _ := json.Marshal(Message{Type: MsgConnectionClosed, Payload: ClosedPayload{Message: "live feedback stopped"}})
	_ = t.trySend(data)

	if ok {
		r.log.Info().Str("conn", t.ID()).Str("session", af.sessionID).Msg("feedback loop stopped on disconnect")
	}
}

// teardownLocked cancels the loop's timer and removes its map entry.
// Both steps are required: cancelling without deleting leaks the entry,
// deleting without cancelling lets a queued tick fire into state that
// believes itself inactive. Safe to call more than once for the same
// loop. Caller must hold r.mu.
func (r *Registry) teardownLocked(connID string, af *activeFeedback) {
	if af.ticker != nil {
		af.ticker.Stop()
	}
	if !af.stopped {
		af.stopped = true
		close(af.done)
	}
	if cur, ok := r.active[connID]; ok && cur == af {
		delete(r.active, connID)
		r.metrics.ActiveLoops.Dec()
	}
}

// StopAll tears down every live loop. Called at server shutdown.
func (r *Registry) StopAll() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for connID, af := range r.active {
		r.teardownLocked(connID, af)
	}
}

// Active reports the session id the connection's loop is bound to.
func (r *Registry) Active(connID string) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	af, ok := r.active[connID]
	if !ok {
		return "", false
	}
	return af.sessionID, true
}

func (r *Registry) ActiveCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.active)
}
