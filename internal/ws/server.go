package ws

import (
	"encoding/json"
	"net/http"
	"net/url"
	"strings"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/interviewlab/backend/internal/observability"
)

// Server upgrades connections into the live feedback channel and runs
// each connection's read loop.
type Server struct {
	registry       *Registry
	log            zerolog.Logger
	metrics        *observability.Metrics
	allowedOrigins map[string]bool
	allowedHosts   map[string]bool
	authToken      string
}

func NewServer(registry *Registry, log *zerolog.Logger, metrics *observability.Metrics, allowedOrigins []string, authToken string) *Server {
	s := &Server{
		registry:       registry,
		log:            *log,
		metrics:        metrics,
		allowedOrigins: make(map[string]bool),
		allowedHosts:   make(map[string]bool),
		authToken:      authToken,
	}

	for _, origin := range allowedOrigins {
		trimmed := strings.TrimSpace(origin)
		if trimmed == "" {
			continue
		}
		s.allowedOrigins[trimmed] = true
		if parsed, err := url.Parse(trimmed); err == nil && parsed.Host != "" {
			s.allowedHosts[parsed.Host] = true
		}
	}

	return s
}

func (s *Server) HandleWS(w http.ResponseWriter, r *http.Request) {
	if !s.authorize(r) {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	upgrader := websocket.Upgrader{
		CheckOrigin: s.checkOrigin,
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Error().Err(err).Str("remote", r.RemoteAddr).Msg("ws upgrade failed")
		return
	}

	cl := newClient(conn)
	s.metrics.ConnectionsTotal.Inc()
	s.log.Info().Str("conn", cl.id).Str("remote", r.RemoteAddr).Msg("ws client connected")

	s.sendMessage(cl, Message{Type: MsgConnectionAck, Payload: AckPayload{Message: "connected to live feedback"}})

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			break
		}
		s.handleMessage(cl, data)
	}

	s.registry.Disconnect(cl)
	cl.close()
	s.log.Info().Str("conn", cl.id).Str("remote", r.RemoteAddr).Msg("ws client disconnected")
}

func (s *Server) handleMessage(cl *client, data []byte) {
	var msg inboundMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		s.sendMessage(cl, Message{Type: MsgError, Payload: ErrorPayload{Message: "invalid message"}})
		return
	}

	switch msg.Type {
	case MsgBeginMonitoring:
		var p BeginMonitoringPayload
		if len(msg.Payload) > 0 {
			if err := json.Unmarshal(msg.Payload, &p); err != nil {
				s.sendMessage(cl, Message{Type: MsgError, Payload: ErrorPayload{Message: "invalid begin_monitoring payload"}})
				return
			}
		}
		sessionID := strings.TrimSpace(p.SessionID)
		if sessionID == "" {
			s.sendMessage(cl, Message{Type: MsgError, Payload: ErrorPayload{Message: "sessionId is required"}})
			return
		}
		s.registry.Begin(cl, sessionID)
	default:
		s.sendMessage(cl, Message{Type: MsgError, Payload: ErrorPayload{Message: "unknown message type"}})
	}
}

func (s *Server) sendMessage(cl *client, msg Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		return
	}
	if err := cl.trySend(data); err != nil {
		s.log.Debug().Str("conn", cl.id).Err(err).Msg("ws send failed")
	}
}

func (s *Server) authorize(r *http.Request) bool {
	if s.authToken == "" {
		return true
	}

	if r.URL.Query().Get("token") == s.authToken {
		return true
	}

	auth := r.Header.Get("Authorization")
	if strings.HasPrefix(auth, "Bearer ") && strings.TrimPrefix(auth, "Bearer ") == s.authToken {
		return true
	}

	return false
}

func (s *Server) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}

	if len(s.allowedOrigins) > 0 {
		if s.allowedOrigins[origin] {
			return true
		}
		if parsed, err := url.Parse(origin); err == nil && parsed.Host != "" {
			return s.allowedHosts[parsed.Host]
		}
		return false
	}

	parsed, err := url.Parse(origin)
	if err != nil {
		return false
	}

	host := parsed.Host
	if host == "" {
		return false
	}

	if host == r.Host {
		return true
	}

	if strings.HasPrefix(host, "localhost:") || host == "localhost" {
		return true
	}
	if strings.HasPrefix(host, "127.0.0.1:") || host == "127.0.0.1" {
		return true
	}
	if strings.HasPrefix(host, "[::1]:") || host == "::1" {
		return true
	}

	return false
}
