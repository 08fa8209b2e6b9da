package httpapi

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/interviewlab/backend/internal/observability"
	"github.com/interviewlab/backend/internal/session"
	"github.com/interviewlab/backend/internal/storage"
	"github.com/interviewlab/backend/internal/ws"
)

// Handler wires the REST surface for session lifecycle plus the
// websocket entry point, health and metrics.
type Handler struct {
	repo          storage.Repository
	lifecycle     *session.Lifecycle
	registry      *ws.Registry
	wsServer      *ws.Server
	metrics       *observability.Metrics
	log           zerolog.Logger
	authToken     string
	storageDriver string
	startedAt     time.Time
}

func New(repo storage.Repository, lifecycle *session.Lifecycle, registry *ws.Registry, wsServer *ws.Server, metrics *observability.Metrics, log *zerolog.Logger, authToken, storageDriver string) *Handler {
	return &Handler{
		repo:          repo,
		lifecycle:     lifecycle,
		registry:      registry,
		wsServer:      wsServer,
		metrics:       metrics,
		log:           *log,
		authToken:     authToken,
		storageDriver: storageDriver,
		startedAt:     time.Now(),
	}
}

func (h *Handler) Router() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(h.requestLogger)

	r.Get("/healthz", h.handleHealth)
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(h.metrics.Registry(), promhttp.HandlerOpts{}))
	if h.wsServer != nil {
		r.Get("/ws", h.wsServer.HandleWS)
	}

	r.Route("/api/sessions", func(r chi.Router) {
		r.Use(h.authorize)
		r.Post("/", h.handleCreateSession)
		r.Get("/", h.handleListSessions)
		r.Get("/{id}", h.handleGetSession)
		r.Post("/{id}/status", h.handleUpdateStatus)
	})

	return r
}

func (h *Handler) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		wrapped := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(wrapped, r)
		h.log.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", wrapped.Status()).
			Dur("took", time.Since(start)).
			Msg("http request")
	})
}

func (h *Handler) authorize(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if h.authToken != "" {
			auth := r.Header.Get("Authorization")
			token := strings.TrimPrefix(auth, "Bearer ")
			if !strings.HasPrefix(auth, "Bearer ") || token != h.authToken {
				writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "missing or invalid token", nil)
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}
