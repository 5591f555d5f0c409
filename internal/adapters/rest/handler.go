package rest

import (
	"context"
	"encoding/json"
	"mime"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/ewilliams-labs/song-bot/internal/core/domain"
	"github.com/ewilliams-labs/song-bot/internal/core/services"
	"github.com/ewilliams-labs/song-bot/internal/memory"
)

// ChatService is what the HTTP adapter needs from the session store.
type ChatService interface {
	HandleTurn(ctx context.Context, sessionID, message string) services.TurnResult
	Session(sessionID string) (domain.Session, bool)
	End(sessionID string) bool
}

var _ ChatService = (*services.Assistant)(nil)

// Handler manages the HTTP interface for our application.
type Handler struct {
	chat    ChatService
	prefs   *memory.Preferences
	metrics http.Handler
	logger  *zap.Logger
	router  chi.Router
}

// Option configures a Handler.
type Option func(*Handler)

// WithPreferences exposes the preference profile at GET /preferences.
func WithPreferences(p *memory.Preferences) Option {
	return func(h *Handler) { h.prefs = p }
}

// WithMetricsHandler mounts h at GET /metrics.
func WithMetricsHandler(m http.Handler) Option {
	return func(h *Handler) { h.metrics = m }
}

// WithLogger sets the request logger.
func WithLogger(l *zap.Logger) Option {
	return func(h *Handler) { h.logger = l }
}

// NewHandler initializes the HTTP adapter and sets up routes.
func NewHandler(chat ChatService, opts ...Option) *Handler {
	h := &Handler{
		chat:   chat,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(h)
	}

	h.routes()
	return h
}

// ServeHTTP satisfies the http.Handler interface.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.router.ServeHTTP(w, r)
}

// routes defines the mapping between URLs and methods.
func (h *Handler) routes() {
	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(h.logRequests)

	// Health Check
	r.Get("/health", h.HealthCheck)

	// Conversation
	r.Post("/chat", h.Chat)
	r.Get("/chat/{id}", h.GetSession)
	r.Delete("/chat/{id}", h.EndSession)

	if h.prefs != nil {
		r.Get("/preferences", h.GetPreferences)
	}
	if h.metrics != nil {
		r.Method(http.MethodGet, "/metrics", h.metrics)
	}

	h.router = r
}

// HealthCheck is a simple endpoint to verify the API is running.
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "message": "song-bot is live"})
}

// GetPreferences handles GET /preferences
func (h *Handler) GetPreferences(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.prefs.Snapshot())
}

func (h *Handler) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		h.logger.Debug("rest: request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("elapsed", time.Since(start)),
			zap.String("request_id", chimiddleware.GetReqID(r.Context())))
	})
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

func isJSONContentType(r *http.Request) bool {
	mt, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return err == nil && mt == "application/json"
}
