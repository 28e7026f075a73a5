package http

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/aretw0/storyline"
	"github.com/aretw0/storyline/internal/logging"
	"github.com/aretw0/storyline/pkg/domain"
	"github.com/aretw0/storyline/pkg/story"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
)

// MaxBodyBytes caps request bodies. A choice is a few dozen bytes.
const MaxBodyBytes = 4 << 10

// Engine is the read side of storyline.Engine used by the API.
type Engine interface {
	State(ctx context.Context, sessionID string) (*domain.State, error)
	Progress(ctx context.Context, sessionID string) (domain.Progress, error)
	Story() *story.Store
}

// Dispatcher turns events into renders; see pkg/dispatch.
type Dispatcher interface {
	Handle(ctx context.Context, ev domain.Event) []domain.Render
	HandleCallback(ctx context.Context, sessionID, data string) []domain.Render
	Reject(ctx context.Context, sessionID string, err error) []domain.Render
}

// Server holds the dependencies of the HTTP handlers.
type Server struct {
	Engine     Engine
	Dispatcher Dispatcher
	Streams    *StreamManager

	metrics http.Handler
	newID   func() string
	logger  *slog.Logger
}

// Option configures the Server.
type Option func(*Server)

// WithLogger configures a logger for request failures.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithMetricsHandler mounts h on GET /metrics.
func WithMetricsHandler(h http.Handler) Option {
	return func(s *Server) {
		s.metrics = h
	}
}

// WithIDGenerator overrides how POST /sessions names new sessions (default: random UUID).
func WithIDGenerator(fn func() string) Option {
	return func(s *Server) {
		s.newID = fn
	}
}

// SessionResponse is the body of every route that returns renders.
type SessionResponse struct {
	SessionID string          `json:"session_id"`
	Renders   []domain.Render `json:"renders"`
}

// SessionInfo is the body of GET /sessions/{id}.
type SessionInfo struct {
	State    *domain.State   `json:"state"`
	Progress domain.Progress `json:"progress"`
}

// StoryResponse is the body of GET /story.
type StoryResponse struct {
	Total int           `json:"total"`
	Steps []domain.Step `json:"steps"`
}

// ChoiceRequest is the body of POST /sessions/{id}/choices.
// Either Step and Label, or the raw callback Data ("choose|3|a"), must be set.
type ChoiceRequest struct {
	Step  *int   `json:"step,omitempty"`
	Label string `json:"label,omitempty"`
	Data  string `json:"data,omitempty"`
}

// NewHandler creates the HTTP handler for the engine.
func NewHandler(engine Engine, dispatcher Dispatcher, opts ...Option) http.Handler {
	s := &Server{
		Engine:     engine,
		Dispatcher: dispatcher,
		newID:      uuid.NewString,
		logger:     logging.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.Streams = NewStreamManager(s.logger)

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(enableCORS)

	r.Get("/health", s.GetHealth)
	r.Get("/info", s.GetInfo)
	r.Get("/story", s.GetStory)
	if s.metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.metrics)
	}

	r.Route("/sessions", func(r chi.Router) {
		r.Post("/", s.CreateSession)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", s.GetSession)
			r.Post("/start", s.eventHandler(domain.EventStart))
			r.Post("/reset", s.eventHandler(domain.EventReset))
			r.Get("/progress", s.eventHandler(domain.EventProgress))
			r.Get("/step", s.eventHandler(domain.EventCurrent))
			r.Get("/help", s.eventHandler(domain.EventHelp))
			r.Post("/choices", s.SubmitChoice)
			r.Get("/events", s.SubscribeEvents)
		})
	})

	return r
}

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// GetHealth handles the GET /health request.
func (s *Server) GetHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// GetInfo handles the GET /info request.
func (s *Server) GetInfo(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]any{
		"app":     "storyline-http",
		"version": storyline.Version,
		"steps":   s.Engine.Story().Len(),
	})
}

// GetStory handles the GET /story request.
func (s *Server) GetStory(w http.ResponseWriter, r *http.Request) {
	st := s.Engine.Story()
	s.writeJSON(w, http.StatusOK, StoryResponse{Total: st.Len(), Steps: st.Steps()})
}

// CreateSession handles POST /sessions: a fresh session, already started.
func (s *Server) CreateSession(w http.ResponseWriter, r *http.Request) {
	id := s.newID()
	renders := s.dispatch(r.Context(), domain.Event{Kind: domain.EventStart, SessionID: id})
	s.writeJSON(w, http.StatusCreated, SessionResponse{SessionID: id, Renders: renders})
}

// GetSession handles GET /sessions/{id}.
func (s *Server) GetSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	state, err := s.Engine.State(r.Context(), id)
	if err != nil {
		s.logger.Error("Failed to load session", "session_id", id, "err", err)
		s.writeError(w, http.StatusInternalServerError, id, "failed to load session")
		return
	}
	progress, err := s.Engine.Progress(r.Context(), id)
	if err != nil {
		s.logger.Error("Failed to load progress", "session_id", id, "err", err)
		s.writeError(w, http.StatusInternalServerError, id, "failed to load session")
		return
	}
	s.writeJSON(w, http.StatusOK, SessionInfo{State: state, Progress: progress})
}

func (s *Server) eventHandler(kind domain.EventKind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		renders := s.dispatch(r.Context(), domain.Event{Kind: kind, SessionID: id})
		s.writeJSON(w, http.StatusOK, SessionResponse{SessionID: id, Renders: renders})
	}
}

// SubmitChoice handles POST /sessions/{id}/choices.
func (s *Server) SubmitChoice(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	req, err := decodeChoice(http.MaxBytesReader(w, r.Body, MaxBodyBytes))
	if err != nil {
		s.logger.Warn("SubmitChoice: Invalid request body", "session_id", id, "err", err)
		s.writeRejected(w, r, id, err)
		return
	}

	var renders []domain.Render
	if req.Data != "" {
		renders = s.Dispatcher.HandleCallback(r.Context(), id, req.Data)
	} else {
		label, err := domain.ParseLabel(req.Label)
		if err != nil {
			s.logger.Warn("SubmitChoice: Invalid label", "session_id", id, "err", err)
			s.writeRejected(w, r, id, err)
			return
		}
		renders = s.Dispatcher.Handle(r.Context(), domain.ChoiceEventFor(id, *req.Step, label))
	}
	s.Streams.Broadcast(id, s.encodeRenders(renders))
	s.writeJSON(w, http.StatusOK, SessionResponse{SessionID: id, Renders: renders})
}

func decodeChoice(body io.Reader) (ChoiceRequest, error) {
	var req ChoiceRequest
	dec := json.NewDecoder(body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		return req, fmt.Errorf("%w: %v", domain.ErrInvalidChoicePayload, err)
	}
	if req.Data == "" {
		if req.Step == nil {
			return req, fmt.Errorf("%w: missing step", domain.ErrInvalidChoicePayload)
		}
		if *req.Step < 0 {
			return req, fmt.Errorf("%w: negative step %d", domain.ErrInvalidChoicePayload, *req.Step)
		}
	}
	return req, nil
}

// SubscribeEvents handles GET /sessions/{id}/events (SSE).
func (s *Server) SubscribeEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming not supported", http.StatusInternalServerError)
		s.logger.Error("SubscribeEvents: Streaming not supported")
		return
	}

	id := chi.URLParam(r, "id")
	ch, cancel := s.Streams.Subscribe(id)
	defer cancel()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	fmt.Fprintf(w, "event: ping\ndata: connected\n\n")
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			fmt.Fprintf(w, "event: renders\ndata: %s\n\n", msg)
			flusher.Flush()
		}
	}
}

// dispatch runs an event and forwards its renders to the session's streams.
func (s *Server) dispatch(ctx context.Context, ev domain.Event) []domain.Render {
	renders := s.Dispatcher.Handle(ctx, ev)
	s.Streams.Broadcast(ev.SessionID, s.encodeRenders(renders))
	return renders
}

func (s *Server) encodeRenders(renders []domain.Render) string {
	data, err := json.Marshal(renders)
	if err != nil {
		s.logger.Error("Failed to encode renders", "err", err)
		return "[]"
	}
	return string(data)
}

// writeRejected answers 400 with the dispatcher's invalid-payload render.
func (s *Server) writeRejected(w http.ResponseWriter, r *http.Request, sessionID string, err error) {
	s.writeJSON(w, http.StatusBadRequest, SessionResponse{
		SessionID: sessionID,
		Renders:   s.Dispatcher.Reject(r.Context(), sessionID, err),
	})
}

func (s *Server) writeError(w http.ResponseWriter, status int, sessionID, detail string) {
	msg := detail
	if msg == "" {
		msg = http.StatusText(status)
	}
	s.writeJSON(w, status, SessionResponse{
		SessionID: sessionID,
		Renders:   []domain.Render{{Kind: domain.RenderError, Message: msg}},
	})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("Response encode failed", "err", err)
	}
}
