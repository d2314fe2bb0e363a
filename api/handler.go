// Package api exposes vidrag over HTTP.
package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/poiesic/vidrag"
	"github.com/poiesic/vidrag/core"
	"github.com/poiesic/vidrag/qa"
	"github.com/poiesic/vidrag/quiz"
)

const maxBodySize = 10 << 20 // 10MB

// conversation is one QA history. Its mutex serializes questions so the
// engine's history is never mutated concurrently.
type conversation struct {
	mu      sync.Mutex
	engine  *qa.Engine
	session *core.Session
}

// Handler serves the vidrag HTTP API.
type Handler struct {
	app    *vidrag.App
	logger *slog.Logger

	mu            sync.RWMutex
	conversations map[string]*conversation
}

// Option configures a Handler.
type Option func(*Handler)

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(h *Handler) {
		if logger != nil {
			h.logger = logger
		}
	}
}

// NewHandler creates an API handler backed by app.
func NewHandler(app *vidrag.App, opts ...Option) (*Handler, error) {
	if app == nil {
		return nil, ErrAppRequired
	}
	h := &Handler{
		app:           app,
		logger:        slog.Default(),
		conversations: make(map[string]*conversation),
	}
	for _, opt := range opts {
		opt(h)
	}
	h.logger = h.logger.With("component", "api")
	return h, nil
}

// Routes returns the router for every endpoint.
func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(middleware.StripSlashes)
	r.Use(h.requestLogger)

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
		})

		r.Post("/videos", h.handleIngest)
		r.Get("/videos", h.handleListVideos)
		r.Route("/videos/{namespace}", func(r chi.Router) {
			r.Get("/", h.handleGetVideo)
			r.Delete("/", h.handleDeleteVideo)
			r.Get("/summary", h.handleSummary)
			r.Get("/keywords", h.handleKeywords)
			r.Get("/quiz", h.handleQuiz)
			r.Post("/conversations", h.handleNewConversation)
		})

		r.Post("/quiz/grade", h.handleGrade)

		r.Post("/conversations/{id}/questions", h.handleAsk)
		r.Get("/conversations/{id}", h.handleGetConversation)
		r.Delete("/conversations/{id}", h.handleDeleteConversation)
	})
	return r
}

func (h *Handler) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		started := time.Now()
		next.ServeHTTP(ww, r)
		h.logger.Info("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"elapsed", time.Since(started).Round(time.Millisecond),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}

// IngestRequest is the body of POST /api/videos.
type IngestRequest struct {
	Title      string              `json:"title"`
	Transcript string              `json:"transcript"`
	Metadata   *core.VideoMetadata `json:"metadata,omitempty"`
}

// SessionResponse describes an indexed video.
type SessionResponse struct {
	Namespace  string    `json:"namespace"`
	Title      string    `json:"title"`
	ChunkCount int       `json:"chunk_count"`
	IngestedAt time.Time `json:"ingested_at"`
}

func sessionResponse(s *core.Session) SessionResponse {
	return SessionResponse{
		Namespace:  s.Namespace.String(),
		Title:      s.Title,
		ChunkCount: s.ChunkCount,
		IngestedAt: s.IngestedAt,
	}
}

func (h *Handler) handleIngest(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodySize)
	defer r.Body.Close()

	var req IngestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid request body: %v", err)
		return
	}
	if req.Title == "" {
		httpError(w, http.StatusBadRequest, "invalid_request_error", "title is required")
		return
	}

	session, err := h.app.Ingest(r.Context(), req.Title, req.Transcript, req.Metadata)
	if err != nil {
		h.logger.Error("ingest failed", "title", req.Title, "err", err)
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, sessionResponse(session))
}

// VideoSummary is one entry of GET /api/videos.
type VideoSummary struct {
	Namespace string              `json:"namespace"`
	Title     string              `json:"title"`
	CreatedAt time.Time           `json:"created_at"`
	Metadata  *core.VideoMetadata `json:"metadata,omitempty"`
}

func (h *Handler) handleListVideos(w http.ResponseWriter, r *http.Request) {
	transcripts, err := h.app.Transcripts(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	out := make([]VideoSummary, len(transcripts))
	for i, t := range transcripts {
		out[i] = VideoSummary{Namespace: t.Namespace.String(), Title: t.Title, CreatedAt: t.CreatedAt, Metadata: t.Metadata}
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) handleGetVideo(w http.ResponseWriter, r *http.Request) {
	session, err := h.app.Session(r.Context(), chi.URLParam(r, "namespace"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sessionResponse(session))
}

func (h *Handler) handleDeleteVideo(w http.ResponseWriter, r *http.Request) {
	ns := core.Normalize(chi.URLParam(r, "namespace"))
	if err := h.app.Delete(r.Context(), ns.String()); err != nil {
		writeError(w, err)
		return
	}

	h.mu.Lock()
	for id, c := range h.conversations {
		if c.session.Namespace == ns {
			delete(h.conversations, id)
		}
	}
	h.mu.Unlock()

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleSummary(w http.ResponseWriter, r *http.Request) {
	ns := chi.URLParam(r, "namespace")
	summary, err := h.app.Summary(r.Context(), ns)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"namespace": core.Normalize(ns).String(), "summary": summary})
}

func (h *Handler) handleKeywords(w http.ResponseWriter, r *http.Request) {
	n, ok := intParam(w, r, "n")
	if !ok {
		return
	}
	keywords, err := h.app.Keywords(r.Context(), chi.URLParam(r, "namespace"), n)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, keywords)
}

func (h *Handler) handleQuiz(w http.ResponseWriter, r *http.Request) {
	n, ok := intParam(w, r, "n")
	if !ok {
		return
	}
	result, err := h.app.Quiz(r.Context(), chi.URLParam(r, "namespace"), n)
	if err != nil {
		writeError(w, err)
		return
	}
	if result.Questions == nil {
		result.Questions = []core.QuizQuestion{}
	}
	writeJSON(w, http.StatusOK, result)
}

// GradeRequest is the body of POST /api/quiz/grade.
type GradeRequest struct {
	Questions []core.QuizQuestion `json:"questions"`
	Answers   []string            `json:"answers"`
}

func (h *Handler) handleGrade(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodySize)
	defer r.Body.Close()

	var req GradeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid request body: %v", err)
		return
	}
	writeJSON(w, http.StatusOK, quiz.Grade(req.Questions, req.Answers))
}

// ConversationResponse describes a conversation.
type ConversationResponse struct {
	ID        string      `json:"id"`
	Namespace string      `json:"namespace"`
	History   []core.Turn `json:"history"`
}

func (h *Handler) handleNewConversation(w http.ResponseWriter, r *http.Request) {
	session, err := h.app.Session(r.Context(), chi.URLParam(r, "namespace"))
	if err != nil {
		writeError(w, err)
		return
	}
	engine, err := h.app.NewConversation(qa.WithLogger(h.logger))
	if err != nil {
		writeError(w, err)
		return
	}

	id := uuid.New().String()
	h.mu.Lock()
	h.conversations[id] = &conversation{engine: engine, session: session}
	h.mu.Unlock()

	writeJSON(w, http.StatusCreated, ConversationResponse{ID: id, Namespace: session.Namespace.String(), History: []core.Turn{}})
}

func (h *Handler) conversation(id string) (*conversation, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	c, ok := h.conversations[id]
	if !ok {
		return nil, ErrConversationNotFound
	}
	return c, nil
}

// QuestionRequest is the body of POST /api/conversations/{id}/questions.
type QuestionRequest struct {
	Question string `json:"question"`
}

// AnswerResponse carries one answer.
type AnswerResponse struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

func (h *Handler) handleAsk(w http.ResponseWriter, r *http.Request) {
	c, err := h.conversation(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxBodySize)
	defer r.Body.Close()
	var req QuestionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid request body: %v", err)
		return
	}

	c.mu.Lock()
	answer, err := c.engine.Answer(r.Context(), c.session, req.Question)
	c.mu.Unlock()
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, AnswerResponse{Question: req.Question, Answer: answer})
}

func (h *Handler) handleGetConversation(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	c, err := h.conversation(id)
	if err != nil {
		writeError(w, err)
		return
	}
	c.mu.Lock()
	history := c.engine.History()
	c.mu.Unlock()
	writeJSON(w, http.StatusOK, ConversationResponse{ID: id, Namespace: c.session.Namespace.String(), History: history})
}

func (h *Handler) handleDeleteConversation(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	h.mu.Lock()
	_, ok := h.conversations[id]
	delete(h.conversations, id)
	h.mu.Unlock()
	if !ok {
		writeError(w, ErrConversationNotFound)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// intParam reads an optional positive integer query parameter. Zero means unset.
func intParam(w http.ResponseWriter, r *http.Request, name string) (int, bool) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		httpError(w, http.StatusBadRequest, "invalid_request_error", "%s must be a positive integer", name)
		return 0, false
	}
	return n, true
}
