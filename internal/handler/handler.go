// Package handler exposes the interview engine as a JSON API.
package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/avoronov/interviewer/internal/model"
	"github.com/avoronov/interviewer/internal/persona"
	"github.com/avoronov/interviewer/internal/question"
	"github.com/avoronov/interviewer/internal/session"
)

// Handler holds shared dependencies for HTTP handlers.
type Handler struct {
	engine   *session.Engine
	personas *persona.Registry
}

// New creates a new Handler.
func New(engine *session.Engine, personas *persona.Registry) *Handler {
	return &Handler{engine: engine, personas: personas}
}

// Routes registers all HTTP routes.
func (h *Handler) Routes(r chi.Router) {
	r.Get("/personas", h.handlePersonas)
	r.Post("/sessions", h.handleCreate)
	r.Get("/sessions/{sessionID}", h.handleGet)
	r.Post("/sessions/{sessionID}/start", h.handleStart)
	r.Post("/sessions/{sessionID}/answer", h.handleAnswer)
	r.Post("/sessions/{sessionID}/followup", h.handleFollowup)
	r.Get("/sessions/{sessionID}/next", h.handleNext)
	r.Post("/sessions/{sessionID}/end", h.handleEnd)
	r.Get("/sessions/{sessionID}/report", h.handleReport)
}

func (h *Handler) handlePersonas(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.personas.All())
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	var cfg model.InterviewConfig
	if err := json.NewDecoder(r.Body).Decode(&cfg); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	sess, err := h.engine.Create(r.Context(), cfg)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, sess)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	sess, err := h.engine.Get(chi.URLParam(r, "sessionID"))
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

func (h *Handler) handleStart(w http.ResponseWriter, r *http.Request) {
	opening, q, err := h.engine.Start(r.Context(), chi.URLParam(r, "sessionID"))
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"opening":  opening,
		"question": q,
	})
}

type answerRequest struct {
	Answer string `json:"answer"`
}

func (h *Handler) handleAnswer(w http.ResponseWriter, r *http.Request) {
	var req answerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Answer == "" {
		writeError(w, http.StatusBadRequest, "answer is required")
		return
	}
	out, err := h.engine.SubmitAnswer(r.Context(), chi.URLParam(r, "sessionID"), req.Answer)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"evaluation":        out.Result.Evaluation,
		"scored":            out.Result.Scored,
		"remark":            out.Remark,
		"followup_question": out.FollowupQuestion,
	})
}

func (h *Handler) handleFollowup(w http.ResponseWriter, r *http.Request) {
	var req answerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Answer == "" {
		writeError(w, http.StatusBadRequest, "answer is required")
		return
	}
	if err := h.engine.SubmitFollowupAnswer(r.Context(), chi.URLParam(r, "sessionID"), req.Answer); err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"recorded": true})
}

func (h *Handler) handleNext(w http.ResponseWriter, r *http.Request) {
	q, done, err := h.engine.NextQuestion(r.Context(), chi.URLParam(r, "sessionID"))
	if err != nil {
		writeEngineError(w, err)
		return
	}
	if done {
		writeJSON(w, http.StatusOK, map[string]any{"done": true})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"done": false, "question": q})
}

func (h *Handler) handleEnd(w http.ResponseWriter, r *http.Request) {
	rep, err := h.engine.End(r.Context(), chi.URLParam(r, "sessionID"))
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rep)
}

func (h *Handler) handleReport(w http.ResponseWriter, r *http.Request) {
	rep, err := h.engine.Report(chi.URLParam(r, "sessionID"))
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rep)
}

func writeEngineError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, session.ErrSessionNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, session.ErrConcurrentSubmission):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, session.ErrInvalidState):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, session.ErrConfiguration):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, question.ErrNotFound):
		writeError(w, http.StatusConflict, err.Error())
	default:
		slog.Error("request failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
