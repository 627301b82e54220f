package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/quizdrill/quizdrill/internal/app"
	"github.com/quizdrill/quizdrill/internal/auth"
	"github.com/quizdrill/quizdrill/internal/domain"
)

// Handler exposes the session and scoring use cases over REST.
type Handler struct {
	service *app.SessionService
	auth    *auth.Service
	live    *LiveHandler
	log     *zap.Logger
}

func NewHandler(service *app.SessionService, authSvc *auth.Service, live *LiveHandler, log *zap.Logger) *Handler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Handler{service: service, auth: authSvc, live: live, log: log}
}

// Routes builds the router. Sessions, stats and claims require any
// authenticated user; everything under /parent requires the parent role.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "PATCH", "OPTIONS"},
		AllowedHeaders: []string{"Authorization", "Content-Type"},
	}))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("ok"))
	})
	r.Post("/auth/login", auth.LoginHandler(h.auth))

	r.Group(func(r chi.Router) {
		r.Use(auth.Middleware(h.auth))

		r.Get("/session/all", h.listSessions)
		r.Get("/session/{quizType}", h.startSession)
		r.Post("/session/{quizType}", h.submitSession)
		r.Get("/stats", h.stats)
		r.Post("/stats/claim", h.claimCredits)

		r.Route("/parent", func(r chi.Router) {
			r.Use(auth.RequireRole(auth.RoleParent))
			r.Get("/users", h.listUsers)
			r.Get("/users/{id}", h.getUser)
			r.Patch("/users/{id}/multiplier", h.setMultiplier)
			r.Patch("/users/{id}/credits", h.updateCredits)
			r.Get("/live", h.live.ServeWS)
		})
	})

	return r
}

// questionView is what clients see: the prompt without the answer key.
type questionView struct {
	Question  string               `json:"question"`
	Fractions *domain.FractionPair `json:"fractions,omitempty"`
}

// wordView exposes the hint and length but never the spelling itself.
type wordView struct {
	Hint   string `json:"hint,omitempty"`
	Length int    `json:"length"`
}

func (h *Handler) startSession(w http.ResponseWriter, r *http.Request) {
	quizType, err := domain.ParseQuizType(chi.URLParam(r, "quizType"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	userID := auth.SubjectFromContext(r.Context())

	if quizType.IsWordQuiz() {
		session, err := h.service.StartWords(r.Context(), userID)
		if err != nil {
			h.writeError(w, err)
			return
		}
		words := make([]wordView, len(session.Words))
		for i, entry := range session.Words {
			words[i] = wordView{Hint: entry.Hint, Length: len(entry.Word)}
		}
		h.writeJSON(w, http.StatusOK, map[string]any{"sessionId": session.ID, "words": words})
		return
	}

	session, err := h.service.StartQuiz(r.Context(), userID, quizType)
	if err != nil {
		h.writeError(w, err)
		return
	}
	questions := make([]questionView, len(session.Questions))
	for i, q := range session.Questions {
		questions[i] = questionView{Question: q.Prompt, Fractions: q.Fractions}
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"sessionId": session.ID, "questions": questions})
}

func (h *Handler) submitSession(w http.ResponseWriter, r *http.Request) {
	quizType, err := domain.ParseQuizType(chi.URLParam(r, "quizType"))
	if err != nil {
		h.writeError(w, err)
		return
	}

	var req struct {
		SessionID string `json:"sessionId"`
		Answers   []any  `json:"answers"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, domain.ErrInvalidArgument)
		return
	}

	userID := auth.SubjectFromContext(r.Context())
	result, err := h.service.Submit(r.Context(), userID, quizType, req.SessionID, req.Answers)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, result)
}

func (h *Handler) listSessions(w http.ResponseWriter, r *http.Request) {
	userID := auth.SubjectFromContext(r.Context())
	records, err := h.service.UserSessions(r.Context(), userID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	if records == nil {
		records = []domain.CompletedSession{}
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"sessions": records})
}

func (h *Handler) stats(w http.ResponseWriter, r *http.Request) {
	userID := auth.SubjectFromContext(r.Context())
	stats, err := h.service.UserStats(r.Context(), userID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, stats)
}

func (h *Handler) claimCredits(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ClaimedAmount int `json:"claimedAmount"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, domain.ErrInvalidArgument)
		return
	}
	userID := auth.SubjectFromContext(r.Context())
	credits, err := h.service.ClaimCredits(r.Context(), userID, req.ClaimedAmount)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, credits)
}

func (h *Handler) listUsers(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			h.writeError(w, domain.ErrInvalidArgument)
			return
		}
		limit = parsed
	}
	users, err := h.service.ListUsers(r.Context(), r.URL.Query().Get("search"), limit)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"users": users})
}

func (h *Handler) getUser(w http.ResponseWriter, r *http.Request) {
	summary, err := h.service.UserSummary(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, summary)
}

func (h *Handler) setMultiplier(w http.ResponseWriter, r *http.Request) {
	var req struct {
		QuizType   string  `json:"quizType"`
		Multiplier float64 `json:"multiplier"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, domain.ErrInvalidArgument)
		return
	}
	quizType, err := domain.ParseQuizType(req.QuizType)
	if err != nil {
		h.writeError(w, err)
		return
	}
	userID := chi.URLParam(r, "id")
	if err := h.service.SetMultiplier(r.Context(), userID, quizType, req.Multiplier); err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{
		"userId":     userID,
		"quizType":   quizType,
		"multiplier": req.Multiplier,
	})
}

func (h *Handler) updateCredits(w http.ResponseWriter, r *http.Request) {
	var patch app.CreditPatch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		h.writeError(w, domain.ErrInvalidArgument)
		return
	}
	credits, err := h.service.UpdateCredits(r.Context(), chi.URLParam(r, "id"), patch)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, credits)
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		h.log.Warn("write response", zap.Error(err))
	}
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, domain.ErrSessionNotFound),
		errors.Is(err, domain.ErrUserNotFound),
		errors.Is(err, domain.ErrWordListNotFound):
		status = http.StatusNotFound
	case errors.Is(err, domain.ErrSessionOwnership):
		status = http.StatusForbidden
	case errors.Is(err, domain.ErrUnauthorized):
		status = http.StatusUnauthorized
	case errors.Is(err, domain.ErrInvalidArgument),
		errors.Is(err, domain.ErrAnswerCount):
		status = http.StatusBadRequest
	case errors.Is(err, domain.ErrPersistence):
		status = http.StatusServiceUnavailable
	}
	if status == http.StatusInternalServerError {
		h.log.Error("request failed", zap.Error(err))
	}
	h.writeJSON(w, status, map[string]string{"message": err.Error()})
}
