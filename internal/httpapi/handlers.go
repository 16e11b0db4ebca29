package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/mirrorwell/selftree/internal/model"
	"github.com/mirrorwell/selftree/internal/session"
	"github.com/mirrorwell/selftree/pkg/apperr"
)

var validate = validator.New()

type handler struct {
	coord  *session.Coordinator
	logger *zap.Logger
}

func newHandler(coord *session.Coordinator, logger *zap.Logger) *handler {
	return &handler{coord: coord, logger: logger}
}

// ---------------------------------------------------------------------------
// Request/response bodies
// ---------------------------------------------------------------------------

type startSessionRequest struct {
	UserName string `json:"userName"`
}

type completeOnboardingRequest struct {
	Profile     *model.UserProfile `json:"userProfile" validate:"required"`
	CurrentSelf *model.Persona     `json:"currentSelf" validate:"required"`
}

type generatePersonasRequest struct {
	ParentKey string           `json:"parentKey"`
	Count     int              `json:"count" validate:"omitempty,gte=1,lte=10"`
	Personas  []*model.Persona `json:"personas,omitempty" validate:"omitempty,dive,required"`
}

type selectPersonaRequest struct {
	PersonaID string `json:"personaId" validate:"required"`
}

type backtrackRequest struct {
	BranchName string `json:"branchName" validate:"required"`
}

type checkpointRequest struct {
	BranchName string   `json:"branchName" validate:"required"`
	Facts      []string `json:"facts"`
	Notes      []string `json:"notes"`
}

type recordTurnRequest struct {
	SelfID        string `json:"selfId"`
	UserText      string `json:"userText" validate:"required"`
	AssistantText string `json:"assistantText" validate:"required"`
}

type recordTurnResponse struct {
	Insights []string `json:"insights"`
}

// ---------------------------------------------------------------------------
// Handlers
// ---------------------------------------------------------------------------

func (h *handler) startSession(w http.ResponseWriter, r *http.Request) {
	var req startSessionRequest
	if err := decode(r, &req); err != nil {
		h.respondError(w, r, err)
		return
	}
	sess, err := h.coord.StartInterview(r.Context(), req.UserName)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, sess)
}

func (h *handler) listSessions(w http.ResponseWriter, r *http.Request) {
	sessions, err := h.coord.ListSessions(r.Context())
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sessions)
}

func (h *handler) getSession(w http.ResponseWriter, r *http.Request) {
	sess, err := h.coord.GetSession(r.Context(), chi.URLParam(r, "sessionID"))
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

func (h *handler) completeOnboarding(w http.ResponseWriter, r *http.Request) {
	var req completeOnboardingRequest
	if err := decode(r, &req); err != nil {
		h.respondError(w, r, err)
		return
	}
	sess, err := h.coord.CompleteOnboarding(r.Context(), chi.URLParam(r, "sessionID"), req.Profile, req.CurrentSelf)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

func (h *handler) generatePersonas(w http.ResponseWriter, r *http.Request) {
	var req generatePersonasRequest
	if err := decode(r, &req); err != nil {
		h.respondError(w, r, err)
		return
	}
	personas, err := h.coord.GeneratePersonas(r.Context(),
		chi.URLParam(r, "sessionID"), req.ParentKey, req.Count, req.Personas)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, personas)
}

func (h *handler) getTree(w http.ResponseWriter, r *http.Request) {
	tv, err := h.coord.GetTree(r.Context(), chi.URLParam(r, "sessionID"))
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, tv)
}

func (h *handler) getChildren(w http.ResponseWriter, r *http.Request) {
	children, err := h.coord.GetChildren(r.Context(),
		chi.URLParam(r, "sessionID"), chi.URLParam(r, "parentKey"))
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	if children == nil {
		children = []*model.Persona{}
	}
	writeJSON(w, http.StatusOK, children)
}

func (h *handler) selectPersona(w http.ResponseWriter, r *http.Request) {
	var req selectPersonaRequest
	if err := decode(r, &req); err != nil {
		h.respondError(w, r, err)
		return
	}
	rc, err := h.coord.SelectPersona(r.Context(), chi.URLParam(r, "sessionID"), req.PersonaID)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rc)
}

func (h *handler) backtrack(w http.ResponseWriter, r *http.Request) {
	var req backtrackRequest
	if err := decode(r, &req); err != nil {
		h.respondError(w, r, err)
		return
	}
	rc, err := h.coord.Backtrack(r.Context(), chi.URLParam(r, "sessionID"), req.BranchName)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rc)
}

func (h *handler) checkpointMemory(w http.ResponseWriter, r *http.Request) {
	var req checkpointRequest
	if err := decode(r, &req); err != nil {
		h.respondError(w, r, err)
		return
	}
	node, err := h.coord.CheckpointMemory(r.Context(),
		chi.URLParam(r, "sessionID"), req.BranchName, req.Facts, req.Notes)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, node)
}

func (h *handler) resolveMemory(w http.ResponseWriter, r *http.Request) {
	rc, err := h.coord.ResolveMemory(r.Context(),
		chi.URLParam(r, "sessionID"), chi.URLParam(r, "branchName"))
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rc)
}

func (h *handler) recordTurn(w http.ResponseWriter, r *http.Request) {
	var req recordTurnRequest
	if err := decode(r, &req); err != nil {
		h.respondError(w, r, err)
		return
	}
	insights, err := h.coord.RecordTurn(r.Context(),
		chi.URLParam(r, "sessionID"), req.SelfID, req.UserText, req.AssistantText)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	if insights == nil {
		insights = []string{}
	}
	writeJSON(w, http.StatusOK, recordTurnResponse{Insights: insights})
}

func (h *handler) getTranscript(w http.ResponseWriter, r *http.Request) {
	entries, err := h.coord.GetTranscript(r.Context(), chi.URLParam(r, "sessionID"))
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	if entries == nil {
		entries = []model.TranscriptEntry{}
	}
	writeJSON(w, http.StatusOK, entries)
}

// ---------------------------------------------------------------------------
// Plumbing
// ---------------------------------------------------------------------------

// decode parses and validates a JSON request body.
func decode(r *http.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return apperr.Validation("invalid request body: %v", err)
	}
	if err := validate.Struct(dst); err != nil {
		var invalid *validator.InvalidValidationError
		if errors.As(err, &invalid) {
			return apperr.Internal("validate request", err)
		}
		return apperr.Validation("validation failed: %v", err)
	}
	return nil
}

type errorResponse struct {
	Kind    apperr.Kind `json:"kind"`
	Message string      `json:"message"`
}

func (h *handler) respondError(w http.ResponseWriter, r *http.Request, err error) {
	e := apperr.From(err)
	if e == nil {
		e = apperr.Internal("unexpected error", err)
	}
	if e.Internal() {
		h.logger.Error("request failed",
			zap.String("path", r.URL.Path),
			zap.String("kind", string(e.Kind)),
			zap.Error(err))
		writeJSON(w, e.HTTPStatus(), errorResponse{Kind: e.Kind, Message: "internal error"})
		return
	}
	writeJSON(w, e.HTTPStatus(), errorResponse{Kind: e.Kind, Message: e.Message})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
