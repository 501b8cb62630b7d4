package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"turnero/kiosk-service/internal/models"
	"turnero/kiosk-service/internal/store"
	"turnero/kiosk-service/internal/workflow"
)

// Handler exposes the kiosk session API: create a session, read its current
// screen, push events at it. The front-end is a dumb renderer; everything it
// shows comes from the screen view returned here.
type Handler struct {
	sessions *workflow.Manager
	store    store.TurnStore
}

func NewHandler(sessions *workflow.Manager, st store.TurnStore) *Handler {
	return &Handler{sessions: sessions, store: st}
}

func (h *Handler) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", h.handleHealth)
	mux.HandleFunc("/api/sessions", h.handleSessions)
	mux.HandleFunc("/api/sessions/", h.handleSessionByID)
	mux.HandleFunc("/api/events", h.handleEvents)
	return mux
}

type eventRequest struct {
	Kind  string `json:"kind"`
	Value string `json:"value"`
}

type candidateView struct {
	Code      string `json:"code"`
	OwnerName string `json:"owner_name"`
}

// screenView is the render contract for the kiosk front-end. Only the fields
// relevant to the current screen are populated.
type screenView struct {
	SessionID  string                `json:"session_id"`
	Screen     workflow.Screen       `json:"screen"`
	Recovery   bool                  `json:"recovery"`
	Notice     string                `json:"notice,omitempty"`
	ClientName string                `json:"client_name,omitempty"`
	Categories []models.Category     `json:"categories,omitempty"`
	Candidate  *candidateView        `json:"candidate,omitempty"`
	Turn       *workflow.SuccessView `json:"turn,omitempty"`
}

type errorResponse struct {
	RequestID string        `json:"request_id"`
	Error     responseError `json:"error"`
}

type responseError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

var eventKinds = map[workflow.EventKind]bool{
	workflow.EventStartIssuance:  true,
	workflow.EventStartRecovery:  true,
	workflow.EventSubmitIdentity: true,
	workflow.EventSelectCategory: true,
	workflow.EventConfirm:        true,
	workflow.EventSubmitCode:     true,
	workflow.EventBack:           true,
	workflow.EventFinish:         true,
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (h *Handler) handleSessions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	session := h.sessions.Create()
	writeJSON(w, http.StatusCreated, viewOf(session))
}

func (h *Handler) handleSessionByID(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/api/sessions/")
	parts := strings.Split(strings.Trim(path, "/"), "/")

	switch {
	case len(parts) == 1 && parts[0] != "":
		h.handleGetSession(w, r, parts[0])
	case len(parts) == 2 && parts[1] == "events":
		h.handleSessionEvent(w, r, parts[0])
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func (h *Handler) handleGetSession(w http.ResponseWriter, r *http.Request, sessionID string) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	session, err := h.sessions.Get(sessionID)
	if err != nil {
		status, code, msg := mapError(err)
		writeError(w, "", status, code, msg)
		return
	}
	writeJSON(w, http.StatusOK, viewOf(session))
}

func (h *Handler) handleSessionEvent(w http.ResponseWriter, r *http.Request, sessionID string) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	var req eventRequest
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&req); err != nil {
		writeError(w, "", http.StatusBadRequest, "invalid_json", "invalid JSON payload")
		return
	}

	kind := workflow.EventKind(strings.TrimSpace(req.Kind))
	if !eventKinds[kind] {
		writeError(w, "", http.StatusBadRequest, "invalid_request", "unknown event kind")
		return
	}

	session, err := h.sessions.Dispatch(r.Context(), sessionID, workflow.Event{
		Kind:  kind,
		Value: req.Value,
	})
	if err != nil {
		status, code, msg := mapError(err)
		writeError(w, "", status, code, msg)
		return
	}
	writeJSON(w, http.StatusOK, viewOf(session))
}

// handleEvents serves the outbox feed the display boards poll as a fallback
// when the realtime socket is unavailable.
func (h *Handler) handleEvents(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	afterRaw := strings.TrimSpace(r.URL.Query().Get("after"))
	var after time.Time
	if afterRaw != "" {
		parsed, err := time.Parse(time.RFC3339, afterRaw)
		if err != nil {
			writeError(w, "", http.StatusBadRequest, "invalid_request", "after must be RFC3339 timestamp")
			return
		}
		after = parsed
	}

	limit := 100
	if limitRaw := strings.TrimSpace(r.URL.Query().Get("limit")); limitRaw != "" {
		parsed, err := strconv.Atoi(limitRaw)
		if err != nil || parsed <= 0 {
			writeError(w, "", http.StatusBadRequest, "invalid_request", "limit must be a positive integer")
			return
		}
		limit = parsed
	}

	events, err := h.store.ListOutboxEvents(r.Context(), after, limit)
	if err != nil {
		status, code, msg := mapError(err)
		writeError(w, "", status, code, msg)
		return
	}
	writeJSON(w, http.StatusOK, events)
}

func viewOf(session workflow.Session) screenView {
	view := screenView{
		SessionID: session.ID,
		Screen:    session.Screen,
		Recovery:  session.Recovery,
		Notice:    session.Notice,
	}
	if session.Draft.Client != nil {
		view.ClientName = session.Draft.Client.DisplayName()
	}
	if session.Screen == workflow.ScreenCategorySelect {
		view.Categories = session.Categories
	}
	if session.Screen == workflow.ScreenRecoverIdentity && session.Draft.Candidate != nil {
		view.Candidate = &candidateView{
			Code:      session.Draft.Candidate.Turn.Code,
			OwnerName: session.Draft.Candidate.OwnerName,
		}
	}
	if success, ok := session.SuccessInfo(); ok {
		view.Turn = &success
	}
	return view
}

func mapError(err error) (int, string, string) {
	switch {
	case errors.Is(err, workflow.ErrSessionNotFound):
		return http.StatusNotFound, "session_not_found", "session not found"
	case errors.Is(err, store.ErrTurnNotFound):
		return http.StatusNotFound, "turn_not_found", "turn not found"
	case errors.Is(err, store.ErrInvalidState):
		return http.StatusConflict, "invalid_state", "turn state does not allow this action"
	default:
		return http.StatusInternalServerError, "internal_error", "internal server error"
	}
}

func writeError(w http.ResponseWriter, requestID string, status int, code, message string) {
	writeJSON(w, status, errorResponse{
		RequestID: requestID,
		Error: responseError{
			Code:    code,
			Message: message,
		},
	})
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(payload)
}
