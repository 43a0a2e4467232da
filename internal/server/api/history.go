package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/google/uuid"

	"github.com/ayusman/signspeak/internal/stabilizer"
	"github.com/ayusman/signspeak/internal/store"
)

// HistoryHandler serves the recorded event history.
type HistoryHandler struct {
	store *store.Store
}

// NewHistoryHandler creates a HistoryHandler.
func NewHistoryHandler(s *store.Store) *HistoryHandler {
	return &HistoryHandler{store: s}
}

// ServeHTTP routes /api/history and /api/history/{id}.
func (h *HistoryHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	id := itemID(r.URL.Path, "/api/history")

	if id == "" {
		switch r.Method {
		case http.MethodGet:
			h.list(w, r)
		case http.MethodPost:
			h.create(w, r)
		default:
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
		return
	}

	if r.Method != http.MethodDelete {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	h.delete(w, r, id)
}

type createHistoryRequest struct {
	SessionID  string  `json:"session_id"`
	Kind       string  `json:"kind"`
	Label      string  `json:"label"`
	Confidence float64 `json:"confidence"`
	Source     string  `json:"source"`
}

type historyResponse struct {
	ID         string  `json:"id"`
	SessionID  string  `json:"session_id"`
	Kind       string  `json:"kind"`
	Label      string  `json:"label"`
	Confidence float64 `json:"confidence"`
	Source     string  `json:"source"`
	CreatedAt  string  `json:"created_at"`
}

type listHistoryResponse struct {
	History []historyResponse `json:"history"`
}

func toHistoryResponse(e *store.HistoryEntry) historyResponse {
	return historyResponse{
		ID:         e.ID,
		SessionID:  e.SessionID,
		Kind:       e.Kind,
		Label:      e.Label,
		Confidence: e.Confidence,
		Source:     e.Source,
		CreatedAt:  formatTime(e.CreatedAt),
	}
}

// list handles GET /api/history?limit=N&session=ID, newest first.
func (h *HistoryHandler) list(w http.ResponseWriter, r *http.Request) {
	limit := store.DefaultHistoryLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}

	var (
		entries []*store.HistoryEntry
		err     error
	)
	if sessionID := r.URL.Query().Get("session"); sessionID != "" {
		entries, err = h.store.History().ListBySession(sessionID, limit)
	} else {
		entries, err = h.store.History().List(limit)
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list history")
		return
	}

	response := listHistoryResponse{
		History: make([]historyResponse, 0, len(entries)),
	}
	for _, e := range entries {
		response.History = append(response.History, toHistoryResponse(e))
	}

	writeJSON(w, http.StatusOK, response)
}

func (h *HistoryHandler) create(w http.ResponseWriter, r *http.Request) {
	var req createHistoryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	if req.Kind == "" {
		req.Kind = string(stabilizer.EventLabel)
	}
	switch stabilizer.Kind(req.Kind) {
	case stabilizer.EventLabel:
		if req.Label == "" {
			writeError(w, http.StatusBadRequest, "label is required")
			return
		}
	case store.KindSentence:
		if req.Label == "" {
			writeError(w, http.StatusBadRequest, "label is required")
			return
		}
	case stabilizer.EventCleared:
	default:
		writeError(w, http.StatusBadRequest, "kind must be label, cleared or sentence")
		return
	}
	if req.Confidence < 0 || req.Confidence > 1 {
		writeError(w, http.StatusBadRequest, "confidence must be within [0, 1]")
		return
	}

	entry := &store.HistoryEntry{
		ID:         uuid.New().String(),
		SessionID:  req.SessionID,
		Kind:       req.Kind,
		Label:      req.Label,
		Confidence: req.Confidence,
		Source:     req.Source,
	}
	if err := h.store.History().Create(entry); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save history")
		return
	}

	writeJSON(w, http.StatusCreated, toHistoryResponse(entry))
}

func (h *HistoryHandler) delete(w http.ResponseWriter, r *http.Request, id string) {
	if err := h.store.History().Delete(id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "History entry not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to delete history entry")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
