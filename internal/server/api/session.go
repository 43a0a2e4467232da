package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/rs/zerolog"

	"github.com/ayusman/signspeak/internal/session"
	"github.com/ayusman/signspeak/internal/store"
)

// SessionController is the part of a session the API drives.
type SessionController interface {
	Status() session.Status
	Reset()
	SetMode(session.Mode) error
	AddSpace() string
	ClearSentence() string
}

// SessionHandler exposes the live session. Mode changes are persisted when a store is set.
type SessionHandler struct {
	session SessionController
	store   *store.Store
	logger  zerolog.Logger
}

// NewSessionHandler creates a SessionHandler. s may be nil.
func NewSessionHandler(sess SessionController, s *store.Store, logger zerolog.Logger) *SessionHandler {
	return &SessionHandler{session: sess, store: s, logger: logger}
}

type setModeRequest struct {
	Mode string `json:"mode"`
}

// ServeHTTP routes /api/session, /api/session/reset, /api/session/mode and
// /api/session/sentence/{space,clear}.
func (h *SessionHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch itemID(r.URL.Path, "/api/session") {
	case "":
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		writeJSON(w, http.StatusOK, h.session.Status())
	case "reset":
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		h.session.Reset()
		writeJSON(w, http.StatusOK, h.session.Status())
	case "mode":
		if r.Method != http.MethodPut {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		h.setMode(w, r)
	case "sentence/space", "sentence/clear":
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		if strings.HasSuffix(r.URL.Path, "/space") {
			h.session.AddSpace()
		} else {
			h.session.ClearSentence()
		}
		writeJSON(w, http.StatusOK, h.session.Status())
	default:
		writeError(w, http.StatusNotFound, "Not found")
	}
}

func (h *SessionHandler) setMode(w http.ResponseWriter, r *http.Request) {
	var req setModeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	mode, err := session.ParseMode(req.Mode)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := h.session.SetMode(mode); err != nil {
		if errors.Is(err, session.ErrNoModel) {
			writeError(w, http.StatusConflict, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to change mode")
		return
	}

	if h.store != nil {
		if err := h.store.Settings().Set(store.SettingMode, string(mode)); err != nil {
			h.logger.Warn().Err(err).Str("mode", string(mode)).Msg("failed to persist mode")
		}
	}

	writeJSON(w, http.StatusOK, h.session.Status())
}
