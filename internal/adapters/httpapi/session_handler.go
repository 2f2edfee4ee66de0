package httpapi

import (
	"net/http"
	"strings"
)

const sessionTokenHeader = "X-Session-Token"

type sessionResponse struct {
	Token     string `json:"token"`
	SessionID string `json:"session_id"`
	ExpiresAt string `json:"expires_at"`
}

func (h *Handler) openSession(w http.ResponseWriter, r *http.Request) {
	token, sess, err := h.sessions.Open(r.Context(), principalFromContext(r.Context()), h.sessionTTL)
	if err != nil {
		h.handleDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, sessionResponse{
		Token:     token,
		SessionID: sess.ID,
		ExpiresAt: sess.ExpiresAt.UTC().Format(timeFormat),
	})
}

func (h *Handler) revokeCurrentSession(w http.ResponseWriter, r *http.Request) {
	token := strings.TrimSpace(r.Header.Get(sessionTokenHeader))
	if token == "" {
		writeError(w, http.StatusBadRequest, sessionTokenHeader+" header required")
		return
	}

	if err := h.sessions.RevokeOwned(r.Context(), principalFromContext(r.Context()), token); err != nil {
		h.handleDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]bool{"revoked": true})
}
