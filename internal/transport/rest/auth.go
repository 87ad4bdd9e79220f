package rest

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/winstonacademy/crm-gateway/internal/session"
	"github.com/winstonacademy/crm-gateway/internal/transport"
	"github.com/winstonacademy/crm-gateway/pkg/logger"
)

// AuthHandler is the same-origin face of the session manager: the routes
// the browser front end calls instead of talking to Strapi directly.
type AuthHandler struct {
	*transport.BaseHandler
	Manager *session.Manager
}

func NewAuthHandler(manager *session.Manager) *AuthHandler {
	lg := logger.LoggerWrapper()
	if lg == nil {
		lg = slog.Default()
	}
	return &AuthHandler{
		BaseHandler: transport.NewBaseHandler(lg),
		Manager:     manager,
	}
}

// LoginDTO is the transport shape used by the login proxy route.
type LoginDTO struct {
	Identifier string `json:"identifier"`
	Password   string `json:"password"`
}

func (d LoginDTO) Validate() error {
	if d.Identifier == "" {
		return validationError{"identifier is required"}
	}
	if d.Password == "" {
		return validationError{"password is required"}
	}
	return nil
}

type validationError struct{ msg string }

func (v validationError) Error() string { return v.msg }

type loginResponse struct {
	User *session.User `json:"user"`
	JWT  string        `json:"jwt"`
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var dto LoginDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := dto.Validate(); err != nil {
		h.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	user, err := h.Manager.Login(r.Context(), dto.Identifier, dto.Password)
	if err != nil {
		h.Logger.Warn("login rejected", "identifier", dto.Identifier, "error", err)
		h.WriteAppError(w, err)
		return
	}

	tok, err := h.Manager.ValidToken()
	if err != nil {
		h.WriteAppError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, loginResponse{User: user, JWT: tok})
}

func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	h.Manager.Logout()
	w.WriteHeader(http.StatusNoContent)
}

// Me returns the current session user, refreshed expiry check included.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	if h.Manager.CurrentToken() == "" {
		h.WriteError(w, http.StatusUnauthorized, "no active session")
		return
	}

	user := h.Manager.CurrentUser()
	if user == nil {
		h.WriteError(w, http.StatusUnauthorized, "no active session")
		return
	}

	h.WriteJSON(w, http.StatusOK, user)
}

// Refresh re-derives the session user under the current token. The token
// itself is never rotated; see Manager.RefreshToken.
func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	if !h.Manager.RefreshToken(r.Context()) {
		h.WriteError(w, http.StatusUnauthorized, "session expired")
		return
	}

	user := h.Manager.CurrentUser()
	if user == nil {
		h.WriteError(w, http.StatusUnauthorized, "session expired")
		return
	}

	h.WriteJSON(w, http.StatusOK, user)
}
