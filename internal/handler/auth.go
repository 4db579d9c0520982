package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/sakif/linkup/internal/apperror"
	"github.com/sakif/linkup/internal/auth"
	"github.com/sakif/linkup/internal/model"
	"github.com/sakif/linkup/internal/session"
)

// AuthHandler adapts the session orchestrator to HTTP. It does no session
// logic of its own: decode, delegate, encode.
type AuthHandler struct {
	sessions *session.Orchestrator
	logger   *slog.Logger
}

func NewAuthHandler(sessions *session.Orchestrator, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{sessions: sessions, logger: logger}
}

// stateResponse is the body for endpoints that report auth state alongside
// an optional session.
type stateResponse struct {
	AuthState model.AuthState `json:"authState"`
	Session   *model.Session  `json:"session,omitempty"`
}

func (h *AuthHandler) decode(w http.ResponseWriter, r *http.Request, into any) bool {
	if err := json.NewDecoder(r.Body).Decode(into); err != nil {
		writeJSON(w, h.logger, http.StatusBadRequest, errorResponse{
			Error:   "bad_request",
			Message: "the request body could not be read",
		})
		return false
	}
	return true
}

// HandleLogin handles POST /api/login.
func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Identifier string `json:"identifier"`
		Password   string `json:"password"`
	}
	if !h.decode(w, r, &req) {
		return
	}
	result, err := h.sessions.Login(r.Context(), req.Identifier, req.Password)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, h.logger, http.StatusOK, result)
}

// HandleRegister handles POST /api/register.
func (h *AuthHandler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
		Name     string `json:"name"`
	}
	if !h.decode(w, r, &req) {
		return
	}
	result, err := h.sessions.Register(r.Context(), req.Email, req.Password, req.Name)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, h.logger, http.StatusCreated, result)
}

// HandleRegisterPhone handles POST /api/register/phone.
func (h *AuthHandler) HandleRegisterPhone(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Phone    string `json:"phone"`
		Password string `json:"password"`
		Name     string `json:"name"`
	}
	if !h.decode(w, r, &req) {
		return
	}
	result, err := h.sessions.RegisterWithPhone(r.Context(), req.Phone, req.Password, req.Name)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, h.logger, http.StatusCreated, result)
}

// HandleGuest handles POST /api/guest.
func (h *AuthHandler) HandleGuest(w http.ResponseWriter, r *http.Request) {
	result, err := h.sessions.GuestLogin(r.Context())
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, h.logger, http.StatusCreated, result)
}

// HandleApple handles POST /api/apple.
func (h *AuthHandler) HandleApple(w http.ResponseWriter, r *http.Request) {
	var cred session.AppleCredential
	if !h.decode(w, r, &cred) {
		return
	}
	result, err := h.sessions.SignInWithApple(r.Context(), cred)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, h.logger, http.StatusOK, result)
}

// HandleUpgrade handles POST /api/upgrade — guest to full account.
func (h *AuthHandler) HandleUpgrade(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
		Name     string `json:"name"`
	}
	if !h.decode(w, r, &req) {
		return
	}
	result, err := h.sessions.UpgradeGuestToRegular(r.Context(), req.Email, req.Password, req.Name)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, h.logger, http.StatusOK, result)
}

// HandleLogout handles POST /api/logout. Logout cannot fail, so the response
// is always 204.
func (h *AuthHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	h.sessions.Logout(r.Context())
	w.WriteHeader(http.StatusNoContent)
}

// HandleRefresh handles POST /api/session/refresh.
func (h *AuthHandler) HandleRefresh(w http.ResponseWriter, r *http.Request) {
	refreshed := h.sessions.RefreshSession(r.Context())
	writeJSON(w, h.logger, http.StatusOK, stateResponse{
		AuthState: h.sessions.AuthState(),
		Session:   refreshed,
	})
}

// HandleConfirmImport handles POST /api/import/confirm.
func (h *AuthHandler) HandleConfirmImport(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ImportID  string `json:"importId"`
		Name      string `json:"name"`
		Email     string `json:"email"`
		AvatarURL string `json:"avatarUrl"`
	}
	if !h.decode(w, r, &req) {
		return
	}
	refreshed, err := h.sessions.ConfirmImportedProfile(r.Context(), req.ImportID, req.Name, req.Email, req.AvatarURL)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, h.logger, http.StatusOK, stateResponse{
		AuthState: h.sessions.AuthState(),
		Session:   refreshed,
	})
}

// HandleMe handles GET /api/me. The bearer token has already been validated
// by the auth middleware; the token's subject must still match the live
// session — a stale token for a logged-out session gets 401.
func (h *AuthHandler) HandleMe(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := auth.SessionIDFromContext(r.Context())
	current := h.sessions.CurrentUser()
	if !ok || current == nil || current.ID != sessionID {
		writeError(w, h.logger, apperror.New(apperror.ErrInvalidCredentials,
			"the session is no longer active"))
		return
	}
	writeJSON(w, h.logger, http.StatusOK, stateResponse{
		AuthState: h.sessions.AuthState(),
		Session:   current,
	})
}

// HandleLinkedInLogin handles GET /auth/linkedin/login: starts the handshake
// and redirects the browser to the provider's authorization page.
func (h *AuthHandler) HandleLinkedInLogin(w http.ResponseWriter, r *http.Request) {
	authURL, err := h.sessions.BeginLinkedInImport(r.Context())
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	http.Redirect(w, r, authURL, http.StatusFound)
}

// HandleLinkedInCallback handles GET /auth/linkedin/callback: the provider
// redirect lands here carrying code and state in the query string.
func (h *AuthHandler) HandleLinkedInCallback(w http.ResponseWriter, r *http.Request) {
	profile, err := h.sessions.CompleteLinkedInImport(r.Context(), r.URL.String())
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, h.logger, http.StatusOK, map[string]any{
		"profile":     profile.Fields,
		"displayName": profile.DisplayName(),
	})
}

// HandleHealth handles GET /healthz.
func (h *AuthHandler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, h.logger, http.StatusOK, map[string]string{"status": "ok"})
}
