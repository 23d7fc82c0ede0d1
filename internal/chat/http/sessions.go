package http

import (
	"net/http"
	"strings"

	"github.com/aussiebroadwan/tabchat/internal/chat/domain"
	"github.com/aussiebroadwan/tabchat/internal/chat/service"
	"github.com/aussiebroadwan/tabchat/pkg/chatsdk"
	"github.com/aussiebroadwan/tabchat/pkg/httpx"
	"github.com/aussiebroadwan/tabchat/pkg/slogx"
)

// MaxAppNameLength bounds the app label on app sessions.
const MaxAppNameLength = 64

// SessionsHandler handles login and session lifecycle endpoints.
type SessionsHandler struct {
	Sessions *service.SessionService
	Users    *service.UserService
}

// HandleLogin handles POST /v1/sessions
//
//	@Summary		Login
//	@Description	Exchanges a username and password for a user session.
//	@Tags			Sessions
//	@Accept			json
//	@Produce		json
//	@Param			request	body		chatsdk.LoginRequest	true	"credentials"
//	@Success		200		{object}	chatsdk.FoundationResponse
//	@Failure		401		{object}	chatsdk.ErrorResponse	"invalid credentials"
//	@Failure		403		{object}	chatsdk.ErrorResponse	"account banned"
//	@Failure		429		{object}	chatsdk.ErrorResponse	"cooldown active"
//	@Router			/v1/sessions [post].
func (h *SessionsHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req chatsdk.LoginRequest
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		writeBadRequest(w, "Invalid JSON in request body")
		return
	}
	if req.Username == "" || req.Password == "" {
		writeBadRequest(w, "username and password are required")
		return
	}

	fd, err := h.Users.Login(ctx, req.Username, req.Password, r.UserAgent())
	if err != nil {
		writeServiceError(w, r, err, "Failed to log in")
		return
	}

	slogx.FromContext(ctx).Info("user logged in", "user_id", fd.User.ID, "session_id", fd.Session.ID)
	httpx.WriteJSON(w, http.StatusOK, fd)
}

type appSessionRequest struct {
	App     string   `json:"app"`
	Scopes  []string `json:"scopes"`
	Refresh bool     `json:"refresh"`
}

// HandleCreateApp handles POST /v1/sessions/app
//
//	@Summary		Create App Session
//	@Description	Mints a scoped app session owned by the caller. With refresh=true the session carries a rotating refresh token.
//	@Tags			Sessions
//	@Accept			json
//	@Produce		json
//	@Security		BearerAuth
//	@Param			request	body		chatsdk.AppSessionRequest	true	"app, scopes, refresh"
//	@Success		201		{object}	chatsdk.SessionInfo
//	@Failure		400		{object}	chatsdk.ErrorResponse	"error, error_description"
//	@Failure		401		{object}	chatsdk.ErrorResponse	"error, error_description"
//	@Router			/v1/sessions/app [post].
func (h *SessionsHandler) HandleCreateApp(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	p := principalFrom(ctx)

	var req appSessionRequest
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		writeBadRequest(w, "Invalid JSON in request body")
		return
	}

	app := strings.TrimSpace(req.App)
	if app == "" || len(app) > MaxAppNameLength {
		writeBadRequest(w, "app must be 1-64 characters")
		return
	}
	scopes := make([]string, 0, len(req.Scopes))
	for _, s := range req.Scopes {
		if s = strings.TrimSpace(s); s != "" {
			if strings.ContainsAny(s, " \t") {
				writeBadRequest(w, "scopes must not contain whitespace")
				return
			}
			scopes = append(scopes, s)
		}
	}

	kind := domain.KindApp
	if req.Refresh {
		kind = domain.KindAppRefresh
	}

	sess, err := h.Sessions.Create(ctx, service.CreateParams{
		Kind:      kind,
		UserID:    p.User.ID,
		UserAgent: r.UserAgent(),
		App:       &app,
		Scopes:    scopes,
	})
	if err != nil {
		writeServiceError(w, r, err, "Failed to create app session")
		return
	}

	slogx.FromContext(ctx).Info("app session created", "app", app, "kind", kind.String())
	httpx.WriteJSON(w, http.StatusCreated, sess.WithoutHistory())
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// HandleRefresh handles POST /v1/sessions/refresh
//
//	@Summary		Rotate Refresh Token
//	@Description	Exchanges a refresh token for a new one and extends the access expiry. Presenting an already rotated token revokes the session.
//	@Tags			Sessions
//	@Accept			json
//	@Produce		json
//	@Param			request	body		chatsdk.RefreshRequest	true	"refresh_token"
//	@Success		200		{object}	chatsdk.SessionInfo
//	@Failure		401		{object}	chatsdk.ErrorResponse	"invalid or reused refresh token"
//	@Router			/v1/sessions/refresh [post].
func (h *SessionsHandler) HandleRefresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		writeBadRequest(w, "Invalid JSON in request body")
		return
	}

	sess, err := h.Sessions.RotateRefresh(r.Context(), req.RefreshToken)
	if err != nil {
		writeServiceError(w, r, err, "Failed to refresh session")
		return
	}
	httpx.WriteJSON(w, http.StatusOK, sess)
}

// HandleRenew handles POST /v1/sessions/renew
//
//	@Summary		Renew Session
//	@Description	Extends the caller's session by its lifetime. Expiry never moves backwards. App sessions need the session:renew scope.
//	@Tags			Sessions
//	@Produce		json
//	@Security		BearerAuth
//	@Success		200	{object}	chatsdk.SessionInfo
//	@Failure		401	{object}	chatsdk.ErrorResponse	"error, error_description"
//	@Failure		403	{object}	chatsdk.ErrorResponse	"error, error_description"
//	@Router			/v1/sessions/renew [post].
func (h *SessionsHandler) HandleRenew(w http.ResponseWriter, r *http.Request) {
	p := principalFrom(r.Context())

	sess, err := h.Sessions.Renew(r.Context(), p.Session)
	if err != nil {
		writeServiceError(w, r, err, "Failed to renew session")
		return
	}
	httpx.WriteJSON(w, http.StatusOK, sess.WithoutHistory())
}

// HandleRevoke handles DELETE /v1/sessions/current
//
//	@Summary		Logout
//	@Description	Revokes the caller's session. App sessions need the session:revoke scope.
//	@Tags			Sessions
//	@Security		BearerAuth
//	@Success		204
//	@Failure		401	{object}	chatsdk.ErrorResponse	"error, error_description"
//	@Failure		403	{object}	chatsdk.ErrorResponse	"error, error_description"
//	@Router			/v1/sessions/current [delete].
func (h *SessionsHandler) HandleRevoke(w http.ResponseWriter, r *http.Request) {
	p := principalFrom(r.Context())

	if err := h.Sessions.Revoke(r.Context(), p.Session); err != nil {
		writeServiceError(w, r, err, "Failed to revoke session")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
