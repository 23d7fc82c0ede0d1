package http

import (
	"errors"
	"net/http"

	"github.com/aussiebroadwan/tabchat/internal/chat/service"
	"github.com/aussiebroadwan/tabchat/pkg/chatsdk"
	"github.com/aussiebroadwan/tabchat/pkg/httpx"
	"github.com/aussiebroadwan/tabchat/pkg/slogx"
)

type AdminHandler struct {
	Users *service.UserService
}

// HandleBan handles POST /v1/admin/users/{id}/ban
//
//	@Summary		Ban User
//	@Description	Bans a user, revokes all of their sessions and closes their gateway connections. Moderators and admins only.
//	@Tags			Admin
//	@Produce		json
//	@Security		BearerAuth
//	@Param			id	path		string	true	"User ID"
//	@Success		200	{object}	chatsdk.BanResponse
//	@Failure		401	{object}	chatsdk.ErrorResponse	"error, error_description"
//	@Failure		403	{object}	chatsdk.ErrorResponse	"insufficient level"
//	@Failure		404	{object}	chatsdk.ErrorResponse	"unknown user"
//	@Router			/v1/admin/users/{id}/ban [post].
func (h *AdminHandler) HandleBan(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	p := principalFrom(ctx)

	target := r.PathValue("id")
	if target == "" {
		writeBadRequest(w, "user id is required")
		return
	}
	if target == p.User.ID {
		writeBadRequest(w, "cannot ban yourself")
		return
	}

	revoked, err := h.Users.Ban(ctx, target)
	if errors.Is(err, service.ErrUnknownUser) {
		httpx.WriteError(w, http.StatusNotFound, chatsdk.ErrorCodeNotFound, "user not found")
		return
	}
	if err != nil {
		writeServiceError(w, r, err, "Failed to ban user")
		return
	}

	slogx.FromContext(ctx).Warn("user banned by moderator", "target_user_id", target, "sessions_revoked", revoked)
	httpx.WriteJSON(w, http.StatusOK, chatsdk.BanResponse{UserID: target, SessionsRevoked: revoked})
}
