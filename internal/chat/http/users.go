package http

import (
	"net/http"

	"github.com/aussiebroadwan/tabchat/internal/chat/service"
	"github.com/aussiebroadwan/tabchat/pkg/chatsdk"
	"github.com/aussiebroadwan/tabchat/pkg/httpx"
	"github.com/aussiebroadwan/tabchat/pkg/slogx"
)

type SignupHandler struct {
	Users *service.UserService
}

// ServeHTTP godoc
//
//	@Summary		Create Account
//	@Description	Creates a user account. A supplied email is stored encrypted.
//	@Tags			Users
//	@Accept			json
//	@Produce		json
//	@Param			request	body		chatsdk.SignupRequest	true	"username, password, optional email"
//	@Success		201		{object}	chatsdk.Profile
//	@Failure		400		{object}	chatsdk.ErrorResponse	"error, error_description"
//	@Failure		409		{object}	chatsdk.ErrorResponse	"username taken"
//	@Failure		429		{object}	chatsdk.ErrorResponse	"cooldown active"
//	@Failure		503		{object}	chatsdk.ErrorResponse	"encryption or database unavailable"
//	@Router			/v1/users [post].
func (h *SignupHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req chatsdk.SignupRequest
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		writeBadRequest(w, "Invalid JSON in request body")
		return
	}

	user, err := h.Users.Signup(ctx, req.Username, req.Password, req.Email)
	if err != nil {
		writeServiceError(w, r, err, "Failed to create account")
		return
	}

	slogx.FromContext(ctx).Info("account created", "user_id", user.ID)
	httpx.WriteJSON(w, http.StatusCreated, h.Users.Me(ctx, user))
}

type MeHandler struct {
	Users *service.UserService
}

// HandleGet handles GET /v1/me
//
//	@Summary		Current User
//	@Description	Returns the caller's profile including the decrypted email. App sessions need the profile:read scope.
//	@Tags			Users
//	@Produce		json
//	@Security		BearerAuth
//	@Success		200	{object}	chatsdk.Profile
//	@Failure		401	{object}	chatsdk.ErrorResponse	"error, error_description"
//	@Failure		403	{object}	chatsdk.ErrorResponse	"error, error_description"
//	@Router			/v1/me [get].
func (h *MeHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	p := principalFrom(r.Context())
	httpx.WriteJSON(w, http.StatusOK, h.Users.Me(r.Context(), p.User))
}

// HandleUpdateEmail handles PUT /v1/me/email
//
//	@Summary		Update Email
//	@Description	Replaces the caller's email. The new value is sealed under a fresh record key.
//	@Tags			Users
//	@Accept			json
//	@Security		BearerAuth
//	@Param			request	body	chatsdk.UpdateEmailRequest	true	"new email"
//	@Success		204
//	@Failure		400	{object}	chatsdk.ErrorResponse	"error, error_description"
//	@Failure		401	{object}	chatsdk.ErrorResponse	"error, error_description"
//	@Failure		403	{object}	chatsdk.ErrorResponse	"suspended"
//	@Failure		503	{object}	chatsdk.ErrorResponse	"encryption unavailable"
//	@Router			/v1/me/email [put].
func (h *MeHandler) HandleUpdateEmail(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	p := principalFrom(ctx)

	var req chatsdk.UpdateEmailRequest
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		writeBadRequest(w, "Invalid JSON in request body")
		return
	}

	if err := h.Users.UpdateEmail(ctx, p.User.ID, req.Email); err != nil {
		writeServiceError(w, r, err, "Failed to update email")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleScheduleDeletion handles POST /v1/me/delete
//
//	@Summary		Schedule Account Deletion
//	@Description	Marks the account for deletion after seven days. Logging in before then cancels it.
//	@Tags			Users
//	@Produce		json
//	@Security		BearerAuth
//	@Success		202	{object}	chatsdk.DeletionResponse
//	@Failure		401	{object}	chatsdk.ErrorResponse	"error, error_description"
//	@Router			/v1/me/delete [post].
func (h *MeHandler) HandleScheduleDeletion(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	p := principalFrom(ctx)

	at, err := h.Users.ScheduleDeletion(ctx, p.User.ID)
	if err != nil {
		writeServiceError(w, r, err, "Failed to schedule deletion")
		return
	}

	slogx.FromContext(ctx).Info("account deletion scheduled", "delete_after", at)
	httpx.WriteJSON(w, http.StatusAccepted, chatsdk.DeletionResponse{DeleteAfter: at})
}
