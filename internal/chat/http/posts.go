package http

import (
	"net/http"

	"github.com/aussiebroadwan/tabchat/internal/chat/service"
	"github.com/aussiebroadwan/tabchat/pkg/chatsdk"
	"github.com/aussiebroadwan/tabchat/pkg/httpx"
)

type PostsHandler struct {
	Posts *service.PostService
}

// ServeHTTP godoc
//
//	@Summary		Create Post
//	@Description	Publishes a post to the home feed and broadcasts it to every gateway connection. App sessions need the posts:write scope.
//	@Tags			Posts
//	@Accept			json
//	@Produce		json
//	@Security		BearerAuth
//	@Param			request	body		chatsdk.CreatePostRequest	true	"content"
//	@Success		201		{object}	chatsdk.Post
//	@Failure		400		{object}	chatsdk.ErrorResponse	"error, error_description"
//	@Failure		401		{object}	chatsdk.ErrorResponse	"error, error_description"
//	@Failure		403		{object}	chatsdk.ErrorResponse	"missing scope or suspended"
//	@Failure		429		{object}	chatsdk.ErrorResponse	"cooldown active"
//	@Router			/v1/home [post].
func (h *PostsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	p := principalFrom(ctx)

	var req chatsdk.CreatePostRequest
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		writeBadRequest(w, "Invalid JSON in request body")
		return
	}

	post, err := h.Posts.Create(ctx, p.User, req.Content)
	if err != nil {
		writeServiceError(w, r, err, "Failed to create post")
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, post)
}
