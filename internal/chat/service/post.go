package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/aussiebroadwan/tabchat/internal/chat/domain"
	"github.com/aussiebroadwan/tabchat/internal/chat/store"
	"github.com/aussiebroadwan/tabchat/pkg/clock"
	"github.com/aussiebroadwan/tabchat/pkg/idx"
)

// Broadcaster fans a command frame out to every live connection.
type Broadcaster interface {
	BroadcastCommand(cmd string, val any) int
}

type PostService struct {
	Store       store.Store
	Broadcaster Broadcaster
	Clock       clock.Clock
}

func (s *PostService) now() time.Time {
	if s.Clock == nil {
		return time.Now()
	}
	return s.Clock.Now()
}

// Create stores a home post by author and announces it.
func (s *PostService) Create(ctx context.Context, author domain.User, content string) (domain.Post, error) {
	content = strings.TrimSpace(content)
	if content == "" || utf8.RuneCountInString(content) > domain.MaxPostLength {
		return domain.Post{}, fmt.Errorf("%w: post must be 1-%d characters", ErrInvalidInput, domain.MaxPostLength)
	}

	now := s.now()
	p := domain.Post{
		ID:       idx.NewAt(now).String(),
		AuthorID: author.ID,
		Author:   author.Username,
		Content:  content,
		Created:  now,
	}
	if err := s.Store.Posts().CreatePost(ctx, p); err != nil {
		return domain.Post{}, unavailable(err)
	}

	if s.Broadcaster != nil {
		s.Broadcaster.BroadcastCommand("post", p)
	}
	return p, nil
}

func (s *PostService) Home(ctx context.Context) ([]domain.Post, error) {
	posts, err := s.Store.Posts().ListLatestPosts(ctx, domain.HomePageSize)
	if err != nil {
		return nil, unavailable(err)
	}
	return posts, nil
}

func (s *PostService) Get(ctx context.Context, id string) (domain.Post, error) {
	p, err := s.Store.Posts().GetPostByID(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return domain.Post{}, ErrPostNotFound
	}
	if err != nil {
		return domain.Post{}, unavailable(err)
	}
	return p, nil
}
