package sqlite

import (
	"context"

	"github.com/aussiebroadwan/tabchat/internal/chat/domain"
)

type postsRepo struct {
	q querier
}

const postSelect = `
	SELECT p.id, p.author_id, u.username, p.content, p.created_at
	FROM posts p JOIN users u ON u.id = p.author_id`

func scanPost(row rowScanner) (domain.Post, error) {
	var (
		p       domain.Post
		created int64
	)
	if err := row.Scan(&p.ID, &p.AuthorID, &p.Author, &p.Content, &created); err != nil {
		return domain.Post{}, err
	}
	p.Created = fromMillis(created)
	return p, nil
}

func (r *postsRepo) CreatePost(ctx context.Context, p domain.Post) error {
	_, err := r.q.ExecContext(ctx,
		`INSERT INTO posts (id, author_id, content, created_at) VALUES (?, ?, ?, ?)`,
		p.ID, p.AuthorID, p.Content, toMillis(p.Created),
	)
	return mapUniqueViolation(err)
}

func (r *postsRepo) GetPostByID(ctx context.Context, id string) (domain.Post, error) {
	p, err := scanPost(r.q.QueryRowContext(ctx, postSelect+` WHERE p.id = ?`, id))
	if err != nil {
		return domain.Post{}, mapNotFound(err)
	}
	return p, nil
}

func (r *postsRepo) ListLatestPosts(ctx context.Context, limit int) ([]domain.Post, error) {
	rows, err := r.q.QueryContext(ctx, postSelect+` ORDER BY p.created_at DESC, p.id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	posts := make([]domain.Post, 0, limit)
	for rows.Next() {
		p, err := scanPost(rows)
		if err != nil {
			return nil, err
		}
		posts = append(posts, p)
	}
	return posts, rows.Err()
}
