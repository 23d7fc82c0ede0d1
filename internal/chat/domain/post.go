package domain

import "time"

// HomePageSize is the number of posts returned for the home feed.
const HomePageSize = 25

// MaxPostLength bounds post content in runes.
const MaxPostLength = 4000

type Post struct {
	ID       string    `json:"_id"`
	AuthorID string    `json:"-"`
	Author   string    `json:"u"`
	Content  string    `json:"p"`
	Created  time.Time `json:"created"`
}
