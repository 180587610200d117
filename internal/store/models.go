package store

import "time"

type Post struct {
	ID        int64     `db:"id"`
	Title     string    `db:"title"`
	Content   string    `db:"content"`
	Category  *string   `db:"category"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
	Tags      []string  `db:"-"`
}

// PostInput carries the writable fields of a post for both create and update.
// Tags are raw; the store normalizes them.
type PostInput struct {
	Title    string   `json:"title" validate:"required,max=200"`
	Content  string   `json:"content" validate:"required,max=10000"`
	Category *string  `json:"category"`
	Tags     []string `json:"tags" validate:"dive,max=255"`
}
