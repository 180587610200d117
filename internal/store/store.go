package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"

	"github.com/arawak/scribe/internal/metrics"
)

var ErrNotFound = errors.New("not found")
var ErrInvalid = errors.New("invalid input")

const postColumns = "id, title, content, category, created_at, updated_at"

type Store struct {
	db       *sqlx.DB
	now      func() time.Time
	maxTags  int
	validate *validator.Validate
	logger   *slog.Logger
}

type Option func(*Store)

// WithClock replaces time.Now as the source of post dates.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

// WithMaxTags sets how many raw tags an update keeps. n <= 0 disables the cap.
func WithMaxTags(n int) Option {
	return func(s *Store) {
		s.maxTags = n
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

func New(db *sqlx.DB, opts ...Option) *Store {
	s := &Store{
		db:       db,
		now:      time.Now,
		maxTags:  DefaultMaxTags,
		validate: newValidator(),
		logger:   slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// today is the current date at day precision, in UTC.
func (s *Store) today() time.Time {
	t := s.now().UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func (s *Store) CreatePost(ctx context.Context, in PostInput) (post *Post, err error) {
	defer func() { s.observe("create", err) }()

	in, err = s.prepare(in, 0)
	if err != nil {
		return nil, err
	}
	today := s.today()

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin create: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		"INSERT INTO post (title, content, category, created_at, updated_at) VALUES (?, ?, ?, ?, ?)",
		in.Title, in.Content, in.Category, today, today,
	)
	if err != nil {
		return nil, fmt.Errorf("insert post: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("post id: %w", err)
	}

	if err := s.linkTagsTx(ctx, tx, id, in.Tags); err != nil {
		return nil, err
	}

	post, err = s.fetchPost(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit create: %w", err)
	}
	return post, nil
}

func (s *Store) GetPost(ctx context.Context, id int64) (post *Post, err error) {
	defer func() { s.observe("get", err) }()
	return s.fetchPost(ctx, s.db, id)
}

// UpdatePost overwrites the post's fields and replaces its whole tag set.
// Tags dropped from the post stay in the tag table until a delete sweeps them.
func (s *Store) UpdatePost(ctx context.Context, id int64, in PostInput) (post *Post, err error) {
	defer func() { s.observe("update", err) }()

	in, err = s.prepare(in, s.maxTags)
	if err != nil {
		return nil, err
	}
	today := s.today()

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin update: %w", err)
	}
	defer tx.Rollback()

	var existing int64
	err = tx.GetContext(ctx, &existing, "SELECT id FROM post WHERE id = ? FOR UPDATE", id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("lock post: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		"UPDATE post SET title = ?, content = ?, category = ?, updated_at = GREATEST(created_at, CAST(? AS DATE)) WHERE id = ?",
		in.Title, in.Content, in.Category, today, id,
	)
	if err != nil {
		return nil, fmt.Errorf("update post: %w", err)
	}

	if _, err := tx.ExecContext(ctx, "DELETE FROM post_tag WHERE post_id = ?", id); err != nil {
		return nil, fmt.Errorf("unlink tags: %w", err)
	}
	if err := s.linkTagsTx(ctx, tx, id, in.Tags); err != nil {
		return nil, err
	}

	post, err = s.fetchPost(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit update: %w", err)
	}
	return post, nil
}

// DeletePost removes the post and its links, then drops every tag that no
// post references any more.
func (s *Store) DeletePost(ctx context.Context, id int64) (err error) {
	defer func() { s.observe("delete", err) }()

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin delete: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM post_tag WHERE post_id = ?", id); err != nil {
		return fmt.Errorf("unlink tags: %w", err)
	}
	res, err := tx.ExecContext(ctx, "DELETE FROM post WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete post: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete post: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}

	// Global sweep; fine while the tag table stays small.
	if _, err := tx.ExecContext(ctx, "DELETE t FROM tag t LEFT JOIN post_tag pt ON pt.tag_id = t.id WHERE pt.tag_id IS NULL"); err != nil {
		return fmt.Errorf("sweep tags: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit delete: %w", err)
	}
	return nil
}

// ListPosts returns every post, or only those whose title, content or
// category contains term, ignoring case. No match yields an empty slice.
func (s *Store) ListPosts(ctx context.Context, term string) (posts []Post, err error) {
	defer func() { s.observe("list", err) }()

	query := "SELECT " + postColumns + " FROM post"
	var args []any
	if term != "" {
		pattern := "%" + escapeLike(term) + "%"
		query += " WHERE title LIKE ? OR content LIKE ? OR category LIKE ?"
		args = append(args, pattern, pattern, pattern)
	}
	query += " ORDER BY id"

	rows := []Post{}
	if err := s.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("list posts: %w", err)
	}

	refs := make([]*Post, len(rows))
	for i := range rows {
		refs[i] = &rows[i]
	}
	if err := s.attachTags(ctx, s.db, refs); err != nil {
		return nil, err
	}
	return rows, nil
}

// ListTags returns tag names in order, optionally limited to those starting
// with the normalized prefix.
func (s *Store) ListTags(ctx context.Context, prefix string) (tags []string, err error) {
	defer func() { s.observe("list_tags", err) }()

	query := "SELECT name FROM tag"
	var args []any
	if p := NormalizeTag(prefix); p != "" {
		query += " WHERE name LIKE ?"
		args = append(args, p+"%")
	}
	query += " ORDER BY name"

	tags = []string{}
	if err := s.db.SelectContext(ctx, &tags, query, args...); err != nil {
		return nil, fmt.Errorf("list tags: %w", err)
	}
	return tags, nil
}

// linkTagsTx resolves each normalized tag to an id, creating it if needed,
// and links it to the post in the given order.
func (s *Store) linkTagsTx(ctx context.Context, tx *sqlx.Tx, postID int64, tags []string) error {
	for i, name := range tags {
		res, err := tx.ExecContext(ctx, "INSERT INTO tag (name) VALUES (?) ON DUPLICATE KEY UPDATE id = LAST_INSERT_ID(id)", name)
		if err != nil {
			return fmt.Errorf("upsert tag %q: %w", name, err)
		}
		tagID, err := res.LastInsertId()
		if err != nil {
			return fmt.Errorf("tag id %q: %w", name, err)
		}
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO post_tag (post_id, tag_id, position) VALUES (?, ?, ?) ON DUPLICATE KEY UPDATE position = position",
			postID, tagID, i,
		); err != nil {
			return fmt.Errorf("link tag %q: %w", name, err)
		}
	}
	return nil
}

func (s *Store) fetchPost(ctx context.Context, q sqlx.QueryerContext, id int64) (*Post, error) {
	var p Post
	err := sqlx.GetContext(ctx, q, &p, "SELECT "+postColumns+" FROM post WHERE id = ?", id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get post %d: %w", id, err)
	}
	if err := s.attachTags(ctx, q, []*Post{&p}); err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *Store) attachTags(ctx context.Context, q sqlx.QueryerContext, posts []*Post) error {
	if len(posts) == 0 {
		return nil
	}
	ids := make([]int64, len(posts))
	index := make(map[int64]*Post, len(posts))
	for i, p := range posts {
		p.Tags = []string{}
		ids[i] = p.ID
		index[p.ID] = p
	}

	query, args, err := sqlx.In("SELECT pt.post_id, t.name FROM post_tag pt JOIN tag t ON t.id = pt.tag_id WHERE pt.post_id IN (?) ORDER BY pt.post_id, pt.position", ids)
	if err != nil {
		return fmt.Errorf("build tag query: %w", err)
	}
	rows, err := q.QueryxContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("load tags: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var postID int64
		var name string
		if err := rows.Scan(&postID, &name); err != nil {
			return fmt.Errorf("scan tag: %w", err)
		}
		index[postID].Tags = append(index[postID].Tags, name)
	}
	return rows.Err()
}

func (s *Store) observe(op string, err error) {
	outcome := metrics.OutcomeOK
	switch {
	case err == nil:
	case errors.Is(err, ErrNotFound):
		outcome = metrics.OutcomeNotFound
	case errors.Is(err, ErrInvalid):
		outcome = metrics.OutcomeInvalid
	default:
		outcome = metrics.OutcomeError
		s.logger.Debug("store operation failed", "operation", op, "error", err)
	}
	metrics.ObserveStoreOperation(op, outcome)
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// escapeLike makes term match literally inside a LIKE pattern.
func escapeLike(term string) string {
	return likeEscaper.Replace(term)
}
