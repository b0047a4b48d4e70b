package board

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// ErrNotFound is returned when no post matches the given ID.
var ErrNotFound = errors.New("post not found")

// Storage persists board posts.
type Storage interface {
	Create(ctx context.Context, p *Post) error
	List(ctx context.Context, category Category, publishedOnly bool) ([]Post, error)
	GetByID(ctx context.Context, id string) (*Post, error)
	Update(ctx context.Context, p *Post) error
	Delete(ctx context.Context, id string) error
	IncrementViews(ctx context.Context, id string) error
}

type pgStorage struct {
	db *sql.DB
}

// NewPGStorage creates a Postgres-backed board store.
func NewPGStorage(db *sql.DB) Storage {
	return &pgStorage{db: db}
}

const postColumns = `id, title, content, category, author,
	is_pinned, is_published, view_count, created_at, updated_at`

func scanPost(row interface{ Scan(...any) error }) (*Post, error) {
	var p Post
	err := row.Scan(
		&p.ID, &p.Title, &p.Content, &p.Category, &p.Author,
		&p.IsPinned, &p.IsPublished, &p.ViewCount, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *pgStorage) Create(ctx context.Context, p *Post) error {
	now := time.Now()
	p.CreatedAt = now
	p.UpdatedAt = now

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO board_posts
			(id, title, content, category, author, is_pinned, is_published,
			 view_count, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, 0, $8, $9)`,
		p.ID, p.Title, p.Content, string(p.Category), p.Author,
		p.IsPinned, p.IsPublished, p.CreatedAt, p.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert post: %w", err)
	}
	return nil
}

// List orders pinned posts first, then newest first. An empty category
// matches every category.
func (s *pgStorage) List(ctx context.Context, category Category, publishedOnly bool) ([]Post, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+postColumns+` FROM board_posts
		 WHERE ($1 = '' OR category = $1)
		   AND (NOT $2 OR is_published)
		 ORDER BY is_pinned DESC, created_at DESC`,
		string(category), publishedOnly)
	if err != nil {
		return nil, fmt.Errorf("failed to list posts: %w", err)
	}
	defer rows.Close()

	var out []Post
	for rows.Next() {
		p, err := scanPost(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan post: %w", err)
		}
		out = append(out, *p)
	}
	return out, rows.Err()
}

func (s *pgStorage) GetByID(ctx context.Context, id string) (*Post, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+postColumns+` FROM board_posts WHERE id = $1`, id)

	p, err := scanPost(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get post: %w", err)
	}
	return p, nil
}

func (s *pgStorage) Update(ctx context.Context, p *Post) error {
	p.UpdatedAt = time.Now()

	res, err := s.db.ExecContext(ctx,
		`UPDATE board_posts
		 SET title = $1, content = $2, category = $3, is_pinned = $4,
		     is_published = $5, updated_at = $6
		 WHERE id = $7`,
		p.Title, p.Content, string(p.Category), p.IsPinned,
		p.IsPublished, p.UpdatedAt, p.ID)
	if err != nil {
		return fmt.Errorf("failed to update post: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *pgStorage) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM board_posts WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete post: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *pgStorage) IncrementViews(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE board_posts SET view_count = view_count + 1 WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to increment view count: %w", err)
	}
	return nil
}
