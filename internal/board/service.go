package board

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/mirae-imaging/backoffice/internal/logger"
)

// Service owns the board post workflow.
type Service struct {
	storage Storage
	logger  *logger.Logger
}

// NewService creates a board service.
func NewService(storage Storage, logger *logger.Logger) *Service {
	return &Service{
		storage: storage,
		logger:  logger,
	}
}

// Create persists a new post authored by the signed-in admin.
func (s *Service) Create(ctx context.Context, req *CreateRequest, author string) (*Post, error) {
	log := s.logger.WithContext(ctx).WithComponent("board-service")

	if !req.Category.Valid() {
		return nil, fmt.Errorf("invalid category %q", req.Category)
	}

	p := &Post{
		ID:          uuid.New().String(),
		Title:       req.Title,
		Content:     req.Content,
		Category:    req.Category,
		Author:      author,
		IsPinned:    req.IsPinned,
		IsPublished: req.IsPublished,
	}

	if err := s.storage.Create(ctx, p); err != nil {
		log.Error("failed to create post", slog.String("error", err.Error()))
		return nil, fmt.Errorf("failed to create post: %w", err)
	}

	log.Info("post created",
		slog.String("post_id", p.ID),
		slog.String("category", string(p.Category)))

	return p, nil
}

// ListPublic returns published posts, pinned first, optionally filtered by
// category.
func (s *Service) ListPublic(ctx context.Context, category Category) ([]Post, error) {
	if category != "" && !category.Valid() {
		return nil, fmt.Errorf("invalid category %q", category)
	}
	return s.storage.List(ctx, category, true)
}

// ListAll returns every post including drafts, pinned first.
func (s *Service) ListAll(ctx context.Context, category Category) ([]Post, error) {
	if category != "" && !category.Valid() {
		return nil, fmt.Errorf("invalid category %q", category)
	}
	return s.storage.List(ctx, category, false)
}

// Get returns one post and bumps its view counter. The bump is best-effort;
// a failed increment does not fail the read.
func (s *Service) Get(ctx context.Context, id string) (*Post, error) {
	p, err := s.storage.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := s.storage.IncrementViews(ctx, id); err != nil {
		s.logger.WithContext(ctx).WithComponent("board-service").
			Warn("failed to increment view count",
				slog.String("error", err.Error()),
				slog.String("post_id", id))
	} else {
		p.ViewCount++
	}

	return p, nil
}

// Update applies the non-nil fields of req to the post.
func (s *Service) Update(ctx context.Context, id string, req *UpdateRequest) (*Post, error) {
	log := s.logger.WithContext(ctx).WithComponent("board-service")

	p, err := s.storage.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Title != nil {
		p.Title = *req.Title
	}
	if req.Content != nil {
		p.Content = *req.Content
	}
	if req.Category != nil {
		if !req.Category.Valid() {
			return nil, fmt.Errorf("invalid category %q", *req.Category)
		}
		p.Category = *req.Category
	}
	if req.IsPinned != nil {
		p.IsPinned = *req.IsPinned
	}
	if req.IsPublished != nil {
		p.IsPublished = *req.IsPublished
	}

	if err := s.storage.Update(ctx, p); err != nil {
		log.Error("failed to update post",
			slog.String("error", err.Error()),
			slog.String("post_id", id))
		return nil, err
	}

	log.Info("post updated", slog.String("post_id", id))
	return p, nil
}

// Delete removes a post.
func (s *Service) Delete(ctx context.Context, id string) error {
	if err := s.storage.Delete(ctx, id); err != nil {
		return err
	}
	s.logger.WithContext(ctx).WithComponent("board-service").
		Info("post deleted", slog.String("post_id", id))
	return nil
}
