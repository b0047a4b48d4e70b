package board

import "time"

// Category is the board section a post belongs to.
type Category string

const (
	CategoryNotice     Category = "공지사항"
	CategoryHealthInfo Category = "건강정보"
	CategoryExamGuide  Category = "검사안내"
	CategoryEvent      Category = "이벤트"
	CategoryRecruit    Category = "채용공고"
)

// Valid reports whether c is a known category.
func (c Category) Valid() bool {
	switch c {
	case CategoryNotice, CategoryHealthInfo, CategoryExamGuide, CategoryEvent, CategoryRecruit:
		return true
	}
	return false
}

// Post is one board entry.
type Post struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Content     string    `json:"content"`
	Category    Category  `json:"category"`
	Author      string    `json:"author"`
	IsPinned    bool      `json:"is_pinned"`
	IsPublished bool      `json:"is_published"`
	ViewCount   int       `json:"view_count"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// CreateRequest is the admin post composition payload.
type CreateRequest struct {
	Title       string   `json:"title" binding:"required"`
	Content     string   `json:"content" binding:"required"`
	Category    Category `json:"category" binding:"required"`
	IsPinned    bool     `json:"is_pinned"`
	IsPublished bool     `json:"is_published"`
}

// UpdateRequest edits an existing post. Pointer fields distinguish "leave
// unchanged" from "set to zero value".
type UpdateRequest struct {
	Title       *string   `json:"title"`
	Content     *string   `json:"content"`
	Category    *Category `json:"category"`
	IsPinned    *bool     `json:"is_pinned"`
	IsPublished *bool     `json:"is_published"`
}
