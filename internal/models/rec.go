// Package models contains data structures for the recs client domain.
package models

import (
	"net/url"
	"strings"
	"time"
	"unicode/utf8"
)

// DefaultCategories are offered when composing a rec. Categories are free-form.
var DefaultCategories = []string{"music", "film", "article", "podcast", "video", "book", "fashion"}

const (
	maxTitleLength    = 200
	maxCategoryLength = 50
	maxURLLength      = 500
)

// Rec is a user-authored recommendation.
type Rec struct {
	ID          uint   `gorm:"primaryKey;autoIncrement:false" json:"id" yaml:"id"`
	Username    string `gorm:"index;not null" json:"username" yaml:"username"`
	UserAvatar  string `json:"user_avatar,omitempty" yaml:"user_avatar,omitempty"`
	Category    string `gorm:"not null" json:"category" yaml:"category"`
	Title       string `gorm:"not null" json:"title" yaml:"title"`
	Description string `gorm:"type:text" json:"description" yaml:"description"`
	Link        string `json:"link" yaml:"link"`
	Image       string `json:"image" yaml:"image"`
	LikesCount  int    `json:"likes_count" yaml:"likes_count"`
	// IsLiked is relative to the session user.
	IsLiked   bool      `json:"is_liked" yaml:"is_liked"`
	CreatedAt time.Time `json:"created_at" yaml:"created_at"`
}

// TableName keeps the snapshot table name stable.
func (Rec) TableName() string { return "recs" }

// RecTombstone records a rec deleted by the session user.
type RecTombstone struct {
	RecID uint `gorm:"primaryKey;autoIncrement:false"`
}

// CreateRecInput carries the fields of a new rec.
type CreateRecInput struct {
	Category    string `json:"category" yaml:"category"`
	Title       string `json:"title" yaml:"title"`
	Description string `json:"description" yaml:"description"`
	Link        string `json:"link,omitempty" yaml:"link,omitempty"`
	Image       string `json:"image,omitempty" yaml:"image,omitempty"`
}

// Normalize trims every field and lower-cases the category.
func (in CreateRecInput) Normalize() CreateRecInput {
	return CreateRecInput{
		Category:    strings.ToLower(strings.TrimSpace(in.Category)),
		Title:       strings.TrimSpace(in.Title),
		Description: strings.TrimSpace(in.Description),
		Link:        strings.TrimSpace(in.Link),
		Image:       strings.TrimSpace(in.Image),
	}
}

// Validate expects a normalized input.
func (in CreateRecInput) Validate() error {
	if in.Title == "" {
		return NewValidationError("title is required")
	}
	if utf8.RuneCountInString(in.Title) > maxTitleLength {
		return NewValidationError("title must be 200 characters or fewer")
	}
	if in.Category == "" {
		return NewValidationError("category is required")
	}
	if utf8.RuneCountInString(in.Category) > maxCategoryLength {
		return NewValidationError("category must be 50 characters or fewer")
	}
	if err := validateURL("link", in.Link); err != nil {
		return err
	}
	return validateURL("image", in.Image)
}

func validateURL(field, raw string) error {
	if raw == "" {
		return nil
	}
	if len(raw) > maxURLLength {
		return NewValidationError(field + " must be 500 characters or fewer")
	}
	u, err := url.ParseRequestURI(raw)
	if err != nil || u.Host == "" {
		return NewValidationError(field + " must be an absolute URL")
	}
	return nil
}
