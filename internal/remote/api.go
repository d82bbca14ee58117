// Package remote talks to the recs server.
package remote

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"recs/internal/models"
)

// API is every server operation the client core depends on.
type API interface {
	FetchMe(ctx context.Context) (*models.User, error)
	FetchUser(ctx context.Context, username string) (*models.User, error)
	SearchUsers(ctx context.Context, query string) ([]models.User, error)
	Follow(ctx context.Context, username string) error
	Unfollow(ctx context.Context, username string) error

	FetchFeed(ctx context.Context) ([]models.Rec, error)
	FetchUserRecs(ctx context.Context, username string) ([]models.Rec, error)
	FetchRec(ctx context.Context, id uint) (*models.Rec, error)
	CreateRec(ctx context.Context, input models.CreateRecInput) (*models.Rec, error)
	DeleteRec(ctx context.Context, id uint) error
	Like(ctx context.Context, id uint) error
	Unlike(ctx context.Context, id uint) error

	FetchComments(ctx context.Context, recID uint) ([]models.Comment, error)
	PostComment(ctx context.Context, recID uint, text string) (*models.Comment, error)

	FetchNotifications(ctx context.Context) ([]models.Notification, error)
	MarkNotificationsRead(ctx context.Context) error
}

var (
	// ErrNotFound matches a remote failure caused by a missing entity.
	ErrNotFound = errors.New("remote: not found")
	// ErrSessionExpired is returned before any request when the bearer token has expired.
	ErrSessionExpired = errors.New("remote: session token expired")
)

// Error is the uniform transport failure.
type Error struct {
	Op      string
	Status  int
	Message string
	Err     error
}

func (e *Error) Error() string {
	switch {
	case e.Status != 0 && e.Message != "":
		return fmt.Sprintf("%s: status %d: %s", e.Op, e.Status, e.Message)
	case e.Status != 0:
		return fmt.Sprintf("%s: status %d", e.Op, e.Status)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	default:
		return e.Op + ": remote error"
	}
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is lets errors.Is(err, ErrNotFound) match a 404.
func (e *Error) Is(target error) bool {
	return target == ErrNotFound && e.Status == http.StatusNotFound
}
