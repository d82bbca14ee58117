package service

import (
	"context"
	"strings"

	"recs/internal/models"
	"recs/internal/observability"
	"recs/internal/remote"
	"recs/internal/store"
)

// ScopeKind selects which rows a feed shows.
type ScopeKind string

const (
	// ScopeFeed is recs from users the session user follows.
	ScopeFeed ScopeKind = "feed"
	// ScopeUser is one user's recs.
	ScopeUser ScopeKind = "user"
)

// Scope is a feed selection. Username is set for ScopeUser only.
type Scope struct {
	Kind     ScopeKind
	Username string
}

// FeedScope is the followed-users scope.
func FeedScope() Scope { return Scope{Kind: ScopeFeed} }

// UserScope is the scope of recs authored by username.
func UserScope(username string) Scope { return Scope{Kind: ScopeUser, Username: username} }

func (s Scope) String() string {
	if s.Kind == ScopeUser {
		return string(s.Kind) + ":" + s.Username
	}
	return string(s.Kind)
}

// FeedService assembles ordered rec rows for a scope.
type FeedService struct {
	store *store.Store
	api   remote.API
}

func NewFeedService(st *store.Store, api remote.API) *FeedService {
	return &FeedService{store: st, api: api}
}

// Assemble fetches the scope and overlays cached engagement. A cached like
// state survives only if it was confirmed after this fetch began, or if a
// toggle on it is still in flight; otherwise the server row wins.
func (s *FeedService) Assemble(ctx context.Context, scope Scope) ([]models.Rec, error) {
	since := s.store.Mark()

	var (
		rows []models.Rec
		err  error
	)
	switch scope.Kind {
	case ScopeFeed:
		rows, err = s.api.FetchFeed(ctx)
	case ScopeUser:
		if strings.TrimSpace(scope.Username) == "" {
			return nil, models.NewValidationError("Username is required")
		}
		rows, err = s.api.FetchUserRecs(ctx, scope.Username)
	default:
		return nil, models.NewValidationError("Unknown feed scope " + string(scope.Kind))
	}
	if err != nil {
		return nil, err
	}

	return s.overlay(rows, since), nil
}

func (s *FeedService) overlay(rows []models.Rec, since uint64) []models.Rec {
	out := make([]models.Rec, 0, len(rows))
	for _, row := range rows {
		merged, kept, ok := s.store.MergeRec(row, since)
		if !ok {
			continue
		}
		observability.RecordOverlay(kept)
		out = append(out, merged)
	}
	return out
}
