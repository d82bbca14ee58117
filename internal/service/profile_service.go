package service

import (
	"context"
	"fmt"
	"strings"

	"recs/internal/models"
	"recs/internal/observability"
	"recs/internal/remote"
	"recs/internal/store"

	"golang.org/x/sync/errgroup"
)

// Profile is a user together with the recs they authored.
type Profile struct {
	User models.User  `json:"user" yaml:"user"`
	Recs []models.Rec `json:"recs" yaml:"recs"`
}

// ProfileService loads users through the store with the same overlay rule as feeds.
type ProfileService struct {
	store  *store.Store
	api    remote.API
	feed   *FeedService
	viewer string
}

func NewProfileService(st *store.Store, api remote.API, feed *FeedService, viewer string) *ProfileService {
	return &ProfileService{store: st, api: api, feed: feed, viewer: viewer}
}

// Me fetches the session user.
func (s *ProfileService) Me(ctx context.Context) (*models.User, error) {
	since := s.store.Mark()
	u, err := s.api.FetchMe(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch session user: %w", err)
	}
	merged := s.mergeUser(*u, since)
	return &merged, nil
}

// Load fetches a profile and its recs concurrently.
func (s *ProfileService) Load(ctx context.Context, username string) (*Profile, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, models.NewValidationError("Username is required")
	}

	since := s.store.Mark()
	var (
		user *models.User
		recs []models.Rec
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		user, err = s.api.FetchUser(gctx, username)
		return err
	})
	g.Go(func() error {
		var err error
		recs, err = s.feed.Assemble(gctx, UserScope(username))
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("load profile %s: %w", username, err)
	}

	return &Profile{User: s.mergeUser(*user, since), Recs: recs}, nil
}

// Search finds users by query.
func (s *ProfileService) Search(ctx context.Context, query string) ([]models.User, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, models.NewValidationError("Search query is required")
	}

	since := s.store.Mark()
	users, err := s.api.SearchUsers(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("search users: %w", err)
	}

	out := make([]models.User, 0, len(users))
	for _, u := range users {
		// No follow flag means no engagement: the viewer's own row, or a cached hit.
		if u.IsFollowing == nil {
			out = append(out, s.store.MergeUserIdentity(u))
			continue
		}
		out = append(out, s.mergeUser(u, since))
	}
	return out, nil
}

func (s *ProfileService) mergeUser(u models.User, since uint64) models.User {
	if u.Username == s.viewer {
		u.IsFollowing = nil
	}
	merged, kept := s.store.MergeUser(u, since)
	observability.RecordOverlay(kept)
	return merged
}
