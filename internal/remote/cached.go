package remote

import (
	"context"
	"time"

	"recs/internal/cache"
	"recs/internal/models"
)

// CachedAPI reads comments and user search results through Redis.
// Every other call, and every call when the cache is disabled, goes straight to next.
type CachedAPI struct {
	API
	ttl time.Duration
}

// NewCachedAPI wraps next. A zero ttl uses cache.DefaultTTL.
func NewCachedAPI(next API, ttl time.Duration) *CachedAPI {
	if ttl <= 0 {
		ttl = cache.DefaultTTL
	}
	return &CachedAPI{API: next, ttl: ttl}
}

func (c *CachedAPI) FetchComments(ctx context.Context, recID uint) ([]models.Comment, error) {
	var comments []models.Comment
	err := cache.Aside(ctx, cache.CommentsKey(recID), &comments, c.ttl, func() error {
		var err error
		comments, err = c.API.FetchComments(ctx, recID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return comments, nil
}

func (c *CachedAPI) PostComment(ctx context.Context, recID uint, text string) (*models.Comment, error) {
	comment, err := c.API.PostComment(ctx, recID, text)
	if err != nil {
		return nil, err
	}
	cache.InvalidateComments(ctx, recID)
	return comment, nil
}

// SearchUsers caches identity only. Rows served from Redis have no follow flag
// and zero counters; the caller keeps whatever engagement it already knows.
func (c *CachedAPI) SearchUsers(ctx context.Context, query string) ([]models.User, error) {
	var (
		live, hits []models.User
		fetched    bool
	)
	key := cache.UserSearchKey(cache.SearchGeneration(ctx), query)
	err := cache.Aside(ctx, key, &hits, c.ttl, func() error {
		var err error
		live, err = c.API.SearchUsers(ctx, query)
		hits, fetched = withoutEngagement(live), true
		return err
	})
	if err != nil {
		return nil, err
	}
	if fetched {
		return live, nil
	}
	return hits, nil
}

// CreateRec drops cached search results, which carry recs_count.
func (c *CachedAPI) CreateRec(ctx context.Context, input models.CreateRecInput) (*models.Rec, error) {
	rec, err := c.API.CreateRec(ctx, input)
	if err != nil {
		return nil, err
	}
	cache.InvalidateUserSearch(ctx)
	return rec, nil
}

func (c *CachedAPI) DeleteRec(ctx context.Context, id uint) error {
	if err := c.API.DeleteRec(ctx, id); err != nil {
		return err
	}
	cache.InvalidateComments(ctx, id)
	cache.InvalidateUserSearch(ctx)
	return nil
}

func withoutEngagement(users []models.User) []models.User {
	out := make([]models.User, len(users))
	for i, u := range users {
		u.IsFollowing = nil
		u.TunedIn = 0
		u.TunedTo = 0
		out[i] = u
	}
	return out
}
