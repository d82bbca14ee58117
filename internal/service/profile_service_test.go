package service

import (
	"context"
	"testing"

	"recs/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProfileLoad(t *testing.T) {
	t.Parallel()
	api := noopAPI()
	api.fetchUserFn = func(_ context.Context, username string) (*models.User, error) {
		return &models.User{Username: username, TunedIn: 4, RecsCount: 1, IsFollowing: models.BoolPtr(true)}, nil
	}
	api.fetchUserRecsFn = func(_ context.Context, username string) ([]models.Rec, error) {
		return []models.Rec{{ID: 5, Username: username}}, nil
	}
	f := newFixture(api)

	p, err := f.profiles.Load(context.Background(), "bo")
	require.NoError(t, err)
	assert.Equal(t, "bo", p.User.Username)
	assert.True(t, p.User.Following())
	require.Len(t, p.Recs, 1)

	cached, ok := f.store.GetUser("bo")
	require.True(t, ok)
	assert.Equal(t, 4, cached.TunedIn)
}

func TestProfileLoadOwnProfileHasNoFollowFlag(t *testing.T) {
	t.Parallel()
	api := noopAPI()
	api.fetchUserFn = func(_ context.Context, username string) (*models.User, error) {
		return &models.User{Username: username, IsFollowing: models.BoolPtr(false)}, nil
	}
	f := newFixture(api)

	p, err := f.profiles.Load(context.Background(), viewer)
	require.NoError(t, err)
	assert.Nil(t, p.User.IsFollowing)
}

func TestProfileLoadError(t *testing.T) {
	t.Parallel()
	api := noopAPI()
	api.fetchUserRecsFn = func(_ context.Context, _ string) ([]models.Rec, error) { return nil, errOffline }
	f := newFixture(api)

	_, err := f.profiles.Load(context.Background(), "bo")
	assert.ErrorIs(t, err, errOffline)

	_, err = f.profiles.Load(context.Background(), "")
	assertCode(t, err, models.CodeValidation)
}

func TestProfileMe(t *testing.T) {
	t.Parallel()
	api := noopAPI()
	api.fetchMeFn = func(_ context.Context) (*models.User, error) {
		return &models.User{Username: viewer, TunedTo: 2, IsFollowing: models.BoolPtr(false)}, nil
	}
	f := newFixture(api)

	me, err := f.profiles.Me(context.Background())
	require.NoError(t, err)
	assert.Nil(t, me.IsFollowing)
	assert.Equal(t, 2, me.TunedTo)
}

func TestSearchOverlaysConfirmedFollow(t *testing.T) {
	t.Parallel()
	api := noopAPI()
	f := newFixture(api)
	f.store.PutUser(models.User{Username: "bo", TunedIn: 1, IsFollowing: models.BoolPtr(false)})

	api.searchUsersFn = func(ctx context.Context, _ string) ([]models.User, error) {
		_, err := f.engagement.ToggleFollow(ctx, "bo")
		require.NoError(t, err)
		return []models.User{
			{Username: "bo", TunedIn: 1, IsFollowing: models.BoolPtr(false)},
			{Username: "bob", TunedIn: 0, IsFollowing: models.BoolPtr(false)},
		}, nil
	}

	users, err := f.profiles.Search(context.Background(), "bo")
	require.NoError(t, err)
	require.Len(t, users, 2)
	assert.True(t, users[0].Following())
	assert.Equal(t, 2, users[0].TunedIn)
	assert.False(t, users[1].Following())
}

func TestSearchKeepsKnownEngagementForCachedRows(t *testing.T) {
	t.Parallel()
	api := noopAPI()
	api.searchUsersFn = func(context.Context, string) ([]models.User, error) {
		return []models.User{
			{Username: "bo", Bio: "new bio"},
			{Username: viewer},
			{Username: "bob", Bio: "fresh"},
		}, nil
	}
	f := newFixture(api)
	f.store.PutUser(models.User{Username: "bo", Bio: "old", TunedIn: 5, IsFollowing: models.BoolPtr(true)})
	f.store.PutUser(models.User{Username: viewer, TunedTo: 3})

	users, err := f.profiles.Search(context.Background(), "bo")
	require.NoError(t, err)
	require.Len(t, users, 3)
	assert.Equal(t, "new bio", users[0].Bio)
	assert.True(t, users[0].Following())
	assert.Equal(t, 5, users[0].TunedIn)
	assert.Equal(t, 3, users[1].TunedTo)
	assert.Nil(t, users[2].IsFollowing)

	me, ok := f.store.GetUser(viewer)
	require.True(t, ok)
	assert.Equal(t, 3, me.TunedTo)
	_, ok = f.store.GetUser("bob")
	assert.True(t, ok)
}

func TestSearchRequiresQuery(t *testing.T) {
	t.Parallel()
	f := newFixture(noopAPI())
	_, err := f.profiles.Search(context.Background(), "  ")
	assertCode(t, err, models.CodeValidation)
}
