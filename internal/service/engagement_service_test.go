package service

import (
	"context"
	"strings"
	"sync"
	"testing"

	"recs/internal/models"
	"recs/internal/mutation"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToggleLikeSymmetry(t *testing.T) {
	t.Parallel()
	api := noopAPI()
	var calls []string
	api.likeFn = func(_ context.Context, _ uint) error { calls = append(calls, "like"); return nil }
	api.unlikeFn = func(_ context.Context, _ uint) error { calls = append(calls, "unlike"); return nil }
	f := newFixture(api)
	f.store.PutRec(models.Rec{ID: 42, LikesCount: 5})
	ctx := context.Background()

	liked, err := f.engagement.ToggleLike(ctx, 42)
	require.NoError(t, err)
	assert.Equal(t, 6, liked.LikesCount)
	assert.True(t, liked.IsLiked)

	unliked, err := f.engagement.ToggleLike(ctx, 42)
	require.NoError(t, err)
	assert.Equal(t, 5, unliked.LikesCount)
	assert.False(t, unliked.IsLiked)

	assert.Equal(t, []string{"like", "unlike"}, calls)
	cached, _ := f.store.GetRec(42)
	assert.Equal(t, 5, cached.LikesCount)
	assert.False(t, cached.IsLiked)
}

func TestToggleLikeRollback(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		likes   int
		isLiked bool
	}{
		{name: "like from zero", likes: 0},
		{name: "like", likes: 5},
		{name: "unlike", likes: 6, isLiked: true},
		{name: "unlike inconsistent zero", likes: 0, isLiked: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			api := noopAPI()
			api.likeFn = func(_ context.Context, _ uint) error { return errOffline }
			api.unlikeFn = func(_ context.Context, _ uint) error { return errOffline }
			f := newFixture(api)
			f.store.PutRec(models.Rec{ID: 42, LikesCount: tt.likes, IsLiked: tt.isLiked})

			rec, err := f.engagement.ToggleLike(context.Background(), 42)
			assert.Nil(t, rec)
			assertCode(t, err, models.CodeSync)
			assert.ErrorIs(t, err, errOffline)

			cached, _ := f.store.GetRec(42)
			assert.Equal(t, tt.likes, cached.LikesCount)
			assert.Equal(t, tt.isLiked, cached.IsLiked)
			assert.NoError(t, f.queue.Run(context.Background(), mutation.RecLikeKey(42), func(context.Context) error { return nil }))
		})
	}
}

func TestToggleLikeObservesOptimisticStateBeforeRemote(t *testing.T) {
	t.Parallel()
	api := noopAPI()
	f := newFixture(api)
	f.store.PutRec(models.Rec{ID: 42, LikesCount: 5})

	var seen models.Rec
	api.likeFn = func(_ context.Context, _ uint) error {
		seen, _ = f.store.GetRec(42)
		return errOffline
	}

	_, err := f.engagement.ToggleLike(context.Background(), 42)
	require.Error(t, err)
	assert.Equal(t, 6, seen.LikesCount)
	assert.True(t, seen.IsLiked)
}

func TestToggleLikeUnknownRec(t *testing.T) {
	t.Parallel()
	api := noopAPI()
	api.likeFn = func(_ context.Context, _ uint) error {
		t.Fatal("remote must not be called")
		return nil
	}
	f := newFixture(api)

	_, err := f.engagement.ToggleLike(context.Background(), 404)
	assertCode(t, err, models.CodeNotFound)
}

func TestToggleLikeConcurrentDoubleTapCountsOnce(t *testing.T) {
	t.Parallel()
	api := noopAPI()
	entered := make(chan struct{})
	release := make(chan struct{})
	var mu sync.Mutex
	likeCalls := 0
	api.likeFn = func(_ context.Context, _ uint) error {
		mu.Lock()
		likeCalls++
		mu.Unlock()
		close(entered)
		<-release
		return nil
	}
	f := newFixture(api)
	f.store.PutRec(models.Rec{ID: 42, LikesCount: 5})

	done := make(chan error, 1)
	go func() {
		_, err := f.engagement.ToggleLike(context.Background(), 42)
		done <- err
	}()
	<-entered

	_, err := f.engagement.ToggleLike(context.Background(), 42)
	assert.ErrorIs(t, err, models.ErrConflictSkipped)
	assertCode(t, err, models.CodeConflictSkipped)

	close(release)
	require.NoError(t, <-done)

	cached, _ := f.store.GetRec(42)
	assert.Equal(t, 6, cached.LikesCount)
	assert.True(t, cached.IsLiked)
	assert.Equal(t, 1, likeCalls)
}

func TestToggleLikeDifferentRecsRunConcurrently(t *testing.T) {
	t.Parallel()
	api := noopAPI()
	entered := make(chan struct{})
	release := make(chan struct{})
	api.likeFn = func(_ context.Context, id uint) error {
		if id == 1 {
			close(entered)
			<-release
		}
		return nil
	}
	f := newFixture(api)
	f.store.PutRec(models.Rec{ID: 1})
	f.store.PutRec(models.Rec{ID: 2})

	done := make(chan error, 1)
	go func() {
		_, err := f.engagement.ToggleLike(context.Background(), 1)
		done <- err
	}()
	<-entered

	rec, err := f.engagement.ToggleLike(context.Background(), 2)
	require.NoError(t, err)
	assert.Equal(t, 1, rec.LikesCount)

	close(release)
	require.NoError(t, <-done)
}

func TestToggleFollowCouplesCounters(t *testing.T) {
	t.Parallel()
	api := noopAPI()
	var calls []string
	api.followFn = func(_ context.Context, u string) error { calls = append(calls, "follow:"+u); return nil }
	api.unfollowFn = func(_ context.Context, u string) error { calls = append(calls, "unfollow:"+u); return nil }
	f := newFixture(api)
	f.store.PutUser(models.User{Username: viewer, TunedTo: 3})
	f.store.PutUser(models.User{Username: "bo", TunedIn: 10, IsFollowing: models.BoolPtr(false)})
	ctx := context.Background()

	u, err := f.engagement.ToggleFollow(ctx, "bo")
	require.NoError(t, err)
	assert.True(t, u.Following())
	assert.Equal(t, 11, u.TunedIn)
	me, _ := f.store.GetUser(viewer)
	assert.Equal(t, 4, me.TunedTo)

	u, err = f.engagement.ToggleFollow(ctx, "bo")
	require.NoError(t, err)
	assert.False(t, u.Following())
	assert.Equal(t, 10, u.TunedIn)
	me, _ = f.store.GetUser(viewer)
	assert.Equal(t, 3, me.TunedTo)

	assert.Equal(t, []string{"follow:bo", "unfollow:bo"}, calls)
}

func TestToggleFollowRollbackRevertsBothSides(t *testing.T) {
	t.Parallel()
	api := noopAPI()
	api.followFn = func(_ context.Context, _ string) error { return errOffline }
	f := newFixture(api)
	f.store.PutUser(models.User{Username: viewer, TunedTo: 3})
	f.store.PutUser(models.User{Username: "bo", TunedIn: 10, IsFollowing: models.BoolPtr(false)})

	_, err := f.engagement.ToggleFollow(context.Background(), "bo")
	assertCode(t, err, models.CodeSync)

	target, _ := f.store.GetUser("bo")
	me, _ := f.store.GetUser(viewer)
	assert.Equal(t, 10, target.TunedIn)
	assert.False(t, target.Following())
	assert.Equal(t, 3, me.TunedTo)
}

func TestToggleFollowRollbackPreservesConcurrentFollow(t *testing.T) {
	t.Parallel()
	api := noopAPI()
	entered := make(chan struct{})
	release := make(chan struct{})
	api.followFn = func(_ context.Context, u string) error {
		if u == "bo" {
			close(entered)
			<-release
			return errOffline
		}
		return nil
	}
	f := newFixture(api)
	f.store.PutUser(models.User{Username: viewer, TunedTo: 0})
	f.store.PutUser(models.User{Username: "bo"})
	f.store.PutUser(models.User{Username: "cy"})

	done := make(chan error, 1)
	go func() {
		_, err := f.engagement.ToggleFollow(context.Background(), "bo")
		done <- err
	}()
	<-entered

	_, err := f.engagement.ToggleFollow(context.Background(), "cy")
	require.NoError(t, err)
	close(release)
	assertCode(t, <-done, models.CodeSync)

	me, _ := f.store.GetUser(viewer)
	assert.Equal(t, 1, me.TunedTo)
}

func TestToggleFollowValidation(t *testing.T) {
	t.Parallel()
	f := newFixture(noopAPI())
	f.store.PutUser(models.User{Username: viewer})

	_, err := f.engagement.ToggleFollow(context.Background(), viewer)
	assertCode(t, err, models.CodeValidation)

	_, err = f.engagement.ToggleFollow(context.Background(), "nobody")
	assertCode(t, err, models.CodeNotFound)
}

func TestAddComment(t *testing.T) {
	t.Parallel()

	t.Run("appends server comment verbatim", func(t *testing.T) {
		t.Parallel()
		api := noopAPI()
		api.postCommentFn = func(_ context.Context, recID uint, _ string) (*models.Comment, error) {
			return &models.Comment{ID: 31, RecID: recID, Username: viewer, Content: "nice"}, nil
		}
		f := newFixture(api)
		f.store.AppendComment(models.Comment{ID: 30, RecID: 7, Content: "first"})

		c, err := f.engagement.AddComment(context.Background(), 7, "nice  ")
		require.NoError(t, err)
		assert.Equal(t, "nice", c.Content)

		list := f.store.Comments(7)
		require.Len(t, list, 2)
		assert.Equal(t, uint(31), list[1].ID)
		assert.Equal(t, "nice", list[1].Content)
	})

	t.Run("failure appends nothing", func(t *testing.T) {
		t.Parallel()
		api := noopAPI()
		api.postCommentFn = func(_ context.Context, _ uint, _ string) (*models.Comment, error) {
			return nil, errOffline
		}
		f := newFixture(api)

		_, err := f.engagement.AddComment(context.Background(), 7, "nice")
		assertCode(t, err, models.CodeSync)
		assert.Empty(t, f.store.Comments(7))
	})

	t.Run("rejects blank text", func(t *testing.T) {
		t.Parallel()
		api := noopAPI()
		api.postCommentFn = func(_ context.Context, _ uint, _ string) (*models.Comment, error) {
			t.Fatal("remote must not be called")
			return nil, nil
		}
		f := newFixture(api)

		_, err := f.engagement.AddComment(context.Background(), 7, " \n\t ")
		assertCode(t, err, models.CodeValidation)
		_, err = f.engagement.AddComment(context.Background(), 7, strings.Repeat("a", maxCommentLength+1))
		assertCode(t, err, models.CodeValidation)
	})
}

// A fetch that started before a toggle and lands while the toggle is in flight
// must leave the failed toggle's rollback exact.
func TestFailedToggleSurvivesStaleFetchLandingMidFlight(t *testing.T) {
	t.Parallel()

	t.Run("like", func(t *testing.T) {
		t.Parallel()
		api := noopAPI()
		entered := make(chan struct{})
		release := make(chan struct{})
		api.likeFn = func(_ context.Context, _ uint) error {
			close(entered)
			<-release
			return errOffline
		}
		f := newFixture(api)
		f.store.PutRec(models.Rec{ID: 42, LikesCount: 5})
		since := f.store.Mark()

		done := make(chan error, 1)
		go func() {
			_, err := f.engagement.ToggleLike(context.Background(), 42)
			done <- err
		}()
		<-entered

		merged, kept, ok := f.store.MergeRec(models.Rec{ID: 42, LikesCount: 5}, since)
		require.True(t, ok)
		assert.True(t, kept)
		assert.Equal(t, 6, merged.LikesCount)

		close(release)
		assertCode(t, <-done, models.CodeSync)
		cached, _ := f.store.GetRec(42)
		assert.Equal(t, 5, cached.LikesCount)
		assert.False(t, cached.IsLiked)
	})

	t.Run("follow", func(t *testing.T) {
		t.Parallel()
		api := noopAPI()
		entered := make(chan struct{})
		release := make(chan struct{})
		api.followFn = func(_ context.Context, _ string) error {
			close(entered)
			<-release
			return errOffline
		}
		f := newFixture(api)
		f.store.PutUser(models.User{Username: viewer, TunedTo: 3})
		f.store.PutUser(models.User{Username: "bo", TunedIn: 10, IsFollowing: models.BoolPtr(false)})
		since := f.store.Mark()

		done := make(chan error, 1)
		go func() {
			_, err := f.engagement.ToggleFollow(context.Background(), "bo")
			done <- err
		}()
		<-entered

		_, kept := f.store.MergeUser(models.User{Username: "bo", TunedIn: 10, IsFollowing: models.BoolPtr(false)}, since)
		assert.True(t, kept)
		_, kept = f.store.MergeUser(models.User{Username: viewer, TunedTo: 3}, since)
		assert.True(t, kept)

		close(release)
		assertCode(t, <-done, models.CodeSync)
		target, _ := f.store.GetUser("bo")
		me, _ := f.store.GetUser(viewer)
		assert.Equal(t, 10, target.TunedIn)
		assert.False(t, target.Following())
		assert.Equal(t, 3, me.TunedTo)
	})
}
