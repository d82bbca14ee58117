package service

import (
	"context"
	"errors"
	"testing"

	"recs/internal/models"
	"recs/internal/mutation"
	"recs/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// apiStub is a stub for remote.API.
type apiStub struct {
	fetchMeFn               func(context.Context) (*models.User, error)
	fetchUserFn             func(context.Context, string) (*models.User, error)
	searchUsersFn           func(context.Context, string) ([]models.User, error)
	followFn                func(context.Context, string) error
	unfollowFn              func(context.Context, string) error
	fetchFeedFn             func(context.Context) ([]models.Rec, error)
	fetchUserRecsFn         func(context.Context, string) ([]models.Rec, error)
	fetchRecFn              func(context.Context, uint) (*models.Rec, error)
	createRecFn             func(context.Context, models.CreateRecInput) (*models.Rec, error)
	deleteRecFn             func(context.Context, uint) error
	likeFn                  func(context.Context, uint) error
	unlikeFn                func(context.Context, uint) error
	fetchCommentsFn         func(context.Context, uint) ([]models.Comment, error)
	postCommentFn           func(context.Context, uint, string) (*models.Comment, error)
	fetchNotificationsFn    func(context.Context) ([]models.Notification, error)
	markNotificationsReadFn func(context.Context) error
}

func (s *apiStub) FetchMe(ctx context.Context) (*models.User, error) {
	return s.fetchMeFn(ctx)
}
func (s *apiStub) FetchUser(ctx context.Context, username string) (*models.User, error) {
	return s.fetchUserFn(ctx, username)
}
func (s *apiStub) SearchUsers(ctx context.Context, query string) ([]models.User, error) {
	return s.searchUsersFn(ctx, query)
}
func (s *apiStub) Follow(ctx context.Context, username string) error {
	return s.followFn(ctx, username)
}
func (s *apiStub) Unfollow(ctx context.Context, username string) error {
	return s.unfollowFn(ctx, username)
}
func (s *apiStub) FetchFeed(ctx context.Context) ([]models.Rec, error) {
	return s.fetchFeedFn(ctx)
}
func (s *apiStub) FetchUserRecs(ctx context.Context, username string) ([]models.Rec, error) {
	return s.fetchUserRecsFn(ctx, username)
}
func (s *apiStub) FetchRec(ctx context.Context, id uint) (*models.Rec, error) {
	return s.fetchRecFn(ctx, id)
}
func (s *apiStub) CreateRec(ctx context.Context, input models.CreateRecInput) (*models.Rec, error) {
	return s.createRecFn(ctx, input)
}
func (s *apiStub) DeleteRec(ctx context.Context, id uint) error {
	return s.deleteRecFn(ctx, id)
}
func (s *apiStub) Like(ctx context.Context, id uint) error {
	return s.likeFn(ctx, id)
}
func (s *apiStub) Unlike(ctx context.Context, id uint) error {
	return s.unlikeFn(ctx, id)
}
func (s *apiStub) FetchComments(ctx context.Context, recID uint) ([]models.Comment, error) {
	return s.fetchCommentsFn(ctx, recID)
}
func (s *apiStub) PostComment(ctx context.Context, recID uint, text string) (*models.Comment, error) {
	return s.postCommentFn(ctx, recID, text)
}
func (s *apiStub) FetchNotifications(ctx context.Context) ([]models.Notification, error) {
	return s.fetchNotificationsFn(ctx)
}
func (s *apiStub) MarkNotificationsRead(ctx context.Context) error {
	return s.markNotificationsReadFn(ctx)
}

func noopAPI() *apiStub {
	return &apiStub{
		fetchMeFn:       func(_ context.Context) (*models.User, error) { return &models.User{}, nil },
		fetchUserFn:     func(_ context.Context, u string) (*models.User, error) { return &models.User{Username: u}, nil },
		searchUsersFn:   func(_ context.Context, _ string) ([]models.User, error) { return nil, nil },
		followFn:        func(_ context.Context, _ string) error { return nil },
		unfollowFn:      func(_ context.Context, _ string) error { return nil },
		fetchFeedFn:     func(_ context.Context) ([]models.Rec, error) { return nil, nil },
		fetchUserRecsFn: func(_ context.Context, _ string) ([]models.Rec, error) { return nil, nil },
		fetchRecFn:      func(_ context.Context, id uint) (*models.Rec, error) { return &models.Rec{ID: id}, nil },
		createRecFn: func(_ context.Context, in models.CreateRecInput) (*models.Rec, error) {
			return &models.Rec{ID: 1, Title: in.Title, Category: in.Category}, nil
		},
		deleteRecFn:     func(_ context.Context, _ uint) error { return nil },
		likeFn:          func(_ context.Context, _ uint) error { return nil },
		unlikeFn:        func(_ context.Context, _ uint) error { return nil },
		fetchCommentsFn: func(_ context.Context, _ uint) ([]models.Comment, error) { return nil, nil },
		postCommentFn: func(_ context.Context, recID uint, text string) (*models.Comment, error) {
			return &models.Comment{ID: 1, RecID: recID, Content: text}, nil
		},
		fetchNotificationsFn:    func(_ context.Context) ([]models.Notification, error) { return nil, nil },
		markNotificationsReadFn: func(_ context.Context) error { return nil },
	}
}

var errOffline = errors.New("offline")

// fixture wires the services the way bootstrap does, around one store and queue.
type fixture struct {
	store         *store.Store
	queue         *mutation.Queue
	api           *apiStub
	engagement    *EngagementService
	feed          *FeedService
	profiles      *ProfileService
	recs          *RecService
	notifications *NotificationService
}

const viewer = "ana"

func newFixture(api *apiStub) *fixture {
	st := store.New()
	q := mutation.NewQueue()
	feed := NewFeedService(st, api)
	return &fixture{
		store:         st,
		queue:         q,
		api:           api,
		engagement:    NewEngagementService(st, q, api, viewer),
		feed:          feed,
		profiles:      NewProfileService(st, api, feed, viewer),
		recs:          NewRecService(st, api, viewer),
		notifications: NewNotificationService(api, q),
	}
}

func assertCode(t *testing.T, err error, code string) {
	t.Helper()
	require.Error(t, err)
	var appErr *models.AppError
	require.True(t, errors.As(err, &appErr), "expected AppError, got %T", err)
	assert.Equal(t, code, appErr.Code)
}
