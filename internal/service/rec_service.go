package service

import (
	"context"
	"fmt"

	"recs/internal/models"
	"recs/internal/observability"
	"recs/internal/remote"
	"recs/internal/store"

	"golang.org/x/sync/errgroup"
)

// RecDetail is a rec and its comments in display order.
type RecDetail struct {
	Rec      models.Rec       `json:"rec" yaml:"rec"`
	Comments []models.Comment `json:"comments" yaml:"comments"`
}

type RecService struct {
	store  *store.Store
	api    remote.API
	viewer string
	logger *observability.SyncLogger
}

func NewRecService(st *store.Store, api remote.API, viewer string) *RecService {
	return &RecService{
		store:  st,
		api:    api,
		viewer: viewer,
		logger: observability.NewSyncLogger("recs"),
	}
}

// Detail fetches a rec and its comments concurrently.
func (s *RecService) Detail(ctx context.Context, id uint) (*RecDetail, error) {
	if s.store.IsDeleted(id) {
		return nil, models.NewNotFoundError("Rec", id)
	}

	since := s.store.Mark()
	var (
		rec      *models.Rec
		comments []models.Comment
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		rec, err = s.api.FetchRec(gctx, id)
		return err
	})
	g.Go(func() error {
		var err error
		comments, err = s.api.FetchComments(gctx, id)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("load rec %d: %w", id, err)
	}

	merged, kept, ok := s.store.MergeRec(*rec, since)
	if !ok {
		return nil, models.NewNotFoundError("Rec", id)
	}
	observability.RecordOverlay(kept)

	return &RecDetail{Rec: merged, Comments: s.store.MergeComments(id, comments)}, nil
}

// Create posts a new rec authored by the session user.
func (s *RecService) Create(ctx context.Context, input models.CreateRecInput) (*models.Rec, error) {
	input = input.Normalize()
	if err := input.Validate(); err != nil {
		return nil, err
	}

	rec, err := s.api.CreateRec(ctx, input)
	if err != nil {
		return nil, models.NewSyncError("create rec", err)
	}

	s.store.PutRec(*rec)
	s.bumpRecsCount(ctx, 1)
	return rec, nil
}

// Delete removes a rec the session user authored. The server is asked first;
// the local purge happens only once it agrees.
func (s *RecService) Delete(ctx context.Context, id uint) error {
	rec, ok := s.store.GetRec(id)
	if !ok {
		return models.NewNotFoundError("Rec", id)
	}
	if rec.Username != s.viewer {
		return models.NewUnauthorizedError("Only the author can delete this rec")
	}

	if err := s.api.DeleteRec(ctx, id); err != nil {
		return models.NewSyncError("delete rec", err)
	}

	s.store.DeleteRec(id)
	s.bumpRecsCount(ctx, -1)
	return nil
}

func (s *RecService) bumpRecsCount(ctx context.Context, delta int) {
	if _, err := s.store.PatchUserEngagement(s.viewer, store.UserDelta{Recs: delta}); err != nil && !models.HasCode(err, models.CodeNotFound) {
		s.logger.LogError(ctx, err, "recs_count")
	}
}
