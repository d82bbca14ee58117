package service

import (
	"context"
	"strings"
	"unicode/utf8"

	"recs/internal/models"
	"recs/internal/mutation"
	"recs/internal/observability"
	"recs/internal/remote"
	"recs/internal/store"
)

const maxCommentLength = 10000

// EngagementService applies likes, follows and comments optimistically and
// reconciles them with the server.
type EngagementService struct {
	store  *store.Store
	queue  *mutation.Queue
	api    remote.API
	viewer string
	logger *observability.SyncLogger
}

// NewEngagementService builds the service for the session user viewer.
func NewEngagementService(st *store.Store, queue *mutation.Queue, api remote.API, viewer string) *EngagementService {
	return &EngagementService{
		store:  st,
		queue:  queue,
		api:    api,
		viewer: viewer,
		logger: observability.NewSyncLogger("engagement"),
	}
}

// ToggleLike flips the session user's like on a cached rec. The store changes
// before the remote call; a failed call restores the exact prior state and
// returns a SyncError. A toggle already in flight for the rec yields
// models.ErrConflictSkipped.
func (s *EngagementService) ToggleLike(ctx context.Context, recID uint) (*models.Rec, error) {
	key := mutation.RecLikeKey(recID)
	var result models.Rec

	err := s.queue.Run(ctx, key, func(ctx context.Context) error {
		ctx, span := observability.GetTraceLayer().TraceMutation(ctx, string(key.Kind), key.String())
		defer span.End()

		before, after, err := s.store.BeginLikeToggle(recID)
		if err != nil {
			return err
		}
		call, op := s.api.Like, "like"
		if before.IsLiked {
			call, op = s.api.Unlike, "unlike"
		}
		s.logger.LogApply(ctx, key.String(), map[string]interface{}{"likes_count": after.LikesCount, "is_liked": after.IsLiked})

		if err := call(ctx, recID); err != nil {
			s.store.SettleRec(recID, &store.RecDelta{Likes: before.LikesCount - after.LikesCount, IsLiked: before.IsLiked})
			s.logger.LogRollback(ctx, key.String(), err)
			observability.RecordMutation(string(key.Kind), observability.OutcomeRolledBack)
			observability.RecordErrorInContext(ctx, err)
			return models.NewSyncError(op, err)
		}

		s.store.SettleRec(recID, nil)
		s.logger.LogConfirm(ctx, key.String(), map[string]interface{}{"op": op})
		observability.RecordMutation(string(key.Kind), observability.OutcomeConfirmed)
		result = after
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// ToggleFollow flips whether the session user follows username. The target's
// follower count and the session user's following count move together, and a
// failed call rolls both back together.
func (s *EngagementService) ToggleFollow(ctx context.Context, username string) (*models.User, error) {
	if username == s.viewer {
		return nil, models.NewValidationError("You cannot tune in to yourself")
	}
	key := mutation.FollowKey(username)
	var result models.User

	err := s.queue.Run(ctx, key, func(ctx context.Context) error {
		ctx, span := observability.GetTraceLayer().TraceMutation(ctx, string(key.Kind), key.String())
		defer span.End()

		edge, applied, err := s.store.BeginFollowToggle(s.viewer, username)
		if err != nil {
			return err
		}
		call, op := s.api.Follow, "follow"
		if !edge.IsFollowing {
			call, op = s.api.Unfollow, "unfollow"
		}
		s.logger.LogApply(ctx, key.String(), map[string]interface{}{"tuned_in": applied.Target.TunedIn, "is_following": edge.IsFollowing})

		if err := call(ctx, username); err != nil {
			s.store.SettleFollowEdge(edge, applied, false)
			s.logger.LogRollback(ctx, key.String(), err)
			observability.RecordMutation(string(key.Kind), observability.OutcomeRolledBack)
			observability.RecordErrorInContext(ctx, err)
			return models.NewSyncError(op, err)
		}

		s.store.SettleFollowEdge(edge, applied, true)
		s.logger.LogConfirm(ctx, key.String(), map[string]interface{}{"op": op})
		observability.RecordMutation(string(key.Kind), observability.OutcomeConfirmed)
		result = applied.Target
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// AddComment posts text and appends the server's comment. Nothing is appended
// locally until the server returns it.
func (s *EngagementService) AddComment(ctx context.Context, recID uint, text string) (*models.Comment, error) {
	if strings.TrimSpace(text) == "" {
		return nil, models.NewValidationError("Comment cannot be empty")
	}
	if utf8.RuneCountInString(text) > maxCommentLength {
		return nil, models.NewValidationError("Comment must be 10000 characters or fewer")
	}

	comment, err := s.api.PostComment(ctx, recID, text)
	if err != nil {
		s.logger.LogError(ctx, err, "comment")
		return nil, models.NewSyncError("comment", err)
	}

	s.store.AppendComment(*comment)
	return comment, nil
}
