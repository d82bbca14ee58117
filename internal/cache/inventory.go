package cache

import (
	"context"
	"fmt"
	"strings"
	"time"
)

const (
	CommentsKeyPrefix     = "recs:rec:%d:comments"
	UserSearchKeyPrefix   = "recs:search:%d:%s"
	UserSearchGenerations = "recs:search:gen"
)

// DefaultTTL applies when the configured TTL is zero.
const DefaultTTL = 2 * time.Minute

func CommentsKey(recID uint) string {
	return fmt.Sprintf(CommentsKeyPrefix, recID)
}

// UserSearchKey scopes a query to a search generation so one INCR drops every result.
func UserSearchKey(generation int64, query string) string {
	return fmt.Sprintf(UserSearchKeyPrefix, generation, strings.ToLower(strings.TrimSpace(query)))
}

func Invalidate(ctx context.Context, key string) {
	if client != nil {
		client.Del(ctx, key)
	}
}

func InvalidateComments(ctx context.Context, recID uint) {
	Invalidate(ctx, CommentsKey(recID))
}

// SearchGeneration returns the current user search generation, 0 when unset.
func SearchGeneration(ctx context.Context) int64 {
	if client == nil {
		return 0
	}
	n, err := client.Get(ctx, UserSearchGenerations).Int64()
	if err != nil {
		return 0
	}
	return n
}

// InvalidateUserSearch moves to a new search generation. Old entries expire by TTL.
func InvalidateUserSearch(ctx context.Context) {
	if client != nil {
		client.Incr(ctx, UserSearchGenerations)
	}
}
