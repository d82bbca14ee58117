// Package bootstrap wires configuration, transport, cache, snapshot storage
// and services into a Runtime.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"recs/internal/cache"
	"recs/internal/config"
	"recs/internal/database"
	"recs/internal/models"
	"recs/internal/mutation"
	"recs/internal/observability"
	"recs/internal/remote"
	"recs/internal/repository"
	"recs/internal/service"
	"recs/internal/store"

	"gorm.io/gorm"
)

// Options control runtime initialization behavior.
type Options struct {
	// API replaces the HTTP adapter. Tests use it.
	API     remote.API
	Version string
}

// Runtime is the fully wired client core for one process.
type Runtime struct {
	Config *config.Config
	Store  *store.Store
	Queue  *mutation.Queue
	API    remote.API
	Viewer string

	Engagement    *service.EngagementService
	Feed          *service.FeedService
	Profiles      *service.ProfileService
	Recs          *service.RecService
	Notifications *service.NotificationService

	db              *gorm.DB
	snapshots       repository.SnapshotRepository
	shutdownTracing func(context.Context) error
}

// InitRuntime connects the cache, restores the snapshot, resolves the viewer
// and builds the services.
func InitRuntime(ctx context.Context, cfg *config.Config, opts Options) (*Runtime, error) {
	if cfg == nil {
		return nil, errors.New("config is required")
	}
	observability.SetLevel(cfg.LogLevel)

	shutdown, err := observability.InitTracing(cfg.TracingConfig(opts.Version))
	if err != nil {
		return nil, fmt.Errorf("tracing init failed: %w", err)
	}

	rt := &Runtime{
		Config:          cfg,
		Store:           store.New(),
		Queue:           mutation.NewQueue(),
		shutdownTracing: shutdown,
	}

	// Init Redis (nil client when unset or unreachable)
	cache.InitRedis(cfg.RedisURL)

	api := opts.API
	if api == nil {
		api = remote.NewHTTPClient(remote.Options{
			BaseURL:   cfg.APIURL,
			Token:     cfg.APIToken,
			Timeout:   cfg.HTTPTimeout(),
			RateLimit: cfg.RateLimitRPS,
			Burst:     cfg.RateLimitBurst,
		})
	}
	if cache.Enabled() && cfg.CacheTTL() > 0 {
		api = remote.NewCachedAPI(api, cfg.CacheTTL())
	}
	rt.API = api

	if path := strings.TrimSpace(cfg.SnapshotPath); path != "" {
		if err := rt.openSnapshot(ctx, path); err != nil {
			_ = rt.Close(ctx)
			return nil, err
		}
	}

	viewer, err := rt.resolveViewer(ctx)
	if err != nil {
		_ = rt.Close(ctx)
		return nil, err
	}
	rt.Viewer = viewer

	rt.Feed = service.NewFeedService(rt.Store, api)
	rt.Engagement = service.NewEngagementService(rt.Store, rt.Queue, api, viewer)
	rt.Profiles = service.NewProfileService(rt.Store, api, rt.Feed, viewer)
	rt.Recs = service.NewRecService(rt.Store, api, viewer)
	rt.Notifications = service.NewNotificationService(api, rt.Queue)

	return rt, nil
}

func (r *Runtime) openSnapshot(ctx context.Context, path string) error {
	db, err := database.Open(path)
	if err != nil {
		return fmt.Errorf("snapshot open failed: %w", err)
	}
	r.db = db
	r.snapshots = repository.NewSnapshotRepository(db)

	snap, err := r.snapshots.Load(ctx)
	if err != nil {
		// A broken snapshot only costs warm state.
		observability.GlobalLogger.Warn("snapshot restore failed, starting cold", "error", err)
		return nil
	}
	r.Store.Restore(snap)
	observability.GlobalLogger.Debug("snapshot restored",
		"users", len(snap.Users),
		"recs", len(snap.Recs),
		"deleted", len(snap.Deleted),
	)
	return nil
}

// resolveViewer returns the session user and makes sure the store holds it, so
// follow toggles can move its TunedTo. A configured name skips the network; its
// counters come from the snapshot, or start at zero until the profile is loaded.
func (r *Runtime) resolveViewer(ctx context.Context) (string, error) {
	if name := r.Config.ViewerUsername; name != "" {
		if _, ok := r.Store.GetUser(name); !ok {
			r.Store.PutUser(models.User{Username: name})
		}
		return name, nil
	}
	me, err := r.API.FetchMe(ctx)
	if err != nil {
		return "", fmt.Errorf("resolve viewer: %w", err)
	}
	if me == nil || me.Username == "" {
		return "", models.NewValidationError("server returned no username for the current session")
	}
	u := *me
	u.IsFollowing = nil
	r.Store.PutUser(u)
	return u.Username, nil
}

// Close saves the snapshot and releases the database, cache and tracer.
func (r *Runtime) Close(ctx context.Context) error {
	var errs []error
	if r.snapshots != nil {
		if err := r.snapshots.Save(ctx, r.Store.Snapshot()); err != nil {
			errs = append(errs, fmt.Errorf("snapshot save failed: %w", err))
		}
	}
	if r.db != nil {
		if err := database.Close(r.db); err != nil {
			errs = append(errs, err)
		}
		r.db = nil
		r.snapshots = nil
	}
	if err := cache.Close(); err != nil {
		errs = append(errs, err)
	}
	if r.shutdownTracing != nil {
		if err := r.shutdownTracing(ctx); err != nil {
			errs = append(errs, err)
		}
		r.shutdownTracing = nil
	}
	return errors.Join(errs...)
}
