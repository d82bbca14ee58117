// Package repository persists client state between runs.
package repository

import (
	"context"
	"fmt"

	"recs/internal/models"
	"recs/internal/observability"
	"recs/internal/store"

	"go.opentelemetry.io/otel/attribute"
	"gorm.io/gorm"
)

const batchSize = 200

// SnapshotRepository saves and restores store snapshots.
type SnapshotRepository interface {
	Save(ctx context.Context, snap store.Snapshot) error
	Load(ctx context.Context) (store.Snapshot, error)
}

type snapshotRepository struct {
	db *gorm.DB
}

// NewSnapshotRepository creates a new SnapshotRepository
func NewSnapshotRepository(db *gorm.DB) SnapshotRepository {
	return &snapshotRepository{db: db}
}

// Save replaces the stored snapshot with snap in one transaction.
func (r *snapshotRepository) Save(ctx context.Context, snap store.Snapshot) error {
	span, ctx := observability.NewSpan(ctx, "snapshot.save")
	defer span.End()
	span.AddAttributes(
		attribute.Int("snapshot.users", len(snap.Users)),
		attribute.Int("snapshot.recs", len(snap.Recs)),
		attribute.Int("snapshot.deleted", len(snap.Deleted)),
	)

	tombstones := make([]models.RecTombstone, 0, len(snap.Deleted))
	for _, id := range snap.Deleted {
		tombstones = append(tombstones, models.RecTombstone{RecID: id})
	}

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := replaceAll(tx, &models.User{}, snap.Users, "users"); err != nil {
			return err
		}
		if err := replaceAll(tx, &models.Rec{}, snap.Recs, "recs"); err != nil {
			return err
		}
		if err := replaceAll(tx, &models.Comment{}, snap.Comments, "comments"); err != nil {
			return err
		}
		return replaceAll(tx, &models.RecTombstone{}, tombstones, "rec_tombstones")
	})
	if err != nil {
		span.SetError(err)
		return fmt.Errorf("save snapshot: %w", err)
	}
	return nil
}

func (r *snapshotRepository) Load(ctx context.Context) (snap store.Snapshot, err error) {
	span, ctx := observability.NewSpan(ctx, "snapshot.load")
	defer func() {
		span.SetError(err)
		span.AddAttributes(attribute.Int("snapshot.recs", len(snap.Recs)))
		span.End()
	}()

	var tombstones []models.RecTombstone
	db := r.db.WithContext(ctx)

	done := observability.TrackSnapshotQuery("select", "users")
	err = db.Order("username").Find(&snap.Users).Error
	done()
	if err != nil {
		return store.Snapshot{}, fmt.Errorf("load users: %w", err)
	}

	done = observability.TrackSnapshotQuery("select", "recs")
	err = db.Order("id").Find(&snap.Recs).Error
	done()
	if err != nil {
		return store.Snapshot{}, fmt.Errorf("load recs: %w", err)
	}

	done = observability.TrackSnapshotQuery("select", "comments")
	err = db.Order("rec_id, position").Find(&snap.Comments).Error
	done()
	if err != nil {
		return store.Snapshot{}, fmt.Errorf("load comments: %w", err)
	}

	done = observability.TrackSnapshotQuery("select", "rec_tombstones")
	err = db.Order("rec_id").Find(&tombstones).Error
	done()
	if err != nil {
		return store.Snapshot{}, fmt.Errorf("load tombstones: %w", err)
	}
	for _, t := range tombstones {
		snap.Deleted = append(snap.Deleted, t.RecID)
	}
	return snap, nil
}

func replaceAll[T any](tx *gorm.DB, model *T, rows []T, table string) error {
	defer observability.TrackSnapshotQuery("replace", table)()

	if err := tx.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(model).Error; err != nil {
		return fmt.Errorf("clear %s: %w", table, err)
	}
	if len(rows) == 0 {
		return nil
	}
	if err := tx.CreateInBatches(rows, batchSize).Error; err != nil {
		return fmt.Errorf("write %s: %w", table, err)
	}
	return nil
}
