// Package testutil provides shared fixtures for tests.
package testutil

import (
	"fmt"
	"time"

	"recs/internal/models"

	"github.com/brianvoe/gofakeit/v6"
)

// Factory builds domain entities with realistic fake content. A fixed seed
// gives the same entities on every run.
type Factory struct {
	faker  *gofakeit.Faker
	nextID uint
}

// NewFactory creates a Factory seeded with seed.
func NewFactory(seed int64) *Factory {
	return &Factory{faker: gofakeit.New(seed), nextID: 1000}
}

func (f *Factory) id() uint {
	f.nextID++
	return f.nextID
}

// User builds a user with non-negative counters.
func (f *Factory) User(overrides ...func(*models.User)) models.User {
	u := models.User{
		ID:          f.id(),
		Username:    f.faker.Username(),
		Bio:         f.faker.Sentence(8),
		Avatar:      fmt.Sprintf("https://picsum.photos/seed/%s/200/200", f.faker.UUID()),
		RecsCount:   f.faker.Number(0, 40),
		TunedIn:     f.faker.Number(0, 500),
		TunedTo:     f.faker.Number(0, 200),
		IsFollowing: models.BoolPtr(f.faker.Bool()),
	}
	for _, o := range overrides {
		o(&u)
	}
	return u
}

// Rec builds a rec in one of the default categories.
func (f *Factory) Rec(overrides ...func(*models.Rec)) models.Rec {
	r := models.Rec{
		ID:          f.id(),
		Username:    f.faker.Username(),
		Category:    f.faker.RandomString(models.DefaultCategories),
		Title:       f.faker.Sentence(4),
		Description: f.faker.Paragraph(1, 2, 8, " "),
		Link:        f.faker.URL(),
		LikesCount:  f.faker.Number(0, 100),
		CreatedAt:   f.faker.DateRange(time.Now().AddDate(0, -3, 0), time.Now()).UTC(),
	}
	for _, o := range overrides {
		o(&r)
	}
	return r
}

// Comments builds n comments on recID in insertion order.
func (f *Factory) Comments(recID uint, n int) []models.Comment {
	out := make([]models.Comment, 0, n)
	for i := range n {
		out = append(out, models.Comment{
			ID:        f.id(),
			RecID:     recID,
			Username:  f.faker.Username(),
			Content:   f.faker.Sentence(6),
			CreatedAt: time.Now().Add(time.Duration(i-n) * time.Minute).UTC(),
			Position:  i,
		})
	}
	return out
}

// Notifications builds n notifications of mixed kinds, the first unread.
func (f *Factory) Notifications(n int) []models.Notification {
	kinds := []models.NotificationKind{models.NotificationLike, models.NotificationComment, models.NotificationFollow}
	out := make([]models.Notification, 0, n)
	for i := range n {
		kind := kinds[i%len(kinds)]
		notif := models.Notification{
			ID:           f.id(),
			Kind:         kind,
			FromUsername: f.faker.Username(),
			IsRead:       i > 0 && f.faker.Bool(),
			CreatedAt:    time.Now().Add(-time.Duration(i) * time.Hour).UTC(),
		}
		if kind != models.NotificationFollow {
			recID := f.id()
			notif.RecID = &recID
		}
		out = append(out, notif)
	}
	return out
}
