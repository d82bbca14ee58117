package models

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateRecInputValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		input   CreateRecInput
		wantErr string
	}{
		{name: "valid", input: CreateRecInput{Category: " Music ", Title: "Blue Train", Link: "https://example.com/a"}},
		{name: "blank title", input: CreateRecInput{Category: "music", Title: "   "}, wantErr: "title is required"},
		{name: "missing category", input: CreateRecInput{Title: "x"}, wantErr: "category is required"},
		{name: "relative link", input: CreateRecInput{Category: "book", Title: "x", Link: "/foo"}, wantErr: "link must be an absolute URL"},
		{name: "bad image", input: CreateRecInput{Category: "book", Title: "x", Image: "nope"}, wantErr: "image must be an absolute URL"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := tt.input.Normalize().Validate()
			if tt.wantErr == "" {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.True(t, HasCode(err, CodeValidation))
			assert.Equal(t, tt.wantErr, err.Error())
		})
	}
}

func TestNormalizeLowercasesCategory(t *testing.T) {
	t.Parallel()
	in := CreateRecInput{Category: "  FILM ", Title: " Alien "}.Normalize()
	assert.Equal(t, "film", in.Category)
	assert.Equal(t, "Alien", in.Title)
}

func TestSyncErrorUnwraps(t *testing.T) {
	t.Parallel()
	cause := errors.New("boom")
	err := fmt.Errorf("toggle: %w", NewSyncError("like", cause))

	assert.True(t, HasCode(err, CodeSync))
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "toggle: like failed: boom", err.Error())
}

func TestConflictSkippedSentinel(t *testing.T) {
	t.Parallel()
	err := fmt.Errorf("wrapped: %w", ErrConflictSkipped)
	assert.ErrorIs(t, err, ErrConflictSkipped)
	assert.True(t, HasCode(err, CodeConflictSkipped))
	assert.False(t, HasCode(errors.New("plain"), CodeConflictSkipped))
}

func TestNotificationText(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "liked your rec", Notification{Kind: NotificationLike}.Text())
	assert.Equal(t, "commented on your rec", Notification{Kind: NotificationComment}.Text())
	assert.Equal(t, "started following you", Notification{Kind: NotificationFollow}.Text())
	assert.Equal(t, 1, CountUnread([]Notification{{IsRead: true}, {IsRead: false}}))
}
