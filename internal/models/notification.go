package models

import "time"

// NotificationKind is the event that produced a notification.
type NotificationKind string

const (
	NotificationLike    NotificationKind = "like"
	NotificationComment NotificationKind = "comment"
	NotificationFollow  NotificationKind = "follow"
)

// Notification is addressed to the session user.
type Notification struct {
	ID             uint             `json:"id" yaml:"id"`
	Kind           NotificationKind `json:"type" yaml:"type"`
	FromUsername   string           `json:"from_username" yaml:"from_username"`
	FromUserAvatar string           `json:"from_user_avatar,omitempty" yaml:"from_user_avatar,omitempty"`
	// RecID is nil for follow notifications.
	RecID     *uint     `json:"rec_id,omitempty" yaml:"rec_id,omitempty"`
	IsRead    bool      `json:"is_read" yaml:"is_read"`
	CreatedAt time.Time `json:"created_at" yaml:"created_at"`
}

// Text is the phrase shown after the sender's name.
func (n Notification) Text() string {
	switch n.Kind {
	case NotificationLike:
		return "liked your rec"
	case NotificationComment:
		return "commented on your rec"
	case NotificationFollow:
		return "started following you"
	default:
		return "interacted with you"
	}
}

// CountUnread returns how many notifications have not been read.
func CountUnread(list []Notification) int {
	n := 0
	for _, item := range list {
		if !item.IsRead {
			n++
		}
	}
	return n
}
