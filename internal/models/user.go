package models

// User is keyed by Username, which never changes.
type User struct {
	Username  string `gorm:"primaryKey" json:"username" yaml:"username"`
	ID        uint   `gorm:"index" json:"id" yaml:"id"`
	Bio       string `json:"bio" yaml:"bio"`
	Avatar    string `json:"avatar" yaml:"avatar"`
	RecsCount int    `json:"recs_count" yaml:"recs_count"`
	// TunedIn counts followers, TunedTo counts followed users.
	TunedIn int `json:"tuned_in" yaml:"tuned_in"`
	TunedTo int `json:"tuned_to" yaml:"tuned_to"`
	// IsFollowing is nil on the session user's own profile.
	IsFollowing *bool `json:"is_following,omitempty" yaml:"is_following,omitempty"`
}

// TableName keeps the snapshot table name stable.
func (User) TableName() string { return "users" }

// Following reports IsFollowing, treating nil as false.
func (u User) Following() bool {
	return u.IsFollowing != nil && *u.IsFollowing
}

// BoolPtr returns a pointer to b.
func BoolPtr(b bool) *bool {
	return &b
}
