package models

import "time"

// Comment is append-only and ordered by insertion within its rec.
type Comment struct {
	ID        uint      `gorm:"primaryKey;autoIncrement:false" json:"id" yaml:"id"`
	RecID     uint      `gorm:"index;not null" json:"rec_id" yaml:"rec_id"`
	Username  string    `gorm:"not null" json:"username" yaml:"username"`
	Content   string    `gorm:"type:text;not null" json:"content" yaml:"content"`
	CreatedAt time.Time `json:"created_at" yaml:"created_at"`
	// Position preserves display order across snapshots.
	Position int `json:"-" yaml:"-"`
}

// TableName keeps the snapshot table name stable.
func (Comment) TableName() string { return "comments" }
