package models

import "time"

// Post represents an uploaded artwork. MediaRef is the stored filename
// assigned by the media store, distinct from the client's original filename.
// Posts are created once and never mutated.
type Post struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"not null;index" json:"user_id"`
	User      User      `gorm:"foreignKey:UserID" json:"user"`
	MediaRef  string    `gorm:"not null" json:"media_ref"`
	Caption   string    `json:"caption"`
	CreatedAt time.Time `json:"created_at"`

	// LikeCount is not persisted; aggregated from likes at query time.
	LikeCount int `gorm:"->;-:migration" json:"like_count"`
	// Liked indicates whether the requesting viewer liked this post (computed).
	Liked bool `gorm:"->;-:migration" json:"liked"`
	// DisplayTime is the creation instant rendered in the configured
	// display timezone; set by the feed service, never stored.
	DisplayTime string `gorm:"-" json:"display_time,omitempty"`
}
