// Package models contains data structures for the feed domain.
package models

import (
	"time"
)

// MaxPostLength is the maximum number of characters in a post body.
const MaxPostLength = 140

// Post is an immutable authored message. Its ID is time-sortable: the
// lexicographic order of IDs matches creation order.
type Post struct {
	ID        string    `gorm:"primaryKey;size:36" json:"tweetId"`
	AuthorID  string    `gorm:"not null;index;size:64" json:"userId"`
	Content   string    `gorm:"type:text;not null" json:"content"`
	ImageRef  *string   `gorm:"size:512" json:"imageUrl,omitempty"`
	CreatedAt time.Time `gorm:"not null" json:"createdAt"`

	// LikeCount is not persisted; filled in when timelines are enriched.
	LikeCount int64 `gorm:"-" json:"likeCount"`
}

// TableName pins the table name used by gorm and the SQL migrations.
func (Post) TableName() string { return "posts" }
