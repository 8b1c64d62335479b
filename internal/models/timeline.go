package models

import "time"

// Page size bounds for timeline reads. Limits outside
// [MinPageLimit, MaxPageLimit] fall back to DefaultPageLimit.
const (
	DefaultPageLimit = 20
	MinPageLimit     = 1
	MaxPageLimit     = 100
)

// TimelineEntry places a post in one owner's timeline. At most one entry
// exists per (OwnerUserID, PostID).
type TimelineEntry struct {
	OwnerUserID string    `gorm:"primaryKey;size:64" json:"ownerUserId"`
	PostID      string    `gorm:"primaryKey;size:36" json:"postId"`
	AuthorID    string    `gorm:"not null;size:64" json:"authorId"`
	CreatedAt   time.Time `gorm:"not null" json:"createdAt"`
}

func (TimelineEntry) TableName() string { return "timeline_entries" }

// EntryFor builds the timeline entry that places post in owner's timeline.
func EntryFor(owner string, post *Post) TimelineEntry {
	return TimelineEntry{
		OwnerUserID: owner,
		PostID:      post.ID,
		AuthorID:    post.AuthorID,
		CreatedAt:   post.CreatedAt,
	}
}

// TimelinePage is one page of raw entries, newest first. NextCursor is nil
// when the owner's timeline has no older entries.
type TimelinePage struct {
	Entries    []TimelineEntry
	NextCursor *string
}

// Timeline is a hydrated page as served to API clients.
type Timeline struct {
	Posts      []*Post `json:"tweets"`
	NextCursor *string `json:"nextCursor"`
}

// NormalizeLimit clamps a requested page size.
func NormalizeLimit(limit int) int {
	if limit < MinPageLimit || limit > MaxPageLimit {
		return DefaultPageLimit
	}
	return limit
}
