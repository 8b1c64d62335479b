package models

import "time"

// FanoutFailure is a ledger row for a post whose follower fanout did not
// fully complete. Rows are retried by the redelivery job and removed once
// a fanout run succeeds.
type FanoutFailure struct {
	PostID    string    `gorm:"primaryKey;size:36" json:"postId"`
	AuthorID  string    `gorm:"not null;size:64" json:"authorId"`
	Attempts  int       `gorm:"not null;default:1" json:"attempts"`
	Failed    int       `gorm:"not null;default:0" json:"failed"`
	LastError string    `gorm:"type:text" json:"lastError"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `gorm:"index" json:"updatedAt"`
}

func (FanoutFailure) TableName() string { return "fanout_failures" }
