package models

import "time"

// Follow is a directed edge: FollowerID follows FollowingID.
type Follow struct {
	FollowerID  string    `gorm:"primaryKey;size:64" json:"followerId"`
	FollowingID string    `gorm:"primaryKey;size:64;index" json:"followingId"`
	CreatedAt   time.Time `json:"createdAt"`
}

func (Follow) TableName() string { return "follows" }

// FollowCounts summarizes both directions of a user's follow graph.
type FollowCounts struct {
	UserID    string `json:"userId"`
	Followers int64  `json:"followers"`
	Following int64  `json:"following"`
}
