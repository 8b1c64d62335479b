package models

import "time"

// Like records that UserID liked PostID. At most one row exists per pair.
type Like struct {
	PostID    string    `gorm:"primaryKey;size:36" json:"postId"`
	UserID    string    `gorm:"primaryKey;size:64;index" json:"userId"`
	CreatedAt time.Time `json:"createdAt"`
}

func (Like) TableName() string { return "likes" }

// LikeStatus is returned by the like endpoints.
type LikeStatus struct {
	PostID string `json:"postId"`
	Liked  bool   `json:"liked"`
	Count  int64  `json:"count"`
}
