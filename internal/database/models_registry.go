package database

import "feedline/internal/models"

// PersistentModels returns the authoritative set of schema-managed GORM models.
func PersistentModels() []interface{} {
	return []interface{}{
		&models.Post{},
		&models.Follow{},
		&models.TimelineEntry{},
		&models.Like{},
		&models.FanoutFailure{},
	}
}
