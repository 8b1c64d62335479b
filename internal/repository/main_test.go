package repository

import (
	"fmt"
	"testing"
	"time"

	"feedline/internal/database"
	"feedline/internal/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// newTestDB returns a fresh, migrated in-memory SQLite database.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := database.OpenSQLite(":memory:")
	require.NoError(t, err)
	require.NoError(t, database.AutoMigrate(db))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}

// setupMockDB returns a gorm Postgres handle backed by sqlmock.
func setupMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	db, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{
		Logger: database.NewGormLogger(),
	})
	require.NoError(t, err)
	return db, mock
}

// postID builds deterministic, lexicographically ordered post IDs of the
// same width as real ones.
func postID(n int) string {
	return fmt.Sprintf("00000000-0000-7000-8000-%012d", n)
}

func entry(owner string, n int) models.TimelineEntry {
	return models.TimelineEntry{
		OwnerUserID: owner,
		PostID:      postID(n),
		AuthorID:    "author",
		CreatedAt:   time.Unix(int64(n), 0).UTC(),
	}
}

func entries(owner string, from, to int) []models.TimelineEntry {
	out := make([]models.TimelineEntry, 0, to-from+1)
	for n := from; n <= to; n++ {
		out = append(out, entry(owner, n))
	}
	return out
}

func postIDs(page *models.TimelinePage) []string {
	ids := make([]string, len(page.Entries))
	for i, e := range page.Entries {
		ids[i] = e.PostID
	}
	return ids
}
