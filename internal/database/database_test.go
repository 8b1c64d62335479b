package database

import (
	"context"
	"testing"
	"testing/fstest"

	"feedline/internal/config"
	"feedline/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenSQLiteAndAutoMigrate(t *testing.T) {
	db, err := OpenSQLite(":memory:")
	require.NoError(t, err)
	require.NoError(t, AutoMigrate(db))

	for _, m := range PersistentModels() {
		assert.True(t, db.Migrator().HasTable(m), "missing table for %T", m)
	}
	assert.True(t, db.Migrator().HasIndex(&models.Follow{}, "idx_follows_following_id"))
	assert.NoError(t, Ping(context.Background(), db))
}

func TestConnect_SQLite(t *testing.T) {
	cfg := &config.Config{
		DBDriver:   config.DriverSQLite,
		SQLitePath: ":memory:",
		Env:        "test",
	}

	db, err := Connect(cfg)
	require.NoError(t, err)
	assert.True(t, db.Migrator().HasTable(&models.TimelineEntry{}))
}

func TestConfigurePool(t *testing.T) {
	db, err := OpenSQLite(":memory:")
	require.NoError(t, err)

	cfg := &config.Config{
		DBMaxOpenConns:           10,
		DBMaxIdleConns:           5,
		DBConnMaxLifetimeMinutes: 15,
	}
	require.NoError(t, configurePool(db, cfg))

	sqlDB, err := db.DB()
	require.NoError(t, err)
	assert.Equal(t, 10, sqlDB.Stats().MaxOpenConnections)
}

func TestDSNs(t *testing.T) {
	cfg := &config.Config{DBHost: "db", DBPort: "5432", DBUser: "u", DBPassword: "p", DBName: "feed"}
	assert.Equal(t, "host=db port=5432 user=u password=p dbname=feed sslmode=disable", PostgresDSN(cfg))

	assert.Equal(t, ":memory:", SQLiteDSN(":memory:"))
	assert.Contains(t, SQLiteDSN("feed.db"), "file:feed.db?")
	assert.Contains(t, SQLiteDSN("feed.db"), "busy_timeout(5000)")
}

func TestEmbeddedMigrations(t *testing.T) {
	ms := GetMigrations()
	require.Len(t, ms, 3)
	for i, m := range ms {
		assert.Equal(t, i+1, m.Version)
		assert.NotEmpty(t, m.UpScript)
		assert.NotEmpty(t, m.DownScript)
	}
	assert.Equal(t, "000001_create_feed_tables", ms[0].String())
	assert.Contains(t, ms[0].UpScript, "PRIMARY KEY (owner_user_id, post_id)")
}

func TestLoadMigrations(t *testing.T) {
	fsys := fstest.MapFS{
		"migrations/000002_second.up.sql":   {Data: []byte("SELECT 2;")},
		"migrations/000002_second.down.sql": {Data: []byte("SELECT -2;")},
		"migrations/000001_first.up.sql":    {Data: []byte("SELECT 1;")},
		"migrations/000001_first.down.sql":  {Data: []byte("SELECT -1;")},
		"migrations/README.md":              {Data: []byte("ignored")},
	}

	ms, err := LoadMigrations(fsys)
	require.NoError(t, err)
	require.Len(t, ms, 2)
	assert.Equal(t, "first", ms[0].Name)
	assert.Equal(t, "second", ms[1].Name)
	assert.Equal(t, "SELECT -2;", ms[1].DownScript)
}

func TestLoadMigrations_MissingDown(t *testing.T) {
	fsys := fstest.MapFS{
		"migrations/000001_first.up.sql": {Data: []byte("SELECT 1;")},
	}
	_, err := LoadMigrations(fsys)
	assert.Error(t, err)
}
