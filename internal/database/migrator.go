package database

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"feedline/internal/middleware"

	"gorm.io/gorm"
)

// SchemaMigration records one applied migration.
type SchemaMigration struct {
	Version   int       `gorm:"primaryKey;autoIncrement:false"`
	Name      string    `gorm:"size:255;not null"`
	AppliedAt time.Time `gorm:"not null"`
}

func (SchemaMigration) TableName() string { return "schema_migrations" }

// MigrationStatus compares the schema_migrations table with the known
// migrations. Unknown lists applied versions this binary does not ship.
type MigrationStatus struct {
	Applied []SchemaMigration
	Pending []Migration
	Unknown []int
}

// Migrator applies versioned SQL migrations. Each migration runs in its own
// transaction together with its schema_migrations row.
type Migrator struct {
	db         *gorm.DB
	migrations []Migration
	now        func() time.Time
}

// NewMigrator creates a migrator over migrations, which must be in version order.
func NewMigrator(db *gorm.DB, migrations []Migration) *Migrator {
	return &Migrator{db: db, migrations: migrations, now: time.Now}
}

// NewEmbeddedMigrator uses the migrations compiled into the binary.
func NewEmbeddedMigrator(db *gorm.DB) *Migrator {
	return NewMigrator(db, GetMigrations())
}

// Status reports applied, pending and unknown versions.
func (m *Migrator) Status(ctx context.Context) (*MigrationStatus, error) {
	if err := m.db.WithContext(ctx).AutoMigrate(&SchemaMigration{}); err != nil {
		return nil, fmt.Errorf("ensure schema_migrations: %w", err)
	}

	var applied []SchemaMigration
	if err := m.db.WithContext(ctx).Order("version ASC").Find(&applied).Error; err != nil {
		return nil, fmt.Errorf("list applied migrations: %w", err)
	}

	status := &MigrationStatus{Applied: applied}
	done := make(map[int]bool, len(applied))
	for _, a := range applied {
		done[a.Version] = true
	}
	known := make(map[int]bool, len(m.migrations))
	for _, mig := range m.migrations {
		known[mig.Version] = true
		if !done[mig.Version] {
			status.Pending = append(status.Pending, mig)
		}
	}
	for _, a := range applied {
		if !known[a.Version] {
			status.Unknown = append(status.Unknown, a.Version)
		}
	}
	return status, nil
}

// Up applies every pending migration and returns the ones it applied. It
// refuses to run against a database migrated by a newer binary.
func (m *Migrator) Up(ctx context.Context) ([]Migration, error) {
	status, err := m.Status(ctx)
	if err != nil {
		return nil, err
	}
	if len(status.Unknown) > 0 {
		return nil, fmt.Errorf("schema_migrations has versions this build does not know: %s",
			formatVersions(status.Unknown))
	}

	var done []Migration
	for _, mig := range status.Pending {
		middleware.Logger.InfoContext(ctx, "Applying migration", slog.String("migration", mig.String()))
		err := m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			if err := tx.Exec(mig.UpScript).Error; err != nil {
				return err
			}
			return tx.Create(&SchemaMigration{Version: mig.Version, Name: mig.Name, AppliedAt: m.now().UTC()}).Error
		})
		if err != nil {
			return done, fmt.Errorf("apply migration %s: %w", mig.String(), err)
		}
		done = append(done, mig)
	}
	return done, nil
}

// Down reverts version, which must be the latest applied migration.
func (m *Migrator) Down(ctx context.Context, version int) error {
	var target *Migration
	for i := range m.migrations {
		if m.migrations[i].Version == version {
			target = &m.migrations[i]
		}
	}
	if target == nil {
		return fmt.Errorf("migration version %d not found", version)
	}

	status, err := m.Status(ctx)
	if err != nil {
		return err
	}
	if len(status.Applied) == 0 {
		return fmt.Errorf("migration %d has not been applied", version)
	}
	if latest := status.Applied[len(status.Applied)-1].Version; latest != version {
		return fmt.Errorf("migration %d is not the latest applied (%06d)", version, latest)
	}

	middleware.Logger.InfoContext(ctx, "Rolling back migration", slog.String("migration", target.String()))
	err = m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec(target.DownScript).Error; err != nil {
			return err
		}
		return tx.Delete(&SchemaMigration{}, "version = ?", version).Error
	})
	if err != nil {
		return fmt.Errorf("roll back migration %s: %w", target.String(), err)
	}
	return nil
}

func formatVersions(versions []int) string {
	parts := make([]string, len(versions))
	for i, v := range versions {
		parts[i] = fmt.Sprintf("%06d", v)
	}
	return strings.Join(parts, ", ")
}
