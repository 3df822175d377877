package database

import (
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	migrationBackfillIdeaDescriptions = "2026-09-28_backfill_idea_descriptions"
	migrationClampNegativeVotes       = "2026-09-28_clamp_negative_votes"
	migrationBackfillIdeaTimestamps   = "2026-10-17_backfill_idea_timestamps"
)

type migrationRecord struct {
	Name             string `gorm:"column:name;primaryKey;size:190;not null"`
	AppliedAtSeconds int64  `gorm:"column:applied_at_s;not null"`
}

func (migrationRecord) TableName() string {
	return "db_migrations"
}

// migrationDefinition runs against table only when it already exists. Fresh stores
// record the migration without applying it.
type migrationDefinition struct {
	name  string
	table string
	apply func(*gorm.DB) error
}

func applyMigrations(db *gorm.DB, logger *zap.Logger) error {
	migrations := []migrationDefinition{
		{name: migrationBackfillIdeaDescriptions, table: ideasTable, apply: backfillIdeaDescriptions},
		{name: migrationClampNegativeVotes, table: ideasTable, apply: clampNegativeVotes},
		{name: migrationBackfillIdeaTimestamps, table: ideasTable, apply: backfillIdeaTimestamps},
	}

	for _, migration := range migrations {
		var record migrationRecord
		err := db.Where("name = ?", migration.name).Take(&record).Error
		if err == nil {
			continue
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		if db.Migrator().HasTable(migration.table) {
			if err := migration.apply(db); err != nil {
				return fmt.Errorf("apply migration %s: %w", migration.name, err)
			}
		}
		appliedAt := time.Now().UTC().Unix()
		if err := db.Create(&migrationRecord{Name: migration.name, AppliedAtSeconds: appliedAt}).Error; err != nil {
			return err
		}
		if logger != nil {
			logger.Info("database migration applied", zap.String("migration", migration.name))
		}
	}
	return nil
}

const ideasTable = "ideas"

// Stores created before description became NOT NULL may still hold NULLs.
// These statements avoid the model so they run against the legacy column set.
func backfillIdeaDescriptions(db *gorm.DB) error {
	return db.Exec("UPDATE ideas SET description = '' WHERE description IS NULL").Error
}

func clampNegativeVotes(db *gorm.DB) error {
	return db.Exec("UPDATE ideas SET votes = 0 WHERE votes IS NULL OR votes < 0").Error
}

func backfillIdeaTimestamps(db *gorm.DB) error {
	if err := db.Exec("UPDATE ideas SET created_at = CURRENT_TIMESTAMP WHERE created_at IS NULL").Error; err != nil {
		return err
	}
	return db.Exec("UPDATE ideas SET updated_at = created_at WHERE updated_at IS NULL").Error
}
