package database

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/MarcoPoloResearchLab/ideaboard/internal/ideas"
	sqlite "github.com/glebarez/sqlite"
	"go.uber.org/zap"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

const connectionPragmas = "_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"

// OpenSQLite establishes a SQLite connection, creating the data directory on demand,
// and brings the schema up to date. Running it against an existing store never
// alters or truncates stored rows.
func OpenSQLite(path string, logger *zap.Logger) (*gorm.DB, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("database path is required")
	}

	if err := ensureDataDirectory(path); err != nil {
		return nil, err
	}

	db, err := gorm.Open(sqlite.Open(buildDSN(path)), &gorm.Config{
		Logger: gormlogger.Discard,
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(1)

	// Data fixes run before AutoMigrate: rebuilding a legacy table under the
	// current NOT NULL columns fails while it still holds NULLs.
	if err := db.AutoMigrate(&migrationRecord{}); err != nil {
		_ = sqlDB.Close()
		return nil, err
	}

	if err := applyMigrations(db, logger); err != nil {
		_ = sqlDB.Close()
		return nil, err
	}

	if err := migrateSchema(db); err != nil {
		_ = sqlDB.Close()
		return nil, err
	}

	if logger != nil {
		logger.Info("database initialized", zap.String("path", path))
	}

	return db, nil
}

func migrateSchema(db *gorm.DB) error {
	models := append(ideas.Models(), &migrationRecord{})
	return db.AutoMigrate(models...)
}

func buildDSN(path string) string {
	separator := "?"
	if strings.Contains(path, "?") {
		separator = "&"
	}
	return path + separator + connectionPragmas
}

func ensureDataDirectory(path string) error {
	if path == ":memory:" || strings.HasPrefix(path, "file:") {
		return nil
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create data directory %s: %w", dir, err)
	}
	return nil
}
