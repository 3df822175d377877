package database

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/MarcoPoloResearchLab/ideaboard/internal/ideas"
	sqlite "github.com/glebarez/sqlite"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var legacySchema = []string{
	`CREATE TABLE ideas (
		id TEXT PRIMARY KEY,
		title TEXT NOT NULL,
		description TEXT,
		votes INTEGER DEFAULT 0,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE TABLE notes (
		id TEXT PRIMARY KEY,
		idea_id TEXT NOT NULL,
		content TEXT NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		FOREIGN KEY (idea_id) REFERENCES ideas (id) ON DELETE CASCADE
	)`,
	`CREATE TABLE files (
		id TEXT PRIMARY KEY,
		idea_id TEXT NOT NULL,
		filename TEXT NOT NULL,
		original_name TEXT NOT NULL,
		file_path TEXT NOT NULL,
		mime_type TEXT,
		size INTEGER,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		FOREIGN KEY (idea_id) REFERENCES ideas (id) ON DELETE CASCADE
	)`,
}

func TestOpenSQLiteCreatesDataDirectory(testContext *testing.T) {
	databasePath := filepath.Join(testContext.TempDir(), "nested", "data", "ideas.db")

	db, err := OpenSQLite(databasePath, zap.NewNop())
	if err != nil {
		testContext.Fatalf("failed to open database: %v", err)
	}
	sqlDB, _ := db.DB()
	defer sqlDB.Close()

	info, err := os.Stat(filepath.Dir(databasePath))
	if err != nil {
		testContext.Fatalf("expected data directory: %v", err)
	}
	if !info.IsDir() {
		testContext.Fatalf("expected a directory at %s", filepath.Dir(databasePath))
	}
}

func TestOpenSQLiteRequiresPath(testContext *testing.T) {
	if _, err := OpenSQLite("  ", nil); err == nil {
		testContext.Fatalf("expected error for empty path")
	}
}

func TestOpenSQLitePreservesExistingRows(testContext *testing.T) {
	databasePath := filepath.Join(testContext.TempDir(), "ideas.db")

	first, err := OpenSQLite(databasePath, nil)
	if err != nil {
		testContext.Fatalf("failed to open database: %v", err)
	}
	now := time.Now().UTC()
	if err := first.Create(&ideas.Idea{ID: "idea-1", Title: "Keep me", CreatedAt: now, UpdatedAt: now}).Error; err != nil {
		testContext.Fatalf("failed to insert idea: %v", err)
	}
	firstSQL, _ := first.DB()
	firstSQL.Close()

	second, err := OpenSQLite(databasePath, nil)
	if err != nil {
		testContext.Fatalf("failed to reopen database: %v", err)
	}
	secondSQL, _ := second.DB()
	defer secondSQL.Close()

	var count int64
	if err := second.Model(&ideas.Idea{}).Count(&count).Error; err != nil {
		testContext.Fatalf("failed to count ideas: %v", err)
	}
	if count != 1 {
		testContext.Fatalf("expected existing idea to survive reopen, got %d rows", count)
	}
}

func TestOpenSQLiteCascadesChildRows(testContext *testing.T) {
	db, err := OpenSQLite(filepath.Join(testContext.TempDir(), "ideas.db"), nil)
	if err != nil {
		testContext.Fatalf("failed to open database: %v", err)
	}
	sqlDB, _ := db.DB()
	defer sqlDB.Close()

	now := time.Now().UTC()
	if err := db.Create(&ideas.Idea{ID: "idea-1", Title: "Parent", CreatedAt: now, UpdatedAt: now}).Error; err != nil {
		testContext.Fatalf("failed to insert idea: %v", err)
	}
	if err := db.Create(&ideas.Note{ID: "note-1", IdeaID: "idea-1", Content: "child", CreatedAt: now}).Error; err != nil {
		testContext.Fatalf("failed to insert note: %v", err)
	}
	if err := db.Create(&ideas.File{ID: "file-1", IdeaID: "idea-1", Filename: "a.txt", OriginalName: "a.txt", FilePath: "uploads/a.txt", CreatedAt: now}).Error; err != nil {
		testContext.Fatalf("failed to insert file: %v", err)
	}

	if err := db.Exec("DELETE FROM ideas WHERE id = ?", "idea-1").Error; err != nil {
		testContext.Fatalf("failed to delete idea: %v", err)
	}

	var notes, files int64
	db.Model(&ideas.Note{}).Count(&notes)
	db.Model(&ideas.File{}).Count(&files)
	if notes != 0 || files != 0 {
		testContext.Fatalf("expected cascade delete, found %d notes and %d files", notes, files)
	}
}

func TestOpenSQLiteRejectsOrphanRows(testContext *testing.T) {
	db, err := OpenSQLite(filepath.Join(testContext.TempDir(), "ideas.db"), nil)
	if err != nil {
		testContext.Fatalf("failed to open database: %v", err)
	}
	sqlDB, _ := db.DB()
	defer sqlDB.Close()

	err = db.Create(&ideas.Note{ID: "note-1", IdeaID: "missing", Content: "orphan", CreatedAt: time.Now().UTC()}).Error
	if err == nil {
		testContext.Fatalf("expected foreign key violation for orphan note")
	}
}

func TestOpenSQLiteUpgradesLegacyStore(testContext *testing.T) {
	databasePath := filepath.Join(testContext.TempDir(), "legacy.db")

	legacy, err := gorm.Open(sqlite.Open(databasePath), &gorm.Config{})
	if err != nil {
		testContext.Fatalf("failed to open legacy database: %v", err)
	}
	for _, statement := range legacySchema {
		if err := legacy.Exec(statement).Error; err != nil {
			testContext.Fatalf("failed to create legacy table: %v", err)
		}
	}
	seed := []string{
		"INSERT INTO ideas (id, title, description, votes) VALUES ('idea-null', 'No description', NULL, NULL)",
		"INSERT INTO ideas (id, title, description, votes) VALUES ('idea-negative', 'Negative', 'kept', -2)",
		"INSERT INTO notes (id, idea_id, content) VALUES ('note-1', 'idea-null', 'still here')",
	}
	for _, statement := range seed {
		if err := legacy.Exec(statement).Error; err != nil {
			testContext.Fatalf("failed to seed legacy row: %v", err)
		}
	}
	legacySQL, _ := legacy.DB()
	legacySQL.Close()

	db, err := OpenSQLite(databasePath, zap.NewNop())
	if err != nil {
		testContext.Fatalf("failed to open legacy store: %v", err)
	}
	sqlDB, _ := db.DB()
	defer sqlDB.Close()

	testCases := []struct {
		id          string
		description string
		votes       int64
	}{
		{id: "idea-null", description: "", votes: 0},
		{id: "idea-negative", description: "kept", votes: 0},
	}
	for _, testCase := range testCases {
		var description string
		var votes int64
		row := db.Raw("SELECT description, votes FROM ideas WHERE id = ?", testCase.id).Row()
		if err := row.Scan(&description, &votes); err != nil {
			testContext.Fatalf("failed to read %s: %v", testCase.id, err)
		}
		if description != testCase.description || votes != testCase.votes {
			testContext.Fatalf("%s: expected (%q, %d), got (%q, %d)", testCase.id, testCase.description, testCase.votes, description, votes)
		}
	}

	var notes int64
	if err := db.Model(&ideas.Note{}).Count(&notes).Error; err != nil {
		testContext.Fatalf("failed to count notes: %v", err)
	}
	if notes != 1 {
		testContext.Fatalf("expected legacy note to survive the upgrade, got %d", notes)
	}

	var nullable int64
	if err := db.Raw("SELECT COUNT(*) FROM ideas WHERE created_at IS NULL OR updated_at IS NULL").Scan(&nullable).Error; err != nil {
		testContext.Fatalf("failed to count timestamps: %v", err)
	}
	if nullable != 0 {
		testContext.Fatalf("expected every idea to carry timestamps, found %d without", nullable)
	}

	now := time.Now().UTC()
	if err := db.Create(&ideas.Note{ID: "note-2", IdeaID: "missing", Content: "orphan", CreatedAt: now}).Error; err == nil {
		testContext.Fatalf("expected foreign key enforcement after upgrade")
	}
}
