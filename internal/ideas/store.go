package ideas

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

var (
	errMissingDatabase = errors.New("database handle is required")
	noOpLogger         = zap.NewNop()
)

// ServiceError carries a dotted code describing the failing operation and reason.
type ServiceError struct {
	code string
	err  error
}

func (e *ServiceError) Error() string {
	if e.err == nil {
		return e.code
	}
	return fmt.Sprintf("%s: %v", e.code, e.err)
}

func (e *ServiceError) Unwrap() error {
	return e.err
}

func (e *ServiceError) Code() string {
	return e.code
}

const (
	opStoreNew   = "ideas.store.new"
	opCreateIdea = "ideas.create_idea"
	opListIdeas  = "ideas.list_ideas"
	opGetIdea    = "ideas.get_idea"
	opVoteIdea   = "ideas.vote_idea"
	opAddNote    = "ideas.add_note"
	opListNotes  = "ideas.list_notes"
	opAddFile    = "ideas.add_file"
	opListFiles  = "ideas.list_files"
	opClose      = "ideas.close"
)

func newServiceError(operation, reason string, cause error) error {
	code := fmt.Sprintf("%s.%s", operation, reason)
	return &ServiceError{code: code, err: cause}
}

type StoreConfig struct {
	Database *gorm.DB
	Clock    func() time.Time
	Logger   *zap.Logger
}

// Store owns every data-access operation over ideas, notes and files.
// Every mutation is a single statement; none run inside a transaction.
type Store struct {
	db     *gorm.DB
	clock  func() time.Time
	logger *zap.Logger
}

func NewStore(cfg StoreConfig) (*Store, error) {
	if cfg.Database == nil {
		return nil, newServiceError(opStoreNew, "missing_database", errMissingDatabase)
	}

	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}

	logger := cfg.Logger
	if logger == nil {
		logger = noOpLogger
	}

	return &Store{
		db:     cfg.Database,
		clock:  clock,
		logger: logger,
	}, nil
}

// CreateIdea persists a new idea with zero votes and returns the stored record.
func (s *Store) CreateIdea(ctx context.Context, id, title, description string) (Idea, error) {
	if s.db == nil {
		s.logError(opCreateIdea, "missing_database", errMissingDatabase)
		return Idea{}, newServiceError(opCreateIdea, "missing_database", errMissingDatabase)
	}

	now := s.now()
	idea := Idea{
		ID:          id,
		Title:       title,
		Description: description,
		Votes:       0,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.db.WithContext(ctx).Create(&idea).Error; err != nil {
		s.logError(opCreateIdea, "insert_failed", err, zap.String("idea_id", id))
		return Idea{}, newServiceError(opCreateIdea, "insert_failed", err)
	}
	return idea, nil
}

// ListIdeas returns every idea ranked by votes, newest first among equal votes.
func (s *Store) ListIdeas(ctx context.Context) ([]Idea, error) {
	if s.db == nil {
		s.logError(opListIdeas, "missing_database", errMissingDatabase)
		return nil, newServiceError(opListIdeas, "missing_database", errMissingDatabase)
	}

	ideas := make([]Idea, 0)
	if err := s.db.WithContext(ctx).
		Order("votes DESC").
		Order("created_at DESC").
		Find(&ideas).Error; err != nil {
		s.logError(opListIdeas, "query_failed", err)
		return nil, newServiceError(opListIdeas, "query_failed", err)
	}
	return ideas, nil
}

// GetIdea looks an idea up by id. Absence is reported through the boolean, not an error.
func (s *Store) GetIdea(ctx context.Context, id string) (Idea, bool, error) {
	if s.db == nil {
		s.logError(opGetIdea, "missing_database", errMissingDatabase)
		return Idea{}, false, newServiceError(opGetIdea, "missing_database", errMissingDatabase)
	}

	var idea Idea
	err := s.db.WithContext(ctx).Where("id = ?", id).Take(&idea).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Idea{}, false, nil
	}
	if err != nil {
		s.logError(opGetIdea, "query_failed", err, zap.String("idea_id", id))
		return Idea{}, false, newServiceError(opGetIdea, "query_failed", err)
	}
	return idea, true, nil
}

// VoteForIdea increments the vote counter by exactly one and refreshes updated_at.
// It returns an error wrapping ErrIdeaNotFound when no row matched.
func (s *Store) VoteForIdea(ctx context.Context, id string) error {
	if s.db == nil {
		s.logError(opVoteIdea, "missing_database", errMissingDatabase)
		return newServiceError(opVoteIdea, "missing_database", errMissingDatabase)
	}

	result := s.db.WithContext(ctx).
		Model(&Idea{}).
		Where("id = ?", id).
		UpdateColumns(map[string]any{
			"votes":      gorm.Expr("votes + ?", 1),
			"updated_at": s.now(),
		})
	if result.Error != nil {
		s.logError(opVoteIdea, "update_failed", result.Error, zap.String("idea_id", id))
		return newServiceError(opVoteIdea, "update_failed", result.Error)
	}
	// SQLite reports a no-op update as success, so the affected row count is the only signal.
	if result.RowsAffected == 0 {
		return newServiceError(opVoteIdea, "not_found", ErrIdeaNotFound)
	}
	return nil
}

// AddNote inserts a note. Callers are responsible for checking that the idea exists.
func (s *Store) AddNote(ctx context.Context, id, ideaID, content string) (Note, error) {
	if s.db == nil {
		s.logError(opAddNote, "missing_database", errMissingDatabase)
		return Note{}, newServiceError(opAddNote, "missing_database", errMissingDatabase)
	}

	note := Note{
		ID:        id,
		IdeaID:    ideaID,
		Content:   content,
		CreatedAt: s.now(),
	}
	if err := s.db.WithContext(ctx).Create(&note).Error; err != nil {
		s.logError(opAddNote, "insert_failed", err, zap.String("idea_id", ideaID))
		return Note{}, newServiceError(opAddNote, "insert_failed", err)
	}
	return note, nil
}

// ListNotes returns the notes of an idea oldest first.
func (s *Store) ListNotes(ctx context.Context, ideaID string) ([]Note, error) {
	if s.db == nil {
		s.logError(opListNotes, "missing_database", errMissingDatabase)
		return nil, newServiceError(opListNotes, "missing_database", errMissingDatabase)
	}

	notes := make([]Note, 0)
	if err := s.db.WithContext(ctx).
		Where("idea_id = ?", ideaID).
		Order("created_at ASC").
		Find(&notes).Error; err != nil {
		s.logError(opListNotes, "query_failed", err, zap.String("idea_id", ideaID))
		return nil, newServiceError(opListNotes, "query_failed", err)
	}
	return notes, nil
}

// AddFile inserts file metadata after its bytes are on disk. CreatedAt is assigned here.
// Callers are responsible for checking that the idea exists.
func (s *Store) AddFile(ctx context.Context, file File) (File, error) {
	if s.db == nil {
		s.logError(opAddFile, "missing_database", errMissingDatabase)
		return File{}, newServiceError(opAddFile, "missing_database", errMissingDatabase)
	}

	file.CreatedAt = s.now()
	if err := s.db.WithContext(ctx).Create(&file).Error; err != nil {
		s.logError(opAddFile, "insert_failed", err,
			zap.String("idea_id", file.IdeaID),
			zap.String("filename", file.Filename))
		return File{}, newServiceError(opAddFile, "insert_failed", err)
	}
	return file, nil
}

// ListFiles returns the files of an idea oldest first.
func (s *Store) ListFiles(ctx context.Context, ideaID string) ([]File, error) {
	if s.db == nil {
		s.logError(opListFiles, "missing_database", errMissingDatabase)
		return nil, newServiceError(opListFiles, "missing_database", errMissingDatabase)
	}

	files := make([]File, 0)
	if err := s.db.WithContext(ctx).
		Where("idea_id = ?", ideaID).
		Order("created_at ASC").
		Find(&files).Error; err != nil {
		s.logError(opListFiles, "query_failed", err, zap.String("idea_id", ideaID))
		return nil, newServiceError(opListFiles, "query_failed", err)
	}
	return files, nil
}

// Close releases the underlying connection pool. It is safe on a nil or unopened store
// and safe to call more than once.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	sqlDB, err := s.db.DB()
	if err != nil {
		s.logError(opClose, "handle_unavailable", err)
		return newServiceError(opClose, "handle_unavailable", err)
	}
	if err := sqlDB.Close(); err != nil {
		s.logError(opClose, "close_failed", err)
		return newServiceError(opClose, "close_failed", err)
	}
	return nil
}

func (s *Store) now() time.Time {
	return s.clock().UTC()
}

func (s *Store) loggerOrDefault() *zap.Logger {
	if s == nil {
		return noOpLogger
	}
	if s.logger == nil {
		return noOpLogger
	}
	return s.logger
}

func (s *Store) logError(operation, reason string, err error, fields ...zap.Field) {
	attrs := []zap.Field{
		zap.String("operation", operation),
		zap.String("reason", reason),
	}
	if err != nil {
		attrs = append(attrs, zap.Error(err))
	}
	attrs = append(attrs, fields...)
	s.loggerOrDefault().Error("ideas store error", attrs...)
}
