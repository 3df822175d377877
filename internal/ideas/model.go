package ideas

import (
	"errors"
	"time"
)

// ErrIdeaNotFound indicates that no idea matches the requested identifier.
var ErrIdeaNotFound = errors.New("ideas: idea not found")

// Idea is the primary user-submitted entity being voted on.
type Idea struct {
	ID          string    `gorm:"column:id;primaryKey;size:64;not null" json:"id"`
	Title       string    `gorm:"column:title;type:text;not null" json:"title"`
	Description string    `gorm:"column:description;type:text;not null;default:''" json:"description"`
	Votes       int64     `gorm:"column:votes;not null;default:0;index:idx_ideas_ranking,priority:1" json:"votes"`
	CreatedAt   time.Time `gorm:"column:created_at;not null;index:idx_ideas_ranking,priority:2" json:"created_at"`
	UpdatedAt   time.Time `gorm:"column:updated_at;not null" json:"updated_at"`
}

// TableName provides the explicit table binding for GORM.
func (Idea) TableName() string {
	return "ideas"
}

// Note is a freeform comment attached to an idea. Notes are immutable once written.
type Note struct {
	ID        string    `gorm:"column:id;primaryKey;size:64;not null" json:"id"`
	IdeaID    string    `gorm:"column:idea_id;size:64;not null;index:idx_notes_idea_created,priority:1" json:"idea_id"`
	Content   string    `gorm:"column:content;type:text;not null" json:"content"`
	CreatedAt time.Time `gorm:"column:created_at;not null;index:idx_notes_idea_created,priority:2" json:"created_at"`

	Idea *Idea `gorm:"foreignKey:IdeaID;references:ID;constraint:OnDelete:CASCADE" json:"-"`
}

// TableName provides the explicit table binding for GORM.
func (Note) TableName() string {
	return "notes"
}

// File records the metadata of an upload whose bytes live in the uploads directory.
//
// Filename is the server-generated stored name and the only value ever used to
// address the bytes on disk. OriginalName and MimeType come from the client and
// are kept purely for display.
type File struct {
	ID           string    `gorm:"column:id;primaryKey;size:64;not null" json:"id"`
	IdeaID       string    `gorm:"column:idea_id;size:64;not null;index:idx_files_idea_created,priority:1" json:"idea_id"`
	Filename     string    `gorm:"column:filename;size:255;not null;uniqueIndex" json:"filename"`
	OriginalName string    `gorm:"column:original_name;type:text;not null" json:"original_name"`
	FilePath     string    `gorm:"column:file_path;type:text;not null" json:"file_path"`
	MimeType     string    `gorm:"column:mime_type;size:255" json:"mime_type"`
	Size         int64     `gorm:"column:size;not null;default:0" json:"size"`
	CreatedAt    time.Time `gorm:"column:created_at;not null;index:idx_files_idea_created,priority:2" json:"created_at"`

	Idea *Idea `gorm:"foreignKey:IdeaID;references:ID;constraint:OnDelete:CASCADE" json:"-"`
}

// TableName provides the explicit table binding for GORM.
func (File) TableName() string {
	return "files"
}

// Models lists every persisted type in dependency order for schema migration.
func Models() []any {
	return []any{&Idea{}, &Note{}, &File{}}
}
