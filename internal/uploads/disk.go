package uploads

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/google/uuid"
)

var (
	// ErrFileNotFound indicates that no stored upload matches the requested name.
	ErrFileNotFound = errors.New("uploads: file not found")
	// ErrInvalidName indicates that a requested name cannot be a server-generated stored name.
	ErrInvalidName = errors.New("uploads: invalid stored name")
)

var safeExtension = regexp.MustCompile(`^\.[A-Za-z0-9]{1,16}$`)

// StoredFile describes bytes written to the uploads directory.
type StoredFile struct {
	// Name is the server-generated stored filename.
	Name string
	Path string
	Size int64
}

// DiskStore keeps uploaded bytes in a single flat directory, addressed only by
// names it generated itself.
type DiskStore struct {
	dir     string
	newName func() string
}

// NewDiskStore creates the uploads directory on demand.
func NewDiskStore(dir string) (*DiskStore, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, fmt.Errorf("uploads directory is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create uploads directory %s: %w", dir, err)
	}
	return &DiskStore{dir: dir, newName: uuid.NewString}, nil
}

// Save writes src under a fresh random name that keeps the extension of originalName.
// The bytes are synced before the name becomes visible.
func (s *DiskStore) Save(originalName string, src io.Reader) (StoredFile, error) {
	name := s.newName() + storedExtension(originalName)
	finalPath := filepath.Join(s.dir, name)

	tmp, err := os.CreateTemp(s.dir, ".upload-*")
	if err != nil {
		return StoredFile{}, fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()

	size, err := io.Copy(tmp, src)
	if err == nil {
		err = tmp.Sync()
	}
	if closeErr := tmp.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		_ = os.Remove(tmpPath)
		return StoredFile{}, fmt.Errorf("write upload: %w", err)
	}

	if err := os.Rename(tmpPath, finalPath); err != nil {
		_ = os.Remove(tmpPath)
		return StoredFile{}, fmt.Errorf("publish upload: %w", err)
	}

	return StoredFile{Name: name, Path: finalPath, Size: size}, nil
}

// Resolve maps a stored name onto its path on disk.
func (s *DiskStore) Resolve(name string) (string, error) {
	if err := validateName(name); err != nil {
		return "", err
	}
	path := filepath.Join(s.dir, name)
	info, err := os.Stat(path)
	if errors.Is(err, os.ErrNotExist) {
		return "", ErrFileNotFound
	}
	if err != nil {
		return "", fmt.Errorf("stat upload: %w", err)
	}
	if !info.Mode().IsRegular() {
		return "", ErrFileNotFound
	}
	return path, nil
}

// Remove deletes a stored upload. Missing files are not an error.
func (s *DiskStore) Remove(name string) error {
	if err := validateName(name); err != nil {
		return err
	}
	err := os.Remove(filepath.Join(s.dir, name))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove upload: %w", err)
	}
	return nil
}

func validateName(name string) error {
	if name == "" || strings.HasPrefix(name, ".") || strings.ContainsAny(name, `/\`) || filepath.Base(name) != name {
		return ErrInvalidName
	}
	return nil
}

func storedExtension(originalName string) string {
	ext := filepath.Ext(filepath.Base(originalName))
	if !safeExtension.MatchString(ext) {
		return ""
	}
	return ext
}
