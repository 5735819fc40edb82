package courses

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/desertthunder/coursechat/internal/models"
	"github.com/desertthunder/coursechat/internal/shared"
)

// Storage persists the full course set.
//
// Load returns an error wrapping [fs.ErrNotExist] when nothing has been stored yet.
type Storage interface {
	Load() ([]models.Course, error)
	Save(courses []models.Course) error
}

// FileStorage stores courses as a JSON array in a single file.
type FileStorage struct {
	path string
}

// NewFileStorage creates a [FileStorage] for path.
func NewFileStorage(path string) *FileStorage {
	return &FileStorage{path: path}
}

// Path returns the document location.
func (f *FileStorage) Path() string {
	return f.path
}

// Load reads and validates the stored course set.
func (f *FileStorage) Load() ([]models.Course, error) {
	data, err := os.ReadFile(f.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("courses file %s: %w", f.path, fs.ErrNotExist)
		}
		return nil, fmt.Errorf("%w: failed to read %s: %v", shared.ErrPersistenceFailed, f.path, err)
	}

	var courses []models.Course
	if err := json.Unmarshal(data, &courses); err != nil {
		return nil, fmt.Errorf("%w: failed to parse %s: %v", shared.ErrPersistenceFailed, f.path, err)
	}

	for i := range courses {
		courses[i].Outline = models.NormalizeOutline(courses[i].Outline)
		if err := courses[i].Validate(); err != nil {
			return nil, fmt.Errorf("%w: %v", shared.ErrPersistenceFailed, err)
		}
	}

	if courses == nil {
		courses = []models.Course{}
	}
	return courses, nil
}

// Save atomically replaces the stored document with courses.
func (f *FileStorage) Save(courses []models.Course) error {
	if courses == nil {
		courses = []models.Course{}
	}

	data, err := shared.MarshalJSON(courses, true)
	if err != nil {
		return fmt.Errorf("%w: failed to encode courses: %v", shared.ErrPersistenceFailed, err)
	}

	if err := writeFileAtomic(f.path, data); err != nil {
		return fmt.Errorf("%w: %v", shared.ErrPersistenceFailed, err)
	}
	return nil
}

func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Chmod(tmpName, 0644); err != nil {
		return fmt.Errorf("failed to set permissions: %w", err)
	}

	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("failed to replace %s: %w", path, err)
	}
	return nil
}

// MemoryStorage keeps the course set in memory. Useful for tests and dry runs.
type MemoryStorage struct {
	mu      sync.Mutex
	courses []models.Course
	saves   int
	err     error
}

// NewMemoryStorage creates a [MemoryStorage] preloaded with courses; nil means nothing stored yet.
func NewMemoryStorage(courses []models.Course) *MemoryStorage {
	m := &MemoryStorage{}
	if courses != nil {
		m.courses = cloneAll(courses)
	}
	return m
}

func (m *MemoryStorage) Load() ([]models.Course, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.courses == nil {
		return nil, fmt.Errorf("memory storage: %w", fs.ErrNotExist)
	}
	return cloneAll(m.courses), nil
}

func (m *MemoryStorage) Save(courses []models.Course) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saves++
	if m.err != nil {
		return m.err
	}
	m.courses = cloneAll(courses)
	return nil
}

// FailWith makes subsequent saves fail with err.
func (m *MemoryStorage) FailWith(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// Saves reports how many times Save was called.
func (m *MemoryStorage) Saves() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saves
}

func cloneAll(courses []models.Course) []models.Course {
	out := make([]models.Course, len(courses))
	for i, c := range courses {
		out[i] = c.Clone()
	}
	return out
}
