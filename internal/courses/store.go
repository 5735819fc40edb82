package courses

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/coursechat/internal/identity"
	"github.com/desertthunder/coursechat/internal/models"
	"github.com/desertthunder/coursechat/internal/services"
	"github.com/desertthunder/coursechat/internal/shared"
)

var errWriterStopped = errors.New("course writer stopped")

// Opts configures a [Store]. Storage, Transport and Identity are required.
type Opts struct {
	Storage   Storage
	Transport services.Transport
	Identity  identity.Provider
	Logger    *log.Logger
}

// Store is the in-memory course set backed by durable [Storage].
//
// It is safe for concurrent use.
type Store struct {
	mu      sync.RWMutex
	courses []models.Course
	closed  bool

	transport services.Transport
	identity  identity.Provider
	logger    *log.Logger
	writer    *writer
	notifies  sync.WaitGroup
}

// NewStore creates an empty store and starts its background writer. Call [Store.Close] to stop it.
func NewStore(opts Opts) (*Store, error) {
	if opts.Storage == nil || opts.Transport == nil || opts.Identity == nil {
		return nil, fmt.Errorf("%w: course store needs storage, transport and identity", shared.ErrMissingArgument)
	}

	logger := opts.Logger
	if logger == nil {
		logger = log.New(io.Discard)
	}
	logger = logger.With("component", "courses")

	return &Store{
		courses:   []models.Course{},
		transport: opts.Transport,
		identity:  opts.Identity,
		logger:    logger,
		writer:    newWriter(opts.Storage, logger),
	}, nil
}

// Load populates the store from durable storage, falling back to the backend course list when nothing is
// stored locally or the stored document cannot be read.
//
// When both sources fail the store is left empty and the combined error is returned for logging; it is
// not meant to stop startup.
func (s *Store) Load(ctx context.Context) error {
	courses, err := s.writer.storage.Load()
	if err == nil {
		s.replace(courses, false)
		s.logger.Info("loaded courses", "count", len(courses))
		return nil
	}

	if errors.Is(err, fs.ErrNotExist) {
		s.logger.Info("no local courses, fetching from backend")
	} else {
		s.logger.Warn("local courses unreadable, fetching from backend", "error", err)
	}

	remote, fetchErr := s.fetch(ctx)
	if fetchErr != nil {
		s.replace(nil, false)
		return fmt.Errorf("%w: %v; backend: %w", shared.ErrPersistenceFailed, err, fetchErr)
	}

	s.replace(remote, true)
	s.logger.Info("loaded courses from backend", "count", len(remote))
	return nil
}

// Sync replaces the local course set with the backend's course list.
func (s *Store) Sync(ctx context.Context) error {
	remote, err := s.fetch(ctx)
	if err != nil {
		return err
	}
	s.replace(remote, true)
	return nil
}

func (s *Store) fetch(ctx context.Context) ([]models.Course, error) {
	resp, err := s.transport.Send(ctx, services.EndpointCourseList, map[string]any{
		services.FieldUserID: s.identity.UserID(),
	})
	if err != nil {
		return nil, err
	}
	return ParseCourseList(resp)
}

func (s *Store) replace(courses []models.Course, persist bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.courses = make([]models.Course, 0, len(courses))
	for _, c := range courses {
		s.courses = append(s.courses, c.Clone())
	}
	if persist {
		s.persistLocked()
	}
}

// Courses returns a copy of every course in insertion order.
func (s *Store) Courses() []models.Course {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneAll(s.courses)
}

// Course returns a copy of the course with id.
func (s *Store) Course(id int) (models.Course, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if i := s.index(id); i >= 0 {
		return s.courses[i].Clone(), true
	}
	return models.Course{}, false
}

// Len returns the number of courses.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.courses)
}

// Upsert replaces the title and outline of the course with id, or appends a new course when none exists.
// The outline is sorted by item id and duplicate ids are dropped.
func (s *Store) Upsert(id int, title string, outline []models.OutlineItem) models.Course {
	course := models.Course{ID: id, Title: title, Outline: models.NormalizeOutline(outline)}

	s.mu.Lock()
	defer s.mu.Unlock()

	if i := s.index(id); i >= 0 {
		s.courses[i] = course
		s.logger.Debug("updated course", "id", id, "items", len(course.Outline))
	} else {
		s.courses = append(s.courses, course)
		s.logger.Debug("added course", "id", id, "items", len(course.Outline))
	}
	s.persistLocked()

	return course.Clone()
}

// Delete removes the course with id and persists. The backend is told about the deletion in the
// background; a failure there is logged and the local deletion stands.
func (s *Store) Delete(ctx context.Context, id int) error {
	s.mu.Lock()
	i := s.index(id)
	if i < 0 {
		s.mu.Unlock()
		return fmt.Errorf("course %d %w", id, shared.ErrNotFound)
	}
	s.courses = append(s.courses[:i:i], s.courses[i+1:]...)
	s.persistLocked()
	s.mu.Unlock()

	payload := map[string]any{
		services.FieldUserID:   s.identity.UserID(),
		services.FieldCourseID: id,
	}
	notifyCtx := context.WithoutCancel(ctx)

	s.notifies.Add(1)
	go func() {
		defer s.notifies.Done()
		if _, err := s.transport.Send(notifyCtx, services.EndpointDelete, payload); err != nil {
			s.logger.Warn("backend delete failed", "course", id, "error", err)
			return
		}
		s.logger.Debug("backend delete acknowledged", "course", id)
	}()

	return nil
}

// UpdateItem applies fn to the outline item itemID of course courseID and persists. It reports false,
// without calling fn, when either does not exist.
func (s *Store) UpdateItem(courseID, itemID int, fn func(*models.OutlineItem)) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.index(courseID)
	if i < 0 {
		return false
	}
	item := s.courses[i].Item(itemID)
	if item == nil {
		return false
	}

	fn(item)
	s.persistLocked()
	return true
}

// Complete marks an in-progress chapter as completed.
func (s *Store) Complete(courseID, itemID int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.index(courseID)
	if i < 0 {
		return fmt.Errorf("course %d %w", courseID, shared.ErrNotFound)
	}
	item := s.courses[i].Item(itemID)
	if item == nil {
		return fmt.Errorf("chapter %d of course %d %w", itemID, courseID, shared.ErrNotFound)
	}
	if item.Status != models.InProgress {
		return fmt.Errorf("%w: chapter %d is %s, only chapters in progress can be completed",
			shared.ErrOperationRejected, itemID, item.Status)
	}

	item.Status = models.Completed
	s.persistLocked()
	return nil
}

// Flush waits until every mutation made so far has been written and returns the result of the latest write.
func (s *Store) Flush(ctx context.Context) error {
	return s.writer.flush(ctx)
}

// Close waits for pending writes and backend notifications, then stops the writer.
func (s *Store) Close(ctx context.Context) error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		s.notifies.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		s.writer.close()
		return ctx.Err()
	}

	s.writer.close()
	return s.writer.err()
}

func (s *Store) index(id int) int {
	for i := range s.courses {
		if s.courses[i].ID == id {
			return i
		}
	}
	return -1
}

// persistLocked hands a snapshot to the writer. Callers hold s.mu.
func (s *Store) persistLocked() {
	if s.closed {
		s.logger.Warn("store closed, change not persisted")
		return
	}
	s.writer.schedule(cloneAll(s.courses))
}
