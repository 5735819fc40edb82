package courses

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/desertthunder/coursechat/internal/identity"
	"github.com/desertthunder/coursechat/internal/models"
	"github.com/desertthunder/coursechat/internal/services"
	"github.com/desertthunder/coursechat/internal/shared"
	tu "github.com/desertthunder/coursechat/internal/testing"
	"github.com/google/go-cmp/cmp"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func newTestStore(t *testing.T, storage Storage, tr services.Transport) *Store {
	t.Helper()
	if tr == nil {
		tr = tu.NewFakeTransport()
	}
	s, err := NewStore(Opts{Storage: storage, Transport: tr, Identity: identity.Static("12345678")})
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { s.Close(context.Background()) })
	return s
}

func flush(t *testing.T, s *Store) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := s.Flush(ctx); err != nil {
		t.Fatalf("flush failed: %v", err)
	}
}

func sampleOutline() []models.OutlineItem {
	return []models.OutlineItem{
		{ID: 1, SubTitle: "Loops", Content: "for and range", Status: models.InProgress, DetailContent: models.StringPtr("detail")},
		{ID: 0, SubTitle: "Intro", Content: "Basics", Status: models.Completed},
	}
}

func TestNewStore(t *testing.T) {
	if _, err := NewStore(Opts{}); !errors.Is(err, shared.ErrMissingArgument) {
		t.Errorf("expected ErrMissingArgument, got %v", err)
	}
}

func TestStoreUpsert(t *testing.T) {
	t.Run("Idempotent", func(t *testing.T) {
		s := newTestStore(t, NewMemoryStorage(nil), nil)

		outline := sampleOutline()
		s.Upsert(7, "Go", outline)
		s.Upsert(7, "Go", outline)

		if s.Len() != 1 {
			t.Fatalf("expected one course, got %d", s.Len())
		}
		c, ok := s.Course(7)
		if !ok {
			t.Fatal("expected course 7")
		}
		if c.Outline[0].ID != 0 || c.Outline[1].ID != 1 {
			t.Errorf("expected outline sorted by id, got %+v", c.Outline)
		}
	})

	t.Run("Replaces In Place", func(t *testing.T) {
		s := newTestStore(t, NewMemoryStorage(nil), nil)

		s.Upsert(1, "first", nil)
		s.Upsert(2, "second", nil)
		s.Upsert(1, "renamed", []models.OutlineItem{{ID: 0, SubTitle: "x"}})

		got := s.Courses()
		if len(got) != 2 || got[0].ID != 1 || got[0].Title != "renamed" || got[1].ID != 2 {
			t.Errorf("unexpected courses %+v", got)
		}
		if len(got[0].Outline) != 1 {
			t.Errorf("expected outline to be replaced, got %+v", got[0].Outline)
		}
	})

	t.Run("Returned Copies Are Detached", func(t *testing.T) {
		s := newTestStore(t, NewMemoryStorage(nil), nil)
		s.Upsert(1, "c", sampleOutline())

		c, _ := s.Course(1)
		*c.Outline[1].DetailContent = "mutated"
		c.Outline[0].Status = models.NotStarted

		again, _ := s.Course(1)
		if *again.Outline[1].DetailContent != "detail" || again.Outline[0].Status != models.Completed {
			t.Error("store state changed through a returned copy")
		}
	})

	t.Run("Persists Every Mutation", func(t *testing.T) {
		storage := NewMemoryStorage(nil)
		s := newTestStore(t, storage, nil)

		s.Upsert(1, "c", nil)
		flush(t, s)

		stored, err := storage.Load()
		if err != nil {
			t.Fatalf("expected stored courses: %v", err)
		}
		if len(stored) != 1 || stored[0].ID != 1 {
			t.Errorf("unexpected stored courses %+v", stored)
		}
	})
}

func TestStoreRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data", "courses.json")

	first := newTestStore(t, NewFileStorage(path), nil)
	first.Upsert(7, "Course X", sampleOutline())
	first.Upsert(3, "Course Y", []models.OutlineItem{{ID: 0, SubTitle: "Only", Content: "one"}})
	if err := first.Close(context.Background()); err != nil {
		t.Fatalf("close failed: %v", err)
	}

	tu.AssertFileExists(t, path)

	fake := tu.NewFakeTransport()
	second := newTestStore(t, NewFileStorage(path), fake)
	if err := second.Load(context.Background()); err != nil {
		t.Fatalf("load failed: %v", err)
	}

	if diff := cmp.Diff(first.Courses(), second.Courses()); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
	if fake.Count(services.EndpointCourseList) != 0 {
		t.Error("backend should not be consulted when a local copy exists")
	}
}

func TestStoreLoad(t *testing.T) {
	courseList := map[string]any{
		"data": []any{
			map[string]any{
				"courseID": float64(5),
				"title":    "Remote",
				"chapters": []any{
					map[string]any{"title": "A", "content": "a", "status": float64(2)},
					map[string]any{"title": "B", "content": "b", "status": "1"},
					map[string]any{"title": "C", "content": "c", "status": float64(9)},
				},
			},
		},
	}

	t.Run("Falls Back To Backend", func(t *testing.T) {
		fake := tu.NewFakeTransport().Respond(services.EndpointCourseList, courseList)
		storage := NewMemoryStorage(nil)
		s := newTestStore(t, storage, fake)

		if err := s.Load(context.Background()); err != nil {
			t.Fatalf("load failed: %v", err)
		}

		want := []models.Course{{
			ID:    5,
			Title: "Remote",
			Outline: []models.OutlineItem{
				{ID: 0, SubTitle: "A", Content: "a", Status: models.Completed},
				{ID: 1, SubTitle: "B", Content: "b", Status: models.InProgress},
				{ID: 2, SubTitle: "C", Content: "c", Status: models.NotStarted},
			},
		}}
		if diff := cmp.Diff(want, s.Courses()); diff != "" {
			t.Errorf("courses mismatch (-want +got):\n%s", diff)
		}

		reqs := fake.Requests(services.EndpointCourseList)
		if len(reqs) != 1 || reqs[0].Payload["userID"] != "12345678" {
			t.Errorf("unexpected courselist requests %+v", reqs)
		}

		flush(t, s)
		if stored, err := storage.Load(); err != nil || len(stored) != 1 {
			t.Errorf("expected fetched courses to be persisted, got %v (%v)", stored, err)
		}
	})

	t.Run("Unreadable File Falls Back", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "courses.json")
		tu.MustWriteFile(t, path, "{not json")

		fake := tu.NewFakeTransport().Respond(services.EndpointCourseList, courseList)
		s := newTestStore(t, NewFileStorage(path), fake)

		if err := s.Load(context.Background()); err != nil {
			t.Fatalf("load failed: %v", err)
		}
		if s.Len() != 1 {
			t.Errorf("expected backend courses, got %d", s.Len())
		}
	})

	t.Run("Both Fail Leaves Store Empty", func(t *testing.T) {
		fake := tu.NewFakeTransport().Fail(services.EndpointCourseList, shared.ErrRequestFailed)
		s := newTestStore(t, NewMemoryStorage(nil), fake)
		s.Upsert(1, "stale", nil)

		err := s.Load(context.Background())
		if !errors.Is(err, shared.ErrPersistenceFailed) || !errors.Is(err, shared.ErrRequestFailed) {
			t.Errorf("expected combined persistence/request error, got %v", err)
		}
		if s.Len() != 0 {
			t.Errorf("expected empty store, got %d courses", s.Len())
		}
	})

	t.Run("Sync Replaces Local Set", func(t *testing.T) {
		fake := tu.NewFakeTransport().Respond(services.EndpointCourseList, courseList)
		s := newTestStore(t, NewMemoryStorage([]models.Course{{ID: 1, Title: "local"}}), fake)
		if err := s.Load(context.Background()); err != nil {
			t.Fatalf("load failed: %v", err)
		}

		if err := s.Sync(context.Background()); err != nil {
			t.Fatalf("sync failed: %v", err)
		}
		if _, ok := s.Course(1); ok {
			t.Error("expected local-only course to be replaced")
		}
		if _, ok := s.Course(5); !ok {
			t.Error("expected backend course after sync")
		}
	})
}

func TestStoreDelete(t *testing.T) {
	t.Run("Removes And Notifies", func(t *testing.T) {
		fake := tu.NewFakeTransport()
		storage := NewMemoryStorage(nil)
		s := newTestStore(t, storage, fake)
		s.Upsert(1, "a", nil)
		s.Upsert(2, "b", nil)

		if err := s.Delete(context.Background(), 1); err != nil {
			t.Fatalf("delete failed: %v", err)
		}
		if _, ok := s.Course(1); ok {
			t.Error("course 1 should be gone")
		}

		if err := s.Close(context.Background()); err != nil {
			t.Fatalf("close failed: %v", err)
		}

		reqs := fake.Requests(services.EndpointDelete)
		if len(reqs) != 1 {
			t.Fatalf("expected one delete request, got %d", len(reqs))
		}
		if reqs[0].Payload["courseID"] != 1 || reqs[0].Payload["userID"] != "12345678" {
			t.Errorf("unexpected delete payload %v", reqs[0].Payload)
		}

		stored, _ := storage.Load()
		if len(stored) != 1 || stored[0].ID != 2 {
			t.Errorf("expected only course 2 persisted, got %+v", stored)
		}
	})

	t.Run("Backend Failure Keeps Local Delete", func(t *testing.T) {
		fake := tu.NewFakeTransport().Fail(services.EndpointDelete, shared.ErrRequestFailed)
		s := newTestStore(t, NewMemoryStorage(nil), fake)
		s.Upsert(1, "a", nil)

		if err := s.Delete(context.Background(), 1); err != nil {
			t.Fatalf("delete failed: %v", err)
		}
		s.Close(context.Background())

		if s.Len() != 0 {
			t.Error("local delete should not be rolled back")
		}
		if fake.Count(services.EndpointDelete) != 1 {
			t.Error("delete should be attempted exactly once")
		}
	})

	t.Run("Unknown Course", func(t *testing.T) {
		fake := tu.NewFakeTransport()
		s := newTestStore(t, NewMemoryStorage(nil), fake)

		if err := s.Delete(context.Background(), 9); !errors.Is(err, shared.ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
		s.Close(context.Background())
		if fake.Count(services.EndpointDelete) != 0 {
			t.Error("backend should not be notified for unknown courses")
		}
	})

	t.Run("Does Not Block On Backend", func(t *testing.T) {
		fake := tu.NewFakeTransport()
		release := fake.Block(services.EndpointDelete)
		s := newTestStore(t, NewMemoryStorage(nil), fake)
		s.Upsert(1, "a", nil)

		done := make(chan error, 1)
		go func() { done <- s.Delete(context.Background(), 1) }()

		select {
		case err := <-done:
			if err != nil {
				t.Fatalf("delete failed: %v", err)
			}
		case <-time.After(time.Second):
			t.Fatal("delete blocked on the backend")
		}
		release()
	})
}

func TestStoreItems(t *testing.T) {
	t.Run("UpdateItem", func(t *testing.T) {
		s := newTestStore(t, NewMemoryStorage(nil), nil)
		s.Upsert(1, "c", []models.OutlineItem{{ID: 0}})

		ok := s.UpdateItem(1, 0, func(item *models.OutlineItem) {
			item.Status = models.InProgress
			item.DetailContent = models.StringPtr("text")
		})
		if !ok {
			t.Fatal("expected update to apply")
		}

		c, _ := s.Course(1)
		if c.Outline[0].Status != models.InProgress || *c.Outline[0].DetailContent != "text" {
			t.Errorf("unexpected item %+v", c.Outline[0])
		}

		called := false
		if s.UpdateItem(1, 5, func(*models.OutlineItem) { called = true }) || called {
			t.Error("missing item should be skipped")
		}
		if s.UpdateItem(9, 0, func(*models.OutlineItem) { called = true }) || called {
			t.Error("missing course should be skipped")
		}
	})

	t.Run("Complete", func(t *testing.T) {
		s := newTestStore(t, NewMemoryStorage(nil), nil)
		s.Upsert(1, "c", []models.OutlineItem{
			{ID: 0, Status: models.NotStarted},
			{ID: 1, Status: models.InProgress},
		})

		if err := s.Complete(1, 0); !errors.Is(err, shared.ErrOperationRejected) {
			t.Errorf("expected ErrOperationRejected for unstarted chapter, got %v", err)
		}
		if err := s.Complete(1, 1); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if err := s.Complete(1, 1); !errors.Is(err, shared.ErrOperationRejected) {
			t.Errorf("expected ErrOperationRejected for completed chapter, got %v", err)
		}
		if err := s.Complete(1, 7); !errors.Is(err, shared.ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
		if err := s.Complete(4, 0); !errors.Is(err, shared.ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}

		c, _ := s.Course(1)
		if done, total := c.Progress(); done != 1 || total != 2 {
			t.Errorf("expected 1/2 complete, got %d/%d", done, total)
		}
	})
}

func TestStorePersistFailure(t *testing.T) {
	storage := NewMemoryStorage(nil)
	storage.FailWith(shared.ErrPersistenceFailed)
	s := newTestStore(t, storage, nil)

	s.Upsert(1, "kept in memory", nil)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := s.Flush(ctx); !errors.Is(err, shared.ErrPersistenceFailed) {
		t.Errorf("expected ErrPersistenceFailed from flush, got %v", err)
	}
	if _, ok := s.Course(1); !ok {
		t.Error("memory should remain the source of truth after a failed save")
	}
}

func TestStoreCoalescesWrites(t *testing.T) {
	storage := NewMemoryStorage(nil)
	s := newTestStore(t, storage, nil)

	for i := range 50 {
		s.Upsert(i, "c", nil)
	}
	flush(t, s)

	if storage.Saves() > 50 {
		t.Errorf("expected at most 50 saves, got %d", storage.Saves())
	}
	stored, _ := storage.Load()
	if len(stored) != 50 {
		t.Errorf("expected final snapshot with 50 courses, got %d", len(stored))
	}
}

func TestFileStorage(t *testing.T) {
	t.Run("Missing File", func(t *testing.T) {
		_, err := NewFileStorage(filepath.Join(t.TempDir(), "none.json")).Load()
		if !errors.Is(err, os.ErrNotExist) {
			t.Errorf("expected not-exist error, got %v", err)
		}
	})

	t.Run("Invalid Document", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "courses.json")
		tu.MustWriteFile(t, path, `[{"id":1,"outline":[{"id":0,"status":7}]}]`)

		_, err := NewFileStorage(path).Load()
		if !errors.Is(err, shared.ErrPersistenceFailed) {
			t.Errorf("expected ErrPersistenceFailed, got %v", err)
		}
	})

	t.Run("Save Replaces Atomically", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "courses.json")
		fs := NewFileStorage(path)

		if err := fs.Save([]models.Course{{ID: 1, Title: "one"}}); err != nil {
			t.Fatalf("save failed: %v", err)
		}
		if err := fs.Save(nil); err != nil {
			t.Fatalf("save failed: %v", err)
		}

		if got := tu.MustReadFile(t, path); got != "[]" {
			t.Errorf("expected empty array document, got %q", got)
		}

		entries, _ := os.ReadDir(dir)
		if len(entries) != 1 {
			t.Errorf("expected no leftover temp files, got %d entries", len(entries))
		}
	})

	t.Run("Uses Schema Field Names", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "courses.json")
		tu.MustWriteFile(t, path, `[{"id":7,"title":"Course X","outline":[{"id":0,"subTitle":"Intro","content":"Basics of X","status":1,"detailContent":"more"}]}]`)

		courses, err := NewFileStorage(path).Load()
		if err != nil {
			t.Fatalf("load failed: %v", err)
		}

		want := []models.Course{{ID: 7, Title: "Course X", Outline: []models.OutlineItem{
			{ID: 0, SubTitle: "Intro", Content: "Basics of X", Status: models.InProgress, DetailContent: models.StringPtr("more")},
		}}}
		if diff := cmp.Diff(want, courses); diff != "" {
			t.Errorf("mismatch (-want +got):\n%s", diff)
		}
	})
}

func TestParseCourseList(t *testing.T) {
	t.Run("Missing Data", func(t *testing.T) {
		got, err := ParseCourseList(map[string]any{})
		if err != nil || len(got) != 0 {
			t.Errorf("expected empty list, got %v (%v)", got, err)
		}
	})

	t.Run("Data Not Array", func(t *testing.T) {
		if _, err := ParseCourseList(map[string]any{"data": "x"}); !errors.Is(err, shared.ErrMalformedResponse) {
			t.Errorf("expected ErrMalformedResponse, got %v", err)
		}
	})

	t.Run("Skips Bad Entries", func(t *testing.T) {
		got, err := ParseCourseList(map[string]any{"data": []any{
			"nope",
			map[string]any{"title": "no id"},
			map[string]any{"courseID": "3", "title": "ok", "chapters": []any{"bad", map[string]any{"title": "c"}}},
			map[string]any{"courseID": 3, "title": "duplicate"},
		}})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(got) != 1 || got[0].ID != 3 || got[0].Title != "ok" {
			t.Fatalf("unexpected courses %+v", got)
		}
		if len(got[0].Outline) != 1 || got[0].Outline[0].ID != 1 {
			t.Errorf("expected chapter index to be kept as id, got %+v", got[0].Outline)
		}
	})
}
