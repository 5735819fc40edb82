package repositories

import (
	"database/sql"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/desertthunder/coursechat/internal/models"
	"github.com/desertthunder/coursechat/internal/shared"
	"go.uber.org/goleak"
)

// setupTestDB creates an in-memory SQLite database with migrations applied
func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := shared.NewDatabase(":memory:")
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}

	if err := shared.RunMigrations(db); err != nil {
		db.Close()
		t.Fatalf("failed to run migrations: %v", err)
	}

	return db
}

func TestNextSequence(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	for want := 1; want <= 3; want++ {
		got, err := NextSequence(db, "transcript")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got != want {
			t.Errorf("expected sequence %d, got %d", want, got)
		}
	}

	if _, err := NextSequence(db, "nope"); err == nil {
		t.Error("expected error for unknown sequence table")
	}
}

func TestInstallationRepository(t *testing.T) {
	t.Run("Get Before Create", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		_, err := NewInstallationRepository(db).Get()
		if !errors.Is(err, shared.ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("Create", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		repo := NewInstallationRepository(db)
		inst, err := repo.Create("12345678")
		if err != nil {
			t.Fatalf("failed to create installation: %v", err)
		}
		if inst.UserID != "12345678" {
			t.Errorf("expected user id 12345678, got %s", inst.UserID)
		}
		if inst.CreatedAt.IsZero() {
			t.Error("expected created_at to be set")
		}
	})

	t.Run("Create Keeps First Id", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		repo := NewInstallationRepository(db)
		if _, err := repo.Create("11111111"); err != nil {
			t.Fatalf("failed to create installation: %v", err)
		}

		inst, err := repo.Create("22222222")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if inst.UserID != "11111111" {
			t.Errorf("expected first id to win, got %s", inst.UserID)
		}
	})

	t.Run("Create Empty Id", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		if _, err := NewInstallationRepository(db).Create(""); !errors.Is(err, shared.ErrInvalidInput) {
			t.Errorf("expected ErrInvalidInput, got %v", err)
		}
	})
}

func TestTranscriptRepository(t *testing.T) {
	t.Run("Append and List", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		repo := NewTranscriptRepository(db)
		msgs := []models.Message{
			models.NewMessage("hello", true),
			models.NewMessage("hi there", false),
			models.NewMessage("bye", true),
		}
		for _, m := range msgs {
			if _, err := repo.Append("s1", m); err != nil {
				t.Fatalf("failed to append: %v", err)
			}
		}

		entries, err := repo.List("s1", 0)
		if err != nil {
			t.Fatalf("failed to list: %v", err)
		}
		if len(entries) != 3 {
			t.Fatalf("expected 3 entries, got %d", len(entries))
		}
		for i, e := range entries {
			if e.Message.ID != msgs[i].ID || e.Message.Content != msgs[i].Content || e.Message.IsUser != msgs[i].IsUser {
				t.Errorf("entry %d: expected %+v, got %+v", i, msgs[i], e.Message)
			}
		}
		if entries[0].Sequence >= entries[1].Sequence {
			t.Error("expected ascending sequence numbers")
		}
	})

	t.Run("List With Limit Keeps Latest", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		repo := NewTranscriptRepository(db)
		for i := range 5 {
			repo.Append("s1", models.NewMessage(fmt.Sprintf("m%d", i), true))
		}

		entries, err := repo.List("s1", 2)
		if err != nil {
			t.Fatalf("failed to list: %v", err)
		}
		if len(entries) != 2 || entries[0].Message.Content != "m3" || entries[1].Message.Content != "m4" {
			t.Errorf("expected m3, m4; got %+v", entries)
		}
	})

	t.Run("List Latest Session", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		repo := NewTranscriptRepository(db)
		repo.Append("old", models.NewMessage("a", true))
		repo.Append("new", models.NewMessage("b", true))

		entries, err := repo.List("", 0)
		if err != nil {
			t.Fatalf("failed to list: %v", err)
		}
		if len(entries) != 1 || entries[0].SessionID != "new" {
			t.Errorf("expected latest session, got %+v", entries)
		}
	})

	t.Run("List Empty", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		entries, err := NewTranscriptRepository(db).List("", 0)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(entries) != 0 {
			t.Errorf("expected no entries, got %d", len(entries))
		}
	})

	t.Run("Sessions", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		repo := NewTranscriptRepository(db)
		repo.Append("a", models.NewMessage("1", true))
		repo.Append("a", models.NewMessage("2", false))
		repo.Append("b", models.NewMessage("3", true))

		sessions, err := repo.Sessions()
		if err != nil {
			t.Fatalf("failed to list sessions: %v", err)
		}
		if len(sessions) != 2 {
			t.Fatalf("expected 2 sessions, got %d", len(sessions))
		}
		if sessions[0].SessionID != "b" || sessions[1].Messages != 2 {
			t.Errorf("unexpected sessions %+v", sessions)
		}
		if sessions[1].StartedAt.IsZero() {
			t.Error("expected start time to be parsed")
		}
	})

	t.Run("Duplicate Message Id", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		repo := NewTranscriptRepository(db)
		m := models.NewMessage("once", true)
		if _, err := repo.Append("s", m); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if _, err := repo.Append("s", m); err == nil {
			t.Error("expected error when archiving the same message twice")
		}
	})
}

func TestTranscriptWriter(t *testing.T) {
	defer goleak.VerifyNone(t)

	t.Run("Close Drains Queue", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		repo := NewTranscriptRepository(db)
		w := NewTranscriptWriter(repo, "s1", 0, nil)
		for i := range 10 {
			w.Record(models.NewMessage(fmt.Sprintf("m%d", i), i%2 == 0))
		}
		if err := w.Close(); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		entries, err := repo.List("s1", 0)
		if err != nil {
			t.Fatalf("failed to list: %v", err)
		}
		if len(entries) != 10 {
			t.Errorf("expected 10 archived messages, got %d", len(entries))
		}
		if w.SessionID() != "s1" {
			t.Errorf("expected session s1, got %s", w.SessionID())
		}
	})

	t.Run("Record After Close Is Ignored", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		repo := NewTranscriptRepository(db)
		w := NewTranscriptWriter(repo, "s1", 1, nil)
		w.Close()
		w.Close()
		w.Record(models.NewMessage("late", true))

		entries, _ := repo.List("s1", 0)
		if len(entries) != 0 {
			t.Errorf("expected nothing archived, got %d", len(entries))
		}
	})

	t.Run("Noop", func(t *testing.T) {
		var r Recorder = NoopRecorder{}
		r.Record(models.Message{CreatedAt: time.Now()})
		if err := r.Close(); err != nil {
			t.Errorf("unexpected error: %v", err)
		}
	})
}
