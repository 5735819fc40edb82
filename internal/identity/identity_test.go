package identity

import (
	"errors"
	"regexp"
	"testing"

	"github.com/desertthunder/coursechat/internal/repositories"
	"github.com/desertthunder/coursechat/internal/shared"
)

type failingStore struct{}

func (failingStore) Get() (*repositories.Installation, error) {
	return nil, errors.New("disk on fire")
}

func (failingStore) Create(string) (*repositories.Installation, error) {
	return nil, errors.New("disk on fire")
}

func setupRepo(t *testing.T) *repositories.InstallationRepository {
	t.Helper()
	db, err := shared.OpenDatabase(":memory:")
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return repositories.NewInstallationRepository(db)
}

func TestNewUserID(t *testing.T) {
	re := regexp.MustCompile(`^\d{8}$`)
	for range 100 {
		if id := NewUserID(); !re.MatchString(id) {
			t.Fatalf("expected 8 digits, got %q", id)
		}
	}
}

func TestStatic(t *testing.T) {
	var p Provider = Static("abc")
	if p.UserID() != "abc" {
		t.Errorf("expected abc, got %s", p.UserID())
	}
}

func TestInstallation(t *testing.T) {
	t.Run("Creates On First Access", func(t *testing.T) {
		repo := setupRepo(t)
		p := NewInstallation(repo, nil)
		p.generate = func() string { return "00000042" }

		if got := p.UserID(); got != "00000042" {
			t.Errorf("expected generated id, got %s", got)
		}

		inst, err := repo.Get()
		if err != nil {
			t.Fatalf("expected installation to be persisted: %v", err)
		}
		if inst.UserID != "00000042" {
			t.Errorf("expected persisted id 00000042, got %s", inst.UserID)
		}
	})

	t.Run("Stable Across Providers", func(t *testing.T) {
		repo := setupRepo(t)
		first := NewInstallation(repo, nil).UserID()

		second := NewInstallation(repo, nil)
		second.generate = func() string { return "99999999" }

		if got := second.UserID(); got != first {
			t.Errorf("expected stable id %s, got %s", first, got)
		}
	})

	t.Run("Store Failure", func(t *testing.T) {
		p := NewInstallation(failingStore{}, nil)
		if _, err := p.Load(); !errors.Is(err, shared.ErrPersistenceFailed) {
			t.Errorf("expected ErrPersistenceFailed, got %v", err)
		}
		if p.UserID() != "" {
			t.Error("expected empty id on failure")
		}
	})
}
