// Package identity supplies the stable per-installation user id sent with every backend request.
package identity

import (
	"errors"
	"fmt"
	"io"
	"math/rand/v2"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/coursechat/internal/repositories"
	"github.com/desertthunder/coursechat/internal/shared"
)

// Provider supplies the installation's user id.
type Provider interface {
	UserID() string
}

// Static is a fixed user id.
type Static string

func (s Static) UserID() string { return string(s) }

// Store is the persistence the [Installation] provider needs.
type Store interface {
	Get() (*repositories.Installation, error)
	Create(userID string) (*repositories.Installation, error)
}

// Installation is a [Provider] backed by the installation table. The id is created on first access and
// reused on every later run.
type Installation struct {
	store    Store
	logger   *log.Logger
	generate func() string

	once   sync.Once
	userID string
	err    error
}

// NewInstallation creates a provider over store.
func NewInstallation(store Store, logger *log.Logger) *Installation {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Installation{store: store, logger: logger.With("component", "identity"), generate: NewUserID}
}

// Load resolves the user id, creating and persisting one when none exists.
func (i *Installation) Load() (string, error) {
	i.once.Do(func() {
		inst, err := i.store.Get()
		if err == nil {
			i.userID = inst.UserID
			return
		}
		if !errors.Is(err, shared.ErrNotFound) {
			i.err = fmt.Errorf("%w: %v", shared.ErrPersistenceFailed, err)
			return
		}

		inst, err = i.store.Create(i.generate())
		if err != nil {
			i.err = fmt.Errorf("%w: %v", shared.ErrPersistenceFailed, err)
			return
		}
		i.logger.Info("created installation identity", "user", inst.UserID)
		i.userID = inst.UserID
	})
	return i.userID, i.err
}

// UserID returns the installation's user id, or "" when it could not be loaded.
func (i *Installation) UserID() string {
	id, err := i.Load()
	if err != nil {
		i.logger.Error("failed to load identity", "error", err)
	}
	return id
}

// NewUserID returns a random 8-digit numeric id.
func NewUserID() string {
	return fmt.Sprintf("%08d", rand.IntN(100_000_000))
}
