package repositories

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/desertthunder/coursechat/internal/shared"
)

// Installation is the persisted identity of this client install.
type Installation struct {
	UserID    string
	CreatedAt time.Time
}

// InstallationRepository stores the single installation row.
type InstallationRepository struct {
	db *sql.DB
}

// NewInstallationRepository creates a new [InstallationRepository] with the given database connection
func NewInstallationRepository(db *sql.DB) *InstallationRepository {
	return &InstallationRepository{db: db}
}

// Get returns the installation, or [shared.ErrNotFound] when none has been created yet.
func (r *InstallationRepository) Get() (*Installation, error) {
	var inst Installation
	err := r.db.QueryRow("SELECT user_id, created_at FROM installation WHERE id = 1").Scan(&inst.UserID, &inst.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("installation %w", shared.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query installation: %w", err)
	}
	return &inst, nil
}

// Create stores userID as the installation identity.
//
// When a row already exists it is kept and returned unchanged, so concurrent first runs agree on one id.
func (r *InstallationRepository) Create(userID string) (*Installation, error) {
	if userID == "" {
		return nil, fmt.Errorf("%w: user id is required", shared.ErrInvalidInput)
	}

	_, err := r.db.Exec(
		"INSERT OR IGNORE INTO installation (id, user_id, created_at) VALUES (1, ?, ?)",
		userID, time.Now().UTC(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to insert installation: %w", err)
	}

	return r.Get()
}
