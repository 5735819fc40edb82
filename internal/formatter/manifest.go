package formatter

import (
	"fmt"
	"os"
	"time"

	"github.com/desertthunder/coursechat/internal/shared"
)

// ManifestEntry records the outcome of exporting one course.
type ManifestEntry struct {
	CourseID int      `json:"course_id"`
	Title    string   `json:"title"`
	Success  bool     `json:"success"`
	Files    []string `json:"files,omitempty"`
	Error    string   `json:"error,omitempty"`
}

// Manifest summarizes a bulk export.
type Manifest struct {
	Format          Format          `json:"format"`
	OutputDirectory string          `json:"output_directory"`
	CreatedAt       time.Time       `json:"created_at"`
	Total           int             `json:"total"`
	Succeeded       int             `json:"succeeded"`
	Failed          int             `json:"failed"`
	Courses         []ManifestEntry `json:"courses"`
}

// WriteManifest writes m as indented JSON to path.
func WriteManifest(m Manifest, path string) error {
	if m.Courses == nil {
		m.Courses = []ManifestEntry{}
	}

	data, err := shared.MarshalJSON(m, true)
	if err != nil {
		return fmt.Errorf("failed to marshal manifest: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write manifest: %w", err)
	}
	return nil
}
