// package tasks runs long course operations off the chat loop with progress reporting.
package tasks

import (
	"context"
	"io"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/coursechat/internal/models"
)

// CourseSource supplies the courses to operate on.
type CourseSource interface {
	Courses() []models.Course
}

// Syncer refreshes a [CourseSource] from the backend.
type Syncer interface {
	Sync(ctx context.Context) error
}

// Exporter writes courses to disk.
type Exporter struct {
	source CourseSource
	logger *log.Logger
}

// NewExporter creates an [Exporter] over source.
func NewExporter(source CourseSource, logger *log.Logger) *Exporter {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Exporter{source: source, logger: logger.With("component", "export")}
}

// sendProgress sends a progress update through the channel without blocking.
func (e *Exporter) sendProgress(progress chan<- ProgressUpdate, update ProgressUpdate) {
	if progress == nil {
		return
	}
	select {
	case progress <- update:
	default:
	}
}
