package tasks

import (
	"fmt"
)

// ProgressUpdate represents a progress event during a long-running operation.
//
// Used to send real-time updates to the CLI or UI layer for display.
type ProgressUpdate struct {
	Phase   Phase  // Operation phase
	Step    int    // Current step number within phase
	Total   int    // Total steps in this phase
	Message string // Human-readable message for display
	Data    any    // Optional phase-specific data for advanced UIs
}

// Operation phase enumeration
type Phase int

const (
	SyncCourses Phase = iota
	SelectCourses
	ExportCourse
	WriteManifest
)

func (p Phase) String() string {
	switch p {
	case SyncCourses:
		return "sync_courses"
	case SelectCourses:
		return "select_courses"
	case ExportCourse:
		return "export_course"
	case WriteManifest:
		return "write_manifest"
	default:
		return ""
	}
}

func syncingUpdate() ProgressUpdate {
	return ProgressUpdate{Phase: SyncCourses, Step: 1, Total: 1, Message: "Refreshing courses from the backend..."}
}

func selectedUpdate(count int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   SelectCourses,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Exporting %d course(s)...", count),
	}
}

func exportCompletedUpdate(step, total int, res CourseExportResult) ProgressUpdate {
	return ProgressUpdate{
		Phase:   ExportCourse,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] ✓ %s (%d files)", step, total, res.Title, len(res.Files)),
		Data:    res,
	}
}

func exportFailedUpdate(step, total int, res CourseExportResult) ProgressUpdate {
	return ProgressUpdate{
		Phase:   ExportCourse,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] ✗ %s: %v", step, total, res.Title, res.Error),
		Data:    res,
	}
}

func manifestUpdate(path string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   WriteManifest,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Writing manifest to %s", path),
	}
}
