package session

import (
	"github.com/desertthunder/coursechat/internal/confirm"
	"github.com/desertthunder/coursechat/internal/models"
)

// EventKind identifies an [Event].
type EventKind int

const (
	// EventReady is sent once the course store has loaded.
	EventReady EventKind = iota
	// EventMessage carries a message appended to the conversation.
	EventMessage
	// EventConfirmation asks the user to confirm or cancel Confirmation.
	EventConfirmation
	// EventConfirmationResolved reports Decision for Confirmation.
	EventConfirmationResolved
	// EventStudyPrompt asks whether to start studying chapter ItemID of Course.
	EventStudyPrompt
	// EventStudyContent carries study Content for chapter ItemID of Course.
	EventStudyContent
	// EventCoursesChanged is sent after the course set changed.
	EventCoursesChanged
	// EventAlert reports Err from a user-initiated operation.
	EventAlert
)

func (k EventKind) String() string {
	switch k {
	case EventReady:
		return "ready"
	case EventMessage:
		return "message"
	case EventConfirmation:
		return "confirmation"
	case EventConfirmationResolved:
		return "confirmation_resolved"
	case EventStudyPrompt:
		return "study_prompt"
	case EventStudyContent:
		return "study_content"
	case EventCoursesChanged:
		return "courses_changed"
	case EventAlert:
		return "alert"
	default:
		return "unknown"
	}
}

// Event is a notification from the [Synchronizer]. Only the fields relevant to Kind are set.
type Event struct {
	Kind         EventKind
	Message      models.Message
	Confirmation models.ConfirmationRequest
	Decision     confirm.Decision
	Course       models.Course
	ItemID       int
	Content      string
	Err          error
}

// StudyPrompt is an outstanding offer to start studying a chapter.
type StudyPrompt struct {
	CourseID    int
	CourseTitle string
	ItemID      int
}

// Reply is the interpreted answer to a user message.
type Reply struct {
	NeedConfirm bool
	Request     models.ConfirmationRequest
	// Message is the assistant message appended when no confirmation was needed.
	Message models.Message
}

// Update is what a single check for updates applied.
type Update struct {
	// Skipped is set when the check was not sent because another was still outstanding.
	Skipped bool
	Message *models.Message
	Course  *models.Course
	Prompt  *StudyPrompt
}
