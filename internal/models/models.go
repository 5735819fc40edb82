// package models defines the data model for the coursechat client
package models

import (
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
)

// Message is a single chat line. Messages are immutable once created.
type Message struct {
	ID        string    `json:"id"`
	Content   string    `json:"content"`
	IsUser    bool      `json:"isUser"`
	CreatedAt time.Time `json:"createdAt"`
}

// NewMessage creates a [Message] with a fresh v4 UUID.
func NewMessage(content string, isUser bool) Message {
	return Message{
		ID:        uuid.New().String(),
		Content:   content,
		IsUser:    isUser,
		CreatedAt: time.Now(),
	}
}

// Author returns "you" or "assistant".
func (m Message) Author() string {
	if m.IsUser {
		return "you"
	}
	return "assistant"
}

// Status is the study state of an [OutlineItem].
type Status int

const (
	NotStarted Status = iota
	InProgress
	Completed
)

func (s Status) String() string {
	switch s {
	case NotStarted:
		return "not started"
	case InProgress:
		return "in progress"
	case Completed:
		return "completed"
	default:
		return "unknown"
	}
}

// Valid reports whether s is one of the known states.
func (s Status) Valid() bool {
	return s >= NotStarted && s <= Completed
}

// OutlineItem is one chapter of a [Course].
//
// DetailContent is only set after a successful study request.
type OutlineItem struct {
	ID            int     `json:"id"`
	SubTitle      string  `json:"subTitle"`
	Content       string  `json:"content"`
	Status        Status  `json:"status"`
	DetailContent *string `json:"detailContent,omitempty"`
}

// Course is a generated course tracked locally.
type Course struct {
	ID      int           `json:"id"`
	Title   string        `json:"title"`
	Outline []OutlineItem `json:"outline"`
}

// Item returns a pointer to the outline item with the given id, or nil.
func (c *Course) Item(id int) *OutlineItem {
	for i := range c.Outline {
		if c.Outline[i].ID == id {
			return &c.Outline[i]
		}
	}
	return nil
}

// Progress returns the number of completed chapters and the total.
func (c Course) Progress() (done, total int) {
	for _, item := range c.Outline {
		if item.Status == Completed {
			done++
		}
	}
	return done, len(c.Outline)
}

// Clone returns a deep copy of the course.
func (c Course) Clone() Course {
	return Course{ID: c.ID, Title: c.Title, Outline: CloneOutline(c.Outline)}
}

// CloneOutline deep-copies an outline, including detail content pointers.
func CloneOutline(items []OutlineItem) []OutlineItem {
	if items == nil {
		return nil
	}
	out := make([]OutlineItem, len(items))
	for i, item := range items {
		out[i] = item
		if item.DetailContent != nil {
			v := *item.DetailContent
			out[i].DetailContent = &v
		}
	}
	return out
}

// NormalizeOutline sorts items by id and drops later duplicates of an id.
func NormalizeOutline(items []OutlineItem) []OutlineItem {
	out := CloneOutline(items)
	sort.SliceStable(out, func(i, j int) bool { return out[i].ID < out[j].ID })

	deduped := make([]OutlineItem, 0, len(out))
	for _, item := range out {
		if n := len(deduped); n > 0 && deduped[n-1].ID == item.ID {
			continue
		}
		deduped = append(deduped, item)
	}
	return deduped
}

// Validate checks the course invariants.
func (c Course) Validate() error {
	seen := make(map[int]bool, len(c.Outline))
	for _, item := range c.Outline {
		if seen[item.ID] {
			return fmt.Errorf("course %d: duplicate outline item id %d", c.ID, item.ID)
		}
		seen[item.ID] = true
		if !item.Status.Valid() {
			return fmt.Errorf("course %d: outline item %d has unknown status %d", c.ID, item.ID, item.Status)
		}
	}
	return nil
}

// ConfirmationRequest is a pending server request for user approval.
type ConfirmationRequest struct {
	Title   string `json:"title"`
	SSID    string `json:"ssid"`
	Message string `json:"message"`
}

// StringPtr returns a pointer to s.
func StringPtr(s string) *string {
	return &s
}
