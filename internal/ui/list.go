package ui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/list"
	"github.com/desertthunder/coursechat/internal/models"
)

var (
	_ list.Item = courseItem{}
	_ list.Item = chapterItem{}
)

// courseItem wraps [models.Course] to implement [list.Item].
type courseItem struct {
	course models.Course
}

func (i courseItem) FilterValue() string { return i.course.Title }
func (i courseItem) Title() string       { return i.course.Title }
func (i courseItem) Description() string {
	done, total := i.course.Progress()
	return fmt.Sprintf("#%d • %d/%d chapters completed", i.course.ID, done, total)
}

// chapterItem wraps [models.OutlineItem] to implement [list.Item].
type chapterItem struct {
	item models.OutlineItem
}

func (i chapterItem) FilterValue() string { return i.item.SubTitle }
func (i chapterItem) Title() string {
	return fmt.Sprintf("%d. %s", i.item.ID+1, i.item.SubTitle)
}
func (i chapterItem) Description() string {
	desc := i.item.Status.String()
	if i.item.Content != "" {
		desc = fmt.Sprintf("%s • %s", desc, i.item.Content)
	}
	return desc
}

func courseItems(courses []models.Course) []list.Item {
	items := make([]list.Item, len(courses))
	for i, c := range courses {
		items[i] = courseItem{course: c}
	}
	return items
}

func chapterItems(c models.Course) []list.Item {
	items := make([]list.Item, len(c.Outline))
	for i, item := range c.Outline {
		items[i] = chapterItem{item: item}
	}
	return items
}
