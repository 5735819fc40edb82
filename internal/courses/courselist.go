package courses

import (
	"fmt"

	"github.com/desertthunder/coursechat/internal/models"
	"github.com/desertthunder/coursechat/internal/services"
	"github.com/desertthunder/coursechat/internal/shared"
)

// ParseCourseList maps a /courselist response onto courses.
//
// Chapters are numbered by their position, which becomes the outline item id. Entries without a usable
// courseID are skipped, as are chapters that are not objects. An unknown status reads as not started.
func ParseCourseList(resp map[string]any) ([]models.Course, error) {
	data, ok := services.Array(resp, services.FieldData)
	if !ok {
		if _, present := resp[services.FieldData]; !present {
			return []models.Course{}, nil
		}
		return nil, fmt.Errorf("%w: courselist data is not an array", shared.ErrMalformedResponse)
	}

	courses := make([]models.Course, 0, len(data))
	seen := make(map[int]bool, len(data))
	for _, raw := range data {
		entry, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		id, ok := services.Int(entry, services.FieldCourseID)
		if !ok || seen[id] {
			continue
		}
		seen[id] = true

		title, _ := services.String(entry, services.FieldTitle)
		chapters, _ := services.Array(entry, services.FieldChapters)

		outline := make([]models.OutlineItem, 0, len(chapters))
		for idx, rc := range chapters {
			ch, ok := rc.(map[string]any)
			if !ok {
				continue
			}
			subTitle, _ := services.String(ch, services.FieldTitle)
			content, _ := services.String(ch, services.FieldContent)

			status := models.NotStarted
			if n, ok := services.Int(ch, services.FieldStatus); ok && models.Status(n).Valid() {
				status = models.Status(n)
			}

			outline = append(outline, models.OutlineItem{
				ID:       idx,
				SubTitle: subTitle,
				Content:  content,
				Status:   status,
			})
		}

		courses = append(courses, models.Course{ID: id, Title: title, Outline: outline})
	}

	return courses, nil
}
