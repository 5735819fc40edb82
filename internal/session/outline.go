package session

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/desertthunder/coursechat/internal/models"
	"github.com/desertthunder/coursechat/internal/shared"
)

// ParseOutline decodes outline_content: a JSON object mapping chapter index strings to
// [subTitle, content] pairs.
//
// Entries with a non-numeric index or anything other than a pair of strings are dropped. An error is only
// returned when the text is not a JSON object at all. Items come back sorted by id with status
// [models.NotStarted].
func ParseOutline(raw string) ([]models.OutlineItem, error) {
	var entries map[string]any
	if err := json.Unmarshal([]byte(raw), &entries); err != nil || entries == nil {
		return nil, fmt.Errorf("%w: outline_content is not a JSON object", shared.ErrMalformedResponse)
	}

	items := make([]models.OutlineItem, 0, len(entries))
	for key, value := range entries {
		id, err := strconv.Atoi(strings.TrimSpace(key))
		if err != nil {
			continue
		}

		pair, ok := value.([]any)
		if !ok || len(pair) != 2 {
			continue
		}
		subTitle, ok := pair[0].(string)
		if !ok {
			continue
		}
		content, ok := pair[1].(string)
		if !ok {
			continue
		}

		items = append(items, models.OutlineItem{
			ID:       id,
			SubTitle: subTitle,
			Content:  content,
			Status:   models.NotStarted,
		})
	}

	return models.NormalizeOutline(items), nil
}
