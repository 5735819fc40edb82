package models

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestNewMessage(t *testing.T) {
	a := NewMessage("hi", true)
	b := NewMessage("hi", true)

	if a.ID == "" || a.ID == b.ID {
		t.Errorf("expected unique non-empty ids, got %q and %q", a.ID, b.ID)
	}
	if a.Author() != "you" {
		t.Errorf("expected user author, got %s", a.Author())
	}
	if NewMessage("x", false).Author() != "assistant" {
		t.Error("expected assistant author")
	}
}

func TestStatus(t *testing.T) {
	tc := []struct {
		status Status
		want   string
		valid  bool
	}{
		{NotStarted, "not started", true},
		{InProgress, "in progress", true},
		{Completed, "completed", true},
		{Status(7), "unknown", false},
	}

	for _, tt := range tc {
		if got := tt.status.String(); got != tt.want {
			t.Errorf("Status(%d).String() = %q, want %q", tt.status, got, tt.want)
		}
		if got := tt.status.Valid(); got != tt.valid {
			t.Errorf("Status(%d).Valid() = %v, want %v", tt.status, got, tt.valid)
		}
	}
}

func TestNormalizeOutline(t *testing.T) {
	items := []OutlineItem{
		{ID: 2, SubTitle: "two"},
		{ID: 0, SubTitle: "zero"},
		{ID: 2, SubTitle: "two again"},
		{ID: 1, SubTitle: "one"},
	}

	got := NormalizeOutline(items)
	if len(got) != 3 {
		t.Fatalf("expected 3 items, got %d", len(got))
	}
	for i, want := range []string{"zero", "one", "two"} {
		if got[i].SubTitle != want {
			t.Errorf("item %d: expected %q, got %q", i, want, got[i].SubTitle)
		}
	}
	if items[0].ID != 2 {
		t.Error("input slice should not be reordered")
	}
}

func TestCourse(t *testing.T) {
	course := Course{
		ID:    7,
		Title: "Course X",
		Outline: []OutlineItem{
			{ID: 0, SubTitle: "Intro", Status: Completed, DetailContent: StringPtr("body")},
			{ID: 1, SubTitle: "Next", Status: InProgress},
		},
	}

	t.Run("Item", func(t *testing.T) {
		if item := course.Item(1); item == nil || item.SubTitle != "Next" {
			t.Errorf("expected item 1, got %+v", item)
		}
		if course.Item(9) != nil {
			t.Error("expected nil for missing item")
		}
	})

	t.Run("Progress", func(t *testing.T) {
		done, total := course.Progress()
		if done != 1 || total != 2 {
			t.Errorf("expected 1/2, got %d/%d", done, total)
		}
	})

	t.Run("Clone is deep", func(t *testing.T) {
		clone := course.Clone()
		*clone.Outline[0].DetailContent = "changed"
		clone.Outline[1].Status = NotStarted

		if *course.Outline[0].DetailContent != "body" {
			t.Error("clone shares detail content with original")
		}
		if course.Outline[1].Status != InProgress {
			t.Error("clone shares outline with original")
		}
	})

	t.Run("Validate", func(t *testing.T) {
		if err := course.Validate(); err != nil {
			t.Errorf("unexpected error: %v", err)
		}

		dup := course.Clone()
		dup.Outline = append(dup.Outline, OutlineItem{ID: 0})
		if err := dup.Validate(); err == nil {
			t.Error("expected duplicate id error")
		}

		bad := course.Clone()
		bad.Outline[0].Status = Status(9)
		if err := bad.Validate(); err == nil {
			t.Error("expected unknown status error")
		}
	})

	t.Run("JSON field names", func(t *testing.T) {
		data, err := json.Marshal(course)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		for _, key := range []string{`"subTitle":"Intro"`, `"detailContent":"body"`, `"status":2`, `"outline":[`} {
			if !strings.Contains(string(data), key) {
				t.Errorf("expected %s in %s", key, data)
			}
		}
		if strings.Count(string(data), "detailContent") != 1 {
			t.Errorf("nil detail content should be omitted: %s", data)
		}
	})
}
