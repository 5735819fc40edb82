// package formatter renders courses and conversations to export formats (JSON, CSV, Markdown, plain text)
package formatter

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/desertthunder/coursechat/internal/models"
	"github.com/desertthunder/coursechat/internal/shared"
)

// Format is an export file format.
type Format string

const (
	JSON     Format = "json"
	CSV      Format = "csv"
	Markdown Format = "markdown"
	Text     Format = "txt"
)

// Formats lists the supported export formats.
var Formats = []Format{JSON, CSV, Markdown, Text}

// ParseFormat accepts a format name, case-insensitively. "md" and "text" are aliases.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "json":
		return JSON, nil
	case "csv":
		return CSV, nil
	case "markdown", "md":
		return Markdown, nil
	case "txt", "text":
		return Text, nil
	default:
		return "", fmt.Errorf("%w: unknown format %q (want json, csv, markdown or txt)", shared.ErrInvalidArgument, s)
	}
}

// CourseMetadata is the course summary written next to CSV exports and into manifests.
type CourseMetadata struct {
	ID        int    `json:"id"`
	Title     string `json:"title"`
	Chapters  int    `json:"chapters"`
	Completed int    `json:"completed"`
}

// Metadata summarizes c.
func Metadata(c models.Course) CourseMetadata {
	done, total := c.Progress()
	return CourseMetadata{ID: c.ID, Title: c.Title, Chapters: total, Completed: done}
}

// CourseToJSON renders the full course, including study content.
func CourseToJSON(c models.Course) ([]byte, error) {
	return shared.MarshalJSON(c, true)
}

// CourseToCSV converts a course outline to CSV with columns: ID, Title, Summary, Status, Studied
func CourseToCSV(c models.Course) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	if err := writer.Write([]string{"ID", "Title", "Summary", "Status", "Studied"}); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for _, item := range c.Outline {
		record := []string{
			strconv.Itoa(item.ID),
			item.SubTitle,
			item.Content,
			item.Status.String(),
			strconv.FormatBool(item.DetailContent != nil),
		}
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}

	return buf.Bytes(), nil
}

// CourseToMarkdown renders a course as a Markdown document with one section per chapter.
func CourseToMarkdown(c models.Course) []byte {
	var buf bytes.Buffer
	done, total := c.Progress()

	fmt.Fprintf(&buf, "# %s\n\n", c.Title)
	fmt.Fprintf(&buf, "**Course**: %d\n", c.ID)
	fmt.Fprintf(&buf, "**Progress**: %d/%d chapters completed\n\n", done, total)

	buf.WriteString("## Chapters\n\n")
	for _, item := range c.Outline {
		fmt.Fprintf(&buf, "### %d. %s\n\n", item.ID+1, item.SubTitle)
		fmt.Fprintf(&buf, "_Status: %s_\n\n", item.Status)
		if item.Content != "" {
			fmt.Fprintf(&buf, "%s\n\n", item.Content)
		}
		if item.DetailContent != nil {
			fmt.Fprintf(&buf, "%s\n\n", strings.TrimSpace(*item.DetailContent))
		}
	}

	return buf.Bytes()
}

// CourseToText renders a course outline as plain text.
func CourseToText(c models.Course) []byte {
	var buf bytes.Buffer
	done, total := c.Progress()

	fmt.Fprintf(&buf, "Course: %s (#%d)\n", c.Title, c.ID)
	fmt.Fprintf(&buf, "Progress: %d/%d\n\n", done, total)

	for _, item := range c.Outline {
		fmt.Fprintf(&buf, "%d. %s [%s]\n", item.ID+1, item.SubTitle, item.Status)
		if item.Content != "" {
			fmt.Fprintf(&buf, "   %s\n", item.Content)
		}
	}

	return buf.Bytes()
}

// ConversationToText renders chat messages one per line as "[15:04:05] author: content".
func ConversationToText(msgs []models.Message) []byte {
	var buf bytes.Buffer
	for _, m := range msgs {
		fmt.Fprintf(&buf, "[%s] %s: %s\n", m.CreatedAt.Format(time.TimeOnly), m.Author(), m.Content)
	}
	return buf.Bytes()
}

// ConversationToMarkdown renders chat messages as a Markdown transcript.
func ConversationToMarkdown(title string, msgs []models.Message) []byte {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "# %s\n\n", title)
	for _, m := range msgs {
		fmt.Fprintf(&buf, "**%s** (%s)\n\n%s\n\n", m.Author(), m.CreatedAt.Format(time.DateTime), m.Content)
	}
	return buf.Bytes()
}

// BaseName is the file stem used for a course export.
func BaseName(c models.Course) string {
	return fmt.Sprintf("course_%d", c.ID)
}

// CSVExportResult contains the paths of files created by WriteCSVExport
type CSVExportResult struct {
	ChaptersFile string
	MetadataFile string
}

// WriteCSVExport writes {base}_chapters.csv and {base}_metadata.json.
func WriteCSVExport(c models.Course, base string) (*CSVExportResult, error) {
	csvData, err := CourseToCSV(c)
	if err != nil {
		return nil, fmt.Errorf("failed to generate CSV: %w", err)
	}

	chaptersFile := base + "_chapters.csv"
	if err := os.WriteFile(chaptersFile, csvData, 0644); err != nil {
		return nil, fmt.Errorf("failed to write CSV file: %w", err)
	}

	metadataJSON, err := shared.MarshalJSON(Metadata(c), true)
	if err != nil {
		return nil, fmt.Errorf("failed to generate metadata JSON: %w", err)
	}

	metadataFile := base + "_metadata.json"
	if err := os.WriteFile(metadataFile, metadataJSON, 0644); err != nil {
		return nil, fmt.Errorf("failed to write metadata file: %w", err)
	}

	return &CSVExportResult{ChaptersFile: chaptersFile, MetadataFile: metadataFile}, nil
}

// MarkdownExportResult contains information about files created by WriteMarkdownExport
type MarkdownExportResult struct {
	Directory string
	Files     []string
}

// WriteMarkdownExport writes {dir}/README.md plus {dir}/chapter_{id}.md for every studied chapter.
func WriteMarkdownExport(c models.Course, dir string) (*MarkdownExportResult, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	result := &MarkdownExportResult{Directory: dir, Files: []string{}}

	readme := filepath.Join(dir, "README.md")
	if err := os.WriteFile(readme, CourseToMarkdown(c), 0644); err != nil {
		return nil, fmt.Errorf("failed to write Markdown file: %w", err)
	}
	result.Files = append(result.Files, readme)

	for _, item := range c.Outline {
		if item.DetailContent == nil {
			continue
		}
		path := filepath.Join(dir, fmt.Sprintf("chapter_%d.md", item.ID))
		body := fmt.Sprintf("# %s\n\n%s\n", item.SubTitle, strings.TrimSpace(*item.DetailContent))
		if err := os.WriteFile(path, []byte(body), 0644); err != nil {
			return nil, fmt.Errorf("failed to write chapter %d: %w", item.ID, err)
		}
		result.Files = append(result.Files, path)
	}

	return result, nil
}

// WriteTextExport writes the plain text outline to path.
func WriteTextExport(c models.Course, path string) (string, error) {
	if err := os.WriteFile(path, CourseToText(c), 0644); err != nil {
		return "", fmt.Errorf("failed to write text file: %w", err)
	}
	return path, nil
}

// WriteJSONExport writes the full course as indented JSON to path.
func WriteJSONExport(c models.Course, path string) (string, error) {
	data, err := CourseToJSON(c)
	if err != nil {
		return "", fmt.Errorf("JSON marshal failed: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("JSON write failed: %w", err)
	}
	return path, nil
}
