package main

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/desertthunder/coursechat/internal/formatter"
	"github.com/desertthunder/coursechat/internal/shared"
	"github.com/desertthunder/coursechat/internal/tasks"
	"github.com/urfave/cli/v3"
)

// CoursesList prints every local course with its progress.
func (r *Runner) CoursesList(ctx context.Context, cmd *cli.Command) error {
	a, err := r.start(ctx, appOpts{})
	if err != nil {
		return err
	}
	defer a.close()

	courses := a.store.Courses()

	if cmd.Bool("json") {
		summaries := make([]formatter.CourseMetadata, 0, len(courses))
		for _, c := range courses {
			summaries = append(summaries, formatter.Metadata(c))
		}
		return r.writeJSON(summaries, true)
	}

	if len(courses) == 0 {
		return r.writePlain("No courses yet. Ask for one with: coursechat send \"teach me ...\"\n")
	}

	r.writePlain("%-6s %-40s %s\n", "ID", "TITLE", "PROGRESS")
	for _, c := range courses {
		done, total := c.Progress()
		r.writePlain("%-6d %-40s %d/%d\n", c.ID, shared.Truncate(c.Title, 40), done, total)
	}
	return nil
}

// CoursesShow renders one course in the requested format.
func (r *Runner) CoursesShow(ctx context.Context, cmd *cli.Command) error {
	id, err := parseID(cmd.StringArg("course"), "course")
	if err != nil {
		return err
	}
	format, err := formatter.ParseFormat(cmd.String("format"))
	if err != nil {
		return err
	}

	a, err := r.start(ctx, appOpts{})
	if err != nil {
		return err
	}
	defer a.close()

	course, ok := a.store.Course(id)
	if !ok {
		return fmt.Errorf("course %d %w", id, shared.ErrNotFound)
	}

	var out []byte
	switch format {
	case formatter.JSON:
		out, err = formatter.CourseToJSON(course)
	case formatter.CSV:
		out, err = formatter.CourseToCSV(course)
	case formatter.Markdown:
		out = formatter.CourseToMarkdown(course)
	default:
		out = formatter.CourseToText(course)
	}
	if err != nil {
		return err
	}

	if _, err := r.output.Write(out); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

// CoursesStudy fetches and prints the study content for a chapter.
func (r *Runner) CoursesStudy(ctx context.Context, cmd *cli.Command) error {
	courseID, itemID, err := parseChapter(cmd)
	if err != nil {
		return err
	}

	a, err := r.start(ctx, appOpts{})
	if err != nil {
		return err
	}
	defer a.close()

	course, ok := a.store.Course(courseID)
	if !ok {
		return fmt.Errorf("course %d %w", courseID, shared.ErrNotFound)
	}
	item := course.Item(itemID)
	if item == nil {
		return fmt.Errorf("chapter %d of course %d %w", itemID+1, courseID, shared.ErrNotFound)
	}

	content, err := a.session.StartStudy(ctx, courseID, itemID).Wait(ctx)
	if err != nil {
		return err
	}

	r.writePlainHeader(fmt.Sprintf("%s: %s", course.Title, item.SubTitle))
	r.writePlain("%s\n", strings.TrimSpace(content))
	r.writePlainln("Mark it done with: coursechat courses complete %d %d", courseID, itemID+1)
	return nil
}

// CoursesComplete marks an in-progress chapter as completed.
func (r *Runner) CoursesComplete(ctx context.Context, cmd *cli.Command) error {
	courseID, itemID, err := parseChapter(cmd)
	if err != nil {
		return err
	}

	a, err := r.start(ctx, appOpts{})
	if err != nil {
		return err
	}
	defer a.close()

	if err := a.store.Complete(courseID, itemID); err != nil {
		return err
	}

	course, _ := a.store.Course(courseID)
	done, total := course.Progress()
	return r.writePlain("✓ Chapter %d completed (%d/%d)\n", itemID+1, done, total)
}

// CoursesDelete removes a course locally and notifies the backend.
func (r *Runner) CoursesDelete(ctx context.Context, cmd *cli.Command) error {
	id, err := parseID(cmd.StringArg("course"), "course")
	if err != nil {
		return err
	}

	a, err := r.start(ctx, appOpts{})
	if err != nil {
		return err
	}
	defer a.close()

	if err := a.store.Delete(ctx, id); err != nil {
		return err
	}
	return r.writePlain("✓ Course %d deleted\n", id)
}

// CoursesSync replaces the local course set with the backend course list.
func (r *Runner) CoursesSync(ctx context.Context, cmd *cli.Command) error {
	a, err := r.start(ctx, appOpts{})
	if err != nil {
		return err
	}
	defer a.close()

	if err := a.store.Sync(ctx); err != nil {
		return err
	}
	if err := a.store.Flush(ctx); err != nil {
		return err
	}
	return r.writePlain("✓ Synced %d courses\n", a.store.Len())
}

// CoursesExport writes courses to disk with progress output.
func (r *Runner) CoursesExport(ctx context.Context, cmd *cli.Command) error {
	format, err := formatter.ParseFormat(cmd.String("format"))
	if err != nil {
		return err
	}

	ids := []int{}
	for _, raw := range cmd.StringSlice("id") {
		id, err := parseID(raw, "course")
		if err != nil {
			return err
		}
		ids = append(ids, id)
	}

	a, err := r.start(ctx, appOpts{})
	if err != nil {
		return err
	}
	defer a.close()

	opts := tasks.BulkExportOpts{
		Format:     format,
		OutputDir:  cmd.String("output"),
		CourseIDs:  ids,
		NumWorkers: int(cmd.Int("workers")),
		RateLimit:  cmd.Float("rate"),
	}
	if cmd.Bool("refresh") {
		opts.Refresh = a.store
	}

	progress := make(chan tasks.ProgressUpdate, 32)
	printed := make(chan struct{})
	go func() {
		defer close(printed)
		for update := range progress {
			r.printProgress(update)
		}
	}()

	result, err := tasks.NewExporter(a.store, r.logger).BulkExport(ctx, progress, opts)
	close(progress)
	<-printed

	if result != nil {
		r.writeExportSummary(result)
	}
	return err
}

func (r *Runner) printProgress(update tasks.ProgressUpdate) {
	if update.Phase == tasks.ExportCourse && update.Total > 0 {
		r.writePlain("[%d/%d] %s\n", update.Step, update.Total, update.Message)
		return
	}
	r.writePlain("%s\n", update.Message)
}

func (r *Runner) writeExportSummary(result *tasks.BulkExportResult) {
	r.writePlainln("Export Summary")
	r.writePlain("Total:      %d\n", result.Total)
	r.writePlain("Succeeded:  %d\n", result.Succeeded)
	r.writePlain("Failed:     %d\n", result.Failed)
	r.writePlain("Directory:  %s\n", result.OutputDirectory)
	if result.ManifestPath != "" {
		r.writePlain("Manifest:   %s\n", result.ManifestPath)
	}

	for _, res := range result.Results {
		if !res.Success() {
			r.writePlain("  ✗ %d %s: %v\n", res.CourseID, res.Title, res.Error)
		}
	}
}

// parseChapter reads the course id and the 1-based chapter number arguments and returns the outline item id.
func parseChapter(cmd *cli.Command) (courseID, itemID int, err error) {
	if courseID, err = parseID(cmd.StringArg("course"), "course"); err != nil {
		return 0, 0, err
	}
	chapter, err := parseID(cmd.StringArg("chapter"), "chapter")
	if err != nil {
		return 0, 0, err
	}
	if chapter < 1 {
		return 0, 0, fmt.Errorf("%w: chapters are numbered from 1", shared.ErrInvalidArgument)
	}
	return courseID, chapter - 1, nil
}

func parseID(raw, name string) (int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, fmt.Errorf("%w: %s is required", shared.ErrMissingArgument, name)
	}
	id, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: %s %q is not a number", shared.ErrInvalidArgument, name, raw)
	}
	return id, nil
}
