package tasks

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/desertthunder/coursechat/internal/formatter"
	"github.com/desertthunder/coursechat/internal/models"
	"github.com/desertthunder/coursechat/internal/shared"
	"golang.org/x/time/rate"
)

const (
	defaultWorkers = 4
	maxWorkers     = 10
	manifestName   = "export_manifest.json"
)

// BulkExportOpts contains configuration for bulk course exports.
type BulkExportOpts struct {
	Format     formatter.Format // Export format: json, csv, markdown, txt
	OutputDir  string           // Base output directory (default: courses_export_{epoch})
	CourseIDs  []int            // Courses to export; empty exports every course
	NumWorkers int              // Concurrent workers (default: 4)
	RateLimit  float64          // Courses started per second; zero means unlimited
	Refresh    Syncer           // Optional backend refresh before selecting courses
}

// CourseExportResult is the outcome of exporting one course.
type CourseExportResult struct {
	CourseID int
	Title    string
	Files    []string
	Error    error
}

// Success reports whether the course was written.
func (r CourseExportResult) Success() bool {
	return r.Error == nil
}

// BulkExportResult summarizes a bulk export.
type BulkExportResult struct {
	Total           int
	Succeeded       int
	Failed          int
	OutputDirectory string
	ManifestPath    string
	Results         []CourseExportResult // Ordered by course id
}

// BulkExport exports courses concurrently and writes a manifest summarizing the results.
//
// Requested ids that are not in the source are reported as failures. A failed refresh is logged and the
// export continues from local data.
func (e *Exporter) BulkExport(ctx context.Context, prog chan<- ProgressUpdate, opts BulkExportOpts) (*BulkExportResult, error) {
	if opts.Format == "" {
		opts.Format = formatter.JSON
	}
	if _, err := formatter.ParseFormat(string(opts.Format)); err != nil {
		return nil, err
	}
	if opts.OutputDir == "" {
		opts.OutputDir = fmt.Sprintf("courses_export_%d", time.Now().Unix())
	}
	if opts.NumWorkers <= 0 {
		opts.NumWorkers = defaultWorkers
	}
	if opts.NumWorkers > maxWorkers {
		opts.NumWorkers = maxWorkers
	}

	if opts.Refresh != nil {
		e.sendProgress(prog, syncingUpdate())
		if err := opts.Refresh.Sync(ctx); err != nil {
			e.logger.Warn("refresh failed, exporting local courses", "error", err)
		}
	}

	jobs, missing := e.selectCourses(opts.CourseIDs)
	total := len(jobs) + len(missing)
	e.sendProgress(prog, selectedUpdate(total))

	if err := os.MkdirAll(opts.OutputDir, 0755); err != nil {
		return nil, fmt.Errorf("%w: failed to create output directory: %v", shared.ErrPersistenceFailed, err)
	}

	limit := rate.Inf
	if opts.RateLimit > 0 {
		limit = rate.Limit(opts.RateLimit)
	}
	limiter := rate.NewLimiter(limit, 1)

	queue := make(chan models.Course)
	results := make(chan CourseExportResult, total)

	var wg sync.WaitGroup
	for range opts.NumWorkers {
		wg.Add(1)
		go e.exportWorker(&wg, queue, results, opts)
	}

	go func() {
		defer close(queue)
		for _, c := range jobs {
			if err := limiter.Wait(ctx); err != nil {
				results <- CourseExportResult{CourseID: c.ID, Title: c.Title, Error: err}
				continue
			}
			select {
			case queue <- c:
			case <-ctx.Done():
				results <- CourseExportResult{CourseID: c.ID, Title: c.Title, Error: ctx.Err()}
			}
		}
	}()

	go func() {
		wg.Wait()
		close(results)
	}()

	result := &BulkExportResult{
		Total:           total,
		OutputDirectory: opts.OutputDir,
		Results:         make([]CourseExportResult, 0, total),
	}

	completed := 0
	record := func(res CourseExportResult) {
		completed++
		result.Results = append(result.Results, res)
		if res.Success() {
			result.Succeeded++
			e.sendProgress(prog, exportCompletedUpdate(completed, total, res))
		} else {
			result.Failed++
			e.logger.Warn("course export failed", "course", res.CourseID, "error", res.Error)
			e.sendProgress(prog, exportFailedUpdate(completed, total, res))
		}
	}

	for _, id := range missing {
		record(CourseExportResult{
			CourseID: id,
			Title:    fmt.Sprintf("Unknown (%d)", id),
			Error:    fmt.Errorf("course %d: %w", id, shared.ErrNotFound),
		})
	}
	for res := range results {
		record(res)
	}

	sort.Slice(result.Results, func(i, j int) bool { return result.Results[i].CourseID < result.Results[j].CourseID })

	manifestPath := filepath.Join(opts.OutputDir, manifestName)
	e.sendProgress(prog, manifestUpdate(manifestPath))
	if err := formatter.WriteManifest(result.manifest(opts.Format), manifestPath); err != nil {
		return result, fmt.Errorf("export completed but failed to write manifest: %w", err)
	}
	result.ManifestPath = manifestPath

	if err := ctx.Err(); err != nil {
		return result, err
	}
	return result, nil
}

// selectCourses returns the requested courses in id order and the ids that are not known.
func (e *Exporter) selectCourses(ids []int) ([]models.Course, []int) {
	all := e.source.Courses()
	if len(ids) == 0 {
		return all, nil
	}

	byID := make(map[int]models.Course, len(all))
	for _, c := range all {
		byID[c.ID] = c
	}

	var (
		found   []models.Course
		missing []int
		seen    = make(map[int]bool, len(ids))
	)
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true
		if c, ok := byID[id]; ok {
			found = append(found, c)
		} else {
			missing = append(missing, id)
		}
	}
	sort.Slice(found, func(i, j int) bool { return found[i].ID < found[j].ID })
	return found, missing
}

// exportWorker exports courses from the queue until it is closed.
func (e *Exporter) exportWorker(wg *sync.WaitGroup, queue <-chan models.Course, results chan<- CourseExportResult, opts BulkExportOpts) {
	defer wg.Done()

	for c := range queue {
		results <- e.exportCourse(c, opts)
	}
}

// exportCourse writes a single course in the requested format.
func (e *Exporter) exportCourse(c models.Course, opts BulkExportOpts) CourseExportResult {
	res := CourseExportResult{CourseID: c.ID, Title: c.Title, Files: []string{}}
	base := filepath.Join(opts.OutputDir, formatter.BaseName(c))

	switch opts.Format {
	case formatter.CSV:
		out, err := formatter.WriteCSVExport(c, base)
		if err != nil {
			res.Error = fmt.Errorf("CSV export failed: %w", err)
			return res
		}
		res.Files = []string{out.ChaptersFile, out.MetadataFile}

	case formatter.Markdown:
		out, err := formatter.WriteMarkdownExport(c, base)
		if err != nil {
			res.Error = fmt.Errorf("markdown export failed: %w", err)
			return res
		}
		res.Files = out.Files

	case formatter.Text:
		path, err := formatter.WriteTextExport(c, base+".txt")
		if err != nil {
			res.Error = fmt.Errorf("text export failed: %w", err)
			return res
		}
		res.Files = []string{path}

	default:
		path, err := formatter.WriteJSONExport(c, base+".json")
		if err != nil {
			res.Error = err
			return res
		}
		res.Files = []string{path}
	}
	return res
}

func (r *BulkExportResult) manifest(format formatter.Format) formatter.Manifest {
	m := formatter.Manifest{
		Format:          format,
		OutputDirectory: r.OutputDirectory,
		CreatedAt:       time.Now().UTC(),
		Total:           r.Total,
		Succeeded:       r.Succeeded,
		Failed:          r.Failed,
		Courses:         make([]formatter.ManifestEntry, 0, len(r.Results)),
	}
	for _, res := range r.Results {
		entry := formatter.ManifestEntry{CourseID: res.CourseID, Title: res.Title, Success: res.Success(), Files: res.Files}
		if res.Error != nil {
			entry.Error = res.Error.Error()
		}
		m.Courses = append(m.Courses, entry)
	}
	return m
}
