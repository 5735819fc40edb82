// Package tasks runs long course operations with real-time progress reporting.
//
// # Bulk Export
//
// [Exporter.BulkExport] writes courses to disk with a worker pool:
//
//   - optionally refreshes the course store from /courselist first ([Syncer])
//   - selects the requested courses, reporting unknown ids as failures
//   - paces course dispatch with a token bucket when a rate is set
//   - writes each course in the chosen [formatter.Format]
//   - writes export_manifest.json summarizing every result
//
// # Progress Reporting
//
// All operations use non-blocking channels for progress updates.
//
// The [ProgressUpdate] struct contains phase, step counters, messages, and optional data for advanced UI rendering.
// Updates use select with default to prevent blocking, so a slow or absent reader never stalls an export.
package tasks
