// Package repositories implements SQLite persistence for the installation identity and the chat transcript.
//
// Key Implementations:
//   - [InstallationRepository] : the single row holding the installation's user id
//   - [TranscriptRepository] : archived chat messages grouped by session
//   - [TranscriptWriter] : queued background writer that archives messages without blocking the caller
//
// Sequence numbers provide stable ordering of transcript rows independent of UUIDs and creation timestamps.
// The [NextSequence] function atomically increments per-table sequence counters in dedicated sequence tables.
package repositories
