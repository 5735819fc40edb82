// Package courses implements the local course store.
//
// # Store
//
// [Store] holds every course in memory and is the source of truth for the running client. Each mutation
// (upsert, delete, item update) schedules a full re-serialization of the course set; the write happens on a
// background goroutine so callers never wait on the disk. Writes that pile up while one is in progress are
// coalesced into a single write of the newest snapshot. [Store.Flush] waits for the writes scheduled so far.
//
// # Durable Storage
//
// [FileStorage] keeps the course set as one JSON document. Writes go to a temporary file in the same
// directory that is synced and renamed over the old document, so a crash mid-write leaves the previous
// document intact.
//
// # Backend Fallback
//
// When no local document exists (or it cannot be read) [Store.Load] fetches the course list from the
// backend's /courselist endpoint and persists it. If both fail the store starts empty.
package courses
