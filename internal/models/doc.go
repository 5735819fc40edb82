// Package models defines the domain entities shared by the coursechat client.
//
// The package contains two categories of types:
//
// 1. Conversation types: values exchanged with the assistant
//   - [Message] : one chat line, authored by the user or the assistant
//   - [ConfirmationRequest] : a server request for explicit user approval
//
// 2. Course types: locally tracked study material
//   - [Course] : a generated course with an ordered outline
//   - [OutlineItem] : one chapter with its own [Status] and fetched detail content
//
// Courses round-trip through JSON with the same field names the backend and the
// persisted courses.json document use.
package models
