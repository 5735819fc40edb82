// Package ui implements the interactive chat interface using bubbletea's Elm architecture.
//
// The TUI has four views:
//  1. [ChatView] : Conversation transcript, input line, and the confirmation / study prompt dialogs
//  2. [CourseListView] : Browse, open, and delete courses
//  3. [CourseDetailView] : Chapters with their status; study or complete a chapter
//  4. [ContentView] : Scrollable study content for one chapter
//
// The (view) [Model] implements bubbletea/Elm's standard Init/Update/View pattern.
// Session events arrive through an [Inbox], which the session's notify hook fills without blocking the event loop.
// User actions go back to the session as futures that are awaited inside commands, never in Update.
//
// Keyboard navigation uses enter, esc, tab, y/n, c and d with contextual help displayed via charmbracelet/bubbles/help.
package ui
