// Package session implements the synchronizer at the core of the chat client.
//
// # Synchronizer
//
// [Synchronizer] sends user messages to the backend, interprets the replies, drives the confirmation
// workflow, and polls the backend for content it pushes asynchronously (assistant messages and generated
// courses). Everything it learns is reconciled into the [Conversation] and the course store.
//
// # Threading
//
// Conversation state, the confirmation workflow and course store mutations are only touched from closures
// running on a [loop.Loop]. Network calls run on their own goroutines and hand their results back to the
// loop, so user actions and poll ticks never race. Operations return a [loop.Future] that resolves once the
// result has been applied.
//
// # Lifecycle
//
// A synchronizer starts in [StateInitializing]. [Synchronizer.Init] loads the course store and moves it to
// [StateReady]; polling cannot start before that.
//
// # Events
//
// Observers (the TUI, the one-shot commands) receive an [Event] through the Notify callback for every
// appended message, confirmation prompt, study prompt and alert. Notify is called on the loop and must not
// block.
//
// # Errors
//
// Failures of user-initiated operations resolve their future with an error wrapping
// [shared.ErrRequestFailed], [shared.ErrMalformedResponse] or [shared.ErrOperationRejected] and are also
// reported as an [EventAlert]. Poll failures are only logged; the next tick retries.
package session
