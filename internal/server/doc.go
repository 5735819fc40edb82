// Package server contains HTTP plumbing and an in-memory development backend.
//
// # Router Infrastructure
//
// The [Router] interface defines HTTP routing with middleware support.
//
// [Middleware] wraps handlers in reverse order (last added executes first), following the standard Go pattern.
// chi's RequestID and Recoverer middleware plug straight into the stack next to [RequestLogger] and [Delay].
//
// The [BasicRouter] implementation uses [http.ServeMux] internally with method filtering.
//
// # Development Backend
//
// [Backend] implements the six assistant endpoints in memory, keyed by user id:
//
//   - /dialogue asks for confirmation with a fresh ssid; text starting with "add " skips the question
//   - /confirm turns a pending ssid into a generated course
//   - /check delivers one generated course per call
//   - /courselist, /study and /delete operate on delivered courses
//
// Failures are answered with a non-2xx status and a {"error": "..."} body.
//
// [Server] serves a backend until its context is cancelled. `coursechat devserver` runs one for manual sessions
// and tests use it through httptest.
//
// # Handler Interface
//
// Custom handlers implement the [Handler] interface, which wraps the stdlib handler interface and adds routes,
// allowing handlers to register multiple routes to encapsulate route definitions within the implementation.
package server
