// Package services implements the [Transport] the session core uses to talk to the assistant backend.
//
// # Transport
//
// The core depends only on [Transport]: a JSON POST to one of the backend [Endpoint]s that returns the
// decoded response object. [Client] is the HTTP implementation.
//
// # Client
//
// Every request waits on a [rate.Limiter] before it is sent, so a fast poll interval or a user hammering
// enter cannot flood the backend. When a token is configured the underlying [http.Client] is wrapped by
// [oauth2.NewClient] with a static token source and every request carries an Authorization header.
//
// # Error Handling
//
// Client uses typed errors from shared package:
//   - [shared.ErrRequestFailed] : network failure or non-2xx status
//   - [shared.ErrMalformedResponse] : body is not a JSON object
//
// # Response Fields
//
// The backend is loose about JSON types (ids arrive as numbers or numeric strings), so fields are read through
// [String], [Bool] and [Int] rather than decoded into structs.
package services
