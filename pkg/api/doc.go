// Package api defines the error types shared by the modelfarm facades.
//
// Two error channels are kept apart:
//   - [RequestError]: the transport could not complete the request or the
//     service answered with a non-2xx status. The legacy facades return it
//     inside a result.Result; the OpenAI-compatible facade returns it as a
//     plain error.
//   - [ShapeError]: the service answered successfully but the payload does
//     not have the shape the client understands. Every facade returns it as
//     its Go error value, never inside a result.Result.
//
// The package performs no I/O.
package api
