// Package chat implements the legacy chat facade of the modelfarm service.
//
// Requests are sent to /v1beta/chat and /v1beta/chat_streaming and the
// provider envelope
//
//	{"responses":[{"candidates":[{"message":{"content":"...","author":"..."}}]}]}
//
// is flattened into ChatResult / MultipleChoicesResult values.
//
// Two error channels are kept apart. Transport failures are returned in the
// Result error slot as *api.RequestError. A response the client does not
// understand is returned as the Go error of the call (or reported by the
// stream's Err) and matches api.ErrUnexpectedResponse.
package chat
