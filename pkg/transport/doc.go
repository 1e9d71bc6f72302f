// Package transport implements the request helper shared by every modelfarm
// facade.
//
// A [Client] POSTs JSON bodies to paths under a base URL and returns either
// the raw JSON response ([Client.MakeSimpleRequest]) or a lazy sequence of
// raw JSON objects decoded from a chunked or SSE body
// ([Client.MakeStreamingRequest], or [Client.MakeChunkedRequest] when the
// body is complete and the request timeout applies). Both report failures as a
// result.Result carrying an *api.RequestError: connection problems, non-2xx
// statuses and undecodable bodies. The client never retries.
//
// Every request carries Content-Type, User-Agent, an X-Request-ID and, when
// the configured auth.TokenSource yields one, a bearer token. Request
// metrics are recorded through observability.InstrumentedTransport.
package transport
