package stream

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"strings"

	"github.com/rhuss/modelfarm/pkg/api"
	"github.com/rhuss/modelfarm/pkg/debug"
)

// maxLineSize bounds a single SSE line.
const maxLineSize = 1 << 20

// NewJSONDecoder reads a body holding one or more JSON values written back
// to back (optionally separated by whitespace or newlines). A body with a
// single JSON document yields exactly one element.
func NewJSONDecoder(body io.ReadCloser) *Stream[json.RawMessage] {
	dec := json.NewDecoder(body)
	return New(func() (json.RawMessage, error) {
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			if errors.Is(err, io.EOF) {
				return nil, io.EOF
			}
			if errors.Is(err, io.ErrUnexpectedEOF) {
				return nil, api.NewDecodeError("stream ended inside a JSON object")
			}
			var syntaxErr *json.SyntaxError
			if errors.As(err, &syntaxErr) {
				return nil, api.NewDecodeError("malformed JSON chunk: " + err.Error())
			}
			return nil, api.NewNetworkError("stream read error: " + err.Error())
		}
		debug.Trace("streaming", "json chunk", "data", string(raw))
		return raw, nil
	}, body)
}

// NewSSEDecoder reads Server-Sent Events of the form
//
//	data: {"id":"...","choices":[...]}
//
//	data: [DONE]
//
// Lines that are not data lines (blank lines, comments starting with ":",
// event/id fields) are ignored. The [DONE] sentinel ends the stream.
func NewSSEDecoder(body io.ReadCloser) *Stream[json.RawMessage] {
	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)

	return New(func() (json.RawMessage, error) {
		for scanner.Scan() {
			line := scanner.Text()
			payload, ok := strings.CutPrefix(line, "data:")
			if !ok {
				continue
			}
			payload = strings.TrimSpace(payload)
			if payload == "" {
				continue
			}
			if payload == "[DONE]" {
				return nil, io.EOF
			}
			if !json.Valid([]byte(payload)) {
				return nil, api.NewDecodeError("malformed SSE chunk: " + debug.Truncate(payload, 200))
			}
			debug.Trace("streaming", "sse chunk", "data", payload)
			return bytes.Clone([]byte(payload)), nil
		}
		if err := scanner.Err(); err != nil {
			return nil, api.NewNetworkError("SSE stream read error: " + err.Error())
		}
		return nil, io.EOF
	}, body)
}
