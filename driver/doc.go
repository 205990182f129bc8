// Package driver implements the stdio protocol loop that exposes a loaded
// model as a request/response service.
//
// # Framing
//
// The driver reads UTF-8 text from its input, accumulating lines until the
// buffer parses as one complete JSON value, so pretty-printed requests work.
// Every response ends with a single NUL byte and nothing else delimits
// requests or responses. End of input with no parseable buffer ends the loop
// cleanly. Diagnostics go to slog (stderr), never to the protocol stream.
//
// # Methods
//
//	capabilities  -> JSON capability report
//	format_test   -> JSON {formatted_prompt, template_applied, ...}
//	chat          -> raw streamed text, NUL-terminated
//	completion    -> raw streamed text, NUL-terminated
//
// An unknown method, a missing required field, or any dispatch failure
// degrades to a bare newline+NUL response; the loop then reads the next
// request. Requests are handled strictly sequentially; one request streams
// to completion before the next is read.
package driver
