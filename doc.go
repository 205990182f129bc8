// Package lmdriver is a stdio driver for locally loaded language models.
//
// The driver binary (cmd/lmdriver) sits between a caller that speaks a
// NUL-terminated JSON request protocol and an inference runtime that owns the
// model. Each subpackage can also be used independently:
//
//   - inference: runtime/tokenizer interfaces, generation chunks, options
//   - capability: special-token and chat-template probing
//   - prompt: chat-template and fallback prompt formatting, primer splicing
//   - generate: end-of-document detection and the streaming loop
//   - driver: request framing, dispatch, and configuration
//   - transcript: JSONL request/outcome recording and tailing
//   - tokens: character-ratio token estimation for context advisories
//
// # Quick Start
//
// Run against a registered runtime:
//
//	lmdriver -runtime mock "Qwen/Qwen3-0.6B"
//
// Then write requests to stdin:
//
//	{"method": "capabilities"}
//	{"method": "chat", "messages": [{"role": "user", "content": "Hi"}]}
//
// Each response is terminated by a single NUL byte. Generated text streams
// incrementally; JSON responses arrive whole.
//
// # Design Philosophy
//
//   - The runtime is opaque: the driver never tokenizes or samples.
//   - Capabilities are discovered experimentally, by probing, because the
//     caller cannot inspect the model and templates document nothing.
//   - Failures degrade, never cascade: a failed probe omits one entry, a
//     failed request emits one empty response, and the loop keeps reading.
package lmdriver
