// Package inference defines the interfaces the driver uses to talk to an
// external inference runtime, plus the shared types that cross that boundary.
//
// The runtime owns everything numeric: model weights, tokenization, sampling,
// KV-cache. The driver only ever sees it through three small surfaces:
//
//   - Runtime.Load acquires the model and tokenizer handles once at startup.
//   - Tokenizer exposes the vocabulary and declared special tokens; a tokenizer
//     that can render chat templates additionally implements ChatRenderer,
//     discovered by type assertion.
//   - Runtime.Generate returns a ChunkStream, a lazy finite sequence of
//     generation chunks consumed one at a time.
//
// Runtimes register themselves by name (see Register); the driver binary picks
// one via configuration. MockRuntime and MockTokenizer are exported test
// doubles usable both in package tests and as a smoke backend.
package inference
