// Package generate drives the runtime's lazy generation sequence and decides
// when it has logically finished.
//
// End-of-document detection is evidence-based because chunk schemas vary
// across runtime versions: a chunk may carry a finish reason, a single token
// id, a bulk token-id collection, any combination, or none. The Detector
// evaluates whatever is present in fixed precedence order against an end-id
// set resolved from several tokenizer sources (declared EOS, other end-of-X
// specials, known conversational end markers, and the raw EOS id attribute).
//
// The Streamer consumes chunks one at a time (the only blocking point in the
// whole driver), writing decoded text incrementally and emitting the response
// terminator exactly once, whether the sequence reports an end token or just
// runs out.
package generate
