package generate

import "github.com/randalmurphal/lmdriver/inference"

// FinishReasonStop is the only finish-reason value that signals completion.
// Anything else ("length", "") is not an end signal by itself; token
// evidence is still consulted.
const FinishReasonStop = "stop"

// endRelatedSpecials are declared special-token names, besides eos_token,
// whose registered ids also mean "generation finished" (eg end-of-image).
var endRelatedSpecials = []string{"eoi_token"}

// conversationEndMarkers are literal spellings some models register as
// added tokens to close a turn without declaring them as specials.
var conversationEndMarkers = []string{"<end_of_turn>"}

// EndTokenIDs resolves the candidate end-of-generation id set for a
// tokenizer. Sources, in order: the declared eos_token spelling when it is a
// registered added token, other declared end-of-X specials resolved the same
// way, known conversational end markers when registered, and finally the
// tokenizer's EOS id attribute unconditionally. Duplicates collapse in the
// set.
func EndTokenIDs(tok inference.Tokenizer) map[int]struct{} {
	ids := make(map[int]struct{})
	added := tok.AddedTokens()
	specials := tok.DeclaredSpecials()

	addSpelling := func(spelling string) {
		if id, ok := added[spelling]; ok {
			ids[id] = struct{}{}
		}
	}

	if spelling, ok := specials["eos_token"]; ok {
		addSpelling(spelling)
	}
	for _, name := range endRelatedSpecials {
		if spelling, ok := specials[name]; ok {
			addSpelling(spelling)
		}
	}
	for _, spelling := range conversationEndMarkers {
		addSpelling(spelling)
	}
	if ref, ok := tok.EOS(); ok {
		ids[ref.ID] = struct{}{}
	}

	return ids
}

// Detector answers whether a generation chunk marks the end of a document.
// It resolves the end-id set once; construct one per request or share one per
// tokenizer.
type Detector struct {
	endIDs map[int]struct{}
}

// NewDetector builds a detector for the tokenizer.
func NewDetector(tok inference.Tokenizer) *Detector {
	return &Detector{endIDs: EndTokenIDs(tok)}
}

// IsEOD evaluates the chunk's evidence in fixed precedence order:
//
//  1. finish_reason == "stop" wins outright.
//  2. A single token id present: membership in the end-id set decides,
//     even when finish_reason carries some other value.
//  3. Neither a finish reason nor a single token id present but a token-id
//     collection is: any member of the collection in the end-id set decides.
//
// A non-stop finish reason without a single token id is never an end marker;
// the collection is only consulted when both stronger fields are absent. A
// chunk with no matching evidence is not an end marker. Absent fields are
// simply skipped; the detector never fails.
func (d *Detector) IsEOD(chunk inference.GenerationChunk) bool {
	if chunk.FinishReason == FinishReasonStop {
		return true
	}

	if chunk.Token != nil {
		_, ok := d.endIDs[*chunk.Token]
		return ok
	}

	if chunk.FinishReason != "" {
		return false
	}

	for _, id := range chunk.TokenIDs {
		if _, ok := d.endIDs[id]; ok {
			return true
		}
	}
	return false
}

// IsEOD is a convenience wrapper resolving the end-id set per call.
func IsEOD(chunk inference.GenerationChunk, tok inference.Tokenizer) bool {
	return NewDetector(tok).IsEOD(chunk)
}
