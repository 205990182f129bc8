package generate

import (
	"testing"

	"github.com/randalmurphal/lmdriver/inference"
)

func intp(n int) *int { return &n }

func TestDetector_IsEOD(t *testing.T) {
	tok := inference.NewMockTokenizer() // EOS </s> = 2
	d := NewDetector(tok)

	tests := []struct {
		name  string
		chunk inference.GenerationChunk
		want  bool
	}{
		{
			name:  "finish reason stop",
			chunk: inference.GenerationChunk{Text: "", FinishReason: "stop"},
			want:  true,
		},
		{
			name:  "finish reason stop wins over ordinary token",
			chunk: inference.GenerationChunk{FinishReason: "stop", Token: intp(42)},
			want:  true,
		},
		{
			name:  "eos token id",
			chunk: inference.GenerationChunk{Token: intp(2)},
			want:  true,
		},
		{
			name:  "end token with non-stop finish reason",
			chunk: inference.GenerationChunk{FinishReason: "length", Token: intp(2)},
			want:  true,
		},
		{
			name:  "ordinary token",
			chunk: inference.GenerationChunk{Text: "hello", Token: intp(42)},
			want:  false,
		},
		{
			name: "single token decides, collection not consulted",
			// Token present and not an end id: the id collection must not
			// rescue the verdict.
			chunk: inference.GenerationChunk{Token: intp(42), TokenIDs: []int{2}},
			want:  false,
		},
		{
			name:  "end id inside collection",
			chunk: inference.GenerationChunk{TokenIDs: []int{7, 2, 9}},
			want:  true,
		},
		{
			name: "non-stop finish reason gates the collection",
			// The collection is weakest evidence: a present finish reason,
			// even a non-stop one, takes its place.
			chunk: inference.GenerationChunk{FinishReason: "length", TokenIDs: []int{2}},
			want:  false,
		},
		{
			name:  "collection without end id",
			chunk: inference.GenerationChunk{TokenIDs: []int{7, 8, 9}},
			want:  false,
		},
		{
			name:  "no evidence at all",
			chunk: inference.GenerationChunk{Text: "hello"},
			want:  false,
		},
		{
			name:  "finish reason length alone",
			chunk: inference.GenerationChunk{FinishReason: "length"},
			want:  false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := d.IsEOD(tt.chunk); got != tt.want {
				t.Errorf("IsEOD(%+v) = %v, want %v", tt.chunk, got, tt.want)
			}
		})
	}
}

func TestEndTokenIDs_Sources(t *testing.T) {
	tok := inference.NewMockTokenizer()
	tok.Specials["eoi_token"] = "<eoi>"
	tok.Registered["<eoi>"] = 100
	tok.Registered["<end_of_turn>"] = 107

	ids := EndTokenIDs(tok)

	for _, id := range []int{2, 100, 107} {
		if _, ok := ids[id]; !ok {
			t.Errorf("end-id set missing %d, got %v", id, ids)
		}
	}
	if len(ids) != 3 {
		t.Errorf("end-id set = %v, want exactly {2, 100, 107}", ids)
	}
}

func TestEndTokenIDs_DeclaredSpellingNotRegistered(t *testing.T) {
	// eos_token declared as a spelling that is not an added token: the
	// spelling contributes nothing, but the EOS id attribute still does.
	tok := inference.NewMockTokenizer()
	tok.Specials = map[string]string{"eos_token": "<|endoftext|>"}

	ids := EndTokenIDs(tok)

	if _, ok := ids[2]; !ok {
		t.Errorf("EOS id attribute missing from %v", ids)
	}
	if len(ids) != 1 {
		t.Errorf("end-id set = %v, want exactly {2}", ids)
	}
}

func TestEndTokenIDs_NoEOS(t *testing.T) {
	tok := inference.NewMockTokenizer()
	tok.EOSRef = nil
	tok.Specials = nil
	tok.Registered = map[string]int{}

	if ids := EndTokenIDs(tok); len(ids) != 0 {
		t.Errorf("end-id set = %v, want empty", ids)
	}
}

func TestIsEOD_Convenience(t *testing.T) {
	tok := inference.NewMockTokenizer()
	if !IsEOD(inference.GenerationChunk{Token: intp(2)}, tok) {
		t.Error("IsEOD = false for EOS token")
	}
}
