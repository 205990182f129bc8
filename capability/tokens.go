package capability

import "github.com/randalmurphal/lmdriver/inference"

// Candidate catalogs. Every spelling here is speculative: a candidate is
// reported only when the tokenizer resolves it to a non-unknown id, because
// tokenizers map absent spellings to the unknown sentinel and reporting that
// id as a real token would be a false positive.

type pairCandidate struct {
	name  string
	start string
	end   string
}

type singleCandidate struct {
	name string
	text string
}

// pairCandidates are start/end token pairs, kept only when both ends resolve.
var pairCandidates = []pairCandidate{
	// ChatML role markers
	{"system", "<|system|>", "<|/system|>"},
	{"user", "<|user|>", "<|/user|>"},
	{"assistant", "<|assistant|>", "<|/assistant|>"},

	// Formatting and structure
	{"code", "<|code_start|>", "<|code_end|>"},
	{"python", "<|python|>", "<|/python|>"},
	{"javascript", "<|javascript|>", "<|/javascript|>"},
	{"bash", "<|bash|>", "<|/bash|>"},
	{"quote", "<|quote|>", "<|/quote|>"},
	{"ref", "<|ref|>", "<|/ref|>"},
	{"citation", "<|citation|>", "<|/citation|>"},
	{"table", "<|table|>", "<|/table|>"},
	{"heading", "<|heading|>", "<|/heading|>"},

	// Media
	{"image", "<|image|>", "<|/image|>"},
	{"audio", "<|audio|>", "<|/audio|>"},
	{"video", "<|video|>", "<|/video|>"},

	// Tools and control
	{"tool_call", "<|tool_call|>", "<|/tool_call|>"},
	{"function", "<|function|>", "<|/function|>"},
	{"api", "<|api|>", "<|/api|>"},
	{"search", "<|search|>", "<|/search|>"},
	{"knowledge", "<|knowledge|>", "<|/knowledge|>"},
	{"context", "<|context|>", "<|/context|>"},

	// Reasoning
	{"thinking", "<|thinking|>", "</thinking>"},
	{"reasoning", "<|reasoning|>", "<|/reasoning|>"},
	{"scratchpad", "<|scratchpad|>", "<|/scratchpad|>"},
	{"analysis", "<|analysis|>", "<|/analysis|>"},
	{"summary", "<|summary|>", "<|/summary|>"},
	{"explanation", "<|explanation|>", "<|/explanation|>"},
}

// singleCandidates are standalone token spellings.
var singleCandidates = []singleCandidate{
	// Fill-in-the-middle
	{"fim_prefix", "<|fim_prefix|>"},
	{"fim_middle", "<|fim_middle|>"},
	{"fim_suffix", "<|fim_suffix|>"},

	// Lists
	{"list_item", "<|list_item|>"},

	// Media
	{"vision", "<|vision|>"},

	// Markdown-ish tokens some code models register
	{"code_inline", "`"},
	{"code_block_start", "```"},
	{"code_block_end", "```"},
}

// DetectSpecialTokens resolves the candidate catalogs against the tokenizer.
// Declared standard tokens (eod, bos, unk, pad) come straight from the
// tokenizer; catalog candidates are resolved by text lookup and kept only if
// they differ from the unknown id.
func DetectSpecialTokens(tok inference.Tokenizer) map[string]SpecialToken {
	tokens := make(map[string]SpecialToken)

	if ref, ok := tok.EOS(); ok {
		tokens["eod"] = singleToken(ref)
	}
	if ref, ok := tok.BOS(); ok {
		tokens["bos"] = singleToken(ref)
	}
	if ref, ok := tok.Unknown(); ok {
		tokens["unk"] = singleToken(ref)
	}
	if ref, ok := tok.Pad(); ok {
		tokens["pad"] = singleToken(ref)
	}

	unk := tok.UnknownID()

	for _, cand := range pairCandidates {
		startID := tok.TextToID(cand.start)
		endID := tok.TextToID(cand.end)
		if startID == unk || endID == unk {
			continue
		}
		tokens[cand.name] = SpecialToken{
			Start: &inference.TokenRef{Text: cand.start, ID: startID},
			End:   &inference.TokenRef{Text: cand.end, ID: endID},
		}
	}

	for _, cand := range singleCandidates {
		id := tok.TextToID(cand.text)
		if id == unk {
			continue
		}
		tokens[cand.name] = SpecialToken{
			Single: &inference.TokenRef{Text: cand.text, ID: id},
		}
	}

	return tokens
}

func singleToken(ref inference.TokenRef) SpecialToken {
	return SpecialToken{Single: &ref}
}
