// Package prompt turns a role/content conversation into the single prompt
// string the generation runtime consumes.
//
// Two strategies exist. When the tokenizer has a usable chat template, the
// template renders the conversation; a caller-supplied primer (forced start of
// the assistant turn) is injected by rendering a synthetic assistant turn and
// splicing the render back so the prompt ends exactly at the primer. When no
// template is usable, the conversation is serialized into a deterministic
// comment-marker format instead. The choice is automatic and never an error.
package prompt
