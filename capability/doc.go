// Package capability discovers what a loaded model can do by introspecting
// its tokenizer and by issuing controlled trial renders against its chat
// template.
//
// A caller on the other side of the wire protocol cannot inspect the model
// directly, so the probe answers three questions experimentally:
//
//   - Which special tokens does the vocabulary actually register? Candidate
//     spellings are resolved through the tokenizer and kept only when every
//     constituent id differs from the unknown id, so models that alias all
//     unregistered spellings to one fallback id produce no false positives.
//   - Which roles does the chat template accept? Each candidate role is
//     rendered alone; a renderer error excludes just that role.
//   - What structural constraints does the template impose? A fixed catalog of
//     probe conversations is rendered and per-pattern success or failure feeds
//     an independent rule table (see Restrictions). The catalog is data, not
//     control flow, and can be replaced from a YAML file.
//
// Probing is deterministic and read-only; a Probe computes its result once and
// caches it for the life of the process.
package capability
