// Package tokens estimates token counts for prompt text.
//
// The driver cannot tokenize, since tokenization belongs to the inference
// runtime, but it knows a model's declared context length and can warn when
// a formatted prompt is unlikely to fit. Estimation uses the rule-of-thumb
// that approximately 4 characters equals 1 token:
//
//	counter := tokens.NewEstimatingCounter()
//	count := counter.Count(prompt)
//	fits := counter.FitsInLimit(prompt, 4096)
//
// ContextAdvisory combines both for the driver's pre-generation check. All of
// this is advisory only; a request is never blocked on an estimate.
package tokens
