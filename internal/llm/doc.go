// Package llm wraps the black-box reasoning engine behind the debate.
//
// The upstream generator is non-deterministic and unreliable: calls may fail
// transiently and output may be truncated mid-structure. Two layers absorb
// this. Client adds flat inter-call pacing and bounded exponential-backoff
// retry; only exhausted retries surface to the caller. DecodeStructured
// guarantees that a decoded result exposes every schema-declared field no
// matter how malformed the raw text is, degrading through a fixed repair
// cascade down to type-appropriate defaults.
package llm
