// Package memory implements the two memory subsystems of the research
// session: a per-agent store with a capacity-bounded short-term buffer and
// an importance-filtered long-term store, and a session-wide shared
// knowledge base for verified facts, papers, code snippets and experiment
// results.
//
// Each agent exclusively owns its Memory; the shared knowledge base is owned
// by the session and mutated by agents under serialized access. Persistence
// is explicit: callers invoke Save against a Store at checkpoints, nothing
// is written in the background.
package memory
