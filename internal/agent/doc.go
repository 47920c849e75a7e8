// Package agent implements the research agents that argue in the debate.
//
// There is no agent hierarchy: the orchestrator depends on the single Agent
// capability (Act), and every role is the same concrete type carrying
// role-specific policy data: a persona, and per-phase prompt builders with
// their response schemas. An agent asked to act in a phase its policy does
// not cover simply contributes nothing.
package agent
