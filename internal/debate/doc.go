// Package debate runs the structured multi-phase debate between research
// agents.
//
// The orchestrator owns the phase machine: an initialization phase, a fixed
// sequence of working phases visited once each, every visit forming one
// numbered round, and a conclusion phase. Termination is decided between
// rounds from the consensus metrics and the configured round budget; the
// round budget always wins, short-circuiting the walk to conclusion. The
// orchestrator is the only writer of debate state, so a single run is fully
// deterministic given deterministic agents.
package debate
