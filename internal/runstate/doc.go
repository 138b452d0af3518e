// Package runstate holds the session-scoped pipeline state and the reducer
// that mutates it.
//
// # Purpose
//
// A caller (CLI, tests, a future UI bridge) observes a pipeline run through a
// State value. State is only changed by Reduce, which maps (old state, action)
// to a new state without touching the old one. Store wraps a State behind a
// mutex so the orchestrator's progress callbacks can be applied from the run
// goroutine while readers take snapshots.
//
// # Key Types
//
// State: current step, selected document, progress, ordered stage results,
// suggested metadata, routing decision, final record, and the reference data
// loaded once per session.
//
// Action: SetStep, SetDocument, UpdateProgress, SetStageStatus, SetMetadata,
// SetRoutingResult, SetFinalResult, Reset.
//
// # Invariants
//
// Stage results are appended in pipeline order and a stage is never
// re-entered. Nothing is appended after a blocked or failed stage. Reset keeps
// the reference data.
package runstate
