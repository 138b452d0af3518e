// Package workflow runs a document through the intake stages.
//
// The Orchestrator executes Denoise, OCR, DuplicateCheck, MetadataSuggestion,
// ConflictValidation, and Watermark strictly in order, each under its own
// timeout, and reports every transition to the registered stage callbacks and
// to the optional runstate.Store. Stage failures are translated into the
// services error taxonomy before they reach the caller: OCR failures and
// DuplicateCheck timeouts are fatal, a blocking duplicate halts the run with a
// partial result, data conflicts are collected as warnings, and any other
// stage failure is transient.
//
// After Watermark the orchestrator finalizes the suggested metadata (through
// the optional Review hook), registers the document in the repository,
// evaluates the routing engine exactly once, and hands successful routing
// notifications to the dispatcher. Permission and routing failures leave the
// document saved as a draft.
//
// Only one run per document may be active. The in-process registry rejects a
// second start immediately; a file lock under paths.lock_dir extends the rule
// across processes.
package workflow
