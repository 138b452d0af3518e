// Package conflicts implements the data-conflict validator: an ordered list of
// field rules evaluated against the extracted key-values. Every rule runs
// (there is no short-circuit) and each violation yields one Conflict.
//
// The validator is a pure function of its input and the configured cutoff
// date. Fields that are absent or blank are skipped; values that cannot be
// parsed as the rule's type are reported as conflicts.
package conflicts
