// Package routing implements the auto-routing engine that runs once a
// document's metadata is finalized.
//
// Evaluation has two phases. The authorization gate requires the
// documents:distribute permission and an attribute check on the document's
// confidentiality against the actor's department and roles. Once authorized,
// an ordered decision table is applied and the first matching rule wins:
// contracts go to the legal workflow, finance reports to accounting, locked or
// high-security documents raise a security notification, and everything else
// is filed into a category folder.
//
// Evaluate is a function of its two inputs only. It never returns an error for
// business outcomes; denials and internal failures are reported in the
// decision itself.
package routing
