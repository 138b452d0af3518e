// Package duplicates implements the duplicate-check stage. Incoming documents
// are scored against the stored corpus through an injectable Scorer: an exact
// content hash scores 100, otherwise the cosine similarity of the OCR text
// fingerprints is used. Matches above the block threshold halt the pipeline,
// matches in the warning band are reported without halting, and anything at
// or below the warning threshold is ignored.
package duplicates
