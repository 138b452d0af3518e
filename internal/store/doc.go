// Package store persists the document repository and the pipeline run audit
// in SQLite.
//
// The document table doubles as the duplicate-detection corpus: each row keeps
// the content hash and the encoded text fingerprint of an accepted document so
// later uploads can be scored without re-reading the originals. Runs are
// stored as JSON records keyed by run ID for later inspection; the pipeline
// never resumes from them.
package store
