// Package staging manages the scratch directory the stage executors use for
// intermediate files.
//
// Executors create one temporary directory per call under WorkDir and remove
// it when they return. A process that dies mid-stage leaves its directory
// behind; CleanStale reclaims those leftovers.
package staging
