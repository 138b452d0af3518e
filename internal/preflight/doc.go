// Package preflight provides readiness checks for the filesystem paths and
// external services docintake depends on.
//
// The CLI "docintake check" command runs RunAll and renders each Result.
// Checks for optional features are skipped when the feature is not configured.
package preflight
