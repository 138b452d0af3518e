// Package refdata loads the session reference lists: document categories
// (with the keywords used to suggest them and their archive folders) and
// departments. Lists are read once, validated, and treated as read-only by
// every pipeline run.
package refdata
