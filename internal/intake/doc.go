// Package intake defines the domain model shared by the document intake
// pipeline: the document handle, per-stage results and their typed outputs,
// extracted key-values, data conflicts, user-facing metadata, the caller's
// authorization context, and the routing decision with its notifications.
//
// Types here carry no behaviour beyond small accessors and copy helpers;
// stage executors, the conflict validator, the routing engine, and the
// workflow orchestrator all exchange these values.
package intake
