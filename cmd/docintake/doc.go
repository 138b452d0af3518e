// Command docintake is the operator CLI for the document intake pipeline.
//
// It runs documents through the intake stages, evaluates the conflict rules
// and routing table in isolation, inspects the run audit and document
// repository, and reports environment readiness.
package main
