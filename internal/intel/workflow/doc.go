// Package workflow drives intelligence records through their status
// lifecycle on the shared ledger.
//
// # Workflow
//
// Records move along a single monotonic chain:
//
//	submit              analyze             markActioned
//	------> [pending] --------> [analyzed] --------------> [actioned]
//
// There are no other edges. Actioned is terminal, nothing moves
// backwards, and records are never deleted. The edge table lives in
// transitions.go and anything outside it is ErrInvalidTransition.
//
// # Guards
//
// The ledger offers no conditional writes, so transitions guard
// themselves with a re-read: decide against a fresh read (state
// precondition, then policy authorization), read again immediately
// before writing, and abort with ErrConflict if the status moved in
// between. The window is narrowed, not closed; two writers racing the
// same record within the final window resolve by last-write-wins, which
// the monotonic chain keeps convergent.
//
// # Authorization
//
// Who may perform each transition is a named, loggable Policy rather
// than scattered checks. The default matches observed behavior (analyze
// is submitter-only, action is open) and deployments override it with a
// TOML policy file. See Policy and LoadPolicyFile.
//
// # Submission
//
// Submit writes the record key, then appends the id to the index through
// the serializing coordinator (internal/intel/index). The pair is not
// atomic: a crash in between leaves an orphaned record, which readers
// tolerate and doctor can relink. Ids are generated locally from a time
// component plus a random component, so uncoordinated submitters cannot
// collide.
package workflow
