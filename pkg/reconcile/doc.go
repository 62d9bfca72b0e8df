// Package reconcile decides which staged plugin updates may be applied.
//
// # Overview
//
// A Reconciler evaluates each candidate update against a snapshot of the
// installed plugin set and partitions the batch into approved and rejected
// candidates. Evaluation is pure: the same snapshots always produce the same
// partition, and candidate order never matters.
//
// # Rejection Rules
//
// Rules run in a fixed order and the first match wins, so each rejection
// carries exactly one reason:
//
//  1. plugin is not installed (neither fully loaded nor incomplete)
//  2. update version is incompatible with the current host build
//  3. update version is on the broken-version blacklist
//  4. plugin is part of the host distribution (essential)
//  5. update version is not strictly newer than the installed one
//  6. a required dependency is not installed
//
// # Usage Example
//
//	r := reconcile.NewReconciler(hostBuild, blacklist)
//	result := r.Reconcile(view, candidates)
//	for _, id := range result.ApprovedIDs() {
//		apply(id)
//	}
//	for id, rej := range result.Rejected {
//		log.Infof("skipping %s: %s", id, rej.Reason)
//	}
//
// # Failure Isolation
//
// A panic while evaluating one candidate rejects that candidate with an
// internal-error reason and leaves the rest of the batch untouched.
package reconcile
