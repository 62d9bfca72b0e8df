// Package updater runs the one-shot plugin update pipeline.
//
// # Overview
//
// An Updater consumes the staging area exactly once per process: it filters
// staged entries whose files are gone, snapshots the installed inventory,
// loads candidate descriptors with bounded parallelism, reconciles them, and
// unpacks the approved updates over their previous installs.
//
// # Pipeline Guarantees
//
// The staging area is cleared when the run ends, whether it succeeded,
// failed, or panicked. The run outcome is published to a write-once
// ResultCell; readers arriving before publication get a non-blocking
// "not ready" answer, and a failed run is cached the same way as a
// successful one.
//
// Per-candidate failures (unreadable artifact, failed unpack) are logged and
// isolated; they never abort the rest of the batch.
//
// # Usage Example
//
//	u, err := updater.New(updater.Options{
//		Staging:    repo,
//		Inventory:  scanner,
//		Reconciler: reconcile.NewReconciler(hostBuild, blacklist),
//	})
//	if err != nil {
//		return err
//	}
//	stats, err := u.Run(ctx)
package updater
