package updater

import (
	"context"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"

	"github.com/updraft-io/updraft/pkg/descriptor"
	"github.com/updraft-io/updraft/pkg/history"
	"github.com/updraft-io/updraft/pkg/inventory"
	"github.com/updraft-io/updraft/pkg/observability"
	"github.com/updraft-io/updraft/pkg/reconcile"
	"github.com/updraft-io/updraft/pkg/staging"
	"github.com/updraft-io/updraft/pkg/unpack"
)

// StagingSource is the consumable staged-update store. The updater reads it
// exactly once per run and clears it before returning, success or not.
type StagingSource interface {
	List() (map[descriptor.PluginID]staging.UpdateInfo, error)
	ArtifactPath(info staging.UpdateInfo) string
	Clear() error
}

// InventorySource provides the installed-plugin snapshot
type InventorySource interface {
	Snapshot() (*inventory.View, error)
}

// EnablementSource answers whether a plugin has been disabled by the user
type EnablementSource interface {
	IsDisabled(id descriptor.PluginID) bool
}

// Recorder persists run history. A nil recorder disables history.
type Recorder interface {
	RecordRun(ctx context.Context, run history.Run, outcomes []history.Outcome) error
}

// Options configures an Updater. Staging, Inventory and Reconciler are
// required; everything else has a working default.
type Options struct {
	Staging    StagingSource
	Inventory  InventorySource
	Enablement EnablementSource
	Reconciler *reconcile.Reconciler

	// ReadDescriptor extracts a plugin descriptor from a staged artifact.
	// Defaults to unpack.ReadDescriptor.
	ReadDescriptor func(artifactPath string) (*descriptor.Descriptor, error)

	// Install replaces the plugin installation at destDir with the artifact
	// contents. Defaults to unpack.Unpack.
	Install func(artifactPath, destDir string) error

	// LoadConcurrency bounds parallel descriptor loads. Defaults to 4.
	LoadConcurrency int

	Log     *logrus.Logger
	Metrics *observability.Metrics
	History Recorder
}

// Updater runs the one-shot update pipeline: consume the staging area,
// reconcile every staged candidate against the installed inventory, unpack
// the approved ones, and publish the run statistics exactly once.
type Updater struct {
	staging        StagingSource
	inventory      InventorySource
	enablement     EnablementSource
	reconciler     *reconcile.Reconciler
	readDescriptor func(string) (*descriptor.Descriptor, error)
	install        func(string, string) error
	concurrency    int
	log            *logrus.Logger
	metrics        *observability.Metrics
	history        Recorder
	cell           *ResultCell
}

// New creates an updater from opts
func New(opts Options) (*Updater, error) {
	if opts.Staging == nil {
		return nil, fmt.Errorf("staging source is required")
	}
	if opts.Inventory == nil {
		return nil, fmt.Errorf("inventory source is required")
	}
	if opts.Reconciler == nil {
		return nil, fmt.Errorf("reconciler is required")
	}

	if opts.ReadDescriptor == nil {
		opts.ReadDescriptor = unpack.ReadDescriptor
	}
	if opts.Install == nil {
		opts.Install = unpack.Unpack
	}
	if opts.LoadConcurrency <= 0 {
		opts.LoadConcurrency = 4
	}
	if opts.Log == nil {
		opts.Log = logrus.New()
	}

	return &Updater{
		staging:        opts.Staging,
		inventory:      opts.Inventory,
		enablement:     opts.Enablement,
		reconciler:     opts.Reconciler,
		readDescriptor: opts.ReadDescriptor,
		install:        opts.Install,
		concurrency:    opts.LoadConcurrency,
		log:            opts.Log,
		metrics:        opts.Metrics,
		history:        opts.History,
		cell:           NewResultCell(),
	}, nil
}

// Result returns the cell holding the published run outcome
func (u *Updater) Result() *ResultCell {
	return u.cell
}

// stagedCandidate carries one staged entry through the pipeline
type stagedCandidate struct {
	id      descriptor.PluginID
	info    staging.UpdateInfo
	desc    *descriptor.Descriptor
	loadErr error
}

// Run executes the pipeline once. The staging area is cleared and the result
// is published to the cell no matter how the run ends, including a panic in
// the pipeline itself.
func (u *Updater) Run(ctx context.Context) (stats Statistics, err error) {
	runID := uuid.NewString()
	log := u.log.WithField("run_id", runID)
	started := time.Now()
	var outcomes []history.Outcome

	ctx, span := observability.Tracer("updraft/updater").Start(ctx, "updater.run")
	defer span.End()

	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("update run failed: %v", rec)
			log.Errorf("Update run panicked: %v", rec)
		}
		if cerr := u.staging.Clear(); cerr != nil {
			log.Warnf("Failed to clear staging area: %v", cerr)
		}
		u.cell.Publish(stats, err)
		span.SetAttributes(
			attribute.Int("updates.prepared", stats.UpdatesPrepared),
			attribute.Int("plugins.updated", stats.PluginsUpdated),
		)
		if err != nil {
			span.RecordError(err)
		}
		if u.metrics != nil {
			u.metrics.RunDuration.Observe(time.Since(started).Seconds())
		}
		u.record(ctx, history.Run{
			ID:              runID,
			StartedAt:       started,
			FinishedAt:      time.Now(),
			UpdatesPrepared: stats.UpdatesPrepared,
			PluginsUpdated:  stats.PluginsUpdated,
			Error:           errString(err),
		}, outcomes, log)
	}()

	staged, listErr := u.staging.List()
	if listErr != nil {
		return stats, fmt.Errorf("failed to list staged updates: %w", listErr)
	}
	if len(staged) == 0 {
		log.Debug("No staged updates found")
		return stats, nil
	}

	if u.metrics != nil {
		u.metrics.UpdatesStagedTotal.Add(float64(len(staged)))
	}
	log.Infof("Found %d staged update(s)", len(staged))

	pending := u.filterStaged(staged, log)

	view, snapErr := u.inventory.Snapshot()
	if snapErr != nil {
		return stats, fmt.Errorf("failed to snapshot installed plugins: %w", snapErr)
	}
	if u.metrics != nil {
		u.metrics.PluginsInstalled.Set(float64(view.FullLen()))
		u.metrics.PluginsIncomplete.Set(float64(view.Len() - view.FullLen()))
	}

	kept := pending[:0]
	for _, c := range pending {
		if u.enablement != nil && u.enablement.IsDisabled(c.id) {
			log.Infof("Skipping staged update for %s: plugin is disabled", c.id)
			outcomes = append(outcomes, history.Outcome{
				PluginID:   string(c.id),
				NewVersion: "",
				Kind:       history.OutcomeRejected,
				Detail:     "plugin is disabled",
			})
			continue
		}
		kept = append(kept, c)
	}
	pending = kept

	u.loadDescriptors(pending)

	candidates := make(map[descriptor.PluginID]*descriptor.Descriptor, len(pending))
	infoByID := make(map[descriptor.PluginID]staging.UpdateInfo, len(pending))
	for i := range pending {
		c := pending[i]
		if c.loadErr != nil {
			log.Warnf("Failed to load descriptor for %s: %v", c.id, c.loadErr)
			if u.metrics != nil {
				u.metrics.UpdatesFailedTotal.WithLabelValues("load").Inc()
			}
			outcomes = append(outcomes, history.Outcome{
				PluginID: string(c.id),
				Kind:     history.OutcomeFailed,
				Detail:   c.loadErr.Error(),
			})
			continue
		}
		candidates[c.id] = c.desc
		infoByID[c.id] = c.info
	}

	result := u.reconciler.Reconcile(view, candidates)
	for _, id := range rejectedIDs(result) {
		rej := result.Rejected[id]
		log.Infof("Rejecting update for %s: %s", id, rej.Reason)
		if u.metrics != nil {
			u.metrics.UpdatesRejectedTotal.WithLabelValues(rej.Rule).Inc()
		}
		outcomes = append(outcomes, history.Outcome{
			PluginID:   string(id),
			OldVersion: installedVersion(view, id),
			NewVersion: candidates[id].Version,
			Kind:       history.OutcomeRejected,
			Detail:     rej.Reason,
		})
	}

	stats.UpdatesPrepared = len(result.Approved)
	approved := result.ApprovedIDs()
	if len(approved) == 0 {
		log.Info("No updates to apply")
		return stats, nil
	}

	log.Infof("Applying %d plugin update(s)", len(approved))
	for _, id := range approved {
		desc := candidates[id]
		info := infoByID[id]
		oldVersion := installedVersion(view, id)

		unpackStart := time.Now()
		installErr := u.install(u.staging.ArtifactPath(info), info.InstalledPath)
		if u.metrics != nil {
			u.metrics.UnpackDuration.Observe(time.Since(unpackStart).Seconds())
		}

		if installErr != nil {
			log.Errorf("Failed to apply update for %s: %v", id, installErr)
			if u.metrics != nil {
				u.metrics.UpdatesFailedTotal.WithLabelValues("unpack").Inc()
			}
			outcomes = append(outcomes, history.Outcome{
				PluginID:   string(id),
				OldVersion: oldVersion,
				NewVersion: desc.Version,
				Kind:       history.OutcomeFailed,
				Detail:     installErr.Error(),
			})
			continue
		}

		stats.PluginsUpdated++
		if u.metrics != nil {
			u.metrics.UpdatesAppliedTotal.Inc()
		}
		log.Infof("Updated plugin %s from %s to %s", id, oldVersion, desc.Version)
		outcomes = append(outcomes, history.Outcome{
			PluginID:   string(id),
			OldVersion: oldVersion,
			NewVersion: desc.Version,
			Kind:       history.OutcomeApplied,
		})
	}

	return stats, nil
}

// filterStaged drops staged entries whose installed target or artifact is
// missing and returns the survivors in id order. An I/O error while checking
// a path counts as missing.
func (u *Updater) filterStaged(staged map[descriptor.PluginID]staging.UpdateInfo, log *logrus.Entry) []stagedCandidate {
	pending := make([]stagedCandidate, 0, len(staged))
	for id, info := range staged {
		if !pathExists(info.InstalledPath, log) {
			log.Warnf("Skipping staged update for %s: installed path missing: %s", id, info.InstalledPath)
			if u.metrics != nil {
				u.metrics.UpdatesFailedTotal.WithLabelValues("stage").Inc()
			}
			continue
		}
		if !pathExists(u.staging.ArtifactPath(info), log) {
			log.Warnf("Skipping staged update for %s: artifact missing: %s", id, info.ArtifactName)
			if u.metrics != nil {
				u.metrics.UpdatesFailedTotal.WithLabelValues("stage").Inc()
			}
			continue
		}
		pending = append(pending, stagedCandidate{id: id, info: info})
	}

	sort.Slice(pending, func(i, j int) bool { return pending[i].id < pending[j].id })
	return pending
}

// loadDescriptors reads every pending artifact's descriptor in parallel and
// joins the results back in input order. A failed load marks its own
// candidate and never affects the rest of the batch.
func (u *Updater) loadDescriptors(pending []stagedCandidate) {
	g := new(errgroup.Group)
	g.SetLimit(u.concurrency)

	for i := range pending {
		c := &pending[i]
		g.Go(func() error {
			loadStart := time.Now()
			desc, err := u.readDescriptor(u.staging.ArtifactPath(c.info))
			if u.metrics != nil {
				u.metrics.DescriptorLoadDuration.Observe(time.Since(loadStart).Seconds())
			}

			if err != nil {
				c.loadErr = err
				return nil
			}
			if desc.ID != c.id {
				c.loadErr = fmt.Errorf("artifact descriptor id %q does not match staged id %q", desc.ID, c.id)
				return nil
			}
			c.desc = desc
			return nil
		})
	}

	g.Wait()
}

func (u *Updater) record(ctx context.Context, run history.Run, outcomes []history.Outcome, log *logrus.Entry) {
	if u.history == nil {
		return
	}
	if err := u.history.RecordRun(ctx, run, outcomes); err != nil {
		log.Warnf("Failed to record run history: %v", err)
	}
}

func rejectedIDs(result *reconcile.Result) []descriptor.PluginID {
	ids := make([]descriptor.PluginID, 0, len(result.Rejected))
	for id := range result.Rejected {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

func installedVersion(view *inventory.View, id descriptor.PluginID) string {
	if installed, ok := view.Find(id); ok {
		return installed.Version
	}
	return ""
}

func pathExists(path string, log *logrus.Entry) bool {
	_, err := os.Stat(path)
	if err == nil {
		return true
	}
	if !os.IsNotExist(err) {
		log.Warnf("Failed to stat %s, treating as missing: %v", path, err)
	}
	return false
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
