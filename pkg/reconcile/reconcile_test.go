package reconcile

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/updraft-io/updraft/pkg/descriptor"
	"github.com/updraft-io/updraft/pkg/inventory"
)

const hostBuild = "243.100"

func viewOf(full ...*descriptor.Descriptor) *inventory.View {
	f := make(map[descriptor.PluginID]*descriptor.Descriptor)
	for _, d := range full {
		f[d.ID] = d
	}
	return inventory.NewView(f, nil)
}

func candidates(descs ...*descriptor.Descriptor) map[descriptor.PluginID]*descriptor.Descriptor {
	m := make(map[descriptor.PluginID]*descriptor.Descriptor)
	for _, d := range descs {
		m[d.ID] = d
	}
	return m
}

// TestReconcile_Approves tests the happy path: installed, compatible, newer
func TestReconcile_Approves(t *testing.T) {
	view := viewOf(&descriptor.Descriptor{ID: "a", Version: "1.0.0"})
	r := NewReconciler(hostBuild, nil)

	result := r.Reconcile(view, candidates(&descriptor.Descriptor{ID: "a", Version: "2.0.0"}))

	assert.Contains(t, result.Approved, descriptor.PluginID("a"))
	assert.Empty(t, result.Rejected)
}

// TestReconcile_NotInstalled tests rejection of updates for unknown plugins
func TestReconcile_NotInstalled(t *testing.T) {
	r := NewReconciler(hostBuild, nil)

	// Even an otherwise perfect candidate is rejected when the id is in
	// neither inventory map.
	result := r.Reconcile(viewOf(), candidates(&descriptor.Descriptor{ID: "ghost", Version: "9.0.0"}))

	require.Contains(t, result.Rejected, descriptor.PluginID("ghost"))
	assert.Equal(t, "plugin is not installed", result.Rejected["ghost"].Reason)
	assert.Equal(t, "not_installed", result.Rejected["ghost"].Rule)
}

// TestReconcile_IncompleteCounts tests that an incomplete descriptor counts as installed
func TestReconcile_IncompleteCounts(t *testing.T) {
	view := inventory.NewView(nil, map[descriptor.PluginID]*descriptor.Descriptor{
		"a": {ID: "a", Version: "1.0.0"},
	})
	r := NewReconciler(hostBuild, nil)

	result := r.Reconcile(view, candidates(&descriptor.Descriptor{ID: "a", Version: "2.0.0"}))
	assert.Contains(t, result.Approved, descriptor.PluginID("a"))
}

// TestReconcile_IncompatibleBuild tests the host build gate
func TestReconcile_IncompatibleBuild(t *testing.T) {
	view := viewOf(&descriptor.Descriptor{ID: "a", Version: "1.0.0"})
	r := NewReconciler(hostBuild, nil)

	result := r.Reconcile(view, candidates(&descriptor.Descriptor{
		ID: "a", Version: "2.0.0", SinceBuild: "250.0",
	}))

	require.Contains(t, result.Rejected, descriptor.PluginID("a"))
	assert.Contains(t, result.Rejected["a"].Reason, "not compatible with current IDE build")
}

// TestReconcile_KnownBroken tests the blacklist gate
func TestReconcile_KnownBroken(t *testing.T) {
	bl := descriptor.NewBlacklist()
	bl.Add("a", "2.0.0")
	view := viewOf(&descriptor.Descriptor{ID: "a", Version: "1.0.0"})
	r := NewReconciler(hostBuild, bl)

	result := r.Reconcile(view, candidates(&descriptor.Descriptor{ID: "a", Version: "2.0.0"}))

	require.Contains(t, result.Rejected, descriptor.PluginID("a"))
	assert.Contains(t, result.Rejected["a"].Reason, "known to be broken")
}

// TestReconcile_Essential tests that bundled plugins are never updated,
// even when the candidate is strictly newer and otherwise valid
func TestReconcile_Essential(t *testing.T) {
	view := viewOf(&descriptor.Descriptor{ID: "a", Version: "1.0.0", Essential: true})
	r := NewReconciler(hostBuild, nil)

	result := r.Reconcile(view, candidates(&descriptor.Descriptor{ID: "a", Version: "2.0.0"}))

	require.Contains(t, result.Rejected, descriptor.PluginID("a"))
	assert.Contains(t, result.Rejected["a"].Reason, "part of the IDE distribution")
}

// TestReconcile_NotNewer tests the version gate
func TestReconcile_NotNewer(t *testing.T) {
	view := viewOf(&descriptor.Descriptor{ID: "a", Version: "2.0.0"})
	r := NewReconciler(hostBuild, nil)

	tests := []struct {
		name      string
		candidate string
		approved  bool
	}{
		{"equal version rejected", "2.0.0", false},
		{"older version rejected", "1.9.0", false},
		{"newer version approved", "2.0.1", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := r.Reconcile(view, candidates(&descriptor.Descriptor{ID: "a", Version: tt.candidate}))
			if tt.approved {
				assert.Contains(t, result.Approved, descriptor.PluginID("a"))
			} else {
				require.Contains(t, result.Rejected, descriptor.PluginID("a"))
				assert.Contains(t, result.Rejected["a"].Reason, "same or newer version already installed")
				assert.Contains(t, result.Rejected["a"].Reason, "2.0.0")
				assert.Contains(t, result.Rejected["a"].Reason, tt.candidate)
			}
		})
	}
}

// TestReconcile_BrokenInstalledCountsLowest tests that a blacklisted
// installed version never blocks a downgrade-looking candidate
func TestReconcile_BrokenInstalledCountsLowest(t *testing.T) {
	bl := descriptor.NewBlacklist()
	bl.Add("a", "3.0.0")
	view := viewOf(&descriptor.Descriptor{ID: "a", Version: "3.0.0"})
	r := NewReconciler(hostBuild, bl)

	// 2.0.0 < 3.0.0, but the installed 3.0.0 is broken so it counts as
	// unordered-lowest and the candidate goes through.
	result := r.Reconcile(view, candidates(&descriptor.Descriptor{ID: "a", Version: "2.0.0"}))
	assert.Contains(t, result.Approved, descriptor.PluginID("a"))
}

// TestReconcile_IncompatibleInstalledCountsLowest tests the same for a
// build-incompatible installed version
func TestReconcile_IncompatibleInstalledCountsLowest(t *testing.T) {
	view := viewOf(&descriptor.Descriptor{ID: "a", Version: "3.0.0", UntilBuild: "242.0"})
	r := NewReconciler(hostBuild, nil)

	result := r.Reconcile(view, candidates(&descriptor.Descriptor{ID: "a", Version: "2.0.0"}))
	assert.Contains(t, result.Approved, descriptor.PluginID("a"))
}

// TestReconcile_UnmetDependencies tests the dependency gate and its message
func TestReconcile_UnmetDependencies(t *testing.T) {
	view := viewOf(
		&descriptor.Descriptor{ID: "a", Version: "1.0.0"},
		&descriptor.Descriptor{ID: "present", Version: "1.0.0"},
	)
	r := NewReconciler(hostBuild, nil)

	result := r.Reconcile(view, candidates(&descriptor.Descriptor{
		ID: "a", Version: "2.0.0",
		Dependencies: []descriptor.Dependency{
			{ID: "present"},
			{ID: "missing.one"},
			{ID: "missing.two"},
		},
	}))

	require.Contains(t, result.Rejected, descriptor.PluginID("a"))
	assert.Equal(t, "unmet dependencies: missing.one, missing.two", result.Rejected["a"].Reason)
}

// TestReconcile_OptionalDependencyNotRequired tests that a missing optional
// dependency does not reject
func TestReconcile_OptionalDependencyNotRequired(t *testing.T) {
	view := viewOf(&descriptor.Descriptor{ID: "a", Version: "1.0.0"})
	r := NewReconciler(hostBuild, nil)

	result := r.Reconcile(view, candidates(&descriptor.Descriptor{
		ID: "a", Version: "2.0.0",
		Dependencies: []descriptor.Dependency{{ID: "missing", Optional: true}},
	}))

	assert.Contains(t, result.Approved, descriptor.PluginID("a"))
}

// TestReconcile_FirstMatchWins tests that only the first applicable reason
// is reported when several rules would reject
func TestReconcile_FirstMatchWins(t *testing.T) {
	bl := descriptor.NewBlacklist()
	bl.Add("a", "0.5.0")
	view := viewOf(&descriptor.Descriptor{ID: "a", Version: "1.0.0", Essential: true})
	r := NewReconciler(hostBuild, bl)

	// Candidate is broken, for an essential plugin, and not newer. The
	// blacklist check comes before essential and version checks.
	result := r.Reconcile(view, candidates(&descriptor.Descriptor{ID: "a", Version: "0.5.0"}))

	require.Contains(t, result.Rejected, descriptor.PluginID("a"))
	assert.Contains(t, result.Rejected["a"].Reason, "known to be broken")
	assert.NotContains(t, result.Rejected["a"].Reason, "IDE distribution")
}

// TestReconcile_Partition tests totality: every candidate lands in exactly
// one of approved/rejected
func TestReconcile_Partition(t *testing.T) {
	view := viewOf(
		&descriptor.Descriptor{ID: "ok", Version: "1.0.0"},
		&descriptor.Descriptor{ID: "pinned", Version: "5.0.0"},
	)
	r := NewReconciler(hostBuild, nil)

	cands := candidates(
		&descriptor.Descriptor{ID: "ok", Version: "2.0.0"},
		&descriptor.Descriptor{ID: "pinned", Version: "4.0.0"},
		&descriptor.Descriptor{ID: "ghost", Version: "1.0.0"},
	)
	result := r.Reconcile(view, cands)

	assert.Equal(t, len(cands), len(result.Approved)+len(result.Rejected))
	for id := range cands {
		_, approved := result.Approved[id]
		_, rejected := result.Rejected[id]
		assert.True(t, approved != rejected, "candidate %s must be in exactly one partition", id)
	}
}

// TestReconcile_NilDescriptorFailsClosed tests per-candidate recovery: one
// malformed candidate is rejected with an internal error, others proceed
func TestReconcile_NilDescriptorFailsClosed(t *testing.T) {
	view := viewOf(&descriptor.Descriptor{ID: "ok", Version: "1.0.0"})
	r := NewReconciler(hostBuild, nil)

	cands := map[descriptor.PluginID]*descriptor.Descriptor{
		"ok":  {ID: "ok", Version: "2.0.0"},
		"nil": nil,
	}
	result := r.Reconcile(view, cands)

	assert.Contains(t, result.Approved, descriptor.PluginID("ok"))
	require.Contains(t, result.Rejected, descriptor.PluginID("nil"))
	assert.Contains(t, result.Rejected["nil"].Reason, "internal error")
}

// TestApprovedIDs tests deterministic ordering of the approved set
func TestApprovedIDs(t *testing.T) {
	result := &Result{Approved: map[descriptor.PluginID]struct{}{
		"zeta": {}, "alpha": {}, "mid": {},
	}}
	assert.Equal(t, []descriptor.PluginID{"alpha", "mid", "zeta"}, result.ApprovedIDs())
}
