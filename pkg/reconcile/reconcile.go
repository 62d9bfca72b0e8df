package reconcile

import (
	"fmt"
	"sort"
	"strings"

	"github.com/updraft-io/updraft/pkg/descriptor"
	"github.com/updraft-io/updraft/pkg/inventory"
	"github.com/updraft-io/updraft/pkg/version"
)

// Reconciler decides per-candidate whether a staged plugin update may be
// applied against the current installed view. It holds no mutable state; a
// reconcile pass is a pure function over its two input snapshots.
type Reconciler struct {
	hostBuild string
	blacklist *descriptor.Blacklist
	rules     []rule
}

// Rejection names the rule that fired and its human-readable reason.
type Rejection struct {
	Rule   string `json:"rule"`
	Reason string `json:"reason"`
}

// Result partitions the candidate set: every candidate id ends up in exactly
// one of Approved or Rejected.
type Result struct {
	Approved map[descriptor.PluginID]struct{}
	Rejected map[descriptor.PluginID]Rejection
}

// ApprovedIDs returns the approved plugin ids in sorted order
func (r *Result) ApprovedIDs() []descriptor.PluginID {
	ids := make([]descriptor.PluginID, 0, len(r.Approved))
	for id := range r.Approved {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// candidate bundles everything a rule may look at
type candidate struct {
	id      descriptor.PluginID
	update  *descriptor.Descriptor
	current *inventory.View
}

// rule is one ordered rejection check. A non-empty reason rejects the
// candidate and stops the chain, so only the first matching reason is ever
// reported.
type rule struct {
	name  string
	check func(*Reconciler, candidate) string
}

// NewReconciler creates a reconciler for the given host build and
// broken-version blacklist.
func NewReconciler(hostBuild string, blacklist *descriptor.Blacklist) *Reconciler {
	if blacklist == nil {
		blacklist = descriptor.NewBlacklist()
	}
	return &Reconciler{
		hostBuild: hostBuild,
		blacklist: blacklist,
		rules: []rule{
			{"not_installed", (*Reconciler).checkInstalled},
			{"incompatible_build", (*Reconciler).checkBuildCompatibility},
			{"known_broken", (*Reconciler).checkBroken},
			{"essential", (*Reconciler).checkEssential},
			{"not_newer", (*Reconciler).checkNewer},
			{"unmet_dependencies", (*Reconciler).checkDependencies},
		},
	}
}

// Reconcile evaluates every candidate independently and returns the
// approved/rejected partition. Candidate order does not affect the outcome.
func (r *Reconciler) Reconcile(current *inventory.View, candidates map[descriptor.PluginID]*descriptor.Descriptor) *Result {
	result := &Result{
		Approved: make(map[descriptor.PluginID]struct{}),
		Rejected: make(map[descriptor.PluginID]Rejection),
	}

	for id, update := range candidates {
		if rej, ok := r.evaluate(candidate{id: id, update: update, current: current}); ok {
			result.Rejected[id] = rej
		} else {
			result.Approved[id] = struct{}{}
		}
	}

	return result
}

// evaluate runs the rule chain for one candidate. A panic while checking one
// candidate fails closed: the candidate is rejected with an internal-error
// reason and the rest of the batch is unaffected.
func (r *Reconciler) evaluate(c candidate) (rej Rejection, rejected bool) {
	defer func() {
		if rec := recover(); rec != nil {
			rej = Rejection{
				Rule:   "internal_error",
				Reason: fmt.Sprintf("internal error while validating update: %v", rec),
			}
			rejected = true
		}
	}()

	if c.update == nil {
		panic("nil update descriptor")
	}

	for _, rule := range r.rules {
		if reason := rule.check(r, c); reason != "" {
			return Rejection{Rule: rule.name, Reason: reason}, true
		}
	}

	return Rejection{}, false
}

func (r *Reconciler) checkInstalled(c candidate) string {
	if !c.current.Contains(c.id) {
		return "plugin is not installed"
	}
	return ""
}

func (r *Reconciler) checkBuildCompatibility(c candidate) string {
	if !c.update.IsCompatibleWith(r.hostBuild) {
		return fmt.Sprintf("version %s is not compatible with current IDE build %s",
			c.update.Version, r.hostBuild)
	}
	return ""
}

func (r *Reconciler) checkBroken(c candidate) string {
	if r.blacklist.IsBroken(c.id, c.update.Version) {
		return fmt.Sprintf("version %s is known to be broken", c.update.Version)
	}
	return ""
}

func (r *Reconciler) checkEssential(c candidate) string {
	installed, ok := c.current.Find(c.id)
	if ok && installed.Essential {
		return "plugin is part of the IDE distribution and cannot be updated independently"
	}
	return ""
}

// checkNewer rejects candidates that are not strictly newer than the
// installed version. An installed version that is blacklisted or
// incompatible with the current build counts as unordered-lowest, so any
// candidate beats it.
func (r *Reconciler) checkNewer(c candidate) string {
	installed, ok := c.current.Find(c.id)
	if !ok {
		return ""
	}

	if r.blacklist.IsBroken(c.id, installed.Version) || !installed.IsCompatibleWith(r.hostBuild) {
		return ""
	}

	if !version.IsNewer(c.update.Version, installed.Version) {
		return fmt.Sprintf("same or newer version already installed (installed %s, update %s)",
			installed.Version, c.update.Version)
	}
	return ""
}

func (r *Reconciler) checkDependencies(c candidate) string {
	var missing []string
	for _, dep := range c.update.RequiredDependencies() {
		if !c.current.Contains(dep) {
			missing = append(missing, string(dep))
		}
	}

	if len(missing) > 0 {
		return fmt.Sprintf("unmet dependencies: %s", strings.Join(missing, ", "))
	}
	return ""
}
