package inventory

import (
	"github.com/updraft-io/updraft/pkg/descriptor"
)

// View is a read-only snapshot of the installed plugin set. Fully loaded
// plugins live in the full map; plugins present on disk but not loaded
// (typically disabled at startup) live in the incomplete map. A plugin id
// appears in at most one of the two.
type View struct {
	full       map[descriptor.PluginID]*descriptor.Descriptor
	incomplete map[descriptor.PluginID]*descriptor.Descriptor
}

// NewView builds a snapshot from the two descriptor maps. Any id present in
// both ends up in the full map only.
func NewView(full, incomplete map[descriptor.PluginID]*descriptor.Descriptor) *View {
	v := &View{
		full:       make(map[descriptor.PluginID]*descriptor.Descriptor, len(full)),
		incomplete: make(map[descriptor.PluginID]*descriptor.Descriptor, len(incomplete)),
	}
	for id, d := range full {
		v.full[id] = d
	}
	for id, d := range incomplete {
		if _, ok := v.full[id]; ok {
			continue
		}
		v.incomplete[id] = d
	}
	return v
}

// Get returns the fully loaded descriptor for id
func (v *View) Get(id descriptor.PluginID) (*descriptor.Descriptor, bool) {
	d, ok := v.full[id]
	return d, ok
}

// GetIncomplete returns the incomplete descriptor for id
func (v *View) GetIncomplete(id descriptor.PluginID) (*descriptor.Descriptor, bool) {
	d, ok := v.incomplete[id]
	return d, ok
}

// Find returns the descriptor for id from either map, full first
func (v *View) Find(id descriptor.PluginID) (*descriptor.Descriptor, bool) {
	if d, ok := v.full[id]; ok {
		return d, true
	}
	d, ok := v.incomplete[id]
	return d, ok
}

// Contains reports whether id is known at all, fully loaded or not
func (v *View) Contains(id descriptor.PluginID) bool {
	_, ok := v.Find(id)
	return ok
}

// Len returns the total number of known plugins
func (v *View) Len() int {
	return len(v.full) + len(v.incomplete)
}

// FullLen returns the number of fully loaded plugins
func (v *View) FullLen() int {
	return len(v.full)
}
