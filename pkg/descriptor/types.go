package descriptor

import (
	"github.com/updraft-io/updraft/pkg/version"
)

// PluginID uniquely identifies a plugin. It is the map key everywhere.
type PluginID string

func (id PluginID) String() string { return string(id) }

// Dependency is a reference to another plugin a descriptor requires.
type Dependency struct {
	ID       PluginID `yaml:"id"`
	Optional bool     `yaml:"optional,omitempty"`
}

// Descriptor describes a single plugin: identity, version, host-build
// compatibility range and dependencies. Serialized as plugin.yaml both in
// installed plugin directories and inside staged update artifacts.
type Descriptor struct {
	ID          PluginID     `yaml:"id"`
	Name        string       `yaml:"name"`
	Version     string       `yaml:"version"`
	Description string       `yaml:"description,omitempty"`
	Vendor      string       `yaml:"vendor,omitempty"`

	// SinceBuild/UntilBuild bound the host builds this plugin works with.
	// Empty bounds are open.
	SinceBuild string `yaml:"since_build,omitempty"`
	UntilBuild string `yaml:"until_build,omitempty"`

	// Essential marks plugins shipped with the host distribution. They are
	// never updated through this mechanism.
	Essential bool `yaml:"essential,omitempty"`

	Dependencies []Dependency `yaml:"dependencies,omitempty"`
}

// RequiredDependencies returns the non-optional dependency IDs in
// declaration order.
func (d *Descriptor) RequiredDependencies() []PluginID {
	var ids []PluginID
	for _, dep := range d.Dependencies {
		if !dep.Optional {
			ids = append(ids, dep.ID)
		}
	}
	return ids
}

// IsCompatibleWith reports whether the descriptor's build range admits the
// given host build.
func (d *Descriptor) IsCompatibleWith(hostBuild string) bool {
	if hostBuild == "" {
		return true
	}
	if d.SinceBuild != "" && version.Compare(hostBuild, d.SinceBuild) < 0 {
		return false
	}
	if d.UntilBuild != "" && version.Compare(hostBuild, d.UntilBuild) > 0 {
		return false
	}
	return true
}

// ValidationError represents a manifest validation error
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}
