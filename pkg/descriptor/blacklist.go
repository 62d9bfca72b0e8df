package descriptor

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Blacklist is the known-bad version list: plugin versions that must never
// be offered or counted as installed-and-working.
type Blacklist struct {
	broken map[PluginID]map[string]struct{}
}

// NewBlacklist creates an empty blacklist
func NewBlacklist() *Blacklist {
	return &Blacklist{broken: make(map[PluginID]map[string]struct{})}
}

// LoadBlacklist loads a blacklist yaml file mapping plugin id to a list of
// broken versions. A missing file yields an empty blacklist.
func LoadBlacklist(path string) (*Blacklist, error) {
	bl := NewBlacklist()

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return bl, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read blacklist: %w", err)
	}

	var raw map[PluginID][]string
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse blacklist: %w", err)
	}

	for id, versions := range raw {
		for _, v := range versions {
			bl.Add(id, v)
		}
	}

	return bl, nil
}

// Add marks a plugin version as broken
func (b *Blacklist) Add(id PluginID, version string) {
	set, ok := b.broken[id]
	if !ok {
		set = make(map[string]struct{})
		b.broken[id] = set
	}
	set[version] = struct{}{}
}

// IsBroken reports whether the given plugin version is blacklisted
func (b *Blacklist) IsBroken(id PluginID, version string) bool {
	if b == nil {
		return false
	}
	_, ok := b.broken[id][version]
	return ok
}
