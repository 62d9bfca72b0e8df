package inventory

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/updraft-io/updraft/pkg/descriptor"
)

// DisabledStore answers whether a plugin id is disabled in the host
// configuration. Backed by a plain text file, one id per line, '#' comments.
type DisabledStore struct {
	disabled map[descriptor.PluginID]struct{}
}

// NewDisabledStore creates a store with the given ids disabled
func NewDisabledStore(ids ...descriptor.PluginID) *DisabledStore {
	s := &DisabledStore{disabled: make(map[descriptor.PluginID]struct{}, len(ids))}
	for _, id := range ids {
		s.disabled[id] = struct{}{}
	}
	return s
}

// LoadDisabledStore reads the disabled-plugins file. A missing file means
// nothing is disabled.
func LoadDisabledStore(path string) (*DisabledStore, error) {
	s := NewDisabledStore()

	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open disabled plugins file: %w", err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		s.disabled[descriptor.PluginID(line)] = struct{}{}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read disabled plugins file: %w", err)
	}

	return s, nil
}

// IsDisabled reports whether the plugin id is disabled
func (s *DisabledStore) IsDisabled(id descriptor.PluginID) bool {
	if s == nil {
		return false
	}
	_, ok := s.disabled[id]
	return ok
}
