package inventory

import (
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"

	"github.com/updraft-io/updraft/pkg/descriptor"
)

// Scanner builds InstalledView snapshots from the host plugin directory.
// Each plugin is a subdirectory containing a plugin.yaml manifest; disabled
// plugins are still present on disk and land in the incomplete map.
type Scanner struct {
	pluginDir string
	disabled  *DisabledStore
	cache     *ManifestCache
	log       *logrus.Logger
}

// NewScanner creates a scanner over pluginDir
func NewScanner(pluginDir string, disabled *DisabledStore, cache *ManifestCache, log *logrus.Logger) *Scanner {
	if log == nil {
		log = logrus.New()
	}
	return &Scanner{
		pluginDir: pluginDir,
		disabled:  disabled,
		cache:     cache,
		log:       log,
	}
}

// Snapshot scans the plugin directory once and returns the installed view.
// Plugins whose manifest cannot be read are logged and skipped, matching the
// host's behavior of ignoring unloadable plugins rather than failing startup.
func (s *Scanner) Snapshot() (*View, error) {
	full := make(map[descriptor.PluginID]*descriptor.Descriptor)
	incomplete := make(map[descriptor.PluginID]*descriptor.Descriptor)

	entries, err := os.ReadDir(s.pluginDir)
	if os.IsNotExist(err) {
		s.log.Debugf("Plugin directory does not exist: %s", s.pluginDir)
		return NewView(full, incomplete), nil
	}
	if err != nil {
		return nil, err
	}

	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}

		dir := filepath.Join(s.pluginDir, entry.Name())
		desc, err := s.loadManifest(dir)
		if err != nil {
			s.log.Warnf("Failed to load plugin manifest from %s: %v", dir, err)
			continue
		}

		if s.disabled.IsDisabled(desc.ID) {
			incomplete[desc.ID] = desc
		} else {
			full[desc.ID] = desc
		}
	}

	return NewView(full, incomplete), nil
}

// InstalledPath returns the installation directory for a plugin id. The
// directory is named after the id, which is how the unpacker lays plugins out.
func (s *Scanner) InstalledPath(id descriptor.PluginID) string {
	return filepath.Join(s.pluginDir, string(id))
}

func (s *Scanner) loadManifest(dir string) (*descriptor.Descriptor, error) {
	path := filepath.Join(dir, descriptor.ManifestFileName)
	if s.cache != nil {
		return s.cache.Load(path)
	}
	return descriptor.LoadManifest(path)
}
