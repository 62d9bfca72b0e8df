package staging

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/updraft-io/updraft/pkg/descriptor"
)

// ManifestFileName is the staging manifest listing pending updates.
const ManifestFileName = "updates.json"

// UpdateInfo is one staged candidate update: which plugin it targets, where
// that plugin is currently installed, and the artifact file name inside the
// staging directory.
type UpdateInfo struct {
	PluginID      descriptor.PluginID `json:"plugin_id"`
	InstalledPath string              `json:"installed_path"`
	ArtifactName  string              `json:"artifact_name"`
}

// Repository is the staged-update store: a directory holding one zip
// artifact per pending update plus an updates.json manifest. It is written
// by an external producer between runs and consumed exactly once per run.
type Repository struct {
	dir string
}

// NewRepository creates a repository rooted at dir, creating it if needed
func NewRepository(dir string) (*Repository, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create staging directory: %w", err)
	}
	return &Repository{dir: dir}, nil
}

// Dir returns the staging directory path
func (r *Repository) Dir() string {
	return r.dir
}

// ArtifactPath returns the absolute path of a staged artifact
func (r *Repository) ArtifactPath(info UpdateInfo) string {
	return filepath.Join(r.dir, info.ArtifactName)
}

// List reads the staging manifest. A missing manifest means no pending
// updates.
func (r *Repository) List() (map[descriptor.PluginID]UpdateInfo, error) {
	data, err := os.ReadFile(filepath.Join(r.dir, ManifestFileName))
	if os.IsNotExist(err) {
		return map[descriptor.PluginID]UpdateInfo{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read staging manifest: %w", err)
	}

	var updates map[descriptor.PluginID]UpdateInfo
	if err := json.Unmarshal(data, &updates); err != nil {
		return nil, fmt.Errorf("failed to parse staging manifest: %w", err)
	}

	return updates, nil
}

// Stage records a staged artifact in the manifest. The artifact file itself
// must already be in the staging directory.
func (r *Repository) Stage(info UpdateInfo) error {
	if info.PluginID == "" {
		return fmt.Errorf("plugin id is required")
	}
	if info.ArtifactName == "" {
		return fmt.Errorf("artifact name is required")
	}

	updates, err := r.List()
	if err != nil {
		return err
	}
	updates[info.PluginID] = info

	data, err := json.MarshalIndent(updates, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal staging manifest: %w", err)
	}

	if err := os.WriteFile(filepath.Join(r.dir, ManifestFileName), data, 0644); err != nil {
		return fmt.Errorf("failed to write staging manifest: %w", err)
	}

	return nil
}

// Clear removes every staged artifact and the manifest. Individual removal
// failures do not stop the sweep; the first error is reported after the
// directory has been walked.
func (r *Repository) Clear() error {
	entries, err := os.ReadDir(r.dir)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read staging directory: %w", err)
	}

	var firstErr error
	for _, entry := range entries {
		if err := os.RemoveAll(filepath.Join(r.dir, entry.Name())); err != nil && firstErr == nil {
			firstErr = err
		}
	}

	return firstErr
}
