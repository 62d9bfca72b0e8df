package descriptor

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"

	"gopkg.in/yaml.v3"
)

// ManifestFileName is the descriptor file looked up inside a plugin
// directory or update artifact.
const ManifestFileName = "plugin.yaml"

var versionRegex = regexp.MustCompile(`^v?(\d+)(\.\d+)*([-+][a-zA-Z0-9.-]+)?$`)

// LoadManifest loads and parses a plugin descriptor from a file
func LoadManifest(path string) (*Descriptor, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}
	return ParseManifest(data)
}

// LoadManifestFromDir loads a plugin descriptor from a directory (looks for plugin.yaml)
func LoadManifestFromDir(dir string) (*Descriptor, error) {
	return LoadManifest(filepath.Join(dir, ManifestFileName))
}

// ParseManifest parses descriptor yaml and validates it.
func ParseManifest(data []byte) (*Descriptor, error) {
	var desc Descriptor
	if err := yaml.Unmarshal(data, &desc); err != nil {
		return nil, fmt.Errorf("failed to parse manifest: %w", err)
	}

	if errs := ValidateManifest(&desc); len(errs) > 0 {
		return nil, fmt.Errorf("manifest validation failed: %v", errs)
	}

	return &desc, nil
}

// SaveManifest saves a plugin descriptor to a file
func SaveManifest(desc *Descriptor, path string) error {
	data, err := yaml.Marshal(desc)
	if err != nil {
		return fmt.Errorf("failed to marshal manifest: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write manifest: %w", err)
	}

	return nil
}

// ValidateManifest performs basic validation on a plugin descriptor
func ValidateManifest(desc *Descriptor) []ValidationError {
	var errors []ValidationError

	if desc.ID == "" {
		errors = append(errors, ValidationError{
			Field:   "id",
			Message: "Plugin ID is required",
		})
	}

	if desc.Version == "" {
		errors = append(errors, ValidationError{
			Field:   "version",
			Message: "Version is required",
		})
	}

	if desc.Version != "" && !isValidVersion(desc.Version) {
		errors = append(errors, ValidationError{
			Field:   "version",
			Message: fmt.Sprintf("Invalid version format: %s", desc.Version),
		})
	}

	for i, dep := range desc.Dependencies {
		if dep.ID == "" {
			errors = append(errors, ValidationError{
				Field:   fmt.Sprintf("dependencies[%d].id", i),
				Message: "Dependency ID is required",
			})
		}
		if dep.ID == desc.ID {
			errors = append(errors, ValidationError{
				Field:   fmt.Sprintf("dependencies[%d].id", i),
				Message: "Plugin cannot depend on itself",
			})
		}
	}

	return errors
}

// isValidVersion checks if a version string has an orderable format
func isValidVersion(v string) bool {
	return versionRegex.MatchString(v)
}
