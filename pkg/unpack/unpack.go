package unpack

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/zip"

	"github.com/updraft-io/updraft/pkg/descriptor"
)

// maxManifestSize bounds how much of an artifact's manifest is read.
const maxManifestSize = 1 << 20

// ReadDescriptor parses the plugin.yaml manifest inside a staged zip
// artifact without extracting it.
func ReadDescriptor(artifactPath string) (*descriptor.Descriptor, error) {
	r, err := zip.OpenReader(artifactPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open artifact: %w", err)
	}
	defer r.Close()

	for _, f := range r.File {
		if filepath.Base(f.Name) != descriptor.ManifestFileName {
			continue
		}

		rc, err := f.Open()
		if err != nil {
			return nil, fmt.Errorf("failed to open manifest in artifact: %w", err)
		}
		data, err := io.ReadAll(io.LimitReader(rc, maxManifestSize))
		rc.Close()
		if err != nil {
			return nil, fmt.Errorf("failed to read manifest in artifact: %w", err)
		}

		return descriptor.ParseManifest(data)
	}

	return nil, fmt.Errorf("artifact has no %s", descriptor.ManifestFileName)
}

// Unpack extracts a zip artifact into destDir, replacing any previous
// contents. Entry paths escaping destDir are rejected.
func Unpack(artifactPath, destDir string) error {
	r, err := zip.OpenReader(artifactPath)
	if err != nil {
		return fmt.Errorf("failed to open artifact: %w", err)
	}
	defer r.Close()

	// Replace the previous install in place.
	if err := os.RemoveAll(destDir); err != nil {
		return fmt.Errorf("failed to remove previous install: %w", err)
	}
	if err := os.MkdirAll(destDir, 0755); err != nil {
		return fmt.Errorf("failed to create destination: %w", err)
	}

	for _, f := range r.File {
		if err := extractFile(f, destDir); err != nil {
			return err
		}
	}

	return nil
}

func extractFile(f *zip.File, destDir string) error {
	target, err := sanitizePath(destDir, f.Name)
	if err != nil {
		return err
	}

	if f.FileInfo().IsDir() {
		return os.MkdirAll(target, 0755)
	}

	if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
		return fmt.Errorf("failed to create directory for %s: %w", f.Name, err)
	}

	rc, err := f.Open()
	if err != nil {
		return fmt.Errorf("failed to open %s in artifact: %w", f.Name, err)
	}
	defer rc.Close()

	out, err := os.OpenFile(target, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, f.Mode().Perm()|0600)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", target, err)
	}
	defer out.Close()

	if _, err := io.Copy(out, rc); err != nil {
		return fmt.Errorf("failed to extract %s: %w", f.Name, err)
	}

	return nil
}

// sanitizePath rejects zip entries that would escape the destination
func sanitizePath(destDir, name string) (string, error) {
	target := filepath.Join(destDir, filepath.FromSlash(name))
	if !strings.HasPrefix(target, filepath.Clean(destDir)+string(os.PathSeparator)) {
		return "", fmt.Errorf("artifact entry escapes destination: %s", name)
	}
	return target, nil
}

// Pack zips the contents of srcDir into artifactPath. Used by the staging
// producer and by tests to build artifacts.
func Pack(srcDir, artifactPath string) error {
	out, err := os.Create(artifactPath)
	if err != nil {
		return fmt.Errorf("failed to create artifact: %w", err)
	}
	defer out.Close()

	w := zip.NewWriter(out)
	defer w.Close()

	err = filepath.Walk(srcDir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}

		rel, err := filepath.Rel(srcDir, path)
		if err != nil {
			return err
		}

		fw, err := w.Create(filepath.ToSlash(rel))
		if err != nil {
			return err
		}

		in, err := os.Open(path)
		if err != nil {
			return err
		}
		defer in.Close()

		_, err = io.Copy(fw, in)
		return err
	})
	if err != nil {
		return fmt.Errorf("failed to pack %s: %w", srcDir, err)
	}

	return w.Close()
}
