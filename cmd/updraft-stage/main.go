package main

import (
	"flag"
	"fmt"
	"path/filepath"

	"github.com/sirupsen/logrus"

	"github.com/updraft-io/updraft/pkg/config"
	"github.com/updraft-io/updraft/pkg/descriptor"
	"github.com/updraft-io/updraft/pkg/staging"
	"github.com/updraft-io/updraft/pkg/unpack"
)

// updraft-stage packs a built plugin directory into a zip artifact and
// records it in the staging manifest, where the next updraft run picks it up.
func main() {
	srcDir := flag.String("src", "", "Directory containing the built plugin (with plugin.yaml)")
	stagingDir := flag.String("staging-dir", "", "Staging directory (defaults to UPDRAFT_STAGING_DIR)")
	installedPath := flag.String("installed-path", "", "Current install path of the plugin (defaults to <plugins-dir>/<id>)")
	flag.Parse()

	log := logrus.New()

	if *srcDir == "" {
		log.Fatal("-src is required")
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if *stagingDir == "" {
		*stagingDir = cfg.Paths.StagingDir
	}

	desc, err := descriptor.LoadManifestFromDir(*srcDir)
	if err != nil {
		log.Fatalf("Failed to load plugin manifest from %s: %v", *srcDir, err)
	}

	if *installedPath == "" {
		*installedPath = filepath.Join(cfg.Paths.PluginsDir, string(desc.ID))
	}

	repo, err := staging.NewRepository(*stagingDir)
	if err != nil {
		log.Fatalf("Failed to open staging repository: %v", err)
	}

	artifact := fmt.Sprintf("%s-%s.zip", desc.ID, desc.Version)
	if err := unpack.Pack(*srcDir, filepath.Join(repo.Dir(), artifact)); err != nil {
		log.Fatalf("Failed to pack plugin: %v", err)
	}

	err = repo.Stage(staging.UpdateInfo{
		PluginID:      desc.ID,
		InstalledPath: *installedPath,
		ArtifactName:  artifact,
	})
	if err != nil {
		log.Fatalf("Failed to stage update: %v", err)
	}

	log.Infof("Staged update for %s version %s as %s", desc.ID, desc.Version, artifact)
}
