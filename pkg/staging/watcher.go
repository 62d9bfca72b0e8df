package staging

import (
	"context"
	"fmt"

	"github.com/fsnotify/fsnotify"
	"github.com/sirupsen/logrus"
)

// Watcher logs artifacts arriving in the staging directory. Purely
// diagnostic: staged updates are only consumed on the next run, the watcher
// never triggers an apply.
type Watcher struct {
	repo *Repository
	log  *logrus.Logger
}

// NewWatcher creates a watcher over the repository's directory
func NewWatcher(repo *Repository, log *logrus.Logger) *Watcher {
	if log == nil {
		log = logrus.New()
	}
	return &Watcher{repo: repo, log: log}
}

// Run watches the staging directory until the context is cancelled
func (w *Watcher) Run(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create staging watcher: %w", err)
	}
	defer fw.Close()

	if err := fw.Add(w.repo.Dir()); err != nil {
		return fmt.Errorf("failed to watch staging directory: %w", err)
	}

	w.log.Infof("Watching staging directory %s", w.repo.Dir())

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if event.Has(fsnotify.Create) || event.Has(fsnotify.Write) {
				w.log.Infof("Staged update artifact changed: %s (applied on next startup)", event.Name)
			}
		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.log.Warnf("Staging watcher error: %v", err)
		}
	}
}
