package updater

import (
	"sync"
)

// Statistics is the once-per-process outcome of the update run.
type Statistics struct {
	// UpdatesPrepared counts candidates that passed reconciliation.
	UpdatesPrepared int `json:"updates_prepared"`
	// PluginsUpdated counts candidates whose artifact was unpacked
	// successfully.
	PluginsUpdated int `json:"plugins_updated"`
}

// ResultCell is a write-once, read-many slot for the run result. The first
// publish wins; readers arriving before publication get ok=false instead of
// blocking.
type ResultCell struct {
	mu        sync.Mutex
	published bool
	stats     Statistics
	err       error
}

// NewResultCell creates an empty, unpublished cell
func NewResultCell() *ResultCell {
	return &ResultCell{}
}

// Publish stores the run result. Returns false if a result was already
// published; the later value is discarded.
func (c *ResultCell) Publish(stats Statistics, err error) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.published {
		return false
	}

	c.published = true
	c.stats = stats
	c.err = err
	return true
}

// Get returns the published result without blocking. ok is false until a
// result has been published.
func (c *ResultCell) Get() (stats Statistics, err error, ok bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stats, c.err, c.published
}
