package inventory

import (
	"os"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/updraft-io/updraft/pkg/descriptor"
)

const defaultCacheSize = 512

// ManifestCache memoizes parsed plugin manifests keyed by path. Entries are
// invalidated when the file's mtime or size changes, so repeated snapshots
// within one process skip re-parsing untouched plugins.
type ManifestCache struct {
	cache *lru.Cache[string, cachedManifest]
}

type cachedManifest struct {
	desc    *descriptor.Descriptor
	modTime time.Time
	size    int64
}

// NewManifestCache creates a cache holding up to size entries. A size of 0
// uses the default.
func NewManifestCache(size int) (*ManifestCache, error) {
	if size <= 0 {
		size = defaultCacheSize
	}
	c, err := lru.New[string, cachedManifest](size)
	if err != nil {
		return nil, err
	}
	return &ManifestCache{cache: c}, nil
}

// Load returns the parsed manifest at path, from cache when the file is
// unchanged since the cached parse.
func (c *ManifestCache) Load(path string) (*descriptor.Descriptor, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}

	if entry, ok := c.cache.Get(path); ok {
		if entry.modTime.Equal(info.ModTime()) && entry.size == info.Size() {
			return entry.desc, nil
		}
	}

	desc, err := descriptor.LoadManifest(path)
	if err != nil {
		return nil, err
	}

	c.cache.Add(path, cachedManifest{
		desc:    desc,
		modTime: info.ModTime(),
		size:    info.Size(),
	})

	return desc, nil
}

// Purge drops all cached entries
func (c *ManifestCache) Purge() {
	c.cache.Purge()
}
