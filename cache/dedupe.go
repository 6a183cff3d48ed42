// Package cache holds in-memory caches used while reading tracks.
package cache

import (
	"sync"

	"github.com/golang/groupcache/lru"
	"github.com/mitchellh/hashstructure/v2"
)

// Deduper remembers the hashes of recently seen values.
// It is safe for concurrent use.
type Deduper struct {
	mu   sync.Mutex
	seen *lru.Cache
}

// NewDeduper remembers up to size values.
func NewDeduper(size int) *Deduper {
	return &Deduper{seen: lru.New(size)}
}

// Pass returns true if v has not been seen among the remembered values.
// Values that cannot be hashed always pass.
func (d *Deduper) Pass(v any) bool {
	hash, err := hashstructure.Hash(v, hashstructure.FormatV2, nil)
	if err != nil {
		return true
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.seen.Get(hash); ok {
		return false
	}
	d.seen.Add(hash, struct{}{})
	return true
}

// PassBytes is Pass for raw lines.
func (d *Deduper) PassBytes(b []byte) bool {
	return d.Pass(string(b))
}

func (d *Deduper) Len() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.seen.Len()
}
