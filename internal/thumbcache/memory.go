package thumbcache

import (
	"image"

	"github.com/hashicorp/golang-lru/v2/simplelru"
)

// memoryTier is the in-process LRU cache of decoded thumbnails.
//
// It is not synchronized; the Cache façade serializes all access.
type memoryTier struct {
	lru *simplelru.LRU[string, image.Image]
}

func newMemoryTier(capacity int) (*memoryTier, error) {
	lru, err := simplelru.NewLRU[string, image.Image](capacity, nil)
	if err != nil {
		return nil, err
	}
	return &memoryTier{lru: lru}, nil
}

// get returns the cached thumbnail and marks it most recently used.
func (m *memoryTier) get(key string) (image.Image, bool) {
	return m.lru.Get(key)
}

// put inserts or overwrites an entry, evicting the least recently used
// entry first when at capacity.
func (m *memoryTier) put(key string, img image.Image) {
	m.lru.Add(key, img)
}

func (m *memoryTier) len() int {
	return m.lru.Len()
}

func (m *memoryTier) clear() {
	m.lru.Purge()
}
