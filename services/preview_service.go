package services

import (
	"errors"
	"os"
	"sync"
	"time"

	"protocol-review-api/utils"
)

// Preview is what the preview endpoint returns: either the content of one
// file/entry, or a container's entry list when no single entry could be
// chosen.
type Preview struct {
	Entry   string   `json:"entry,omitempty"`
	Content []byte   `json:"-"`
	Entries []string `json:"entries,omitempty"`
}

type previewCacheEntry struct {
	preview  *Preview
	cachedAt time.Time
}

// PreviewService reads stored documents for inline preview. Extracted
// content is cached per (storage path, entry) in a bounded cache: fixed
// capacity with oldest-first eviction, plus a TTL so replaced blobs age out
// without an external cleanup call.
type PreviewService struct {
	mu       sync.Mutex
	cache    map[string]previewCacheEntry
	capacity int
	ttl      time.Duration
	now      func() time.Time
}

func NewPreviewService() *PreviewService {
	return &PreviewService{
		cache:    make(map[string]previewCacheEntry),
		capacity: 64,
		ttl:      5 * time.Minute,
		now:      time.Now,
	}
}

// Preview returns the content at a storage path. Plain files return their
// bytes. For compressed containers: a named entry returns that entry's
// content, and a missing or unnamed entry returns the container's entry
// list instead.
func (s *PreviewService) Preview(storagePath, entry string) (*Preview, error) {
	key := storagePath + "::" + entry
	if cached, ok := s.lookup(key); ok {
		return cached, nil
	}

	preview, err := s.load(storagePath, entry)
	if err != nil {
		return nil, err
	}
	s.put(key, preview)
	return preview, nil
}

// PreviewLegacy resolves an older client's (protocolID, filename) pair to a
// storage path and previews it.
func (s *PreviewService) PreviewLegacy(protocolID, filename, entry string) (*Preview, error) {
	return s.Preview(utils.StoragePath(protocolID, filename), entry)
}

func (s *PreviewService) load(storagePath, entry string) (*Preview, error) {
	if !utils.IsArchive(storagePath) {
		content, err := os.ReadFile(storagePath)
		if err != nil {
			return nil, err
		}
		return &Preview{Content: content}, nil
	}

	if entry != "" {
		content, err := utils.ExtractEntry(storagePath, entry)
		if err == nil {
			return &Preview{Entry: entry, Content: content}, nil
		}
		if !errors.Is(err, utils.ErrEntryNotFound) {
			return nil, err
		}
		// Unknown entry: fall through to the listing.
	}

	entries, err := utils.ListEntries(storagePath)
	if err != nil {
		return nil, err
	}
	if entry == "" && len(entries) == 1 {
		content, err := utils.ExtractEntry(storagePath, entries[0])
		if err != nil {
			return nil, err
		}
		return &Preview{Entry: entries[0], Content: content}, nil
	}
	return &Preview{Entries: entries}, nil
}

func (s *PreviewService) lookup(key string) (*Preview, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cached, ok := s.cache[key]
	if !ok {
		return nil, false
	}
	if s.now().Sub(cached.cachedAt) > s.ttl {
		delete(s.cache, key)
		return nil, false
	}
	return cached.preview, true
}

func (s *PreviewService) put(key string, preview *Preview) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.cache) >= s.capacity {
		s.evictOldest()
	}
	s.cache[key] = previewCacheEntry{preview: preview, cachedAt: s.now()}
}

// evictOldest assumes s.mu is held.
func (s *PreviewService) evictOldest() {
	var oldestKey string
	var oldestAt time.Time
	for key, entry := range s.cache {
		if oldestKey == "" || entry.cachedAt.Before(oldestAt) {
			oldestKey = key
			oldestAt = entry.cachedAt
		}
	}
	if oldestKey != "" {
		delete(s.cache, oldestKey)
	}
}
