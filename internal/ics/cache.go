package ics

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// cachedFeed is the last good copy of a feed. Body and validators live in
// one file so they can never disagree.
type cachedFeed struct {
	URL          string    `json:"url"`
	ETag         string    `json:"etag,omitempty"`
	LastModified string    `json:"last_modified,omitempty"`
	FetchedAt    time.Time `json:"fetched_at"`
	Body         []byte    `json:"body"`
}

// feedCache keeps one JSON file per feed URL under dir.
type feedCache struct {
	dir string
}

func (c feedCache) path(rawURL string) string {
	sum := sha256.Sum256([]byte(rawURL))
	return filepath.Join(c.dir, hex.EncodeToString(sum[:8])+".json")
}

// load returns the cached copy of rawURL. A missing or unreadable entry
// reads as absent.
func (c feedCache) load(rawURL string) (cachedFeed, bool) {
	data, err := os.ReadFile(c.path(rawURL))
	if err != nil {
		return cachedFeed{}, false
	}
	var feed cachedFeed
	if err := json.Unmarshal(data, &feed); err != nil || feed.URL != rawURL || len(feed.Body) == 0 {
		return cachedFeed{}, false
	}
	return feed, true
}

// store replaces the entry for feed.URL through a temp file and rename.
func (c feedCache) store(feed cachedFeed) error {
	if err := os.MkdirAll(c.dir, 0o700); err != nil {
		return fmt.Errorf("ics: cache dir: %w", err)
	}
	data, err := json.Marshal(&feed)
	if err != nil {
		return fmt.Errorf("ics: encode cache entry: %w", err)
	}

	path := c.path(feed.URL)
	tmp, err := os.CreateTemp(c.dir, ".feed-*.tmp")
	if err != nil {
		return fmt.Errorf("ics: cache temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("ics: write cache entry: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("ics: write cache entry: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("ics: replace cache entry: %w", err)
	}
	return nil
}
