package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"regexp"
	"strconv"

	"github.com/inferencemax/dashboard/pkg/models"
)

const (
	cacheDirMode  = 0755
	cacheFileMode = 0644
)

// ErrNotFound is returned by Load when no entry is stored for a key.
var ErrNotFound = errors.New("cache entry not found")

var unsafeFileChars = regexp.MustCompile(`[^A-Za-z0-9]`)

// DiskStore keeps cache entries as JSON files in one directory, one file per
// (workflow, days) key.
type DiskStore struct {
	dir string
}

// NewDiskStore creates a DiskStore rooted at dir. The directory is created on
// first write.
func NewDiskStore(dir string) *DiskStore {
	return &DiskStore{dir: dir}
}

// Dir returns the cache directory.
func (s *DiskStore) Dir() string {
	return s.dir
}

// Path returns the file an entry for (workflow, days) is stored in:
// cache_<workflow with every non-alphanumeric replaced by "_">_<days>.json.
func (s *DiskStore) Path(workflow string, days int) string {
	name := "cache_" + unsafeFileChars.ReplaceAllString(workflow, "_") + "_" + strconv.Itoa(days) + ".json"
	return filepath.Join(s.dir, name)
}

// Load reads the entry stored for (workflow, days).
func (s *DiskStore) Load(workflow string, days int) (*models.CacheEntry, error) {
	data, err := os.ReadFile(s.Path(workflow, days))
	if os.IsNotExist(err) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read cache file: %w", err)
	}

	var entry models.CacheEntry
	if err := json.Unmarshal(data, &entry); err != nil {
		return nil, fmt.Errorf("failed to parse cache file: %w", err)
	}
	return &entry, nil
}

// Save writes entry under its own (Workflow, Days) key. The file is written
// to a temporary name and renamed into place, so readers never observe a
// partial file and the last writer wins.
func (s *DiskStore) Save(entry *models.CacheEntry) error {
	if err := os.MkdirAll(s.dir, cacheDirMode); err != nil {
		return fmt.Errorf("failed to create cache directory: %w", err)
	}

	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to marshal cache entry: %w", err)
	}

	path := s.Path(entry.Workflow, entry.Days)
	tmp, err := os.CreateTemp(s.dir, filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp cache file: %w", err)
	}
	tmpName := tmp.Name()

	_, werr := tmp.Write(data)
	cerr := tmp.Close()
	if werr == nil {
		werr = cerr
	}
	if werr == nil {
		werr = os.Chmod(tmpName, cacheFileMode)
	}
	if werr == nil {
		werr = os.Rename(tmpName, path)
	}
	if werr != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to write cache file: %w", werr)
	}

	log.Printf("[DiskStore] Saved %d records for %s/%dd to %s", len(entry.Data), entry.Workflow, entry.Days, path)
	return nil
}

// Remove deletes the entry for (workflow, days). Removing a missing entry is not an error.
func (s *DiskStore) Remove(workflow string, days int) error {
	err := os.Remove(s.Path(workflow, days))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove cache file: %w", err)
	}
	return nil
}
