package dataset

import (
	"encoding/gob"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"dataco-dashboard/internal/models"
)

const cacheVersion = "v2"

type cacheEntry struct {
	Version   string
	Orders    []models.Order
	Skipped   int
	CreatedAt time.Time
}

func cacheFile(dir, source string) string {
	name := strings.NewReplacer("/", "_", "\\", "_", ":", "_").Replace(filepath.Clean(source))
	return filepath.Join(dir, fmt.Sprintf("%s_%s.gob", name, cacheVersion))
}

func writeCache(dir, source string, entry cacheEntry) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	f, err := os.Create(cacheFile(dir, source))
	if err != nil {
		return err
	}
	defer f.Close()

	entry.Version = cacheVersion
	return gob.NewEncoder(f).Encode(entry)
}

func readCache(dir, source string) (cacheEntry, error) {
	var entry cacheEntry
	f, err := os.Open(cacheFile(dir, source))
	if err != nil {
		return entry, err
	}
	defer f.Close()

	if err := gob.NewDecoder(f).Decode(&entry); err != nil {
		return entry, err
	}
	if entry.Version != cacheVersion {
		return entry, fmt.Errorf("cache version %q, want %q", entry.Version, cacheVersion)
	}
	return entry, nil
}
