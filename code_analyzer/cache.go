package code_analyzer

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/meysamhadeli/codai-impact/code_analyzer/models"
	"github.com/zeebo/xxh3"
	"go.trai.ch/zerr"
)

const (
	cacheEntryExt = ".json"
	cacheTempExt  = ".tmp"

	// DefaultCacheDirName is the cache directory created under the working directory.
	DefaultCacheDirName = ".cache/dependency_cache"
)

// CacheStats tracks cache performance metrics
type CacheStats struct {
	TotalRequests int64
	CacheHits     int64
	CacheMisses   int64
	LastResetTime time.Time
	mutex         sync.RWMutex
}

// CacheStore persists one analyzed module per file, keyed by a hash of its absolute path
// and valid only while the module's modification time is unchanged.
type CacheStore struct {
	cacheDir string
	// mutex lets Get and Put run concurrently while Clear has the directory to itself
	mutex sync.RWMutex
	stats *CacheStats
}

// NewCacheStore creates a cache store rooted at cacheDir.
// If cacheDir is empty, it defaults to ".cache/dependency_cache" in the current working directory.
func NewCacheStore(cacheDir string) (*CacheStore, error) {
	if cacheDir == "" {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, zerr.Wrap(err, "failed to get current working directory")
		}
		cacheDir = filepath.Join(cwd, filepath.FromSlash(DefaultCacheDirName))
	}

	if err := os.MkdirAll(cacheDir, 0o750); err != nil {
		return nil, zerr.With(zerr.Wrap(err, "failed to create cache directory"), "dir", cacheDir)
	}

	return &CacheStore{
		cacheDir: cacheDir,
		stats: &CacheStats{
			LastResetTime: time.Now(),
		},
	}, nil
}

// Dir returns the directory holding the cache entries.
func (cs *CacheStore) Dir() string {
	return cs.cacheDir
}

// FileMtime converts a modification time into the float seconds stored in cache entries.
func FileMtime(info os.FileInfo) float64 {
	return float64(info.ModTime().UnixNano()) / 1e9
}

// generateCacheKey creates a unique cache key for a file
func generateCacheKey(absPath string) string {
	return fmt.Sprintf("%016x%s", xxh3.HashString(absPath), cacheEntryExt)
}

// getCachePath returns the full path to a cache file
func (cs *CacheStore) getCachePath(absPath string) string {
	return filepath.Join(cs.cacheDir, generateCacheKey(absPath))
}

// Get returns the cached dependency of absPath when the entry exists, decodes,
// and its stored mtime equals the file's current mtime.
func (cs *CacheStore) Get(absPath string) (*models.FileDependency, bool) {
	cs.mutex.RLock()
	defer cs.mutex.RUnlock()

	entry, ok := cs.readEntry(cs.getCachePath(absPath))
	if !ok {
		cs.recordCacheMiss()
		return nil, false
	}

	fileInfo, err := os.Stat(absPath)
	if err != nil || FileMtime(fileInfo) != entry.Mtime {
		cs.recordCacheMiss()
		return nil, false
	}

	cs.recordCacheHit()
	dependency := entry.Dependency
	return &dependency, true
}

// Put stores the dependency of absPath with the mtime it was computed at.
// The entry is written to a temporary file and renamed into place, so readers
// never observe a partial entry.
func (cs *CacheStore) Put(absPath string, dependency models.FileDependency, mtime float64) error {
	cs.mutex.RLock()
	defer cs.mutex.RUnlock()

	data, err := json.Marshal(models.CacheEntry{Mtime: mtime, Dependency: dependency})
	if err != nil {
		return zerr.Wrap(err, "failed to encode cache entry")
	}

	cachePath := cs.getCachePath(absPath)
	tmp, err := os.CreateTemp(cs.cacheDir, filepath.Base(cachePath)+".*"+cacheTempExt)
	if err != nil {
		return zerr.Wrap(err, "failed to create temporary cache file")
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return zerr.Wrap(err, "failed to write cache file")
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return zerr.Wrap(err, "failed to sync cache file")
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return zerr.Wrap(err, "failed to close cache file")
	}
	if err := os.Chmod(tmpPath, 0o644); err != nil { //nolint:gosec // cache entries are not secret
		_ = os.Remove(tmpPath)
		return zerr.Wrap(err, "failed to set cache file permissions")
	}

	if err := os.Rename(tmpPath, cachePath); err != nil {
		_ = os.Remove(tmpPath)
		return zerr.With(zerr.Wrap(err, "failed to move cache file into place"), "path", cachePath)
	}

	return nil
}

// readEntry decodes a cache file; missing or corrupt entries report false
func (cs *CacheStore) readEntry(cachePath string) (*models.CacheEntry, bool) {
	data, err := os.ReadFile(cachePath) //nolint:gosec // path is derived from the cache dir
	if err != nil {
		return nil, false
	}

	var entry models.CacheEntry
	if err := json.Unmarshal(data, &entry); err != nil {
		return nil, false
	}
	return &entry, true
}

// Delete removes the cache entry of absPath
func (cs *CacheStore) Delete(absPath string) error {
	cs.mutex.Lock()
	defer cs.mutex.Unlock()

	if err := os.Remove(cs.getCachePath(absPath)); err != nil && !os.IsNotExist(err) {
		return zerr.Wrap(err, "failed to delete cache file")
	}
	return nil
}

// Clear removes every cache entry and leftover temporary file, returning how many files were deleted.
func (cs *CacheStore) Clear() (int, error) {
	cs.mutex.Lock()
	defer cs.mutex.Unlock()

	files, err := os.ReadDir(cs.cacheDir)
	if err != nil {
		return 0, zerr.Wrap(err, "failed to read cache directory")
	}

	var deletedCount int
	for _, file := range files {
		if file.IsDir() || !isCacheFile(file.Name()) {
			continue
		}
		if err := os.Remove(filepath.Join(cs.cacheDir, file.Name())); err == nil {
			deletedCount++
		}
	}

	return deletedCount, nil
}

// CleanExpiredCache removes entries that were written more than maxAge ago
func (cs *CacheStore) CleanExpiredCache(maxAge time.Duration) (int, error) {
	cs.mutex.Lock()
	defer cs.mutex.Unlock()

	files, err := os.ReadDir(cs.cacheDir)
	if err != nil {
		return 0, zerr.Wrap(err, "failed to read cache directory")
	}

	cutoff := time.Now().Add(-maxAge)
	var deletedCount int

	for _, file := range files {
		if file.IsDir() || !isCacheFile(file.Name()) {
			continue
		}
		info, err := file.Info()
		if err != nil {
			continue
		}
		if info.ModTime().Before(cutoff) {
			if err := os.Remove(filepath.Join(cs.cacheDir, file.Name())); err == nil {
				deletedCount++
			}
		}
	}

	return deletedCount, nil
}

// GetCacheStats returns storage statistics of the cache directory
func (cs *CacheStore) GetCacheStats() (map[string]interface{}, error) {
	cs.mutex.RLock()
	defer cs.mutex.RUnlock()

	files, err := os.ReadDir(cs.cacheDir)
	if err != nil {
		return nil, zerr.Wrap(err, "failed to read cache directory")
	}

	var totalSize int64
	var entries int
	for _, file := range files {
		if file.IsDir() || !strings.HasSuffix(file.Name(), cacheEntryExt) {
			continue
		}
		info, err := file.Info()
		if err != nil {
			continue
		}
		entries++
		totalSize += info.Size()
	}

	stats := cs.GetPerformanceStats()
	stats["cache_enabled"] = true
	stats["cache_files"] = entries
	stats["total_size"] = totalSize
	stats["cache_dir"] = cs.cacheDir

	return stats, nil
}

func isCacheFile(name string) bool {
	return strings.HasSuffix(name, cacheEntryExt) || strings.HasSuffix(name, cacheTempExt)
}

// NopCache is used when caching is disabled: every lookup misses and nothing is stored.
type NopCache struct {
	misses int64
	mutex  sync.Mutex
}

// Get always misses
func (n *NopCache) Get(string) (*models.FileDependency, bool) {
	n.mutex.Lock()
	defer n.mutex.Unlock()
	n.misses++
	return nil, false
}

// Put discards the entry
func (n *NopCache) Put(string, models.FileDependency, float64) error {
	return nil
}

// Hits is always zero
func (n *NopCache) Hits() int64 {
	return 0
}

// Misses returns the number of lookups
func (n *NopCache) Misses() int64 {
	n.mutex.Lock()
	defer n.mutex.Unlock()
	return n.misses
}
