package code_analyzer

import (
	"time"
)

// recordCacheHit increments cache hit counter
func (cs *CacheStore) recordCacheHit() {
	cs.stats.mutex.Lock()
	defer cs.stats.mutex.Unlock()
	cs.stats.TotalRequests++
	cs.stats.CacheHits++
}

// recordCacheMiss increments cache miss counter
func (cs *CacheStore) recordCacheMiss() {
	cs.stats.mutex.Lock()
	defer cs.stats.mutex.Unlock()
	cs.stats.TotalRequests++
	cs.stats.CacheMisses++
}

// Hits returns the number of cache hits since creation or the last reset
func (cs *CacheStore) Hits() int64 {
	cs.stats.mutex.RLock()
	defer cs.stats.mutex.RUnlock()
	return cs.stats.CacheHits
}

// Misses returns the number of cache misses since creation or the last reset
func (cs *CacheStore) Misses() int64 {
	cs.stats.mutex.RLock()
	defer cs.stats.mutex.RUnlock()
	return cs.stats.CacheMisses
}

// GetPerformanceStats returns hit/miss counters and rates
func (cs *CacheStore) GetPerformanceStats() map[string]interface{} {
	cs.stats.mutex.RLock()
	defer cs.stats.mutex.RUnlock()

	hitRate := 0.0
	missRate := 0.0
	if cs.stats.TotalRequests > 0 {
		hitRate = float64(cs.stats.CacheHits) / float64(cs.stats.TotalRequests) * 100
		missRate = float64(cs.stats.CacheMisses) / float64(cs.stats.TotalRequests) * 100
	}

	return map[string]interface{}{
		"total_requests":    cs.stats.TotalRequests,
		"cache_hits":        cs.stats.CacheHits,
		"cache_misses":      cs.stats.CacheMisses,
		"hit_rate":          hitRate,
		"miss_rate_percent": missRate,
		"uptime_seconds":    time.Since(cs.stats.LastResetTime).Seconds(),
		"last_reset":        cs.stats.LastResetTime.Format(time.RFC3339),
	}
}

// ResetPerformanceStats resets all performance counters
func (cs *CacheStore) ResetPerformanceStats() {
	cs.stats.mutex.Lock()
	defer cs.stats.mutex.Unlock()

	cs.stats.TotalRequests = 0
	cs.stats.CacheHits = 0
	cs.stats.CacheMisses = 0
	cs.stats.LastResetTime = time.Now()
}
