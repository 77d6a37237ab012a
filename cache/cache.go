// Package cache implements the pluggable TTL-keyed store used to memoize
// single-node executor results. Implementations must treat entries
// older than their TTL as absent and must be safe for concurrent use;
// the store is shared across every single-node executor in a run.
package cache

import "time"

// Store is the cache contract every backend implements.
type Store interface {
	// Get returns the value stored under key and whether it was found and
	// still live. An expired entry reports found=false.
	Get(key string) (value any, found bool)
	// Set stores value under key with the given time-to-live.
	Set(key string, value any, ttl time.Duration)
	// Delete removes key, if present.
	Delete(key string)
}
