// Package cache provides small byte-oriented caches used for slow-changing
// dimension snapshots.
package cache

import "time"

// BytesCache stores raw bytes under string keys with per-entry TTL.
type BytesCache interface {
	GetBytes(key string) (b []byte, ok bool, err error)
	SetBytes(key string, value []byte, ttl time.Duration) error
}
