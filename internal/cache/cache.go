package cache

import (
	"context"
	"time"
)

// BytesCache is a TTL key/value cache for opaque payloads. A miss is
// (nil, false, nil), not an error.
type BytesCache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}
