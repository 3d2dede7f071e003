package services

import (
	"context"
	"time"
)

// ListCache stores serialized full-table listings. Implementations must be
// safe for concurrent use; a miss is reported as (nil, false, nil).
type ListCache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
}
