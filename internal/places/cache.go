// internal/places/cache.go
package places

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"time"

	"kc-restaurants/internal/common/database"
	"kc-restaurants/internal/common/logger"
)

const cacheKeyPrefix = "places:place_id:"

// Cache remembers resolved place IDs so re-runs over the same feed do not
// repeat paid text searches.
type Cache struct {
	redis *database.RedisClient
	ttl   time.Duration
	log   logger.Logger
}

func NewCache(redis *database.RedisClient, ttl time.Duration, log logger.Logger) *Cache {
	return &Cache{redis: redis, ttl: ttl, log: log}
}

func cacheKey(name, address string) string {
	h := sha1.Sum([]byte(name + "|" + address))
	return cacheKeyPrefix + hex.EncodeToString(h[:])
}

// GetPlaceID returns the cached place ID for a name+address pair. A cache
// miss or a Redis failure both read as "not cached".
func (c *Cache) GetPlaceID(ctx context.Context, name, address string) (string, bool) {
	if c == nil || c.redis == nil {
		return "", false
	}

	val, err := c.redis.Get(ctx, cacheKey(name, address))
	if err != nil {
		return "", false
	}
	return val, val != ""
}

// SetPlaceID stores a resolved place ID. Failures are logged and ignored;
// the cache is an optimization, not a dependency.
func (c *Cache) SetPlaceID(ctx context.Context, name, address, placeID string) {
	if c == nil || c.redis == nil {
		return
	}

	if err := c.redis.Set(ctx, cacheKey(name, address), placeID, c.ttl); err != nil {
		c.log.Debug("place id cache write failed", map[string]interface{}{
			"error": err.Error(),
		})
	}
}
