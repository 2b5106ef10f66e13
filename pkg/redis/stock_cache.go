package redis

import (
	"context"
	"errors"
	"time"

	rd "github.com/redis/go-redis/v9"
)

// CacheStock stores the current display stock with a TTL.
func CacheStock(ctx context.Context, rdb *rd.Client, productID string, stock int64, ttl time.Duration) error {
	return rdb.Set(ctx, StockKey(productID), stock, ttl).Err()
}

// GetCachedStock reads the cached stock. found=false means a cache miss,
// not an error.
func GetCachedStock(ctx context.Context, rdb *rd.Client, productID string) (int64, bool, error) {
	val, err := rdb.Get(ctx, StockKey(productID)).Int64()
	if err != nil {
		if errors.Is(err, rd.Nil) {
			return 0, false, nil
		}
		return 0, false, err
	}
	return val, true, nil
}

// InvalidateStock drops the cached value, forcing a read-through on the
// next storefront request.
func InvalidateStock(ctx context.Context, rdb *rd.Client, productID string) error {
	return rdb.Del(ctx, StockKey(productID)).Err()
}
