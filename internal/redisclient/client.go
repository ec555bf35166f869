package redisclient

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"strconv"
	"time"

	"pos-terminal/internal/models"

	"github.com/go-redis/redis/v8"
)

//go:embed scripts/apply_sale.lua
var applySaleScript string

type Client struct {
	rdb        *redis.Client
	saleScript *redis.Script
}

// NewClient creates a Redis client with Lua scripts loaded.
// Connections are made lazily, so an unreachable server surfaces on first use.
func NewClient(addr, password string, db int) *Client {
	return NewFromRedis(redis.NewClient(&redis.Options{
		Addr:        addr,
		Password:    password,
		DB:          db,
		DialTimeout: 2 * time.Second,
		MaxRetries:  1,
	}))
}

// NewFromRedis wraps an existing connection
func NewFromRedis(rdb *redis.Client) *Client {
	return &Client{
		rdb:        rdb,
		saleScript: redis.NewScript(applySaleScript),
	}
}

// Ping checks the connection
func (c *Client) Ping(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}

// Close closes the Redis connection
func (c *Client) Close() error {
	return c.rdb.Close()
}

func stockKey(productID int64) string {
	return fmt.Sprintf("stock:%d", productID)
}

// SyncStock seeds the mirror with the persisted stock of products not mirrored yet.
// Existing counts are kept: they already reflect sale events, and events still
// pending on the topic are applied on top of them.
func (c *Client) SyncStock(ctx context.Context, products []models.Product) error {
	pipe := c.rdb.Pipeline()
	for _, p := range products {
		key := stockKey(p.ID)
		pipe.HSetNX(ctx, key, "available", p.StockQuantity)
		pipe.HSet(ctx, key, "name", p.Name)
	}

	_, err := pipe.Exec(ctx)
	return err
}

// GetStock returns the mirrored available count of a product
func (c *Client) GetStock(ctx context.Context, productID int64) (int, error) {
	val, err := c.rdb.HGet(ctx, stockKey(productID), "available").Int()
	if errors.Is(err, redis.Nil) {
		return 0, fmt.Errorf("stock not mirrored for product %d", productID)
	}
	return val, err
}

// ApplySale deducts sold quantities from the mirror, clamping at zero, and marks the
// event processed in the same script run. applied is false when the event was seen
// before; remaining holds the count left per mirrored product.
func (c *Client) ApplySale(
	ctx context.Context,
	eventID string,
	items []models.SaleItemData,
	ttl time.Duration,
) (remaining map[int64]int, applied bool, err error) {
	keys := make([]string, 0, len(items)+1)
	args := make([]interface{}, 0, len(items)+1)
	keys = append(keys, fmt.Sprintf("event:%s", eventID))
	args = append(args, int64(ttl/time.Second))
	for _, item := range items {
		keys = append(keys, stockKey(item.ProductID))
		args = append(args, item.Quantity)
	}

	result, err := c.saleScript.Run(ctx, c.rdb, keys, args...).Result()
	if err != nil {
		return nil, false, fmt.Errorf("apply sale script failed: %w", err)
	}

	values, ok := result.([]interface{})
	if !ok || len(values) == 0 {
		return nil, false, fmt.Errorf("unexpected script result type")
	}
	if flag, _ := values[0].(int64); flag == 0 {
		return nil, false, nil
	}
	if len(values) != len(items)+1 {
		return nil, false, fmt.Errorf("unexpected script result length %d", len(values))
	}

	remaining = make(map[int64]int, len(items))
	for i, v := range values[1:] {
		left, ok := v.(int64)
		if !ok {
			return nil, false, fmt.Errorf("unexpected script result type")
		}
		if left >= 0 {
			remaining[items[i].ProductID] = int(left)
		}
	}
	return remaining, true, nil
}

// SetIdempotentSale stores the sale an idempotency key resolved to
func (c *Client) SetIdempotentSale(ctx context.Context, key string, saleID int64, ttl time.Duration) error {
	return c.rdb.Set(ctx, fmt.Sprintf("idempotency:%s", key), saleID, ttl).Err()
}

// GetIdempotentSale looks up the sale an idempotency key resolved to
func (c *Client) GetIdempotentSale(ctx context.Context, key string) (int64, bool, error) {
	val, err := c.rdb.Get(ctx, fmt.Sprintf("idempotency:%s", key)).Result()
	if errors.Is(err, redis.Nil) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}

	saleID, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return 0, false, fmt.Errorf("corrupt idempotency value %q: %w", val, err)
	}
	return saleID, true, nil
}

// AcquireLock acquires a distributed lock
func (c *Client) AcquireLock(ctx context.Context, lockKey string, ttl time.Duration) (bool, error) {
	return c.rdb.SetNX(ctx, fmt.Sprintf("lock:%s", lockKey), "1", ttl).Result()
}

// ReleaseLock releases a distributed lock
func (c *Client) ReleaseLock(ctx context.Context, lockKey string) error {
	return c.rdb.Del(ctx, fmt.Sprintf("lock:%s", lockKey)).Err()
}

// SetReceipt caches the rendered receipt of a sale
func (c *Client) SetReceipt(ctx context.Context, saleID int64, receipt string, ttl time.Duration) error {
	return c.rdb.Set(ctx, fmt.Sprintf("receipt:%d", saleID), receipt, ttl).Err()
}

// GetReceipt returns a cached receipt
func (c *Client) GetReceipt(ctx context.Context, saleID int64) (string, bool, error) {
	val, err := c.rdb.Get(ctx, fmt.Sprintf("receipt:%d", saleID)).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return val, true, nil
}
