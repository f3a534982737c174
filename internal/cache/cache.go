// Package cache stores recently fetched stock snapshots in Redis so repeat
// lookups within the TTL don't spend provider quota. Cache failures always
// degrade to a miss; an analysis never fails because Redis is down.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	goredis "github.com/go-redis/redis/v8"

	"github.com/psureshmagadi17/stock-signal-vision/internal/model"
)

const defaultTTL = 5 * time.Minute

// Config configures the snapshot cache.
type Config struct {
	Addr     string // Redis address, e.g. "localhost:6379"
	Password string
	DB       int
	TTL      time.Duration // defaults to 5m
}

// SnapshotCache caches raw StockSnapshots keyed by symbol.
type SnapshotCache struct {
	client *goredis.Client
	ttl    time.Duration
}

// New creates a SnapshotCache and pings the server.
func New(cfg Config) (*SnapshotCache, error) {
	client := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	ttl := cfg.TTL
	if ttl == 0 {
		ttl = defaultTTL
	}

	log.Printf("[cache] connected to %s (ttl=%s)", cfg.Addr, ttl)
	return &SnapshotCache{client: client, ttl: ttl}, nil
}

// Get returns a cached snapshot for the symbol, or (nil, false) on a miss.
func (c *SnapshotCache) Get(ctx context.Context, symbol string) (*model.StockSnapshot, bool) {
	data, err := c.client.Get(ctx, key(symbol)).Bytes()
	if err != nil {
		if err != goredis.Nil {
			log.Printf("[cache] get %s: %v", symbol, err)
		}
		return nil, false
	}
	var snap model.StockSnapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		log.Printf("[cache] corrupt entry for %s: %v", symbol, err)
		return nil, false
	}
	return &snap, true
}

// Set stores a snapshot with the configured TTL.
func (c *SnapshotCache) Set(ctx context.Context, snap *model.StockSnapshot) {
	data, err := json.Marshal(snap)
	if err != nil {
		log.Printf("[cache] marshal %s: %v", snap.Symbol, err)
		return
	}
	if err := c.client.Set(ctx, key(snap.Symbol), data, c.ttl).Err(); err != nil {
		log.Printf("[cache] set %s: %v", snap.Symbol, err)
	}
}

// Close closes the Redis connection.
func (c *SnapshotCache) Close() error {
	return c.client.Close()
}

func key(symbol string) string {
	return "snapshot:" + symbol
}
