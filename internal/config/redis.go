package config

import (
	"context"
	"fmt"
	"log"

	"github.com/redis/go-redis/v9"
)

// NewRedisClient builds a redis.UniversalClient from a RedisConfig, branching
// on Mode the way the teacher's NewRedisClient branched on environment
// variables, generalized to the three modes spec.md §6 names.
func NewRedisClient(ctx context.Context, cfg RedisConfig) (redis.UniversalClient, error) {
	var client redis.UniversalClient

	switch cfg.Mode {
	case "cluster":
		addrs := cfg.Addrs
		if len(addrs) == 0 && cfg.Addr != "" {
			addrs = []string{cfg.Addr}
		}
		client = redis.NewClusterClient(&redis.ClusterOptions{
			Addrs:    addrs,
			Password: cfg.Password,
		})
	case "sentinel":
		client = redis.NewFailoverClient(&redis.FailoverOptions{
			MasterName:    cfg.MasterName,
			SentinelAddrs: cfg.Addrs,
			DB:            cfg.DB,
			Password:      cfg.Password,
		})
	default:
		addr := cfg.Addr
		if addr == "" {
			addr = "127.0.0.1:6379"
		}
		client = redis.NewClient(&redis.Options{
			Addr:     addr,
			DB:       cfg.DB,
			Password: cfg.Password,
		})
	}

	log.Printf("NewRedisClient: mode=%s addr=%s db=%d passwordSet=%v", cfg.Mode, cfg.Addr, cfg.DB, cfg.Password != "")

	if err := client.Ping(ctx).Err(); err != nil {
		log.Printf("NewRedisClient: failed to ping Redis: %v", err)
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	log.Printf("NewRedisClient: successfully connected to Redis")
	return client, nil
}
