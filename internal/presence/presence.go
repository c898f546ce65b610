// Package presence tracks which users have a live realtime connection.
//
// Each user has at most one entry; a newer connection replaces the older one.
// Disconnecting an unknown or already replaced connection changes nothing.
package presence

import (
	"context"
	"fmt"
	"time"

	"github.com/lealre/community-backend/internal/config"
	"github.com/redis/go-redis/v9"
)

type Registry interface {
	Connect(ctx context.Context, userId, connId string) error
	// Disconnect removes the entry owned by connId and reports which user it
	// belonged to.
	Disconnect(ctx context.Context, connId string) (userId string, removed bool, err error)
	Lookup(ctx context.Context, userId string) (connId string, ok bool, err error)
	// ListOnline returns the candidates that are online, in input order.
	ListOnline(ctx context.Context, candidates []string) ([]string, error)
}

// New builds the registry selected by cfg. The returned close function
// releases any connection the registry holds.
func New(ctx context.Context, cfg config.PresenceConfig) (Registry, func() error, error) {
	switch cfg.Backend {
	case "", "memory":
		return NewMemory(), func() error { return nil }, nil
	case "redis":
		client := redis.NewClient(&redis.Options{
			Addr:         cfg.RedisAddr,
			Password:     cfg.RedisPassword,
			DB:           cfg.RedisDB,
			DialTimeout:  5 * time.Second,
			ReadTimeout:  2 * time.Second,
			WriteTimeout: 2 * time.Second,
			PoolSize:     10,
			MinIdleConns: 2,
		})

		pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		defer cancel()
		if err := client.Ping(pingCtx).Err(); err != nil {
			_ = client.Close()
			return nil, nil, fmt.Errorf("ping redis at %s: %w", cfg.RedisAddr, err)
		}
		return NewRedis(client), client.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown presence backend %q", cfg.Backend)
	}
}
