package presence

import (
	"context"
	"errors"
	"fmt"

	"github.com/lealre/community-backend/internal/metrics"
	"github.com/redis/go-redis/v9"
)

const (
	usersKey = "presence:users" // user id -> connection id
	connsKey = "presence:conns" // connection id -> user id
)

var connectScript = redis.NewScript(`
local old = redis.call('HGET', KEYS[1], ARGV[1])
if old then
	redis.call('HDEL', KEYS[2], old)
end
local prev = redis.call('HGET', KEYS[2], ARGV[2])
if prev and prev ~= ARGV[1] then
	redis.call('HDEL', KEYS[1], prev)
end
redis.call('HSET', KEYS[1], ARGV[1], ARGV[2])
redis.call('HSET', KEYS[2], ARGV[2], ARGV[1])
return redis.call('HLEN', KEYS[1])
`)

var disconnectScript = redis.NewScript(`
local user = redis.call('HGET', KEYS[2], ARGV[1])
if not user then
	return false
end
redis.call('HDEL', KEYS[2], ARGV[1])
if redis.call('HGET', KEYS[1], user) == ARGV[1] then
	redis.call('HDEL', KEYS[1], user)
end
return {user, redis.call('HLEN', KEYS[1])}
`)

// Redis keeps presence in two hashes so several processes share one view.
// Both hashes are only changed by Lua scripts, which run atomically.
type Redis struct {
	client redis.UniversalClient
}

func NewRedis(client redis.UniversalClient) *Redis {
	return &Redis{client: client}
}

func (r *Redis) Connect(ctx context.Context, userId, connId string) error {
	online, err := connectScript.Run(ctx, r.client, []string{usersKey, connsKey}, userId, connId).Int64()
	if err != nil {
		return fmt.Errorf("presence connect: %w", err)
	}
	metrics.PresenceOnline.Set(float64(online))
	return nil
}

func (r *Redis) Disconnect(ctx context.Context, connId string) (string, bool, error) {
	res, err := disconnectScript.Run(ctx, r.client, []string{usersKey, connsKey}, connId).Slice()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("presence disconnect: %w", err)
	}
	if len(res) != 2 {
		return "", false, fmt.Errorf("presence disconnect: unexpected reply %v", res)
	}

	userId, _ := res[0].(string)
	if online, ok := res[1].(int64); ok {
		metrics.PresenceOnline.Set(float64(online))
	}
	return userId, true, nil
}

func (r *Redis) Lookup(ctx context.Context, userId string) (string, bool, error) {
	connId, err := r.client.HGet(ctx, usersKey, userId).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("presence lookup: %w", err)
	}
	return connId, true, nil
}

func (r *Redis) ListOnline(ctx context.Context, candidates []string) ([]string, error) {
	if len(candidates) == 0 {
		return []string{}, nil
	}

	values, err := r.client.HMGet(ctx, usersKey, candidates...).Result()
	if err != nil {
		return nil, fmt.Errorf("presence list: %w", err)
	}

	online := make([]string, 0, len(candidates))
	seen := make(map[string]struct{}, len(candidates))
	for i, v := range values {
		if v == nil {
			continue
		}
		if _, dup := seen[candidates[i]]; dup {
			continue
		}
		seen[candidates[i]] = struct{}{}
		online = append(online, candidates[i])
	}
	return online, nil
}
