package presence

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const onlineKey = "presence:online"

// Redis keeps presence in a sorted set scored by the unix time of each
// user's last heartbeat, so several API instances share one view.
type Redis struct {
	cli *redis.Client
	ttl time.Duration
	now func() time.Time
}

// Connect connects to the Redis server and pings the server to ensure the
// connection is working.
func Connect(ctx context.Context, addr string, ttl time.Duration) (*Redis, error) {
	cli := redis.NewClient(&redis.Options{
		Addr: addr,
	})
	if err := cli.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return &Redis{
		cli: cli,
		ttl: ttl,
		now: time.Now,
	}, nil
}

func (r *Redis) Close() error {
	return r.cli.Close()
}

func (r *Redis) Online(ctx context.Context, userID uuid.UUID, at time.Time) error {
	err := r.cli.ZAdd(ctx, onlineKey, redis.Z{
		Score:  float64(at.Unix()),
		Member: userID.String(),
	}).Err()
	if err != nil {
		return fmt.Errorf("zadd: %w", err)
	}
	return nil
}

func (r *Redis) Offline(ctx context.Context, userID uuid.UUID) error {
	if err := r.cli.ZRem(ctx, onlineKey, userID.String()).Err(); err != nil {
		return fmt.Errorf("zrem: %w", err)
	}
	return nil
}

func (r *Redis) Filter(ctx context.Context, ids []uuid.UUID) ([]uuid.UUID, error) {
	online, err := r.List(ctx)
	if err != nil {
		return nil, err
	}
	set := make(map[uuid.UUID]struct{}, len(online))
	for _, id := range online {
		set[id] = struct{}{}
	}
	out := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if _, ok := set[id]; ok {
			out = append(out, id)
		}
	}
	return out, nil
}

// List returns every online user and prunes expired heartbeats.
func (r *Redis) List(ctx context.Context) ([]uuid.UUID, error) {
	cutoff := strconv.FormatInt(r.now().Add(-r.ttl).Unix(), 10)

	if err := r.cli.ZRemRangeByScore(ctx, onlineKey, "-inf", "("+cutoff).Err(); err != nil {
		return nil, fmt.Errorf("zremrangebyscore: %w", err)
	}
	vals, err := r.cli.ZRangeByScore(ctx, onlineKey, &redis.ZRangeBy{
		Min: cutoff,
		Max: "+inf",
	}).Result()
	if err != nil {
		return nil, fmt.Errorf("zrangebyscore: %w", err)
	}

	out := make([]uuid.UUID, 0, len(vals))
	for _, v := range vals {
		id, err := uuid.Parse(v)
		if err != nil {
			continue
		}
		out = append(out, id)
	}
	return out, nil
}
