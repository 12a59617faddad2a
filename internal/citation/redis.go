package citation

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/hyperjump/shiori/internal/models"
)

const defaultKeyPrefix = "shiori:citations:"

// RedisRegistry shares one numbering between every process pointed at the same Redis.
// Numbers live in a hash (key -> number) and first-seen order in a list.
type RedisRegistry struct {
	client     *redis.Client
	numbersKey string
	orderKey   string
}

// NewRedisRegistry wraps client. The registry closes the client on Close.
func NewRedisRegistry(client *redis.Client, keyPrefix string) *RedisRegistry {
	if keyPrefix == "" {
		keyPrefix = defaultKeyPrefix
	}
	return &RedisRegistry{
		client:     client,
		numbersKey: keyPrefix + "numbers",
		orderKey:   keyPrefix + "order",
	}
}

// registerScript returns {number, isNew, total}. HLEN+1 is the next number because
// entries are never removed.
var registerScript = redis.NewScript(`
	local n = redis.call("HGET", KEYS[1], ARGV[1])
	if n then
		return {tonumber(n), 0, redis.call("HLEN", KEYS[1])}
	end
	local next = redis.call("HLEN", KEYS[1]) + 1
	redis.call("HSET", KEYS[1], ARGV[1], next)
	redis.call("RPUSH", KEYS[2], ARGV[1])
	return {next, 1, next}
`)

func (r *RedisRegistry) Register(ctx context.Context, key string) (*models.Registration, error) {
	if err := validateKey(key); err != nil {
		return nil, err
	}
	vals, err := registerScript.Run(ctx, r.client, []string{r.numbersKey, r.orderKey}, key).Int64Slice()
	if err != nil {
		return nil, fmt.Errorf("register citation %q: %w", key, err)
	}
	if len(vals) != 3 {
		return nil, fmt.Errorf("register citation %q: unexpected reply %v: %w", key, vals, models.ErrInternal)
	}
	return &models.Registration{
		Number:                 int(vals[0]),
		IsNew:                  vals[1] == 1,
		TotalDistinctCitations: int(vals[2]),
	}, nil
}

func (r *RedisRegistry) Lookup(ctx context.Context, key string) (*models.CitationRecord, error) {
	n, err := r.client.HGet(ctx, r.numbersKey, key).Int()
	if errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("citation %q: %w", key, models.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("lookup citation %q: %w", key, err)
	}
	return &models.CitationRecord{Key: key, Number: n}, nil
}

func (r *RedisRegistry) List(ctx context.Context) ([]models.CitationRecord, error) {
	keys, err := r.client.LRange(ctx, r.orderKey, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("list citations: %w", err)
	}
	out := make([]models.CitationRecord, len(keys))
	for i, k := range keys {
		out[i] = models.CitationRecord{Key: k, Number: i + 1}
	}
	return out, nil
}

func (r *RedisRegistry) Count(ctx context.Context) (int, error) {
	n, err := r.client.HLen(ctx, r.numbersKey).Result()
	if err != nil {
		return 0, fmt.Errorf("count citations: %w", err)
	}
	return int(n), nil
}

// Ping checks that Redis is reachable.
func (r *RedisRegistry) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

func (r *RedisRegistry) Close() error {
	return r.client.Close()
}
