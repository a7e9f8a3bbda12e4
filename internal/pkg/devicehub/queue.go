package devicehub

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	queueKeyPrefix = "devicehub:queue:"

	// queueLimit caps the per-device offline backlog; the oldest entries are
	// dropped first.
	queueLimit = 100

	// queueTTL expires backlogs of devices that never come back.
	queueTTL = 24 * time.Hour
)

// RedisQueue is the MessageQueue used in production: one Redis list per
// device, trimmed to the newest queueLimit entries.
type RedisQueue struct {
	client *redis.Client
}

func NewRedisQueue(client *redis.Client) *RedisQueue {
	return &RedisQueue{client: client}
}

func (q *RedisQueue) key(deviceID string) string {
	return queueKeyPrefix + deviceID
}

// Append pushes a message onto the device backlog and trims to the limit.
func (q *RedisQueue) Append(deviceID string, msg []byte) error {
	ctx := context.Background()
	key := q.key(deviceID)
	pipe := q.client.TxPipeline()
	pipe.RPush(ctx, key, msg)
	pipe.LTrim(ctx, key, -queueLimit, -1)
	pipe.Expire(ctx, key, queueTTL)
	_, err := pipe.Exec(ctx)
	return err
}

// Drain returns the backlog in arrival order and clears it.
func (q *RedisQueue) Drain(deviceID string) ([][]byte, error) {
	ctx := context.Background()
	key := q.key(deviceID)

	entries, err := q.client.LRange(ctx, key, 0, -1).Result()
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, nil
	}
	if err := q.client.Del(ctx, key).Err(); err != nil {
		return nil, err
	}

	msgs := make([][]byte, len(entries))
	for i, e := range entries {
		msgs[i] = []byte(e)
	}
	return msgs, nil
}
