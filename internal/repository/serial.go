package repository

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// SerialAllocator hands out the per-day serial used by date-serial ticket
// ids. Serials start at 1 and reset each calendar day.
type SerialAllocator interface {
	NextSerial(ctx context.Context, day time.Time) (int, error)
}

const serialKeyPrefix = "ticket_serial:"

// Serial keys only matter for the day they belong to; keep them around a
// little longer so a sweep straddling midnight still sees its own day.
const serialKeyTTL = 48 * time.Hour

type redisSerialAllocator struct {
	client *redis.Client
}

// NewRedisSerialAllocator allocates serials via INCR on a day-scoped key.
func NewRedisSerialAllocator(client *redis.Client) SerialAllocator {
	return &redisSerialAllocator{client: client}
}

func (a *redisSerialAllocator) NextSerial(ctx context.Context, day time.Time) (int, error) {
	key := serialKeyPrefix + day.Format("20060102")
	serial, err := a.client.Incr(ctx, key).Result()
	if err != nil {
		return 0, err
	}
	if serial == 1 {
		a.client.Expire(ctx, key, serialKeyTTL)
	}
	return int(serial), nil
}

// memorySerialAllocator backs deployments without redis and tests.
type memorySerialAllocator struct {
	mu      sync.Mutex
	serials map[string]int
}

// NewMemorySerialAllocator keeps per-day counters in process memory.
func NewMemorySerialAllocator() SerialAllocator {
	return &memorySerialAllocator{serials: make(map[string]int)}
}

func (a *memorySerialAllocator) NextSerial(_ context.Context, day time.Time) (int, error) {
	key := day.Format("20060102")
	a.mu.Lock()
	defer a.mu.Unlock()
	a.serials[key]++
	return a.serials[key], nil
}
