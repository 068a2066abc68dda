package runlock

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RunLock guards a monitoring run across hosts using Redis SET NX with TTL.
// The status store's isRunning flag is the authoritative in-process gate;
// this lock only prevents two separate deployments sharing a status backend
// from driving the dashboard at the same time. A random ownership value and
// a Lua release script prevent releasing a lock another process now holds.
type RunLock struct {
	client *redis.Client
	key    string
	value  string
	ttl    time.Duration
}

// New creates a run lock. ttl should exceed the longest expected run so a
// crashed holder does not wedge the other hosts forever.
func New(client *redis.Client, key string, ttl time.Duration) *RunLock {
	b := make([]byte, 16)
	rand.Read(b)
	return &RunLock{
		client: client,
		key:    fmt.Sprintf("runlock:%s", key),
		value:  hex.EncodeToString(b),
		ttl:    ttl,
	}
}

// Acquire tries to take the lock. Returns true if this process now holds it.
func (l *RunLock) Acquire(ctx context.Context) (bool, error) {
	ok, err := l.client.SetNX(ctx, l.key, l.value, l.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("acquiring run lock %s: %w", l.key, err)
	}
	return ok, nil
}

// Release releases the lock only if this process still owns it.
func (l *RunLock) Release(ctx context.Context) error {
	script := redis.NewScript(`
		if redis.call("get", KEYS[1]) == ARGV[1] then
			return redis.call("del", KEYS[1])
		else
			return 0
		end
	`)
	_, err := script.Run(ctx, l.client, []string{l.key}, l.value).Result()
	return err
}
