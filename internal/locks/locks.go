// Package locks serializes draft operations per player. A draft and a
// remove racing on the same player must not interleave, so the room
// takes the player's lock around each command. The Redis manager covers
// multi-instance deployments; the memory manager covers single-node
// runs and tests.
package locks

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
)

var ErrLockTimeout = errors.New("draft lock timeout")

const (
	lockTTL      = 10 * time.Second
	blockTimeout = 5 * time.Second
	retryEvery   = 100 * time.Millisecond
)

// Manager hands out per-player locks. Acquire blocks until the lock is
// held or the block timeout expires; the returned func releases it.
type Manager interface {
	Acquire(ctx context.Context, playerID int) (func(), error)
}

type Memory struct {
	mu   sync.Mutex
	held map[int]chan struct{}
}

func NewMemory() *Memory {
	return &Memory{held: make(map[int]chan struct{})}
}

func (m *Memory) Acquire(ctx context.Context, playerID int) (func(), error) {
	deadline := time.After(blockTimeout)
	for {
		m.mu.Lock()
		ch, taken := m.held[playerID]
		if !taken {
			done := make(chan struct{})
			m.held[playerID] = done
			m.mu.Unlock()
			return func() {
				m.mu.Lock()
				delete(m.held, playerID)
				m.mu.Unlock()
				close(done)
			}, nil
		}
		m.mu.Unlock()

		select {
		case <-ch:
			// Holder released; retry.
		case <-deadline:
			return nil, ErrLockTimeout
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

type Redis struct {
	client *redis.Client
}

func NewRedis(client *redis.Client) *Redis {
	return &Redis{client: client}
}

func (r *Redis) Acquire(ctx context.Context, playerID int) (func(), error) {
	key := fmt.Sprintf("draft:lock:player:%d", playerID)
	token := uuid.NewString()

	deadline := time.Now().Add(blockTimeout)
	for {
		ok, err := r.client.SetNX(ctx, key, token, lockTTL).Result()
		if err != nil {
			return nil, err
		}
		if ok {
			return func() {
				// Only delete our own token; an expired lock may have
				// been re-acquired by another instance.
				val, err := r.client.Get(context.Background(), key).Result()
				if err == nil && val == token {
					r.client.Del(context.Background(), key)
				}
			}, nil
		}

		if time.Now().After(deadline) {
			return nil, ErrLockTimeout
		}
		select {
		case <-time.After(retryEvery):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}
