package app

import (
	"context"
	"hash/fnv"

	"github.com/google/uuid"
)

const defaultLockShards = 64

// KeyLock serializes work per key inside one process. Keys are hashed onto a
// fixed set of shards, so unrelated keys may share a shard.
type KeyLock struct {
	shards []chan struct{}
}

// NewKeyLock creates a KeyLock with n shards. If n <= 0, defaultLockShards is used.
func NewKeyLock(n int) *KeyLock {
	if n <= 0 {
		n = defaultLockShards
	}
	l := &KeyLock{shards: make([]chan struct{}, n)}
	for i := range l.shards {
		l.shards[i] = make(chan struct{}, 1)
	}
	return l
}

// Lock blocks until the shard for key is held or ctx is done. The returned
// func releases the shard.
func (l *KeyLock) Lock(ctx context.Context, key uuid.UUID) (func(), error) {
	shard := l.shards[l.shardIndex(key)]
	select {
	case shard <- struct{}{}:
		return func() { <-shard }, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// shardIndex maps a key deterministically to a shard index.
func (l *KeyLock) shardIndex(key uuid.UUID) int {
	h := fnv.New32a()
	_, _ = h.Write(key[:])
	return int(h.Sum32() % uint32(len(l.shards)))
}
