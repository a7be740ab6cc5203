// Package lock provides the key-partitioned exclusivity section held around a
// purchase's check-then-commit sequence.
package lock

import (
	"context"
	"sync"

	"prs/internal/rationing/ports"
	dErrors "prs/pkg/domain-errors"
)

// numShards spreads keys across independent slots so attempts on unrelated
// keys rarely contend. Two keys may share a shard; that only serializes them.
const numShards = 128

// Sharded is an in-process Locker. Each shard is a one-slot channel so
// acquisition can be abandoned when the context is done.
type Sharded struct {
	shards [numShards]chan struct{}
}

var _ ports.Locker = (*Sharded)(nil)

func NewSharded() *Sharded {
	s := &Sharded{}
	for i := range s.shards {
		s.shards[i] = make(chan struct{}, 1)
	}
	return s
}

func (s *Sharded) Acquire(ctx context.Context, key string) (func(), error) {
	if err := ctx.Err(); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeTimeout, "lock aborted: context cancelled")
	}
	shard := s.shards[hashKey(key)%numShards]
	select {
	case shard <- struct{}{}:
	case <-ctx.Done():
		return nil, dErrors.Wrap(ctx.Err(), dErrors.CodeTimeout, "lock wait timed out")
	}
	var once sync.Once
	return func() {
		once.Do(func() { <-shard })
	}, nil
}

// hashKey uses FNV-1a for better hash distribution than simple multiply-add.
func hashKey(s string) uint32 {
	const (
		fnvOffset = 2166136261
		fnvPrime  = 16777619
	)
	h := uint32(fnvOffset)
	for i := 0; i < len(s); i++ {
		h ^= uint32(s[i])
		h *= fnvPrime
	}
	return h
}
