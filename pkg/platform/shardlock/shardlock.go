// Package shardlock serializes work per key without a global lock.
//
// Keys are hashed onto a fixed array of mutexes, so two keys may share a shard
// (and wait on each other) but the same key always maps to the same shard.
package shardlock

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// DefaultShards balances memory against false sharing between unrelated keys.
const DefaultShards = 128

// defaultTimeout bounds how long Do waits when the caller set no deadline.
const defaultTimeout = 5 * time.Second

// Locker holds the shard array. The zero value is not usable; call New.
type Locker struct {
	shards  []shard
	timeout time.Duration
}

// shard is a one-slot semaphore so acquisition can observe ctx cancellation.
type shard chan struct{}

// New creates a Locker with n shards (DefaultShards when n <= 0).
func New(n int) *Locker {
	if n <= 0 {
		n = DefaultShards
	}
	shards := make([]shard, n)
	for i := range shards {
		shards[i] = make(shard, 1)
	}
	return &Locker{shards: shards, timeout: defaultTimeout}
}

// Lock acquires the shard for key and returns its unlock func.
func (l *Locker) Lock(ctx context.Context, key string) (func(), error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("lock %s: %w", key, err)
	}
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, l.timeout)
		defer cancel()
	}

	s := l.shards[hashKey(key)%uint32(len(l.shards))]
	select {
	case s <- struct{}{}:
		var once sync.Once
		return func() { once.Do(func() { <-s }) }, nil
	case <-ctx.Done():
		return nil, fmt.Errorf("lock %s: %w", key, ctx.Err())
	}
}

// Do runs fn while holding the shard for key.
func (l *Locker) Do(ctx context.Context, key string, fn func() error) error {
	unlock, err := l.Lock(ctx, key)
	if err != nil {
		return err
	}
	defer unlock()
	return fn()
}

// PairKey joins a student and course into one lock key.
func PairKey(studentID, courseKey string) string {
	return studentID + "\x00" + courseKey
}

// hashKey uses FNV-1a for better distribution than simple multiply-add.
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
