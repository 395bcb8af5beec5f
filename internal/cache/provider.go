package cache

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"airwatch/internal/metrics"
)

// Provider defines the cache operations used for API responses and model
// snapshots.
type Provider interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Del(ctx context.Context, key string) error
	Close() error
}

// ErrCacheMiss signals that a cache key was not found or has expired.
var ErrCacheMiss = errors.New("cache miss")

// NoopProvider implements Provider but never stores data.
type NoopProvider struct{}

func (NoopProvider) Get(context.Context, string) ([]byte, error) {
	return nil, ErrCacheMiss
}

func (NoopProvider) Set(context.Context, string, []byte, time.Duration) error {
	return nil
}

func (NoopProvider) Del(context.Context, string) error { return nil }

func (NoopProvider) Close() error { return nil }

// Key builds a stable key from a prefix and arguments, hashing the arguments
// with md5 so keys stay short.
func Key(prefix string, args ...any) string {
	parts := make([]string, len(args))
	for i, a := range args {
		parts[i] = fmt.Sprint(a)
	}
	sum := md5.Sum([]byte(strings.Join(parts, "|")))
	return prefix + ":" + hex.EncodeToString(sum[:])
}

// GetOrSet returns the cached value for key, or calls fill and stores its
// result for ttl. Cache failures never fail the call.
func GetOrSet(ctx context.Context, p Provider, key string, ttl time.Duration, fill func(context.Context) ([]byte, error)) ([]byte, error) {
	if data, err := p.Get(ctx, key); err == nil {
		metrics.RecordCacheRequest("hit")
		return data, nil
	} else if !errors.Is(err, ErrCacheMiss) {
		metrics.RecordCacheRequest("error")
	} else {
		metrics.RecordCacheRequest("miss")
	}

	data, err := fill(ctx)
	if err != nil {
		return nil, err
	}
	_ = p.Set(ctx, key, data, ttl)
	return data, nil
}
