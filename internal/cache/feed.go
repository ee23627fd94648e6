package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"heirloom/internal/observability"
)

const (
	FeedKeyPrefix = "feed:%d:%d"
	PostKeyPrefix = "post:%d"
)

const (
	FeedTTL = 5 * time.Minute
	PostTTL = 30 * time.Minute
)

// FeedKey is the cache key for one page of the family feed.
func FeedKey(page, perPage int) string {
	return fmt.Sprintf(FeedKeyPrefix, page, perPage)
}

func PostKey(postID uint) string {
	return fmt.Sprintf(PostKeyPrefix, postID)
}

// Aside implements the cache-aside pattern: return the cached value if
// present, otherwise call fetch, cache its result, and return it. With no
// Redis client everything degrades to a plain fetch. Cache write failures
// are swallowed; the fetched value is still returned.
func Aside[T any](ctx context.Context, key string, ttl time.Duration, fetch func() (T, error)) (T, error) {
	if client == nil {
		return fetch()
	}

	raw, err := client.Get(ctx, key).Result()
	if err == nil {
		var cached T
		if jsonErr := json.Unmarshal([]byte(raw), &cached); jsonErr == nil {
			observability.FeedCacheRequests.WithLabelValues("hit").Inc()
			return cached, nil
		}
		// unreadable entry, drop it and fall through to fetch
		client.Del(ctx, key)
	}

	observability.FeedCacheRequests.WithLabelValues("miss").Inc()
	value, err := fetch()
	if err != nil {
		return value, err
	}

	if encoded, jsonErr := json.Marshal(value); jsonErr == nil {
		client.Set(ctx, key, encoded, ttl)
	}
	return value, nil
}

// Invalidate removes a single key.
func Invalidate(ctx context.Context, key string) {
	if client != nil {
		client.Del(ctx, key)
	}
}

// InvalidatePost removes the cached post entry.
func InvalidatePost(ctx context.Context, postID uint) {
	Invalidate(ctx, PostKey(postID))
}

// InvalidateFeed removes every cached feed page. Pages are keyed by
// pagination parameters, so invalidation scans the prefix.
func InvalidateFeed(ctx context.Context) {
	invalidateMatching(ctx, "feed:*")
}

// InvalidatePostViews removes every cached post view. Completion,
// display-date, and delete events move the prev/next links on other posts,
// so the whole set goes together with the feed pages.
func InvalidatePostViews(ctx context.Context) {
	invalidateMatching(ctx, "post:*")
}

func invalidateMatching(ctx context.Context, pattern string) {
	if client == nil {
		return
	}
	iter := client.Scan(ctx, 0, pattern, 100).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil && err != redis.Nil {
		return
	}
	if len(keys) > 0 {
		client.Del(ctx, keys...)
	}
}
