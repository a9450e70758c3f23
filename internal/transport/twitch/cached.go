package twitch

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"strings"
	"time"

	channelDomain "github.com/reshetovitsme/livewatch/internal/modules/channel/domain"
	"github.com/reshetovitsme/livewatch/internal/shared/cache"
)

// Cache TTLs for directory listings. Search uses the configured TTL.
const (
	ttlFeatured = 2 * time.Minute
	ttlTopGames = 5 * time.Minute
	ttlUsers    = 30 * time.Minute
)

// Directory is the read-mostly part of the API worth caching.
type Directory interface {
	Search(ctx context.Context, query string) ([]channelDomain.Snapshot, error)
	LookupChannels(ctx context.Context, logins []string) ([]channelDomain.Snapshot, error)
	FetchFeatured(ctx context.Context) ([]channelDomain.Snapshot, error)
	FetchTopGames(ctx context.Context) ([]channelDomain.GameSnapshot, error)
}

// CachedDirectory wraps a Directory with a Redis caching layer. Live status
// requests are never cached and do not go through here.
type CachedDirectory struct {
	inner     Directory
	cache     *cache.Redis
	searchTTL time.Duration
	logger    *slog.Logger
}

func NewCachedDirectory(inner Directory, c *cache.Redis, searchTTL time.Duration, logger *slog.Logger) *CachedDirectory {
	if searchTTL <= 0 {
		searchTTL = time.Minute
	}
	return &CachedDirectory{
		inner:     inner,
		cache:     c,
		searchTTL: searchTTL,
		logger:    logger.With("component", "directory_cache"),
	}
}

func (d *CachedDirectory) Search(ctx context.Context, query string) ([]channelDomain.Snapshot, error) {
	key := "search:" + keyHash(strings.ToLower(strings.TrimSpace(query)))
	return cached(ctx, d, key, d.searchTTL, func() ([]channelDomain.Snapshot, error) {
		return d.inner.Search(ctx, query)
	})
}

func (d *CachedDirectory) LookupChannels(ctx context.Context, logins []string) ([]channelDomain.Snapshot, error) {
	key := "users:" + keyHash(strings.ToLower(strings.Join(logins, ",")))
	return cached(ctx, d, key, ttlUsers, func() ([]channelDomain.Snapshot, error) {
		return d.inner.LookupChannels(ctx, logins)
	})
}

func (d *CachedDirectory) FetchFeatured(ctx context.Context) ([]channelDomain.Snapshot, error) {
	return cached(ctx, d, "featured", ttlFeatured, func() ([]channelDomain.Snapshot, error) {
		return d.inner.FetchFeatured(ctx)
	})
}

func (d *CachedDirectory) FetchTopGames(ctx context.Context) ([]channelDomain.GameSnapshot, error) {
	return cached(ctx, d, "games:top", ttlTopGames, func() ([]channelDomain.GameSnapshot, error) {
		return d.inner.FetchTopGames(ctx)
	})
}

func cached[T any](ctx context.Context, d *CachedDirectory, key string, ttl time.Duration, load func() (T, error)) (T, error) {
	key = "livewatch:directory:" + key
	if v, err := cache.Get[T](ctx, d.cache, key); err == nil {
		return v, nil
	}
	v, err := load()
	if err != nil {
		return v, err
	}
	if err := cache.Set(ctx, d.cache, key, v, ttl); err != nil {
		d.logger.Warn("cache set failed", "key", key, "error", err)
	}
	return v, nil
}

func keyHash(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:8])
}
