package repository

import "context"

// FavouriteRepository persists the favourite channel set, the only state that
// survives restarts. Save always receives the complete set.
// Implementations: FileStorage, RedisStorage, PostgresStorage.
type FavouriteRepository interface {
	Load(ctx context.Context) ([]string, error)
	Save(ctx context.Context, channelIDs []string) error
	Close() error
}
