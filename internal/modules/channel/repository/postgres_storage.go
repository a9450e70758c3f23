package repository

import (
	"context"
	"embed"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	"github.com/samber/oops"
)

//go:embed migrations/*.sql
var migrations embed.FS

// PostgresStorage keeps the favourite set in the favourite_channels table.
type PostgresStorage struct {
	pool *pgxpool.Pool
}

// NewPostgresStorage connects, pings and applies pending migrations.
func NewPostgresStorage(ctx context.Context, dsn string) (*PostgresStorage, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, oops.In("favourites").With("context", "failed to create pool").Wrap(err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, oops.In("favourites").With("context", "failed to ping database").Wrap(err)
	}
	if err := migrate(ctx, pool); err != nil {
		pool.Close()
		return nil, err
	}
	return &PostgresStorage{pool: pool}, nil
}

func migrate(ctx context.Context, pool *pgxpool.Pool) error {
	db := stdlib.OpenDBFromPool(pool)
	defer db.Close()

	goose.SetBaseFS(migrations)
	if err := goose.SetDialect("postgres"); err != nil {
		return oops.In("favourites").With("context", "failed to set goose dialect").Wrap(err)
	}
	if err := goose.UpContext(ctx, db, "migrations"); err != nil {
		return oops.In("favourites").With("context", "failed to run migrations").Wrap(err)
	}
	return nil
}

func (s *PostgresStorage) Load(ctx context.Context) ([]string, error) {
	rows, err := s.pool.Query(ctx, `SELECT channel_id FROM favourite_channels ORDER BY channel_id`)
	if err != nil {
		return nil, oops.In("favourites").With("context", "failed to query favourites").Wrap(err)
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, oops.In("favourites").With("context", "failed to scan favourites").Wrap(err)
	}
	return normalize(ids), nil
}

// Save replaces the table contents inside a transaction.
func (s *PostgresStorage) Save(ctx context.Context, channelIDs []string) error {
	ids := normalize(channelIDs)
	err := pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM favourite_channels WHERE NOT (channel_id = ANY($1))`, ids); err != nil {
			return err
		}
		_, err := tx.Exec(ctx,
			`INSERT INTO favourite_channels (channel_id)
			 SELECT UNNEST($1::text[])
			 ON CONFLICT (channel_id) DO NOTHING`,
			ids,
		)
		return err
	})
	if err != nil {
		return oops.In("favourites").With("count", len(ids), "context", "failed to write favourites").Wrap(err)
	}
	return nil
}

func (s *PostgresStorage) Close() error {
	s.pool.Close()
	return nil
}
