package cli

import (
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/calvinalkan/authdoc/internal/authstore"
	"github.com/calvinalkan/authdoc/internal/config"
	"github.com/calvinalkan/authdoc/internal/docstore"
	"github.com/calvinalkan/authdoc/internal/migrations"
)

// backend is the storage selected by configuration. The file backend merges
// auth writes; the redis backend replaces the slot wholesale.
type backend struct {
	store   docstore.Store
	session *authstore.Session
	logger  *slog.Logger
	close   func() error
}

func openBackend(cfg config.Config, logger *slog.Logger) *backend {
	switch cfg.Backend {
	case config.BackendRedis:
		client := redis.NewClient(&redis.Options{
			Addr: cfg.RedisAddr,
			DB:   cfg.RedisDB,
		})

		store := docstore.NewKVStore(
			docstore.NewRedisKV(client, cfg.RedisPrefix),
			map[string]string{migrations.AuthSessionKey: cfg.Slot},
		)
		adapter := authstore.NewReplacing(store, authstore.WithLogger(logger))

		return &backend{
			store:   store,
			session: authstore.NewSession(adapter, migrations.AuthSessionKey),
			logger:  logger,
			close:   client.Close,
		}
	default:
		store := docstore.NewFileStore(cfg.DataDirAbs, docstore.WithLockTimeout(cfg.LockTimeoutDur))
		adapter := authstore.NewMerging(store, authstore.WithLogger(logger))

		return &backend{
			store:   store,
			session: authstore.NewSession(adapter, migrations.AuthSessionKey),
			logger:  logger,
			close:   func() error { return nil },
		}
	}
}
