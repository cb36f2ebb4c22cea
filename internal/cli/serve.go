package cli

import (
	"context"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/onerbs/identy/pkg/cache"
	"github.com/onerbs/identy/pkg/config"
	"github.com/onerbs/identy/pkg/server"
	"github.com/onerbs/identy/pkg/store"
)

// serveCommand creates the "serve" command.
func (c *CLI) serveCommand() *cobra.Command {
	var (
		addr  string
		redis string
		mongo string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve identicons as avatars over HTTP",
		Long: `Serve runs the avatar HTTP service. GET /avatar/{name} returns a PNG
derived from the name; query parameters tune size, variant, radius,
border, black and invert. Names without a pinned variant get a random
one on first request and keep it.

With [redis] and [mongo] configured, encoded icons are cached in Redis
and variant assignments persisted in MongoDB. Without them the server
falls back to an on-disk cache and an in-memory store.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := c.loadConfig()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("addr") {
				cfg.Server.Addr = addr
			}
			if cmd.Flags().Changed("redis") {
				cfg.Redis.Addr = redis
			}
			if cmd.Flags().Changed("mongo") {
				cfg.Mongo.URI = mongo
			}

			ctx := withLogger(cmd.Context(), c.Logger)
			return c.runServer(ctx, cfg)
		},
	}

	cmd.Flags().StringVarP(&addr, "addr", "a", ":8080", "listen address")
	cmd.Flags().StringVar(&redis, "redis", "", "redis address for the avatar cache")
	cmd.Flags().StringVar(&mongo, "mongo", "", "mongodb uri for the icon store")
	return cmd
}

// runServer assembles the cache and store backends and runs the server
// until the context is cancelled.
func (c *CLI) runServer(ctx context.Context, cfg config.Config) error {
	logger := loggerFromContext(ctx)

	ch, err := c.openCache(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := ch.Close(); err != nil {
			logger.Warnf("close cache: %v", err)
		}
	}()

	st, err := c.openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := st.Close(context.Background()); err != nil {
			logger.Warnf("close store: %v", err)
		}
	}()

	srv := server.New(server.Config{
		Addr:     cfg.Server.Addr,
		CacheTTL: cfg.Server.CacheTTL.Duration,
		Radius:   cfg.Defaults.Radius,
		Border:   cfg.Defaults.Border,
		Black:    cfg.Defaults.Black,
		Variant:  cfg.Defaults.Variant,
	}, logger, ch, st)

	err = srv.Run(ctx)
	if err == context.Canceled {
		logger.Info("Server stopped")
		return nil
	}
	return err
}

// openCache picks the cache backend: Redis when configured, otherwise
// an on-disk cache under the user cache dir.
func (c *CLI) openCache(ctx context.Context, cfg config.Config) (cache.Cache, error) {
	if cfg.Redis.Addr != "" {
		c.Logger.Debugf("Using redis cache at %s", cfg.Redis.Addr)
		return cache.NewRedisCache(ctx, cache.RedisConfig{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
	}

	dir, err := cacheDir()
	if err != nil {
		c.Logger.Warnf("No cache dir available, caching disabled: %v", err)
		return cache.NewNullCache(), nil
	}
	return cache.NewFileCache(filepath.Join(dir, "avatars"))
}

// openStore picks the icon store backend: MongoDB when configured,
// otherwise in-memory.
func (c *CLI) openStore(ctx context.Context, cfg config.Config) (store.Store, error) {
	if cfg.Mongo.URI != "" {
		c.Logger.Debugf("Using mongodb store at %s", cfg.Mongo.URI)
		ms, err := store.NewMongoStore(ctx, store.MongoConfig{
			URI:      cfg.Mongo.URI,
			Database: cfg.Mongo.Database,
		})
		if err != nil {
			return nil, err
		}
		return ms, nil
	}
	return store.NewMemoryStore(), nil
}
