package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/hermes/platform/internal/access"
	"github.com/hermes/platform/internal/api"
	"github.com/hermes/platform/internal/config"
	"github.com/hermes/platform/internal/ledger"
	"github.com/hermes/platform/internal/platform"
	"github.com/hermes/platform/internal/store"
)

func main() {
	configPath := flag.String("config", "", "path to YAML config (defaults and environment only when empty)")
	flag.Parse()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	if err := run(*configPath); err != nil {
		slog.Error("hermes stopped", "err", err)
		os.Exit(1)
	}
	fmt.Println("hermes stopped")
}

func run(configPath string) error {
	if err := config.LoadDotEnv(); err != nil {
		return err
	}
	cfg, err := config.LoadAndValidate(configPath)
	if err != nil {
		return err
	}
	pcfg, err := cfg.PlatformConfig()
	if err != nil {
		return err
	}
	slog.Info("configuration loaded",
		"config", configPath,
		"store", cfg.Store.Kind,
		"platform", pcfg.Address,
		"owner", pcfg.Owner,
		"overfill", pcfg.Overfill,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// --- Initialize store ---
	st, err := openStore(ctx, cfg.Store)
	if err != nil {
		return err
	}
	defer st.Close()

	// --- Ledger collaborators ---
	token := ledger.NewMemoryToken(pcfg.Address)
	currency := ledger.NewMemoryCurrency(pcfg.Address)
	genesis, err := cfg.GenesisBalances()
	if err != nil {
		return err
	}
	for account, amount := range genesis {
		currency.Fund(account, amount)
	}
	if cfg.Store.Kind != config.StoreMemory {
		slog.Warn("in-process ledger balances are not persisted across restarts")
	}

	// --- Platform ---
	hub := api.NewHub()
	p, err := platform.New(ctx, pcfg, platform.Deps{
		Token:    token,
		Currency: currency,
		Policy:   access.NewStaticPolicy(cfg.Grants()),
		Store:    st,
		Notifier: hub,
	})
	if err != nil {
		return fmt.Errorf("start platform: %w", err)
	}
	info := p.Round()
	slog.Info("platform ready",
		"round", info.Round.Number,
		"phase", info.Round.Phase,
		"price", info.Price.String(),
	)

	// --- Server ---
	srv := &http.Server{
		Addr:         cfg.HTTP.Addr(),
		Handler:      api.NewRouter(api.NewHandler(p), hub, api.NewLedgerHandler(token, currency, pcfg.Address, cfg.Ledger.Faucet)),
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		hub.Run(gctx)
		return nil
	})
	g.Go(func() error {
		slog.Info("hermes listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serve: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		slog.Info("shutting down hermes...")
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

// openStore builds the configured store, wrapping persistent stores with the
// Redis journal cache when REDIS_URL or store.redis_url is set.
func openStore(ctx context.Context, cfg config.StoreConfig) (store.Store, error) {
	var st store.Store
	switch cfg.Kind {
	case config.StorePostgres:
		pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("database connection failed: %w", err)
		}
		pg := store.NewPostgresStore(pool)
		if err := pg.EnsureSchema(ctx); err != nil {
			pg.Close()
			return nil, err
		}
		st = pg
		slog.Info("connected to PostgreSQL")

	case config.StoreBolt:
		bs, err := store.OpenBoltStore(cfg.BoltPath)
		if err != nil {
			return nil, err
		}
		st = bs
		slog.Info("opened bolt store", "path", cfg.BoltPath)

	default:
		slog.Warn("using in-memory store (data will not persist)")
		return store.NewMemoryStore(), nil
	}

	if cfg.RedisURL == "" {
		return st, nil
	}
	opt, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		st.Close()
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}
	rdb := redis.NewClient(opt)
	slog.Info("Redis cache enabled", "ttl", cfg.RedisTTL)
	return &cachedStore{Store: store.NewCachedStore(st, rdb, cfg.RedisTTL), rdb: rdb}, nil
}

// cachedStore also closes the Redis client it was built with.
type cachedStore struct {
	store.Store
	rdb *redis.Client
}

func (s *cachedStore) Close() error {
	return errors.Join(s.Store.Close(), s.rdb.Close())
}
