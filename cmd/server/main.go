package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/playperu/luckydraw/internal/config"
	"github.com/playperu/luckydraw/internal/database"
	"github.com/playperu/luckydraw/internal/handler/health"
	"github.com/playperu/luckydraw/internal/luckydraw"
	"github.com/playperu/luckydraw/internal/migrations"
	"github.com/playperu/luckydraw/internal/server"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, stdout io.Writer) error {
	// A .env file is optional; real environment variables win.
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("loading .env: %w", err)
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	rules, err := cfg.Rules()
	if err != nil {
		return err
	}

	logger := slog.New(slog.NewJSONHandler(stdout, &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}))

	checks := map[string]health.Checker{}

	// --- State store ---
	store, closeStore, err := openStore(ctx, cfg, rules, checks, logger)
	if err != nil {
		return err
	}
	defer closeStore()

	// --- Events ---
	broker := server.NewBroker()
	var events server.Publisher = broker
	var relay *server.RedisRelay
	if cfg.RedisURL != "" {
		rdb, err := openRedis(ctx, cfg.RedisURL)
		if err != nil {
			return fmt.Errorf("connecting to redis: %w", err)
		}
		defer rdb.Close()
		logger.Info("connected to redis")

		checks["redis"] = health.Redis(rdb)
		relay = server.NewRedisRelay(rdb, server.DefaultRelayChannel, broker, logger)
		events = relay
	}

	creds, err := server.NewCredentials(cfg.Members, cfg.AdminPassword, cfg.BcryptCost)
	if err != nil {
		return err
	}
	game := server.NewGame(store, rules, cfg.AdminResetPIN, events, logger)

	// Create the session row up front so a broken store fails startup.
	if _, err := game.State(ctx); err != nil {
		return fmt.Errorf("loading initial state: %w", err)
	}

	deps := server.Deps{
		Logger:       logger,
		Game:         game,
		Sessions:     store,
		Credentials:  creds,
		Broker:       broker,
		Health:       health.NewHandler(logger, checks).Routes(),
		BaseURL:      cfg.BaseURL,
		PollInterval: cfg.PollInterval,
	}
	if cfg.StaticDir != "" {
		logger.Info("serving front end", "dir", cfg.StaticDir)
		deps.Static = os.DirFS(cfg.StaticDir)
	}

	// --- HTTP Server ---
	srv := server.New(cfg.HTTPAddr, deps)

	// --- Run ---
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("starting http server",
			"addr", cfg.HTTPAddr,
			"store", cfg.StoreDriver,
			"members", len(rules.Members),
			"boxes", rules.TotalBoxes,
			"policy", rules.Policy,
			"max_draws", rules.DrawCap(),
		)
		return srv.Run(gctx)
	})

	if relay != nil {
		g.Go(func() error {
			if err := relay.Run(gctx); err != nil && !errors.Is(err, context.Canceled) {
				return fmt.Errorf("redis relay: %w", err)
			}
			return nil
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down http server")
		return srv.Shutdown(context.Background())
	})

	return g.Wait()
}

// openStore opens the configured state store, registers its health check
// and returns a function releasing it.
func openStore(ctx context.Context, cfg *config.Config, rules luckydraw.Rules, checks map[string]health.Checker, logger *slog.Logger) (server.Store, func(), error) {
	switch cfg.StoreDriver {
	case "memory":
		logger.Warn("using in-memory store, state is lost on restart")
		return server.NewMemoryStore(rules), func() {}, nil

	case "postgres":
		db, err := database.OpenPostgres(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, fmt.Errorf("connecting to postgres: %w", err)
		}
		if err := migrations.Run(db, migrations.Postgres); err != nil {
			db.Close()
			return nil, nil, fmt.Errorf("running migrations: %w", err)
		}
		logger.Info("connected to postgres")
		checks["postgres"] = health.DB(db)
		return server.NewPostgresStore(db, rules), func() { db.Close() }, nil

	default:
		db, err := database.Open(ctx, cfg.DBPath)
		if err != nil {
			return nil, nil, fmt.Errorf("connecting to sqlite: %w", err)
		}
		if err := migrations.Run(db, migrations.SQLite); err != nil {
			db.Close()
			return nil, nil, fmt.Errorf("running migrations: %w", err)
		}
		logger.Info("connected to sqlite", "path", cfg.DBPath)
		checks["sqlite"] = health.DB(db)
		return server.NewSQLiteStore(db, rules), func() { db.Close() }, nil
	}
}

func openRedis(ctx context.Context, rawURL string) (*redis.Client, error) {
	opt, err := redis.ParseURL(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parsing redis url: %w", err)
	}
	rdb := redis.NewClient(opt)
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("pinging redis: %w", err)
	}
	return rdb, nil
}
