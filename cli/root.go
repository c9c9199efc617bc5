// Package cli wires the event-ingestion service together: configuration,
// the Postgres pool, the Redis-backed remote cache tier, the command bus,
// and the HTTP surface, then runs until interrupted.
package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"eventline.dev/bus"
	"eventline.dev/cache"
	"eventline.dev/common"
	"eventline.dev/config"
	"eventline.dev/db"
	"eventline.dev/events/httpapi"
	"eventline.dev/events/projection"
	"eventline.dev/events/repository"
	"eventline.dev/httpserver"
	"eventline.dev/idgen"
)

// flushInterval is how often the command bus flushes on its own timer,
// independent of Push-triggered flushes.
const flushInterval = time.Second

// RootCmd is the service's single entrypoint: it starts the HTTP server
// and the command bus flusher and blocks until a termination signal
// arrives.
var RootCmd = &cobra.Command{
	Use:   "eventline",
	Short: "Event ingestion and analytics service",
	RunE:  runServer,
}

func runServer(cmd *cobra.Command, args []string) error {
	env, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger := common.NewLogger(common.DefaultLoggerConfig())
	log := common.NewContextLogger(logger, map[string]interface{}{"service": "eventline"})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pg, err := db.NewPostgres(ctx, env.PostgresURL, db.PoolOptions{
		MinConns:               int32(env.PostgresConnectionsMin),
		MaxConns:               int32(env.PostgresConnectionsMax),
		StatementCacheCapacity: env.PostgresCapacity,
	})
	if err != nil {
		return fmt.Errorf("connect postgres: %w", err)
	}
	defer pg.Close()

	redisClient := redis.NewClient(&redis.Options{Addr: env.RedisAddr()})
	defer redisClient.Close()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("connect redis: %w", err)
	}

	local := cache.NewLocalCache(env.AppCacheBytes())
	remote := cache.NewRedisCache(redisClient)
	registry := cache.NewPatternRegistry()
	leveled := cache.NewLeveledCache(local, remote, registry)

	diag := common.NewDiagnostics(log)
	commandBus := bus.New(pg.Pool(), diag, flushInterval)
	go commandBus.Run(ctx)

	repo := repository.NewPostgres(pg)
	proj := projection.New(leveled, repo)

	gen, err := idgen.New()
	if err != nil {
		return fmt.Errorf("create id generator: %w", err)
	}

	handlers := httpapi.New(repo, proj, commandBus, gen)

	serverCfg := httpserver.DefaultConfig()
	serverCfg.Port = env.Port
	e := httpserver.New(serverCfg, logger)
	handlers.Register(e)

	serverErr := make(chan error, 1)
	go func() {
		if err := httpserver.Start(e, serverCfg); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	log.WithField("port", env.Port).Info("eventline listening")

	select {
	case <-ctx.Done():
		log.Info("shutting down")
	case err := <-serverErr:
		if err != nil {
			log.WithError(err).Error("server error")
		}
	}

	return httpserver.Shutdown(e, serverCfg)
}
