package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v3"

	"github.com/Sternrassler/explore-client/pkg/explore"
	"github.com/Sternrassler/explore-client/pkg/graphql"
	"github.com/Sternrassler/explore-client/pkg/logging"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newCommand().Run(ctx, os.Args); err != nil {
		log.Fatal().Err(err).Msg("explore-proxy failed")
	}
}

func newCommand() *cli.Command {
	return &cli.Command{
		Name:  "explore-proxy",
		Usage: "serve explore data from the analytics, assets and indexer backends as JSON",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "analytics-url",
				Usage:    "analytics GraphQL endpoint",
				Sources:  cli.EnvVars("ANALYTICS_URL"),
				Required: true,
			},
			&cli.StringFlag{
				Name:    "analytics-token",
				Usage:   "analytics backend authorization token",
				Sources: cli.EnvVars("ANALYTICS_TOKEN"),
			},
			&cli.StringFlag{
				Name:    "assets-url",
				Usage:   "assets GraphQL endpoint (optional)",
				Sources: cli.EnvVars("ASSETS_URL"),
			},
			&cli.StringFlag{
				Name:    "indexer-url",
				Usage:   "V2 subgraph endpoint (optional)",
				Sources: cli.EnvVars("INDEXER_URL"),
			},
			&cli.StringFlag{
				Name:    "redis-url",
				Usage:   "Redis address or redis:// URL for the response cache and rate limit state (optional)",
				Sources: cli.EnvVars("REDIS_URL"),
			},
			&cli.StringFlag{
				Name:    "port",
				Value:   "8080",
				Usage:   "HTTP listen port",
				Sources: cli.EnvVars("PORT"),
			},
			&cli.StringFlag{
				Name:    "user-agent",
				Value:   "explore-client/0.1.0",
				Usage:   "User-Agent sent to every backend",
				Sources: cli.EnvVars("USER_AGENT"),
			},
			&cli.DurationFlag{
				Name:    "tick-interval",
				Value:   30 * time.Second,
				Usage:   "pool tick poll interval",
				Sources: cli.EnvVars("TICK_INTERVAL"),
			},
			&cli.StringFlag{
				Name:    "log-level",
				Value:   "info",
				Usage:   "debug, info, warn or error",
				Sources: cli.EnvVars("LOG_LEVEL"),
			},
			&cli.BoolFlag{
				Name:    "log-pretty",
				Usage:   "human-readable console logs",
				Sources: cli.EnvVars("LOG_PRETTY"),
			},
			&cli.StringFlag{
				Name:    "pyroscope-url",
				Usage:   "pyroscope server for continuous profiling (optional)",
				Sources: cli.EnvVars("PYROSCOPE_URL"),
			},
		},
		Action: run,
	}
}

func run(ctx context.Context, cmd *cli.Command) error {
	level, err := logging.ParseLevel(cmd.String("log-level"))
	if err != nil {
		return err
	}
	logger := logging.Setup(logging.Config{
		Level:   level,
		Pretty:  cmd.Bool("log-pretty"),
		Output:  os.Stderr,
		Service: "explore-proxy",
	})

	if url := cmd.String("pyroscope-url"); url != "" {
		profiler, err := startProfiler(url, logger)
		if err != nil {
			return fmt.Errorf("start profiler: %w", err)
		}
		defer func() {
			_ = profiler.Stop()
		}()
	}

	var redisClient *redis.Client
	if addr := cmd.String("redis-url"); addr != "" {
		redisClient, err = newRedis(ctx, addr)
		if err != nil {
			return err
		}
		defer redisClient.Close()
		logger.Info().Str("redis", redisClient.Options().Addr).Msg("Connected to Redis")
	}

	backends, err := newBackends(cmd, redisClient)
	if err != nil {
		return err
	}
	defer backends.close()

	cfg := explore.DefaultConfig()
	cfg.TickPollInterval = cmd.Duration("tick-interval")
	explorer, err := explore.New(backends.Backends, cfg)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              ":" + cmd.String("port"),
		Handler:           newRouter(explorer, redisClient),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		logger.Info().
			Str("addr", srv.Addr).
			Bool("assets", backends.Assets != nil).
			Bool("indexer", backends.Indexer != nil).
			Msg("Starting explore proxy")
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	logger.Info().Msg("Shutting down explore proxy")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// newRedis accepts either a host:port address or a redis:// URL.
func newRedis(ctx context.Context, addr string) (*redis.Client, error) {
	opts := &redis.Options{Addr: addr}
	if strings.Contains(addr, "://") {
		parsed, err := redis.ParseURL(addr)
		if err != nil {
			return nil, fmt.Errorf("parse redis url: %w", err)
		}
		opts = parsed
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("connect to redis at %s: %w", opts.Addr, err)
	}
	return client, nil
}

type backendSet struct {
	explore.Backends
}

// newBackends creates one client per configured backend.
func newBackends(cmd *cli.Command, redisClient *redis.Client) (*backendSet, error) {
	newClient := func(name, endpoint, token string) (*graphql.Client, error) {
		cfg := graphql.DefaultConfig(name, endpoint)
		cfg.AuthToken = token
		cfg.UserAgent = cmd.String("user-agent")
		cfg.Redis = redisClient
		client, err := graphql.New(cfg)
		if err != nil {
			return nil, fmt.Errorf("%s backend: %w", name, err)
		}
		return client, nil
	}

	set := &backendSet{}
	var err error
	if set.Analytics, err = newClient("analytics", cmd.String("analytics-url"), cmd.String("analytics-token")); err != nil {
		return nil, err
	}
	if url := cmd.String("assets-url"); url != "" {
		if set.Assets, err = newClient("assets", url, ""); err != nil {
			set.close()
			return nil, err
		}
	}
	if url := cmd.String("indexer-url"); url != "" {
		if set.Indexer, err = newClient("indexer", url, ""); err != nil {
			set.close()
			return nil, err
		}
	}
	return set, nil
}

func (s *backendSet) close() {
	for _, client := range []*graphql.Client{s.Analytics, s.Assets, s.Indexer} {
		if client != nil {
			client.Close()
		}
	}
}
