package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/jessevdk/go-flags"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"golang.org/x/sync/errgroup"

	"content_resolver/internal/api"
	"content_resolver/internal/cache"
	"content_resolver/internal/config"
	"content_resolver/internal/publisher"
	"content_resolver/internal/service"
	"content_resolver/internal/source/feed"
	"content_resolver/internal/source/fetch"
	"content_resolver/internal/source/podcast"
	"content_resolver/internal/source/social"
	"content_resolver/internal/source/web"
	"content_resolver/internal/source/youtube"
	"content_resolver/internal/storage/postgres"
)

type options struct {
	Config   string `long:"config" env:"RESOLVER_CONFIG" default:"config.yaml" description:"Path to config file"`
	URL      string `long:"url" description:"Resolve a single URL, print the result and exit"`
	LogLevel string `long:"log-level" description:"Override log_level from the config file"`
}

func main() {
	var opts options
	if _, err := flags.NewParser(&opts, flags.Default).Parse(); err != nil {
		var flagsErr *flags.Error
		if errors.As(err, &flagsErr) && flagsErr.Type == flags.ErrHelp {
			return
		}
		os.Exit(2)
	}

	logger := setupLogger("info")

	cfg, err := config.Load(opts.Config)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	if opts.LogLevel != "" {
		if err := cfg.SetLogLevel(opts.LogLevel); err != nil {
			logger.Error("invalid --log-level", "error", err)
			os.Exit(2)
		}
	}
	logger = setupLogger(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, opts, logger); err != nil {
		logger.Error("resolver stopped", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, opts options, logger *slog.Logger) error {
	db, err := sqlx.Connect("postgres", cfg.Database.DSN())
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer db.Close()
	db.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	logger.Info("connected to database")

	version, err := postgres.Migrate(db)
	if err != nil {
		return err
	}
	logger.Info("database migrated", "version", version)

	// Left as a nil interface when Redis is disabled.
	var videoCache youtube.Cache
	if cfg.Redis.Enabled() {
		redisCache, err := cache.NewRedis(ctx, cache.Config{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			TTL:      cfg.Redis.TTL,
		})
		if err != nil {
			return err
		}
		defer redisCache.Close()
		videoCache = redisCache
		logger.Info("connected to redis", "addr", cfg.Redis.Addr)
	}

	fetcher := fetch.New(fetch.Config{
		Timeout:        cfg.Upstream.Timeout,
		UserAgent:      cfg.Upstream.UserAgent,
		MaxAttempts:    cfg.Upstream.Retry.MaxAttempts,
		InitialBackoff: cfg.Upstream.Retry.InitialBackoff,
		MaxBackoff:     cfg.Upstream.Retry.MaxBackoff,
		MaxBodyBytes:   cfg.Upstream.MaxBodyBytes,
	}, logger)

	videoSource, err := youtube.New(youtube.Config{
		APIKey:  cfg.YouTube.APIKey,
		BaseURL: cfg.YouTube.BaseURL,
	}, fetcher, videoCache, logger)
	if err != nil {
		return err
	}

	resolvers := []service.Resolver{
		videoSource,
		podcast.New(podcast.Config{BaseURL: cfg.Podcast.BaseURL, Country: cfg.Podcast.Country}, fetcher, logger),
		social.New(social.Config{BlueskyBaseURL: cfg.Social.BlueskyBaseURL, OEmbedURL: cfg.Social.OEmbedURL}, fetcher, logger),
		feed.NewNewsletter(fetcher, logger),
		feed.NewFeed(fetcher, logger),
		web.New(fetcher, logger),
	}

	txManager := postgres.NewTransactionManager(db)
	serviceStore := postgres.NewServiceStore(db)
	authorStore := postgres.NewAuthorStore(db, txManager)
	contentStore := postgres.NewContentStore(db)

	var pub service.Publisher
	if cfg.RabbitMQ.Enabled() {
		rabbitMQ, err := publisher.NewRabbitMQ(publisher.Config{
			URL:        cfg.RabbitMQ.URL,
			Exchange:   cfg.RabbitMQ.Exchange,
			RoutingKey: cfg.RabbitMQ.RoutingKey,
			QueueName:  cfg.RabbitMQ.QueueName,
		}, logger)
		if err != nil {
			return fmt.Errorf("connect to rabbitmq: %w", err)
		}
		defer rabbitMQ.Close()
		pub = rabbitMQ
	}

	resolveService := service.NewResolveService(
		resolvers,
		serviceStore,
		authorStore,
		contentStore,
		pub,
		logger,
		cfg.Resolve,
	)

	if opts.URL != "" {
		return resolveOnce(ctx, resolveService, opts.URL)
	}

	return serve(ctx, cfg.HTTP, api.NewServer(api.NewHandler(resolveService, db), logger), logger)
}

func resolveOnce(ctx context.Context, s *service.ResolveService, rawURL string) error {
	res, resolveErr := s.Resolve(ctx, rawURL)

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(res); err != nil {
		return fmt.Errorf("encode resolution: %w", err)
	}
	return resolveErr
}

func serve(ctx context.Context, cfg config.HTTPConfig, handler http.Handler, logger *slog.Logger) error {
	server := &http.Server{
		Addr:         cfg.Addr,
		Handler:      handler,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("starting http server", "addr", cfg.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down http server")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

func setupLogger(level string) *slog.Logger {
	var logLevel slog.Level
	switch strings.ToLower(level) {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: logLevel}
	handler := slog.NewJSONHandler(os.Stdout, opts)
	return slog.New(handler)
}
