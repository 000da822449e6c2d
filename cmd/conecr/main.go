package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"

	"github.com/peter-abah/conecr/internal/auth"
	"github.com/peter-abah/conecr/internal/chat"
	"github.com/peter-abah/conecr/internal/config"
	"github.com/peter-abah/conecr/internal/handler"
	"github.com/peter-abah/conecr/internal/router"
	"github.com/peter-abah/conecr/internal/store"
	"github.com/peter-abah/conecr/internal/store/memory"
	"github.com/peter-abah/conecr/internal/store/postgres"
	"github.com/peter-abah/conecr/internal/user"
)

func main() {
	// 初始化日志
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))
	slog.SetDefault(logger)

	// 加载配置
	cfg, err := config.Load("configs/config.yaml")
	if err != nil {
		logger.Error("Failed to load config", "error", err)
		os.Exit(1)
	}

	// 创建上下文
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 初始化存储后端
	var docStore store.Store
	var userCache user.Cache = user.NewMemoryCache()

	switch cfg.Store.Backend {
	case "postgres":
		db, err := connectDatabase(ctx, cfg.Database)
		if err != nil {
			logger.Error("Failed to connect to database", "error", err)
			os.Exit(1)
		}
		defer db.Close()
		logger.Info("Connected to PostgreSQL", "host", cfg.Database.Host)

		nc, err := connectNATS(cfg.NATS)
		if err != nil {
			logger.Error("Failed to connect to NATS", "error", err)
			os.Exit(1)
		}
		defer nc.Close()
		logger.Info("Connected to NATS", "url", cfg.NATS.URL)

		pgStore := postgres.New(db, nc)
		if err := pgStore.EnsureSchema(ctx); err != nil {
			logger.Error("Failed to ensure schema", "error", err)
			os.Exit(1)
		}
		docStore = pgStore

		if cfg.Redis.Addr != "" {
			redisClient := connectRedis(cfg.Redis)
			defer redisClient.Close()
			logger.Info("Connected to Redis", "addr", cfg.Redis.Addr)
			userCache = user.NewRedisCache(redisClient, cfg.Redis.CacheTTL)
		}

	case "memory", "":
		docStore = memory.New()
		logger.Info("Using in-memory store")

	default:
		logger.Error("Unknown store backend", "backend", cfg.Store.Backend)
		os.Exit(1)
	}

	// 初始化服务
	tokens := auth.NewTokenService(cfg.JWT.SecretKey, cfg.JWT.AccessExpire)
	userService := user.NewService(docStore, userCache)
	chatService := chat.NewService(docStore)

	// 初始化处理器与路由
	userHandler := handler.NewUserHandler(userService)
	chatHandler := handler.NewChatHandler(chatService)
	wsHandler := handler.NewWSHandler(chatService)
	r := router.Setup(cfg, tokens, userHandler, chatHandler, wsHandler)

	server := &http.Server{
		Addr:    cfg.App.Addr,
		Handler: r,
	}

	go func() {
		logger.Info("Server started", "name", cfg.App.Name, "addr", cfg.App.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("Server failed", "error", err)
			os.Exit(1)
		}
	}()

	// 优雅退出
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down...")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server shutdown failed", "error", err)
	}
	logger.Info("Server stopped")
}

// connectDatabase 连接 PostgreSQL
func connectDatabase(ctx context.Context, cfg config.DatabaseConfig) (*pgxpool.Pool, error) {
	dsn := fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable",
		cfg.User,
		cfg.Password,
		cfg.Host,
		cfg.Port,
		cfg.Name,
	)

	poolConfig, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, err
	}

	poolConfig.MaxConns = int32(cfg.MaxOpenConns)
	poolConfig.MinConns = int32(cfg.MaxIdleConns)
	poolConfig.MaxConnLifetime = cfg.ConnMaxLifetime
	poolConfig.MaxConnIdleTime = 10 * time.Minute

	return pgxpool.NewWithConfig(ctx, poolConfig)
}

// connectRedis 连接 Redis
func connectRedis(cfg config.RedisConfig) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: cfg.PoolSize,
	})
}

// connectNATS 连接 NATS
func connectNATS(cfg config.NATSConfig) (*nats.Conn, error) {
	opts := []nats.Option{
		nats.MaxReconnects(cfg.MaxReconnects),
		nats.ReconnectWait(cfg.ReconnectWait),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			slog.Warn("Disconnected from NATS", "error", err)
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			slog.Info("Reconnected to NATS", "url", nc.ConnectedUrl())
		}),
		nats.Timeout(10 * time.Second),
	}
	return nats.Connect(cfg.URL, opts...)
}
