package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/suPer8Hu/chatcore/internal/chat"
	"github.com/suPer8Hu/chatcore/internal/config"
	"github.com/suPer8Hu/chatcore/internal/db"
	"github.com/suPer8Hu/chatcore/internal/httpapi"
	"github.com/suPer8Hu/chatcore/internal/httpapi/handlers"
	"github.com/suPer8Hu/chatcore/internal/observability"
	"github.com/suPer8Hu/chatcore/internal/realtime"
	"github.com/suPer8Hu/chatcore/internal/session"
	"github.com/suPer8Hu/chatcore/internal/store/rabbitmq"
	"github.com/suPer8Hu/chatcore/internal/store/redisstore"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	log, err := observability.NewLogger(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// store + blocking migration, before any listener opens
	gdb, err := db.Connect(cfg.DBDriver, cfg.DBDSN)
	if err != nil {
		return err
	}
	defer func() { _ = db.Close(gdb) }()
	if err := db.Migrate(ctx, gdb); err != nil {
		return err
	}

	rds, err := openRedis(ctx, cfg, log)
	if err != nil {
		return err
	}
	if rds != nil {
		defer func() { _ = rds.Close() }()
	}

	resolver, err := buildResolver(cfg, rds)
	if err != nil {
		return err
	}

	var exporter chat.Exporter = chat.NopExporter{}
	if cfg.EventExportEnabled() {
		pub, err := rabbitmq.NewPublisher(cfg.RabbitURL, cfg.RabbitQueue)
		if err != nil {
			return err
		}
		defer func() { _ = pub.Close() }()
		outbox := chat.NewOutbox(pub, cfg.ExportBuffer, log)
		defer func() {
			closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := outbox.Close(closeCtx); err != nil {
				log.Warn("export outbox not drained", "err", err)
			}
			if n := outbox.Dropped(); n > 0 {
				log.Warn("export events dropped", "count", n)
			}
		}()
		exporter = outbox
		log.Info("event export enabled", "queue", cfg.RabbitQueue, "buffer", cfg.ExportBuffer)
	}

	repo := chat.NewRepo(gdb)
	svc := chat.NewService(repo, repo, exporter, cfg.HistoryLimit, log)

	hub := realtime.NewHub(log)
	tracker := realtime.NewTracker(repo, hub, exporter, log)
	typing := realtime.NewCoordinator(hub, cfg.TypingExpiry, log)
	gw := realtime.NewGateway(resolver, svc, hub, tracker, typing, realtime.Options{
		SendBuffer:  cfg.ClientSendBuffer,
		CheckOrigin: func(*http.Request) bool { return true },
	}, log)

	var unread handlers.UnreadReader
	if rds != nil {
		unread = rds
	}
	router := httpapi.NewRouter(httpapi.Deps{
		Chat:      svc,
		Unread:    unread,
		Resolver:  resolver,
		WebSocket: gw.ServeWS,
		Log:       log,
	})

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errChan := make(chan error, 1)
	go func() {
		log.Info("http server listening", "addr", cfg.HTTPAddr, "db", cfg.DBDriver, "session", cfg.SessionBackend)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
	}()

	select {
	case <-ctx.Done():
		log.Info("shutting down")
	case err := <-errChan:
		return fmt.Errorf("http server: %w", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	// hijacked websocket connections are not tracked by http.Server
	gw.Shutdown(shutdownCtx)
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}
	log.Info("server stopped")
	return nil
}

// openRedis connects only when something needs it: the redis session backend
// or the unread counters. An unreachable redis is fatal only for the former.
func openRedis(ctx context.Context, cfg config.Config, log *slog.Logger) (*redisstore.Store, error) {
	if cfg.RedisAddr == "" {
		if cfg.SessionBackend != config.SessionJWT {
			return nil, fmt.Errorf("REDIS_ADDR is required for SESSION_BACKEND=%s", cfg.SessionBackend)
		}
		return nil, nil
	}

	rds := redisstore.New(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := rds.Ping(pingCtx); err != nil {
		_ = rds.Close()
		if cfg.SessionBackend != config.SessionJWT {
			return nil, fmt.Errorf("redis ping: %w", err)
		}
		log.Warn("redis unreachable, unread counters disabled", "addr", cfg.RedisAddr, "err", err)
		return nil, nil
	}
	return rds, nil
}

func buildResolver(cfg config.Config, rds *redisstore.Store) (session.Resolver, error) {
	jwtResolver := session.NewJWTResolver(cfg.JWTSecret, cfg.JWTIssuer)
	switch cfg.SessionBackend {
	case config.SessionJWT:
		return jwtResolver, nil
	case config.SessionRedis:
		return session.NewRedisResolver(rds), nil
	case config.SessionChain:
		return session.Chain(jwtResolver, session.NewRedisResolver(rds)), nil
	default:
		return nil, fmt.Errorf("unsupported session backend %q", cfg.SessionBackend)
	}
}
