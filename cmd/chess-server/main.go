package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	appcfg "github.com/park285/cheese-relay/internal/config"
	"github.com/park285/cheese-relay/internal/fanout"
	"github.com/park285/cheese-relay/internal/httpapi"
	"github.com/park285/cheese-relay/internal/msgcat"
	"github.com/park285/cheese-relay/internal/obslog"
	"github.com/park285/cheese-relay/internal/rules"
	"github.com/park285/cheese-relay/internal/session"
	"github.com/park285/cheese-relay/internal/transport"
)

func main() {
	cfg, err := appcfg.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}
	if err := obslog.Init(cfg.Log); err != nil {
		log.Fatalf("logger init error: %v", err)
	}
	defer obslog.Sync()
	logger := obslog.L()

	engine, err := rules.NewStandard(cfg.StartFEN)
	if err != nil {
		logger.Fatal("engine_init_failed", zap.Error(err))
	}
	catalog, err := msgcat.New(cfg.MessagesDir)
	if err != nil {
		logger.Fatal("msgcat_init_failed", zap.String("dir", cfg.MessagesDir), zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	opts := []session.Option{session.WithCatalog(catalog)}
	if cfg.RedisURL != "" {
		pctx, cancel := context.WithTimeout(ctx, 5*time.Second)
		rdb, err := fanout.Connect(pctx, cfg.RedisURL)
		cancel()
		if err != nil {
			logger.Fatal("redis_connect_failed", zap.Error(err))
		}
		defer rdb.Close()
		pub := fanout.NewRedisPublisher(rdb, cfg.RedisChannel, 0)
		go pub.Run(ctx)
		opts = append(opts, session.WithPublisher(pub))
		logger.Info("fanout_enabled", zap.String("channel", cfg.RedisChannel))
	}

	sess := session.New(ctx, engine, opts...)
	handler := httpapi.SetupRoutes(sess, transport.Options{
		OriginPatterns: cfg.AllowedOrigins,
		OutboxSize:     cfg.OutboxSize,
		WriteTimeout:   cfg.WriteTimeout,
		ReadLimit:      cfg.ReadLimitBytes,
	})

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		logger.Info("http_listen", zap.String("addr", cfg.HTTPAddr), zap.String("fen", engine.FEN()))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http_serve_failed", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutdown_begin")

	// closing the session ends every socket's writer, which closes the sockets
	sess.Close()
	sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(sctx); err != nil {
		logger.Warn("http_shutdown", zap.Error(err))
	}
	logger.Info("shutdown_complete")
}
