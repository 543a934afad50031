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

	"github.com/joho/godotenv"

	"github.com/zhouzirui/z-support/backend/internal/config"
	"github.com/zhouzirui/z-support/backend/internal/handler"
	"github.com/zhouzirui/z-support/backend/internal/middleware"
	"github.com/zhouzirui/z-support/backend/internal/service/support"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Load .env file
	if err := godotenv.Load(); err != nil {
		log.Printf("warning: failed to load .env file: %v", err)
		log.Println("continuing with system environment variables only")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	store, closer, err := cfg.Store.OpenStore(ctx)
	if err != nil {
		log.Fatalf("failed to open ticket store: %v", err)
	}
	defer closer.Close()
	log.Printf("ticket store ready (driver=%s)", cfg.Store.Driver)

	// 启动时加载一次，旧格式文档在此处迁移并写回
	if _, err := store.Load(ctx); err != nil {
		log.Fatalf("failed to load tickets: %v", err)
	}

	if !cfg.Admin.Enabled() {
		log.Println("ADMIN_SECRET 未配置，管理端接口将返回 503")
	}

	idem := middleware.NewIdempotency(cfg.Server.IdempotencyTTL)
	defer idem.Stop()

	router := handler.NewRouter(cfg, support.NewService(store), idem)

	startServer(ctx, cfg.Server, router)
}

func startServer(ctx context.Context, serverCfg config.ServerConfig, router http.Handler) {
	addr := serverCfg.Addr
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	log.Printf("Z Support backend listening on %s", addr)
	if err := runServer(ctx, srv); err != nil {
		log.Printf("server error: %v", err)
	}
}

func runServer(ctx context.Context, srv *http.Server) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		err := <-errCh
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
