package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"holdem-live/apps/server/internal/auth"
	"holdem-live/apps/server/internal/config"
	"holdem-live/apps/server/internal/gateway"
	"holdem-live/apps/server/internal/httpapi"
	"holdem-live/apps/server/internal/lobby"
	"holdem-live/apps/server/internal/logger"
	"holdem-live/apps/server/internal/store"
	"holdem-live/apps/server/internal/table"
	"holdem-live/holdem"
)

const shutdownTimeout = 10 * time.Second

func main() {
	configPath := flag.String("config", "", "path to a YAML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	log, err := logger.New(cfg.Server.Mode)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Fatal("server stopped", zap.Error(err))
	}
	log.Info("server stopped")
}

func run(ctx context.Context, cfg *config.Config, log *zap.Logger) error {
	tables, hands, err := store.Open(ctx, cfg)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer func() {
		_ = hands.Close()
		_ = tables.Close()
	}()
	writer := store.NewWriter(tables, hands, store.WriterOptions{
		Retry:   store.RetryPolicy{Attempts: cfg.Store.Retry.Attempts, Backoff: cfg.Store.Retry.Backoff},
		Workers: cfg.Store.Workers,
		Logger:  log,
	})

	secret := cfg.Auth.Secret
	if secret == "" {
		secret = devSecret()
		log.Warn("auth.secret not set, tokens will not survive a restart")
	}
	jwtSvc, err := auth.NewJWTService(auth.Options{
		Secret:      secret,
		Issuer:      cfg.Auth.Issuer,
		AllowGuests: cfg.Auth.AllowGuests,
	})
	if err != nil {
		return err
	}

	router := gateway.NewRouter(log)
	lby := lobby.New(lobby.Options{
		Settings: holdem.Settings{
			MaxSeats:      cfg.Table.MaxSeats,
			StartingStack: cfg.Table.StartingStack,
			SmallBlind:    cfg.Table.SmallBlind,
			BigBlind:      cfg.Table.BigBlind,
		},
		Policy:        holdem.Policy{TurnTimeout: cfg.Table.TurnTimeout, Debounce: cfg.Table.Debounce},
		Actor:         table.Options{Broadcaster: router, Logger: log},
		Persister:     writer,
		Loader:        writer,
		Logger:        log,
		IdleTTL:       cfg.Table.IdleTTL,
		SweepInterval: cfg.Table.SweepInterval,
	})
	router.Attach(lby)

	restored, err := lby.Restore(ctx)
	if err != nil {
		return fmt.Errorf("restore tables: %w", err)
	}
	log.Info("tables restored", zap.Int("count", restored))

	if cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}
	reader, _ := hands.(store.HandReader)
	if reader == nil {
		log.Info("hand archive is write-only, replay endpoints disabled", zap.String("archive", cfg.Store.Archive))
	}
	api, err := httpapi.New(httpapi.Options{
		Lobby:   lby,
		Router:  router,
		Auth:    jwtSvc,
		Hands:   reader,
		History: store.HistoryOf(hands),
		Logger:  log,
	})
	if err != nil {
		return err
	}
	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           api.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	// The writer outlives everything else so the final table saves reach the store.
	writerCtx, stopWriter := context.WithCancel(context.Background())
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return writer.Run(writerCtx) })
	g.Go(func() error { return lby.Run(gctx) })
	g.Go(func() error {
		log.Info("server listening",
			zap.String("addr", cfg.Server.Addr),
			zap.String("tables", cfg.Store.Tables),
			zap.String("archive", cfg.Store.Archive),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		defer stopWriter()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Warn("http shutdown", zap.Error(err))
		}
		lby.Close()
		if err := writer.Flush(shutdownCtx); err != nil {
			log.Error("store flush incomplete", zap.Error(err), logger.Alert())
		}
		return nil
	})
	return g.Wait()
}

func devSecret() string {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		panic(err)
	}
	return hex.EncodeToString(b)
}
