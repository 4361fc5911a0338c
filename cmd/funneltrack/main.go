package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"funneltrack/internal/auth"
	"funneltrack/internal/config"
	"funneltrack/internal/core"
	apphttp "funneltrack/internal/http"
	"funneltrack/internal/log"
	"funneltrack/internal/services"
	"funneltrack/internal/storage"
)

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	logger := log.New(log.Config{
		Level:     slog.LevelInfo,
		Component: log.ComponentApp,
	})
	log.SetDefault(logger)

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Invalid configuration", log.FieldError, err)
		os.Exit(1)
	}

	repo, err := storage.NewRepository(cfg.SQLiteDBPath)
	if err != nil {
		logger.Error("Failed to open database", log.FieldError, err, "path", cfg.SQLiteDBPath)
		os.Exit(1)
	}
	defer repo.Close()

	var cipher auth.SecretCipher
	if key := cfg.OTPSecretKeyBytes(); key != nil {
		cipher, err = auth.NewAEADCipher(key)
		if err != nil {
			logger.Error("Failed to initialize OTP secret cipher", log.FieldError, err)
			os.Exit(1)
		}
		logger.Info("OTP secret sealing enabled")
	}

	authSvc := auth.NewService(repo, repo, auth.NewCodec(cfg.JWTSecret), auth.ServiceConfig{
		Issuer:     cfg.OTPIssuer,
		AccessTTL:  cfg.AccessTTL,
		RefreshTTL: cfg.RefreshTTL,
		Cipher:     cipher,
	}, logger)

	periods := core.NewCalculator(cfg.BreakpointDay)
	funnelSvc := services.NewFunnelService(repo, periods, logger)
	spendingSvc := services.NewSpendingService(repo, periods, logger)

	srv := apphttp.NewServer(":"+cfg.Port, authSvc, funnelSvc, spendingSvc, logger)
	srv.ReadTimeout = 10 * time.Second
	srv.WriteTimeout = 10 * time.Second
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16 // 64KB

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("Starting funneltrack server",
			"port", cfg.Port, "breakpoint_day", cfg.BreakpointDay)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	// Revocation records older than the refresh TTL can never match a
	// live token again; sweep them out periodically.
	g.Go(func() error {
		return runRevocationPruner(ctx, repo, cfg.RefreshTTL, logger)
	})

	if err := g.Wait(); err != nil {
		logger.Error("Server error", log.FieldError, err)
		os.Exit(1)
	}
	logger.Info("Server stopped gracefully")
}

func runRevocationPruner(ctx context.Context, repo *storage.Repository, refreshTTL time.Duration, logger *log.Logger) error {
	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()

	pruner := logger.WithComponent(log.ComponentPruner)
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			cutoff := time.Now().Add(-refreshTTL).Unix()
			pruned, err := repo.PruneRevocations(ctx, cutoff)
			if err != nil {
				pruner.Error("Failed to prune revocations", log.FieldError, err)
				continue
			}
			if pruned > 0 {
				pruner.Info("Pruned stale revocations", "count", pruned)
			}
		}
	}
}
