package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/roaddasher/dasher/internal/api"
	"github.com/roaddasher/dasher/internal/auth"
	"github.com/roaddasher/dasher/internal/demo"
	"github.com/roaddasher/dasher/internal/location"
	"github.com/roaddasher/dasher/internal/logger"
	"github.com/roaddasher/dasher/internal/store"
	"github.com/roaddasher/dasher/internal/wallet"
)

// relogin happens when the bearer token is this close to expiry.
const tokenExpiryWindow = 5 * time.Minute

func main() {
	if err := run(); err != nil {
		panic(err)
	}
}

func run() error {
	_ = godotenv.Load()

	cfg, err := NewConfig()
	if err != nil {
		log.Fatal(err)
	}
	if err := logger.Initialize(cfg.LogLevel); err != nil {
		return err
	}

	tokens := auth.NewTokenStore()
	client := api.New(cfg.APIAddress, tokens, nil)

	var (
		orderFallback  store.Fallback
		walletFallback wallet.Fallback
	)
	if cfg.DemoMode {
		ds := demo.Dataset{}
		orderFallback = ds
		walletFallback = ds
	}
	orders := store.New(client, orderFallback)
	earnings := wallet.New(client, walletFallback)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	login(ctx, client, cfg)

	if err := client.UpdateOnlineStatus(ctx, true); err != nil {
		logger.Log.Warn("failed to go online", zap.Error(err))
	}

	reporter := location.New(client, func() (float64, float64, bool) {
		return cfg.Latitude, cfg.Longitude, true
	}, cfg.LocationInterval)
	reporter.Start(ctx)

	refresh(ctx, orders, earnings)

	ticker := time.NewTicker(cfg.RefreshInterval)
	defer ticker.Stop()
loop:
	for {
		select {
		case <-ctx.Done():
			break loop
		case <-ticker.C:
			if tok := tokens.Token(); tok != "" && auth.ExpiresWithin(tok, tokenExpiryWindow) {
				login(ctx, client, cfg)
			}
			refresh(ctx, orders, earnings)
		}
	}

	logger.Log.Info("shutting down")
	reporter.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.UpdateOnlineStatus(shutdownCtx, false); err != nil {
		logger.Log.Warn("failed to go offline", zap.Error(err))
	}
	if err := client.Logout(shutdownCtx); err != nil {
		logger.Log.Warn("logout failed", zap.Error(err))
	}
	return nil
}

func login(ctx context.Context, client *api.Client, cfg *Config) {
	if cfg.FacebookToken == "" {
		logger.Log.Info("no facebook token configured, running unauthenticated")
		return
	}
	if _, err := client.LoginWithFacebook(ctx, cfg.FacebookToken); err != nil {
		logger.Log.Warn("login failed", zap.Error(err))
		return
	}
	logger.Log.Info("logged in")
}

func refresh(ctx context.Context, orders *store.Store, earnings *wallet.Store) {
	if cur, err := orders.RefreshCurrent(ctx); err != nil {
		logger.Log.Warn("current order refresh degraded", zap.Error(err))
	} else if cur != nil {
		fields := []zap.Field{
			zap.Int64("order_id", cur.ID),
			zap.String("status", cur.Status.Label()),
		}
		if action, ok := cur.Status.NextActionLabel(); ok {
			fields = append(fields, zap.String("next_action", action))
		}
		logger.Log.Info("current order", fields...)
	}

	if available, err := orders.RefreshAvailable(ctx); err != nil {
		logger.Log.Warn("available orders refresh degraded", zap.Error(err))
	} else {
		logger.Log.Info("available orders", zap.Int("count", len(available)))
	}

	if err := earnings.Refresh(ctx); err != nil {
		logger.Log.Warn("earnings refresh degraded", zap.Error(err))
	} else if today := earnings.Today(); today != nil {
		logger.Log.Info("earnings",
			zap.String("today", today.FormattedTotal()),
			zap.Int("orders", today.OrderCount),
		)
	}
}
