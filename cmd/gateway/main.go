package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/numgate/numgate-server/internal/api"
	"github.com/numgate/numgate-server/internal/auth"
	"github.com/numgate/numgate-server/internal/config"
	"github.com/numgate/numgate-server/internal/ratelimit"
	"github.com/numgate/numgate-server/internal/server"
	"github.com/numgate/numgate-server/internal/storage"
	"github.com/numgate/numgate-server/internal/tenant"
)

func main() {
	// Command line flags
	var configFile string
	flag.StringVar(&configFile, "config", "config/gateway.yml", "Configuration file path")
	flag.Parse()

	// Setup logging
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	// Load configuration
	cfg, err := config.Load(configFile)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	// Set log level
	level, err := zerolog.ParseLevel(cfg.Log.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	// Connect to database
	store, err := storage.NewPostgresStore(cfg.Database.DSN)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer store.Close()

	log.Info().Msg("Connected to database")

	// Create context
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Process-wide caches and rate limiter
	deps := api.Deps{
		TenantCache: tenant.NewCache(cfg.Cache.TenantCapacity, cfg.Cache.TenantTTL),
		TokenCache:  auth.NewTokenCache(cfg.Cache.TokenCapacity, cfg.Cache.TokenTTL, cfg.Cache.SweepInterval),
		Limiter:     ratelimit.New(cfg.RateLimit.MaxAttempts, cfg.RateLimit.Window, cfg.RateLimit.CleanupInterval),
	}

	// WaitGroup for services
	var wg sync.WaitGroup

	// Optional: connect to NATS for cross-instance cache invalidation
	if cfg.NATS.URL != "" {
		log.Info().Str("url", cfg.NATS.URL).Msg("Connecting to NATS...")

		nc, err := nats.Connect(cfg.NATS.URL,
			nats.Name("numgate-gateway"),
			nats.UserInfo(cfg.NATS.Username, cfg.NATS.Password),
			nats.ReconnectWait(cfg.NATS.ReconnectInterval),
			nats.MaxReconnects(cfg.NATS.MaxReconnects),
			nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
				log.Warn().Err(err).Msg("Disconnected from NATS")
			}),
			nats.ReconnectHandler(func(nc *nats.Conn) {
				log.Info().Msg("Reconnected to NATS")
			}),
			nats.ErrorHandler(func(nc *nats.Conn, sub *nats.Subscription, err error) {
				log.Error().
					Err(err).
					Str("subject", sub.Subject).
					Msg("NATS error")
			}),
		)

		if err != nil {
			log.Warn().Err(err).Msg("Failed to connect to NATS, continuing without NATS support")
		} else {
			defer nc.Close()
			log.Info().Msg("Connected to NATS")

			deps.NATS = nc

			// Apply invalidations published by sibling instances
			subscriber := server.NewNATSSubscriber(nc, deps.TenantCache)

			wg.Add(1)
			go func() {
				defer wg.Done()
				log.Info().Msg("Starting NATS subscriber")
				if err := subscriber.Start(ctx); err != nil {
					log.Error().Err(err).Msg("NATS subscriber stopped")
				}
			}()
		}
	} else {
		log.Info().Msg("NATS not configured, running in standalone mode")
	}

	// Start gateway HTTP server
	gateway := api.NewGatewayServer(cfg, store, deps)

	wg.Add(1)
	go func() {
		defer wg.Done()
		addr := fmt.Sprintf("%s:%d", cfg.API.Host, cfg.API.Port)
		log.Info().
			Str("addr", addr).
			Str("root_domain", cfg.Platform.RootDomain).
			Int("apps", len(cfg.Apps)).
			Msg("Starting gateway server")
		if err := gateway.ListenAndServe(addr); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Gateway server failed")
		}
	}()

	// Wait for signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigChan
	log.Info().Str("signal", sig.String()).Msg("Received signal, shutting down")

	// Cancel context
	cancel()

	// Shutdown gateway server
	if err := gateway.Shutdown(context.Background()); err != nil {
		log.Error().Err(err).Msg("Failed to shutdown gateway server gracefully")
	}

	// Wait for all services
	wg.Wait()

	log.Info().Msg("Gateway stopped")
}
