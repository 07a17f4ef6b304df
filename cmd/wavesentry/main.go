package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/wavesentry/wavesentry/pkg/api"
	"github.com/wavesentry/wavesentry/pkg/config"
	srhttp "github.com/wavesentry/wavesentry/pkg/http"
	"github.com/wavesentry/wavesentry/pkg/logger"
	"github.com/wavesentry/wavesentry/pkg/registry"
	"github.com/wavesentry/wavesentry/pkg/tracker"
)

var errFailedToLoadConfig = fmt.Errorf("failed to load wavesentry configuration")

func main() {
	if err := run(); err != nil {
		log.Fatalf("Fatal error: %v", err)
	}
}

func run() error {
	configFile := flag.String("config", "/etc/wavesentry/wavesentry.json", "Path to wavesentry config file")
	flag.Parse()

	ctx := context.Background()

	var cfg config.ServerConfig

	cfgLoader := config.NewConfig(nil)
	if err := cfgLoader.LoadAndValidate(ctx, *configFile, &cfg); err != nil {
		return fmt.Errorf("%w: %w", errFailedToLoadConfig, err)
	}

	srLog, err := logger.NewComponent("wavesentry", cfg.Logging)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	reg := tracker.NewRegistry()
	schema := registry.NewBaseSchema(reg)
	store := registry.NewStore(srLog)

	handlerOpts := []func(*api.Handler){api.WithLogger(srLog)}
	if cfg.JWTSecret != "" {
		handlerOpts = append(handlerOpts, api.WithSessionValidator(api.NewJWTValidator(cfg.JWTSecret)))
	}

	handler := api.NewHandler(store, schema, handlerOpts...)

	var routes http.Handler = handler.Router()
	routes = srhttp.APIKeyMiddleware(cfg.APIKey, srLog)(routes)
	routes = srhttp.CommonMiddleware(routes, cfg.CORS, srLog)

	server := &http.Server{
		Addr:         cfg.ListenAddr,
		Handler:      routes,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	errCh := make(chan error, 1)

	go func() {
		srLog.Info().Str("listen_addr", cfg.ListenAddr).Msg("Starting wavesentry query service")

		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-sigCh:
		srLog.Info().Str("signal", sig.String()).Msg("Shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	return server.Shutdown(shutdownCtx)
}
