package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"condash/internal/api"
	"condash/internal/auth"
	"condash/internal/conda"
	"condash/internal/config"
	"condash/internal/observability"
	"condash/internal/runner"
	"condash/internal/systemd"
)

// version is stamped at build time via -ldflags "-X main.version=...".
var version = "dev"

// shutdownTimeout bounds the drain of in-flight requests on exit.
const shutdownTimeout = 5 * time.Second

func main() {
	dir := flag.String("dir", "", "Base directory holding .env (default $CONDASH_DIR, then the working directory)")
	flag.Parse()

	logger := observability.InitLogger("condash")

	cfg, err := config.Load(*dir)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	if err := run(cfg, logger); err != nil {
		log.Fatal().Err(err).Msg("server failed")
	}
}

func run(cfg *config.Config, logger zerolog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.BindHost != "127.0.0.1" && cfg.BindHost != "localhost" {
		log.Warn().Str("bind_host", cfg.BindHost).
			Msg("binding beyond localhost exposes service control and config editing to the network")
		if cfg.ActionToken == "" {
			log.Warn().Msg("no ACTION_TOKEN configured, mutating endpoints are unauthenticated")
		}
	}
	if !systemd.Available() {
		log.Warn().Msg("systemctl not found, service status and actions will report failures")
	}

	exec := runner.New()
	exec.Observe = func(args []string, code int) {
		observability.RecordCommand(filepath.Base(args[0]), code)
	}

	units := systemd.ParseServices(cfg.ServicesRaw)

	frontendFS, err := GetFrontendFS()
	if err != nil {
		return fmt.Errorf("load frontend: %w", err)
	}

	routerCfg := api.Config{
		Envs:        conda.New(cfg.CondaBin, exec),
		Services:    systemd.New(exec),
		Store:       cfg.Store(),
		Units:       units,
		EnvPath:     cfg.EnvPath(),
		MaskSecrets: cfg.MaskSecrets,
		Version:     version,
		Frontend:    frontendFS,
	}
	if cfg.ActionToken != "" {
		routerCfg.Auth = auth.StaticToken{Token: cfg.ActionToken}
	}

	server := &http.Server{
		Addr:    cfg.Addr(),
		Handler: observability.RequestLogger(logger, observability.RequestMetrics(api.NewRouter(routerCfg))),
	}

	log.Info().
		Str("addr", cfg.Addr()).
		Str("conda", cfg.CondaBin).
		Int("units", len(units)).
		Bool("auth", cfg.ActionToken != "").
		Str("version", version).
		Msg("condash listening")

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- server.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		return err
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	if err := <-serveErr; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
