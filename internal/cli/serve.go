package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/PratikDhanave/web-analytics-service/internal/analytics"
	"github.com/PratikDhanave/web-analytics-service/internal/config"
	"github.com/PratikDhanave/web-analytics-service/internal/httpserver"
	"github.com/PratikDhanave/web-analytics-service/internal/logging"
	"github.com/PratikDhanave/web-analytics-service/internal/store"
)

var signalNotifyContext = signal.NotifyContext

func newServeCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API (default command)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, opts)
		},
	}
}

// runServe boots the service: config, logger, store, schema, HTTP server.
// The store is closed only after the HTTP server has drained.
func runServe(cmd *cobra.Command, opts *rootOptions) error {
	ctx, stop := signalNotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, logger, err := loadRuntime(opts)
	if err != nil {
		return err
	}

	mode, err := analytics.ParseCountMode(cfg.SessionCountMode)
	if err != nil {
		return err
	}

	st, err := openStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := st.Close(); err != nil {
			logger.WithError(err).Warn("close store")
		}
	}()

	engine := analytics.NewEngine(st, analytics.WithCountMode(mode))

	gin.SetMode(gin.ReleaseMode)
	router := httpserver.NewRouter(cfg, st, engine, logger)

	logger.WithFields(logrus.Fields{
		"auth":       cfg.AuthEnabled(),
		"count_mode": mode,
	}).Info("configuration loaded")

	return httpserver.NewServer(cfg.ListenAddr(), router, logger).Run(ctx)
}

func loadRuntime(opts *rootOptions) (config.Config, *logrus.Logger, error) {
	cfg, err := config.LoadFile(strings.TrimSpace(opts.configPath))
	if err != nil {
		return config.Config{}, nil, err
	}
	logger, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return config.Config{}, nil, err
	}
	return cfg, logger, nil
}

// openStore connects and ensures the schema so a fresh database is usable.
func openStore(ctx context.Context, cfg config.Config, logger *logrus.Logger) (store.Store, error) {
	backend, err := store.BackendFor(cfg.DBURL)
	if err != nil {
		return nil, err
	}
	st, err := store.Open(ctx, cfg.DBURL)
	if err != nil {
		return nil, fmt.Errorf("connect %s store: %w", backend, err)
	}
	if err := st.EnsureSchema(ctx); err != nil {
		_ = st.Close()
		return nil, fmt.Errorf("ensure %s schema: %w", backend, err)
	}
	logger.WithFields(logrus.Fields{
		"backend": backend,
		"db":      store.Redact(cfg.DBURL),
	}).Info("store ready")
	return st, nil
}
