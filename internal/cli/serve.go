package cli

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/mirrorwell/selftree/internal/config"
	"github.com/mirrorwell/selftree/internal/httpapi"
	"github.com/mirrorwell/selftree/internal/session"
	"github.com/mirrorwell/selftree/internal/store"
)

func init() {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API server",
		Run:   runServe,
	}
	cmd.Flags().String("addr", "", "Listen address (default: $SELFTREE_ADDR or :8080)")

	RootCmd.AddCommand(cmd)
}

func runServe(cmd *cobra.Command, args []string) {
	cfg, err := config.Load()
	if err != nil {
		exitErr("load config", err)
	}
	if addr, _ := cmd.Flags().GetString("addr"); addr != "" {
		cfg.ServerAddress = addr
	}
	if dbPath != "" {
		cfg.DBPath = dbPath
	}

	logger, err := buildLogger(cfg)
	if err != nil {
		exitErr("init logger", err)
	}
	defer logger.Sync()

	st, err := store.NewSQLiteStore(cfg.DBPath)
	if err != nil {
		exitErr("open store", err)
	}
	defer st.Close()

	var gen session.PersonaGenerator
	if cfg.GeneratorURL != "" {
		gen = session.NewHTTPGenerator(cfg.GeneratorURL)
	}
	coord := session.New(st, gen, session.Options{
		MaxDepth:     cfg.MaxDepth,
		MinBatchSize: cfg.MinBatchSize,
		MaxBatchSize: cfg.MaxBatchSize,
	}, logger)

	router := httpapi.NewRouter(coord, cfg, logger)
	srv := &http.Server{
		Addr:         cfg.ServerAddress,
		Handler:      router.Setup(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("starting server",
			zap.String("address", cfg.ServerAddress),
			zap.String("environment", cfg.Environment),
			zap.String("db", cfg.DBPath),
		)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", zap.Error(err))
	}
}

func buildLogger(cfg *config.Config) (*zap.Logger, error) {
	var zcfg zap.Config
	if cfg.Environment == "production" {
		zcfg = zap.NewProductionConfig()
	} else {
		zcfg = zap.NewDevelopmentConfig()
	}
	if lvl, err := zap.ParseAtomicLevel(cfg.LogLevel); err == nil {
		zcfg.Level = lvl
	}
	return zcfg.Build()
}
