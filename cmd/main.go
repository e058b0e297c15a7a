package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"tableside/internal/api"
	"tableside/internal/cart"
	"tableside/internal/catalog"
	"tableside/internal/config"
	"tableside/internal/llm"
	"tableside/internal/logger"
	"tableside/internal/monitoring"
	"tableside/internal/order"
	"tableside/internal/session"
)

func main() {
	// Prices travel as JSON numbers, matching the tool schemas.
	decimal.MarshalJSONWithoutQuotes = true

	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configFile string

	root := &cobra.Command{
		Use:          "tableside",
		Short:        "Conversational ordering for restaurant tables",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&configFile, "config", "configs/config.yaml", "Path to configuration file")

	serve := &cobra.Command{
		Use:   "serve",
		Short: "Run the ordering API and metrics servers",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), configFile)
		},
	}

	menu := &cobra.Command{Use: "menu", Short: "Manage the menu catalog"}
	seed := &cobra.Command{
		Use:   "seed [file]",
		Short: "Replace the database menu with the contents of a JSON or YAML file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSeed(configFile, args[0])
		},
	}
	menu.AddCommand(seed)

	root.AddCommand(serve, menu)
	return root
}

func runServe(parent context.Context, configFile string) error {
	cfg, err := config.Load(configFile)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	log := logger.New(cfg.Log)
	if log.GetLevel() < logrus.DebugLevel {
		gin.SetMode(gin.ReleaseMode)
	}

	menu, err := catalog.Load(cfg.Menu, log)
	if err != nil {
		return fmt.Errorf("failed to load menu: %w", err)
	}
	rate, err := cfg.TaxRate()
	if err != nil {
		return err
	}
	model, err := llm.NewFromConfig(cfg.LLM)
	if err != nil {
		return fmt.Errorf("failed to initialize LLM: %w", err)
	}
	system, err := session.SystemPrompt(cfg.Restaurant, menu, rate)
	if err != nil {
		return err
	}

	monitor := monitoring.NewMonitor()
	agg := cart.NewAggregator(rate)
	driver := session.NewDriver(model, menu, agg, order.NewBuilder(rate), system, monitor, log)
	sessions := session.NewManager(cfg.Session, agg.Empty(), monitor, log)
	orderAPI := api.NewOrderAPI(sessions, driver, session.NewWelcome(cfg.Restaurant), monitor, log)

	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.Session.SweepInterval > 0 {
		go sessions.Run(ctx, cfg.Session.SweepInterval)
	}

	metricsServer := startMetricsServer(cfg.Server.MetricsPort, monitor, log)

	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: orderAPI.Router,
	}
	errCh := make(chan error, 1)
	go func() {
		log.WithFields(logrus.Fields{
			"port":     cfg.Server.Port,
			"provider": cfg.LLM.Provider,
			"model":    cfg.LLM.Model,
			"items":    menu.ItemCount(),
		}).Info("starting API server")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		return fmt.Errorf("API server error: %w", err)
	}

	log.Info("shutting down servers")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Warn("API server shutdown error")
	}
	if err := metricsServer.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Warn("metrics server shutdown error")
	}
	return nil
}

func startMetricsServer(port int, monitor *monitoring.Monitor, log *logrus.Logger) *http.Server {
	metricsRouter := gin.New()
	metricsRouter.GET("/metrics", gin.WrapH(monitor.Handler()))

	metricsServer := &http.Server{
		Addr:    fmt.Sprintf(":%d", port),
		Handler: metricsRouter,
	}

	go func() {
		log.WithField("port", port).Info("starting metrics server")
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Error("metrics server error")
		}
	}()
	return metricsServer
}

func runSeed(configFile, menuFile string) error {
	cfg, err := config.Load(configFile)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if cfg.Menu.DSN == "" {
		return fmt.Errorf("menu.dsn is required to seed the menu database")
	}
	log := logger.New(cfg.Log)

	menu, err := catalog.LoadFile(menuFile)
	if err != nil {
		return err
	}
	store, err := catalog.OpenStore(cfg.Menu.Driver, cfg.Menu.DSN)
	if err != nil {
		return err
	}
	defer store.Close()

	if err := store.Replace(menu); err != nil {
		return err
	}
	log.WithFields(logrus.Fields{"file": menuFile, "items": menu.ItemCount()}).Info("menu database replaced")
	return nil
}
