package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi"
	"github.com/spf13/cobra"

	"github.com/winstonacademy/crm-gateway/internal"
	"github.com/winstonacademy/crm-gateway/internal/localstore"
	"github.com/winstonacademy/crm-gateway/internal/session"
	"github.com/winstonacademy/crm-gateway/internal/strapi"
	"github.com/winstonacademy/crm-gateway/internal/transport/rest"
	"github.com/winstonacademy/crm-gateway/pkg/logger"
)

var httpServerCmd = &cobra.Command{
	Use:   "server",
	Short: "Start HTTP server",
	Long:  `Start the gateway server that fronts the Strapi CRM backend`,
	Run: func(cmd *cobra.Command, args []string) {
		startHTTPServer()
	},
}

type Dependencies struct {
	Config  *internal.Config
	Store   *localstore.SQLiteStore
	Client  *strapi.Client
	Manager *session.Manager
	Router  *chi.Mux
	Logger  *slog.Logger
}

func startHTTPServer() {
	deps, err := initializeDependencies()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize dependencies: %v\n", err)
		os.Exit(1)
	}

	setupRoutes(deps)

	addr := fmt.Sprintf(":%d", deps.Config.Server.Port)
	slog.Info("Starting HTTP server", "address", addr, "strapi_url", deps.Config.Strapi.BaseURL)

	server := &http.Server{
		Addr:         addr,
		Handler:      deps.Router,
		ReadTimeout:  deps.Config.Server.ReadTimeout,
		WriteTimeout: deps.Config.Server.WriteTimeout,
		IdleTimeout:  deps.Config.Server.IdleTimeout,
	}

	// Signal handling for graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	serverErrChan := make(chan error, 1)
	go func() {
		serverErrChan <- server.ListenAndServe()
	}()

	select {
	case sig := <-sigChan:
		slog.Info("Received signal, shutting down...", "signal", sig)
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			slog.Error("Server shutdown error", "error", err)
		}
		deps.Manager.Close()
		if err := deps.Store.Close(); err != nil {
			slog.Error("Session store close error", "error", err)
		}
	case err := <-serverErrChan:
		if err != nil && err != http.ErrServerClosed {
			slog.Error("Server failed to start", "error", err)
			os.Exit(1)
		}
	}

	slog.Info("Server stopped")
}

func setupRoutes(deps *Dependencies) {
	authHandler := rest.NewAuthHandler(deps.Manager)
	crmHandler := rest.NewCRMHandler(deps.Client, deps.Manager)
	rest.RegisterAllRoutes(deps.Router, deps.Config, deps.Manager, authHandler, crmHandler, deps.Client, deps.Logger)
}

func initializeDependencies() (*Dependencies, error) {
	config, err := loadConfig(".")
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	logger.Init(os.Getenv("APP_ENV"))
	lg := logger.LoggerWrapper()

	config.Session.ApplyDefaults()

	store, err := localstore.Open(config.Session.StorePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open session store: %w", err)
	}

	client := strapi.NewClient(strapi.Config{
		BaseURL:        config.Strapi.BaseURL,
		RequestTimeout: config.Strapi.RequestTimeout,
	}, lg)

	manager := session.NewManager(client, store, lg, session.Options{
		RefreshThreshold: config.Session.RefreshThreshold,
		MonitorInterval:  config.Session.MonitorInterval,
		AdminIdentifiers: config.Strapi.AdminIdentifiers,
	})

	return &Dependencies{
		Config:  config,
		Store:   store,
		Client:  client,
		Manager: manager,
		Router:  chi.NewRouter(),
		Logger:  lg,
	}, nil
}
