// @title Travel Diary Backend API
// @version 1.0
// @description Travel planning backend: trips, itineraries, collaboration, and sharing

// @license.name MIT
// @license.url https://opensource.org/licenses/MIT

// @host localhost:8080
// @BasePath /
// @schemes http https

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/cors"

	"github.com/traveldiary/backend/internal/config"
	"github.com/traveldiary/backend/internal/email"
	"github.com/traveldiary/backend/internal/handlers"
	"github.com/traveldiary/backend/internal/logging"
	"github.com/traveldiary/backend/internal/routes"
	"github.com/traveldiary/backend/internal/service"
	"github.com/traveldiary/backend/internal/store"
	"github.com/traveldiary/backend/internal/store/postgres"
	"github.com/traveldiary/backend/internal/store/sqlite"
)

func main() {
	logging.Setup()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	st, err := openStore(cfg)
	if err != nil {
		slog.Error("failed to open store", "driver", cfg.Database.Driver, "error", err)
		os.Exit(1)
	}
	defer st.Close()

	if err := st.Ping(context.Background()); err != nil {
		slog.Error("store ping failed", "error", err)
		os.Exit(1)
	}
	slog.Info("connected to store", "driver", cfg.Database.Driver)

	var sender email.Sender = email.NoopSender{}
	if cfg.IsEmailConfigured() {
		sender = email.NewSMTPSender(&cfg.Email)
	}

	svc := service.New(st, sender, cfg.App.BaseURL, cfg.JWT.SessionTTL)

	h := routes.Handlers{
		Auth:       handlers.NewAuthHandler(svc, cfg),
		GoogleAuth: handlers.NewGoogleAuthHandler(svc, cfg),
		Trips:      handlers.NewTripsHandler(svc, cfg),
		Invites:    handlers.NewInvitesHandler(svc, cfg),
		Shares:     handlers.NewSharesHandler(svc, cfg),
		Health:     handlers.NewHealthHandler(st),
	}

	mux := http.NewServeMux()
	routes.SetupRoutes(mux, h, svc, cfg)

	c := cors.New(cors.Options{
		AllowedOrigins:   cfg.CORS.AllowedOrigins,
		AllowedMethods:   cfg.CORS.AllowedMethods,
		AllowedHeaders:   cfg.CORS.AllowedHeaders,
		AllowCredentials: cfg.CORS.AllowCredentials,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           c.Handler(mux),
		ReadHeaderTimeout: cfg.Server.ReadTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
		IdleTimeout:       cfg.Server.IdleTimeout,
	}

	go func() {
		slog.Info("HTTP server listening", "port", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server stopped", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit
	slog.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server shutdown error", "error", err)
	}
	slog.Info("server stopped")
}

func openStore(cfg *config.Config) (store.Store, error) {
	if cfg.Database.Driver == "sqlite" {
		return sqlite.New(cfg.Database.SQLitePath)
	}
	return postgres.New(context.Background(), cfg.GetDSN(), cfg.Database.MaxConns)
}
