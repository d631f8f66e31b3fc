package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rehearsal-scheduler/app/internal/auth"
	"github.com/rehearsal-scheduler/app/internal/config"
	"github.com/rehearsal-scheduler/app/internal/database"
	"github.com/rehearsal-scheduler/app/internal/handlers"
	"github.com/rehearsal-scheduler/app/internal/logging"
	"github.com/sirupsen/logrus"
)

const shutdownTimeout = 15 * time.Second

func main() {
	cfg, err := config.Load(".env")
	if err != nil {
		logrus.Fatalf("Error loading configuration: %v", err)
	}

	log := logging.New(cfg.LogLevel, cfg.LogFormat)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Initialize database
	db, err := database.Open(ctx, cfg.DBDriver, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Error initializing database: %v", err)
	}
	defer db.Close()

	env := &handlers.Env{
		DB:     db,
		Tokens: auth.NewTokenManager(cfg.JWTSecret, cfg.JWTTTL),
		Log:    log,
	}
	router, err := handlers.NewRouter(env, handlers.RouterOptions{
		APIURL:         cfg.APIURL,
		AllowedOrigins: cfg.AllowedOrigins(),
		RateLimitRPS:   cfg.RateLimitRPS,
		RateLimitBurst: cfg.RateLimitBurst,
	})
	if err != nil {
		log.Fatalf("Error building router: %v", err)
	}

	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		log.WithFields(logrus.Fields{
			"addr":   srv.Addr,
			"driver": cfg.DBDriver,
			"docs":   cfg.APIURL + "/api/docs",
		}).Info("Starting server")
		serverErr <- srv.ListenAndServe()
	}()

	select {
	case err = <-serverErr:
		if !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Server error: %v", err)
		}
	case <-ctx.Done():
		log.Info("Shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err = srv.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("Graceful shutdown failed")
	}
}
