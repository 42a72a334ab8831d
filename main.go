package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"dental-registration/api"
	"dental-registration/config"
	"dental-registration/database"

	"github.com/sirupsen/logrus"
)

const shutdownTimeout = 15 * time.Second

func main() {
	configPath := flag.String("config", "", "path to a YAML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		logrus.WithError(err).Fatal("load config")
	}
	log := config.NewLogger(cfg, os.Stdout)

	log.Info("attempting to connect to database...")
	db, err := database.Connect(cfg.Database.DSN, database.PoolConfig{
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
	})
	if err != nil {
		log.WithError(err).Fatal("database connect")
	}
	defer db.Close()
	log.Info("successfully connected to database")

	if cfg.Database.Migrate {
		if err := database.Migrate(context.Background(), db); err != nil {
			log.WithError(err).Fatal("database migrate")
		}
		log.Info("database schema is up to date")
	}

	service := api.NewAPI(db, log, api.Options{
		StaticDir:             cfg.HTTP.StaticDir,
		AllowedOrigins:        cfg.HTTP.AllowedOrigins,
		AllowAllOrigins:       cfg.IsDevelopment(),
		TrustProxy:            cfg.HTTP.TrustProxy,
		RateLimitWindow:       cfg.RateLimit.Window,
		APIRateLimit:          cfg.RateLimit.APIMax,
		RegistrationRateLimit: cfg.RateLimit.RegistrationMax,
		TxTimeout:             cfg.Database.TxTimeout,
		MaxBodyBytes:          cfg.HTTP.MaxBodyBytes,
	})
	service.RegisterRoutes()

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           service.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		log.WithFields(logrus.Fields{"port": cfg.Port, "env": cfg.Env}).Info("server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("listen and serve")
		}
	}()

	<-ctx.Done()
	log.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("server shutdown")
	}
}
