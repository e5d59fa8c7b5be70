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

	"github.com/campus-push/internal/bootstrap"
	"github.com/campus-push/internal/config"
	"github.com/campus-push/internal/pkg/logger"
	transporthttp "github.com/campus-push/internal/transport/http"
	"github.com/sirupsen/logrus"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("load config")
	}
	log := logger.New(cfg.LogLevel, cfg.AppEnv)
	if err := cfg.Validate(); err != nil {
		log.WithError(err).Fatal("invalid config")
	}

	app, err := bootstrap.New(context.Background(), cfg, log)
	if err != nil {
		log.WithError(err).Fatal("bootstrap")
	}
	defer app.Close()

	deps := &transporthttp.Deps{
		Notifications: app.Notifications,
		Devices:       app.Devices,
		Invites:       app.Invites,
		Admin:         app.Admin,
		Trigger:       app.Trigger,
		HealthChecks:  app.HealthChecks(),
		Logger:        log,
	}
	// Interface fields stay nil rather than holding a typed nil pointer.
	if app.JWT != nil {
		deps.OperatorAuth = app.JWT
	}
	if app.AppVerifier != nil {
		deps.AppAuth = app.AppVerifier
	}

	router := transporthttp.NewRouter(cfg, deps)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.AppPort),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.WithFields(logrus.Fields{"port": cfg.AppPort, "env": cfg.AppEnv}).Info("server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.WithError(err).Error("forced shutdown")
	}
	log.Info("server stopped")
}
