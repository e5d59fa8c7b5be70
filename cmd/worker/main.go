package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/campus-push/internal/bootstrap"
	"github.com/campus-push/internal/config"
	amqpinfra "github.com/campus-push/internal/infrastructure/amqp"
	"github.com/campus-push/internal/pkg/logger"
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

	sigCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Cycles run on their own context so a signal lets the current one finish.
	cycleCtx, cancelCycles := context.WithCancel(context.Background())
	defer cancelCycles()

	poller := app.NewPoller()
	poller.Start(cycleCtx)

	g, gctx := errgroup.WithContext(sigCtx)
	if cfg.RabbitMQURL != "" {
		consumer, err := amqpinfra.NewConsumer(amqpinfra.ConsumerConfig{
			URL:             cfg.RabbitMQURL,
			Queue:           cfg.RabbitMQueue,
			DeadLetterQueue: cfg.RabbitMQDLQ,
		}, app.Trigger, log)
		if err != nil {
			log.WithError(err).Fatal("start event consumer")
		}
		defer consumer.Close()
		g.Go(func() error { return consumer.Run(gctx) })
	} else {
		log.Info("RABBITMQ_URL not set, event consumer disabled")
	}

	<-gctx.Done()
	log.Info("shutting down worker")
	poller.Stop()
	cancelCycles()

	if err := g.Wait(); err != nil && sigCtx.Err() == nil {
		log.WithError(err).Error("event consumer stopped")
		return
	}
	log.Info("worker stopped")
}
