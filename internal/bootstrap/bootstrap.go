// Package bootstrap builds the backends selected by configuration and the
// services on top of them. The api, worker and notifyctl binaries share it.
package bootstrap

import (
	"context"
	"fmt"

	"cloud.google.com/go/firestore"
	firebase "firebase.google.com/go/v4"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	goredis "github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/campus-push/internal/application/admin"
	"github.com/campus-push/internal/application/device"
	"github.com/campus-push/internal/application/dispatch"
	"github.com/campus-push/internal/application/invite"
	"github.com/campus-push/internal/application/notification"
	"github.com/campus-push/internal/application/trigger"
	"github.com/campus-push/internal/config"
	"github.com/campus-push/internal/domain"
	"github.com/campus-push/internal/infrastructure/dynamo"
	"github.com/campus-push/internal/infrastructure/fcm"
	fsstore "github.com/campus-push/internal/infrastructure/firestore"
	"github.com/campus-push/internal/infrastructure/google"
	jwtinfra "github.com/campus-push/internal/infrastructure/jwt"
	redisinfra "github.com/campus-push/internal/infrastructure/redis"
	s3infra "github.com/campus-push/internal/infrastructure/s3"
	"github.com/campus-push/internal/infrastructure/smtp"
	"github.com/campus-push/internal/infrastructure/sns"
	"github.com/campus-push/internal/transport/http/handler"
)

const pollLockKey = "campus-push:poll-cycle"

// RecordStore is what every record-store backend provides.
type RecordStore interface {
	dispatch.NotificationStore
	dispatch.PendingStore
	Create(ctx context.Context, n *domain.Notification) error
	ListByUser(ctx context.Context, userID string, limit int32) ([]domain.Notification, error)
	ListByUniversity(ctx context.Context, universityID string, limit int32) ([]domain.Notification, error)
	MarkAsRead(ctx context.Context, notificationID string) error
}

// TokenStore is what every device-token backend provides.
type TokenStore interface {
	Put(ctx context.Context, t *domain.DeviceToken) error
	ListTokens(ctx context.Context, userID string) ([]string, error)
	DeleteToken(ctx context.Context, userID, token string) error
}

// PushTransport is a delivery transport that can also manage topic subscriptions.
type PushTransport interface {
	dispatch.Transport
	trigger.TopicSubscriber
}

// App is the fully wired object graph.
type App struct {
	Config *config.Config
	Log    *logrus.Logger

	Dynamo    *dynamodb.Client
	Firestore *firestore.Client // nil unless STORE_BACKEND=firestore
	Redis     *goredis.Client   // nil without REDIS_URL

	Store     RecordStore
	Tokens    TokenStore
	Users     trigger.UserReader
	Transport PushTransport
	Images    dispatch.ImageStore // nil without S3_BUCKET_NAME
	Pipeline  *dispatch.Pipeline
	Trigger   *trigger.Handler

	Notifications notification.Service
	Devices       device.Service
	Invites       invite.Service
	Admin         admin.Service

	JWT         *jwtinfra.Provider // nil when the key pair is missing
	AppVerifier *google.Verifier   // nil without Firebase
	userAdmin   *google.UserAdmin

	closers []func() error
}

// New connects every selected backend and builds the services. Callers must
// Close the returned App.
func New(ctx context.Context, cfg *config.Config, log *logrus.Logger) (*App, error) {
	a := &App{Config: cfg, Log: log}
	if err := a.connect(ctx); err != nil {
		a.Close()
		return nil, err
	}
	a.wire()
	return a, nil
}

func (a *App) connect(ctx context.Context) error {
	cfg := a.Config

	dyn, err := dynamo.NewClient(ctx, cfg)
	if err != nil {
		return err
	}
	a.Dynamo = dyn
	dynamo.Bootstrap(ctx, dyn, cfg.DynamoTables, a.Log)

	var fbApp *firebase.App
	if cfg.UsesFirebase() {
		if fbApp, err = google.NewApp(ctx, cfg.Firebase); err != nil {
			return err
		}
		authClient, err := fbApp.Auth(ctx)
		if err != nil {
			return fmt.Errorf("%w: firebase auth: %v", domain.ErrConfiguration, err)
		}
		a.AppVerifier = google.NewVerifier(authClient)
		a.userAdmin = google.NewUserAdmin(authClient)
	}

	userRepo := dynamo.NewUserRepo(dyn, cfg.DynamoTables.Users)
	switch cfg.StoreBackend {
	case config.StoreFirestore:
		fs, err := fbApp.Firestore(ctx)
		if err != nil {
			return fmt.Errorf("%w: firestore: %v", domain.ErrConfiguration, err)
		}
		a.Firestore = fs
		a.closers = append(a.closers, fs.Close)
		store := fsstore.NewStore(fs)
		a.Store = store
		a.Tokens = store
		a.Users = store.Users()
	default:
		a.Store = dynamo.NewNotificationRepo(dyn, cfg.DynamoTables.Notifications)
		a.Tokens = dynamo.NewDeviceTokenRepo(dyn, cfg.DynamoTables.DeviceTokens)
		a.Users = userRepo
	}

	switch cfg.PushProvider {
	case config.PushSNS:
		t, err := sns.NewTransport(ctx, cfg)
		if err != nil {
			return err
		}
		a.Transport = t
	default:
		mc, err := fbApp.Messaging(ctx)
		if err != nil {
			return fmt.Errorf("%w: firebase messaging: %v", domain.ErrConfiguration, err)
		}
		a.Transport = fcm.NewTransport(mc)
	}

	if cfg.S3BucketName != "" {
		s3c, err := s3infra.NewClient(ctx, cfg)
		if err != nil {
			return err
		}
		a.Images = s3infra.NewImageStore(s3c, cfg.S3BucketName, cfg.ImageURLTTL)
	}

	if cfg.RedisURL != "" {
		rc, err := redisinfra.NewClient(ctx, cfg.RedisURL)
		if err != nil {
			return err
		}
		a.Redis = rc
		a.closers = append(a.closers, rc.Close)
	}

	if p, err := jwtinfra.NewProvider(cfg); err == nil {
		a.JWT = p
	} else {
		a.Log.WithError(err).Warn("operator JWT provider not available")
	}
	return nil
}

func (a *App) wire() {
	cfg := a.Config
	dyn := a.Dynamo

	a.Pipeline = dispatch.NewPipeline(dispatch.PipelineDeps{
		Store:       a.Store,
		Tokens:      a.Tokens,
		Transport:   a.Transport,
		Images:      a.Images,
		Logger:      a.Log.WithField("component", "pipeline"),
		MaxAttempts: cfg.Dispatch.MaxAttempts,
	})
	a.Trigger = trigger.NewHandler(trigger.Deps{
		Store:      a.Store,
		Dispatcher: a.Pipeline,
		Users:      a.Users,
		Topics:     a.Transport,
		Logger:     a.Log.WithField("component", "trigger"),
	})

	a.Notifications = notification.NewService(a.Store, a.Pipeline, a.Log.WithField("component", "notifications"))
	a.Devices = device.NewService(a.Tokens, a.Trigger, a.Log.WithField("component", "devices"))
	a.Invites = invite.NewService(
		dynamo.NewInviteRepo(dyn, cfg.DynamoTables.Invites),
		smtp.NewMailer(cfg.SMTP),
		a.Log.WithField("component", "invites"),
	)

	deps := admin.Deps{
		Admins:        dynamo.NewAdminRepo(dyn, cfg.DynamoTables.SuperAdmins, cfg.DynamoTables.UniversityAdmins),
		Universities:  dynamo.NewUniversityRepo(dyn, cfg.DynamoTables.Universities),
		Users:         dynamo.NewUserRepo(dyn, cfg.DynamoTables.Users),
		Announcements: dynamo.NewAnnouncementRepo(dyn, cfg.DynamoTables.Announcements),
		Fetcher:       admin.NewHTTPFetcher(),
		Logger:        a.Log.WithField("component", "admin"),
	}
	if a.userAdmin != nil {
		deps.Auth = a.userAdmin
	}
	a.Admin = admin.NewService(deps)
}

// NewPoller builds the poll-loop driver, guarded by a Redis lock when Redis is configured.
func (a *App) NewPoller() *dispatch.Poller {
	d := a.Config.Dispatch
	var opts []dispatch.PollerOption
	if a.Redis != nil {
		// The lease outlives one full cycle so a slow holder is not overtaken.
		ttl := d.PollInterval + d.RecordTimeout
		opts = append(opts, dispatch.WithCycleLock(redisinfra.NewLock(a.Redis, pollLockKey, ttl)))
	}
	return dispatch.NewPoller(a.Store, a.Pipeline, dispatch.PollerConfig{
		Interval:      d.PollInterval,
		BatchSize:     d.BatchSize,
		Concurrency:   d.Concurrency,
		RecordTimeout: d.RecordTimeout,
	}, a.Log, opts...)
}

// HealthChecks returns one readiness probe per connected backend.
func (a *App) HealthChecks() map[string]handler.Check {
	checks := map[string]handler.Check{
		"dynamodb": func(ctx context.Context) error {
			_, err := a.Dynamo.ListTables(ctx, &dynamodb.ListTablesInput{Limit: aws.Int32(1)})
			return err
		},
	}
	if a.Firestore != nil {
		checks["firestore"] = func(ctx context.Context) error {
			_, err := a.Firestore.Collection("notifications").Limit(1).Documents(ctx).GetAll()
			return err
		}
	}
	if a.Redis != nil {
		checks["redis"] = func(ctx context.Context) error {
			return a.Redis.Ping(ctx).Err()
		}
	}
	return checks
}

// Close releases every connection New opened, in reverse order.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.Log.WithError(err).Warn("close backend")
		}
	}
	a.closers = nil
}
