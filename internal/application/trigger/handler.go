// Package trigger is the event-triggered dispatch driver: one call per
// business event creates the implied record and runs the pipeline once.
package trigger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/campus-push/internal/application/dispatch"
	"github.com/campus-push/internal/domain"
	"github.com/campus-push/internal/pkg/id"
	"github.com/campus-push/internal/pkg/logger"
	"github.com/campus-push/internal/pkg/validate"
)

type NotificationCreator interface {
	Create(ctx context.Context, n *domain.Notification) error
}

type Dispatcher interface {
	Run(ctx context.Context, n *domain.Notification) (dispatch.Result, error)
}

type UserReader interface {
	Get(ctx context.Context, userID string) (*domain.User, error)
}

type TopicSubscriber interface {
	SubscribeToTopic(ctx context.Context, tokens []string, topic string) error
}

type Deps struct {
	Store      NotificationCreator
	Dispatcher Dispatcher
	Users      UserReader      // optional; token events are ignored without it
	Topics     TopicSubscriber // optional
	Logger     logrus.FieldLogger
}

type Handler struct {
	store  NotificationCreator
	disp   Dispatcher
	users  UserReader
	topics TopicSubscriber
	log    logrus.FieldLogger
	now    func() time.Time
}

func NewHandler(d Deps) *Handler {
	log := d.Logger
	if log == nil {
		log = logger.Discard()
	}
	return &Handler{
		store:  d.Store,
		disp:   d.Dispatcher,
		users:  d.Users,
		topics: d.Topics,
		log:    log,
		now:    time.Now,
	}
}

// Handle decodes env and routes it to the matching On* method.
func (h *Handler) Handle(ctx context.Context, env Envelope) error {
	switch env.Type {
	case EventAnnouncement:
		return handleAs(ctx, env, h.OnAnnouncement)
	case EventTimetable:
		return handleAs(ctx, env, h.OnTimetableUpdated)
	case EventLostFound:
		return handleAs(ctx, env, h.OnLostFoundPosted)
	case EventMarketplaceItem:
		return handleAs(ctx, env, h.OnMarketplaceItemCreated)
	case EventTokenRegistered:
		var e TokenRegisteredEvent
		if err := decode(env, &e); err != nil {
			return err
		}
		return h.OnTokenRegistered(ctx, e)
	default:
		return fmt.Errorf("unknown event type %q: %w", env.Type, domain.ErrBadRequest)
	}
}

func handleAs[E any](ctx context.Context, env Envelope, fn func(context.Context, E) (*domain.Notification, error)) error {
	var e E
	if err := decode(env, &e); err != nil {
		return err
	}
	_, err := fn(ctx, e)
	return err
}

func decode(env Envelope, v any) error {
	if err := json.Unmarshal(env.Payload, v); err != nil {
		return fmt.Errorf("decode %s payload: %w: %v", env.Type, domain.ErrBadRequest, err)
	}
	return nil
}

func (h *Handler) OnAnnouncement(ctx context.Context, e AnnouncementEvent) (*domain.Notification, error) {
	if err := validate.Struct(e); err != nil {
		return nil, err
	}
	return h.createAndSend(ctx, EventAnnouncement, e.notification())
}

func (h *Handler) OnTimetableUpdated(ctx context.Context, e TimetableEvent) (*domain.Notification, error) {
	if err := validate.Struct(e); err != nil {
		return nil, err
	}
	return h.createAndSend(ctx, EventTimetable, e.notification())
}

func (h *Handler) OnLostFoundPosted(ctx context.Context, e LostFoundEvent) (*domain.Notification, error) {
	if err := validate.Struct(e); err != nil {
		return nil, err
	}
	return h.createAndSend(ctx, EventLostFound, e.notification())
}

func (h *Handler) OnMarketplaceItemCreated(ctx context.Context, e MarketplaceEvent) (*domain.Notification, error) {
	if err := validate.Struct(e); err != nil {
		return nil, err
	}
	return h.createAndSend(ctx, EventMarketplaceItem, e.notification())
}

// createAndSend stores n as pending and dispatches it once. A failed dispatch
// is logged and returned; the record stays for the poller.
func (h *Handler) createAndSend(ctx context.Context, event EventType, n *domain.Notification) (*domain.Notification, error) {
	now := h.now()
	n.NotificationID = id.NewAt(now)
	n.CreatedAt = now.UTC()
	log := h.log.WithFields(logrus.Fields{"event": event, "notification_id": n.NotificationID})

	if err := h.store.Create(ctx, n); err != nil {
		log.WithError(err).Error("could not create notification")
		return nil, fmt.Errorf("create notification: %w", err)
	}
	if _, err := h.disp.Run(ctx, n); err != nil {
		log.WithError(err).Error("event dispatch failed")
		return n, err
	}
	return n, nil
}

// OnTokenRegistered subscribes a newly registered token to its owner's
// university topic. Users without a university are skipped.
func (h *Handler) OnTokenRegistered(ctx context.Context, e TokenRegisteredEvent) error {
	if err := validate.Struct(e); err != nil {
		return err
	}
	log := h.log.WithFields(logrus.Fields{"event": EventTokenRegistered, "user_id": e.UserID})
	if h.users == nil || h.topics == nil {
		log.Debug("topic subscription not configured")
		return nil
	}
	u, err := h.users.Get(ctx, e.UserID)
	if errors.Is(err, domain.ErrNotFound) {
		log.Warn("user not found, token not subscribed")
		return nil
	}
	if err != nil {
		return fmt.Errorf("load user %s: %w", e.UserID, err)
	}
	if u.UniversityID == "" {
		log.Warn("no university id found for user")
		return nil
	}
	topic := dispatch.TopicForUniversity(u.UniversityID)
	if err := h.topics.SubscribeToTopic(ctx, []string{e.Token}, topic); err != nil {
		log.WithError(err).Error("failed to subscribe token to topic")
		return fmt.Errorf("subscribe to %s: %w", topic, err)
	}
	log.WithField("topic", topic).Info("token subscribed to topic")
	return nil
}
