package device

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/campus-push/internal/application/trigger"
	"github.com/campus-push/internal/domain"
	"github.com/campus-push/internal/pkg/validate"
)

type Service interface {
	Register(ctx context.Context, userID string, req domain.RegisterTokenRequest) (*domain.DeviceToken, error)
	List(ctx context.Context, userID string) ([]string, error)
	Unregister(ctx context.Context, userID, token string) error
}

type tokenStore interface {
	Put(ctx context.Context, t *domain.DeviceToken) error
	ListTokens(ctx context.Context, userID string) ([]string, error)
	DeleteToken(ctx context.Context, userID, token string) error
}

// registrationListener receives the token-registered event after a successful put.
type registrationListener interface {
	OnTokenRegistered(ctx context.Context, e trigger.TokenRegisteredEvent) error
}

type service struct {
	repo     tokenStore
	listener registrationListener
	log      logrus.FieldLogger
	now      func() time.Time
}

// NewService builds the device service. listener may be nil.
func NewService(repo tokenStore, listener registrationListener, log logrus.FieldLogger) Service {
	return &service{repo: repo, listener: listener, log: log, now: time.Now}
}

func (s *service) Register(ctx context.Context, userID string, req domain.RegisterTokenRequest) (*domain.DeviceToken, error) {
	req.Token = strings.TrimSpace(req.Token)
	if err := validate.Struct(req); err != nil {
		return nil, err
	}
	t := &domain.DeviceToken{
		UserID:    userID,
		Token:     req.Token,
		Platform:  req.Platform,
		CreatedAt: s.now().UTC(),
	}
	if err := s.repo.Put(ctx, t); err != nil {
		return nil, fmt.Errorf("store device token: %w", err)
	}
	if s.listener != nil {
		// Registration stands even if the topic subscription fails.
		if err := s.listener.OnTokenRegistered(ctx, trigger.TokenRegisteredEvent{UserID: userID, Token: t.Token}); err != nil {
			s.log.WithError(err).WithField("user_id", userID).Warn("token registered but topic subscription failed")
		}
	}
	return t, nil
}

func (s *service) List(ctx context.Context, userID string) ([]string, error) {
	return s.repo.ListTokens(ctx, userID)
}

func (s *service) Unregister(ctx context.Context, userID, token string) error {
	if strings.TrimSpace(token) == "" {
		return fmt.Errorf("token is required: %w", domain.ErrBadRequest)
	}
	return s.repo.DeleteToken(ctx, userID, token)
}
