package notification

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/campus-push/internal/application/dispatch"
	"github.com/campus-push/internal/domain"
	"github.com/campus-push/internal/pkg/validate"
)

const (
	defaultPageSize int32 = 50
	maxPageSize     int32 = 200
)

type Service interface {
	ListForUser(ctx context.Context, p *domain.Principal, limit int32) ([]domain.Notification, error)
	ListForUniversity(ctx context.Context, p *domain.Principal, universityID string, limit int32) ([]domain.Notification, error)
	Get(ctx context.Context, p *domain.Principal, notificationID string) (*domain.Notification, error)
	MarkAsRead(ctx context.Context, p *domain.Principal, notificationID string) (*domain.Notification, error)
	// Create stores a composed record and, when send is true, dispatches it right away.
	Create(ctx context.Context, in ComposeInput, send bool) (*domain.Notification, *dispatch.Result, error)
	CreateAll(ctx context.Context, universityID string, send bool) ([]*domain.Notification, error)
	Dispatch(ctx context.Context, notificationID string) (dispatch.Result, error)
}

type notificationStore interface {
	Create(ctx context.Context, n *domain.Notification) error
	Get(ctx context.Context, notificationID string) (*domain.Notification, error)
	ListByUser(ctx context.Context, userID string, limit int32) ([]domain.Notification, error)
	ListByUniversity(ctx context.Context, universityID string, limit int32) ([]domain.Notification, error)
	MarkAsRead(ctx context.Context, notificationID string) error
}

type dispatcher interface {
	Run(ctx context.Context, n *domain.Notification) (dispatch.Result, error)
	DispatchByID(ctx context.Context, notificationID string) (dispatch.Result, error)
}

type service struct {
	repo     notificationStore
	pipeline dispatcher
	log      logrus.FieldLogger
	now      func() time.Time
}

func NewService(repo notificationStore, pipeline dispatcher, log logrus.FieldLogger) Service {
	return &service{repo: repo, pipeline: pipeline, log: log, now: time.Now}
}

func pageSize(limit int32) int32 {
	if limit <= 0 {
		return defaultPageSize
	}
	return min(limit, maxPageSize)
}

func (s *service) ListForUser(ctx context.Context, p *domain.Principal, limit int32) ([]domain.Notification, error) {
	return s.repo.ListByUser(ctx, p.UserID, pageSize(limit))
}

func (s *service) ListForUniversity(ctx context.Context, p *domain.Principal, universityID string, limit int32) ([]domain.Notification, error) {
	if p.Role != domain.RoleSuperAdmin && p.UniversityID != universityID {
		return nil, fmt.Errorf("university %s: %w", universityID, domain.ErrForbidden)
	}
	return s.repo.ListByUniversity(ctx, universityID, pageSize(limit))
}

// visible reports whether p may read n: its own direct notifications, its
// university's broadcasts, or anything for a super admin.
func visible(p *domain.Principal, n *domain.Notification) bool {
	if p.Role == domain.RoleSuperAdmin {
		return true
	}
	if uid := n.TargetUserID(); uid != "" {
		return uid == p.UserID
	}
	uni := n.TargetUniversityID()
	return uni != "" && uni == p.UniversityID
}

func (s *service) Get(ctx context.Context, p *domain.Principal, notificationID string) (*domain.Notification, error) {
	n, err := s.repo.Get(ctx, notificationID)
	if err != nil {
		return nil, err
	}
	if !visible(p, n) {
		// Same answer as a missing record so ids cannot be probed.
		return nil, fmt.Errorf("notification %s: %w", notificationID, domain.ErrNotFound)
	}
	return n, nil
}

func (s *service) MarkAsRead(ctx context.Context, p *domain.Principal, notificationID string) (*domain.Notification, error) {
	n, err := s.Get(ctx, p, notificationID)
	if err != nil {
		return nil, err
	}
	if n.TargetUserID() != p.UserID {
		return nil, fmt.Errorf("only direct notifications can be marked read: %w", domain.ErrForbidden)
	}
	if err := s.repo.MarkAsRead(ctx, notificationID); err != nil {
		return nil, err
	}
	n.IsRead = true
	return n, nil
}

func (s *service) Create(ctx context.Context, in ComposeInput, send bool) (*domain.Notification, *dispatch.Result, error) {
	if err := validate.Struct(in); err != nil {
		return nil, nil, err
	}
	n, err := Compose(in, s.now())
	if err != nil {
		return nil, nil, err
	}
	if err := s.repo.Create(ctx, n); err != nil {
		return nil, nil, fmt.Errorf("create notification: %w", err)
	}
	s.log.WithFields(logrus.Fields{"notification_id": n.NotificationID, "type": n.Category}).Info("notification created")
	if !send {
		return n, nil, nil
	}
	res, err := s.pipeline.Run(ctx, n)
	return n, &res, err
}

// CreateAll stores one sample per module. With send, a failed dispatch is
// logged and the remaining modules still go out.
func (s *service) CreateAll(ctx context.Context, universityID string, send bool) ([]*domain.Notification, error) {
	all, err := ComposeAll(universityID, s.now())
	if err != nil {
		return nil, err
	}
	for _, n := range all {
		if err := s.repo.Create(ctx, n); err != nil {
			return nil, fmt.Errorf("create %s notification: %w", n.Category, err)
		}
		if !send {
			continue
		}
		if _, err := s.pipeline.Run(ctx, n); err != nil {
			s.log.WithError(err).WithField("type", n.Category).Warn("sample dispatch failed")
		}
	}
	return all, nil
}

func (s *service) Dispatch(ctx context.Context, notificationID string) (dispatch.Result, error) {
	return s.pipeline.DispatchByID(ctx, notificationID)
}
