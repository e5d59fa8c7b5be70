package invite

import (
	"context"
	"errors"
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"

	"github.com/campus-push/internal/domain"
	"github.com/campus-push/internal/pkg/id"
	"github.com/campus-push/internal/pkg/token"
	"github.com/campus-push/internal/pkg/validate"
)

const mailSubject = "Your Faculty Invite Code"

// CreateResult is returned to the caller of the public invite endpoint.
type CreateResult struct {
	Success bool   `json:"success"`
	Emailed bool   `json:"emailed"`
	Code    string `json:"code"`
}

type Service interface {
	Create(ctx context.Context, req domain.CreateInviteRequest, createdBy string) (*CreateResult, error)
	// Verify consumes a matching unused invite. Each code works once.
	Verify(ctx context.Context, req domain.VerifyInviteRequest) (*domain.Invite, error)
}

type inviteStore interface {
	Put(ctx context.Context, inv *domain.Invite) error
	ListUnusedByEmail(ctx context.Context, email string) ([]domain.Invite, error)
	MarkUsed(ctx context.Context, inviteID string, at time.Time) error
}

type mailer interface {
	SendEmail(to, subject, htmlBody string) error
}

type service struct {
	repo   inviteStore
	mailer mailer
	log    logrus.FieldLogger
	now    func() time.Time
	// newCode is swappable in tests.
	newCode func() (string, error)
}

// NewService builds the invite service. m may be nil when email is disabled.
func NewService(repo inviteStore, m mailer, log logrus.FieldLogger) Service {
	return &service{repo: repo, mailer: m, log: log, now: time.Now, newCode: token.NewInviteCode}
}

func normalizeEmail(e string) string { return strings.ToLower(strings.TrimSpace(e)) }

func (s *service) Create(ctx context.Context, req domain.CreateInviteRequest, createdBy string) (*CreateResult, error) {
	req.Email = normalizeEmail(req.Email)
	if err := validate.Struct(req); err != nil {
		return nil, err
	}
	code, err := s.newCode()
	if err != nil {
		return nil, fmt.Errorf("generate invite code: %w", err)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(code), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash invite code: %w", err)
	}
	now := s.now().UTC()
	inv := &domain.Invite{
		InviteID:  id.NewAt(now),
		Email:     req.Email,
		CodeHash:  string(hash),
		Role:      domain.RoleFaculty,
		CreatedBy: createdBy,
		CreatedAt: now,
	}
	if err := s.repo.Put(ctx, inv); err != nil {
		return nil, fmt.Errorf("store invite: %w", err)
	}

	res := &CreateResult{Success: true, Code: code}
	if s.mailer != nil {
		body := fmt.Sprintf("<p>Your faculty invite code is: <strong>%s</strong></p><p>Use this code to register as faculty.</p>", html.EscapeString(code))
		if err := s.mailer.SendEmail(req.Email, mailSubject, body); err != nil {
			s.log.WithError(err).WithField("invite_id", inv.InviteID).Error("invite email failed")
		} else {
			res.Emailed = true
		}
	}
	s.log.WithFields(logrus.Fields{"invite_id": inv.InviteID, "emailed": res.Emailed}).Info("invite created")
	return res, nil
}

func (s *service) Verify(ctx context.Context, req domain.VerifyInviteRequest) (*domain.Invite, error) {
	req.Email = normalizeEmail(req.Email)
	req.Code = strings.ToUpper(strings.TrimSpace(req.Code))
	if err := validate.Struct(req); err != nil {
		return nil, err
	}
	invites, err := s.repo.ListUnusedByEmail(ctx, req.Email)
	if err != nil {
		return nil, err
	}
	for i := range invites {
		inv := &invites[i]
		if bcrypt.CompareHashAndPassword([]byte(inv.CodeHash), []byte(req.Code)) != nil {
			continue
		}
		now := s.now().UTC()
		if err := s.repo.MarkUsed(ctx, inv.InviteID, now); err != nil {
			if errors.Is(err, domain.ErrConflict) {
				return nil, fmt.Errorf("invite code already used: %w", domain.ErrConflict)
			}
			return nil, err
		}
		inv.IsUsed = true
		inv.UsedAt = &now
		return inv, nil
	}
	return nil, fmt.Errorf("invalid invite code: %w", domain.ErrNotFound)
}
