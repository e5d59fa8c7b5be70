package admin

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/campus-push/internal/domain"
	"github.com/campus-push/internal/pkg/validate"
)

// Seed data for the sample university.
const (
	SeedUniversityID = "AIRU"
	SeedStudentID    = "2025AIRCS001"
	seedSuperEmail   = "super@airu.test"
)

type Service interface {
	AddSuperAdmin(ctx context.Context, userID, email string) error
	AddUniversityAdmin(ctx context.Context, universityID, userID string) error
	// AddDomain reports false when the domain was already present.
	AddDomain(ctx context.Context, universityID, emailDomain string) (bool, error)
	ApproveRecruiters(ctx context.Context) (ApproveResult, error)
	Seed(ctx context.Context, superAdminUID string) (*domain.University, error)
	MigrateImages(ctx context.Context) (MigrateResult, error)
	CreateUser(ctx context.Context, in CreateUserInput) (*domain.User, bool, error)
}

type ApproveResult struct {
	Found    int `json:"found"`
	Approved int `json:"approved"`
}

type MigrateResult struct {
	Found    int `json:"found"`
	Migrated int `json:"migrated"`
}

type CreateUserInput struct {
	Email        string `json:"email" validate:"required,email"`
	Password     string `json:"password" validate:"required,min=6"`
	FullName     string `json:"full_name"`
	Role         string `json:"role" validate:"required,oneof=super_admin admin faculty recruiter student"`
	UniversityID string `json:"university_id"`
}

type adminStore interface {
	PutSuperAdmin(ctx context.Context, a *domain.SuperAdmin) error
	PutUniversityAdmin(ctx context.Context, a *domain.UniversityAdmin) error
}

type universityStore interface {
	Put(ctx context.Context, u *domain.University) error
	Get(ctx context.Context, universityID string) (*domain.University, error)
	AddDomain(ctx context.Context, universityID, emailDomain string) error
}

type userStore interface {
	Put(ctx context.Context, u *domain.User) error
	ListByRole(ctx context.Context, role string) ([]domain.User, error)
	Update(ctx context.Context, userID string, updates map[string]interface{}) error
}

type announcementStore interface {
	ListWithImageURL(ctx context.Context) ([]domain.Announcement, error)
	ReplaceImage(ctx context.Context, announcementID, imageBase64 string) error
}

// ImageFetcher downloads the bytes behind an image URL.
type ImageFetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// AuthUsers creates accounts in the identity provider.
type AuthUsers interface {
	EnsureUser(ctx context.Context, email, password, displayName string) (string, bool, error)
	SetClaims(ctx context.Context, uid, role, universityID string) error
}

type Deps struct {
	Admins        adminStore
	Universities  universityStore
	Users         userStore
	Announcements announcementStore
	Fetcher       ImageFetcher
	Auth          AuthUsers // optional; CreateUser fails without it
	Logger        logrus.FieldLogger
}

type service struct {
	admins        adminStore
	universities  universityStore
	users         userStore
	announcements announcementStore
	fetcher       ImageFetcher
	auth          AuthUsers
	log           logrus.FieldLogger
	now           func() time.Time
}

func NewService(d Deps) Service {
	return &service{
		admins:        d.Admins,
		universities:  d.Universities,
		users:         d.Users,
		announcements: d.Announcements,
		fetcher:       d.Fetcher,
		auth:          d.Auth,
		log:           d.Logger,
		now:           time.Now,
	}
}

func required(name, v string) error {
	if strings.TrimSpace(v) == "" {
		return fmt.Errorf("%s is required: %w", name, domain.ErrBadRequest)
	}
	return nil
}

func (s *service) AddSuperAdmin(ctx context.Context, userID, email string) error {
	if err := required("uid", userID); err != nil {
		return err
	}
	if err := s.admins.PutSuperAdmin(ctx, &domain.SuperAdmin{UserID: userID, Email: email, CreatedAt: s.now().UTC()}); err != nil {
		return fmt.Errorf("add super admin %s: %w", userID, err)
	}
	s.log.WithField("user_id", userID).Info("super admin added")
	return nil
}

func (s *service) AddUniversityAdmin(ctx context.Context, universityID, userID string) error {
	if err := errors.Join(required("university id", universityID), required("uid", userID)); err != nil {
		return err
	}
	err := s.admins.PutUniversityAdmin(ctx, &domain.UniversityAdmin{
		UniversityID: universityID,
		UserID:       userID,
		Role:         domain.RoleAdmin,
		CreatedAt:    s.now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("add admin %s to %s: %w", userID, universityID, err)
	}
	s.log.WithFields(logrus.Fields{"university_id": universityID, "user_id": userID}).Info("university admin added")
	return nil
}

func (s *service) AddDomain(ctx context.Context, universityID, emailDomain string) (bool, error) {
	emailDomain = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(emailDomain), "@"))
	if err := errors.Join(required("university id", universityID), required("domain", emailDomain)); err != nil {
		return false, err
	}
	uni, err := s.universities.Get(ctx, universityID)
	if err != nil {
		return false, err
	}
	if slices.Contains(uni.Domains, emailDomain) {
		s.log.WithField("domain", emailDomain).Info("domain already present")
		return false, nil
	}
	if err := s.universities.AddDomain(ctx, universityID, emailDomain); err != nil {
		return false, fmt.Errorf("add domain %s: %w", emailDomain, err)
	}
	return true, nil
}

// ApproveRecruiters approves every recruiter; one failed update does not stop the rest.
func (s *service) ApproveRecruiters(ctx context.Context) (ApproveResult, error) {
	recruiters, err := s.users.ListByRole(ctx, domain.RoleRecruiter)
	if err != nil {
		return ApproveResult{}, fmt.Errorf("list recruiters: %w", err)
	}
	res := ApproveResult{Found: len(recruiters)}
	for _, u := range recruiters {
		if err := s.users.Update(ctx, u.UserID, map[string]interface{}{"is_approved": true}); err != nil {
			s.log.WithError(err).WithField("user_id", u.UserID).Error("failed to approve recruiter")
			continue
		}
		res.Approved++
	}
	return res, nil
}

func seedUniversity(now time.Time) *domain.University {
	sections := []domain.Section{{Name: "A", Shift: "morning"}, {Name: "B", Shift: "evening"}}
	return &domain.University{
		UniversityID: SeedUniversityID,
		Name:         "Air University",
		City:         "Islamabad",
		Departments: []domain.Department{
			{ID: "cs", Name: "Computer Science", Sections: sections},
			{ID: "ee", Name: "Electrical Engineering", Sections: sections},
		},
		AllowedIDs: []string{SeedStudentID},
		CreatedAt:  now,
	}
}

// Seed writes the sample university and, when superAdminUID is set, a super admin.
func (s *service) Seed(ctx context.Context, superAdminUID string) (*domain.University, error) {
	uni := seedUniversity(s.now().UTC())
	if err := s.universities.Put(ctx, uni); err != nil {
		return nil, fmt.Errorf("seed university: %w", err)
	}
	if superAdminUID != "" {
		if err := s.AddSuperAdmin(ctx, superAdminUID, seedSuperEmail); err != nil {
			return nil, err
		}
	} else {
		s.log.Info("no super admin uid provided, skipping super admin creation")
	}
	s.log.WithFields(logrus.Fields{"university_id": uni.UniversityID, "student_id": SeedStudentID}).Info("seed complete")
	return uni, nil
}

// MigrateImages inlines every announcement image URL as base64. Failures
// are logged per announcement.
func (s *service) MigrateImages(ctx context.Context) (MigrateResult, error) {
	anns, err := s.announcements.ListWithImageURL(ctx)
	if err != nil {
		return MigrateResult{}, fmt.Errorf("list announcements: %w", err)
	}
	res := MigrateResult{Found: len(anns)}
	for _, a := range anns {
		if a.ImageURL == nil || *a.ImageURL == "" {
			continue
		}
		log := s.log.WithField("announcement_id", a.AnnouncementID)
		data, err := s.fetcher.Fetch(ctx, *a.ImageURL)
		if err != nil {
			log.WithError(err).Error("image fetch failed")
			continue
		}
		if err := s.announcements.ReplaceImage(ctx, a.AnnouncementID, base64.StdEncoding.EncodeToString(data)); err != nil {
			log.WithError(err).Error("image update failed")
			continue
		}
		res.Migrated++
		log.Debug("announcement image migrated")
	}
	return res, nil
}

// CreateUser creates or resets the auth account, stamps its role claims and
// upserts the profile. The bool reports whether the account was new.
func (s *service) CreateUser(ctx context.Context, in CreateUserInput) (*domain.User, bool, error) {
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	if err := validate.Struct(in); err != nil {
		return nil, false, err
	}
	if s.auth == nil {
		return nil, false, fmt.Errorf("identity provider not configured: %w", domain.ErrConfiguration)
	}
	uid, created, err := s.auth.EnsureUser(ctx, in.Email, in.Password, in.FullName)
	if err != nil {
		return nil, false, err
	}
	if err := s.auth.SetClaims(ctx, uid, in.Role, in.UniversityID); err != nil {
		return nil, created, err
	}
	now := s.now().UTC()
	u := &domain.User{
		UserID:       uid,
		Email:        in.Email,
		FullName:     in.FullName,
		Role:         in.Role,
		UniversityID: in.UniversityID,
		IsActive:     true,
		// Accounts created by operators skip the recruiter approval queue.
		IsApproved: true,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := s.users.Put(ctx, u); err != nil {
		return nil, created, fmt.Errorf("store user profile: %w", err)
	}
	s.log.WithFields(logrus.Fields{"user_id": uid, "role": in.Role, "created": created}).Info("user provisioned")
	return u, created, nil
}
