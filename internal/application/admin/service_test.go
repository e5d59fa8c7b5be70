package admin

import (
	"context"
	"encoding/base64"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/campus-push/internal/domain"
)

// --- mocks ---

type mockAdmins struct{ mock.Mock }

func (m *mockAdmins) PutSuperAdmin(ctx context.Context, a *domain.SuperAdmin) error {
	return m.Called(ctx, a).Error(0)
}
func (m *mockAdmins) PutUniversityAdmin(ctx context.Context, a *domain.UniversityAdmin) error {
	return m.Called(ctx, a).Error(0)
}

type mockUniversities struct{ mock.Mock }

func (m *mockUniversities) Put(ctx context.Context, u *domain.University) error {
	return m.Called(ctx, u).Error(0)
}
func (m *mockUniversities) Get(ctx context.Context, id string) (*domain.University, error) {
	args := m.Called(ctx, id)
	if u, _ := args.Get(0).(*domain.University); u != nil {
		return u, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *mockUniversities) AddDomain(ctx context.Context, id, d string) error {
	return m.Called(ctx, id, d).Error(0)
}

type mockUsers struct{ mock.Mock }

func (m *mockUsers) Put(ctx context.Context, u *domain.User) error {
	return m.Called(ctx, u).Error(0)
}
func (m *mockUsers) ListByRole(ctx context.Context, role string) ([]domain.User, error) {
	args := m.Called(ctx, role)
	return args.Get(0).([]domain.User), args.Error(1)
}
func (m *mockUsers) Update(ctx context.Context, id string, updates map[string]interface{}) error {
	return m.Called(ctx, id, updates).Error(0)
}

type mockAnnouncements struct{ mock.Mock }

func (m *mockAnnouncements) ListWithImageURL(ctx context.Context) ([]domain.Announcement, error) {
	args := m.Called(ctx)
	return args.Get(0).([]domain.Announcement), args.Error(1)
}
func (m *mockAnnouncements) ReplaceImage(ctx context.Context, id, b64 string) error {
	return m.Called(ctx, id, b64).Error(0)
}

type mockAuth struct{ mock.Mock }

func (m *mockAuth) EnsureUser(ctx context.Context, email, password, name string) (string, bool, error) {
	args := m.Called(ctx, email, password, name)
	return args.String(0), args.Bool(1), args.Error(2)
}
func (m *mockAuth) SetClaims(ctx context.Context, uid, role, uni string) error {
	return m.Called(ctx, uid, role, uni).Error(0)
}

type fixture struct {
	admins *mockAdmins
	unis   *mockUniversities
	users  *mockUsers
	anns   *mockAnnouncements
	auth   *mockAuth
}

func newFixture(fetcher ImageFetcher) (*fixture, Service) {
	f := &fixture{&mockAdmins{}, &mockUniversities{}, &mockUsers{}, &mockAnnouncements{}, &mockAuth{}}
	svc := NewService(Deps{
		Admins:        f.admins,
		Universities:  f.unis,
		Users:         f.users,
		Announcements: f.anns,
		Fetcher:       fetcher,
		Auth:          f.auth,
		Logger:        logrus.New(),
	})
	return f, svc
}

// --- tests ---

func TestAddDomain_Idempotent(t *testing.T) {
	f, svc := newFixture(nil)
	f.unis.On("Get", mock.Anything, "AIRU").Return(&domain.University{UniversityID: "AIRU", Domains: []string{"au.edu.pk"}}, nil)
	f.unis.On("AddDomain", mock.Anything, "AIRU", "students.au.edu.pk").Return(nil)

	added, err := svc.AddDomain(context.Background(), "AIRU", "@AU.edu.pk")
	require.NoError(t, err)
	assert.False(t, added)

	added, err = svc.AddDomain(context.Background(), "AIRU", "students.au.edu.pk")
	require.NoError(t, err)
	assert.True(t, added)
	f.unis.AssertNumberOfCalls(t, "AddDomain", 1)
}

func TestAddDomain_UnknownUniversity(t *testing.T) {
	f, svc := newFixture(nil)
	f.unis.On("Get", mock.Anything, "NOPE").Return(nil, domain.ErrNotFound)

	_, err := svc.AddDomain(context.Background(), "NOPE", "x.edu")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestAddUniversityAdmin_RequiresIDs(t *testing.T) {
	_, svc := newFixture(nil)
	assert.ErrorIs(t, svc.AddUniversityAdmin(context.Background(), "", "u1"), domain.ErrBadRequest)
}

func TestApproveRecruiters_ContinuesPastFailures(t *testing.T) {
	f, svc := newFixture(nil)
	f.users.On("ListByRole", mock.Anything, domain.RoleRecruiter).Return([]domain.User{{UserID: "r1"}, {UserID: "r2"}, {UserID: "r3"}}, nil)
	f.users.On("Update", mock.Anything, "r2", mock.Anything).Return(errors.New("throttled"))
	f.users.On("Update", mock.Anything, mock.Anything, map[string]interface{}{"is_approved": true}).Return(nil)

	res, err := svc.ApproveRecruiters(context.Background())
	require.NoError(t, err)
	assert.Equal(t, ApproveResult{Found: 3, Approved: 2}, res)
}

func TestSeed(t *testing.T) {
	f, svc := newFixture(nil)
	f.unis.On("Put", mock.Anything, mock.MatchedBy(func(u *domain.University) bool {
		return u.UniversityID == SeedUniversityID && len(u.Departments) == 2 && u.Departments[1].Sections[1].Shift == "evening"
	})).Return(nil)
	f.admins.On("PutSuperAdmin", mock.Anything, mock.MatchedBy(func(a *domain.SuperAdmin) bool {
		return a.UserID == "root" && a.Email == "super@airu.test"
	})).Return(nil)

	uni, err := svc.Seed(context.Background(), "root")
	require.NoError(t, err)
	assert.Equal(t, []string{SeedStudentID}, uni.AllowedIDs)
	f.admins.AssertExpectations(t)

	_, err = svc.Seed(context.Background(), "")
	require.NoError(t, err)
	f.admins.AssertNumberOfCalls(t, "PutSuperAdmin", 1)
}

func TestMigrateImages(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/missing.png" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		_, _ = w.Write([]byte("PNGDATA"))
	}))
	defer srv.Close()

	f, svc := newFixture(NewHTTPFetcher())
	ok, missing := srv.URL+"/a.png", srv.URL+"/missing.png"
	f.anns.On("ListWithImageURL", mock.Anything).Return([]domain.Announcement{
		{AnnouncementID: "a1", ImageURL: &ok},
		{AnnouncementID: "a2", ImageURL: &missing},
	}, nil)
	f.anns.On("ReplaceImage", mock.Anything, "a1", base64.StdEncoding.EncodeToString([]byte("PNGDATA"))).Return(nil)

	res, err := svc.MigrateImages(context.Background())
	require.NoError(t, err)
	assert.Equal(t, MigrateResult{Found: 2, Migrated: 1}, res)
	f.anns.AssertExpectations(t)
}

func TestCreateUser(t *testing.T) {
	f, svc := newFixture(nil)
	f.auth.On("EnsureUser", mock.Anything, "rec@corp.com", "secret1", "Recruiter Admin").Return("uid-9", true, nil)
	f.auth.On("SetClaims", mock.Anything, "uid-9", domain.RoleRecruiter, "").Return(nil)
	f.users.On("Put", mock.Anything, mock.MatchedBy(func(u *domain.User) bool {
		return u.UserID == "uid-9" && u.IsApproved && u.IsActive
	})).Return(nil)

	u, created, err := svc.CreateUser(context.Background(), CreateUserInput{
		Email: "Rec@Corp.com", Password: "secret1", FullName: "Recruiter Admin", Role: domain.RoleRecruiter,
	})
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, "rec@corp.com", u.Email)
}

func TestCreateUser_InvalidRole(t *testing.T) {
	f, svc := newFixture(nil)
	_, _, err := svc.CreateUser(context.Background(), CreateUserInput{Email: "a@b.co", Password: "secret1", Role: "janitor"})
	assert.ErrorIs(t, err, domain.ErrBadRequest)
	f.auth.AssertNotCalled(t, "EnsureUser", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}
