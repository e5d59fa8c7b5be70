package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/campus-push/internal/application/admin"
	"github.com/campus-push/internal/application/invite"
	"github.com/campus-push/internal/application/trigger"
	"github.com/campus-push/internal/domain"
)

// --- mocks ---

type mockDeviceSvc struct{ mock.Mock }

func (m *mockDeviceSvc) Register(ctx context.Context, userID string, req domain.RegisterTokenRequest) (*domain.DeviceToken, error) {
	args := m.Called(ctx, userID, req)
	if t, _ := args.Get(0).(*domain.DeviceToken); t != nil {
		return t, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *mockDeviceSvc) List(ctx context.Context, userID string) ([]string, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).([]string), args.Error(1)
}
func (m *mockDeviceSvc) Unregister(ctx context.Context, userID, token string) error {
	return m.Called(ctx, userID, token).Error(0)
}

type mockInviteSvc struct{ mock.Mock }

func (m *mockInviteSvc) Create(ctx context.Context, req domain.CreateInviteRequest, createdBy string) (*invite.CreateResult, error) {
	args := m.Called(ctx, req, createdBy)
	if r, _ := args.Get(0).(*invite.CreateResult); r != nil {
		return r, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *mockInviteSvc) Verify(ctx context.Context, req domain.VerifyInviteRequest) (*domain.Invite, error) {
	args := m.Called(ctx, req)
	if i, _ := args.Get(0).(*domain.Invite); i != nil {
		return i, args.Error(1)
	}
	return nil, args.Error(1)
}

type mockTrigger struct{ mock.Mock }

func (m *mockTrigger) OnTimetableUpdated(ctx context.Context, e trigger.TimetableEvent) (*domain.Notification, error) {
	return m.result(m.Called(ctx, e))
}
func (m *mockTrigger) OnLostFoundPosted(ctx context.Context, e trigger.LostFoundEvent) (*domain.Notification, error) {
	return m.result(m.Called(ctx, e))
}
func (m *mockTrigger) OnMarketplaceItemCreated(ctx context.Context, e trigger.MarketplaceEvent) (*domain.Notification, error) {
	return m.result(m.Called(ctx, e))
}
func (m *mockTrigger) result(args mock.Arguments) (*domain.Notification, error) {
	if n, _ := args.Get(0).(*domain.Notification); n != nil {
		return n, args.Error(1)
	}
	return nil, args.Error(1)
}

type mockAdminSvc struct {
	mock.Mock
	admin.Service
}

func (m *mockAdminSvc) AddDomain(ctx context.Context, uni, d string) (bool, error) {
	args := m.Called(ctx, uni, d)
	return args.Bool(0), args.Error(1)
}
func (m *mockAdminSvc) ApproveRecruiters(ctx context.Context) (admin.ApproveResult, error) {
	args := m.Called(ctx)
	return args.Get(0).(admin.ApproveResult), args.Error(1)
}

// --- devices ---

func TestDeviceRegister_HappyPath(t *testing.T) {
	p := newTestJWTProvider(t)
	svc := &mockDeviceSvc{}
	svc.On("Register", mock.Anything, "u1", domain.RegisterTokenRequest{Token: "tok", Platform: "ios"}).
		Return(&domain.DeviceToken{UserID: "u1", Token: "tok"}, nil)
	h := NewDeviceHandler(svc)

	rr := httptest.NewRecorder()
	serveAuthed(p, http.HandlerFunc(h.Register), rr, bearerReq(t, p, http.MethodPost, "/v1/devices/tokens", "u1", domain.RoleStudent, "U1",
		domain.RegisterTokenRequest{Token: "tok", Platform: "ios"}))
	assert.Equal(t, http.StatusCreated, rr.Code)
	svc.AssertExpectations(t)
}

func TestDeviceRegister_ValidationFailure(t *testing.T) {
	p := newTestJWTProvider(t)
	svc := &mockDeviceSvc{}
	svc.On("Register", mock.Anything, "u1", mock.Anything).Return(nil, domain.ErrBadRequest)
	h := NewDeviceHandler(svc)

	rr := httptest.NewRecorder()
	serveAuthed(p, http.HandlerFunc(h.Register), rr, bearerReq(t, p, http.MethodPost, "/v1/devices/tokens", "u1", domain.RoleStudent, "", map[string]string{}))
	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)
}

func TestDeviceUnregister(t *testing.T) {
	p := newTestJWTProvider(t)
	svc := &mockDeviceSvc{}
	svc.On("Unregister", mock.Anything, "u1", "tok").Return(nil)
	h := NewDeviceHandler(svc)

	r := withChiParam(bearerReq(t, p, http.MethodDelete, "/v1/devices/tokens/tok", "u1", domain.RoleStudent, "", nil), "token", "tok")
	rr := httptest.NewRecorder()
	serveAuthed(p, http.HandlerFunc(h.Unregister), rr, r)
	assert.Equal(t, http.StatusOK, rr.Code)
}

// --- invites ---

func TestInviteCreate(t *testing.T) {
	svc := &mockInviteSvc{}
	svc.On("Create", mock.Anything, domain.CreateInviteRequest{Email: "prof@uni.edu"}, "external-service").
		Return(&invite.CreateResult{Success: true, Code: "FAC-ABC123"}, nil)
	h := NewInviteHandler(svc)

	rr := httptest.NewRecorder()
	h.Create(rr, httptest.NewRequest(http.MethodPost, "/v1/invites", strings.NewReader(`{"email":"prof@uni.edu"}`)))
	require.Equal(t, http.StatusOK, rr.Code)
	var res invite.CreateResult
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&res))
	assert.True(t, res.Success)
	assert.False(t, res.Emailed)
	assert.Equal(t, "FAC-ABC123", res.Code)
}

func TestInviteVerify_Used(t *testing.T) {
	svc := &mockInviteSvc{}
	svc.On("Verify", mock.Anything, mock.Anything).Return(nil, domain.ErrConflict)
	h := NewInviteHandler(svc)

	rr := httptest.NewRecorder()
	h.Verify(rr, httptest.NewRequest(http.MethodPost, "/v1/invites/verify", strings.NewReader(`{"email":"a@b.co","code":"FAC-ABC123"}`)))
	assert.Equal(t, http.StatusConflict, rr.Code)
}

func TestInviteCreate_InternalErrorHidden(t *testing.T) {
	svc := &mockInviteSvc{}
	svc.On("Create", mock.Anything, mock.Anything, mock.Anything).Return(nil, errors.New("dynamo: secret table name"))
	h := NewInviteHandler(svc)

	rr := httptest.NewRecorder()
	h.Create(rr, httptest.NewRequest(http.MethodPost, "/v1/invites", strings.NewReader(`{"email":"a@b.co"}`)))
	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.NotContains(t, rr.Body.String(), "secret")
}

// --- events ---

func TestEventTimetable_Accepted(t *testing.T) {
	p := newTestJWTProvider(t)
	trg := &mockTrigger{}
	trg.On("OnTimetableUpdated", mock.Anything, trigger.TimetableEvent{UniversityID: "U1", CourseName: "Physics"}).
		Return(&domain.Notification{NotificationID: "n1", Sent: true}, nil)
	h := NewEventHandler(trg)

	rr := httptest.NewRecorder()
	serveAuthed(p, http.HandlerFunc(h.Timetable), rr, bearerReq(t, p, http.MethodPost, "/v1/events/timetable", "op", domain.RoleAdmin, "U1",
		trigger.TimetableEvent{UniversityID: "U1", CourseName: "Physics"}))
	require.Equal(t, http.StatusAccepted, rr.Code)
	var resp map[string]interface{}
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
	assert.Equal(t, true, resp["sent"])
}

func TestEventMarketplace_OtherUniversityForbidden(t *testing.T) {
	p := newTestJWTProvider(t)
	trg := &mockTrigger{}
	h := NewEventHandler(trg)

	rr := httptest.NewRecorder()
	serveAuthed(p, http.HandlerFunc(h.Marketplace), rr, bearerReq(t, p, http.MethodPost, "/v1/events/marketplace", "op", domain.RoleAdmin, "U1",
		trigger.MarketplaceEvent{ItemID: "i", UniversityID: "U2"}))
	assert.Equal(t, http.StatusForbidden, rr.Code)
	trg.AssertNotCalled(t, "OnMarketplaceItemCreated", mock.Anything, mock.Anything)
}

func TestEventLostFound_CreateFailure(t *testing.T) {
	p := newTestJWTProvider(t)
	trg := &mockTrigger{}
	trg.On("OnLostFoundPosted", mock.Anything, mock.Anything).Return(nil, errors.New("store down"))
	h := NewEventHandler(trg)

	rr := httptest.NewRecorder()
	serveAuthed(p, http.HandlerFunc(h.LostFound), rr, bearerReq(t, p, http.MethodPost, "/v1/events/lost-found", "op", domain.RoleSuperAdmin, "",
		trigger.LostFoundEvent{UniversityID: "U1", Kind: "lost"}))
	assert.Equal(t, http.StatusInternalServerError, rr.Code)
}

// --- admin ---

func TestAdminAddDomain_AlreadyPresent(t *testing.T) {
	svc := &mockAdminSvc{}
	svc.On("AddDomain", mock.Anything, "AIRU", "au.edu.pk").Return(false, nil)
	h := NewAdminHandler(svc)

	r := withChiParam(httptest.NewRequest(http.MethodPost, "/v1/admin/universities/AIRU/domains", strings.NewReader(`{"domain":"au.edu.pk"}`)), "id", "AIRU")
	rr := httptest.NewRecorder()
	h.AddDomain(rr, r)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "already present")
}

func TestAdminApproveRecruiters(t *testing.T) {
	svc := &mockAdminSvc{}
	svc.On("ApproveRecruiters", mock.Anything).Return(admin.ApproveResult{Found: 2, Approved: 2}, nil)
	h := NewAdminHandler(svc)

	rr := httptest.NewRecorder()
	h.ApproveRecruiters(rr, httptest.NewRequest(http.MethodPost, "/v1/admin/recruiters/approve", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"found":2,"approved":2}`, rr.Body.String())
}

// --- health ---

func TestHealth(t *testing.T) {
	h := NewHealthHandler(map[string]Check{
		"redis": func(context.Context) error { return errors.New("connection refused") },
	})

	rr := httptest.NewRecorder()
	h.Ping(rr, withChiParam(httptest.NewRequest(http.MethodGet, "/v1/health-check/ping", nil), "action", "ping"))
	assert.Equal(t, http.StatusOK, rr.Code)

	rr = httptest.NewRecorder()
	h.Ping(rr, withChiParam(httptest.NewRequest(http.MethodGet, "/v1/health-check/ready", nil), "action", "ready"))
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
	assert.Contains(t, rr.Body.String(), "redis")

	rr = httptest.NewRecorder()
	h.Ping(rr, withChiParam(httptest.NewRequest(http.MethodGet, "/v1/health-check/x", nil), "action", "x"))
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}
