package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/campus-push/internal/application/dispatch"
	"github.com/campus-push/internal/application/notification"
	"github.com/campus-push/internal/application/trigger"
	"github.com/campus-push/internal/domain"
)

// --- mocks ---

type mockNotifSvc struct{ mock.Mock }

func (m *mockNotifSvc) ListForUser(ctx context.Context, p *domain.Principal, limit int32) ([]domain.Notification, error) {
	args := m.Called(ctx, p, limit)
	return args.Get(0).([]domain.Notification), args.Error(1)
}
func (m *mockNotifSvc) ListForUniversity(ctx context.Context, p *domain.Principal, uni string, limit int32) ([]domain.Notification, error) {
	args := m.Called(ctx, p, uni, limit)
	return args.Get(0).([]domain.Notification), args.Error(1)
}
func (m *mockNotifSvc) Get(ctx context.Context, p *domain.Principal, id string) (*domain.Notification, error) {
	args := m.Called(ctx, p, id)
	if n, _ := args.Get(0).(*domain.Notification); n != nil {
		return n, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *mockNotifSvc) MarkAsRead(ctx context.Context, p *domain.Principal, id string) (*domain.Notification, error) {
	args := m.Called(ctx, p, id)
	if n, _ := args.Get(0).(*domain.Notification); n != nil {
		return n, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *mockNotifSvc) Create(ctx context.Context, in notification.ComposeInput, send bool) (*domain.Notification, *dispatch.Result, error) {
	args := m.Called(ctx, in, send)
	n, _ := args.Get(0).(*domain.Notification)
	res, _ := args.Get(1).(*dispatch.Result)
	return n, res, args.Error(2)
}
func (m *mockNotifSvc) CreateAll(ctx context.Context, uni string, send bool) ([]*domain.Notification, error) {
	args := m.Called(ctx, uni, send)
	return args.Get(0).([]*domain.Notification), args.Error(1)
}
func (m *mockNotifSvc) Dispatch(ctx context.Context, id string) (dispatch.Result, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(dispatch.Result), args.Error(1)
}

type mockSender struct{ mock.Mock }

func (m *mockSender) OnAnnouncement(ctx context.Context, e trigger.AnnouncementEvent) (*domain.Notification, error) {
	args := m.Called(ctx, e)
	if n, _ := args.Get(0).(*domain.Notification); n != nil {
		return n, args.Error(1)
	}
	return nil, args.Error(1)
}

// --- tests ---

func TestNotificationList_MissingPrincipal(t *testing.T) {
	h := NewNotificationHandler(&mockNotifSvc{}, &mockSender{})
	rr := httptest.NewRecorder()
	h.List(rr, httptest.NewRequest(http.MethodGet, "/v1/notifications", nil))
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestNotificationList_ReturnsEnvelope(t *testing.T) {
	p := newTestJWTProvider(t)
	svc := &mockNotifSvc{}
	svc.On("ListForUser", mock.Anything, mock.MatchedBy(func(pr *domain.Principal) bool { return pr.UserID == "u1" }), int32(5)).
		Return([]domain.Notification{{NotificationID: "n1", Title: "hi"}}, nil)
	h := NewNotificationHandler(svc, &mockSender{})

	rr := httptest.NewRecorder()
	serveAuthed(p, http.HandlerFunc(h.List), rr, bearerReq(t, p, http.MethodGet, "/v1/notifications?limit=5", "u1", domain.RoleStudent, "U1", nil))

	require.Equal(t, http.StatusOK, rr.Code)
	var resp ListEnvelope[domain.Notification]
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
	assert.Equal(t, 1, resp.Count)
	assert.Equal(t, "n1", resp.Data[0].NotificationID)
}

func TestNotificationGet_NotFound(t *testing.T) {
	p := newTestJWTProvider(t)
	svc := &mockNotifSvc{}
	svc.On("Get", mock.Anything, mock.Anything, "n9").Return(nil, domain.ErrNotFound)
	h := NewNotificationHandler(svc, &mockSender{})

	r := withChiParam(bearerReq(t, p, http.MethodGet, "/v1/notifications/n9", "u1", domain.RoleStudent, "U1", nil), "id", "n9")
	rr := httptest.NewRecorder()
	serveAuthed(p, http.HandlerFunc(h.Get), rr, r)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestNotificationMarkAsRead_Forbidden(t *testing.T) {
	p := newTestJWTProvider(t)
	svc := &mockNotifSvc{}
	svc.On("MarkAsRead", mock.Anything, mock.Anything, "n1").Return(nil, domain.ErrForbidden)
	h := NewNotificationHandler(svc, &mockSender{})

	r := withChiParam(bearerReq(t, p, http.MethodPut, "/v1/notifications/n1/read", "u1", domain.RoleStudent, "U1", nil), "id", "n1")
	rr := httptest.NewRecorder()
	serveAuthed(p, http.HandlerFunc(h.MarkAsRead), rr, r)
	assert.Equal(t, http.StatusForbidden, rr.Code)
}

func TestSendCustom_InvalidBody(t *testing.T) {
	p := newTestJWTProvider(t)
	h := NewNotificationHandler(&mockNotifSvc{}, &mockSender{})
	r := bearerReq(t, p, http.MethodPost, "/v1/notifications/custom", "op", domain.RoleAdmin, "U1", nil)
	r.Body = http.NoBody
	rr := httptest.NewRecorder()
	serveAuthed(p, http.HandlerFunc(h.SendCustom), rr, r)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestSendCustom_OtherUniversityForbidden(t *testing.T) {
	p := newTestJWTProvider(t)
	sender := &mockSender{}
	h := NewNotificationHandler(&mockNotifSvc{}, sender)

	r := bearerReq(t, p, http.MethodPost, "/v1/notifications/custom", "op", domain.RoleAdmin, "U1",
		trigger.AnnouncementEvent{Title: "t", UniversityID: "U2"})
	rr := httptest.NewRecorder()
	serveAuthed(p, http.HandlerFunc(h.SendCustom), rr, r)
	assert.Equal(t, http.StatusForbidden, rr.Code)
	sender.AssertNotCalled(t, "OnAnnouncement", mock.Anything, mock.Anything)
}

func TestSendCustom_PushFailureStillCreated(t *testing.T) {
	p := newTestJWTProvider(t)
	sender := &mockSender{}
	sender.On("OnAnnouncement", mock.Anything, mock.Anything).
		Return(&domain.Notification{NotificationID: "n1", Title: "t"}, domain.ErrTransport)
	h := NewNotificationHandler(&mockNotifSvc{}, sender)

	r := bearerReq(t, p, http.MethodPost, "/v1/notifications/custom", "op", domain.RoleAdmin, "U1",
		trigger.AnnouncementEvent{Title: "t", UniversityID: "U1"})
	rr := httptest.NewRecorder()
	serveAuthed(p, http.HandlerFunc(h.SendCustom), rr, r)

	require.Equal(t, http.StatusCreated, rr.Code)
	var resp map[string]interface{}
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
	assert.Equal(t, false, resp["success"])
}

func TestSendCustom_ValidationFailure(t *testing.T) {
	p := newTestJWTProvider(t)
	sender := &mockSender{}
	sender.On("OnAnnouncement", mock.Anything, mock.Anything).Return(nil, domain.ErrBadRequest)
	h := NewNotificationHandler(&mockNotifSvc{}, sender)

	r := bearerReq(t, p, http.MethodPost, "/v1/notifications/custom", "op", domain.RoleSuperAdmin, "",
		trigger.AnnouncementEvent{Title: "t"})
	rr := httptest.NewRecorder()
	serveAuthed(p, http.HandlerFunc(h.SendCustom), rr, r)
	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)
}

func TestCreate_SendFlag(t *testing.T) {
	p := newTestJWTProvider(t)
	svc := &mockNotifSvc{}
	res := &dispatch.Result{
		NotificationID: "n1",
		Target:         dispatch.Target{Kind: dispatch.TargetTopic, Topic: "university_U1"},
		Update:         domain.DeliveryUpdate{Sent: true, DeliveredTargets: 1, AttemptedAt: time.Now()},
	}
	svc.On("Create", mock.Anything, mock.MatchedBy(func(in notification.ComposeInput) bool {
		return in.Module == notification.ModuleTimetable
	}), true).Return(&domain.Notification{NotificationID: "n1"}, res, nil)
	h := NewNotificationHandler(svc, &mockSender{})

	r := bearerReq(t, p, http.MethodPost, "/v1/notifications?send=true", "op", domain.RoleAdmin, "U1",
		notification.ComposeInput{Module: notification.ModuleTimetable, UniversityID: "U1"})
	rr := httptest.NewRecorder()
	serveAuthed(p, http.HandlerFunc(h.Create), rr, r)

	require.Equal(t, http.StatusCreated, rr.Code)
	var resp struct {
		Dispatch DispatchEnvelope `json:"dispatch"`
	}
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
	assert.True(t, resp.Dispatch.Sent)
	assert.Equal(t, 1, resp.Dispatch.DeliveredTargets)
}

func TestDispatch_LoadFailureMapsStatus(t *testing.T) {
	svc := &mockNotifSvc{}
	svc.On("Dispatch", mock.Anything, "gone").Return(dispatch.Result{NotificationID: "gone"}, domain.ErrNotFound)
	h := NewNotificationHandler(svc, &mockSender{})

	r := withChiParam(httptest.NewRequest(http.MethodPost, "/v1/notifications/gone/dispatch", nil), "id", "gone")
	rr := httptest.NewRecorder()
	h.Dispatch(rr, r)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestDispatch_FailedAttemptReported(t *testing.T) {
	svc := &mockNotifSvc{}
	svc.On("Dispatch", mock.Anything, "n1").Return(dispatch.Result{
		NotificationID: "n1",
		Target:         dispatch.Target{Kind: dispatch.TargetTopic, Topic: "university_U1"},
		Update:         domain.DeliveryUpdate{LastError: "boom", Attempts: 1, AttemptedAt: time.Now()},
	}, domain.ErrTransport)
	h := NewNotificationHandler(svc, &mockSender{})

	r := withChiParam(httptest.NewRequest(http.MethodPost, "/v1/notifications/n1/dispatch", bytes.NewReader(nil)), "id", "n1")
	rr := httptest.NewRecorder()
	h.Dispatch(rr, r)

	require.Equal(t, http.StatusOK, rr.Code)
	var env DispatchEnvelope
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&env))
	assert.False(t, env.Sent)
	assert.NotEmpty(t, env.Error)
	assert.Equal(t, "topic:university_U1", env.Target)
}
