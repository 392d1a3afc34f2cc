package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/duetapp/duet-api/internal/application/auth"
	"github.com/duetapp/duet-api/internal/domain"
	jwtinfra "github.com/duetapp/duet-api/internal/infrastructure/jwt"
	"github.com/duetapp/duet-api/internal/transport/http/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// --- mock ---

type mockAuthSvc struct{ mock.Mock }

func (m *mockAuthSvc) Login(ctx context.Context, req auth.LoginRequest) (*auth.AuthResult, error) {
	args := m.Called(ctx, req)
	if r, _ := args.Get(0).(*auth.AuthResult); r != nil {
		return r, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *mockAuthSvc) GoogleLogin(ctx context.Context, req auth.GoogleLoginRequest) (*auth.AuthResult, error) {
	args := m.Called(ctx, req)
	if r, _ := args.Get(0).(*auth.AuthResult); r != nil {
		return r, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *mockAuthSvc) Refresh(ctx context.Context, refreshToken string) (*auth.AuthResult, error) {
	args := m.Called(ctx, refreshToken)
	if r, _ := args.Get(0).(*auth.AuthResult); r != nil {
		return r, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *mockAuthSvc) Logout(ctx context.Context, sessionID string) error {
	return m.Called(ctx, sessionID).Error(0)
}
func (m *mockAuthSvc) ListSessions(ctx context.Context, coupleID string) ([]domain.Session, error) {
	args := m.Called(ctx, coupleID)
	return args.Get(0).([]domain.Session), args.Error(1)
}
func (m *mockAuthSvc) RequestPasswordReset(ctx context.Context, req auth.PasswordResetRequest) error {
	return m.Called(ctx, req).Error(0)
}
func (m *mockAuthSvc) ConfirmPasswordReset(ctx context.Context, req auth.PasswordResetConfirm) error {
	return m.Called(ctx, req).Error(0)
}

// withClaims injects verified JWT claims the way the auth middleware does.
func withClaims(r *http.Request, coupleID, slot, sessionID string) *http.Request {
	claims := &jwtinfra.Claims{CoupleID: coupleID, Slot: slot, SessionID: sessionID}
	return r.WithContext(context.WithValue(r.Context(), middleware.ClaimsKey, claims))
}

// --- Login ---

func TestLogin_ReturnsTokens(t *testing.T) {
	svc := &mockAuthSvc{}
	svc.On("Login", mock.Anything, auth.LoginRequest{
		Email: "alice@example.com", Password: "password-a-1",
	}).Return(&auth.AuthResult{
		AccessToken:  "bearer",
		RefreshToken: "refresh",
		Session:      &domain.Session{SessionID: "s1", CoupleID: "c1"},
		Partner:      &domain.Partner{CoupleID: "c1", Slot: domain.SlotA, DisplayName: "Alice"},
	}, nil)

	h := NewSessionHandler(svc)
	req := httptest.NewRequest(http.MethodPost, "/v1/sessions/login", jsonBody(t, map[string]string{
		"email": "alice@example.com", "password": "password-a-1",
	}))
	rr := httptest.NewRecorder()
	h.Login(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	var env AuthEnvelope
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &env))
	assert.Equal(t, "bearer", env.AccessToken)
	assert.Equal(t, "refresh", env.RefreshToken)
	assert.Equal(t, "Alice", env.Partner.DisplayName)
}

func TestLogin_BadCredentialsMapsTo401(t *testing.T) {
	svc := &mockAuthSvc{}
	svc.On("Login", mock.Anything, mock.Anything).Return(nil, domain.ErrUnauthorized)

	h := NewSessionHandler(svc)
	req := httptest.NewRequest(http.MethodPost, "/v1/sessions/login", jsonBody(t, map[string]string{
		"email": "alice@example.com", "password": "wrong-password",
	}))
	rr := httptest.NewRecorder()
	h.Login(rr, req)

	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestLogin_PendingCoupleMapsTo403(t *testing.T) {
	svc := &mockAuthSvc{}
	svc.On("Login", mock.Anything, mock.Anything).Return(nil, domain.ErrForbidden)

	h := NewSessionHandler(svc)
	req := httptest.NewRequest(http.MethodPost, "/v1/sessions/login", jsonBody(t, map[string]string{
		"email": "alice@example.com", "password": "password-a-1",
	}))
	rr := httptest.NewRecorder()
	h.Login(rr, req)

	assert.Equal(t, http.StatusForbidden, rr.Code)
}

func TestLogin_MissingFields(t *testing.T) {
	h := NewSessionHandler(&mockAuthSvc{})
	req := httptest.NewRequest(http.MethodPost, "/v1/sessions/login", jsonBody(t, map[string]string{
		"email": "alice@example.com",
	}))
	rr := httptest.NewRecorder()
	h.Login(rr, req)

	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)
}

// --- Refresh ---

func TestRefresh_RotatedPairReturned(t *testing.T) {
	svc := &mockAuthSvc{}
	svc.On("Refresh", mock.Anything, "old").Return(&auth.AuthResult{
		AccessToken:  "new-bearer",
		RefreshToken: "new-refresh",
		Session:      &domain.Session{SessionID: "s1"},
	}, nil)

	h := NewSessionHandler(svc)
	req := httptest.NewRequest(http.MethodPost, "/v1/sessions/refresh", jsonBody(t, map[string]string{
		"refresh_token": "old",
	}))
	rr := httptest.NewRecorder()
	h.Refresh(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	var env AuthEnvelope
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &env))
	assert.Equal(t, "new-refresh", env.RefreshToken)
}

func TestRefresh_MissingToken(t *testing.T) {
	h := NewSessionHandler(&mockAuthSvc{})
	req := httptest.NewRequest(http.MethodPost, "/v1/sessions/refresh", jsonBody(t, map[string]string{}))
	rr := httptest.NewRecorder()
	h.Refresh(rr, req)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

// --- Logout / List ---

func TestLogout_UsesSessionFromClaims(t *testing.T) {
	svc := &mockAuthSvc{}
	svc.On("Logout", mock.Anything, "s1").Return(nil)

	h := NewSessionHandler(svc)
	req := withClaims(httptest.NewRequest(http.MethodPost, "/v1/sessions/logout", nil), "c1", domain.SlotA, "s1")
	rr := httptest.NewRecorder()
	h.Logout(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	svc.AssertExpectations(t)
}

func TestLogout_NoClaims(t *testing.T) {
	h := NewSessionHandler(&mockAuthSvc{})
	req := httptest.NewRequest(http.MethodPost, "/v1/sessions/logout", nil)
	rr := httptest.NewRecorder()
	h.Logout(rr, req)

	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestList_ScopedToCallersCouple(t *testing.T) {
	svc := &mockAuthSvc{}
	svc.On("ListSessions", mock.Anything, "c1").Return([]domain.Session{
		{SessionID: "s1", CoupleID: "c1", Slot: domain.SlotA},
		{SessionID: "s2", CoupleID: "c1", Slot: domain.SlotB},
	}, nil)

	h := NewSessionHandler(svc)
	req := withClaims(httptest.NewRequest(http.MethodGet, "/v1/sessions", nil), "c1", domain.SlotA, "s1")
	rr := httptest.NewRecorder()
	h.List(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	var env SessionListEnvelope
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &env))
	assert.Len(t, env.Sessions, 2)
}
