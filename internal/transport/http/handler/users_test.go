package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-bff-auth/internal/application/auth"
	"github.com/go-bff-auth/internal/application/health"
	"github.com/go-bff-auth/internal/application/user"
	"github.com/go-bff-auth/internal/domain"
	jwtinfra "github.com/go-bff-auth/internal/infrastructure/jwt"
	"github.com/go-bff-auth/internal/pkg/apperr"
	"github.com/go-bff-auth/internal/transport/http/middleware"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// --- mocks ---

type mockUserSvc struct{ mock.Mock }

func (m *mockUserSvc) IsUsernameAvailable(ctx context.Context, username string) (bool, error) {
	args := m.Called(ctx, username)
	return args.Bool(0), args.Error(1)
}

func (m *mockUserSvc) UpdateDetails(ctx context.Context, u *domain.User, in user.UpdateInput) (*domain.User, error) {
	args := m.Called(ctx, u, in)
	if out, _ := args.Get(0).(*domain.User); out != nil {
		return out, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockUserSvc) Profile(ctx context.Context, u *domain.User) (*domain.User, error) {
	args := m.Called(ctx, u)
	if out, _ := args.Get(0).(*domain.User); out != nil {
		return out, args.Error(1)
	}
	return nil, args.Error(1)
}

type mockAuthSvc struct{ mock.Mock }

func (m *mockAuthSvc) result(args mock.Arguments) (*auth.Result, error) {
	if res, _ := args.Get(0).(*auth.Result); res != nil {
		return res, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockAuthSvc) SendVerification(ctx context.Context, email string) error {
	return m.Called(ctx, email).Error(0)
}

func (m *mockAuthSvc) VerifyEmail(ctx context.Context, email, code string) (*auth.Result, error) {
	return m.result(m.Called(ctx, email, code))
}

func (m *mockAuthSvc) GoogleOAuth(ctx context.Context, idToken string) (*auth.Result, error) {
	return m.result(m.Called(ctx, idToken))
}

func (m *mockAuthSvc) AppleOAuth(ctx context.Context, idToken, name string) (*auth.Result, error) {
	return m.result(m.Called(ctx, idToken, name))
}

func (m *mockAuthSvc) Register(ctx context.Context, in auth.RegisterInput) (*auth.Result, error) {
	return m.result(m.Called(ctx, in))
}

func (m *mockAuthSvc) Login(ctx context.Context, u *domain.User) (*auth.Result, error) {
	return m.result(m.Called(ctx, u))
}

func (m *mockAuthSvc) RefreshToken(ctx context.Context, token string) (*auth.Result, error) {
	return m.result(m.Called(ctx, token))
}

type stubHealth struct{ report *health.Report }

func (s stubHealth) Check(context.Context, bool) *health.Report { return s.report }

// --- helpers ---

type envelope struct {
	StatusCode int             `json:"statusCode"`
	Success    bool            `json:"success"`
	Message    string          `json:"message"`
	Data       json.RawMessage `json:"data"`
}

func decodeEnvelope(t *testing.T, rr *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &env))
	return env
}

func jsonReq(method, path, body string) *http.Request {
	req := httptest.NewRequest(method, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func withUser(req *http.Request, u *domain.User) *http.Request {
	p := &middleware.Principal{Claims: &jwtinfra.Claims{UserID: u.UserID}, User: u, Type: u.Type}
	return req.WithContext(middleware.WithPrincipal(req.Context(), p))
}

func testUser() *domain.User {
	u := domain.NewUser("01HXUSER", "ada@example.com", domain.UserTypeClient, time.Now())
	u.Name, u.Username = "Ada", "ada_l"
	u.SyncProfileComplete()
	return u
}

func strPtr(s string) *string { return &s }

// --- user handler ---

func TestUsernameAvailable(t *testing.T) {
	svc := new(mockUserSvc)
	svc.On("IsUsernameAvailable", mock.Anything, "ada_l").Return(true, nil)
	h := NewUserHandler(svc)

	r := chi.NewRouter()
	r.With(middleware.Validate(middleware.Schema{Params: UsernameParams{}})).
		Get("/users/username-available/{username}", Wrap(h.UsernameAvailable))

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/users/username-available/ada_l", nil))

	assert.Equal(t, http.StatusOK, rr.Code)
	env := decodeEnvelope(t, rr)
	assert.Equal(t, "Username availablility checked successfully", env.Message)
	assert.JSONEq(t, `{"available":true}`, string(env.Data))
	svc.AssertExpectations(t)
}

func TestUsernameAvailable_InvalidParam(t *testing.T) {
	svc := new(mockUserSvc)
	h := NewUserHandler(svc)

	r := chi.NewRouter()
	r.With(middleware.Validate(middleware.Schema{Params: UsernameParams{}})).
		Get("/users/username-available/{username}", Wrap(h.UsernameAvailable))

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/users/username-available/a-b", nil))

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	svc.AssertNotCalled(t, "IsUsernameAvailable", mock.Anything, mock.Anything)
}

func TestUpdateDetails(t *testing.T) {
	u := testUser()
	updated := *u
	updated.Name = "Ada Lovelace"

	svc := new(mockUserSvc)
	svc.On("UpdateDetails", mock.Anything, u, user.UpdateInput{Name: strPtr("Ada Lovelace")}).Return(&updated, nil)
	h := middleware.Validate(middleware.Schema{Body: UpdateDetailsRequest{}})(Wrap(NewUserHandler(svc).UpdateDetails))

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, withUser(jsonReq(http.MethodPatch, "/", `{"name":"Ada Lovelace"}`), u))

	assert.Equal(t, http.StatusOK, rr.Code)
	env := decodeEnvelope(t, rr)
	assert.Equal(t, "User updated successfully", env.Message)
	var got domain.User
	require.NoError(t, json.Unmarshal(env.Data, &got))
	assert.Equal(t, "Ada Lovelace", got.Name)
	svc.AssertExpectations(t)
}

func TestUpdateDetails_Conflict(t *testing.T) {
	u := testUser()
	svc := new(mockUserSvc)
	svc.On("UpdateDetails", mock.Anything, u, mock.Anything).Return(nil, apperr.Conflict("Username is already taken"))
	h := middleware.Validate(middleware.Schema{Body: UpdateDetailsRequest{}})(Wrap(NewUserHandler(svc).UpdateDetails))

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, withUser(jsonReq(http.MethodPatch, "/", `{"username":"grace"}`), u))

	assert.Equal(t, http.StatusConflict, rr.Code)
	env := decodeEnvelope(t, rr)
	assert.False(t, env.Success)
	assert.Equal(t, "Username is already taken", env.Message)
}

func TestMe(t *testing.T) {
	u := testUser()
	svc := new(mockUserSvc)
	svc.On("Profile", mock.Anything, u).Return(u, nil)

	rr := httptest.NewRecorder()
	Wrap(NewUserHandler(svc).Me).ServeHTTP(rr, withUser(httptest.NewRequest(http.MethodGet, "/", nil), u))

	assert.Equal(t, http.StatusOK, rr.Code)
	var got map[string]any
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, rr).Data, &got))
	assert.Equal(t, "01HXUSER", got["id"])
	assert.Equal(t, true, got["isProfileComplete"])
	assert.NotContains(t, got, "google_sub")
}

func TestMe_NoUser(t *testing.T) {
	rr := httptest.NewRecorder()
	Wrap(NewUserHandler(new(mockUserSvc)).Me).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

// --- health handler ---

func TestHealth(t *testing.T) {
	for _, tc := range []struct {
		status string
		code   int
	}{
		{health.StatusHealthy, http.StatusOK},
		{health.StatusDegraded, http.StatusServiceUnavailable},
	} {
		h := NewHealthHandler(stubHealth{report: &health.Report{Status: tc.status}})
		rr := httptest.NewRecorder()
		h.Check(rr, httptest.NewRequest(http.MethodGet, "/health", nil))
		assert.Equal(t, tc.code, rr.Code, tc.status)

		var body map[string]any
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
		assert.Equal(t, tc.status, body["status"])
	}
}
