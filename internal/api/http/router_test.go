package http

import (
	"context"
	"encoding/json"
	"io"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/orderme/internal/api/http/handlers"
	"github.com/spec-kit/orderme/internal/auth"
	"github.com/spec-kit/orderme/internal/config"
	"github.com/spec-kit/orderme/internal/domain"
	"github.com/spec-kit/orderme/internal/observability"
	"github.com/spec-kit/orderme/internal/repository"
	"github.com/spec-kit/orderme/internal/service"
)

type stubUsers struct {
	mu    sync.Mutex
	users map[string]*domain.User
}

func (r *stubUsers) Create(_ context.Context, user *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.users[user.ID] = user
	return nil
}

func (r *stubUsers) GetByID(_ context.Context, id string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if u, ok := r.users[id]; ok {
		return u, nil
	}
	return nil, pgx.ErrNoRows
}

func (r *stubUsers) GetByPhoneNumber(_ context.Context, phone string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.PhoneNumber == phone {
			return u, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r *stubUsers) ExistsByPhoneNumber(ctx context.Context, phone string) (bool, error) {
	_, err := r.GetByPhoneNumber(ctx, phone)
	return err == nil, nil
}

type stubAdmins struct {
	mu     sync.Mutex
	admins map[string]*domain.Admin
}

func (r *stubAdmins) Create(_ context.Context, admin *domain.Admin) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.admins[admin.ID] = admin
	return nil
}

func (r *stubAdmins) GetByID(_ context.Context, id string) (*domain.Admin, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if a, ok := r.admins[id]; ok {
		return a, nil
	}
	return nil, pgx.ErrNoRows
}

func (r *stubAdmins) Exists(ctx context.Context, id string) (bool, error) {
	_, err := r.GetByID(ctx, id)
	return err == nil, nil
}

type pingerFunc func(context.Context) error

func (f pingerFunc) Ping(ctx context.Context) error { return f(ctx) }

type testServer struct {
	app   *fiber.App
	redis *miniredis.Miniredis
}

func newTestServer(t *testing.T, logoutPerMinute int) *testServer {
	t.Helper()
	srv := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: srv.Addr(), MaxRetries: -1})
	t.Cleanup(func() { _ = client.Close() })

	signer, err := auth.NewSigner("router-test-secret", nil)
	require.NoError(t, err)
	metrics := observability.NewMetrics()
	authority := auth.NewAuthority(auth.AuthorityDependencies{
		Signer:    signer,
		Store:     repository.NewTokenRepository(client, time.Second),
		Lifetimes: auth.DefaultLifetimes(),
		Metrics:   metrics,
	})

	users := &stubUsers{users: map[string]*domain.User{
		"user-1": {ID: "user-1", Name: "Kim", PhoneNumber: "01012345678", Gender: domain.GenderFemale},
	}}
	hash, err := auth.HashPassword("admin-pw", 4)
	require.NoError(t, err)
	admins := &stubAdmins{admins: map[string]*domain.Admin{
		"admin-1": {ID: "admin-1", PasswordHash: hash, StoreID: 3},
	}}

	cfg := config.Config{
		Auth:         config.AuthConfig{BcryptCost: 4},
		Verification: config.VerificationConfig{CodeTTLSeconds: 600},
	}
	svc := service.NewAuthService(cfg, service.AuthDependencies{
		UserRepo:         users,
		AdminRepo:        admins,
		VerificationRepo: repository.NewVerificationRepository(client),
		Authority:        authority,
	})

	app := fiber.New()
	RegisterMiddlewares(app, zap.NewNop(), metrics, time.Second)
	healthy := pingerFunc(func(context.Context) error { return nil })
	RegisterRoutes(app, RouteConfig{
		Health: handlers.NewHealthHandler("orderme-api", "test", healthy, pingerFunc(func(ctx context.Context) error {
			return client.Ping(ctx).Err()
		})),
		Users:               handlers.NewUsersHandler(svc),
		Kiosk:               handlers.NewKioskHandler(svc),
		Admin:               handlers.NewAdminHandler(svc),
		Gate:                auth.NewAuthMiddleware(authority, []string{"/health/**", "/metrics", "/api/auth/verify/**", "/api/auth/admin/**", "/api/auth/kiosk/phone-login", "/api/auth/refresh"}),
		Metrics:             metrics,
		LogoutRatePerMinute: logoutPerMinute,

		ConfirmRatePerMinute: 2,
	})
	return &testServer{app: app, redis: srv}
}

func (s *testServer) call(t *testing.T, method, path, token string, body any) (int, map[string]any) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = strings.NewReader(string(raw))
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	}
	if token != "" {
		req.Header.Set(fiber.HeaderAuthorization, "Bearer "+token)
	}
	resp, err := s.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	out := map[string]any{}
	if len(raw) > 0 && strings.HasPrefix(resp.Header.Get(fiber.HeaderContentType), fiber.MIMEApplicationJSON) {
		require.NoError(t, json.Unmarshal(raw, &out))
	}
	return resp.StatusCode, out
}

func (s *testServer) kioskLogin(t *testing.T) string {
	t.Helper()
	status, body := s.call(t, fiber.MethodPost, "/api/auth/kiosk/phone-login", "", fiber.Map{
		"phone_number": "01012345678",
		"kiosk_id":     "kiosk-1",
	})
	require.Equal(t, fiber.StatusOK, status, body)
	authBody := body["data"].(map[string]any)["auth"].(map[string]any)
	assert.Equal(t, "KIOSK", authBody["type"])
	assert.EqualValues(t, 60, authBody["expires_in"])
	return authBody["token"].(string)
}

func errorCode(body map[string]any) string {
	errBody, _ := body["error"].(map[string]any)
	code, _ := errBody["code"].(string)
	return code
}

func TestHealthRoutesArePublic(t *testing.T) {
	s := newTestServer(t, 30)

	status, body := s.call(t, fiber.MethodGet, "/health/live", "", nil)
	assert.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "alive", body["status"])

	status, body = s.call(t, fiber.MethodGet, "/health/ready", "", nil)
	assert.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "ready", body["status"])

	s.redis.Close()
	status, body = s.call(t, fiber.MethodGet, "/health/ready", "", nil)
	assert.Equal(t, fiber.StatusServiceUnavailable, status)
	assert.Equal(t, "DEPENDENCY_UNAVAILABLE", errorCode(body))
}

func TestProtectedRouteRequiresToken(t *testing.T) {
	s := newTestServer(t, 30)

	status, body := s.call(t, fiber.MethodGet, "/api/users/me", "", nil)
	assert.Equal(t, fiber.StatusUnauthorized, status)
	assert.Equal(t, "UNAUTHORIZED", errorCode(body))
	assert.Equal(t, "unauthenticated", body["error"].(map[string]any)["message"])

	status, _ = s.call(t, fiber.MethodGet, "/api/users/me", "garbage", nil)
	assert.Equal(t, fiber.StatusUnauthorized, status)
}

func TestKioskSessionLifecycle(t *testing.T) {
	s := newTestServer(t, 30)
	first := s.kioskLogin(t)

	status, body := s.call(t, fiber.MethodGet, "/api/users/me", first, nil)
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "user-1", body["data"].(map[string]any)["id"])

	status, body = s.call(t, fiber.MethodPost, "/api/auth/kiosk/extend-session", first, nil)
	require.Equal(t, fiber.StatusOK, status, body)
	second := body["data"].(map[string]any)["token"].(string)
	assert.NotEqual(t, first, second)

	status, _ = s.call(t, fiber.MethodGet, "/api/users/me", first, nil)
	assert.Equal(t, fiber.StatusOK, status)

	status, _ = s.call(t, fiber.MethodPost, "/api/auth/kiosk/logout", first, nil)
	assert.Equal(t, fiber.StatusNoContent, status)

	status, _ = s.call(t, fiber.MethodGet, "/api/users/me", first, nil)
	assert.Equal(t, fiber.StatusUnauthorized, status)
	status, _ = s.call(t, fiber.MethodGet, "/api/users/me", second, nil)
	assert.Equal(t, fiber.StatusOK, status)
}

func TestKioskTokenExpiresAfterSixtySeconds(t *testing.T) {
	s := newTestServer(t, 30)
	token := s.kioskLogin(t)

	s.redis.FastForward(61 * time.Second)

	status, _ := s.call(t, fiber.MethodGet, "/api/users/me", token, nil)
	assert.Equal(t, fiber.StatusUnauthorized, status)
}

func TestClassRestrictedRoutes(t *testing.T) {
	s := newTestServer(t, 30)
	kiosk := s.kioskLogin(t)

	status, body := s.call(t, fiber.MethodGet, "/api/admin/me", kiosk, nil)
	assert.Equal(t, fiber.StatusForbidden, status)
	assert.Equal(t, "FORBIDDEN", errorCode(body))

	status, body = s.call(t, fiber.MethodPost, "/api/auth/admin/login", "", fiber.Map{"id": "admin-1", "password": "admin-pw"})
	require.Equal(t, fiber.StatusOK, status, body)
	session := body["data"].(map[string]any)["auth"].(map[string]any)
	adminToken := session["access"].(map[string]any)["token"].(string)
	refreshToken := session["refresh"].(map[string]any)["token"].(string)

	status, body = s.call(t, fiber.MethodGet, "/api/admin/me", adminToken, nil)
	require.Equal(t, fiber.StatusOK, status)
	assert.EqualValues(t, 3, body["data"].(map[string]any)["store_id"])

	status, _ = s.call(t, fiber.MethodGet, "/api/users/me", adminToken, nil)
	assert.Equal(t, fiber.StatusForbidden, status)

	status, _ = s.call(t, fiber.MethodPost, "/api/auth/kiosk/extend-session", adminToken, nil)
	assert.Equal(t, fiber.StatusForbidden, status)

	status, body = s.call(t, fiber.MethodPost, "/api/auth/refresh", "", fiber.Map{"refresh_token": refreshToken})
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "ADMIN", body["data"].(map[string]any)["type"])

	status, _ = s.call(t, fiber.MethodPost, "/api/auth/refresh", "", fiber.Map{"refresh_token": adminToken})
	assert.Equal(t, fiber.StatusUnauthorized, status)
}

func TestLogoutIsRateLimited(t *testing.T) {
	s := newTestServer(t, 1)
	first := s.kioskLogin(t)
	second := s.kioskLogin(t)

	status, _ := s.call(t, fiber.MethodPost, "/api/auth/logout", first, nil)
	assert.Equal(t, fiber.StatusNoContent, status)

	status, body := s.call(t, fiber.MethodPost, "/api/auth/logout", second, nil)
	assert.Equal(t, fiber.StatusTooManyRequests, status)
	assert.Equal(t, "RATE_LIMITED", errorCode(body))
}

func TestRevocationStoreOutageFailsClosed(t *testing.T) {
	s := newTestServer(t, 30)
	token := s.kioskLogin(t)

	s.redis.Close()

	status, body := s.call(t, fiber.MethodGet, "/api/users/me", token, nil)
	assert.Equal(t, fiber.StatusUnauthorized, status)
	assert.Equal(t, "unauthenticated", body["error"].(map[string]any)["message"])

	status, body = s.call(t, fiber.MethodPost, "/api/auth/kiosk/phone-login", "", fiber.Map{"phone_number": "01012345678"})
	assert.Equal(t, fiber.StatusServiceUnavailable, status)
	assert.Equal(t, "SERVICE_UNAVAILABLE", errorCode(body))
}

func TestBadPayloadsAreRejected(t *testing.T) {
	s := newTestServer(t, 30)

	status, body := s.call(t, fiber.MethodPost, "/api/auth/kiosk/phone-login", "", fiber.Map{})
	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.Equal(t, "BAD_REQUEST", errorCode(body))

	status, _ = s.call(t, fiber.MethodPost, "/api/auth/kiosk/phone-login", "", fiber.Map{"phone_number": "01099999999"})
	assert.Equal(t, fiber.StatusNotFound, status)

	status, _ = s.call(t, fiber.MethodPost, "/api/auth/admin/login", "", fiber.Map{"id": "admin-1", "password": "nope"})
	assert.Equal(t, fiber.StatusUnauthorized, status)
}

func TestMetricsEndpoint(t *testing.T) {
	s := newTestServer(t, 30)
	s.kioskLogin(t)

	req := httptest.NewRequest(fiber.MethodGet, "/metrics", nil)
	resp, err := s.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Contains(t, string(raw), `orderme_auth_tokens_issued_total{class="KIOSK"} 1`)
}


func TestUnauthorizedResponseHeaders(t *testing.T) {
	s := newTestServer(t, 30)

	req := httptest.NewRequest(fiber.MethodGet, "/api/users/me", nil)
	req.Header.Set("X-Request-ID", "not-a-uuid")
	resp, err := s.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, `Bearer realm="orderme"`, resp.Header.Get(fiber.HeaderWWWAuthenticate))
	assert.NotEqual(t, "not-a-uuid", resp.Header.Get("X-Request-ID"))
	assert.NotEmpty(t, resp.Header.Get("X-Request-ID"))
}

func TestVerifyConfirmIsRateLimited(t *testing.T) {
	s := newTestServer(t, 30)
	guess := fiber.Map{
		"verification_id":  "unknown",
		"code":             "123456",
		"phone_number":     "01012345678",
		"name":             "Kim",
		"id_number_front":  "990412",
		"id_number_gender": "2",
		"password":         "pw",
	}

	for i := 0; i < 2; i++ {
		status, _ := s.call(t, fiber.MethodPost, "/api/auth/verify/confirm", "", guess)
		assert.NotEqual(t, fiber.StatusTooManyRequests, status)
	}

	status, body := s.call(t, fiber.MethodPost, "/api/auth/verify/confirm", "", guess)
	assert.Equal(t, fiber.StatusTooManyRequests, status)
	assert.Equal(t, "RATE_LIMITED", errorCode(body))
}
