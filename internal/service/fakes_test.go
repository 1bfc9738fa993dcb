package service

import (
	"context"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/jackc/pgx/v5"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/orderme/internal/auth"
	"github.com/spec-kit/orderme/internal/config"
	"github.com/spec-kit/orderme/internal/domain"
	"github.com/spec-kit/orderme/internal/events"
	"github.com/spec-kit/orderme/internal/repository"
)

type memoryUsers struct {
	mu    sync.Mutex
	seq   int64
	byID  map[string]*domain.User
	phone map[string]string
}

func newMemoryUsers() *memoryUsers {
	return &memoryUsers{byID: map[string]*domain.User{}, phone: map[string]string{}}
}

func (r *memoryUsers) Create(_ context.Context, user *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, taken := r.phone[user.PhoneNumber]; taken {
		return repository.ErrPhoneNumberTaken
	}
	r.seq++
	user.InternalID = r.seq
	user.CreatedAt = time.Now()
	stored := *user
	r.byID[user.ID] = &stored
	r.phone[user.PhoneNumber] = user.ID
	return nil
}

func (r *memoryUsers) GetByID(_ context.Context, id string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	user, ok := r.byID[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	out := *user
	return &out, nil
}

func (r *memoryUsers) GetByPhoneNumber(ctx context.Context, phone string) (*domain.User, error) {
	r.mu.Lock()
	id, ok := r.phone[phone]
	r.mu.Unlock()
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return r.GetByID(ctx, id)
}

func (r *memoryUsers) ExistsByPhoneNumber(_ context.Context, phone string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.phone[phone]
	return ok, nil
}

type memoryAdmins struct {
	mu   sync.Mutex
	byID map[string]*domain.Admin
}

func newMemoryAdmins() *memoryAdmins {
	return &memoryAdmins{byID: map[string]*domain.Admin{}}
}

func (r *memoryAdmins) Create(_ context.Context, admin *domain.Admin) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	admin.CreatedAt = time.Now()
	stored := *admin
	r.byID[admin.ID] = &stored
	return nil
}

func (r *memoryAdmins) GetByID(_ context.Context, id string) (*domain.Admin, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	admin, ok := r.byID[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	out := *admin
	return &out, nil
}

func (r *memoryAdmins) Exists(_ context.Context, id string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.byID[id]
	return ok, nil
}

var codePattern = regexp.MustCompile(`\d{6}`)

type recordingSender struct {
	mu       sync.Mutex
	messages map[string][]string
}

func newRecordingSender() *recordingSender {
	return &recordingSender{messages: map[string][]string{}}
}

func (s *recordingSender) Send(_ context.Context, to, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages[to] = append(s.messages[to], text)
	return nil
}

func (s *recordingSender) lastCode(t *testing.T, phone string) string {
	t.Helper()
	s.mu.Lock()
	defer s.mu.Unlock()
	msgs := s.messages[phone]
	require.NotEmpty(t, msgs, "no sms sent to %s", phone)
	code := codePattern.FindString(msgs[len(msgs)-1])
	require.NotEmpty(t, code)
	return code
}

type serviceHarness struct {
	svc       *AuthService
	authority *auth.Authority
	users     *memoryUsers
	admins    *memoryAdmins
	sms       *recordingSender
	redis     *miniredis.Miniredis
	client    *redis.Client
}

func newServiceHarness(t *testing.T) *serviceHarness {
	t.Helper()
	srv := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: srv.Addr(), MaxRetries: -1})
	t.Cleanup(func() { _ = client.Close() })

	signer, err := auth.NewSigner("service-test-secret", nil)
	require.NoError(t, err)
	authority := auth.NewAuthority(auth.AuthorityDependencies{
		Signer:    signer,
		Store:     repository.NewTokenRepository(client, time.Second),
		Lifetimes: auth.DefaultLifetimes(),
	})

	cfg := config.Config{
		Auth:         config.AuthConfig{BcryptCost: 4},
		Verification: config.VerificationConfig{CodeTTLSeconds: 600},
	}

	dispatcher := events.NewInMemoryDispatcher()
	sms := newRecordingSender()
	NewNotificationService(dispatcher, nil, cfg.Verification, sms).RegisterHandlers()

	users := newMemoryUsers()
	admins := newMemoryAdmins()
	svc := NewAuthService(cfg, AuthDependencies{
		UserRepo:         users,
		AdminRepo:        admins,
		VerificationRepo: repository.NewVerificationRepository(client),
		Authority:        authority,
		Dispatcher:       dispatcher,
	})

	return &serviceHarness{
		svc:       svc,
		authority: authority,
		users:     users,
		admins:    admins,
		sms:       sms,
		redis:     srv,
		client:    client,
	}
}

// register runs the full SMS verification flow for phone.
func (h *serviceHarness) register(t *testing.T, phone string) (*domain.User, Session) {
	t.Helper()
	ctx := context.Background()
	ticket, err := h.svc.RequestVerification(ctx, VerificationRequest{
		Name:           "Kim Minji",
		IDNumberFront:  "990412",
		IDNumberGender: "2",
		PhoneNumber:    phone,
	})
	require.NoError(t, err)

	user, session, err := h.svc.ConfirmVerification(ctx, RegistrationRequest{
		VerificationID: ticket.ID,
		Code:           h.sms.lastCode(t, phone),
		Name:           "Kim Minji",
		IDNumberFront:  "990412",
		IDNumberGender: "2",
		PhoneNumber:    phone,
		Password:       "pw-1234",
	})
	require.NoError(t, err)
	return user, session
}
