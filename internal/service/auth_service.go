package service

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/orderme/internal/auth"
	"github.com/spec-kit/orderme/internal/config"
	"github.com/spec-kit/orderme/internal/domain"
	"github.com/spec-kit/orderme/internal/events"
	"github.com/spec-kit/orderme/internal/repository"
	apperrors "github.com/spec-kit/orderme/pkg/util/errorutil"
)

// Session is the token pair handed out at login or registration.
type Session struct {
	Access  domain.IssuedToken
	Refresh domain.IssuedToken
}

// VerificationRequest starts phone verification for a prospective user.
type VerificationRequest struct {
	Name           string
	IDNumberFront  string
	IDNumberGender string
	PhoneNumber    string
}

// VerificationTicket identifies a pending SMS code.
type VerificationTicket struct {
	ID        string
	ExpiresIn int64
}

// RegistrationRequest confirms an SMS code and creates the user.
type RegistrationRequest struct {
	VerificationID string
	Code           string
	Name           string
	IDNumberFront  string
	IDNumberGender string
	PhoneNumber    string
	Password       string
}

// AuthService coordinates registration and login flows on top of the token
// authority. Every route maps onto one authority operation.
type AuthService struct {
	users         repository.UserRepository
	admins        repository.AdminRepository
	verifications repository.VerificationRepository
	tokens        *auth.Authority
	dispatcher    events.Dispatcher
	logger        *zap.Logger
	bcryptCost    int
	codeTTL       time.Duration
}

// AuthDependencies encapsulates collaborators for the auth service.
type AuthDependencies struct {
	UserRepo         repository.UserRepository
	AdminRepo        repository.AdminRepository
	VerificationRepo repository.VerificationRepository
	Authority        *auth.Authority
	Dispatcher       events.Dispatcher
	Logger           *zap.Logger
}

// NewAuthService builds the service.
func NewAuthService(cfg config.Config, deps AuthDependencies) *AuthService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	dispatcher := deps.Dispatcher
	if dispatcher == nil {
		dispatcher = events.NewInMemoryDispatcher()
	}
	return &AuthService{
		users:         deps.UserRepo,
		admins:        deps.AdminRepo,
		verifications: deps.VerificationRepo,
		tokens:        deps.Authority,
		dispatcher:    dispatcher,
		logger:        logger,
		bcryptCost:    cfg.Auth.BcryptCost,
		codeTTL:       cfg.Verification.CodeTTL(),
	}
}

// RequestVerification stores a one-time code for the phone number and hands
// it to the SMS notifier.
func (s *AuthService) RequestVerification(ctx context.Context, req VerificationRequest) (VerificationTicket, error) {
	if strings.TrimSpace(req.Name) == "" || strings.TrimSpace(req.PhoneNumber) == "" {
		return VerificationTicket{}, apperrors.NewValidationError("invalid user information", nil)
	}
	if _, _, err := domain.ParseResidentID(req.IDNumberFront, req.IDNumberGender); err != nil {
		return VerificationTicket{}, apperrors.NewValidationError("invalid user information", nil)
	}

	exists, err := s.users.ExistsByPhoneNumber(ctx, req.PhoneNumber)
	if err != nil {
		return VerificationTicket{}, apperrors.NewInternalError(err)
	}
	if exists {
		return VerificationTicket{}, errPhoneTaken()
	}

	code, err := generateVerificationCode()
	if err != nil {
		return VerificationTicket{}, apperrors.NewInternalError(err)
	}
	verification := repository.Verification{
		ID:          uuid.NewString(),
		PhoneNumber: req.PhoneNumber,
		Code:        code,
	}
	if err := s.verifications.Save(ctx, verification, s.codeTTL); err != nil {
		return VerificationTicket{}, apperrors.NewUnavailable(err)
	}

	err = s.dispatcher.Publish(ctx, events.Event{
		ID:        uuid.NewString(),
		Type:      events.EventVerificationRequested,
		Timestamp: time.Now(),
		Payload: events.VerificationRequestedPayload{
			VerificationID: verification.ID,
			PhoneNumber:    verification.PhoneNumber,
			Code:           verification.Code,
		},
	})
	if err != nil {
		return VerificationTicket{}, apperrors.NewUnavailable(err)
	}

	return VerificationTicket{ID: verification.ID, ExpiresIn: int64(s.codeTTL / time.Second)}, nil
}

// ConfirmVerification consumes the SMS code, creates the user and issues an
// APP access token together with a refresh token.
func (s *AuthService) ConfirmVerification(ctx context.Context, req RegistrationRequest) (*domain.User, Session, error) {
	birthDate, gender, err := domain.ParseResidentID(req.IDNumberFront, req.IDNumberGender)
	if err != nil || strings.TrimSpace(req.Name) == "" || req.Password == "" {
		return nil, Session{}, apperrors.NewValidationError("invalid user information", nil)
	}

	// Another pending verification for the same phone may have completed
	// first. Check before spending this code.
	exists, err := s.users.ExistsByPhoneNumber(ctx, req.PhoneNumber)
	if err != nil {
		return nil, Session{}, apperrors.NewInternalError(err)
	}
	if exists {
		return nil, Session{}, errPhoneTaken()
	}

	ok, err := s.verifications.Consume(ctx, req.VerificationID, req.PhoneNumber, req.Code)
	if err != nil {
		return nil, Session{}, apperrors.NewUnavailable(err)
	}
	if !ok {
		return nil, Session{}, apperrors.NewValidationError("verification code does not match", nil)
	}

	hash, err := auth.HashPassword(req.Password, s.bcryptCost)
	if err != nil {
		return nil, Session{}, apperrors.NewInternalError(err)
	}

	user := &domain.User{
		ID:           uuid.NewString(),
		Name:         req.Name,
		PhoneNumber:  req.PhoneNumber,
		BirthDate:    birthDate,
		PasswordHash: hash,
		Gender:       gender,
	}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrPhoneNumberTaken) {
			return nil, Session{}, errPhoneTaken()
		}
		return nil, Session{}, apperrors.NewInternalError(err)
	}

	session, err := s.issueSession(ctx, user.ID, domain.TokenClassApp)
	if err != nil {
		return nil, Session{}, err
	}

	s.publish(ctx, events.Event{
		Type:      events.EventUserRegistered,
		SubjectID: user.ID,
		Payload:   events.UserRegisteredPayload{Name: user.Name, PhoneNumber: user.PhoneNumber},
	})
	return user, session, nil
}

// Refresh trades a REFRESH token for a new access token of the class the
// refresh token was minted for.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (domain.IssuedToken, error) {
	identity, err := s.tokens.Validate(ctx, refreshToken)
	if err != nil || identity.Class != domain.TokenClassRefresh {
		return domain.IssuedToken{}, apperrors.NewUnauthorized("invalid refresh token")
	}

	class := domain.TokenClassApp
	if identity.Context != "" {
		class, err = domain.ParseTokenClass(identity.Context)
		if err != nil {
			return domain.IssuedToken{}, apperrors.NewUnauthorized("invalid refresh token")
		}
	}
	if class != domain.TokenClassApp && class != domain.TokenClassAdmin {
		return domain.IssuedToken{}, apperrors.NewUnauthorized("invalid refresh token")
	}

	return s.issue(ctx, identity.Subject, class)
}

// KioskPhoneLogin issues a short-lived kiosk token for a registered phone.
func (s *AuthService) KioskPhoneLogin(ctx context.Context, phone, kioskID string) (*domain.User, domain.IssuedToken, error) {
	user, err := s.users.GetByPhoneNumber(ctx, phone)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.IssuedToken{}, apperrors.NewNotFound("user", nil)
		}
		return nil, domain.IssuedToken{}, apperrors.NewInternalError(err)
	}

	token, err := s.issue(ctx, user.ID, domain.TokenClassKiosk, auth.WithContext(kioskID))
	if err != nil {
		return nil, domain.IssuedToken{}, err
	}
	return user, token, nil
}

// ExtendKioskSession mints a successor kiosk token. Without an explicit
// terminal the caller's current terminal is kept.
func (s *AuthService) ExtendKioskSession(ctx context.Context, identity domain.Identity, kioskID string) (domain.IssuedToken, error) {
	if kioskID == "" {
		kioskID = identity.Context
	}
	token, err := s.tokens.ExtendKioskSession(ctx, identity.Subject, kioskID)
	if err != nil {
		return domain.IssuedToken{}, mapAuthorityError(err)
	}
	return token, nil
}

// Logout invalidates the presented token.
func (s *AuthService) Logout(ctx context.Context, identity domain.Identity, token string) error {
	if err := s.tokens.Invalidate(ctx, token); err != nil {
		return mapAuthorityError(err)
	}
	s.publish(ctx, events.Event{
		Type:      events.EventTokenRevoked,
		SubjectID: identity.Subject,
		Payload:   events.TokenRevokedPayload{Class: identity.Class},
	})
	return nil
}

// AdminLogin authenticates an administrator and returns an ADMIN session.
// Unknown ids and wrong passwords are indistinguishable to the caller.
func (s *AuthService) AdminLogin(ctx context.Context, id, password string) (*domain.Admin, Session, error) {
	admin, err := s.admins.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			auth.SimulatePasswordCheck(password)
			return nil, Session{}, apperrors.NewUnauthorized("invalid credentials")
		}
		return nil, Session{}, apperrors.NewInternalError(err)
	}
	if err := auth.ComparePassword(admin.PasswordHash, password); err != nil {
		return nil, Session{}, apperrors.NewUnauthorized("invalid credentials")
	}

	session, err := s.issueSession(ctx, admin.ID, domain.TokenClassAdmin)
	if err != nil {
		return nil, Session{}, err
	}
	return admin, session, nil
}

// AdminRegister creates an administrator account bound to a store.
func (s *AuthService) AdminRegister(ctx context.Context, id, password string, storeID int64) (*domain.Admin, error) {
	if strings.TrimSpace(id) == "" || password == "" || storeID <= 0 {
		return nil, apperrors.NewValidationError("id, password and store_id required", nil)
	}

	exists, err := s.admins.Exists(ctx, id)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	if exists {
		return nil, apperrors.NewConflict("admin id already registered", nil)
	}

	hash, err := auth.HashPassword(password, s.bcryptCost)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	admin := &domain.Admin{ID: id, PasswordHash: hash, StoreID: storeID}
	if err := s.admins.Create(ctx, admin); err != nil {
		return nil, apperrors.NewInternalError(err)
	}

	s.publish(ctx, events.Event{
		Type:      events.EventAdminRegistered,
		SubjectID: admin.ID,
		Payload:   events.AdminRegisteredPayload{StoreID: admin.StoreID},
	})
	return admin, nil
}

// CurrentUser loads the profile behind an APP or KIOSK identity.
func (s *AuthService) CurrentUser(ctx context.Context, identity domain.Identity) (*domain.User, error) {
	user, err := s.users.GetByID(ctx, identity.Subject)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("user", nil)
		}
		return nil, apperrors.NewInternalError(err)
	}
	return user, nil
}

// CurrentAdmin loads the profile behind an ADMIN identity.
func (s *AuthService) CurrentAdmin(ctx context.Context, identity domain.Identity) (*domain.Admin, error) {
	admin, err := s.admins.GetByID(ctx, identity.Subject)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("admin", nil)
		}
		return nil, apperrors.NewInternalError(err)
	}
	return admin, nil
}

func (s *AuthService) issueSession(ctx context.Context, subject string, class domain.TokenClass) (Session, error) {
	access, err := s.issue(ctx, subject, class)
	if err != nil {
		return Session{}, err
	}
	refresh, err := s.issue(ctx, subject, domain.TokenClassRefresh, auth.WithContext(string(class)))
	if err != nil {
		return Session{}, err
	}
	return Session{Access: access, Refresh: refresh}, nil
}

func (s *AuthService) issue(ctx context.Context, subject string, class domain.TokenClass, opts ...auth.IssueOption) (domain.IssuedToken, error) {
	token, err := s.tokens.Issue(ctx, subject, class, opts...)
	if err != nil {
		return domain.IssuedToken{}, mapAuthorityError(err)
	}
	return token, nil
}

func (s *AuthService) publish(ctx context.Context, event events.Event) {
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	if err := s.dispatcher.Publish(ctx, event); err != nil {
		s.logger.Warn("event handler failed", zap.String("event_type", string(event.Type)), zap.Error(err))
	}
}

func errPhoneTaken() error {
	return apperrors.NewConflict("phone number already registered", nil)
}

func mapAuthorityError(err error) error {
	if errors.Is(err, auth.ErrAuthorityUnavailable) {
		return apperrors.NewUnavailable(err)
	}
	return apperrors.NewInternalError(err)
}

func generateVerificationCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(900000))
	if err != nil {
		return "", fmt.Errorf("generate verification code: %w", err)
	}
	return fmt.Sprintf("%06d", n.Int64()+100000), nil
}
