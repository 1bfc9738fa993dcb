package auth

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/orderme/internal/domain"
	"github.com/spec-kit/orderme/internal/observability"
)

// Authority issues, validates, extends and revokes bearer tokens. A token is
// only usable while its signature verifies and the revocation store holds a
// valid record for it.
type Authority struct {
	signer    *Signer
	store     RevocationStore
	lifetimes Lifetimes
	logger    *zap.Logger
	metrics   *observability.Metrics
	now       Clock
}

// AuthorityDependencies bundles collaborators for the authority.
type AuthorityDependencies struct {
	Signer    *Signer
	Store     RevocationStore
	Lifetimes Lifetimes
	Logger    *zap.Logger
	Metrics   *observability.Metrics
	// Clock must be the same clock the signer checks expiry against.
	Clock Clock
}

// NewAuthority constructs the token authority.
func NewAuthority(deps AuthorityDependencies) *Authority {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	now := deps.Clock
	if now == nil {
		now = time.Now
	}
	return &Authority{
		signer:    deps.Signer,
		store:     deps.Store,
		lifetimes: deps.Lifetimes,
		logger:    logger,
		metrics:   deps.Metrics,
		now:       now,
	}
}

type issueOptions struct {
	context  string
	lifetime time.Duration
}

// IssueOption customizes a single issuance.
type IssueOption func(*issueOptions)

// WithContext binds extra data, such as a kiosk terminal id, into the claims.
func WithContext(value string) IssueOption {
	return func(o *issueOptions) { o.context = value }
}

// WithLifetime overrides the class default lifetime. Sub-second precision is
// dropped.
func WithLifetime(d time.Duration) IssueOption {
	return func(o *issueOptions) { o.lifetime = d }
}

// Issue signs a new token and records it as valid. No token is returned
// unless both steps succeed.
func (a *Authority) Issue(ctx context.Context, subject string, class domain.TokenClass, opts ...IssueOption) (domain.IssuedToken, error) {
	if strings.TrimSpace(subject) == "" {
		return domain.IssuedToken{}, ErrEmptySubject
	}

	var o issueOptions
	for _, opt := range opts {
		opt(&o)
	}

	lifetime, err := a.lifetimes.For(class)
	if err != nil {
		return domain.IssuedToken{}, err
	}
	if o.lifetime != 0 {
		lifetime = o.lifetime.Truncate(time.Second)
	}
	if lifetime < time.Second {
		return domain.IssuedToken{}, ErrInvalidLifetime
	}

	issuedAt := a.now().Truncate(time.Second)
	expiresAt := issuedAt.Add(lifetime)

	token, err := a.signer.Sign(NewClaims(subject, class, o.context, issuedAt, expiresAt))
	if err != nil {
		return domain.IssuedToken{}, fmt.Errorf("sign token: %w", err)
	}

	if err := a.store.Put(ctx, RevocationKey(token), domain.TokenStatusValid, lifetime); err != nil {
		a.logger.Error("revocation store write failed",
			zap.String("class", string(class)),
			zap.Error(err))
		return domain.IssuedToken{}, fmt.Errorf("%w: %v", ErrAuthorityUnavailable, err)
	}

	a.metrics.RecordTokenIssued(string(class))
	return domain.IssuedToken{
		Token:     token,
		Class:     class,
		IssuedAt:  issuedAt,
		ExpiresAt: expiresAt,
	}, nil
}

// Validate resolves the identity behind token. Both checks must pass: the
// signature and embedded expiry first, then the revocation store record.
// Any failure, including an unreachable store, is reported as ErrInvalidToken.
func (a *Authority) Validate(ctx context.Context, token string) (domain.Identity, error) {
	claims, err := a.signer.Verify(token)
	if err != nil {
		return domain.Identity{}, a.reject(err)
	}

	status, err := a.store.Get(ctx, RevocationKey(token))
	if err != nil {
		return domain.Identity{}, a.reject(fmt.Errorf("%w: %v", ErrAuthorityUnavailable, err))
	}
	if status != domain.TokenStatusValid {
		return domain.Identity{}, a.reject(fmt.Errorf("%w: store status %q", ErrRevoked, status))
	}

	a.metrics.RecordTokenValidation("ok")
	return claims.Identity(), nil
}

// Invalidate marks token as no longer valid. The signature is not checked:
// the operation can only ever turn a record invalid. Repeated calls are no-ops.
func (a *Authority) Invalidate(ctx context.Context, token string) error {
	if strings.TrimSpace(token) == "" {
		return nil
	}
	if err := a.store.Invalidate(ctx, RevocationKey(token)); err != nil {
		a.logger.Error("revocation store invalidate failed", zap.Error(err))
		return fmt.Errorf("%w: %v", ErrAuthorityUnavailable, err)
	}
	a.metrics.RecordTokenRevoked()
	return nil
}

// ExtendKioskSession mints a fresh kiosk token for the terminal. The previous
// token is left to expire on its own, so both stay valid until then.
func (a *Authority) ExtendKioskSession(ctx context.Context, subject, terminal string) (domain.IssuedToken, error) {
	return a.Issue(ctx, subject, domain.TokenClassKiosk, WithContext(terminal))
}

func (a *Authority) reject(reason error) error {
	label := rejectionReason(reason)
	if label == "unavailable" {
		a.logger.Error("token validation failed: revocation store unavailable", zap.Error(reason))
	} else {
		a.logger.Debug("token rejected", zap.String("reason", label), zap.Error(reason))
	}
	a.metrics.RecordTokenValidation(label)
	return fmt.Errorf("%w: %w", ErrInvalidToken, reason)
}
