package auth

import (
	"fmt"
	"time"

	"github.com/spec-kit/orderme/internal/config"
	"github.com/spec-kit/orderme/internal/domain"
)

// Lifetimes maps each token class to its default validity window. It is
// built once at startup and never mutated.
type Lifetimes struct {
	App     time.Duration
	Kiosk   time.Duration
	Refresh time.Duration
	Admin   time.Duration
}

// DefaultLifetimes returns the stock policy.
func DefaultLifetimes() Lifetimes {
	return Lifetimes{
		App:     30 * 24 * time.Hour,
		Kiosk:   60 * time.Second,
		Refresh: 60 * 24 * time.Hour,
		Admin:   24 * time.Hour,
	}
}

// LifetimesFromConfig reads the class lifetimes from auth configuration.
func LifetimesFromConfig(cfg config.AuthConfig) Lifetimes {
	return Lifetimes{
		App:     time.Duration(cfg.AppTokenTTLSeconds) * time.Second,
		Kiosk:   time.Duration(cfg.KioskTokenTTLSeconds) * time.Second,
		Refresh: time.Duration(cfg.RefreshTokenTTLSeconds) * time.Second,
		Admin:   time.Duration(cfg.AdminTokenTTLSeconds) * time.Second,
	}
}

// For returns the default lifetime of class.
func (l Lifetimes) For(class domain.TokenClass) (time.Duration, error) {
	switch class {
	case domain.TokenClassApp:
		return l.App, nil
	case domain.TokenClassKiosk:
		return l.Kiosk, nil
	case domain.TokenClassRefresh:
		return l.Refresh, nil
	case domain.TokenClassAdmin:
		return l.Admin, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownTokenClass, class)
}
