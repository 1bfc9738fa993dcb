package events

import (
	"time"

	"github.com/spec-kit/orderme/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventVerificationRequested EventType = "verification_requested"
	EventUserRegistered        EventType = "user_registered"
	EventAdminRegistered       EventType = "admin_registered"
	EventTokenRevoked          EventType = "token_revoked"
)

// Event represents a domain event emitted by services.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	SubjectID string      `json:"subject_id,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// VerificationRequestedPayload carries the code to deliver by SMS.
type VerificationRequestedPayload struct {
	VerificationID string `json:"verification_id"`
	PhoneNumber    string `json:"phone_number"`
	Code           string `json:"-"`
}

// UserRegisteredPayload payload.
type UserRegisteredPayload struct {
	Name        string `json:"name"`
	PhoneNumber string `json:"phone_number"`
}

// AdminRegisteredPayload payload.
type AdminRegisteredPayload struct {
	StoreID int64 `json:"store_id"`
}

// TokenRevokedPayload payload.
type TokenRevokedPayload struct {
	Class domain.TokenClass `json:"class"`
}
