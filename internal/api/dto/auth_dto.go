package dto

import "time"

// VerificationRequest starts SMS verification for a prospective user.
type VerificationRequest struct {
	Name           string `json:"name"`
	IDNumberFront  string `json:"id_number_front"`
	IDNumberGender string `json:"id_number_gender"`
	PhoneNumber    string `json:"phone_number"`
}

// VerificationResponse identifies the pending code.
type VerificationResponse struct {
	VerificationID string `json:"verification_id"`
	ExpiresIn      int64  `json:"expires_in"`
}

// VerificationConfirmRequest completes registration with the SMS code.
type VerificationConfirmRequest struct {
	VerificationID string `json:"verification_id"`
	Code           string `json:"code"`
	Name           string `json:"name"`
	IDNumberFront  string `json:"id_number_front"`
	IDNumberGender string `json:"id_number_gender"`
	PhoneNumber    string `json:"phone_number"`
	Password       string `json:"password"`
}

// RefreshRequest trades a refresh token for a new access token.
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// KioskPhoneLoginRequest payload for kiosk login.
type KioskPhoneLoginRequest struct {
	PhoneNumber string `json:"phone_number"`
	KioskID     string `json:"kiosk_id"`
}

// KioskExtendRequest optionally moves the session to another terminal.
type KioskExtendRequest struct {
	KioskID string `json:"kiosk_id"`
}

// AdminLoginRequest payload for admin login.
type AdminLoginRequest struct {
	ID       string `json:"id"`
	Password string `json:"password"`
}

// AdminRegisterRequest payload for admin registration.
type AdminRegisterRequest struct {
	ID       string `json:"id"`
	Password string `json:"password"`
	StoreID  int64  `json:"store_id"`
}

// TokenResponse describes one issued token.
type TokenResponse struct {
	Token     string    `json:"token"`
	Type      string    `json:"type"`
	ExpiresIn int64     `json:"expires_in"`
	ExpiresAt time.Time `json:"expires_at"`
}

// SessionResponse is an access token paired with its refresh token.
type SessionResponse struct {
	Access  TokenResponse `json:"access"`
	Refresh TokenResponse `json:"refresh"`
}

// UserResponse is the public view of a user.
type UserResponse struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	PhoneNumber string    `json:"phone_number"`
	BirthDate   string    `json:"birth_date"`
	Gender      string    `json:"gender"`
	CreatedAt   time.Time `json:"created_at"`
}

// AdminResponse is the public view of an administrator.
type AdminResponse struct {
	ID        string    `json:"id"`
	StoreID   int64     `json:"store_id"`
	CreatedAt time.Time `json:"created_at"`
}
