package domain

import "time"

// Admin is a store administrator account.
type Admin struct {
	ID           string
	PasswordHash string
	StoreID      int64
	CreatedAt    time.Time
}
