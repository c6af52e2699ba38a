package domain

import (
	"time"

	"github.com/google/uuid"
)

// AdminStatus represents the state of an administrator account.
type AdminStatus string

const (
	AdminStatusActive    AdminStatus = "ACTIVE"
	AdminStatusSuspended AdminStatus = "SUSPENDED"
)

// AdminUser is an operator of the management API.
type AdminUser struct {
	ID           uuid.UUID   `json:"id"`
	Username     string      `json:"username"`
	PasswordHash string      `json:"-"` // Never expose
	Status       AdminStatus `json:"status"`
	CreatedAt    time.Time   `json:"created_at"`
	UpdatedAt    time.Time   `json:"updated_at"`
}

// IsActive returns true if the admin account is active.
func (a *AdminUser) IsActive() bool {
	return a.Status == AdminStatusActive
}
