package models

import (
	"time"

	"github.com/google/uuid"
)

// Role names carried in access tokens
const (
	RoleUser  = "USER"
	RoleOwner = "OWNER"
	RoleAdmin = "ADMIN"
)

// User is the subset of the account record needed for checkout prefill
type User struct {
	ID        uuid.UUID `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	Email     string    `json:"email" db:"email"`
	Mobile    *string   `json:"mobile,omitempty" db:"mobile"`
	Role      string    `json:"role" db:"role"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// MobileValue returns the mobile number or an empty string
func (u *User) MobileValue() string {
	if u.Mobile == nil {
		return ""
	}
	return *u.Mobile
}
