package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// ErrPhoneExists is returned when registration hits the unique phone index.
var ErrPhoneExists = errors.New("phone number already registered")

// Role is the marketplace role a user registered with.
type Role string

const (
	RoleRider  Role = "rider"
	RoleDriver Role = "driver"
)

// User is an authenticated identity. Token balances live on the Account row,
// created together with the user at registration.
type User struct {
	ID           uuid.UUID `json:"id"`
	Phone        string    `json:"phone"`
	PasswordHash string    `json:"-"`
	Role         Role      `json:"role"`
	CreatedAt    time.Time `json:"created_at"`
}
