package domain

import "time"

// Role names seeded by migration.
const (
	RoleAdmin = "Admin"
	RoleUser  = "User"
)

type Role struct {
	ID          string
	Name        string
	Description string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
