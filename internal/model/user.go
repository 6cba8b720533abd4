package model

import "github.com/google/uuid"

// User is the lookup-only projection used to resolve sender display names.
type User struct {
	ID       uuid.UUID `json:"id" db:"id"`
	Username string    `json:"username" db:"username"`
	Email    string    `json:"email" db:"email"`
}
