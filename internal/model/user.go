package model

import (
	"time"

	"github.com/google/uuid"
)

// UserRole enumerates account roles.
type UserRole string

const (
	RoleLearner UserRole = "learner"
	RoleAuthor  UserRole = "author"
	RoleAdmin   UserRole = "admin"
)

// User is a platform account (learner, content author or admin).
type User struct {
	ID           uuid.UUID `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Role         UserRole  `json:"role"`
	CreatedAt    time.Time `json:"created_at"`
}

// LoginRequest is the payload for authenticating a user.
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=6,max=128"`
}

// RegisterRequest is the payload for creating a learner account.
type RegisterRequest struct {
	Name     string `json:"name" binding:"required,min=2,max=255"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=6,max=128"`
}
