package dto

import "time"

// UserCreateDTO is the request body for registering the caller's profile.
type UserCreateDTO struct {
	Name  string `json:"name" validate:"max=100"`
	Email string `json:"email" validate:"required,email"`
}

// UserResponseDTO is the response body for user endpoints.
type UserResponseDTO struct {
	UserID    string    `json:"user_id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
}
