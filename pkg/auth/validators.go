package auth

import "github.com/lendshelf/lendshelf/pkg/models"

// LoginPayload represents the login request body.
type LoginPayload struct {
	Email    string `json:"email" mod:"trim" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
}

// SetupPayload represents the initial setup request body.
type SetupPayload struct {
	Email      string `json:"email" mod:"trim" validate:"required,email"`
	FirstName  string `json:"first_name" mod:"trim" validate:"required,max=20"`
	MiddleName string `json:"middle_name" mod:"trim" validate:"max=20"`
	LastName   string `json:"last_name" mod:"trim" validate:"required,max=20"`
	Password   string `json:"password" validate:"required,min=8"`
}

// StatusResponse represents the auth status response.
type StatusResponse struct {
	NeedsSetup bool `json:"needs_setup"`
}

// MeResponse represents the current user response.
type MeResponse struct {
	*models.User
	IsLibrarian bool `json:"is_librarian"`
}
