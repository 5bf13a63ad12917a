package users

// CreateUserPayload represents the request body for creating a user.
type CreateUserPayload struct {
	Email      string `json:"email" mod:"trim" validate:"required,email"`
	FirstName  string `json:"first_name" mod:"trim" validate:"required,max=20"`
	MiddleName string `json:"middle_name" mod:"trim" validate:"max=20"`
	LastName   string `json:"last_name" mod:"trim" validate:"required,max=20"`
	Password   string `json:"password" validate:"required,min=8"`
	Role       int    `json:"role" validate:"oneof=0 1"`
}

// UpdateUserPayload represents the request body for updating a user.
type UpdateUserPayload struct {
	Email      *string `json:"email,omitempty" mod:"trim" validate:"omitempty,email"`
	FirstName  *string `json:"first_name,omitempty" mod:"trim" validate:"omitempty,min=1,max=20"`
	MiddleName *string `json:"middle_name,omitempty" mod:"trim" validate:"omitempty,max=20"`
	LastName   *string `json:"last_name,omitempty" mod:"trim" validate:"omitempty,min=1,max=20"`
	Role       *int    `json:"role,omitempty" validate:"omitempty,oneof=0 1"`
	IsActive   *bool   `json:"is_active,omitempty"`
}

// ResetPasswordPayload represents the request body for resetting a password.
type ResetPasswordPayload struct {
	CurrentPassword *string `json:"current_password"` // Required when resetting your own password
	NewPassword     string  `json:"new_password" validate:"required,min=8"`
}

// ListUsersQuery represents the query parameters for listing users.
type ListUsersQuery struct {
	Limit  *int `query:"limit" json:"limit,omitempty" validate:"omitempty,min=1,max=500"`
	Offset *int `query:"offset" json:"offset,omitempty" validate:"omitempty,min=0"`
	Role   *int `query:"role" json:"role,omitempty" validate:"omitempty,oneof=0 1"`
}
