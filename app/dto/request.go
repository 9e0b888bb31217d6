package dto

// SignupRequest represents the data needed to register a new user. The
// password must be typed twice and both copies must match.
type SignupRequest struct {
	Email           string  `json:"email" validate:"required,email,max=255"`
	Password        string  `json:"password" validate:"required,min=6,max=128"`
	PasswordConfirm string  `json:"password_confirm" validate:"required,eqfield=Password"`
	FirstName       *string `json:"first_name" validate:"omitempty,max=100"`
	LastName        *string `json:"last_name" validate:"omitempty,max=100"`
}

// LoginRequest represents the data needed to login
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email,max=255"`
	Password string `json:"password" validate:"required,max=128"`
}

// RefreshRequest carries a refresh token to exchange for a new access token
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

// ConfirmRequest carries an email confirmation code
type ConfirmRequest struct {
	Email string `json:"email" validate:"required,email,max=255"`
	Code  int    `json:"code" validate:"required,min=1000,max=9999"`
}

// ResendRequest asks for a fresh confirmation code
type ResendRequest struct {
	Email string `json:"email" validate:"required,email,max=255"`
}

// UserUpdateRequest is a partial update of the caller's own record.
// Only non-nil fields are applied.
type UserUpdateRequest struct {
	FirstName *string `json:"first_name" validate:"omitempty,max=100"`
	LastName  *string `json:"last_name" validate:"omitempty,max=100"`
}
