package dto

import (
	"time"

	"github.com/coffeeshop/account-service/app/models"
)

// UserResponse represents user data in API responses (excludes sensitive fields)
type UserResponse struct {
	ID         int64   `json:"id"`
	Email      string  `json:"email"`
	FirstName  *string `json:"first_name"`
	LastName   *string `json:"last_name"`
	Role       string  `json:"role"`
	IsVerified bool    `json:"is_verified"`
	CreatedAt  string  `json:"created_at"`
	UpdatedAt  string  `json:"updated_at"`
}

// NewUserResponse maps a user record to its API representation
func NewUserResponse(u *models.User) UserResponse {
	return UserResponse{
		ID:         u.ID,
		Email:      u.Email,
		FirstName:  u.FirstName,
		LastName:   u.LastName,
		Role:       u.Role,
		IsVerified: u.IsVerified,
		CreatedAt:  u.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:  u.UpdatedAt.UTC().Format(time.RFC3339),
	}
}

// TokenResponse represents the response after successful authentication
type TokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
}

// RefreshResponse carries the new access token after a refresh
type RefreshResponse struct {
	AccessToken string `json:"access_token"`
}

// DetailResponse is a plain human-readable result message
type DetailResponse struct {
	Detail string `json:"detail"`
}

// PaginationLinks carries next/previous page links and the total count
type PaginationLinks struct {
	Next     *string `json:"next"`
	Previous *string `json:"previous"`
	Count    int     `json:"count"`
}

// UserListResponse is one page of users plus pagination links
type UserListResponse struct {
	Items []UserResponse  `json:"items"`
	Links PaginationLinks `json:"links"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details string `json:"details,omitempty"`
}
