package services

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/coffeeshop/account-service/app/dto"
	appErrors "github.com/coffeeshop/account-service/app/errors"
	"github.com/coffeeshop/account-service/app/models"
	"github.com/coffeeshop/account-service/app/store"
)

// MinPasswordLength is the password policy floor, re-checked here even though
// the handler layer validates, so the rule holds for every caller.
const MinPasswordLength = 6

// UnverifiedRetention is how long an unverified account survives before the
// sweep deletes it.
const UnverifiedRetention = 48 * time.Hour

// UserService orchestrates registration, login, confirmation and CRUD over
// user records.
type UserService struct {
	store         store.Storage
	confirmations *ConfirmationService
	tokens        *TokenService
}

func NewUserService(st store.Storage, confirmations *ConfirmationService, tokens *TokenService) *UserService {
	return &UserService{
		store:         st,
		confirmations: confirmations,
		tokens:        tokens,
	}
}

// Register creates an unverified user and triggers confirmation-code
// issuance. Issuance or delivery failure is logged but does not roll back
// the created user.
func (s *UserService) Register(ctx context.Context, req dto.SignupRequest) (*models.User, *appErrors.AppError) {
	existing, err := s.store.Users.GetByEmail(ctx, req.Email)
	if err == nil && existing != nil {
		return nil, appErrors.NewConflict("user with this email already exists")
	}
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.NewInternal("database error while checking email")
	}

	if len(req.Password) < MinPasswordLength {
		return nil, appErrors.NewValidation("password must be at least 6 characters long")
	}

	passwordHash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, appErrors.NewInternal("error hashing password")
	}

	user := &models.User{
		Email:        req.Email,
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		PasswordHash: string(passwordHash),
		Role:         models.RoleUser,
		IsVerified:   false,
	}
	if err := s.store.Users.Create(ctx, user); err != nil {
		return nil, appErrors.NewInternal("error creating user")
	}

	if appErr := s.confirmations.SendConfirm(ctx, user.Email); appErr != nil {
		log := getLoggerFromContext(ctx)
		log.Error().
			Err(appErr).
			Int64("user_id", user.ID).
			Str("email", user.Email).
			Msg("failed to issue confirmation code after registration")
	}

	return user, nil
}

// Authenticate checks credentials and returns an access/refresh token pair.
// Unknown email, wrong password and unverified account all surface as the
// same unauthorized error so account state is not leaked.
func (s *UserService) Authenticate(ctx context.Context, email, password string) (*dto.TokenResponse, *appErrors.AppError) {
	user, err := s.store.Users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.NewUnauthorized("invalid email or password")
		}
		return nil, appErrors.NewInternal("error getting user by email")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, appErrors.NewUnauthorized("invalid email or password")
	}
	if !user.IsVerified {
		return nil, appErrors.NewUnauthorized("invalid email or password")
	}

	accessToken, err := s.tokens.IssueAccess(user.ID)
	if err != nil {
		return nil, appErrors.NewInternal("error generating access token")
	}
	refreshToken, err := s.tokens.IssueRefresh(user.ID)
	if err != nil {
		return nil, appErrors.NewInternal("error generating refresh token")
	}

	return &dto.TokenResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		TokenType:    "bearer",
	}, nil
}

// Refresh verifies a refresh token, confirms the subject still exists and
// issues a new access token. The refresh token itself is not rotated.
func (s *UserService) Refresh(ctx context.Context, refreshToken string) (*dto.RefreshResponse, *appErrors.AppError) {
	claims, err := s.tokens.VerifyRefresh(refreshToken)
	if err != nil {
		return nil, appErrors.NewUnauthorized("invalid refresh token")
	}

	user, err := s.store.Users.GetByID(ctx, claims.SubjectID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.NewUnauthorized("invalid refresh token")
		}
		return nil, appErrors.NewInternal("error loading user")
	}

	accessToken, err := s.tokens.IssueAccess(user.ID)
	if err != nil {
		return nil, appErrors.NewInternal("error generating access token")
	}
	return &dto.RefreshResponse{AccessToken: accessToken}, nil
}

// Confirm validates a submitted code and marks the user verified. An already
// verified user is a no-op success.
func (s *UserService) Confirm(ctx context.Context, email string, code int) *appErrors.AppError {
	user, err := s.store.Users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.NewNotFound("user")
		}
		return appErrors.NewInternal("error getting user by email")
	}

	if user.IsVerified {
		return nil
	}

	if appErr := s.confirmations.VerifyCode(ctx, email, code); appErr != nil {
		return appErr
	}

	user.IsVerified = true
	if err := s.store.Users.Update(ctx, user); err != nil {
		return appErrors.NewInternal("failed to mark user as verified")
	}
	return nil
}

// Resend re-issues a confirmation code. Absent or already verified users are
// a silent no-op so the endpoint does not reveal account state.
func (s *UserService) Resend(ctx context.Context, email string) *appErrors.AppError {
	user, err := s.store.Users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil
		}
		return appErrors.NewInternal("error getting user by email")
	}
	if user.IsVerified {
		return nil
	}
	return s.confirmations.SendConfirm(ctx, email)
}

// GetByID loads one user record.
func (s *UserService) GetByID(ctx context.Context, id int64) (*models.User, *appErrors.AppError) {
	user, err := s.store.Users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.NewNotFound("user")
		}
		return nil, appErrors.NewInternal("error loading user")
	}
	return user, nil
}

// List returns one page of users plus the total count.
func (s *UserService) List(ctx context.Context, limit, offset int) ([]models.User, int, *appErrors.AppError) {
	total, err := s.store.Users.Count(ctx)
	if err != nil {
		return nil, 0, appErrors.NewInternal("error counting users")
	}
	users, err := s.store.Users.List(ctx, limit, offset)
	if err != nil {
		return nil, 0, appErrors.NewInternal("error listing users")
	}
	return users, total, nil
}

// Update applies the non-nil fields of the patch to a user record.
func (s *UserService) Update(ctx context.Context, id int64, req dto.UserUpdateRequest) (*models.User, *appErrors.AppError) {
	user, appErr := s.GetByID(ctx, id)
	if appErr != nil {
		return nil, appErr
	}

	if req.FirstName != nil {
		user.FirstName = req.FirstName
	}
	if req.LastName != nil {
		user.LastName = req.LastName
	}

	if err := s.store.Users.Update(ctx, user); err != nil {
		return nil, appErrors.NewInternal("error updating user")
	}
	return user, nil
}

// Delete hard-deletes a user record.
func (s *UserService) Delete(ctx context.Context, id int64) *appErrors.AppError {
	if _, appErr := s.GetByID(ctx, id); appErr != nil {
		return appErr
	}
	if err := s.store.Users.Delete(ctx, id); err != nil {
		return appErrors.NewInternal("error deleting user")
	}
	return nil
}

// SweepUnverified hard-deletes unverified users older than the retention
// window and returns how many were removed. Runs off the request path.
func (s *UserService) SweepUnverified(ctx context.Context, olderThan time.Duration) (int, *appErrors.AppError) {
	cutoff := time.Now().Add(-olderThan)
	ids, err := s.store.Users.DeleteUnverifiedBefore(ctx, cutoff)
	if err != nil {
		return 0, appErrors.NewInternal("error sweeping unverified users")
	}

	log := getLoggerFromContext(ctx)
	if len(ids) > 0 {
		log.Info().Ints64("user_ids", ids).Msg("deleted old unverified users")
	} else {
		log.Debug().Msg("no old unverified users found")
	}
	return len(ids), nil
}
