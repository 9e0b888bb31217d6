package services

import (
	"context"
	"crypto/rand"
	"database/sql"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/rs/zerolog"

	appErrors "github.com/coffeeshop/account-service/app/errors"
	"github.com/coffeeshop/account-service/app/logger"
	"github.com/coffeeshop/account-service/app/models"
	"github.com/coffeeshop/account-service/app/store"
)

// Lifecycle constants for confirmation codes. Counters reset only when a
// threshold is crossed, not per calendar window, so abuse is bounded by total
// attempts since the last reset.
const (
	CodeExpiry        = 120 * time.Second
	ResendBlockWindow = 10 * time.Minute
	TryBlockWindow    = 2 * time.Minute
	MaxResends        = 5
	MaxTries          = 10
)

// debugCode is issued instead of a random code when debug mode is on, so
// local flows are reproducible.
const debugCode = 1111

// ConfirmationService gates issuance and verification of one-time email
// codes, enforcing the resend and retry lockout windows.
type ConfirmationService struct {
	store     store.Storage
	publisher EventPublisher
	debug     bool
}

func NewConfirmationService(st store.Storage, publisher EventPublisher, debug bool) *ConfirmationService {
	return &ConfirmationService{
		store:     st,
		publisher: publisher,
		debug:     debug,
	}
}

// Interval formats the time remaining until t as mm:ss, floored at 00:00.
func Interval(t time.Time) string {
	total := int(time.Until(t).Seconds())
	if total < 0 {
		total = 0
	}
	return fmt.Sprintf("%02d:%02d", total/60, total%60)
}

// syncLimits normalizes counters and lock windows on a record and persists
// the result. It is idempotent and must run before every limiter decision so
// stale locks expire deterministically: threshold crossings apply their lock
// first, then any lock already in the past is cleared.
func (s *ConfirmationService) syncLimits(ctx context.Context, rec *models.ConfirmationCode) error {
	now := time.Now()

	if rec.ResendCount >= MaxResends {
		rec.TryCount = 0
		rec.ResendCount = 0
		t := now.Add(ResendBlockWindow)
		rec.ResendUnlockTime = &t
	} else if rec.TryCount >= MaxTries {
		rec.TryCount = 0
		t := now.Add(TryBlockWindow)
		rec.UnlockTime = &t
	}

	if rec.ResendUnlockTime != nil && rec.ResendUnlockTime.Before(now) {
		rec.ResendUnlockTime = nil
	}
	if rec.UnlockTime != nil && rec.UnlockTime.Before(now) {
		rec.UnlockTime = nil
	}

	return s.store.Confirmations.Update(ctx, rec)
}

// getOrCreate loads the live record for email, creating one with the given
// code if none exists.
func (s *ConfirmationService) getOrCreate(ctx context.Context, email string, code int) (*models.ConfirmationCode, error) {
	rec, err := s.store.Confirmations.GetByEmail(ctx, email)
	if err == nil {
		return rec, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}

	rec = &models.ConfirmationCode{Email: email, Code: code}
	if err := s.store.Confirmations.Create(ctx, rec); err != nil {
		return nil, err
	}
	return rec, nil
}

// PrepareAndSaveCode stores a fresh code for email, enforcing the resend
// lockout. On success the try counter is reset, the resend counter is
// incremented and both expire_time and resend_unlock_time are set to the
// 120s code expiry. The 10-minute resend block only engages once the resend
// counter crosses its threshold in syncLimits.
func (s *ConfirmationService) PrepareAndSaveCode(ctx context.Context, email string, code int) *appErrors.AppError {
	rec, err := s.getOrCreate(ctx, email, code)
	if err != nil {
		return appErrors.NewInternal("failed to load confirmation record")
	}

	if err := s.syncLimits(ctx, rec); err != nil {
		return appErrors.NewInternal("failed to sync confirmation limits")
	}

	if rec.ResendUnlockTime != nil {
		return appErrors.NewRateLimited("resend blocked, try again in " + Interval(*rec.ResendUnlockTime))
	}

	now := time.Now()
	expire := now.Add(CodeExpiry)
	resendUnlock := now.Add(CodeExpiry)

	rec.Code = code
	rec.TryCount = 0
	rec.ResendCount++
	rec.ExpireTime = &expire
	rec.ResendUnlockTime = &resendUnlock

	if err := s.store.Confirmations.Update(ctx, rec); err != nil {
		return appErrors.NewInternal("failed to save confirmation code")
	}
	return nil
}

// VerifyCode checks a submitted code against the live record for email. A
// match deletes the record (one-shot); a mismatch bumps the try counter.
func (s *ConfirmationService) VerifyCode(ctx context.Context, email string, code int) *appErrors.AppError {
	rec, err := s.store.Confirmations.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.NewValidation("invalid confirmation code")
		}
		return appErrors.NewInternal("failed to load confirmation record")
	}

	if err := s.syncLimits(ctx, rec); err != nil {
		return appErrors.NewInternal("failed to sync confirmation limits")
	}

	if rec.ExpireTime != nil && rec.ExpireTime.Before(time.Now()) {
		return appErrors.NewValidation("confirmation code expired")
	}

	if rec.UnlockTime != nil {
		return appErrors.NewRateLimited("try again in " + Interval(*rec.UnlockTime))
	}

	if rec.Code == code {
		if err := s.store.Confirmations.Delete(ctx, rec.ID); err != nil {
			return appErrors.NewInternal("failed to clear confirmation record")
		}
		return nil
	}

	rec.TryCount++
	if err := s.store.Confirmations.Update(ctx, rec); err != nil {
		return appErrors.NewInternal("failed to record failed attempt")
	}
	return appErrors.NewValidation("invalid confirmation code")
}

// SendConfirm issues a new code for email and hands delivery off to the
// worker queue. A broker failure is logged but does not fail the caller; a
// limiter rejection does.
func (s *ConfirmationService) SendConfirm(ctx context.Context, email string) *appErrors.AppError {
	code := debugCode
	if !s.debug {
		c, err := randomCode()
		if err != nil {
			return appErrors.NewInternal("failed to generate confirmation code")
		}
		code = c
	}

	if appErr := s.PrepareAndSaveCode(ctx, email, code); appErr != nil {
		return appErr
	}

	if s.publisher != nil {
		if err := s.publisher.PublishConfirmationEmail(ctx, email, code); err != nil {
			log := getLoggerFromContext(ctx)
			log.Error().
				Err(err).
				Str("email", email).
				Msg("failed to publish confirmation email event")
		}
	}
	return nil
}

// randomCode returns a crypto-random 4-digit code in [1000, 9999].
func randomCode() (int, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(9000))
	if err != nil {
		return 0, err
	}
	return int(n.Int64()) + 1000, nil
}

// getLoggerFromContext retrieves logger from context or returns global logger
func getLoggerFromContext(ctx context.Context) zerolog.Logger {
	if log := zerolog.Ctx(ctx); log.GetLevel() != zerolog.Disabled {
		return *log
	}
	return logger.Logger
}
