package models

import "time"

// ConfirmationCode is the single live confirmation record for an email.
// At most one row exists per email; it is deleted on successful verification.
// Counters and lock windows are interpreted by services.ConfirmationService.
type ConfirmationCode struct {
	ID          int64
	Email       string
	Code        int
	TryCount    int
	ResendCount int

	// ExpireTime is when the current code stops being accepted.
	ExpireTime *time.Time
	// UnlockTime, while set, blocks verification attempts.
	UnlockTime *time.Time
	// ResendUnlockTime, while set, blocks issuing a new code.
	ResendUnlockTime *time.Time
}
