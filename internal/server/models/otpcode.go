package models

import "time"

// OTPPurpose enumerates what a one-time code proves.
type OTPPurpose string

const (
	OTPPurposeRegistration OTPPurpose = "REGISTRATION"
	// Reserved; no flow issues these yet.
	OTPPurposePasswordReset OTPPurpose = "PASSWORD_RESET"
	OTPPurposeLogin         OTPPurpose = "LOGIN"
)

// OTPCode is a row of the otp_codes table.
type OTPCode struct {
	ID        int64      `db:"id"`
	UserID    int64      `db:"user_id"`
	Email     string     `db:"email"`
	Code      string     `db:"otp_code"`
	Purpose   OTPPurpose `db:"purpose"`
	IsUsed    bool       `db:"is_used"`
	ExpiresAt time.Time  `db:"expires_at"`
	CreatedAt time.Time  `db:"created_at"`
}

// Usable reports whether the code can still be consumed at now.
func (o *OTPCode) Usable(now time.Time) bool {
	return !o.IsUsed && o.Purpose == OTPPurposeRegistration && now.Before(o.ExpiresAt)
}
