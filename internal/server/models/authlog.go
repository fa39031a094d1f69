package models

import "time"

// AuthAction names an audited authentication event.
type AuthAction string

const (
	AuthActionRegister  AuthAction = "REGISTER"
	AuthActionLogin     AuthAction = "LOGIN"
	AuthActionLogout    AuthAction = "LOGOUT"
	AuthActionOTPVerify AuthAction = "OTP_VERIFY"
)

// AuthStatus is the outcome of an audited event.
type AuthStatus string

const (
	AuthStatusSuccess AuthStatus = "SUCCESS"
	AuthStatusFailure AuthStatus = "FAILURE"
)

// AuthLog is an append-only row of the auth_logs table.
type AuthLog struct {
	ID        int64      `db:"id" json:"id,omitempty"`
	UserID    *int64     `db:"user_id" json:"user_id,omitempty"`
	Action    AuthAction `db:"action" json:"action"`
	Status    AuthStatus `db:"status" json:"status"`
	IPAddress string     `db:"ip_address" json:"ip_address"`
	UserAgent string     `db:"user_agent" json:"user_agent"`
	CreatedAt time.Time  `db:"created_at" json:"created_at"`
}
