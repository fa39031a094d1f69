// Package common defines shared constants and sentinel errors used across
// the server layers. Callers should use errors.Is to match these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound = errors.New("not found")

	// Service-level errors (generic/internal flow control).
	ErrorInternal    = errors.New("internal error")
	ErrInvalidInput  = errors.New("invalid input")
	ErrConfiguration = errors.New("configuration error")

	// Registration and login errors.
	ErrDuplicateIdentity  = errors.New("email or username already exists")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidOrExpired   = errors.New("invalid or expired verification code")
	ErrDeliveryFailed     = errors.New("failed to send verification email")

	// Session errors.
	ErrInvalidToken    = errors.New("invalid token")
	ErrTokenExpired    = errors.New("token expired")
	ErrUnauthenticated = errors.New("not authenticated")
	ErrInvalidSession  = errors.New("invalid session")

	// Analysis pipeline errors.
	ErrNoImage         = errors.New("no image provided")
	ErrImageTooLarge   = errors.New("image too large")
	ErrNotMedicalImage = errors.New("image is not an x-ray or ct scan")
	ErrNoContent       = errors.New("no analysis content received")
	ErrUpstreamFailure = errors.New("vision model call failed")
)
