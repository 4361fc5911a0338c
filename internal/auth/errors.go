// Package auth implements the credential lifecycle: OTP-proved
// registration and login, signed access/refresh token issuance, and
// threshold-based token revocation.
package auth

import "errors"

// Failure taxonomy. Every condition is terminal for the request and is
// translated into a status code by the HTTP layer.
var (
	ErrInvalidOTP       = errors.New("invalid otp code")
	ErrUsernameTaken    = errors.New("username already taken")
	ErrUserNotFound     = errors.New("user not found")
	ErrTokenExpired     = errors.New("token expired")
	ErrTokenMalformed   = errors.New("token malformed")
	ErrTokenBlacklisted = errors.New("token blacklisted")
)
