package errors

import (
	"errors"
	"fmt"
)

// Common error types for the session client
var (
	// Token exchange errors
	ErrMissingAccessToken = errors.New("token response missing access_token")
	ErrNoAccessToken      = errors.New("no access token stored")
	ErrNoRefreshToken     = errors.New("no refresh token stored")

	// Login orchestration errors
	ErrLoginInFlight = errors.New("login already in progress")

	// User info errors
	ErrEmptyUserInfo = errors.New("empty user info payload")
)

// Wrapf wraps an error with context using fmt.Errorf
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf(format+": %w", append(args, err)...)
}

// Is reports whether any error in err's chain matches target
func Is(err, target error) bool {
	return errors.Is(err, target)
}
