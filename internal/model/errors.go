package model

import (
	"errors"
	"time"
)

// Common errors used across the application
var (
	// Account errors
	ErrAccountNotFound = errors.New("account not found")
	ErrTokenNotFound   = errors.New("token not found or expired")

	// Session errors
	ErrSessionNotFound = errors.New("session not found")
	ErrClientClosed    = errors.New("client connection closed")
	ErrSendBufferFull  = errors.New("client send buffer full")

	// Roster errors
	ErrAlreadyInRoster  = errors.New("session already has a roster entry")
	ErrDuplicateAccount = errors.New("account already has a live roster entry")
)

// RegisterErrorCode identifies why a registration was refused
type RegisterErrorCode string

const (
	RegisterAuthError        RegisterErrorCode = "auth_error"
	RegisterBanned           RegisterErrorCode = "banned"
	RegisterKicked           RegisterErrorCode = "kicked"
	RegisterInvalidCharacter RegisterErrorCode = "invalid_character"
	RegisterNotOnWhitelist   RegisterErrorCode = "not_on_whitelist"
	RegisterTooManyPlayers   RegisterErrorCode = "too_many_players"
)

// RegisterError is the client-visible reason a registration failed.
// errors.Is matches on Code only.
type RegisterError struct {
	Code        RegisterErrorCode `json:"code"`
	Message     string            `json:"message,omitempty"`
	BannedUntil *time.Time        `json:"banned_until,omitempty"`
}

func (e *RegisterError) Error() string {
	if e.Message == "" {
		return "register: " + string(e.Code)
	}
	return "register: " + string(e.Code) + ": " + e.Message
}

// Is reports whether target is a RegisterError with the same code
func (e *RegisterError) Is(target error) bool {
	t, ok := target.(*RegisterError)
	return ok && t.Code == e.Code
}

// Register error sentinels, for use with errors.Is
var (
	ErrAuth             = &RegisterError{Code: RegisterAuthError}
	ErrBanned           = &RegisterError{Code: RegisterBanned}
	ErrKicked           = &RegisterError{Code: RegisterKicked}
	ErrInvalidCharacter = &RegisterError{Code: RegisterInvalidCharacter}
	ErrNotOnWhitelist   = &RegisterError{Code: RegisterNotOnWhitelist}
	ErrTooManyPlayers   = &RegisterError{Code: RegisterTooManyPlayers}
)

// NewAuthError creates an authentication failure with the authenticator's reason
func NewAuthError(message string) *RegisterError {
	return &RegisterError{Code: RegisterAuthError, Message: message}
}

// NewBannedError creates a ban refusal; until is nil for permanent bans
func NewBannedError(reason string, until *time.Time) *RegisterError {
	return &RegisterError{Code: RegisterBanned, Message: reason, BannedUntil: until}
}

// AsRegisterError converts any error into the form reported to clients.
// Errors that are not RegisterErrors are reported as auth errors.
func AsRegisterError(err error) *RegisterError {
	var re *RegisterError
	if errors.As(err, &re) {
		return re
	}
	return NewAuthError(err.Error())
}
