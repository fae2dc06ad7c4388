package domain

import "errors"

// Sentinel errors used throughout the application.
// Handlers translate these to HTTP status codes via a single mapError function.
var (
	ErrNotFound         = errors.New("not found")
	ErrAlreadyProcessed = errors.New("notification has already been processed")
	ErrNotFailed        = errors.New("only failed notifications can be requeued")
	ErrInvalidRecipient = errors.New("email must be a valid address")
	ErrInvalidUserID    = errors.New("user_id must be a UUID")
	ErrInvalidCounter   = errors.New("pulse_level and active_users must not be negative")
	ErrConfigMissing    = errors.New("app config value is missing")
)
