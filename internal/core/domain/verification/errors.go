package verification

import "errors"

// Terminal failure modes of a verification session. Every one of these ends
// the current session; none of them is retried.
var (
	ErrSessionAlreadyActive    = errors.New("verification session already active")
	ErrInsufficientPermissions = errors.New("bot is missing required permissions")
	ErrAlreadyVerified         = errors.New("user is already verified")
	ErrResponseTimeout         = errors.New("timed out waiting for a response")
	ErrDomainNotAllowed        = errors.New("email domain is not allowed")
	ErrEmailDeliveryFailed     = errors.New("failed to deliver verification email")
	ErrInvalidCode             = errors.New("verification code is invalid")
	ErrRoleAssignmentFailed    = errors.New("failed to assign verified role")
	ErrRoleCreationFailed      = errors.New("failed to create verified role")
	ErrExternalService         = errors.New("external service call failed")
)
