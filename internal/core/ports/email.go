package ports

import "context"

// EmailService dispatches verification code emails. A nil error means the
// message was accepted for delivery; there is no retry on failure.
type EmailService interface {
	SendVerificationCode(ctx context.Context, email, code string) error
}
