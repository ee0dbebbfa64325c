package mail

import (
	"context"
	"errors"

	"github.com/hrdesk/notify-service/internal/model"
)

// Sender performs the notification side effect. Implementations must wrap
// failures that redelivery cannot fix (bad recipient, unrenderable payload)
// in PermanentError; everything else is treated as retryable.
type Sender interface {
	Send(ctx context.Context, recipient string, vars model.WelcomePayload) error
}

// PermanentError marks a send failure that must not be redelivered.
type PermanentError struct {
	Err error
}

func (e *PermanentError) Error() string { return "permanent: " + e.Err.Error() }

func (e *PermanentError) Unwrap() error { return e.Err }

// Permanent wraps err as non-retryable.
func Permanent(err error) error { return &PermanentError{Err: err} }

// IsPermanent reports whether err (or anything it wraps) is non-retryable.
func IsPermanent(err error) bool {
	var pe *PermanentError
	return errors.As(err, &pe)
}
