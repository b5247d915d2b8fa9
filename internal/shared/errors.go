package shared

import "errors"

var (
	// ErrNotFound indicates resource not found.
	ErrNotFound = errors.New("not found")
	// ErrSessionMissing occurs when no session is attached to the request.
	ErrSessionMissing = errors.New("session missing")
	// ErrCSRFTokenMissing occurs when CSRF token missing.
	ErrCSRFTokenMissing = errors.New("csrf token missing")
	// ErrCSRFTokenMismatch occurs when CSRF tokens do not match.
	ErrCSRFTokenMismatch = errors.New("csrf token mismatch")
)

// GenericErrorMessage is shown when an error carries no user-facing text.
const GenericErrorMessage = "処理に失敗しました。時間をおいて再度お試しください"

// UserMessenger is implemented by errors that carry text safe to show to users.
type UserMessenger interface {
	UserMessage() string
}

// UserSafeMessage returns the message to surface for err in a notification.
func UserSafeMessage(err error) string {
	if err == nil {
		return ""
	}
	var um UserMessenger
	if errors.As(err, &um) {
		if msg := um.UserMessage(); msg != "" {
			return msg
		}
	}
	if errors.Is(err, ErrNotFound) {
		return "データが見つかりません"
	}
	return GenericErrorMessage
}

// UserError pairs an internal error with a message safe for users.
type UserError struct {
	Err     error
	Message string
}

// NewUserError wraps err with a user-facing message.
func NewUserError(err error, message string) *UserError {
	return &UserError{Err: err, Message: message}
}

func (e *UserError) Error() string {
	if e.Err == nil {
		return e.Message
	}
	return e.Err.Error()
}

func (e *UserError) Unwrap() error { return e.Err }

// UserMessage implements UserMessenger.
func (e *UserError) UserMessage() string { return e.Message }
