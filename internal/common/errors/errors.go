package errors

import (
	"errors"
	"fmt"
)

var (
	ErrSessionClosed        = errors.New("session window closed")
	ErrInvalidDraft         = errors.New("invalid draft")
	ErrLocalCommitFailed    = errors.New("local commit failed")
	ErrRemoteSubmission     = errors.New("remote submission failed")
	ErrConfigurationMissing = errors.New("provider configuration missing")
	ErrUploadFailed         = errors.New("upload failed")
	ErrNotFound             = errors.New("resource not found")
	ErrInternalError        = errors.New("internal error")
)

type Kind int

const (
	KindInternal Kind = iota
	KindPolicyViolation
	KindValidation
	KindLocalCommit
	KindRemoteSubmission
	KindConfigurationMissing
	KindUpload
	KindNotFound
)

// AppError pairs a machine-checkable kind with a short user-facing message.
// The wrapped error carries the detail that goes to the log, never to the
// user.
type AppError struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// UserMessage is what a presentation layer may show verbatim.
func (e *AppError) UserMessage() string {
	return e.Message
}

func NewAppError(kind Kind, message string, err error) *AppError {
	return &AppError{
		Kind:    kind,
		Message: message,
		Err:     err,
	}
}

func PolicyViolation(message string) *AppError {
	return &AppError{
		Kind:    KindPolicyViolation,
		Message: message,
		Err:     ErrSessionClosed,
	}
}

func Validation(message string) *AppError {
	return &AppError{
		Kind:    KindValidation,
		Message: message,
		Err:     ErrInvalidDraft,
	}
}

func LocalCommit(message string, err error) *AppError {
	return &AppError{
		Kind:    KindLocalCommit,
		Message: message,
		Err:     errors.Join(ErrLocalCommitFailed, err),
	}
}

func RemoteSubmission(message string, err error) *AppError {
	return &AppError{
		Kind:    KindRemoteSubmission,
		Message: message,
		Err:     errors.Join(ErrRemoteSubmission, err),
	}
}

func ConfigurationMissing(message string) *AppError {
	return &AppError{
		Kind:    KindConfigurationMissing,
		Message: message,
		Err:     ErrConfigurationMissing,
	}
}

func Upload(message string, err error) *AppError {
	return &AppError{
		Kind:    KindUpload,
		Message: message,
		Err:     errors.Join(ErrUploadFailed, err),
	}
}

func NotFound(message string) *AppError {
	return &AppError{
		Kind:    KindNotFound,
		Message: message,
		Err:     ErrNotFound,
	}
}

func Internal(message string, err error) *AppError {
	return &AppError{
		Kind:    KindInternal,
		Message: message,
		Err:     err,
	}
}

func kindOf(err error) (Kind, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Kind, true
	}
	return KindInternal, false
}

func IsPolicyViolation(err error) bool {
	if k, ok := kindOf(err); ok {
		return k == KindPolicyViolation
	}
	return errors.Is(err, ErrSessionClosed)
}

func IsValidation(err error) bool {
	if k, ok := kindOf(err); ok {
		return k == KindValidation
	}
	return errors.Is(err, ErrInvalidDraft)
}

func IsConfigurationMissing(err error) bool {
	if k, ok := kindOf(err); ok {
		return k == KindConfigurationMissing
	}
	return errors.Is(err, ErrConfigurationMissing)
}

func IsNotFound(err error) bool {
	if k, ok := kindOf(err); ok {
		return k == KindNotFound
	}
	return errors.Is(err, ErrNotFound)
}

// UserMessage extracts the short human-readable text for any error,
// degrading to a generic line for unexpected internal failures.
func UserMessage(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Message
	}
	return "something went wrong, please try again"
}
