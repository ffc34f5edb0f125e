package errors

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"unicode/utf8"
)

type ErrorCode string

const (
	// No wallet/provider configured. Fatal to every client operation.
	ErrCodeProviderUnavailable ErrorCode = "PROVIDER_UNAVAILABLE"
	// The human declined an approval prompt. The caller may retry.
	ErrCodeUserRejected ErrorCode = "USER_REJECTED"
	// Network failure, contract revert or store failure.
	ErrCodeExecutionFailed ErrorCode = "EXECUTION_FAILED"
	// Input rejected before anything was sent.
	ErrCodeValidationFailed ErrorCode = "VALIDATION_FAILED"

	ErrCodeInternalError ErrorCode = "INTERNAL_ERROR"
)

type AppError struct {
	Code       ErrorCode
	Message    string
	Err        error
	HTTPStatus int
	Retriable  bool
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (%v)", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// Is reports whether target is an *AppError with the same code, so
// errors.Is(err, ErrUserRejected) matches any user rejection.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return t.Code == e.Code && t.Message == ""
}

func NewAppError(code ErrorCode, message string, err error) *AppError {
	appErr := &AppError{
		Code:    code,
		Message: message,
		Err:     err,
	}
	appErr.setDefaults()
	return appErr
}

func (e *AppError) setDefaults() {
	switch e.Code {
	case ErrCodeProviderUnavailable:
		e.HTTPStatus = http.StatusServiceUnavailable
		e.Retriable = false
	case ErrCodeUserRejected:
		e.HTTPStatus = http.StatusForbidden
		e.Retriable = true
	case ErrCodeExecutionFailed:
		e.HTTPStatus = http.StatusUnprocessableEntity
		e.Retriable = true
	case ErrCodeValidationFailed:
		e.HTTPStatus = http.StatusBadRequest
		e.Retriable = false
	default:
		e.HTTPStatus = http.StatusInternalServerError
		e.Retriable = false
	}
}

// Code-only sentinels for errors.Is.
var (
	ErrProviderUnavailable = &AppError{Code: ErrCodeProviderUnavailable}
	ErrUserRejected        = &AppError{Code: ErrCodeUserRejected}
	ErrExecutionFailed     = &AppError{Code: ErrCodeExecutionFailed}
	ErrValidationFailed    = &AppError{Code: ErrCodeValidationFailed}
)

func ProviderUnavailable(message string) *AppError {
	return NewAppError(ErrCodeProviderUnavailable, message, nil)
}

func UserRejected(message string) *AppError {
	return NewAppError(ErrCodeUserRejected, message, nil)
}

func ExecutionFailed(message string, err error) *AppError {
	return NewAppError(ErrCodeExecutionFailed, message, err)
}

func ValidationFailed(message string) *AppError {
	return NewAppError(ErrCodeValidationFailed, message, nil)
}

func Internal(message string, err error) *AppError {
	return NewAppError(ErrCodeInternalError, message, err)
}

// CodeOf returns the code of the first AppError in err's chain, or
// ErrCodeInternalError when there is none.
func CodeOf(err error) ErrorCode {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return ErrCodeInternalError
}

func IsRetriable(err error) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Retriable
	}
	return false
}

type errorPattern struct {
	pattern string
	code    ErrorCode
	title   string
	message string
}

var errorPatterns = []errorPattern{
	{"not installed", ErrCodeProviderUnavailable, "Wallet Not Found",
		"Please configure a wallet to use this application."},
	{"no provider", ErrCodeProviderUnavailable, "Wallet Not Found",
		"Please configure a wallet to use this application."},
	{"user rejected", ErrCodeUserRejected, "Transaction Cancelled",
		"You cancelled the transaction. Please try again when ready."},
	{"insufficient funds", ErrCodeExecutionFailed, "Insufficient Funds",
		"You don't have enough funds to complete this transaction."},
}

// Parse classifies a raw error. AppErrors pass through unchanged, anything
// else is matched against known provider messages and falls back to
// ExecutionFailed.
func Parse(err error, operation string) *AppError {
	if err == nil {
		return nil
	}

	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}

	errLower := strings.ToLower(err.Error())
	for _, p := range errorPatterns {
		if strings.Contains(errLower, p.pattern) {
			return NewAppError(p.code, fmt.Sprintf("%s failed: %s", operation, p.message), err)
		}
	}

	return NewAppError(ErrCodeExecutionFailed, fmt.Sprintf("%s failed", operation), err)
}

// DisplayError is the user-facing rendering of an error.
type DisplayError struct {
	Code    ErrorCode
	Title   string
	Message string
}

const maxDisplayMessage = 100

// Display converts err into a title and message suitable for showing to a
// person. Unknown messages are truncated.
func Display(err error) DisplayError {
	if err == nil {
		return DisplayError{}
	}

	errLower := strings.ToLower(err.Error())
	for _, p := range errorPatterns {
		if strings.Contains(errLower, p.pattern) {
			return DisplayError{Code: p.code, Title: p.title, Message: p.message}
		}
	}

	code := CodeOf(err)
	switch code {
	case ErrCodeProviderUnavailable:
		return DisplayError{Code: code, Title: "Wallet Not Found", Message: "Please configure a wallet to use this application."}
	case ErrCodeUserRejected:
		return DisplayError{Code: code, Title: "Transaction Cancelled", Message: "You cancelled the transaction. Please try again when ready."}
	case ErrCodeValidationFailed:
		return DisplayError{Code: code, Title: "Invalid Input", Message: truncate(messageOf(err))}
	}

	return DisplayError{Code: code, Title: "Unknown Error", Message: truncate(err.Error())}
}

func messageOf(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) && appErr.Message != "" {
		return appErr.Message
	}
	return err.Error()
}

// truncate cuts msg to at most maxDisplayMessage bytes on a rune boundary.
func truncate(msg string) string {
	if len(msg) <= maxDisplayMessage {
		return msg
	}
	cut := maxDisplayMessage
	for cut > 0 && !utf8.RuneStart(msg[cut]) {
		cut--
	}
	return msg[:cut] + "..."
}
