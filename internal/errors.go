package internal

import (
	"encoding/json"
	"fmt"
	"net/http"
)

type ErrorType string

const (
	ErrorTypeValidation   ErrorType = "VALIDATION_ERROR"
	ErrorTypeNotFound     ErrorType = "NOT_FOUND"
	ErrorTypeUnauthorized ErrorType = "UNAUTHORIZED"
	ErrorTypeForbidden    ErrorType = "FORBIDDEN"
	ErrorTypeConflict     ErrorType = "CONFLICT"
	ErrorTypeTransport    ErrorType = "TRANSPORT_ERROR"
	ErrorTypeInternal     ErrorType = "INTERNAL_ERROR"
)

type ErrorCode string

const (
	ErrCodeValidationFailed ErrorCode = "VALIDATION_FAILED"
	ErrCodeInvalidDate      ErrorCode = "INVALID_DATE"
	ErrCodeInvalidTime      ErrorCode = "INVALID_TIME"
	ErrCodeInvalidPayload   ErrorCode = "INVALID_PAYLOAD"

	ErrCodeUserNotFound    ErrorCode = "USER_NOT_FOUND"
	ErrCodeStoreNotFound   ErrorCode = "STORE_NOT_FOUND"
	ErrCodeShiftNotFound   ErrorCode = "SHIFT_NOT_FOUND"
	ErrCodeTaskNotFound    ErrorCode = "TASK_NOT_FOUND"
	ErrCodeRequestNotFound ErrorCode = "REQUEST_NOT_FOUND"
	ErrCodeNoteNotFound    ErrorCode = "NOTE_NOT_FOUND"
	ErrCodeNewsNotFound    ErrorCode = "NEWS_NOT_FOUND"

	ErrCodeForbiddenRole     ErrorCode = "FORBIDDEN_ROLE"
	ErrCodeNotYourStore      ErrorCode = "NOT_YOUR_STORE"
	ErrCodeSameStore         ErrorCode = "SAME_STORE"
	ErrCodeDuplicateTransfer ErrorCode = "DUPLICATE_TRANSFER"
	ErrCodeUsernameTaken     ErrorCode = "USERNAME_TAKEN"

	ErrCodeInvalidCredentials ErrorCode = "INVALID_CREDENTIALS"
	ErrCodeUserBlocked        ErrorCode = "USER_BLOCKED"
	ErrCodeInvalidToken       ErrorCode = "INVALID_TOKEN"
	ErrCodeTokenExpired       ErrorCode = "TOKEN_EXPIRED"

	ErrCodeSendFailed ErrorCode = "SEND_FAILED"
)

type AppError struct {
	Type       ErrorType   `json:"type"`
	Code       ErrorCode   `json:"code"`
	Message    string      `json:"message"`
	Details    interface{} `json:"details,omitempty"`
	StatusCode int         `json:"-"`
	Cause      error       `json:"-"`
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

func (e *AppError) WithCause(cause error) *AppError {
	clone := *e
	clone.Cause = cause
	return &clone
}

func NewValidationError(message string, code ErrorCode) *AppError {
	return &AppError{
		Type:       ErrorTypeValidation,
		Code:       code,
		Message:    message,
		StatusCode: http.StatusBadRequest,
	}
}

func NewNotFoundError(message string, code ErrorCode) *AppError {
	return &AppError{
		Type:       ErrorTypeNotFound,
		Code:       code,
		Message:    message,
		StatusCode: http.StatusNotFound,
	}
}

func NewUnauthorizedError(message string, code ErrorCode) *AppError {
	return &AppError{
		Type:       ErrorTypeUnauthorized,
		Code:       code,
		Message:    message,
		StatusCode: http.StatusUnauthorized,
	}
}

func NewForbiddenError(message string, code ErrorCode) *AppError {
	return &AppError{
		Type:       ErrorTypeForbidden,
		Code:       code,
		Message:    message,
		StatusCode: http.StatusForbidden,
	}
}

func NewConflictError(message string, code ErrorCode) *AppError {
	return &AppError{
		Type:       ErrorTypeConflict,
		Code:       code,
		Message:    message,
		StatusCode: http.StatusConflict,
	}
}

// NewTransportError wraps a messaging-transport failure. These are logged at
// the send site and never abort the surrounding workflow step.
func NewTransportError(message string, cause error) *AppError {
	return &AppError{
		Type:       ErrorTypeTransport,
		Code:       ErrCodeSendFailed,
		Message:    message,
		StatusCode: http.StatusBadGateway,
		Cause:      cause,
	}
}

func NewInternalError(message string, cause error) *AppError {
	return &AppError{
		Type:       ErrorTypeInternal,
		Code:       "INTERNAL_ERROR",
		Message:    message,
		StatusCode: http.StatusInternalServerError,
		Cause:      cause,
	}
}

var (
	ErrUserNotFound    = NewNotFoundError("user not found", ErrCodeUserNotFound)
	ErrStoreNotFound   = NewNotFoundError("store not found", ErrCodeStoreNotFound)
	ErrShiftNotFound   = NewNotFoundError("shift not found", ErrCodeShiftNotFound)
	ErrTaskNotFound    = NewNotFoundError("task not found", ErrCodeTaskNotFound)
	ErrRequestNotFound = NewNotFoundError("request not found", ErrCodeRequestNotFound)
	ErrNoteNotFound    = NewNotFoundError("note not found", ErrCodeNoteNotFound)
	ErrNewsNotFound    = NewNotFoundError("news post not found", ErrCodeNewsNotFound)

	ErrForbiddenRole     = NewForbiddenError("role has no write access", ErrCodeForbiddenRole)
	ErrNotYourStore      = NewForbiddenError("employee belongs to another store", ErrCodeNotYourStore)
	ErrSameStore         = NewValidationError("already working at this store", ErrCodeSameStore)
	ErrDuplicateTransfer = NewConflictError("transfer to this store already requested", ErrCodeDuplicateTransfer)
	ErrUsernameTaken     = NewConflictError("username already taken", ErrCodeUsernameTaken)

	ErrInvalidCredentials = NewUnauthorizedError("invalid username or password", ErrCodeInvalidCredentials)
	ErrUserBlocked        = NewForbiddenError("account is blocked", ErrCodeUserBlocked)
	ErrInvalidToken       = NewUnauthorizedError("invalid token", ErrCodeInvalidToken)
	ErrTokenExpired       = NewUnauthorizedError("token has expired", ErrCodeTokenExpired)
)

func IsAppError(err error) (*AppError, bool) {
	if appErr, ok := err.(*AppError); ok {
		return appErr, true
	}
	return nil, false
}

type Response struct {
	Error *AppError `json:"error"`
}

func (e *AppError) ToHTTPResponse() (int, interface{}) {
	return e.StatusCode, Response{Error: e}
}

func (e *AppError) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Type    ErrorType   `json:"type"`
		Code    ErrorCode   `json:"code"`
		Message string      `json:"message"`
		Details interface{} `json:"details,omitempty"`
	}{
		Type:    e.Type,
		Code:    e.Code,
		Message: e.Message,
		Details: e.Details,
	})
}
