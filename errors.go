package main

import (
	"errors"
	"fmt"
)

// AppError is the error type every stage of the pipeline returns.
type AppError struct {
	Code    string
	Message string
	Cause   error
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

// Is matches on Code so sentinel values like ErrDuplicateKey work with errors.Is.
func (e *AppError) Is(target error) bool {
	var t *AppError
	if !errors.As(target, &t) {
		return false
	}
	return t.Message == "" && t.Cause == nil && t.Code == e.Code
}

const (
	CodeConfigInvalid   = "CONFIG_INVALID"
	CodeNotFound        = "NOT_FOUND"
	CodeInvalidInput    = "INVALID_INPUT"
	CodeDuplicateKey    = "DUPLICATE_KEY"
	CodeExternalService = "EXTERNAL_SERVICE_ERROR"
	CodeStorage         = "STORAGE_ERROR"
	CodeRender          = "RENDER_ERROR"
	CodeInternal        = "INTERNAL_ERROR"
)

// Sentinels for errors.Is checks.
var (
	ErrConfigInvalid   = &AppError{Code: CodeConfigInvalid}
	ErrNotFound        = &AppError{Code: CodeNotFound}
	ErrInvalidInput    = &AppError{Code: CodeInvalidInput}
	ErrDuplicateKey    = &AppError{Code: CodeDuplicateKey}
	ErrExternalService = &AppError{Code: CodeExternalService}
	ErrStorage         = &AppError{Code: CodeStorage}
	ErrRender          = &AppError{Code: CodeRender}
)

func newError(code, format string, args ...any) *AppError {
	return &AppError{Code: code, Message: fmt.Sprintf(format, args...)}
}

func newErrorCause(code string, cause error, format string, args ...any) *AppError {
	return &AppError{Code: code, Message: fmt.Sprintf(format, args...), Cause: cause}
}

// wrapError keeps the code of an inner AppError and falls back to code otherwise.
func wrapError(err error, code, format string, args ...any) error {
	if err == nil {
		return nil
	}
	var appErr *AppError
	if errors.As(err, &appErr) {
		code = appErr.Code
	}
	return &AppError{Code: code, Message: fmt.Sprintf(format, args...), Cause: err}
}

// errorCode returns the code of the outermost AppError, or INTERNAL_ERROR.
func errorCode(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return CodeInternal
}
