package app

import (
	"fmt"
	"net/http"
)

type DomainError struct {
	Status  int
	Code    string
	Message string
	Details any
}

func (e *DomainError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func domainError(status int, code, message string, details any) *DomainError {
	return &DomainError{
		Status:  status,
		Code:    code,
		Message: message,
		Details: details,
	}
}

func errUnauthenticated() *DomainError {
	return domainError(http.StatusUnauthorized, "UNAUTHENTICATED", "Authentication required", nil)
}

func errNotVerified() *DomainError {
	return domainError(http.StatusForbidden, "NOT_VERIFIED", "Verify your email before posting", nil)
}

// errValidationFailed carries every failed check, in check order, so the
// client can show all of them at once.
func errValidationFailed(reasons []string) *DomainError {
	return domainError(http.StatusUnprocessableEntity, "VALIDATION_FAILED", "Message failed validation",
		map[string]any{"reasons": reasons})
}

func errAlreadyVerified() *DomainError {
	return domainError(http.StatusConflict, "ALREADY_VERIFIED", "Email already verified", nil)
}

func errCodeInvalid() *DomainError {
	return domainError(http.StatusBadRequest, "VERIFICATION_CODE_INVALID", "Invalid or expired verification code", nil)
}

func errNotFound(message string) *DomainError {
	return domainError(http.StatusNotFound, "NOT_FOUND", message, nil)
}
