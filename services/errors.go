// services/errors.go - Error taxonomy shared by the challenge services
package services

import (
	"context"
	"database/sql/driver"
	"errors"
	"fmt"
	"net"
	"strings"

	"gorm.io/gorm"
)

var (
	ErrInvalidInput         = errors.New("invalid input")
	ErrDuplicateChallenge   = errors.New("challenge already exists for this date and tier")
	ErrAttemptLimitExceeded = errors.New("no attempts left for this challenge")
	ErrChallengeNotFound    = errors.New("challenge not found")
	ErrUserNotFound         = errors.New("user not found")
	ErrChallengeClosed      = errors.New("challenge is closed")
	ErrChallengeNotOpen     = errors.New("challenge is not open yet")
	ErrWrongTier            = errors.New("challenge belongs to another tier")
	ErrStoreUnavailable     = errors.New("store unavailable")
)

// ValidationError reports a malformed input field. It matches ErrInvalidInput.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalidInput
}

func invalid(field, format string, args ...any) error {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// isUniqueViolation covers the translated gorm error and raw driver messages
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint") ||
		strings.Contains(msg, "duplicate key") ||
		strings.Contains(msg, "unique failed")
}

// classifyStoreError wraps connectivity and timeout failures with ErrStoreUnavailable.
// Domain errors and everything else pass through unchanged.
func classifyStoreError(err error) error {
	if err == nil {
		return nil
	}
	var netErr net.Error
	switch {
	case errors.Is(err, context.DeadlineExceeded),
		errors.Is(err, context.Canceled),
		errors.Is(err, driver.ErrBadConn),
		errors.As(err, &netErr):
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "connection refused") ||
		strings.Contains(msg, "connection reset") ||
		strings.Contains(msg, "database is locked") ||
		strings.Contains(msg, "sql: database is closed") {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return err
}
