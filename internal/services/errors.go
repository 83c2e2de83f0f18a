// Package services implements the collaborators of the workflow list screen
// and the create/update rules enforced on submission.
package services

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	// Validation errors (400 Bad Request).
	ErrInvalidRequest = errors.New("invalid request")

	// Plan ceilings (402/403 style, reported as 403 by the API).
	ErrLimitReached = errors.New("license limit reached")

	// Conflicts (409 Conflict).
	ErrNameTaken        = errors.New("a workflow with this name already exists")
	ErrContentTypeTaken = errors.New("content type is already assigned to another workflow")

	ErrUnknownUser = errors.New("unknown user")
)

// ServiceError wraps service-level errors with additional context.
type ServiceError struct {
	Op      string // Operation name
	Message string // Human-readable message
	Err     error  // Underlying error
}

func (e *ServiceError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s: %s", e.Op, e.Message)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *ServiceError) Unwrap() error {
	return e.Err
}

func (e *ServiceError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

func newServiceError(op, message string, err error) *ServiceError {
	return &ServiceError{Op: op, Message: message, Err: err}
}

// ValidationError lists invalid fields by their JSON path.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = k + " " + e.Fields[k]
	}
	return "invalid request: " + strings.Join(parts, "; ")
}

func (e *ValidationError) Unwrap() error {
	return ErrInvalidRequest
}

// LimitError reports which entitlement stopped a submission.
type LimitError struct {
	Entitlement string
	Limit       int
}

func (e *LimitError) Error() string {
	return fmt.Sprintf("license limit reached: %s is %d", e.Entitlement, e.Limit)
}

func (e *LimitError) Unwrap() error {
	return ErrLimitReached
}

// IsValidationError checks if an error should be reported as a bad request.
func IsValidationError(err error) bool {
	return errors.Is(err, ErrInvalidRequest)
}

// IsConflictError checks if an error should be reported as a conflict.
func IsConflictError(err error) bool {
	return errors.Is(err, ErrNameTaken) || errors.Is(err, ErrContentTypeTaken)
}

func IsLimitError(err error) bool {
	return errors.Is(err, ErrLimitReached)
}
