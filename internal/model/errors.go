package model

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound     = errors.New("not found")
	ErrUserNotFound = fmt.Errorf("user %w", ErrNotFound)

	ErrDuplicateKey = errors.New("duplicate key")

	ErrInvalidToken = errors.New("invalid token")
)

// DuplicateKeyError is returned by repositories when a unique constraint rejects a write.
type DuplicateKeyError struct {
	Constraint string
	Err        error
}

func (e *DuplicateKeyError) Error() string {
	if e.Constraint == "" {
		return ErrDuplicateKey.Error()
	}
	return fmt.Sprintf("%s: %s", ErrDuplicateKey, e.Constraint)
}

func (e *DuplicateKeyError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrDuplicateKey}
	}
	return []error{ErrDuplicateKey, e.Err}
}
