package service

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"gorm.io/gorm"
)

var (
	// ErrNotFound is returned when an entity does not exist or belongs to
	// another user. The two cases are deliberately indistinguishable.
	ErrNotFound = errors.New("not found")
	// ErrConflict is returned when a category name is already taken by the
	// same user.
	ErrConflict = errors.New("already exists")
	// ErrValidation is wrapped by every *ValidationError.
	ErrValidation = errors.New("validation failed")
	// ErrEditLocked is wrapped by the ValidationError returned when a
	// completed task is edited without being reopened.
	ErrEditLocked = errors.New("completed task cannot be edited")
)

// ValidationError reports invalid input, one message per field.
type ValidationError struct {
	Fields map[string]string
	locked bool
}

func (e *ValidationError) Error() string {
	names := make([]string, 0, len(e.Fields))
	for name := range e.Fields {
		names = append(names, name)
	}
	sort.Strings(names)

	parts := make([]string, 0, len(names))
	for _, name := range names {
		parts = append(parts, fmt.Sprintf("%s: %s", name, e.Fields[name]))
	}
	prefix := ErrValidation.Error()
	if e.locked {
		prefix = ErrEditLocked.Error()
	}
	return prefix + ": " + strings.Join(parts, "; ")
}

func (e *ValidationError) Unwrap() []error {
	if e.locked {
		return []error{ErrValidation, ErrEditLocked}
	}
	return []error{ErrValidation}
}

func (e *ValidationError) Add(field, msg string) {
	if e.Fields == nil {
		e.Fields = make(map[string]string)
	}
	if _, ok := e.Fields[field]; !ok {
		e.Fields[field] = msg
	}
}

// Err returns e as an error, or nil when no field was reported.
func (e *ValidationError) Err() error {
	if len(e.Fields) == 0 {
		return nil
	}
	return e
}

// translate maps storage errors onto the service error taxonomy.
func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return fmt.Errorf("%w: %v", ErrConflict, err)
	default:
		return err
	}
}
