package reconciliation

import (
	"errors"
	"fmt"

	"gorm.io/gorm"
)

var (
	ErrValidation               = errors.New("validation failed")
	ErrNotFound                 = errors.New("not found")
	ErrAlreadyMatched           = errors.New("already matched")
	ErrInvalidSelection         = errors.New("select exactly one transaction and one statement entry")
	ErrSessionClosed            = errors.New("reconciliation session is closed")
	ErrIncompleteReconciliation = errors.New("reconciliation has unmatched items")
	ErrNoValidEntries           = errors.New("no valid statement entries")
	ErrAuditTampered            = errors.New("audit trail does not verify")
)

// ValidationError names the offending input field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

func invalid(field, msg string) error {
	return &ValidationError{Field: field, Message: msg}
}

// notFound turns a gorm miss into ErrNotFound and passes anything else through.
func notFound(err error, what string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%s %w", what, ErrNotFound)
	}
	return err
}
