package service

import (
	"errors"
	"fmt"

	"github.com/bookshelf-app/bookshelf/database/model"

	"gorm.io/gorm"
)

// ValidationError reports a missing or malformed input field.
type ValidationError struct {
	Field string
	Msg   string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Msg)
}

// NotFoundError reports a reference to a row that does not exist.
type NotFoundError struct {
	Resource string
	ID       any
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %v not found", e.Resource, e.ID)
}

// IntegrityError wraps a constraint violation reported by the store.
type IntegrityError struct {
	Err error
}

func (e *IntegrityError) Error() string {
	return "integrity violation: " + e.Err.Error()
}

func (e *IntegrityError) Unwrap() error { return e.Err }

// AuthorizationError reports a missing role. The web layer turns it into a 403.
type AuthorizationError struct {
	Role model.RoleName
}

func (e *AuthorizationError) Error() string {
	return fmt.Sprintf("role %s required", e.Role)
}

func IsValidation(err error) bool {
	var e *ValidationError
	return errors.As(err, &e)
}

func IsNotFound(err error) bool {
	var e *NotFoundError
	return errors.As(err, &e)
}

func IsIntegrity(err error) bool {
	var e *IntegrityError
	return errors.As(err, &e)
}

func IsAuthorization(err error) bool {
	var e *AuthorizationError
	return errors.As(err, &e)
}

// wrapDBError classifies constraint violations and annotates everything else.
func wrapDBError(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) || errors.Is(err, gorm.ErrForeignKeyViolated) {
		return &IntegrityError{Err: fmt.Errorf("%s: %w", op, err)}
	}
	var (
		ve *ValidationError
		ne *NotFoundError
		ie *IntegrityError
	)
	if errors.As(err, &ve) || errors.As(err, &ne) || errors.As(err, &ie) {
		return err
	}
	return fmt.Errorf("%s: %w", op, err)
}
