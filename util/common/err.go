// Package common provides small error helpers shared across the panel.
package common

import (
	"errors"
	"fmt"
)

func NewErrorf(format string, a ...any) error {
	msg := fmt.Sprintf(format, a...)
	return errors.New(msg)
}

func NewError(a ...any) error {
	msg := fmt.Sprintln(a...)
	return errors.New(msg)
}

// Combine joins the non-nil errors into one, or returns nil when there are none.
func Combine(errs ...error) error {
	return errors.Join(errs...)
}
